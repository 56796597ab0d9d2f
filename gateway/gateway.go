// Copyright 2026 The Concord Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import "context"

// Status is the lifecycle state of a gateway connection. The session
// orchestrator mirrors this enum for its own state.
type Status int

const (
	// StatusIdle means no connection attempt has been made.
	StatusIdle Status = iota
	// StatusConnecting means a connection attempt is in flight.
	StatusConnecting
	// StatusReady means the handshake completed and events flow.
	StatusReady
	// StatusDisconnected means the link dropped after being ready.
	StatusDisconnected
	// StatusDestroyed is terminal: the connection was torn down and
	// will not be reused.
	StatusDestroyed
)

// String returns the lowercase state name.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusConnecting:
		return "connecting"
	case StatusReady:
		return "ready"
	case StatusDisconnected:
		return "disconnected"
	case StatusDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Conn is the contract the session orchestrator consumes. The wire
// protocol behind it (framing, heartbeats, resume) is a separate
// concern; implementations range from a real socket to [MemoryConn].
type Conn interface {
	// Connect establishes the link using credentials the owner has
	// already placed with the implementation, blocking until the
	// handshake completes or fails.
	Connect(ctx context.Context) error

	// Destroy tears the link down. Idempotent.
	Destroy()

	// Status reports the current connection state.
	Status() Status

	// SessionID returns the server-assigned session identifier, or
	// "" before the first successful handshake.
	SessionID() string
}
