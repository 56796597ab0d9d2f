// Copyright 2026 The Concord Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"fmt"
	"sync"
)

// Compile-time interface check.
var _ Conn = (*MemoryConn)(nil)

// MemoryConn is an in-process Conn for tests and headless tooling
// that needs the session lifecycle without a live socket. Connect
// succeeds immediately unless a failure is injected, assigning a
// fresh session ID per successful handshake.
type MemoryConn struct {
	mu        sync.Mutex
	status    Status
	sessionID string
	connects  int

	// ConnectErr, when non-nil, makes the next Connect fail with this
	// error and leaves the connection Disconnected.
	ConnectErr error

	// OnConnect, when non-nil, runs during Connect before the status
	// flips to ready. Tests use it to observe orchestrator state at
	// the connect boundary.
	OnConnect func() error
}

// NewMemoryConn creates an idle in-process connection.
func NewMemoryConn() *MemoryConn {
	return &MemoryConn{status: StatusIdle}
}

// Connect simulates a gateway handshake.
func (c *MemoryConn) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.status = StatusConnecting
	if c.ConnectErr != nil {
		c.status = StatusDisconnected
		return c.ConnectErr
	}
	if c.OnConnect != nil {
		if err := c.OnConnect(); err != nil {
			c.status = StatusDisconnected
			return err
		}
	}

	c.connects++
	c.sessionID = fmt.Sprintf("mem-session-%d", c.connects)
	c.status = StatusReady
	return nil
}

// Destroy marks the connection destroyed. Idempotent.
func (c *MemoryConn) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = StatusDestroyed
}

// Status reports the current state.
func (c *MemoryConn) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// SessionID returns the identifier assigned by the last successful
// Connect, or "" before one.
func (c *MemoryConn) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Drop simulates a transport-level disconnect after the link was
// ready.
func (c *MemoryConn) Drop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == StatusReady {
		c.status = StatusDisconnected
	}
}

// ConnectCount returns how many handshakes have succeeded.
func (c *MemoryConn) ConnectCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connects
}
