// Copyright 2026 The Concord Authors
// SPDX-License-Identifier: Apache-2.0

// Package gateway defines the connection-transport contract the
// session orchestrator consumes: [Conn] (connect, destroy, status,
// session ID) and the [Status] lifecycle enum.
//
// The wire protocol itself — framing, compression, heartbeats, resume
// — lives behind the interface and is not this module's concern.
// [MemoryConn] is the in-process implementation used by tests and by
// tooling that only needs the REST side of a session; it supports
// failure injection, a connect-time hook, and simulated drops.
package gateway
