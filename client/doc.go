// Copyright 2026 The Concord Authors
// SPDX-License-Identifier: Apache-2.0

// Package client orchestrates one session against the service: shard
// plan resolution, authentication, entity caching, and teardown.
//
// A Client is built once with New and holds exactly one session.
// Three authentication strategies exist, all converging on Login:
//
//   - Login: connect with an existing token.
//   - PasswordLogin: username/password, with an optional second
//     factor, exchanged for a token.
//   - RemoteAuth / CreateToken: the two sides of the device
//     handshake. An established session approves a new device
//     (RemoteAuth), or an unauthenticated process registers itself
//     and waits for approval (CreateToken).
//
// Destroy is idempotent and final; a destroyed Client is not
// reusable. Logout invalidates the session server-side first and
// refuses local teardown if the server could not be reached.
//
// Background maintenance — the hourly used-gift-code reset and the
// optional message cache sweep — is driven by an injectable clock and
// runs until Destroy regardless of connection state.
package client
