// Copyright 2026 The Concord Authors
// SPDX-License-Identifier: Apache-2.0

package client

import "errors"

// Validation errors raised before any network call. All are
// recoverable: the caller may retry with corrected input.
var (
	// ErrInvalidToken means the supplied token was empty (or nothing
	// but a scheme prefix).
	ErrInvalidToken = errors.New("client: token must be a non-empty string")

	// ErrInvalidCredentials means username or password was missing.
	ErrInvalidCredentials = errors.New("client: username and password are required")

	// ErrMFARequired means the login needs a second factor and the
	// supplied code matched neither the 6-digit nor the backup-code
	// form.
	ErrMFARequired = errors.New("client: a valid two-factor code is required")

	// ErrUnknownLogin means the identity endpoint answered with
	// neither a token nor an MFA ticket. Surfaced as-is; the response
	// shape is outside the client's control.
	ErrUnknownLogin = errors.New("client: login response carried neither token nor MFA ticket")

	// ErrInvalidRemoteAuthURL means the handshake URL failed the host
	// allow-list or path-shape check.
	ErrInvalidRemoteAuthURL = errors.New("client: remote auth URL must point at a recognized service host with a /ra/ fingerprint path")
)

// TransportError wraps a gateway connect failure. By the time the
// caller sees one, the client has already destroyed itself — no
// partial session state lingers. The original error is available via
// errors.Unwrap.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "client: gateway connect failed: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
