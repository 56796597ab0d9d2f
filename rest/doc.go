// Copyright 2026 The Concord Authors
// SPDX-License-Identifier: Apache-2.0

// Package rest is the HTTP transport for the service's JSON API.
//
// [Client] exposes the two-verb contract the session core consumes:
// Post for login, MFA exchange, remote-auth steps, redemption, and
// logout; Get for profile and lookup endpoints. The client itself is
// credential-free — each call takes the session token (or nil for
// unauthenticated endpoints) as a secret.Buffer, converted to a header
// string only for the duration of the request.
//
// Non-2xx responses with the service's {code, message} shape come back
// as [*APIError], carrying the numeric service code and HTTP status;
// [IsAPIError] tests for a specific code. Response bodies are bounded
// reads. Rate limiting and retry policy are out of scope here and
// belong to the caller.
package rest
