// Copyright 2026 The Concord Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/concord-client/concord/gateway"
	"github.com/concord-client/concord/lib/secret"
	"github.com/concord-client/concord/rest"
)

// schemePrefix matches a leading "Bot" or "Bearer" scheme, with any
// amount of following whitespace, on a supplied token. User-account
// tokens are sent bare; the prefix is stripped so that tokens copied
// from bot configurations still work.
var schemePrefix = regexp.MustCompile(`(?i)^(?:bot|bearer)\s*`)

// mfaCodePattern matches the two accepted second-factor forms: a
// 6-digit TOTP code, or an 8-character backup code written as two
// 4-character alphanumeric halves joined by a dash.
var mfaCodePattern = regexp.MustCompile(`^(?:\d{6}|[A-Za-z0-9]{4}-[A-Za-z0-9]{4})$`)

// Login establishes the session from a token: the single primitive
// every authentication strategy converges on. The token is validated
// and normalized, moved into locked memory, and handed to the gateway.
//
// A connect failure destroys the client before returning — the error
// comes back as a *TransportError wrapping the transport's own. On
// success the session is ready and the normalized token is returned.
func (c *Client) Login(ctx context.Context, token string) (string, error) {
	normalized := schemePrefix.ReplaceAllString(strings.TrimSpace(token), "")
	if normalized == "" {
		return "", ErrInvalidToken
	}

	buffer, err := secret.FromString(normalized)
	if err != nil {
		return "", fmt.Errorf("client: protecting token: %w", err)
	}

	c.mu.Lock()
	if c.token != nil {
		c.token.Close()
	}
	c.token = buffer
	c.status = gateway.StatusConnecting
	c.mu.Unlock()

	c.logger.Info("connecting to gateway",
		"shards", c.plan.Indices,
		"shard_count", c.plan.Count,
	)

	if err := c.gateway.Connect(ctx); err != nil {
		c.Destroy()
		return "", &TransportError{Err: err}
	}

	c.mu.Lock()
	c.status = gateway.StatusReady
	c.readyAt = c.clock.Now()
	c.sessionID = c.gateway.SessionID()
	sessionID := c.sessionID
	c.mu.Unlock()

	c.logger.Info("session ready", "session_id", sessionID)
	return normalized, nil
}

// loginRequest is the credential-login body.
type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// loginResponse covers both outcomes of the first login round: a
// token directly, or an MFA ticket demanding a second round.
type loginResponse struct {
	Token  string `json:"token"`
	Ticket string `json:"ticket"`
	MFA    bool   `json:"mfa"`
}

// mfaRequest exchanges a second-factor code and ticket for a token.
type mfaRequest struct {
	Code   string `json:"code"`
	Ticket string `json:"ticket"`
}

// PasswordLogin authenticates with username and password, completing
// the second-factor round when the server demands one. At most two
// rounds exist: the identity endpoint either returns a token directly
// or an MFA ticket to be exchanged together with mfaCode. Either
// token then feeds Login.
//
// mfaCode may be empty when the account has no second factor; if the
// server demands one anyway, the call fails with ErrMFARequired
// before any exchange attempt.
func (c *Client) PasswordLogin(ctx context.Context, username, password, mfaCode string) (string, error) {
	if username == "" || password == "" {
		return "", ErrInvalidCredentials
	}

	body, err := c.rest.Post(ctx, "/auth/login", nil, loginRequest{Login: username, Password: password})
	if err != nil {
		return "", fmt.Errorf("client: credential login: %w", err)
	}

	var response loginResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("client: parsing login response: %w", err)
	}

	c.cachePassword(password)

	token := response.Token
	if token == "" {
		if response.Ticket == "" {
			return "", ErrUnknownLogin
		}
		if !mfaCodePattern.MatchString(mfaCode) {
			return "", ErrMFARequired
		}

		exchangeBody, err := c.rest.Post(ctx, "/auth/mfa/totp", nil, mfaRequest{Code: mfaCode, Ticket: response.Ticket})
		if err != nil {
			// A well-formed code the server still rejects is the same
			// recoverable condition as a malformed one.
			if rest.IsAPIError(err, rest.ErrCodeInvalidMFACode) {
				return "", ErrMFARequired
			}
			return "", fmt.Errorf("client: MFA exchange: %w", err)
		}
		var exchange loginResponse
		if err := json.Unmarshal(exchangeBody, &exchange); err != nil {
			return "", fmt.Errorf("client: parsing MFA exchange response: %w", err)
		}
		if exchange.Token == "" {
			return "", ErrUnknownLogin
		}
		token = exchange.Token
	}

	return c.Login(ctx, token)
}

// cachePassword keeps the credential secret in locked memory for the
// session's lifetime (re-authentication flows need it). Destroy
// releases it.
func (c *Client) cachePassword(password string) {
	buffer, err := secret.FromString(password)
	if err != nil {
		return
	}
	c.mu.Lock()
	if c.password != nil {
		c.password.Close()
	}
	c.password = buffer
	c.mu.Unlock()
}

// SwitchUser re-authenticates as a different identity. Every named
// cache is cleared to completion before the new login's connect is
// issued — a strict ordering, so no entity from the previous account
// can leak into the new session.
func (c *Client) SwitchUser(ctx context.Context, token string) (string, error) {
	removed := c.caches.ClearAll()
	c.logger.Info("switching user", "cleared_entries", removed)
	return c.Login(ctx, token)
}
