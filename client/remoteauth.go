// Copyright 2026 The Concord Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/curve25519"

	"github.com/concord-client/concord/lib/secret"
)

// remoteAuthHosts is the allow-list for handshake URLs. Anything else
// is rejected before a single byte goes on the wire.
var remoteAuthHosts = map[string]bool{
	"discord.com":        true,
	"ptb.discord.com":    true,
	"canary.discord.com": true,
}

// pollInterval paces the CreateToken approval poll. The service
// answers "pending" cheaply; one request per interval is plenty.
const pollInterval = 2 * time.Second

// parseRemoteAuthURL extracts the device fingerprint from a remote
// auth URL. The URL must name an allow-listed host and carry the
// fingerprint as the sole segment under /ra/.
func parseRemoteAuthURL(rawURL string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", ErrInvalidRemoteAuthURL
	}
	if !remoteAuthHosts[strings.ToLower(parsed.Hostname())] {
		return "", ErrInvalidRemoteAuthURL
	}
	fingerprint, found := strings.CutPrefix(parsed.Path, "/ra/")
	if !found || fingerprint == "" || strings.Contains(fingerprint, "/") {
		return "", ErrInvalidRemoteAuthURL
	}
	return fingerprint, nil
}

// Handshake is a pending remote-auth approval: the established
// session has told the service which device wants in, and the service
// is waiting for a verdict. Exactly one of Accept or Cancel should be
// called; Accept is effective at most once.
type Handshake struct {
	client         *Client
	handshakeToken string

	mu       sync.Mutex
	accepted bool
	token    string
}

type remoteAuthRequest struct {
	Fingerprint string `json:"fingerprint"`
}

type remoteAuthResponse struct {
	HandshakeToken string `json:"handshake_token"`
}

type handshakeRequest struct {
	HandshakeToken string `json:"handshake_token"`
}

type handshakeFinishResponse struct {
	Token string `json:"token"`
}

// RemoteAuth starts the approver side of the device handshake: the
// established session vouches for the device named by rawURL (the
// scanned code's payload). The returned Handshake carries the Accept
// and Cancel continuations; with forceAccept the approval is issued
// immediately and the completed handshake returned.
func (c *Client) RemoteAuth(ctx context.Context, rawURL string, forceAccept bool) (*Handshake, error) {
	fingerprint, err := parseRemoteAuthURL(rawURL)
	if err != nil {
		return nil, err
	}

	body, err := c.rest.Post(ctx, "/users/@me/remote-auth", c.currentToken(), remoteAuthRequest{Fingerprint: fingerprint})
	if err != nil {
		return nil, fmt.Errorf("client: starting remote auth handshake: %w", err)
	}
	var response remoteAuthResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("client: parsing remote auth response: %w", err)
	}

	handshake := &Handshake{client: c, handshakeToken: response.HandshakeToken}
	c.logger.Info("remote auth handshake started", "fingerprint", fingerprint)

	if forceAccept {
		if err := handshake.Accept(ctx); err != nil {
			return nil, err
		}
	}
	return handshake, nil
}

// Accept approves the handshake and records the token minted for the
// remote device. Repeated calls after a success are no-ops — the
// approval already happened, and the service would reject a replay.
func (h *Handshake) Accept(ctx context.Context) error {
	h.mu.Lock()
	if h.accepted {
		h.mu.Unlock()
		return nil
	}
	h.mu.Unlock()

	body, err := h.client.rest.Post(ctx, "/users/@me/remote-auth/finish",
		h.client.currentToken(), handshakeRequest{HandshakeToken: h.handshakeToken})
	if err != nil {
		return fmt.Errorf("client: accepting remote auth handshake: %w", err)
	}
	var response handshakeFinishResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return fmt.Errorf("client: parsing handshake finish response: %w", err)
	}

	h.mu.Lock()
	h.accepted = true
	h.token = response.Token
	h.mu.Unlock()

	h.client.logger.Info("remote auth handshake accepted")
	return nil
}

// Cancel rejects the handshake. The remote device sees a denial.
func (h *Handshake) Cancel(ctx context.Context) error {
	_, err := h.client.rest.Post(ctx, "/users/@me/remote-auth/cancel",
		h.client.currentToken(), handshakeRequest{HandshakeToken: h.handshakeToken})
	if err != nil {
		return fmt.Errorf("client: cancelling remote auth handshake: %w", err)
	}
	h.client.logger.Info("remote auth handshake cancelled")
	return nil
}

// Token returns the token minted by an accepted handshake, or ""
// before acceptance.
func (h *Handshake) Token() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.token
}

type createTokenResponse struct {
	Fingerprint string `json:"fingerprint"`
}

type pollResponse struct {
	Ticket string `json:"ticket"`
}

type exchangeRequest struct {
	Ticket string `json:"ticket"`
}

type exchangeResponse struct {
	Token string `json:"token"`
}

// CreateToken runs the requester side of the device handshake: this
// process plays the unauthenticated device waiting to be vouched for.
// A fresh x25519 key identifies the device; its fingerprint — the
// blake3 digest of the public key, base64url without padding — is
// registered with the service, then polled until some established
// session approves it, and the resulting ticket is exchanged for a
// token. The poll is bounded only by ctx.
func (c *Client) CreateToken(ctx context.Context) (string, error) {
	seed := make([]byte, curve25519.ScalarSize)
	if _, err := rand.Read(seed); err != nil {
		return "", fmt.Errorf("client: generating device key: %w", err)
	}
	publicKey, err := curve25519.X25519(seed, curve25519.Basepoint)
	secret.Zero(seed)
	if err != nil {
		return "", fmt.Errorf("client: deriving device public key: %w", err)
	}

	digest := blake3.Sum256(publicKey)
	fingerprint := base64.RawURLEncoding.EncodeToString(digest[:])

	body, err := c.rest.Post(ctx, "/users/@me/remote-auth/create", nil, remoteAuthRequest{Fingerprint: fingerprint})
	if err != nil {
		return "", fmt.Errorf("client: registering device handshake: %w", err)
	}
	var created createTokenResponse
	if err := json.Unmarshal(body, &created); err != nil {
		return "", fmt.Errorf("client: parsing handshake registration response: %w", err)
	}

	c.logger.Info("waiting for remote approval", "fingerprint", fingerprint)

	var ticket string
	for ticket == "" {
		body, err := c.rest.Post(ctx, "/users/@me/remote-auth/poll", nil, remoteAuthRequest{Fingerprint: fingerprint})
		if err != nil {
			return "", fmt.Errorf("client: polling device handshake: %w", err)
		}
		var poll pollResponse
		if err := json.Unmarshal(body, &poll); err != nil {
			return "", fmt.Errorf("client: parsing handshake poll response: %w", err)
		}
		ticket = poll.Ticket
		if ticket != "" {
			break
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("client: waiting for remote approval: %w", ctx.Err())
		case <-c.clock.After(pollInterval):
		}
	}

	body, err = c.rest.Post(ctx, "/users/@me/remote-auth/exchange", nil, exchangeRequest{Ticket: ticket})
	if err != nil {
		return "", fmt.Errorf("client: exchanging handshake ticket: %w", err)
	}
	var exchanged exchangeResponse
	if err := json.Unmarshal(body, &exchanged); err != nil {
		return "", fmt.Errorf("client: parsing ticket exchange response: %w", err)
	}
	if exchanged.Token == "" {
		return "", ErrUnknownLogin
	}
	return exchanged.Token, nil
}
