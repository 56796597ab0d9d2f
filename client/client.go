// Copyright 2026 The Concord Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/concord-client/concord/cache"
	"github.com/concord-client/concord/gateway"
	"github.com/concord-client/concord/lib/clock"
	"github.com/concord-client/concord/lib/secret"
	"github.com/concord-client/concord/rest"
	"github.com/concord-client/concord/shard"
)

// codeResetInterval is how often the used-gift-code set is cleared
// wholesale. A coarse, time-boxed idempotency window — not a per-code
// expiry.
const codeResetInterval = time.Hour

// SweepDisabled is returned by SweepMessages when the lifetime is
// non-positive: sweeping is off, nothing was examined or removed.
const SweepDisabled = -1

// Options configures a Client. Gateway is required; everything else
// has a usable default. Environment-derived values (token, shard
// override) are read once by the bootstrap and passed here — the
// client never reads the environment.
type Options struct {
	// APIBaseURL overrides the REST API root. Empty means
	// rest.DefaultBaseURL.
	APIBaseURL string
	// HTTPClient is used for all REST requests. Nil means
	// http.DefaultClient.
	HTTPClient *http.Client
	// Gateway is the connection transport. Required.
	Gateway gateway.Conn
	// Logger is used for structured logging. Nil means slog.Default().
	Logger *slog.Logger
	// Clock drives the maintenance timers. Nil means clock.Real().
	Clock clock.Clock

	// Shards is the explicit shard assignment.
	Shards []int
	// ShardCount is the total shard count. Zero defaults to the
	// length of the chosen shard list, or to a single unsharded
	// session when no shard input is given at all.
	ShardCount int
	// ShardOverride is the environment-provided assignment, used when
	// Shards is empty.
	ShardOverride []int

	// MessageLifetime is how old a cached message may grow before the
	// periodic sweep removes it. Non-positive disables sweeping.
	MessageLifetime time.Duration
	// SweepInterval is how often the periodic sweep runs. Ignored
	// unless MessageLifetime is positive.
	SweepInterval time.Duration
}

// Client owns one session against the service: the token, the
// connection lifecycle, the named entity caches, and the periodic
// maintenance behind them. Exactly one session exists per Client; a
// destroyed Client is not reusable.
type Client struct {
	rest    *rest.Client
	gateway gateway.Conn
	caches  *cache.Registry
	plan    shard.Plan
	clock   clock.Clock
	logger  *slog.Logger

	messageLifetime time.Duration

	mu        sync.Mutex
	status    gateway.Status
	token     *secret.Buffer
	password  *secret.Buffer
	sessionID string
	readyAt   time.Time
	usedCodes map[string]bool

	codeTicker      *clock.Ticker
	sweepTicker     *clock.Ticker
	stopMaintenance chan struct{}
	destroyOnce     sync.Once
}

// New creates a Client. The shard plan is resolved here, exactly
// once — re-resolution after a connect attempt is unsupported.
func New(options Options) (*Client, error) {
	if options.Gateway == nil {
		return nil, fmt.Errorf("client: a gateway connection is required")
	}

	shardCount := options.ShardCount
	if shardCount == 0 && len(options.Shards) == 0 && len(options.ShardOverride) == 0 {
		// No shard configuration at all means a single unsharded
		// session. Any explicit input still goes through the resolver's
		// full validation.
		shardCount = 1
	}
	plan, err := shard.Resolve(options.Shards, shardCount, options.ShardOverride)
	if err != nil {
		return nil, err
	}

	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := options.Clock
	if clk == nil {
		clk = clock.Real()
	}

	baseURL := options.APIBaseURL
	if baseURL == "" {
		baseURL = rest.DefaultBaseURL
	}
	restClient, err := rest.New(rest.Config{
		BaseURL:    baseURL,
		HTTPClient: options.HTTPClient,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	c := &Client{
		rest:            restClient,
		gateway:         options.Gateway,
		caches:          cache.NewRegistry(),
		plan:            plan,
		clock:           clk,
		logger:          logger,
		messageLifetime: options.MessageLifetime,
		status:          gateway.StatusIdle,
		usedCodes:       make(map[string]bool),
		stopMaintenance: make(chan struct{}),
	}

	c.codeTicker = clk.NewTicker(codeResetInterval)
	if options.MessageLifetime > 0 && options.SweepInterval > 0 {
		c.sweepTicker = clk.NewTicker(options.SweepInterval)
	}
	go c.maintain()

	return c, nil
}

// maintain runs the periodic timers until Destroy. Both run
// independently of connection state.
func (c *Client) maintain() {
	var sweepTicks <-chan time.Time
	if c.sweepTicker != nil {
		sweepTicks = c.sweepTicker.C
	}

	for {
		select {
		case <-c.stopMaintenance:
			return
		case <-c.codeTicker.C:
			c.resetUsedCodes()
		case <-sweepTicks:
			removed := c.SweepMessages(c.messageLifetime)
			c.logger.Debug("swept message cache", "removed", removed)
		}
	}
}

// resetUsedCodes clears the redemption idempotency window.
func (c *Client) resetUsedCodes() {
	c.mu.Lock()
	count := len(c.usedCodes)
	c.usedCodes = make(map[string]bool)
	c.mu.Unlock()
	c.logger.Debug("reset used gift codes", "count", count)
}

// Destroy tears the session down: pending finalizers run (at most
// once each, failures logged), maintenance timers stop, the gateway
// is destroyed, and the token and any cached credential secret are
// released. Idempotent — safe to call any number of times, including
// after a failed login already forced teardown.
func (c *Client) Destroy() {
	c.destroyOnce.Do(func() {
		close(c.stopMaintenance)
		c.codeTicker.Stop()
		if c.sweepTicker != nil {
			c.sweepTicker.Stop()
		}

		ran := c.caches.RunFinalizers(c.logger)
		c.gateway.Destroy()

		c.mu.Lock()
		if c.token != nil {
			c.token.Close()
			c.token = nil
		}
		if c.password != nil {
			c.password.Close()
			c.password = nil
		}
		c.status = gateway.StatusDestroyed
		c.mu.Unlock()

		c.logger.Info("client destroyed", "finalizers_run", ran)
	})
}

// Logout invalidates the session server-side, then destroys the
// client. A network failure aborts before any local teardown — the
// caller must retry, or fall back to Destroy explicitly.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.rest.Post(ctx, "/auth/logout", c.currentToken(), logoutRequest{})
	if err != nil {
		return fmt.Errorf("client: logout: %w", err)
	}
	c.Destroy()
	return nil
}

// logoutRequest matches the service's logout body: both push
// providers explicitly null.
type logoutRequest struct {
	Provider     *string `json:"provider"`
	VoIPProvider *string `json:"voip_provider"`
}

// SweepMessages removes cached messages whose effective age — time
// since the later of creation and last edit — exceeds lifetime.
// Returns the removed count, or SweepDisabled for a non-positive
// lifetime.
func (c *Client) SweepMessages(lifetime time.Duration) int {
	if lifetime <= 0 {
		return SweepDisabled
	}
	cutoff := c.clock.Now().Add(-lifetime)
	return c.caches.Messages.Sweep(func(_ string, message *cache.Message) bool {
		return message.LastActive().Before(cutoff)
	})
}

// Me fetches the authenticated account's profile and caches it.
func (c *Client) Me(ctx context.Context) (*cache.User, error) {
	body, err := c.rest.Get(ctx, "/users/@me", c.currentToken(), nil)
	if err != nil {
		return nil, fmt.Errorf("client: fetching own profile: %w", err)
	}
	var user cache.User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("client: parsing profile response: %w", err)
	}
	c.caches.Users.Set(user.ID, &user)
	return &user, nil
}

// Status reports the session lifecycle state. While the session is
// ready the transport is authoritative, so a link drop after the
// handshake shows up as StatusDisconnected here; Destroyed remains
// terminal regardless of what the transport reports.
func (c *Client) Status() gateway.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == gateway.StatusReady {
		return c.gateway.Status()
	}
	return c.status
}

// SessionID returns the server-assigned session identifier, or ""
// before the session is ready.
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// ReadyAt returns when the session last became ready, or the zero
// time.
func (c *Client) ReadyAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readyAt
}

// Token returns a heap copy of the session token, or "" when no
// session is established. Intended for bootstrap tooling that saves a
// session file; prefer keeping the token inside the client.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == nil {
		return ""
	}
	return c.token.String()
}

// Plan returns the resolved shard plan.
func (c *Client) Plan() shard.Plan {
	return c.plan
}

// Caches returns the registry of named entity caches.
func (c *Client) Caches() *cache.Registry {
	return c.caches
}

// currentToken returns the live token buffer, or nil when logged out.
func (c *Client) currentToken() *secret.Buffer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}
