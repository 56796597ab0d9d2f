// Copyright 2026 The Concord Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/concord-client/concord/cache"
	"github.com/concord-client/concord/gateway"
	"github.com/concord-client/concord/lib/clock"
	"github.com/concord-client/concord/lib/testutil"
	"github.com/concord-client/concord/shard"
)

// recordedRequest captures one API call seen by the fake server.
type recordedRequest struct {
	Method        string
	Path          string
	Body          string
	Authorization string
}

// fakeAPI is an httptest-backed stand-in for the REST API. Handlers
// are registered per path; every request is recorded for assertions.
type fakeAPI struct {
	mu       sync.Mutex
	requests []recordedRequest
	handlers map[string]http.HandlerFunc
	server   *httptest.Server
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	api := &fakeAPI{handlers: make(map[string]http.HandlerFunc)}
	api.server = httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		body, _ := io.ReadAll(request.Body)
		api.mu.Lock()
		api.requests = append(api.requests, recordedRequest{
			Method:        request.Method,
			Path:          request.URL.Path,
			Body:          string(body),
			Authorization: request.Header.Get("Authorization"),
		})
		handler := api.handlers[request.URL.Path]
		api.mu.Unlock()

		if handler == nil {
			http.Error(writer, `{"code":0,"message":"no handler"}`, http.StatusNotFound)
			return
		}
		handler(writer, request)
	}))
	t.Cleanup(api.server.Close)
	return api
}

// respond registers a fixed JSON response for a path.
func (a *fakeAPI) respond(path string, status int, body string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.handlers[path] = func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(status)
		io.WriteString(writer, body)
	}
}

// handle registers an arbitrary handler for a path.
func (a *fakeAPI) handle(path string, handler http.HandlerFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.handlers[path] = handler
}

// recorded returns a snapshot of all requests seen so far.
func (a *fakeAPI) recorded() []recordedRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	snapshot := make([]recordedRequest, len(a.requests))
	copy(snapshot, a.requests)
	return snapshot
}

// pathRequests returns the recorded requests for one path.
func (a *fakeAPI) pathRequests(path string) []recordedRequest {
	var matched []recordedRequest
	for _, request := range a.recorded() {
		if request.Path == path {
			matched = append(matched, request)
		}
	}
	return matched
}

// testEnv bundles the pieces most client tests need.
type testEnv struct {
	api    *fakeAPI
	conn   *gateway.MemoryConn
	clock  *clock.FakeClock
	client *Client
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	api := newFakeAPI(t)
	conn := gateway.NewMemoryConn()
	fakeClock := clock.Fake(time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC))

	c, err := New(Options{
		APIBaseURL: api.server.URL,
		Gateway:    conn,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Clock:      fakeClock,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Destroy)

	return &testEnv{api: api, conn: conn, clock: fakeClock, client: c}
}

func TestNewRequiresGateway(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatal("expected an error without a gateway connection")
	}
}

func TestNewDefaultsToSingleShard(t *testing.T) {
	// No shard configuration at all must still construct: a single
	// unsharded session.
	env := newTestEnv(t)
	plan := env.client.Plan()
	if len(plan.Indices) != 1 || plan.Indices[0] != 0 {
		t.Fatalf("plan indices = %v, want [0]", plan.Indices)
	}
	if plan.Count != 1 {
		t.Fatalf("plan count = %d, want 1", plan.Count)
	}
}

func TestNewRejectsExplicitZeroShardInput(t *testing.T) {
	// The single-shard default applies only when every shard field is
	// unset; explicit input still goes through full validation.
	api := newFakeAPI(t)
	_, err := New(Options{
		APIBaseURL: api.server.URL,
		Gateway:    gateway.NewMemoryConn(),
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Clock:      clock.Fake(time.Now()),
		Shards:     []int{-1},
	})
	var configErr *shard.ConfigError
	if !errors.As(err, &configErr) {
		t.Fatalf("New = %v, want *shard.ConfigError", err)
	}
}

func TestNewResolvesShardPlanOnce(t *testing.T) {
	api := newFakeAPI(t)
	c, err := New(Options{
		APIBaseURL: api.server.URL,
		Gateway:    gateway.NewMemoryConn(),
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Clock:      clock.Fake(time.Now()),
		Shards:     []int{2, 0, 2, -1},
		ShardCount: 4,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Destroy()

	plan := c.Plan()
	if len(plan.Indices) != 2 || plan.Indices[0] != 2 || plan.Indices[1] != 0 {
		t.Fatalf("plan indices = %v, want [2 0]", plan.Indices)
	}
	if plan.Count != 4 {
		t.Fatalf("plan count = %d, want 4", plan.Count)
	}
}

func TestDestroyIdempotentAndRunsFinalizersOnce(t *testing.T) {
	env := newTestEnv(t)

	finalized := 0
	env.client.Caches().OnRelease("test resource", func() error {
		finalized++
		return nil
	})

	env.client.Destroy()
	env.client.Destroy()
	env.client.Destroy()

	if finalized != 1 {
		t.Fatalf("finalizer ran %d times, want 1", finalized)
	}
	if got := env.client.Status(); got != gateway.StatusDestroyed {
		t.Fatalf("status = %v, want destroyed", got)
	}
	if got := env.conn.Status(); got != gateway.StatusDestroyed {
		t.Fatalf("gateway status = %v, want destroyed", got)
	}
}

func TestDestroyReleasesToken(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.client.Login(context.Background(), "tok"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	env.client.Destroy()
	if got := env.client.Token(); got != "" {
		t.Fatalf("Token after Destroy = %q, want empty", got)
	}
}

func TestStatusReflectsTransportDrop(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.client.Login(context.Background(), "tok"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got := env.client.Status(); got != gateway.StatusReady {
		t.Fatalf("status after login = %v, want ready", got)
	}

	env.conn.Drop()
	if got := env.client.Status(); got != gateway.StatusDisconnected {
		t.Fatalf("status after transport drop = %v, want disconnected", got)
	}

	// Destroyed stays terminal regardless of the transport.
	env.client.Destroy()
	if got := env.client.Status(); got != gateway.StatusDestroyed {
		t.Fatalf("status after destroy = %v, want destroyed", got)
	}
}

func TestLogoutInvalidatesThenDestroys(t *testing.T) {
	env := newTestEnv(t)
	env.api.respond("/auth/logout", http.StatusNoContent, "")

	if _, err := env.client.Login(context.Background(), "session-token"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := env.client.Logout(context.Background()); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	requests := env.api.pathRequests("/auth/logout")
	if len(requests) != 1 {
		t.Fatalf("logout requests = %d, want 1", len(requests))
	}
	if requests[0].Authorization != "session-token" {
		t.Fatalf("logout Authorization = %q, want the bare token", requests[0].Authorization)
	}
	if requests[0].Body != `{"provider":null,"voip_provider":null}` {
		t.Fatalf("logout body = %s", requests[0].Body)
	}
	if got := env.client.Status(); got != gateway.StatusDestroyed {
		t.Fatalf("status after Logout = %v, want destroyed", got)
	}
}

func TestLogoutNetworkFailureAbortsTeardown(t *testing.T) {
	env := newTestEnv(t)
	env.api.respond("/auth/logout", http.StatusInternalServerError, `{"code":0,"message":"service unavailable"}`)

	if _, err := env.client.Login(context.Background(), "tok"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := env.client.Logout(context.Background()); err == nil {
		t.Fatal("expected Logout to fail")
	}

	if got := env.client.Status(); got != gateway.StatusReady {
		t.Fatalf("status after failed Logout = %v, want ready", got)
	}
	if got := env.client.Token(); got != "tok" {
		t.Fatalf("token after failed Logout = %q, want intact", got)
	}
}

func TestSweepMessages(t *testing.T) {
	env := newTestEnv(t)
	now := env.clock.Now()
	messages := env.client.Caches().Messages

	messages.Set("old", &cache.Message{ID: "old", CreatedAt: now.Add(-2 * time.Hour)})
	messages.Set("edited", &cache.Message{
		ID:        "edited",
		CreatedAt: now.Add(-2 * time.Hour),
		EditedAt:  now.Add(-time.Minute),
	})
	messages.Set("boundary", &cache.Message{ID: "boundary", CreatedAt: now.Add(-time.Hour)})
	messages.Set("fresh", &cache.Message{ID: "fresh", CreatedAt: now})

	if got := env.client.SweepMessages(0); got != SweepDisabled {
		t.Fatalf("SweepMessages(0) = %d, want SweepDisabled", got)
	}
	if got := messages.Len(); got != 4 {
		t.Fatalf("disabled sweep removed entries: %d left, want 4", got)
	}

	if got := env.client.SweepMessages(time.Hour); got != 1 {
		t.Fatalf("SweepMessages(1h) = %d, want 1", got)
	}
	if _, ok := messages.Get("old"); ok {
		t.Fatal("stale message survived the sweep")
	}
	for _, id := range []string{"edited", "boundary", "fresh"} {
		if _, ok := messages.Get(id); !ok {
			t.Fatalf("message %q was swept, want kept", id)
		}
	}
}

func TestUsedCodesResetHourly(t *testing.T) {
	env := newTestEnv(t)
	env.api.respond("/entitlements/gift-codes/abcdefgh12345678/redeem", http.StatusOK, `{}`)

	ctx := context.Background()
	if ok, err := env.client.RedeemCode(ctx, "abcdefgh12345678", "", false); err != nil || !ok {
		t.Fatalf("first redemption: ok=%v err=%v", ok, err)
	}
	if ok, err := env.client.RedeemCode(ctx, "abcdefgh12345678", "", false); err != nil || ok {
		t.Fatalf("repeat redemption: ok=%v err=%v, want skipped", ok, err)
	}
	if got := len(env.api.pathRequests("/entitlements/gift-codes/abcdefgh12345678/redeem")); got != 1 {
		t.Fatalf("redeem requests before reset = %d, want 1", got)
	}

	env.clock.Advance(time.Hour)
	testutil.Eventually(t, time.Second, "used-code set cleared", func() bool {
		env.client.mu.Lock()
		defer env.client.mu.Unlock()
		return len(env.client.usedCodes) == 0
	})

	if ok, err := env.client.RedeemCode(ctx, "abcdefgh12345678", "", false); err != nil || !ok {
		t.Fatalf("post-reset redemption: ok=%v err=%v", ok, err)
	}
	if got := len(env.api.pathRequests("/entitlements/gift-codes/abcdefgh12345678/redeem")); got != 2 {
		t.Fatalf("redeem requests after reset = %d, want 2", got)
	}
}

func TestPeriodicSweepTicks(t *testing.T) {
	api := newFakeAPI(t)
	fakeClock := clock.Fake(time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC))
	c, err := New(Options{
		APIBaseURL:      api.server.URL,
		Gateway:         gateway.NewMemoryConn(),
		Logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		Clock:           fakeClock,
		MessageLifetime: 10 * time.Minute,
		SweepInterval:   time.Minute,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Destroy()

	c.Caches().Messages.Set("stale", &cache.Message{
		ID:        "stale",
		CreatedAt: fakeClock.Now().Add(-time.Hour),
	})

	fakeClock.Advance(time.Minute)
	testutil.Eventually(t, time.Second, "stale message swept by the ticker", func() bool {
		return c.Caches().Messages.Len() == 0
	})
}

func TestMeCachesProfile(t *testing.T) {
	env := newTestEnv(t)
	env.api.respond("/users/@me", http.StatusOK, `{"id":"42","username":"halley","discriminator":"0001"}`)

	if _, err := env.client.Login(context.Background(), "tok"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	user, err := env.client.Me(context.Background())
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if user.Username != "halley" {
		t.Fatalf("username = %q, want halley", user.Username)
	}
	cached, ok := env.client.Caches().Users.Get("42")
	if !ok || cached.Username != "halley" {
		t.Fatalf("user not cached: %+v, %v", cached, ok)
	}

	requests := env.api.pathRequests("/users/@me")
	if len(requests) != 1 || requests[0].Method != http.MethodGet {
		t.Fatalf("unexpected /users/@me requests: %+v", requests)
	}
}

func TestTransportErrorUnwraps(t *testing.T) {
	cause := errors.New("socket closed")
	err := &TransportError{Err: cause}
	if !errors.Is(err, cause) {
		t.Fatal("TransportError should unwrap to its cause")
	}
}
