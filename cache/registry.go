// Copyright 2026 The Concord Authors
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// User is a cached account record. Richer profile modeling lives
// outside this module; the cache keeps what the session core needs.
type User struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
	Bot           bool   `json:"bot"`
}

// Guild is a cached guild record.
type Guild struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Channel is a cached channel record.
type Channel struct {
	ID      string `json:"id"`
	GuildID string `json:"guild_id"`
	Name    string `json:"name"`
	Type    int    `json:"type"`
}

// Relationship is a friend/block entry for the account.
type Relationship struct {
	UserID string `json:"user_id"`
	Type   int    `json:"type"`
}

// SessionInfo describes another active session of the same account,
// as reported by the server.
type SessionInfo struct {
	SessionID  string `json:"session_id"`
	ClientInfo string `json:"client_info"`
}

// VoiceState is a user's voice presence in a guild.
type VoiceState struct {
	UserID    string `json:"user_id"`
	GuildID   string `json:"guild_id"`
	ChannelID string `json:"channel_id"`
}

// Message is a cached message, kept only as far as sweeping needs:
// identity plus creation and edit times.
type Message struct {
	ID        string    `json:"id"`
	ChannelID string    `json:"channel_id"`
	CreatedAt time.Time `json:"created_at"`
	EditedAt  time.Time `json:"edited_at"`
}

// LastActive returns the later of the message's creation and edit
// times, the reference point for age-based sweeping.
func (m *Message) LastActive() time.Time {
	if m.EditedAt.After(m.CreatedAt) {
		return m.EditedAt
	}
	return m.CreatedAt
}

// Registry owns the named caches behind one client session and the
// finalizer list for cache-backed resources. Exactly one Registry
// exists per client; the orchestrator reads through it for bulk
// clears during identity switches and teardown.
type Registry struct {
	Users         *Cache[string, *User]
	Guilds        *Cache[string, *Guild]
	Channels      *Cache[string, *Channel]
	Relationships *Cache[string, *Relationship]
	Sessions      *Cache[string, *SessionInfo]
	VoiceStates   *Cache[string, *VoiceState]
	Messages      *Cache[string, *Message]

	mu         sync.Mutex
	finalizers []*finalizer
}

// finalizer is one pending cleanup. Invoked at most once; a failure
// is reported, never retried.
type finalizer struct {
	description string
	cleanup     func() error
}

// NewRegistry creates a registry with empty caches.
func NewRegistry() *Registry {
	return &Registry{
		Users:         New[string, *User](),
		Guilds:        New[string, *Guild](),
		Channels:      New[string, *Channel](),
		Relationships: New[string, *Relationship](),
		Sessions:      New[string, *SessionInfo](),
		VoiceStates:   New[string, *VoiceState](),
		Messages:      New[string, *Message](),
	}
}

// ClearAll empties every named cache and returns the total removed
// count. Used by identity switches, where stale entries would leak
// one account's data into the next session.
func (r *Registry) ClearAll() int {
	removed := r.Users.Clear()
	removed += r.Guilds.Clear()
	removed += r.Channels.Clear()
	removed += r.Relationships.Clear()
	removed += r.Sessions.Clear()
	removed += r.VoiceStates.Clear()
	removed += r.Messages.Clear()
	return removed
}

// OnRelease registers a cleanup to run when the registry's owner is
// torn down. The owner of a cache-backed resource calls this when the
// resource's last reference is dropped; the cleanup must tolerate
// caches that have already been cleared.
func (r *Registry) OnRelease(description string, cleanup func() error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finalizers = append(r.finalizers, &finalizer{description: description, cleanup: cleanup})
}

// RunFinalizers invokes every pending cleanup exactly once, in
// registration order, emptying the pending set. Failures (returned
// errors or panics) are logged and never propagated — teardown must
// not crash the host process. Returns the number of cleanups that
// ran.
func (r *Registry) RunFinalizers(logger *slog.Logger) int {
	r.mu.Lock()
	pending := r.finalizers
	r.finalizers = nil
	r.mu.Unlock()

	for _, entry := range pending {
		if err := runCleanup(entry.cleanup); err != nil {
			logger.Warn("finalizer cleanup failed",
				"description", entry.description,
				"error", err,
			)
		}
	}
	return len(pending)
}

// runCleanup invokes one cleanup, converting a panic into an error.
func runCleanup(cleanup func() error) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("cleanup panicked: %v", recovered)
		}
	}()
	return cleanup()
}
