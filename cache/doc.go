// Copyright 2026 The Concord Authors
// SPDX-License-Identifier: Apache-2.0

// Package cache provides the in-memory object caches behind a client
// session.
//
// [Cache] is a generic insertion-ordered map with bulk [Cache.Clear]
// and predicate-driven [Cache.Sweep], both returning removed counts;
// the preserved order makes sweep traversal deterministic. [Registry]
// groups the named caches one session owns (users, guilds, channels,
// relationships, sessions, voice states, messages) and carries the
// finalizer list: cleanups registered via [Registry.OnRelease] run at
// most once during teardown, with failures logged rather than
// propagated.
package cache
