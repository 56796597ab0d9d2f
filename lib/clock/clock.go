// Copyright 2026 The Concord Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts the time operations the client core depends
// on, so that periodic maintenance (used-code resets, message sweeps)
// can be driven deterministically in tests. Production code injects
// Real(); tests inject Fake() and call Advance.
package clock

import "time"

// Clock is the subset of the time package the client core uses.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives once duration d has
	// elapsed. A non-positive d delivers immediately.
	After(d time.Duration) <-chan time.Time

	// NewTicker returns a Ticker delivering on C every d. Panics if
	// d <= 0, matching time.NewTicker.
	NewTicker(d time.Duration) *Ticker
}

// Ticker delivers periodic ticks on C. The channel has capacity 1;
// ticks are dropped, not queued, when the consumer falls behind.
// Stop may be called any number of times.
type Ticker struct {
	C <-chan time.Time

	stopFunc func()
}

// Stop turns the ticker off. No ticks are delivered after Stop
// returns. C is not closed. Calling Stop repeatedly is harmless.
func (t *Ticker) Stop() { t.stopFunc() }
