// Copyright 2026 The Concord Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides small helpers for tests that coordinate
// with goroutines: bounded channel receives and condition polling.
// Production code must not import this package.
package testutil

import (
	"time"
)

// failer is the subset of *testing.T these helpers need.
type failer interface {
	Helper()
	Fatalf(format string, args ...any)
}

// RequireReceive reads one value from ch within timeout, or fails the
// test. Encapsulates the timeout safety valve so tests do not hang on
// a missing send.
func RequireReceive[T any](t failer, ch <-chan T, timeout time.Duration, message string) T {
	t.Helper()
	select {
	case value, ok := <-ch:
		if !ok {
			t.Fatalf("channel closed without a value: %s", message)
		}
		return value
	case <-time.After(timeout):
		t.Fatalf("timed out after %v: %s", timeout, message)
	}
	panic("unreachable")
}

// Eventually polls condition every millisecond until it returns true
// or timeout elapses, failing the test on timeout. Use for assertions
// against state mutated by a background goroutine.
func Eventually(t failer, timeout time.Duration, message string, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met within %v: %s", timeout, message)
}
