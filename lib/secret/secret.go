// Copyright 2026 The Concord Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret holds credential material (account tokens, passwords)
// in memory that the Go runtime cannot observe: an anonymous mmap
// region locked against swap and excluded from core dumps. Close zeros
// the region before unmapping it.
//
// The garbage collector never sees the region, so it cannot copy or
// relocate the secret. Heap copies still appear briefly at API
// boundaries that require a string (JSON bodies, HTTP headers); keep
// those windows short.
package secret

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// Buffer owns one secret value. It must not be copied after creation.
// All accessors panic after Close; Close itself is idempotent.
type Buffer struct {
	mu     sync.Mutex
	region []byte
	closed bool
}

// FromBytes copies source into a new locked buffer and zeros the
// caller's slice, so the only durable copy lives in the protected
// region. Returns an error for an empty source or if the kernel
// refuses the allocation.
func FromBytes(source []byte) (*Buffer, error) {
	if len(source) == 0 {
		return nil, fmt.Errorf("secret: empty source")
	}

	region, err := unix.Mmap(-1, 0, len(source), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("secret: mmap: %w", err)
	}
	if err := unix.Mlock(region); err != nil {
		unix.Munmap(region)
		return nil, fmt.Errorf("secret: mlock: %w", err)
	}
	// Best effort: MADV_DONTDUMP is not available on every kernel, and
	// the mlock above already provides the swap guarantee.
	_ = unix.Madvise(region, unix.MADV_DONTDUMP)

	copy(region, source)
	Zero(source)

	return &Buffer{region: region}, nil
}

// FromString copies value into a new locked buffer. The source string
// is immutable and stays on the heap until collected; FromBytes is
// preferable when the caller holds mutable bytes.
func FromString(value string) (*Buffer, error) {
	if value == "" {
		return nil, fmt.Errorf("secret: empty source")
	}
	region, err := FromBytes([]byte(value))
	if err != nil {
		return nil, err
	}
	return region, nil
}

// Bytes returns the secret. The slice aliases the locked region — do
// not retain it past the buffer's lifetime.
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		panic("secret: use of closed buffer")
	}
	return b.region
}

// String returns a heap copy of the secret for API boundaries that
// require a string argument.
func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		panic("secret: use of closed buffer")
	}
	return string(b.region)
}

// Len reports the secret's size in bytes.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0
	}
	return len(b.region)
}

// Close zeros, unlocks, and unmaps the region. Safe to call more than
// once; only the first call does work.
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	Zero(b.region)
	var firstErr error
	if err := unix.Munlock(b.region); err != nil {
		firstErr = fmt.Errorf("secret: munlock: %w", err)
	}
	if err := unix.Munmap(b.region); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("secret: munmap: %w", err)
	}
	b.region = nil
	return firstErr
}

// Zero overwrites data with zero bytes. Use on transient heap copies
// (request bodies, file contents) once the secret has been moved into
// a Buffer or written out.
func Zero(data []byte) {
	for index := range data {
		data[index] = 0
	}
}
