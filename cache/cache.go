// Copyright 2026 The Concord Authors
// SPDX-License-Identifier: Apache-2.0

package cache

import "sync"

// Cache is an insertion-ordered map from unique identifier to entity.
// Order is irrelevant to lookups but preserved so that sweeps
// traverse deterministically. Safe for concurrent use.
type Cache[K comparable, V any] struct {
	mu      sync.RWMutex
	order   []K
	entries map[K]V
}

// New creates an empty cache.
func New[K comparable, V any]() *Cache[K, V] {
	return &Cache[K, V]{entries: make(map[K]V)}
}

// Get returns the entity for key, if present.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, ok := c.entries[key]
	return value, ok
}

// Set stores value under key. An existing key keeps its original
// position in the traversal order.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; !exists {
		c.order = append(c.order, key)
	}
	c.entries[key] = value
}

// Delete removes key, reporting whether it was present.
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; !exists {
		return false
	}
	delete(c.entries, key)
	c.removeFromOrder(key)
	return true
}

// Len returns the number of entries.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear removes every entry unconditionally and returns the removed
// count.
func (c *Cache[K, V]) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := len(c.entries)
	c.entries = make(map[K]V)
	c.order = nil
	return removed
}

// Sweep removes entries matching the predicate, visiting them in
// insertion order, and returns the removed count. A predicate that
// matches nothing is a no-op.
func (c *Cache[K, V]) Sweep(predicate func(key K, value V) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	kept := c.order[:0]
	for _, key := range c.order {
		if predicate(key, c.entries[key]) {
			delete(c.entries, key)
			removed++
			continue
		}
		kept = append(kept, key)
	}
	c.order = kept
	return removed
}

// Keys returns the keys in insertion order.
func (c *Cache[K, V]) Keys() []K {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]K, len(c.order))
	copy(keys, c.order)
	return keys
}

// removeFromOrder drops key from the traversal order. Caller holds
// the write lock.
func (c *Cache[K, V]) removeFromOrder(key K) {
	for index, candidate := range c.order {
		if candidate == key {
			c.order = append(c.order[:index], c.order[index+1:]...)
			return
		}
	}
}
