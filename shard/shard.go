// Copyright 2026 The Concord Authors
// SPDX-License-Identifier: Apache-2.0

// Package shard normalizes raw shard configuration into a canonical
// plan: a deduplicated, ordered set of non-negative shard indices plus
// a total count. Resolution happens exactly once, before the first
// connection attempt; a Plan is immutable afterward.
package shard

import "fmt"

// Plan is a resolved shard assignment. Indices preserves the order of
// first occurrence from the raw input.
type Plan struct {
	Indices []int
	Count   int
}

// ConfigError reports unusable shard configuration. It is fatal at
// construction: there is no connection to retry against.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "shard: " + e.Reason
}

// Resolve builds a Plan from the raw inputs.
//
// An explicit list wins; otherwise an environment-provided override
// (handed down by a sharding supervisor) is used; otherwise the dense
// range [0, count) is synthesized. A zero count defaults to the
// length of whichever list was chosen. The chosen list is filtered to
// non-negative indices and deduplicated, preserving first occurrence.
//
// Returns *ConfigError when the count is not positive or when a list
// was supplied but nothing survives normalization.
func Resolve(shards []int, count int, override []int) (Plan, error) {
	raw := shards
	if len(raw) == 0 {
		raw = override
	}

	if count == 0 && len(raw) > 0 {
		count = len(raw)
	}
	if count < 1 {
		return Plan{}, &ConfigError{Reason: fmt.Sprintf("shard count must be a positive integer, got %d", count)}
	}

	if len(raw) == 0 {
		raw = make([]int, count)
		for index := range raw {
			raw[index] = index
		}
	}

	seen := make(map[int]bool, len(raw))
	indices := make([]int, 0, len(raw))
	for _, index := range raw {
		if index < 0 || seen[index] {
			continue
		}
		seen[index] = true
		indices = append(indices, index)
	}

	if len(indices) == 0 {
		return Plan{}, &ConfigError{Reason: "shard list is empty after normalization"}
	}

	return Plan{Indices: indices, Count: count}, nil
}
