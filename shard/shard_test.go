// Copyright 2026 The Concord Authors
// SPDX-License-Identifier: Apache-2.0

package shard

import (
	"errors"
	"reflect"
	"testing"
)

func TestResolveDenseRange(t *testing.T) {
	for _, count := range []int{1, 2, 5, 16} {
		plan, err := Resolve(nil, count, nil)
		if err != nil {
			t.Fatalf("Resolve(nil, %d, nil) failed: %v", count, err)
		}
		if plan.Count != count {
			t.Errorf("count = %d, want %d", plan.Count, count)
		}
		if len(plan.Indices) != count {
			t.Fatalf("len(indices) = %d, want %d", len(plan.Indices), count)
		}
		for index, value := range plan.Indices {
			if value != index {
				t.Errorf("indices[%d] = %d, want %d", index, value, index)
			}
		}
	}
}

func TestResolveDeduplicatesAndFilters(t *testing.T) {
	plan, err := Resolve([]int{3, 1, 3, -2, 0, 1}, 0, nil)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if want := []int{3, 1, 0}; !reflect.DeepEqual(plan.Indices, want) {
		t.Errorf("indices = %v, want %v", plan.Indices, want)
	}
	// Count defaults to the raw list length, before filtering.
	if plan.Count != 6 {
		t.Errorf("count = %d, want 6", plan.Count)
	}
}

func TestResolveExplicitListWinsOverOverride(t *testing.T) {
	plan, err := Resolve([]int{2}, 4, []int{0, 1})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if want := []int{2}; !reflect.DeepEqual(plan.Indices, want) {
		t.Errorf("indices = %v, want %v", plan.Indices, want)
	}
	if plan.Count != 4 {
		t.Errorf("count = %d, want 4", plan.Count)
	}
}

func TestResolveOverrideBeatsDefault(t *testing.T) {
	plan, err := Resolve(nil, 4, []int{1, 3})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if want := []int{1, 3}; !reflect.DeepEqual(plan.Indices, want) {
		t.Errorf("indices = %v, want %v", plan.Indices, want)
	}
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name     string
		shards   []int
		count    int
		override []int
	}{
		{"no inputs", nil, 0, nil},
		{"negative count", nil, -3, nil},
		{"list of negatives", []int{-1, -2}, 0, nil},
		{"override of negatives", nil, 0, []int{-1}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Resolve(test.shards, test.count, test.override)
			var configErr *ConfigError
			if !errors.As(err, &configErr) {
				t.Fatalf("expected *ConfigError, got %v", err)
			}
		})
	}
}
