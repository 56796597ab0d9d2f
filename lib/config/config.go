// Copyright 2026 The Concord Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads bootstrap configuration for Concord tools.
//
// Configuration comes from a single YAML file plus a one-shot read of
// environment overrides (token, shard assignment). The client core
// never reads the environment itself — everything it needs arrives
// through its Options struct, filled here by the bootstrap.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/concord-client/concord/rest"
)

// DefaultAPIBaseURL is the service's REST API root.
const DefaultAPIBaseURL = rest.DefaultBaseURL

// Config is the file-backed configuration for a Concord client.
// Durations are strings in Go syntax ("10m", "1h30m"), parsed by the
// accessor methods.
type Config struct {
	// APIBaseURL is the REST API root. Defaults to DefaultAPIBaseURL.
	APIBaseURL string `yaml:"api_base_url"`

	// Shards is the raw shard assignment: a single index ("3") or a
	// comma-separated list ("0,1,2"). Empty means unassigned.
	Shards string `yaml:"shards"`

	// ShardCount is the total number of shards. Defaults to 1.
	ShardCount int `yaml:"shard_count"`

	// MessageLifetime is how old a cached message may grow before the
	// periodic sweep removes it. Empty or "0" disables sweeping.
	MessageLifetime string `yaml:"message_lifetime"`

	// SweepInterval is how often the message sweep runs. Ignored when
	// MessageLifetime is unset.
	SweepInterval string `yaml:"sweep_interval"`
}

// EnvOverrides holds the environment-provided values read once at
// bootstrap. A sharding supervisor hands shard assignments to worker
// processes this way; the token override supports headless logins.
type EnvOverrides struct {
	Token      string `env:"CONCORD_TOKEN"`
	Shards     string `env:"CONCORD_SHARDS"`
	ShardCount int    `env:"CONCORD_SHARD_COUNT"`
}

// Default returns the baseline configuration used before a file is
// applied.
func Default() *Config {
	return &Config{
		APIBaseURL: DefaultAPIBaseURL,
		ShardCount: 1,
	}
}

// LoadFile reads a YAML configuration file over the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = DefaultAPIBaseURL
	}
	return cfg, nil
}

// ReadEnv performs the single environment read of the process.
func ReadEnv() (EnvOverrides, error) {
	var overrides EnvOverrides
	if err := env.Parse(&overrides); err != nil {
		return EnvOverrides{}, fmt.Errorf("config: parsing environment: %w", err)
	}
	return overrides, nil
}

// ParseShardList turns a raw shard string into a list of indices. A
// bare integer becomes a single-element list. Entries that do not
// parse as integers are dropped; range and sign validation is the
// shard resolver's job. Returns nil for an empty or all-junk input.
func ParseShardList(raw string) []int {
	var indices []int
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		value, err := strconv.Atoi(field)
		if err != nil {
			continue
		}
		indices = append(indices, value)
	}
	return indices
}

// MessageLifetimeDuration parses the MessageLifetime field. An empty
// field is zero (sweeping disabled), not an error.
func (c *Config) MessageLifetimeDuration() (time.Duration, error) {
	return parseDuration("message_lifetime", c.MessageLifetime)
}

// SweepIntervalDuration parses the SweepInterval field. An empty
// field is zero.
func (c *Config) SweepIntervalDuration() (time.Duration, error) {
	return parseDuration("sweep_interval", c.SweepInterval)
}

func parseDuration(name, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", name, err)
	}
	return parsed, nil
}
