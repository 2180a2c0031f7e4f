// File: control/config.go
// Package control holds the immutable node configuration.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package control

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all configurable parameters of a sequencer node. All
// fields are immutable after construction.
type Config struct {
	MaxConcurrentSessions int
	SessionTimeout        time.Duration
	ServiceCount          int
	IngressCapacity       int
	AckCapacity           int
	LogCapacity           int
	EgressCapacity        int
	MaxIdleBackoff        time.Duration
	ToggleFile            string
}

// DefaultConfig returns a baseline configuration for a sequencer node.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentSessions: 64,
		SessionTimeout:        10 * time.Second,
		ServiceCount:          1,
		IngressCapacity:       1024,
		AckCapacity:           64,
		LogCapacity:           4096,
		EgressCapacity:        16,
		MaxIdleBackoff:        time.Millisecond,
		ToggleFile:            "",
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if c.MaxConcurrentSessions <= 0 {
		return fmt.Errorf("max_concurrent_sessions must be positive: %d", c.MaxConcurrentSessions)
	}
	if c.SessionTimeout <= 0 {
		return fmt.Errorf("session_timeout must be positive: %v", c.SessionTimeout)
	}
	if c.ServiceCount < 0 {
		return fmt.Errorf("service_count must not be negative: %d", c.ServiceCount)
	}
	if c.IngressCapacity <= 0 || c.AckCapacity <= 0 || c.LogCapacity <= 0 {
		return fmt.Errorf("buffer capacities must be positive")
	}
	return nil
}

// fileConfig mirrors the TOML schema; absent keys keep defaults.
type fileConfig struct {
	MaxConcurrentSessions int    `toml:"max_concurrent_sessions"`
	SessionTimeout        string `toml:"session_timeout"`
	SessionTimeoutMS      int64  `toml:"session_timeout_ms"`
	ServiceCount          int    `toml:"service_count"`
	IngressCapacity       int    `toml:"ingress_capacity"`
	AckCapacity           int    `toml:"ack_capacity"`
	LogCapacity           int    `toml:"log_capacity"`
	EgressCapacity        int    `toml:"egress_capacity"`
	MaxIdleBackoff        string `toml:"max_idle_backoff"`
	ToggleFile            string `toml:"toggle_file"`
}

// LoadConfig reads a TOML config file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load node config: %w", err)
	}

	if meta.IsDefined("max_concurrent_sessions") {
		cfg.MaxConcurrentSessions = raw.MaxConcurrentSessions
	}
	if meta.IsDefined("session_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.SessionTimeout))
		if err != nil {
			return Config{}, fmt.Errorf("parse session_timeout: %w", err)
		}
		cfg.SessionTimeout = d
	}
	if meta.IsDefined("session_timeout_ms") {
		cfg.SessionTimeout = time.Duration(raw.SessionTimeoutMS) * time.Millisecond
	}
	if meta.IsDefined("service_count") {
		cfg.ServiceCount = raw.ServiceCount
	}
	if meta.IsDefined("ingress_capacity") {
		cfg.IngressCapacity = raw.IngressCapacity
	}
	if meta.IsDefined("ack_capacity") {
		cfg.AckCapacity = raw.AckCapacity
	}
	if meta.IsDefined("log_capacity") {
		cfg.LogCapacity = raw.LogCapacity
	}
	if meta.IsDefined("egress_capacity") {
		cfg.EgressCapacity = raw.EgressCapacity
	}
	if meta.IsDefined("max_idle_backoff") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.MaxIdleBackoff))
		if err != nil {
			return Config{}, fmt.Errorf("parse max_idle_backoff: %w", err)
		}
		cfg.MaxIdleBackoff = d
	}
	if meta.IsDefined("toggle_file") {
		cfg.ToggleFile = strings.TrimSpace(raw.ToggleFile)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
