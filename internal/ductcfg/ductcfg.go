// Package ductcfg loads named QoS/reconnect profiles from a TOML file
// (SPEC_FULL.md §3), the same config-file shape billm-baaaht's
// internal/config package loads its own settings from, but via
// github.com/BurntSushi/toml rather than YAML since duct's profiles are
// flat and small.
package ductcfg

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/cuihairu/duct/core"
)

// QosProfile is the TOML-decodable form of core.QosOptions. Durations are
// strings ("500ms", "30s") per BurntSushi/toml's lack of native duration
// support, parsed with time.ParseDuration during Resolve.
type QosProfile struct {
	Enabled      bool   `toml:"enabled"`
	SndHwmBytes  int    `toml:"snd_hwm_bytes"`
	RcvHwmBytes  int    `toml:"rcv_hwm_bytes"`
	Backpressure string `toml:"backpressure"` // block|drop-new|drop-old|fail-fast
	TTL          string `toml:"ttl"`
	Linger       string `toml:"linger"`
}

// ReconnectProfile is the TOML-decodable form of core.ReconnectPolicy.
type ReconnectProfile struct {
	Enabled           bool    `toml:"enabled"`
	InitialDelay      string  `toml:"initial_delay"`
	MaxDelay          string  `toml:"max_delay"`
	BackoffMultiplier float64 `toml:"backoff_multiplier"`
	MaxAttempts       int     `toml:"max_attempts"`
	HeartbeatInterval string  `toml:"heartbeat_interval"`
}

// Config is the top-level TOML document: a set of named profiles a caller
// selects by name at Dial time instead of constructing options by hand.
type Config struct {
	Qos       map[string]QosProfile       `toml:"qos"`
	Reconnect map[string]ReconnectProfile `toml:"reconnect"`
}

// Load parses a TOML profile file at path.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("ductcfg: decode %s: %w", path, err)
	}
	return &cfg, nil
}

// ResolveQos looks up a named QoS profile and converts it to core.QosOptions.
func (c *Config) ResolveQos(name string) (core.QosOptions, error) {
	p, ok := c.Qos[name]
	if !ok {
		return core.QosOptions{}, fmt.Errorf("ductcfg: unknown qos profile %q", name)
	}
	policy, err := parseBackpressure(p.Backpressure)
	if err != nil {
		return core.QosOptions{}, err
	}
	ttl, err := parseOptionalDuration(p.TTL)
	if err != nil {
		return core.QosOptions{}, fmt.Errorf("ductcfg: qos %q ttl: %w", name, err)
	}
	linger, err := parseOptionalDuration(p.Linger)
	if err != nil {
		return core.QosOptions{}, fmt.Errorf("ductcfg: qos %q linger: %w", name, err)
	}
	return core.QosOptions{
		Enabled:      p.Enabled,
		SndHwmBytes:  p.SndHwmBytes,
		RcvHwmBytes:  p.RcvHwmBytes,
		Backpressure: policy,
		TTL:          ttl,
		Linger:       linger,
	}, nil
}

// ResolveReconnect looks up a named reconnect profile and converts it to
// core.ReconnectPolicy.
func (c *Config) ResolveReconnect(name string) (core.ReconnectPolicy, error) {
	p, ok := c.Reconnect[name]
	if !ok {
		return core.ReconnectPolicy{}, fmt.Errorf("ductcfg: unknown reconnect profile %q", name)
	}
	initial, err := parseOptionalDuration(p.InitialDelay)
	if err != nil {
		return core.ReconnectPolicy{}, fmt.Errorf("ductcfg: reconnect %q initial_delay: %w", name, err)
	}
	maxDelay, err := parseOptionalDuration(p.MaxDelay)
	if err != nil {
		return core.ReconnectPolicy{}, fmt.Errorf("ductcfg: reconnect %q max_delay: %w", name, err)
	}
	heartbeat, err := parseOptionalDuration(p.HeartbeatInterval)
	if err != nil {
		return core.ReconnectPolicy{}, fmt.Errorf("ductcfg: reconnect %q heartbeat_interval: %w", name, err)
	}
	return core.ReconnectPolicy{
		Enabled:           p.Enabled,
		InitialDelay:      initial,
		MaxDelay:          maxDelay,
		BackoffMultiplier: p.BackoffMultiplier,
		MaxAttempts:       p.MaxAttempts,
		HeartbeatInterval: heartbeat,
	}, nil
}

func parseOptionalDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

func parseBackpressure(s string) (core.BackpressurePolicy, error) {
	switch s {
	case "", "block":
		return core.Block, nil
	case "drop-new":
		return core.DropNew, nil
	case "drop-old":
		return core.DropOld, nil
	case "fail-fast":
		return core.FailFast, nil
	default:
		return 0, fmt.Errorf("ductcfg: unknown backpressure policy %q", s)
	}
}
