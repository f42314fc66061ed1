package authsession

import (
	"errors"
	"fmt"
	"time"
)

// Config holds manager settings. Build clones it, so later changes to the
// caller's copy have no effect.
type Config struct {
	Session       SessionConfig      `yaml:"session"`
	Concurrency   ConcurrencyConfig  `yaml:"concurrency"`
	Notifications NotificationConfig `yaml:"notifications"`
	Identity      IdentityCallConfig `yaml:"identity"`
	Metrics       MetricsConfig      `yaml:"metrics"`
}

// SessionConfig controls session lifetime handling.
type SessionConfig struct {
	// ExpireOnDeadline arms a timer that drops the session once ExpiresAt
	// passes. Without it an expired session is only discarded on the next
	// load.
	ExpireOnDeadline bool `yaml:"expire_on_deadline"`
}

// ConcurrencyConfig selects the overlap policy, globally and per operation.
type ConcurrencyConfig struct {
	Default   ConcurrencyPolicy               `yaml:"default"`
	Overrides map[Operation]ConcurrencyPolicy `yaml:"overrides"`
}

// NotificationConfig controls delivery to the NotificationSink.
type NotificationConfig struct {
	// Async delivers through a buffered dispatcher instead of calling the
	// sink inline.
	Async      bool `yaml:"async"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
}

// IdentityCallConfig bounds identity backend calls.
type IdentityCallConfig struct {
	// Timeout caps every call. Zero means calls are bounded only by the
	// caller's context.
	Timeout time.Duration `yaml:"timeout"`
}

// MetricsConfig toggles in-process metrics.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms"`
}

// DefaultConfig returns the settings used when none are supplied.
func DefaultConfig() Config {
	return Config{
		Session: SessionConfig{
			ExpireOnDeadline: true,
		},
		Concurrency: ConcurrencyConfig{
			Default: PolicyLastWriteWins,
		},
		Notifications: NotificationConfig{
			Async:      true,
			BufferSize: 64,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if cfg.Concurrency.Overrides != nil {
		out.Concurrency.Overrides = make(map[Operation]ConcurrencyPolicy, len(cfg.Concurrency.Overrides))
		for op, p := range cfg.Concurrency.Overrides {
			out.Concurrency.Overrides[op] = p
		}
	}
	return out
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Concurrency.Default > PolicyQueue {
		errs = append(errs, fmt.Errorf("concurrency.default: unknown policy %d", uint8(c.Concurrency.Default)))
	}
	for op, p := range c.Concurrency.Overrides {
		if !op.Valid() {
			errs = append(errs, fmt.Errorf("concurrency.overrides: unknown operation %q", op))
		}
		if p > PolicyQueue {
			errs = append(errs, fmt.Errorf("concurrency.overrides[%s]: unknown policy %d", op, uint8(p)))
		}
	}
	if c.Notifications.Async && c.Notifications.BufferSize <= 0 {
		errs = append(errs, errors.New("notifications.buffer_size must be > 0 when async"))
	}
	if c.Identity.Timeout < 0 {
		errs = append(errs, errors.New("identity.timeout must be >= 0"))
	}
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		errs = append(errs, errors.New("metrics.enable_latency_histograms requires metrics.enabled"))
	}

	return errors.Join(errs...)
}

// policyFor resolves the policy for op.
func (c *Config) policyFor(op Operation) ConcurrencyPolicy {
	if p, ok := c.Concurrency.Overrides[op]; ok {
		return p
	}
	return c.Concurrency.Default
}
