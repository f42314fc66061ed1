package authsession

import (
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "defaults valid",
			mutate:    func(*Config) {},
			wantValid: true,
		},
		{
			name: "reject override valid",
			mutate: func(c *Config) {
				c.Concurrency.Overrides = map[Operation]ConcurrencyPolicy{OpSignIn: PolicyReject}
			},
			wantValid: true,
		},
		{
			name: "unknown default policy",
			mutate: func(c *Config) {
				c.Concurrency.Default = ConcurrencyPolicy(9)
			},
			wantValid: false,
		},
		{
			name: "unknown override operation",
			mutate: func(c *Config) {
				c.Concurrency.Overrides = map[Operation]ConcurrencyPolicy{"refresh": PolicyQueue}
			},
			wantValid: false,
		},
		{
			name: "async without buffer",
			mutate: func(c *Config) {
				c.Notifications.BufferSize = 0
			},
			wantValid: false,
		},
		{
			name: "sync without buffer",
			mutate: func(c *Config) {
				c.Notifications.Async = false
				c.Notifications.BufferSize = 0
			},
			wantValid: true,
		},
		{
			name: "negative identity timeout",
			mutate: func(c *Config) {
				c.Identity.Timeout = -time.Second
			},
			wantValid: false,
		},
		{
			name: "histograms without metrics",
			mutate: func(c *Config) {
				c.Metrics.Enabled = false
			},
			wantValid: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tc.wantValid && err == nil {
				t.Fatal("expected invalid config, got nil")
			}
		})
	}
}

func TestConfigValidateReportsEveryProblem(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Identity.Timeout = -1
	cfg.Notifications.BufferSize = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "identity.timeout") || !strings.Contains(err.Error(), "buffer_size") {
		t.Fatalf("expected both problems reported, got %v", err)
	}
}

func TestWithConfigClonesOverrides(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Concurrency.Overrides = map[Operation]ConcurrencyPolicy{OpSignIn: PolicyReject}

	b := New().WithConfig(cfg)
	cfg.Concurrency.Overrides[OpSignIn] = PolicyQueue

	if got := b.config.policyFor(OpSignIn); got != PolicyReject {
		t.Fatalf("expected builder copy to keep reject, got %s", got)
	}
	if got := b.config.policyFor(OpSignUp); got != PolicyLastWriteWins {
		t.Fatalf("expected default for unlisted operation, got %s", got)
	}
}

func TestParseConcurrencyPolicy(t *testing.T) {
	for name, want := range map[string]ConcurrencyPolicy{
		"":                PolicyLastWriteWins,
		"last_write_wins": PolicyLastWriteWins,
		"Reject":          PolicyReject,
		" queue ":         PolicyQueue,
	} {
		got, err := ParseConcurrencyPolicy(name)
		if err != nil || got != want {
			t.Fatalf("ParseConcurrencyPolicy(%q) = %v, %v", name, got, err)
		}
	}
	if _, err := ParseConcurrencyPolicy("fifo"); err == nil {
		t.Fatal("expected error for unknown policy")
	}

	text, err := PolicyQueue.MarshalText()
	if err != nil || string(text) != "queue" {
		t.Fatalf("MarshalText = %q, %v", text, err)
	}
}
