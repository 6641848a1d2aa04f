package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := "strategy:\n  symbol: ETH-PERP\n"
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Strategy.Symbol != "ETH-PERP" {
		t.Fatalf("explicit symbol lost: %s", cfg.Strategy.Symbol)
	}
	if cfg.Exchange.Environment != "test" {
		t.Fatalf("expected test environment default, got %s", cfg.Exchange.Environment)
	}
	if cfg.Exchange.Timeout != 10*time.Second {
		t.Fatalf("expected 10s timeout default, got %s", cfg.Exchange.Timeout)
	}
	if cfg.Strategy.Mode != ModeMaker {
		t.Fatalf("expected maker mode default, got %s", cfg.Strategy.Mode)
	}
	if cfg.Strategy.TickDelay != 2*time.Second {
		t.Fatalf("expected 2s tick delay default, got %s", cfg.Strategy.TickDelay)
	}
	if cfg.Maker.Spread != 5e-4 || cfg.Maker.PriceTolerance != 3e-4 {
		t.Fatalf("unexpected maker defaults: %+v", cfg.Maker)
	}
	if cfg.Taker.PositionType != "long" || cfg.Taker.LeverageTolerance != 0.1 {
		t.Fatalf("unexpected taker defaults: %+v", cfg.Taker)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad mode", func(c *Config) { c.Strategy.Mode = "passive" }},
		{"zero leverage", func(c *Config) { c.Strategy.Leverage = 0 }},
		{"negative leverage", func(c *Config) { c.Strategy.Leverage = -2 }},
		{"bad position type", func(c *Config) { c.Taker.PositionType = "flat" }},
		{"negative spread", func(c *Config) { c.Maker.Spread = -0.001 }},
		{"negative leverage tolerance", func(c *Config) { c.Taker.LeverageTolerance = -0.1 }},
		{"recorder without dsn", func(c *Config) { c.Recorder.Enabled = true }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var cfg Config
			ApplyDefaults(&cfg)
			tc.mutate(&cfg)
			if err := Validate(&cfg); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	var cfg Config
	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestHostMapsEnvironments(t *testing.T) {
	cases := []struct {
		env  string
		want string
	}{
		{"test", "test.interdax.com"},
		{"Prod", "app.interdax.com"},
		{" prod ", "app.interdax.com"},
		{"staging.interdax.com", "staging.interdax.com"},
	}
	for _, tc := range cases {
		c := ExchangeConfig{Environment: tc.env}
		if got := c.Host(); got != tc.want {
			t.Fatalf("Host(%q) = %q, want %q", tc.env, got, tc.want)
		}
	}
}
