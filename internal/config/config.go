package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Log      LoggingConfig  `yaml:"log"`
	Exchange ExchangeConfig `yaml:"exchange"`
	State    StateConfig    `yaml:"state"`
	Strategy StrategyConfig `yaml:"strategy"`
	Maker    MakerConfig    `yaml:"maker"`
	Taker    TakerConfig    `yaml:"taker"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Recorder RecorderConfig `yaml:"recorder"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type ExchangeConfig struct {
	// Environment is "test", "prod", or an explicit host name.
	Environment string        `yaml:"environment"`
	Timeout     time.Duration `yaml:"timeout"`
}

type StateConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
}

type StrategyConfig struct {
	Symbol    string        `yaml:"symbol"`
	Leverage  float64       `yaml:"leverage"`
	AccountID string        `yaml:"account_id"`
	Mode      string        `yaml:"mode"`
	TickDelay time.Duration `yaml:"tick_delay"`
	TestOnce  bool          `yaml:"test_once"`
}

type MakerConfig struct {
	Spread            float64 `yaml:"spread"`
	PriceTolerance    float64 `yaml:"price_tolerance"`
	QuantityTolerance float64 `yaml:"quantity_tolerance"`
	PostOnly          bool    `yaml:"post_only"`
}

type TakerConfig struct {
	PositionType      string  `yaml:"position_type"`
	LeverageTolerance float64 `yaml:"leverage_tolerance"`
}

type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

type RecorderConfig struct {
	Enabled   bool   `yaml:"enabled"`
	DSN       string `yaml:"dsn"`
	Schema    string `yaml:"schema"`
	QueueSize int    `yaml:"queue_size"`
}

const (
	ModeMaker = "maker"
	ModeTaker = "taker"
	ModeBoth  = "both"
)

func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)
	return &cfg, Validate(&cfg)
}

func ApplyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Exchange.Environment == "" {
		cfg.Exchange.Environment = "test"
	}
	if cfg.Exchange.Timeout == 0 {
		cfg.Exchange.Timeout = 10 * time.Second
	}
	if cfg.State.SQLitePath == "" {
		cfg.State.SQLitePath = "data/itdx-mm-bot.db"
	}
	if cfg.Strategy.Symbol == "" {
		cfg.Strategy.Symbol = "BTC-PERP"
	}
	if cfg.Strategy.Leverage == 0 {
		cfg.Strategy.Leverage = 1
	}
	if cfg.Strategy.Mode == "" {
		cfg.Strategy.Mode = ModeMaker
	}
	if cfg.Strategy.TickDelay == 0 {
		cfg.Strategy.TickDelay = 2 * time.Second
	}
	if cfg.Maker.Spread == 0 {
		cfg.Maker.Spread = 5e-4
	}
	if cfg.Maker.PriceTolerance == 0 {
		cfg.Maker.PriceTolerance = 3e-4
	}
	if cfg.Maker.QuantityTolerance == 0 {
		cfg.Maker.QuantityTolerance = 0.3
	}
	if cfg.Taker.PositionType == "" {
		cfg.Taker.PositionType = "long"
	}
	if cfg.Taker.LeverageTolerance == 0 {
		cfg.Taker.LeverageTolerance = 0.1
	}
	if cfg.Recorder.Schema == "" {
		cfg.Recorder.Schema = "public"
	}
}

func Validate(cfg *Config) error {
	if cfg.Strategy.Symbol == "" {
		return errors.New("strategy.symbol is required")
	}
	if cfg.Strategy.Leverage <= 0 {
		return errors.New("strategy.leverage must be > 0")
	}
	switch cfg.Strategy.Mode {
	case ModeMaker, ModeTaker, ModeBoth:
	default:
		return fmt.Errorf("strategy.mode must be %s, %s or %s", ModeMaker, ModeTaker, ModeBoth)
	}
	switch cfg.Taker.PositionType {
	case "long", "short":
	default:
		return errors.New("taker.position_type must be long or short")
	}
	if cfg.Maker.Spread < 0 || cfg.Maker.PriceTolerance < 0 || cfg.Maker.QuantityTolerance < 0 {
		return errors.New("maker tolerances must not be negative")
	}
	if cfg.Taker.LeverageTolerance < 0 {
		return errors.New("taker.leverage_tolerance must not be negative")
	}
	if cfg.Recorder.Enabled && cfg.Recorder.DSN == "" {
		return errors.New("recorder.dsn is required when recorder is enabled")
	}
	return nil
}

// Host resolves the environment selector to an API host.
func (c ExchangeConfig) Host() string {
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "test":
		return "test.interdax.com"
	case "prod":
		return "app.interdax.com"
	default:
		return strings.TrimSpace(c.Environment)
	}
}
