package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"itdx-mm-bot/internal/app"
	"itdx-mm-bot/internal/config"
	"itdx-mm-bot/internal/logging"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	symbol := flag.String("symbol", "", "instrument to trade (overrides config)")
	leverage := flag.Float64("leverage", 0, "target leverage (overrides config)")
	environment := flag.String("environment", "", "test, prod or custom host (overrides config)")
	account := flag.String("account", "", "account id override")
	mode := flag.String("mode", "", "maker, taker or both (overrides config)")
	delay := flag.Duration("delay", 0, "delay between rebalancing ticks (overrides config)")
	position := flag.String("position", "", "desired position type, long or short (overrides config)")
	tolerance := flag.Float64("tolerance", 0, "taker leverage tolerance (overrides config)")
	testOnce := flag.Bool("test", false, "run a single iteration, cancel all orders and exit")
	flag.Parse()

	if err := config.LoadEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			panic(err)
		}
		cfg = &config.Config{}
		config.ApplyDefaults(cfg)
	}
	applyOverrides(cfg, *symbol, *leverage, *environment, *account, *mode, *delay, *position, *tolerance, *testOnce)
	if err := config.Validate(cfg); err != nil {
		panic(err)
	}

	log := logging.New(cfg.Log)
	log.Info("config loaded",
		zap.String("path", *configPath),
		zap.String("symbol", cfg.Strategy.Symbol),
		zap.String("environment", cfg.Exchange.Environment),
	)

	application, err := app.New(cfg, log)
	if err != nil {
		log.Error("failed to initialize app", zap.Error(err))
		os.Exit(1)
	}
	log.Info("app initialized")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("app terminated", zap.Error(err))
		os.Exit(1)
	}
}

func applyOverrides(cfg *config.Config, symbol string, leverage float64, environment, account, mode string, delay time.Duration, position string, tolerance float64, testOnce bool) {
	if symbol != "" {
		cfg.Strategy.Symbol = symbol
	}
	if leverage > 0 {
		cfg.Strategy.Leverage = leverage
	}
	if environment != "" {
		cfg.Exchange.Environment = environment
	}
	if account != "" {
		cfg.Strategy.AccountID = account
	}
	if mode != "" {
		cfg.Strategy.Mode = mode
	}
	if delay > 0 {
		cfg.Strategy.TickDelay = delay
	}
	if position != "" {
		cfg.Taker.PositionType = position
	}
	if tolerance > 0 {
		cfg.Taker.LeverageTolerance = tolerance
	}
	if testOnce {
		cfg.Strategy.TestOnce = true
	}
}
