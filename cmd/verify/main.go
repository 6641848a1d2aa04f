// Command verify checks exchange connectivity and credentials without
// trading: it exercises a public endpoint, then the signed private surface,
// and prints what it finds.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"itdx-mm-bot/internal/config"
	"itdx-mm-bot/internal/itdx/rest"
	"itdx-mm-bot/internal/itdx/sign"
	"itdx-mm-bot/internal/logging"

	"go.uber.org/zap"
)

const (
	defaultTimeout = 10 * time.Second
	defaultEnvFile = ".env"
)

func main() {
	configPath := flag.String("config", "", "optional config path for exchange settings")
	environment := flag.String("environment", "", "test, prod or custom host (overrides config)")
	symbol := flag.String("symbol", "", "instrument to look up (overrides config)")
	flag.Parse()

	if err := config.LoadEnv(defaultEnvFile); err != nil {
		fatal(err)
	}

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fatal(err)
		}
		cfg = loaded
	}
	if *environment != "" {
		cfg.Exchange.Environment = *environment
	}
	if *symbol != "" {
		cfg.Strategy.Symbol = *symbol
	}

	log := logging.New(cfg.Log)
	defer func() { _ = log.Sync() }()

	signer, err := sign.New(os.Getenv("ITDX_API_KEY"), os.Getenv("ITDX_API_SECRET"))
	if err != nil {
		fatal(err)
	}
	client := rest.New("https://"+cfg.Exchange.Host(), defaultTimeout, signer, log)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	instruments, err := client.Instruments(ctx)
	if err != nil {
		fatal(fmt.Errorf("public endpoint check failed: %w", err))
	}
	log.Info("public endpoint ok", zap.Int("instruments", len(instruments)))
	for _, inst := range instruments {
		if inst.Symbol == cfg.Strategy.Symbol {
			log.Info("instrument resolved",
				zap.String("symbol", inst.Symbol),
				zap.String("price_increment", inst.PriceIncrement.String()),
				zap.String("quantity_min", inst.QuantityMin.String()),
				zap.String("quote_asset", inst.SellAssetSymbol),
			)
		}
	}

	accounts, err := client.Accounts(ctx)
	if err != nil {
		fatal(fmt.Errorf("private endpoint check failed (credentials?): %w", err))
	}
	names := make([]string, 0, len(accounts))
	for _, acct := range accounts {
		names = append(names, acct.Name)
	}
	log.Info("private endpoint ok", zap.String("accounts", strings.Join(names, ",")))

	margins, err := client.Margins(ctx, "", "")
	if err != nil {
		fatal(err)
	}
	payload, _ := json.MarshalIndent(margins, "", "  ")
	fmt.Println(string(payload))
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
