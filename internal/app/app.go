package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"itdx-mm-bot/internal/config"
	"itdx-mm-bot/internal/exec"
	"itdx-mm-bot/internal/feed"
	"itdx-mm-bot/internal/itdx"
	"itdx-mm-bot/internal/itdx/rest"
	"itdx-mm-bot/internal/itdx/sign"
	"itdx-mm-bot/internal/metrics"
	"itdx-mm-bot/internal/recorder"
	"itdx-mm-bot/internal/state"
	"itdx-mm-bot/internal/state/sqlite"
	"itdx-mm-bot/internal/strategy"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const defaultAccountName = "Main"

type App struct {
	cfg      *config.Config
	log      *zap.Logger
	kv       *sqlite.Store
	signer   *sign.Signer
	rest     *rest.Client
	store    *state.Store
	executor *exec.Executor
	metrics  *metrics.Metrics
	prom     *metrics.Prometheus
	recorder *recorder.Writer

	instrument itdx.Instrument
	quoteAsset string
	accountID  string
	maker      strategy.Maker
	taker      strategy.Taker
}

func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	apiKey := strings.TrimSpace(os.Getenv("ITDX_API_KEY"))
	if apiKey == "" {
		return nil, errors.New("ITDX_API_KEY is required")
	}
	apiSecret := strings.TrimSpace(os.Getenv("ITDX_API_SECRET"))
	if apiSecret == "" {
		return nil, errors.New("ITDX_API_SECRET is required")
	}
	signer, err := sign.New(apiKey, apiSecret)
	if err != nil {
		return nil, err
	}
	signer.SetLogger(log)

	if err := os.MkdirAll(filepath.Dir(cfg.State.SQLitePath), 0o755); err != nil {
		return nil, err
	}
	kv, err := sqlite.New(cfg.State.SQLitePath)
	if err != nil {
		return nil, err
	}

	prom := metrics.NewPrometheus()
	restClient := rest.New("https://"+cfg.Exchange.Host(), cfg.Exchange.Timeout, signer, log)
	rec, err := recorder.New(cfg.Recorder, log)
	if err != nil {
		_ = kv.Close()
		return nil, err
	}

	return &App{
		cfg:      cfg,
		log:      log,
		kv:       kv,
		signer:   signer,
		rest:     restClient,
		store:    state.NewStore(),
		executor: exec.New(restClient, prom.Metrics, log),
		metrics:  prom.Metrics,
		prom:     prom,
		recorder: rec,
	}, nil
}

// Run drives the state machine: bootstrap, then the tick loop until the
// context is canceled, a feed connection dies, or the single-iteration test
// completes.
func (a *App) Run(ctx context.Context) error {
	defer a.kv.Close()
	defer a.recorder.Close()

	if err := a.signer.InitNonceStore(ctx, a.kv); err != nil {
		a.log.Warn("nonce store init failed", zap.Error(err))
	}

	if err := a.bootstrap(ctx); err != nil {
		return err
	}
	a.log.Info("bootstrapped",
		zap.String("symbol", a.instrument.Symbol),
		zap.String("account_id", a.accountID),
		zap.String("quote_asset", a.quoteAsset),
		zap.String("mode", a.cfg.Strategy.Mode),
	)

	a.recorder.Start(ctx)
	a.serveMetrics(ctx)

	dispatcher := feed.New(a.cfg.Exchange.Host(), a.signer, a.store, a.metrics, a.log, a.accountID, a.instrument.Symbol)
	feedErr := make(chan error, 1)
	go func() {
		feedErr <- dispatcher.Run(ctx)
	}()

	if a.takerEnabled() {
		if err := a.establishInitialPosition(ctx); err != nil {
			return err
		}
	}

	if a.cfg.Strategy.TestOnce {
		a.log.Info("running single test iteration")
		if err := a.tick(ctx); err != nil {
			a.log.Warn("strategy tick failed", zap.Error(err))
		}
		if err := a.rest.CancelAll(ctx, a.accountID); err != nil {
			return fmt.Errorf("cleanup cancel all: %w", err)
		}
		a.log.Info("single test iteration passed")
		return nil
	}

	a.log.Info("entering rebalancing loop", zap.Duration("tick_delay", a.cfg.Strategy.TickDelay))
	ticker := time.NewTicker(a.cfg.Strategy.TickDelay)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			a.cancelAllBestEffort()
			return ctx.Err()
		case err := <-feedErr:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			a.cancelAllBestEffort()
			return err
		case <-ticker.C:
			if err := a.tick(ctx); err != nil {
				a.metrics.TickFailures.Inc()
				a.log.Warn("strategy tick failed", zap.Error(err))
			}
		}
	}
}

// bootstrap resolves immutable configuration (instrument, account) and
// pulls the initial snapshot the feed keeps live afterwards.
func (a *App) bootstrap(ctx context.Context) error {
	symbol := a.cfg.Strategy.Symbol

	instruments, err := a.rest.Instruments(ctx)
	if err != nil {
		return fmt.Errorf("fetch instruments: %w", err)
	}
	found := false
	for _, inst := range instruments {
		if inst.Symbol == symbol {
			a.instrument = inst
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("instrument %s not found", symbol)
	}
	a.quoteAsset = a.instrument.SellAssetSymbol

	a.accountID = strings.TrimSpace(a.cfg.Strategy.AccountID)
	if a.accountID == "" {
		accounts, err := a.rest.Accounts(ctx)
		if err != nil {
			return fmt.Errorf("fetch accounts: %w", err)
		}
		for _, acct := range accounts {
			if acct.Name == defaultAccountName {
				a.accountID = acct.ID
				break
			}
		}
		if a.accountID == "" {
			return fmt.Errorf("account %q not found", defaultAccountName)
		}
	}

	a.maker = strategy.Maker{
		AccountID:         a.accountID,
		Symbol:            symbol,
		Leverage:          decimal.NewFromFloat(a.cfg.Strategy.Leverage),
		Spread:            decimal.NewFromFloat(a.cfg.Maker.Spread),
		PriceTolerance:    decimal.NewFromFloat(a.cfg.Maker.PriceTolerance),
		QuantityTolerance: decimal.NewFromFloat(a.cfg.Maker.QuantityTolerance),
		MinQuantity:       a.instrument.QuantityMin,
		PriceIncrement:    a.instrument.PriceIncrement,
		PostOnly:          a.cfg.Maker.PostOnly,
	}
	a.taker = strategy.Taker{
		AccountID:    a.accountID,
		Symbol:       symbol,
		Leverage:     decimal.NewFromFloat(a.cfg.Strategy.Leverage),
		Tolerance:    decimal.NewFromFloat(a.cfg.Taker.LeverageTolerance),
		PositionType: a.cfg.Taker.PositionType,
	}

	summaries, err := a.rest.Summaries(ctx)
	if err != nil {
		return fmt.Errorf("fetch summaries: %w", err)
	}
	a.store.ReplaceSummaries(summaries)

	margins, err := a.rest.Margins(ctx, "", "")
	if err != nil {
		return fmt.Errorf("fetch margins: %w", err)
	}
	a.store.ReplaceMargins(margins)

	positions, err := a.rest.Positions(ctx, "", "")
	if err != nil {
		return fmt.Errorf("fetch positions: %w", err)
	}
	a.store.ReplacePositions(positions)

	orders, err := a.rest.OpenOrders(ctx, a.accountID, symbol)
	if err != nil {
		return fmt.Errorf("fetch open orders: %w", err)
	}
	a.store.ReplaceOrders(orders)
	return nil
}

// establishInitialPosition runs the taker once, synchronously, when no
// position exists yet, so the loop starts from the target exposure.
func (a *App) establishInitialPosition(ctx context.Context) error {
	snap := a.store.Snapshot()
	if !snap.Position(a.accountID, a.instrument.Symbol).IsZero() {
		return nil
	}
	in, err := a.inputs(snap)
	if err != nil {
		return fmt.Errorf("initial position: %w", err)
	}
	cmds := a.taker.Rebalance(in)
	if len(cmds) == 0 {
		return nil
	}
	a.log.Info("establishing initial position")
	if err := a.executor.Apply(ctx, cmds); err != nil {
		return fmt.Errorf("initial position: %w", err)
	}
	return nil
}

func (a *App) tick(ctx context.Context) error {
	a.metrics.Ticks.Inc()
	snap := a.store.Snapshot()
	in, err := a.inputs(snap)
	if err != nil {
		return err
	}
	var cmds []strategy.Command
	if a.makerEnabled() {
		cmds = append(cmds, a.maker.Rebalance(itdx.SideBid, in)...)
		cmds = append(cmds, a.maker.Rebalance(itdx.SideAsk, in)...)
	}
	if a.takerEnabled() {
		cmds = append(cmds, a.taker.Rebalance(in)...)
	}
	applyErr := a.executor.Apply(ctx, cmds)
	a.recordTick(in, cmds, applyErr)
	return applyErr
}

// inputs extracts the strategy view from one snapshot. Missing balance or
// mark price means the mirror is not yet complete and the tick is skipped.
func (a *App) inputs(snap state.Snapshot) (strategy.Inputs, error) {
	balance, ok := snap.Balance(a.accountID, a.quoteAsset)
	if !ok {
		return strategy.Inputs{}, fmt.Errorf("no margin for asset %s", a.quoteAsset)
	}
	mark, ok := snap.MarkPrice(a.instrument.Symbol)
	if !ok {
		return strategy.Inputs{}, fmt.Errorf("no summary for symbol %s", a.instrument.Symbol)
	}
	return strategy.Inputs{
		Balance:   balance,
		Position:  snap.Position(a.accountID, a.instrument.Symbol),
		MarkPrice: mark,
		Orders:    snap.Orders,
	}, nil
}

func (a *App) recordTick(in strategy.Inputs, cmds []strategy.Command, applyErr error) {
	if a.recorder == nil {
		return
	}
	cancels, submits := 0, 0
	for _, cmd := range cmds {
		if cmd.Kind == strategy.CommandCancel {
			cancels++
		} else {
			submits++
		}
	}
	errText := ""
	if applyErr != nil {
		errText = applyErr.Error()
	}
	a.recorder.Enqueue(recorder.Tick{
		Time:       time.Now().UTC(),
		Symbol:     a.instrument.Symbol,
		MarkPrice:  in.MarkPrice.String(),
		Balance:    in.Balance.String(),
		Position:   in.Position.String(),
		OpenOrders: len(in.Orders),
		Cancels:    cancels,
		Submits:    submits,
		Err:        errText,
	})
}

// cancelAllBestEffort pulls the account's quotes on the way out. The run
// context is already gone at this point, so the cleanup gets its own.
func (a *App) cancelAllBestEffort() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.rest.CancelAll(ctx, a.accountID); err != nil {
		a.log.Warn("shutdown cancel all failed", zap.Error(err))
		return
	}
	a.log.Info("canceled open orders on shutdown")
}

func (a *App) serveMetrics(ctx context.Context) {
	addr := strings.TrimSpace(a.cfg.Metrics.ListenAddr)
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.prom.Handler())
	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Warn("metrics server failed", zap.Error(err))
		}
	}()
}

func (a *App) makerEnabled() bool {
	return a.cfg.Strategy.Mode == config.ModeMaker || a.cfg.Strategy.Mode == config.ModeBoth
}

func (a *App) takerEnabled() bool {
	return a.cfg.Strategy.Mode == config.ModeTaker || a.cfg.Strategy.Mode == config.ModeBoth
}
