// Package recorder streams per-tick decision snapshots into a
// timescale-style postgres table for offline analysis. It is optional and
// must never slow the control loop: writes go through a dropping queue.
package recorder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"itdx-mm-bot/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

const writeTimeout = 3 * time.Second

// Tick is one control-loop iteration. Monetary fields are recorded as text
// to keep the exchange's precision intact.
type Tick struct {
	Time       time.Time
	Symbol     string
	MarkPrice  string
	Balance    string
	Position   string
	OpenOrders int
	Cancels    int
	Submits    int
	Err        string
}

type Writer struct {
	db      *sql.DB
	log     *zap.Logger
	schema  string
	ticks   chan Tick
	started atomic.Bool
	dropped atomic.Uint64
}

// New returns nil when recording is disabled.
func New(cfg config.RecorderConfig, log *zap.Logger) (*Writer, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("recorder dsn is required")
	}
	schema := strings.TrimSpace(cfg.Schema)
	if schema == "" {
		schema = "public"
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	writer := &Writer{
		db:     db,
		log:    log,
		schema: schema,
		ticks:  make(chan Tick, queueSize),
	}
	if err := writer.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return writer, nil
}

func (w *Writer) Start(ctx context.Context) {
	if w == nil {
		return
	}
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	go w.run(ctx)
}

func (w *Writer) Close() error {
	if w == nil || w.db == nil {
		return nil
	}
	return w.db.Close()
}

func (w *Writer) Enqueue(tick Tick) {
	if w == nil {
		return
	}
	select {
	case w.ticks <- tick:
	default:
		if w.dropped.Add(1) == 1 && w.log != nil {
			w.log.Warn("recorder queue full, dropping ticks")
		}
	}
}

func (w *Writer) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case tick := <-w.ticks:
			w.writeTick(ctx, tick)
		}
	}
}

func (w *Writer) ensureSchema(ctx context.Context) error {
	if w.db == nil {
		return errors.New("recorder db not initialized")
	}
	if w.schema != "public" {
		if err := w.exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", w.schema)); err != nil {
			return err
		}
	}
	if err := w.exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts TIMESTAMPTZ NOT NULL,
		symbol TEXT NOT NULL,
		mark_price NUMERIC,
		balance NUMERIC,
		position NUMERIC,
		open_orders INTEGER NOT NULL,
		cancels INTEGER NOT NULL,
		submits INTEGER NOT NULL,
		error TEXT NOT NULL DEFAULT ''
	)`, w.table("strategy_ticks"))); err != nil {
		return err
	}
	if err := w.exec(ctx, "CREATE EXTENSION IF NOT EXISTS timescaledb"); err != nil {
		if w.log != nil {
			w.log.Warn("timescale extension ensure failed", zap.Error(err))
		}
		return nil
	}
	if err := w.exec(ctx, fmt.Sprintf("SELECT create_hypertable('%s', 'ts', if_not_exists => TRUE)", w.table("strategy_ticks"))); err != nil && w.log != nil {
		w.log.Warn("strategy_ticks hypertable create failed", zap.Error(err))
	}
	return nil
}

func (w *Writer) writeTick(ctx context.Context, tick Tick) {
	if w.db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	query := fmt.Sprintf(`INSERT INTO %s (
		ts, symbol, mark_price, balance, position, open_orders, cancels, submits, error
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`, w.table("strategy_ticks"))
	if _, err := w.db.ExecContext(ctx, query,
		tick.Time,
		tick.Symbol,
		nullable(tick.MarkPrice),
		nullable(tick.Balance),
		nullable(tick.Position),
		tick.OpenOrders,
		tick.Cancels,
		tick.Submits,
		tick.Err,
	); err != nil && w.log != nil {
		w.log.Warn("tick insert failed", zap.Error(err))
	}
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func (w *Writer) exec(ctx context.Context, query string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_, err := w.db.ExecContext(ctx, query)
	return err
}

func (w *Writer) table(name string) string {
	return w.schema + "." + name
}
