package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"itdx-mm-bot/internal/itdx"
	"itdx-mm-bot/internal/itdx/sign"
	"itdx-mm-bot/internal/itdx/ws"
	"itdx-mm-bot/internal/metrics"
	"itdx-mm-bot/internal/state"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

// ErrFeedTerminated marks a closed feed connection. The process refuses to
// trade on unknown account state, so this is fatal to the control loop.
var ErrFeedTerminated = errors.New("feed connection terminated")

const (
	TopicSummaries = "summaries"
	TopicMargins   = "margins"
	TopicPositions = "positions"
	TopicOrders    = "orders"

	publicStreamPath  = "/stream/v1/public"
	privateStreamPath = "/stream/v1/private"
)

var (
	pingMarker = []byte("primus::ping")
	pongMarker = []byte("primus::pong")
)

type sender interface {
	Send(ctx context.Context, data []byte) error
}

// Dispatcher owns the two push connections and is the sole writer to the
// state store once bootstrap is done.
type Dispatcher struct {
	public  *ws.Client
	private *ws.Client
	store   *state.Store
	metrics *metrics.Metrics
	log     *zap.Logger

	accountID string
	symbol    string
}

func New(host string, signer *sign.Signer, store *state.Store, m *metrics.Metrics, log *zap.Logger, accountID, symbol string) *Dispatcher {
	header := http.Header{}
	for k, v := range signer.Headers(privateStreamPath, "", "") {
		header.Set(k, v)
	}
	return &Dispatcher{
		public:    ws.New("wss://"+host+publicStreamPath, nil, log),
		private:   ws.New("wss://"+host+privateStreamPath, header, log),
		store:     store,
		metrics:   m,
		log:       log,
		accountID: accountID,
		symbol:    symbol,
	}
}

// Run connects, subscribes and pumps both streams until the context ends or
// either connection dies. Any connection close is wrapped in
// ErrFeedTerminated; there is no reconnect.
func (d *Dispatcher) Run(ctx context.Context) error {
	if err := d.public.Connect(ctx); err != nil {
		return err
	}
	if err := d.private.Connect(ctx); err != nil {
		return err
	}
	if err := d.subscribe(ctx, d.public, TopicSummaries); err != nil {
		return err
	}
	for _, topic := range []string{TopicMargins, TopicPositions, TopicOrders} {
		if err := d.subscribe(ctx, d.private, topic); err != nil {
			return err
		}
	}
	errs := make(chan error, 2)
	go func() {
		errs <- d.public.Run(ctx, func(msg []byte) { d.Handle(ctx, d.public, msg) })
	}()
	go func() {
		errs <- d.private.Run(ctx, func(msg []byte) { d.Handle(ctx, d.private, msg) })
	}()
	defer d.public.Close()
	defer d.private.Close()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errs:
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			err = errors.New("stream ended")
		}
		return fmt.Errorf("%w: %v", ErrFeedTerminated, err)
	}
}

func (d *Dispatcher) subscribe(ctx context.Context, conn sender, topic string) error {
	payload, err := json.Marshal([]string{"subscribe", topic})
	if err != nil {
		return err
	}
	return conn.Send(ctx, payload)
}

// Handle processes one inbound message. Heartbeats are echoed with the pong
// marker substituted and never reach a topic handler. Everything else is a
// [topic, payload] pair routed into a store mutation. Malformed input is a
// transport warning, not a reason to drop the connection.
func (d *Dispatcher) Handle(ctx context.Context, conn sender, msg []byte) {
	if bytes.Contains(msg, pingMarker) {
		if err := conn.Send(ctx, bytes.ReplaceAll(msg, pingMarker, pongMarker)); err != nil {
			d.log.Warn("heartbeat reply failed", zap.Error(err))
		}
		return
	}
	var frame []json.RawMessage
	if err := json.Unmarshal(msg, &frame); err != nil || len(frame) != 2 {
		d.log.Warn("unroutable feed message", zap.ByteString("message", msg))
		return
	}
	var topic string
	if err := json.Unmarshal(frame[0], &topic); err != nil {
		d.log.Warn("feed topic decode failed", zap.Error(err))
		return
	}
	d.metrics.FeedMessages.Inc()
	switch topic {
	case TopicSummaries:
		var summaries []itdx.Summary
		if err := json.Unmarshal(frame[1], &summaries); err != nil {
			d.log.Warn("summaries decode failed", zap.Error(err))
			return
		}
		d.store.ReplaceSummaries(summaries)
	case TopicMargins:
		var margins []itdx.Margin
		if err := json.Unmarshal(frame[1], &margins); err != nil {
			d.log.Warn("margins decode failed", zap.Error(err))
			return
		}
		d.store.ReplaceMargins(margins)
	case TopicPositions:
		var positions []itdx.Position
		if err := json.Unmarshal(frame[1], &positions); err != nil {
			d.log.Warn("positions decode failed", zap.Error(err))
			return
		}
		d.store.ReplacePositions(positions)
	case TopicOrders:
		var order itdx.Order
		if err := json.Unmarshal(frame[1], &order); err != nil {
			d.log.Warn("order decode failed", zap.Error(err))
			return
		}
		if order.AccountID != d.accountID || order.Symbol != d.symbol {
			return
		}
		d.store.ApplyOrder(order)
	default:
		d.log.Debug("ignoring unknown topic", zap.String("topic", topic))
	}
}
