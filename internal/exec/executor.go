package exec

import (
	"context"
	"encoding/json"
	"fmt"

	"itdx-mm-bot/internal/itdx"
	"itdx-mm-bot/internal/metrics"
	"itdx-mm-bot/internal/strategy"

	"go.uber.org/zap"
)

// Exchange is the slice of the REST client the executor needs.
type Exchange interface {
	PlaceOrder(ctx context.Context, order itdx.NewOrder) (json.RawMessage, error)
	CancelOrder(ctx context.Context, orderID string) error
}

// Executor turns strategy commands into signed REST calls, in order. The
// first failure stops the batch and surfaces as the tick error; nothing is
// retried.
type Executor struct {
	exchange Exchange
	metrics  *metrics.Metrics
	log      *zap.Logger
}

func New(exchange Exchange, m *metrics.Metrics, log *zap.Logger) *Executor {
	return &Executor{exchange: exchange, metrics: m, log: log}
}

func (e *Executor) Apply(ctx context.Context, cmds []strategy.Command) error {
	for _, cmd := range cmds {
		switch cmd.Kind {
		case strategy.CommandCancel:
			if err := e.exchange.CancelOrder(ctx, cmd.OrderID); err != nil {
				e.metrics.OrderFailures.Inc()
				return fmt.Errorf("cancel order %s: %w", cmd.OrderID, err)
			}
			e.metrics.OrdersCanceled.Inc()
			e.log.Info("canceled order", zap.String("order_id", cmd.OrderID))
		case strategy.CommandSubmit:
			resp, err := e.exchange.PlaceOrder(ctx, cmd.Order)
			if err != nil {
				e.metrics.OrderFailures.Inc()
				return fmt.Errorf("place %s %s order: %w", cmd.Order.OrderSide, cmd.Order.OrderType, err)
			}
			e.metrics.OrdersPlaced.Inc()
			e.log.Info("placed order",
				zap.String("side", cmd.Order.OrderSide),
				zap.String("type", cmd.Order.OrderType),
				zap.String("quantity", cmd.Order.OrderQuantity),
				zap.String("limit_price", cmd.Order.LimitPrice),
				zap.ByteString("response", resp),
			)
		default:
			return fmt.Errorf("unknown command kind %d", cmd.Kind)
		}
	}
	return nil
}
