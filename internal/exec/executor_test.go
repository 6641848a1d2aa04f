package exec

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"itdx-mm-bot/internal/itdx"
	"itdx-mm-bot/internal/metrics"
	"itdx-mm-bot/internal/strategy"

	"go.uber.org/zap"
)

type fakeExchange struct {
	calls     []string
	cancelErr error
	placeErr  error
}

func (f *fakeExchange) PlaceOrder(_ context.Context, order itdx.NewOrder) (json.RawMessage, error) {
	f.calls = append(f.calls, "place:"+order.OrderSide)
	if f.placeErr != nil {
		return nil, f.placeErr
	}
	return json.RawMessage(`{"orderId":"o-new"}`), nil
}

func (f *fakeExchange) CancelOrder(_ context.Context, orderID string) error {
	f.calls = append(f.calls, "cancel:"+orderID)
	return f.cancelErr
}

func commands() []strategy.Command {
	return []strategy.Command{
		{Kind: strategy.CommandCancel, OrderID: "o-stale"},
		{Kind: strategy.CommandSubmit, Order: itdx.NewOrder{
			OrderSide:     itdx.SideBid,
			OrderType:     itdx.TypeLimit,
			OrderQuantity: "50",
			LimitPrice:    "49975",
		}},
	}
}

func TestApplyPreservesCommandOrder(t *testing.T) {
	ex := &fakeExchange{}
	e := New(ex, metrics.NewNoop(), zap.NewNop())
	if err := e.Apply(context.Background(), commands()); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(ex.calls) != 2 || ex.calls[0] != "cancel:o-stale" || ex.calls[1] != "place:bid" {
		t.Fatalf("unexpected call sequence: %v", ex.calls)
	}
}

func TestApplyStopsBatchOnFirstError(t *testing.T) {
	boom := errors.New("rejected")
	ex := &fakeExchange{cancelErr: boom}
	e := New(ex, metrics.NewNoop(), zap.NewNop())
	err := e.Apply(context.Background(), commands())
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped cancel error, got %v", err)
	}
	if len(ex.calls) != 1 {
		t.Fatalf("batch must stop after the failed cancel, got %v", ex.calls)
	}
}

func TestApplyWrapsPlaceError(t *testing.T) {
	boom := errors.New("insufficient margin")
	ex := &fakeExchange{placeErr: boom}
	e := New(ex, metrics.NewNoop(), zap.NewNop())
	err := e.Apply(context.Background(), commands())
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped place error, got %v", err)
	}
}

func TestApplyEmptyBatchIsNoop(t *testing.T) {
	ex := &fakeExchange{}
	e := New(ex, metrics.NewNoop(), zap.NewNop())
	if err := e.Apply(context.Background(), nil); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(ex.calls) != 0 {
		t.Fatalf("expected no calls, got %v", ex.calls)
	}
}
