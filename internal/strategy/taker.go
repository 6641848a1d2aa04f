package strategy

import (
	"itdx-mm-bot/internal/itdx"

	"github.com/shopspring/decimal"
)

// Taker watches the leverage band and snaps the position back to target with
// a single market order when exposure drifts out of it. The band test is the
// only spam guard; there is no price or quantity tolerance.
type Taker struct {
	AccountID    string
	Symbol       string
	Leverage     decimal.Decimal
	Tolerance    decimal.Decimal
	PositionType string // "long" or "short"
}

func (t Taker) desiredSide() string {
	if t.PositionType == "short" {
		return itdx.SideAsk
	}
	return itdx.SideBid
}

// Rebalance fires when current leverage leaves the open interval
// (L-tol, L+tol) or the position points against the desired side. Leverage
// exactly at either edge does not fire.
func (t Taker) Rebalance(in Inputs) []Command {
	side := t.desiredSide()
	sign := sideSign(side)
	notional := in.Balance.Mul(in.MarkPrice)

	opposite := (in.Position.Sign() > 0 && side == itdx.SideAsk) ||
		(in.Position.Sign() < 0 && side == itdx.SideBid)

	fire := opposite
	if notional.IsZero() {
		// No measurable leverage; any standing position is exposure to shed.
		fire = fire || !in.Position.IsZero()
	} else {
		leverage := in.Position.Abs().Div(notional)
		fire = fire ||
			leverage.LessThan(t.Leverage.Sub(t.Tolerance)) ||
			leverage.GreaterThan(t.Leverage.Add(t.Tolerance))
	}
	if !fire {
		return nil
	}

	target := t.Leverage.Mul(notional).Mul(sign)
	delta := target.Sub(in.Position).Round(0)
	if delta.IsZero() {
		return nil
	}
	orderSide := itdx.SideBid
	if delta.Sign() < 0 {
		orderSide = itdx.SideAsk
	}
	return []Command{submitCommand(itdx.NewOrder{
		AccountID:     t.AccountID,
		Symbol:        t.Symbol,
		OrderSide:     orderSide,
		OrderType:     itdx.TypeMarket,
		OrderQuantity: delta.Abs().String(),
	})}
}
