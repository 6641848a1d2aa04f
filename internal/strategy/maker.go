package strategy

import (
	"itdx-mm-bot/internal/itdx"

	"github.com/shopspring/decimal"
)

// Maker quotes one resting limit order per side near the mark price. A pass
// over a side is idempotent: an already-adequate quote produces no commands.
type Maker struct {
	AccountID         string
	Symbol            string
	Leverage          decimal.Decimal
	Spread            decimal.Decimal
	PriceTolerance    decimal.Decimal
	QuantityTolerance decimal.Decimal
	MinQuantity       decimal.Decimal
	PriceIncrement    decimal.Decimal
	PostOnly          bool
}

// Rebalance computes the commands for one side. Stale orders on that side
// are canceled individually; orders on the account's other side are left
// alone, so one side's pass can never pull the opposite quote.
func (m Maker) Rebalance(side string, in Inputs) []Command {
	sign := sideSign(side)
	target := m.Leverage.Mul(in.Balance).Mul(in.MarkPrice)
	quantity := m.desiredQuantity(target, in.Position, sign)
	price := in.MarkPrice.Mul(one.Sub(m.Spread.Mul(sign)))

	var cmds []Command
	adequate := false
	for _, o := range in.Orders {
		if o.OrderSide != side {
			continue
		}
		if !adequate && o.OrderType == itdx.TypeLimit &&
			withinBand(o.LimitPrice, price, m.PriceTolerance) &&
			withinBand(o.LeavesQuantity, quantity, m.QuantityTolerance) {
			adequate = true
			continue
		}
		cmds = append(cmds, cancelCommand(o.OrderID))
	}
	if !adequate {
		cmds = append(cmds, submitCommand(itdx.NewOrder{
			AccountID:     m.AccountID,
			Symbol:        m.Symbol,
			OrderSide:     side,
			OrderType:     itdx.TypeLimit,
			OrderQuantity: quantity.String(),
			LimitPrice:    RoundToIncrement(price, m.PriceIncrement).String(),
			PostOnly:      m.PostOnly,
		}))
	}
	return cmds
}

// desiredQuantity is round(clamp(target - position*sign)) with the
// configured minimum as lower bound and twice the target notional as upper.
func (m Maker) desiredQuantity(target, position, sign decimal.Decimal) decimal.Decimal {
	q := target.Sub(position.Mul(sign))
	if q.LessThan(m.MinQuantity) {
		q = m.MinQuantity
	}
	if upper := target.Mul(two); q.GreaterThan(upper) {
		q = upper
	}
	return q.Round(0)
}

// withinBand reports whether value lies strictly inside the multiplicative
// band (center/(1+tol), center*(1+tol)). Both bounds are exclusive; a value
// exactly on the edge counts as stale. Written multiplication-only so the
// edges are exact.
func withinBand(value, center, tolerance decimal.Decimal) bool {
	scale := one.Add(tolerance)
	return value.Mul(scale).GreaterThan(center) && value.LessThan(center.Mul(scale))
}

// RoundToIncrement snaps a price to the nearest multiple of the price tick.
// A price already on the grid comes back unchanged.
func RoundToIncrement(price, increment decimal.Decimal) decimal.Decimal {
	if increment.IsZero() {
		return price
	}
	return price.Div(increment).Round(0).Mul(increment)
}
