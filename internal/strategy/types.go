// Package strategy holds the rebalancing decision engines. Both strategies
// are pure functions of a state snapshot plus configuration: they emit order
// commands and never touch the network themselves.
package strategy

import (
	"itdx-mm-bot/internal/itdx"

	"github.com/shopspring/decimal"
)

type CommandKind int

const (
	CommandCancel CommandKind = iota
	CommandSubmit
)

// Command is one outbound order action for the executor.
type Command struct {
	Kind    CommandKind
	OrderID string        // cancel target
	Order   itdx.NewOrder // submission payload
}

func cancelCommand(orderID string) Command {
	return Command{Kind: CommandCancel, OrderID: orderID}
}

func submitCommand(order itdx.NewOrder) Command {
	return Command{Kind: CommandSubmit, Order: order}
}

// Inputs is the per-tick view of the account for one symbol, extracted from
// an isolated state snapshot. Orders carry the snapshot's insertion order,
// which is what makes the "first adequate order wins" scan deterministic.
type Inputs struct {
	Balance   decimal.Decimal
	Position  decimal.Decimal
	MarkPrice decimal.Decimal
	Orders    []itdx.Order
}

var (
	one = decimal.NewFromInt(1)
	two = decimal.NewFromInt(2)
)

func sideSign(side string) decimal.Decimal {
	if side == itdx.SideBid {
		return one
	}
	return one.Neg()
}
