// Package itdx holds the wire-level types shared by the REST and stream
// surfaces of the exchange API. Monetary and quantity fields arrive as
// strings or JSON numbers of arbitrary precision and are decoded straight
// into decimals, never through float64.
package itdx

import "github.com/shopspring/decimal"

const (
	SideBid = "bid"
	SideAsk = "ask"

	TypeLimit  = "limit"
	TypeMarket = "market"

	StatusOpen    = "open"
	StatusPartial = "partial"
)

// Instrument describes one tradable contract. Immutable after the initial
// fetch.
type Instrument struct {
	Symbol          string          `json:"symbol"`
	PriceIncrement  decimal.Decimal `json:"priceIncrement"`
	QuantityMin     decimal.Decimal `json:"quantityMin"`
	SellAssetSymbol string          `json:"sellAssetSymbol"`
}

type Account struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Summary carries the mark price used as the reference price for sizing
// and quoting.
type Summary struct {
	Symbol    string          `json:"symbol"`
	MarkPrice decimal.Decimal `json:"markPrice"`
}

type Margin struct {
	AccountID   string          `json:"accountId"`
	Asset       string          `json:"asset"`
	MarketValue decimal.Decimal `json:"marketValue"`
}

type Position struct {
	AccountID string          `json:"accountId"`
	Symbol    string          `json:"symbol"`
	Quantity  decimal.Decimal `json:"quantity"`
}

type Order struct {
	OrderID        string          `json:"orderId"`
	AccountID      string          `json:"accountId"`
	Symbol         string          `json:"symbol"`
	OrderSide      string          `json:"orderSide"`
	OrderType      string          `json:"orderType"`
	LimitPrice     decimal.Decimal `json:"limitPrice"`
	LeavesQuantity decimal.Decimal `json:"leavesQuantity"`
	Status         string          `json:"status"`
}

// Live reports whether the order belongs in the open order set. Any other
// status removes it.
func (o Order) Live() bool {
	return o.Status == StatusOpen || o.Status == StatusPartial
}

// NewOrder is the submission payload for POST /api/v1/order. Quantity and
// price travel as strings.
type NewOrder struct {
	AccountID     string `json:"accountId"`
	Symbol        string `json:"symbol"`
	OrderSide     string `json:"orderSide"`
	OrderType     string `json:"orderType"`
	OrderQuantity string `json:"orderQuantity"`
	LimitPrice    string `json:"limitPrice,omitempty"`
	PostOnly      bool   `json:"postOnly,omitempty"`
}
