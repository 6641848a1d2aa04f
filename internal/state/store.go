package state

import (
	"sync"

	"itdx-mm-bot/internal/itdx"

	"github.com/shopspring/decimal"
)

type MarginKey struct {
	AccountID string
	Asset     string
}

type PositionKey struct {
	AccountID string
	Symbol    string
}

// Store is the single authoritative mirror of exchange account state. The
// feed dispatcher (and the bootstrap pull) are the only writers; strategies
// read point-in-time snapshots. Summaries, margins and positions are always
// replaced wholesale, never merged field by field. Orders hold the live set
// only, in insertion order.
type Store struct {
	mu        sync.RWMutex
	summaries map[string]itdx.Summary
	margins   map[MarginKey]itdx.Margin
	positions map[PositionKey]itdx.Position
	orders    map[string]itdx.Order
	orderSeq  []string
}

func NewStore() *Store {
	return &Store{
		summaries: make(map[string]itdx.Summary),
		margins:   make(map[MarginKey]itdx.Margin),
		positions: make(map[PositionKey]itdx.Position),
		orders:    make(map[string]itdx.Order),
	}
}

func (s *Store) ReplaceSummaries(summaries []itdx.Summary) {
	next := make(map[string]itdx.Summary, len(summaries))
	for _, e := range summaries {
		next[e.Symbol] = e
	}
	s.mu.Lock()
	s.summaries = next
	s.mu.Unlock()
}

func (s *Store) ReplaceMargins(margins []itdx.Margin) {
	next := make(map[MarginKey]itdx.Margin, len(margins))
	for _, e := range margins {
		next[MarginKey{AccountID: e.AccountID, Asset: e.Asset}] = e
	}
	s.mu.Lock()
	s.margins = next
	s.mu.Unlock()
}

func (s *Store) ReplacePositions(positions []itdx.Position) {
	next := make(map[PositionKey]itdx.Position, len(positions))
	for _, e := range positions {
		next[PositionKey{AccountID: e.AccountID, Symbol: e.Symbol}] = e
	}
	s.mu.Lock()
	s.positions = next
	s.mu.Unlock()
}

// ReplaceOrders installs the bootstrap live-order set.
func (s *Store) ReplaceOrders(orders []itdx.Order) {
	s.mu.Lock()
	s.orders = make(map[string]itdx.Order, len(orders))
	s.orderSeq = s.orderSeq[:0]
	for _, o := range orders {
		if _, ok := s.orders[o.OrderID]; !ok {
			s.orderSeq = append(s.orderSeq, o.OrderID)
		}
		s.orders[o.OrderID] = o
	}
	s.mu.Unlock()
}

// ApplyOrder upserts an order entering open or partial status and removes it
// on any other status. The live set is not a history.
func (s *Store) ApplyOrder(o itdx.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.Live() {
		if _, ok := s.orders[o.OrderID]; !ok {
			s.orderSeq = append(s.orderSeq, o.OrderID)
		}
		s.orders[o.OrderID] = o
		return
	}
	if _, ok := s.orders[o.OrderID]; ok {
		delete(s.orders, o.OrderID)
		for i, id := range s.orderSeq {
			if id == o.OrderID {
				s.orderSeq = append(s.orderSeq[:i], s.orderSeq[i+1:]...)
				break
			}
		}
	}
}

// Snapshot is an isolated copy of the mirror. Strategies may cancel orders
// while scanning it without disturbing the live set. Topics may be mutually
// stale by one feed event; that window is accepted.
type Snapshot struct {
	Summaries map[string]itdx.Summary
	Margins   map[MarginKey]itdx.Margin
	Positions map[PositionKey]itdx.Position
	Orders    []itdx.Order
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		Summaries: make(map[string]itdx.Summary, len(s.summaries)),
		Margins:   make(map[MarginKey]itdx.Margin, len(s.margins)),
		Positions: make(map[PositionKey]itdx.Position, len(s.positions)),
		Orders:    make([]itdx.Order, 0, len(s.orderSeq)),
	}
	for k, v := range s.summaries {
		snap.Summaries[k] = v
	}
	for k, v := range s.margins {
		snap.Margins[k] = v
	}
	for k, v := range s.positions {
		snap.Positions[k] = v
	}
	for _, id := range s.orderSeq {
		if o, ok := s.orders[id]; ok {
			snap.Orders = append(snap.Orders, o)
		}
	}
	return snap
}

func (s Snapshot) MarkPrice(symbol string) (decimal.Decimal, bool) {
	summary, ok := s.Summaries[symbol]
	if !ok {
		return decimal.Decimal{}, false
	}
	return summary.MarkPrice, true
}

func (s Snapshot) Balance(accountID, asset string) (decimal.Decimal, bool) {
	margin, ok := s.Margins[MarginKey{AccountID: accountID, Asset: asset}]
	if !ok {
		return decimal.Decimal{}, false
	}
	return margin.MarketValue, true
}

// Position returns the signed quantity, zero when no position exists.
func (s Snapshot) Position(accountID, symbol string) decimal.Decimal {
	pos, ok := s.Positions[PositionKey{AccountID: accountID, Symbol: symbol}]
	if !ok {
		return decimal.Zero
	}
	return pos.Quantity
}
