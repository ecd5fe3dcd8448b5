package orderbook

import (
	"fmt"
	"math"
)

// OrderBook is single-writer and deterministic.
type OrderBook struct {
	Bids *RBTree
	Asks *RBTree

	bestBid float64
	bestAsk float64
}

// Quote is a point-in-time view of the top of the book. Fields are NaN
// when the side they depend on is empty.
type Quote struct {
	BestBid      float64
	BestAsk      float64
	Spread       float64
	Midpoint     float64
	BidLiquidity float64
	AskLiquidity float64
}

// NewOrderBook creates a new empty order book.
func NewOrderBook() *OrderBook {
	return &OrderBook{
		Bids:    NewRBTree(),
		Asks:    NewRBTree(),
		bestBid: math.Inf(-1),
		bestAsk: math.Inf(1),
	}
}

// ApplyDelta is the only mutation entry point. A positive amount sets the
// bid level at price, a negative amount sets the ask level to |amount|, and
// zero removes the price from whichever side holds it. Non-finite prices
// and amounts are ignored.
func (b *OrderBook) ApplyDelta(price, amount float64) {
	if !finite(price) || !finite(amount) {
		return
	}
	// Upsert only fails on non-positive sizes, which the sign switch excludes.
	switch {
	case amount > 0:
		_ = b.Bids.Upsert(price, amount)
		if price > b.bestBid {
			b.bestBid = price
		}
	case amount < 0:
		_ = b.Asks.Upsert(price, -amount)
		if price < b.bestAsk {
			b.bestAsk = price
		}
	default:
		if b.Bids.Remove(price) && price == b.bestBid {
			b.bestBid = maxOr(b.Bids, math.Inf(-1))
		}
		if b.Asks.Remove(price) && price == b.bestAsk {
			b.bestAsk = minOr(b.Asks, math.Inf(1))
		}
	}
}

// BestBid returns the highest bid price, or -Inf when there are no bids.
func (b *OrderBook) BestBid() float64 { return b.bestBid }

// BestAsk returns the lowest ask price, or +Inf when there are no asks.
func (b *OrderBook) BestAsk() float64 { return b.bestAsk }

// TwoSided reports whether both sides hold at least one level.
func (b *OrderBook) TwoSided() bool {
	return b.Bids.Size() > 0 && b.Asks.Size() > 0
}

func (b *OrderBook) Spread() float64 {
	if !b.TwoSided() {
		return math.NaN()
	}
	return b.bestAsk - b.bestBid
}

func (b *OrderBook) Midpoint() float64 {
	if !b.TwoSided() {
		return math.NaN()
	}
	return (b.bestAsk + b.bestBid) / 2
}

// Liquidity sums resting size within twice the spread of each best price,
// best prices included.
func (b *OrderBook) Liquidity() (bid, ask float64) {
	s := b.Spread()
	if math.IsNaN(s) {
		return math.NaN(), math.NaN()
	}
	bid = b.Bids.RangeSum(b.bestBid-2*s, b.bestBid, true, true)
	ask = b.Asks.RangeSum(b.bestAsk, b.bestAsk+2*s, true, true)
	return bid, ask
}

func (b *OrderBook) Top() Quote {
	q := Quote{
		BestBid:  b.bestBid,
		BestAsk:  b.bestAsk,
		Spread:   b.Spread(),
		Midpoint: b.Midpoint(),
	}
	q.BidLiquidity, q.AskLiquidity = b.Liquidity()
	return q
}

// ---- traversal helpers ----

func (b *OrderBook) BidsWalk(fn func(*PriceLevel) bool) {
	b.Bids.ForEachDescending(fn)
}

func (b *OrderBook) AsksWalk(fn func(*PriceLevel) bool) {
	b.Asks.ForEachAscending(fn)
}

func (b *OrderBook) String() string {
	return fmt.Sprintf("bids=%s asks=%s best=%g/%g spread=%g",
		b.Bids, b.Asks, b.bestBid, b.bestAsk, b.Spread())
}

func maxOr(t *RBTree, empty float64) float64 {
	v, err := t.Max()
	if err != nil {
		return empty
	}
	return v
}

func minOr(t *RBTree, empty float64) float64 {
	v, err := t.Min()
	if err != nil {
		return empty
	}
	return v
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
