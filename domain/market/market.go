// Package market defines the immutable input records consumed by the
// replay: order-book deltas and executed trades.
package market

import (
	"fmt"
	"sort"
	"strings"
)

// Pair names a traded currency pair, base first: "BTC-USD".
type Pair string

// Base returns the asset being priced, "BTC" for "BTC-USD".
func (p Pair) Base() string {
	base, _, _ := strings.Cut(string(p), "-")
	return base
}

// Quote returns the pricing currency, "USD" for "BTC-USD".
func (p Pair) Quote() string {
	_, quote, _ := strings.Cut(string(p), "-")
	return quote
}

// Delta is a change to one price level of one pair's book. A positive
// amount sets a bid level, a negative amount sets an ask level to |Amount|,
// and zero removes the level.
type Delta struct {
	Pair   Pair
	Price  float64
	Amount float64
	Time   int64 // microseconds from the replay epoch
}

// Trade is an executed trade. The sign of Amount is the aggressor side.
type Trade struct {
	Pair   Pair
	Price  float64
	Amount float64
	Time   int64
}

func (d Delta) String() string {
	return fmt.Sprintf("%s %g@%g t=%d", d.Pair, d.Amount, d.Price, d.Time)
}

func (t Trade) String() string {
	return fmt.Sprintf("%s trade %g@%g t=%d", t.Pair, t.Amount, t.Price, t.Time)
}

// DeltasFor returns the deltas of one pair, preserving input order.
func DeltasFor(deltas []Delta, pair Pair) []Delta {
	out := make([]Delta, 0, len(deltas)/4)
	for _, d := range deltas {
		if d.Pair == pair {
			out = append(out, d)
		}
	}
	return out
}

// SortDeltas orders deltas by time, keeping arrival order for equal times.
func SortDeltas(deltas []Delta) {
	sort.SliceStable(deltas, func(i, j int) bool { return deltas[i].Time < deltas[j].Time })
}

// SortTrades orders trades by time, keeping arrival order for equal times.
func SortTrades(trades []Trade) {
	sort.SliceStable(trades, func(i, j int) bool { return trades[i].Time < trades[j].Time })
}
