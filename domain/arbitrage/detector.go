// Package arbitrage watches a fixed group of order books and reports
// conversion cycles whose compounded rate beats one.
package arbitrage

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"

	"bookreplay/domain/market"
	"bookreplay/domain/orderbook"
)

// Config bounds which cycle returns are reported.
type Config struct {
	Graph         Graph   `yaml:"graph"`
	DedupLookback int     `yaml:"dedup_lookback"`
	MinReturn     float64 `yaml:"min_return"`
	MaxReturn     float64 `yaml:"max_return"`
}

func DefaultConfig() Config {
	return Config{
		Graph:         DefaultGraph(),
		DedupLookback: 8,
		MinReturn:     0,
		MaxReturn:     2,
	}
}

func (c Config) Validate() error {
	if c.DedupLookback < 0 {
		return fmt.Errorf("%w: dedup lookback %d", ErrInvalidGraph, c.DedupLookback)
	}
	if !(c.MinReturn < c.MaxReturn) {
		return fmt.Errorf("%w: return bounds (%g, %g)", ErrInvalidGraph, c.MinReturn, c.MaxReturn)
	}
	return c.Graph.Validate()
}

// Event is one reported opportunity. Weights has one entry per pair of the
// graph: +1 when the cycle buys the pair's base, -1 when it sells it.
type Event struct {
	Seq     uint64
	Time    int64
	CycleID int
	Return  float64
	Weights []int8
}

// Detector owns one book per pair. Apply and every read are serialized so
// an evaluation always sees a consistent snapshot of all books.
type Detector struct {
	mu sync.Mutex

	cfg    Config
	pairs  []market.Pair
	index  map[market.Pair]int
	books  []*orderbook.OrderBook
	cycles []compiledCycle

	recent     *recent
	events     []Event
	suppressed int
	ignored    int
}

func NewDetector(cfg Config) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cycles, err := cfg.Graph.compile()
	if err != nil {
		return nil, err
	}

	d := &Detector{
		cfg:    cfg,
		pairs:  append([]market.Pair(nil), cfg.Graph.Pairs...),
		index:  make(map[market.Pair]int, len(cfg.Graph.Pairs)),
		books:  make([]*orderbook.OrderBook, len(cfg.Graph.Pairs)),
		cycles: cycles,
		recent: newRecent(cfg.DedupLookback),
	}
	for i, p := range d.pairs {
		d.index[p] = i
		d.books[i] = orderbook.NewOrderBook()
	}
	return d, nil
}

// Pairs returns the graph's pairs in weight order.
func (d *Detector) Pairs() []market.Pair {
	return append([]market.Pair(nil), d.pairs...)
}

// Apply updates the delta's book and evaluates every cycle. It returns the
// events recorded by this evaluation. Deltas for pairs outside the graph
// are ignored.
func (d *Detector) Apply(delta market.Delta) []Event {
	d.mu.Lock()
	defer d.mu.Unlock()

	i, ok := d.index[delta.Pair]
	if !ok {
		d.ignored++
		return nil
	}
	d.books[i].ApplyDelta(delta.Price, delta.Amount)
	return d.evaluate(delta.Time)
}

// Run applies deltas in order and returns the full event log.
func (d *Detector) Run(deltas []market.Delta) []Event {
	for _, delta := range deltas {
		d.Apply(delta)
	}
	return d.Events()
}

func (d *Detector) evaluate(ts int64) []Event {
	var out []Event
	for _, c := range d.cycles {
		r := d.cycleReturn(c)
		if !(r > d.cfg.MinReturn && r < d.cfg.MaxReturn) {
			continue
		}
		if d.recent.contains(c.id, r) {
			d.suppressed++
			continue
		}
		ev := Event{
			Seq:     uint64(len(d.events) + 1),
			Time:    ts,
			CycleID: c.id,
			Return:  r,
			Weights: append([]int8(nil), c.weights...),
		}
		d.events = append(d.events, ev)
		d.recent.add(c.id, r)
		out = append(out, ev)

		log.Info().
			Int("cycle", c.id).
			Float64("return", r).
			Int64("time", ts).
			Msg("arbitrage opportunity")
	}
	return out
}

// cycleReturn compounds the legs left to right. Empty sides contribute
// their +/-Inf sentinels, which push the result outside any finite bound.
func (d *Detector) cycleReturn(c compiledCycle) float64 {
	p := 1.0
	for _, l := range c.legs {
		b := d.books[l.pair]
		if l.buy {
			p /= b.BestAsk()
		} else {
			p *= b.BestBid()
		}
	}
	return Round(p-1, 5)
}

// CycleReturn reports the current rounded return of cycle id.
func (d *Detector) CycleReturn(id int) (float64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, c := range d.cycles {
		if c.id == id {
			return d.cycleReturn(c), true
		}
	}
	return 0, false
}

// Quote returns the top of one pair's book.
func (d *Detector) Quote(p market.Pair) (orderbook.Quote, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	i, ok := d.index[p]
	if !ok {
		return orderbook.Quote{}, false
	}
	return d.books[i].Top(), true
}

// Events returns a copy of the event log.
func (d *Detector) Events() []Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Event(nil), d.events...)
}

// Stats returns how many opportunities were suppressed as duplicates and
// how many deltas were ignored for pairs outside the graph.
func (d *Detector) Stats() (suppressed, ignored int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.suppressed, d.ignored
}

// Round rounds x to places decimals the way correctly rounded decimal
// formatting does: half-even on the exact binary value.
func Round(x float64, places int) float64 {
	v, err := strconv.ParseFloat(strconv.FormatFloat(x, 'f', places, 64), 64)
	if err != nil {
		return x
	}
	return v
}
