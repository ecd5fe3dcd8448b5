package window

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"bookreplay/domain/market"
	"bookreplay/domain/orderbook"
)

// Aggregator produces the bar series of a single pair.
type Aggregator struct {
	cfg  Config
	pair market.Pair
	book *orderbook.OrderBook
	bars []Bar
}

// Result is the outcome of one aggregation.
type Result struct {
	Pair          market.Pair
	Bars          []Bar
	Trades        TradeStats
	Deltas        int
	ClosedWindows int
}

func NewAggregator(cfg Config, pair market.Pair) (*Aggregator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("aggregator %s: %w", pair, err)
	}
	return &Aggregator{
		cfg:  cfg,
		pair: pair,
		book: orderbook.NewOrderBook(),
		bars: NewBars(cfg),
	}, nil
}

// Book exposes the pair's book as of the end of the snapshot pass.
func (a *Aggregator) Book() *orderbook.OrderBook { return a.book }

// Run performs the trade pass and the book-snapshot pass. Inputs may mix
// pairs; only records of the aggregator's pair are used.
func (a *Aggregator) Run(deltas []market.Delta, trades []market.Trade) Result {
	res := Result{Pair: a.pair}
	res.Trades = AggregateTrades(a.cfg, a.bars, trades, a.pair)

	own := market.DeltasFor(deltas, a.pair)
	res.Deltas = len(own)
	res.ClosedWindows = NewSnapshotter(a.book, a.bars, a.cfg.GapPolicy).Run(own)
	res.Bars = a.bars

	log.Info().
		Str("pair", string(a.pair)).
		Int("windows", len(a.bars)).
		Int("trades", res.Trades.Bucketed).
		Int("empty_windows", res.Trades.EmptyWindows).
		Int("deltas", res.Deltas).
		Msg("bars aggregated")
	return res
}
