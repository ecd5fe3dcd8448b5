package window

import (
	"math"

	"github.com/rs/zerolog/log"

	"bookreplay/domain/market"
)

// TradeStats summarises one trade pass.
type TradeStats struct {
	Bucketed     int
	OutOfHorizon int
	EmptyWindows int
}

// AggregateTrades fills High, Low, Last and Volume of bars from the trades
// of pair. Trades are assigned by timestamp, so input order only matters
// to break ties between trades sharing the latest timestamp of a window.
func AggregateTrades(c Config, bars []Bar, trades []market.Trade, pair market.Pair) TradeStats {
	var stats TradeStats
	count := make([]int, len(bars))
	lastTime := make([]int64, len(bars))

	for _, t := range trades {
		if t.Pair != pair {
			continue
		}
		i, ok := c.WindowOf(t.Time)
		if !ok || i > len(bars) {
			stats.OutOfHorizon++
			continue
		}
		b := &bars[i-1]
		n := count[i-1]
		if n == 0 {
			b.High, b.Low = t.Price, t.Price
			b.Last, lastTime[i-1] = t.Price, t.Time
		} else {
			b.High = math.Max(b.High, t.Price)
			b.Low = math.Min(b.Low, t.Price)
			if t.Time >= lastTime[i-1] {
				b.Last, lastTime[i-1] = t.Price, t.Time
			}
		}
		b.Volume += math.Abs(t.Amount)
		count[i-1] = n + 1
		stats.Bucketed++
	}

	for i, n := range count {
		if n > 0 {
			continue
		}
		stats.EmptyWindows++
		bars[i].Volume = 0
		log.Debug().
			Str("pair", string(pair)).
			Int("window", bars[i].Index).
			Int64("end", bars[i].EndTime).
			Msg("no trades in window")
	}
	if stats.OutOfHorizon > 0 {
		log.Debug().
			Str("pair", string(pair)).
			Int("trades", stats.OutOfHorizon).
			Msg("trades past the last window ignored")
	}
	return stats
}
