// Package codec turns bars and arbitrage events into flat rows and
// serializes them for the wire. Undefined (NaN) values become null.
package codec

import (
	"math"

	"bookreplay/domain/arbitrage"
	"bookreplay/domain/market"
	"bookreplay/domain/window"
)

// Row is one output record keyed by column name.
type Row map[string]any

func num(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

// BarRow lays out the 14 bar columns plus the pair.
func BarRow(pair market.Pair, b window.Bar) Row {
	return Row{
		"pair":                 string(pair),
		"index":                float64(b.Index),
		"end_time":             float64(b.EndTime),
		"high":                 num(b.High),
		"low":                  num(b.Low),
		"last":                 num(b.Last),
		"volume":               num(b.Volume),
		"spread":               num(b.Spread),
		"midpoint":             num(b.Midpoint),
		"bid_liquidity":        num(b.BidLiquidity),
		"ask_liquidity":        num(b.AskLiquidity),
		"volatility_mid_1min":  num(b.VolMid1),
		"volatility_mid_3min":  num(b.VolMid3),
		"volatility_last_1min": num(b.VolLast1),
		"volatility_last_3min": num(b.VolLast3),
	}
}

// EventRow flattens an event with one weight column per pair of the graph.
func EventRow(ev arbitrage.Event, pairs []market.Pair) Row {
	row := Row{
		"seq":     float64(ev.Seq),
		"time":    float64(ev.Time),
		"cycle":   float64(ev.CycleID),
		"return":  num(ev.Return),
		"weights": weightList(ev.Weights),
	}
	for i, p := range pairs {
		if i < len(ev.Weights) {
			row[string(p)] = float64(ev.Weights[i])
		}
	}
	return row
}

func weightList(ws []int8) []any {
	out := make([]any, len(ws))
	for i, w := range ws {
		out[i] = float64(w)
	}
	return out
}
