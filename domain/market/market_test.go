package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterByPairKeepsOrder(t *testing.T) {
	deltas := []Delta{
		{Pair: "BTC-USD", Price: 1, Time: 3},
		{Pair: "BCH-USD", Price: 2, Time: 1},
		{Pair: "BTC-USD", Price: 3, Time: 2},
	}
	got := DeltasFor(deltas, "BTC-USD")
	assert.Equal(t, []Delta{deltas[0], deltas[2]}, got)
}

func TestSortIsStable(t *testing.T) {
	deltas := []Delta{
		{Price: 1, Time: 5},
		{Price: 2, Time: 1},
		{Price: 3, Time: 5},
		{Price: 4, Time: 1},
	}
	SortDeltas(deltas)
	var prices []float64
	for _, d := range deltas {
		prices = append(prices, d.Price)
	}
	assert.Equal(t, []float64{2, 4, 1, 3}, prices)

	trades := []Trade{{Price: 9, Time: 2}, {Price: 8, Time: 2}, {Price: 7, Time: 1}}
	SortTrades(trades)
	assert.Equal(t, 7.0, trades[0].Price)
	assert.Equal(t, 9.0, trades[1].Price)
}

func TestPairParts(t *testing.T) {
	p := Pair("BCH-BTC")
	assert.Equal(t, "BCH", p.Base())
	assert.Equal(t, "BTC", p.Quote())
	assert.Equal(t, "", Pair("BTC").Quote())
}
