package orderbook

import (
	"math/rand"
	"testing"
)

func BenchmarkApplyDelta(b *testing.B) {
	book := NewOrderBook()
	rng := rand.New(rand.NewSource(1))
	prices := make([]float64, 1<<12)
	amounts := make([]float64, len(prices))
	for i := range prices {
		prices[i] = float64(9000 + rng.Intn(2000))
		switch {
		case prices[i] < 10000:
			amounts[i] = float64(rng.Intn(5))
		default:
			amounts[i] = -float64(rng.Intn(5))
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		j := i & (len(prices) - 1)
		book.ApplyDelta(prices[j], amounts[j])
	}
}

func BenchmarkLiquidity(b *testing.B) {
	book := NewOrderBook()
	for i := 0; i < 10000; i++ {
		book.ApplyDelta(float64(10000-i), 1)
		book.ApplyDelta(float64(10001+i), -1)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = book.Liquidity()
	}
}
