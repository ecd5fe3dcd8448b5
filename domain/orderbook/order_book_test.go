package orderbook

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyBookSentinels(t *testing.T) {
	book := NewOrderBook()
	assert.True(t, math.IsInf(book.BestBid(), -1))
	assert.True(t, math.IsInf(book.BestAsk(), 1))
	assert.True(t, math.IsNaN(book.Spread()))
	assert.True(t, math.IsNaN(book.Midpoint()))

	bid, ask := book.Liquidity()
	assert.True(t, math.IsNaN(bid))
	assert.True(t, math.IsNaN(ask))
}

func TestOneSidedBookIsUndefined(t *testing.T) {
	book := NewOrderBook()
	book.ApplyDelta(100, 1)
	assert.Equal(t, 100.0, book.BestBid())
	assert.True(t, math.IsNaN(book.Spread()))
	assert.True(t, math.IsNaN(book.Top().Midpoint))
}

func TestTopOfBookScenario(t *testing.T) {
	book := NewOrderBook()
	book.ApplyDelta(100, 2)
	book.ApplyDelta(99, 1)
	book.ApplyDelta(101, -3)
	book.ApplyDelta(102, -1)

	assert.Equal(t, 100.0, book.BestBid())
	assert.Equal(t, 101.0, book.BestAsk())
	assert.Equal(t, 1.0, book.Spread())
	assert.Equal(t, 100.5, book.Midpoint())

	bid, ask := book.Liquidity()
	assert.Equal(t, 3.0, bid)
	assert.Equal(t, 4.0, ask)

	q := book.Top()
	assert.Equal(t, Quote{
		BestBid: 100, BestAsk: 101, Spread: 1, Midpoint: 100.5,
		BidLiquidity: 3, AskLiquidity: 4,
	}, q)
}

func TestLiquidityIgnoresLevelsOutsideBand(t *testing.T) {
	book := NewOrderBook()
	book.ApplyDelta(100, 2)
	book.ApplyDelta(97.5, 10) // below 100 - 2*1
	book.ApplyDelta(101, -3)
	book.ApplyDelta(103.5, -7) // above 101 + 2*1

	bid, ask := book.Liquidity()
	assert.Equal(t, 2.0, bid)
	assert.Equal(t, 3.0, ask)
}

func TestZeroAmountRemovesAndRecomputesBest(t *testing.T) {
	book := NewOrderBook()
	book.ApplyDelta(100, 2)
	book.ApplyDelta(99, 1)
	book.ApplyDelta(101, -3)
	book.ApplyDelta(102, -1)

	book.ApplyDelta(100, 0)
	assert.Equal(t, 99.0, book.BestBid())
	book.ApplyDelta(101, 0)
	assert.Equal(t, 102.0, book.BestAsk())

	book.ApplyDelta(99, 0)
	book.ApplyDelta(102, 0)
	assert.True(t, math.IsInf(book.BestBid(), -1))
	assert.True(t, math.IsInf(book.BestAsk(), 1))
	assert.Equal(t, 0, book.Bids.Size()+book.Asks.Size())
}

func TestZeroAmountForUnknownPriceIsNoop(t *testing.T) {
	book := NewOrderBook()
	book.ApplyDelta(100, 2)
	book.ApplyDelta(101, -3)
	before := book.String()

	book.ApplyDelta(55, 0)
	assert.Equal(t, before, book.String())
	assert.Equal(t, []PriceLevel{{Price: 100, Size: 2}}, book.Bids.Levels())
	assert.Equal(t, []PriceLevel{{Price: 101, Size: 3}}, book.Asks.Levels())
}

func TestNonFiniteDeltasAreIgnored(t *testing.T) {
	book := NewOrderBook()
	book.ApplyDelta(100, 2)
	book.ApplyDelta(101, -3)
	before := book.String()

	book.ApplyDelta(102, math.Inf(1))
	book.ApplyDelta(99, math.Inf(-1))
	book.ApplyDelta(math.Inf(1), 1)
	book.ApplyDelta(math.NaN(), -1)
	book.ApplyDelta(100, math.NaN())

	assert.Equal(t, before, book.String())
	assert.Equal(t, 100.0, book.BestBid())
	assert.Equal(t, 101.0, book.BestAsk())
}

func TestUpdatingBestLevelKeepsIt(t *testing.T) {
	book := NewOrderBook()
	book.ApplyDelta(100, 2)
	book.ApplyDelta(100, 5)
	assert.Equal(t, 100.0, book.BestBid())
	assert.Equal(t, 5.0, book.Bids.Find(100).Size)
}

// TestBestPricesMatchBruteForce replays random deltas and compares the
// cached best prices and liquidity against a scan of shadow maps.
func TestBestPricesMatchBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	book := NewOrderBook()
	bids := map[float64]float64{}
	asks := map[float64]float64{}

	for i := 0; i < 4000; i++ {
		var price, amount float64
		switch rng.Intn(4) {
		case 0:
			price = float64(90 + rng.Intn(10))
			amount = float64(rng.Intn(9) + 1)
			bids[price] = amount
		case 1:
			price = float64(100 + rng.Intn(10))
			amount = -float64(rng.Intn(9) + 1)
			asks[price] = -amount
		default:
			price = float64(90 + rng.Intn(20))
			delete(bids, price)
			delete(asks, price)
		}
		book.ApplyDelta(price, amount)

		wantBid, wantAsk := math.Inf(-1), math.Inf(1)
		for p := range bids {
			wantBid = math.Max(wantBid, p)
		}
		for p := range asks {
			wantAsk = math.Min(wantAsk, p)
		}
		require.Equal(t, wantBid, book.BestBid(), "step %d", i)
		require.Equal(t, wantAsk, book.BestAsk(), "step %d", i)

		if len(bids) == 0 || len(asks) == 0 {
			continue
		}
		s := wantAsk - wantBid
		var wantBidLiq, wantAskLiq float64
		for p, v := range bids {
			if p >= wantBid-2*s && p <= wantBid {
				wantBidLiq += v
			}
		}
		for p, v := range asks {
			if p >= wantAsk && p <= wantAsk+2*s {
				wantAskLiq += v
			}
		}
		gotBid, gotAsk := book.Liquidity()
		require.InDelta(t, wantBidLiq, gotBid, 1e-9, "step %d", i)
		require.InDelta(t, wantAskLiq, gotAsk, 1e-9, "step %d", i)
	}
}

func TestWalkOrder(t *testing.T) {
	book := NewOrderBook()
	book.ApplyDelta(99, 1)
	book.ApplyDelta(100, 1)
	book.ApplyDelta(102, -1)
	book.ApplyDelta(101, -1)

	var bids, asks []float64
	book.BidsWalk(func(pl *PriceLevel) bool { bids = append(bids, pl.Price); return true })
	book.AsksWalk(func(pl *PriceLevel) bool { asks = append(asks, pl.Price); return true })
	assert.Equal(t, []float64{100, 99}, bids)
	assert.Equal(t, []float64{101, 102}, asks)
}
