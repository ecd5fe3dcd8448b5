package store

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookreplay/domain/arbitrage"
	"bookreplay/domain/market"
	"bookreplay/domain/window"
)

func openMem(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleBars(n int) []window.Bar {
	bars := window.NewBars(window.Config{Width: 10, Horizon: n, GapPolicy: window.CatchUp})
	for i := range bars {
		bars[i].High = float64(100 + i)
		bars[i].Volume = float64(i)
	}
	return bars
}

func TestBarsRoundTripKeepsNaN(t *testing.T) {
	s := openMem(t)
	bars := sampleBars(3)
	require.NoError(t, s.PutBars("BTC-USD", bars))

	got, err := s.Bars("BTC-USD")
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := range bars {
		assert.Equal(t, bars[i].Index, got[i].Index)
		assert.Equal(t, bars[i].EndTime, got[i].EndTime)
		assert.Equal(t, bars[i].High, got[i].High)
		assert.True(t, math.IsNaN(got[i].Midpoint))
		assert.True(t, math.IsNaN(got[i].VolLast3))
	}
}

func TestPutBarsReplaces(t *testing.T) {
	s := openMem(t)
	require.NoError(t, s.PutBars("BTC-USD", sampleBars(5)))
	require.NoError(t, s.PutBars("BTC-USD", sampleBars(2)))

	got, err := s.Bars("BTC-USD")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestBarsOrderedBeyondNineWindows(t *testing.T) {
	s := openMem(t)
	require.NoError(t, s.PutBars("BTC-USD", sampleBars(12)))

	got, err := s.Bars("BTC-USD")
	require.NoError(t, err)
	for i, b := range got {
		assert.Equal(t, i+1, b.Index)
	}
}

func TestBarsUnknownPair(t *testing.T) {
	s := openMem(t)
	_, err := s.Bars("XRP-USD")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPairs(t *testing.T) {
	s := openMem(t)
	for _, p := range []market.Pair{"BTC-USD", "BCH-BTC", "BTC-EUR"} {
		require.NoError(t, s.PutBars(p, sampleBars(3)))
	}
	pairs, err := s.Pairs()
	require.NoError(t, err)
	assert.Equal(t, []market.Pair{"BCH-BTC", "BTC-EUR", "BTC-USD"}, pairs)
}

func TestEventOutbox(t *testing.T) {
	s := openMem(t)
	events := []arbitrage.Event{
		{Seq: 1, Time: 10, CycleID: 2, Return: 0.00333, Weights: []int8{1, 0, -1, 0, 1}},
		{Seq: 2, Time: 20, CycleID: 5, Return: 0.01, Weights: []int8{0, 1, 0, -1, -1}},
	}
	for _, ev := range events {
		require.NoError(t, s.PutEvent(ev))
	}

	all, err := s.Events()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, events[0], all[0].Event)
	assert.Equal(t, StateNew, all[0].State)

	require.NoError(t, s.UpdateState(1, StateAcked, 1))

	var pending []uint64
	require.NoError(t, s.ScanByState(StateNew, func(rec EventRecord) error {
		pending = append(pending, rec.Seq)
		return nil
	}))
	assert.Equal(t, []uint64{2}, pending)

	rec, err := s.Event(1)
	require.NoError(t, err)
	assert.Equal(t, StateAcked, rec.State)
	assert.Equal(t, uint32(1), rec.Retries)
	assert.NotZero(t, rec.LastAttempt)

	require.NoError(t, s.PruneEvents(0))
	all, err = s.Events()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRePutKeepsDeliveryState(t *testing.T) {
	s := openMem(t)
	ev := arbitrage.Event{Seq: 1, Time: 10, CycleID: 2, Return: 0.00333, Weights: []int8{1, 0, -1, 0, 1}}
	require.NoError(t, s.PutEvent(ev))
	require.NoError(t, s.PutEvent(arbitrage.Event{Seq: 2, Time: 11, CycleID: 3, Return: 0.1}))
	require.NoError(t, s.PutEvent(arbitrage.Event{Seq: 3, Time: 12, CycleID: 4, Return: 0.2}))
	require.NoError(t, s.UpdateState(1, StateAcked, 0))
	require.NoError(t, s.UpdateState(2, StateAcked, 0))

	// same event again: stays acknowledged
	require.NoError(t, s.PutEvent(ev))
	rec, err := s.Event(1)
	require.NoError(t, err)
	assert.Equal(t, StateAcked, rec.State)

	// a different event under a reused sequence is new
	require.NoError(t, s.PutEvent(arbitrage.Event{Seq: 2, Time: 11, CycleID: 3, Return: 0.2}))
	rec, err = s.Event(2)
	require.NoError(t, err)
	assert.Equal(t, StateNew, rec.State)

	require.NoError(t, s.PruneEvents(2))
	all, err := s.Events()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, uint64(2), all[1].Seq)
}

func TestUpdateStateMissing(t *testing.T) {
	s := openMem(t)
	assert.ErrorIs(t, s.UpdateState(99, StateSent, 0), ErrNotFound)
}

func TestRunID(t *testing.T) {
	s := openMem(t)
	id, err := s.RunID()
	require.NoError(t, err)
	assert.Empty(t, id)

	require.NoError(t, s.SetRunID("abc"))
	id, err = s.RunID()
	require.NoError(t, err)
	assert.Equal(t, "abc", id)
}

func TestDecodeRejectsShortInput(t *testing.T) {
	_, err := decodeBar([]byte{1, 2})
	assert.ErrorIs(t, err, ErrEncoding)
	_, err = decodeEvent(make([]byte, 10))
	assert.ErrorIs(t, err, ErrEncoding)
}

func TestOutboxStateString(t *testing.T) {
	assert.Equal(t, "NEW", StateNew.String())
	assert.Equal(t, "FAILED", StateFailed.String())
	assert.Equal(t, "UNKNOWN", OutboxState(9).String())
}
