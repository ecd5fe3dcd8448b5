package main

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookreplay/config"
	"bookreplay/domain/market"
	"bookreplay/domain/window"
	"bookreplay/infra/codec"
	"bookreplay/infra/journal"
	"bookreplay/infra/metrics"
	"bookreplay/infra/store"
)

const sampleLines = `{"type":"delta","pair":"BTC-USD","price":10000,"amount":-1,"time":1}
{"type":"delta","pair":"BCH-BTC","price":0.03,"amount":-5,"time":2}
{"type":"delta","pair":"BCH-USD","price":301,"amount":2,"time":3}
{"type":"delta","pair":"BCH-USD","price":250,"amount":1,"time":15}

{"type":"trade","pair":"BTC-USD","price":12,"amount":1,"time":5}
{"type":"trade","pair":"BTC-USD","price":10,"amount":-2,"time":8}
{"type":"trade","pair":"ETH-USD","price":2000,"amount":1,"time":25}
`

func testConfig(t *testing.T) *config.Config {
	cfg := config.Defaults()
	cfg.Window = window.Config{Width: 10, Horizon: 3, GapPolicy: window.CatchUp}
	cfg.Journal.Dir = t.TempDir()
	cfg.Store = store.Config{InMemory: true}
	return &cfg
}

func TestRecordLines(t *testing.T) {
	cfg := testConfig(t)
	j, err := journal.Open(cfg.Journal)
	require.NoError(t, err)

	deltas, trades, err := recordLines(strings.NewReader(sampleLines), j)
	require.NoError(t, err)
	assert.Equal(t, 4, deltas)
	assert.Equal(t, 3, trades)
	assert.Equal(t, uint64(7), j.LastSeq())
	require.NoError(t, j.Close())

	ds, ts, err := journal.Load(cfg.Journal.Dir)
	require.NoError(t, err)
	require.Len(t, ds, 4)
	require.Len(t, ts, 3)
	assert.Equal(t, market.Delta{Pair: "BCH-BTC", Price: 0.03, Amount: -5, Time: 2}, ds[1])
	assert.Equal(t, market.Trade{Pair: "BTC-USD", Price: 10, Amount: -2, Time: 8}, ts[1])
}

func TestRecordLinesStopsAtBadLine(t *testing.T) {
	j, err := journal.Open(testConfig(t).Journal)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	in := `{"type":"delta","pair":"BTC-USD","price":1,"amount":1,"time":1}
{"type":"quote","pair":"BTC-USD","price":1,"amount":1,"time":2}
`
	deltas, _, err := recordLines(strings.NewReader(in), j)
	assert.ErrorIs(t, err, codec.ErrBadRow)
	assert.Contains(t, err.Error(), "line 2")
	assert.Equal(t, 1, deltas)
	assert.Equal(t, uint64(1), j.LastSeq())
}

func TestReplayMetricsAreServed(t *testing.T) {
	cfg := testConfig(t)
	j, err := journal.Open(cfg.Journal)
	require.NoError(t, err)
	_, _, err = recordLines(strings.NewReader(sampleLines), j)
	require.NoError(t, err)
	require.NoError(t, j.Close())

	st, err := store.Open(cfg.Store)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	reg := metrics.New()
	report, err := runReplay(context.Background(), cfg, st, reg)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Events)

	body := get(t, newRouter(st, reg, cfg.Arbitrage.Graph.Pairs), "/metrics").Body.String()
	assert.Contains(t, body, "bookreplay_replays_total 1")
	assert.Contains(t, body, `bookreplay_deltas_applied_total{pair="BTC-USD"} 1`)
	assert.Contains(t, body, "bookreplay_arbitrage_events_total")
}
