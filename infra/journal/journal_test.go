package journal

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookreplay/domain/market"
)

func writeSample(t *testing.T, j *Journal, n int) []market.Delta {
	t.Helper()
	out := make([]market.Delta, 0, n)
	for i := 0; i < n; i++ {
		d := market.Delta{Pair: "BTC-USD", Price: 100 + float64(i), Amount: float64(i%3 - 1), Time: int64(i * 1000)}
		require.NoError(t, j.AppendDelta(d))
		out = append(out, d)
	}
	return out
}

func TestJournalRoundTrip(t *testing.T) {
	dir := t.TempDir()
	j, err := Open(Config{Dir: dir})
	require.NoError(t, err)

	deltas := writeSample(t, j, 5)
	trade := market.Trade{Pair: "BCH-BTC", Price: 0.03, Amount: -2.5, Time: -7}
	require.NoError(t, j.AppendTrade(trade))
	require.NoError(t, j.Close())

	gotDeltas, gotTrades, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, deltas, gotDeltas)
	assert.Equal(t, []market.Trade{trade}, gotTrades)
}

func TestJournalPreservesNaN(t *testing.T) {
	dir := t.TempDir()
	j, err := Open(Config{Dir: dir})
	require.NoError(t, err)
	require.NoError(t, j.AppendDelta(market.Delta{Pair: "BTC-EUR", Price: math.NaN(), Amount: 1}))
	require.NoError(t, j.Close())

	deltas, _, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, deltas, 1)
	assert.True(t, math.IsNaN(deltas[0].Price))
}

func TestJournalRotation(t *testing.T) {
	dir := t.TempDir()
	j, err := Open(Config{Dir: dir, SegmentSize: 100})
	require.NoError(t, err)

	deltas := writeSample(t, j, 10)
	require.NoError(t, j.Close())

	files, err := segments(dir)
	require.NoError(t, err)
	assert.Greater(t, len(files), 1)

	got, _, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, deltas, got)
}

func TestJournalResumeSequence(t *testing.T) {
	dir := t.TempDir()
	j, err := Open(Config{Dir: dir, SegmentSize: 100})
	require.NoError(t, err)
	writeSample(t, j, 4)
	require.NoError(t, j.Close())

	j, err = Open(Config{Dir: dir, SegmentSize: 100})
	require.NoError(t, err)
	assert.Equal(t, uint64(4), j.LastSeq())
	writeSample(t, j, 2)
	require.NoError(t, j.Close())

	var seqs []uint64
	last, err := Replay(dir, func(r *Record) error {
		seqs = append(seqs, r.Seq)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(6), last)
	assert.Equal(t, []uint64{1, 2, 3, 4, 5, 6}, seqs)
}

func TestReplayDetectsCorruption(t *testing.T) {
	dir := t.TempDir()
	j, err := Open(Config{Dir: dir})
	require.NoError(t, err)
	writeSample(t, j, 3)
	require.NoError(t, j.Close())

	path := segmentPath(dir, 0)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[headerSize+2] ^= 0xff
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	_, _, err = Load(dir)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestReplayDetectsTruncation(t *testing.T) {
	dir := t.TempDir()
	j, err := Open(Config{Dir: dir})
	require.NoError(t, err)
	writeSample(t, j, 2)
	require.NoError(t, j.Close())

	path := segmentPath(dir, 0)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw[:len(raw)-3], 0o644))

	var n int
	_, err = Replay(dir, func(*Record) error { n++; return nil })
	assert.ErrorIs(t, err, ErrCorrupt)
	assert.Equal(t, 1, n)
}

func TestRecordTypeMismatch(t *testing.T) {
	r, err := TradeRecord(market.Trade{Pair: "BTC-USD", Price: 1, Amount: 1})
	require.NoError(t, err)
	_, err = r.Delta()
	assert.ErrorIs(t, err, ErrPayload)

	_, _, _, err = decodeLevel([]byte{9, 'x'})
	assert.ErrorIs(t, err, ErrPayload)
}

func TestAppendRejectsOversizedPair(t *testing.T) {
	dir := t.TempDir()
	j, err := Open(Config{Dir: dir})
	require.NoError(t, err)

	long := market.Pair(strings.Repeat("X", 256))
	assert.ErrorIs(t, j.AppendDelta(market.Delta{Pair: long, Price: 1, Amount: 1}), ErrPayload)
	assert.ErrorIs(t, j.AppendTrade(market.Trade{Pair: "", Price: 1, Amount: 1}), ErrPayload)
	assert.Zero(t, j.LastSeq())

	widest := market.Pair(strings.Repeat("X", 255))
	require.NoError(t, j.AppendDelta(market.Delta{Pair: widest, Price: 1, Amount: 1}))
	require.NoError(t, j.Close())

	deltas, _, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, deltas, 1)
	assert.Equal(t, widest, deltas[0].Pair)
}

func TestReplayRejectsOversizedLength(t *testing.T) {
	for _, l := range []uint32{0xFFFFFFFE, maxPayload + 1} {
		header := make([]byte, headerSize)
		header[0] = byte(RecordDelta)
		binary.BigEndian.PutUint64(header[1:9], 1)
		binary.BigEndian.PutUint32(header[17:21], l)
		frame := append(header, 0xAA, 0xBB)

		_, err := readRecord(bytes.NewReader(frame))
		assert.ErrorIs(t, err, ErrCorrupt, "len=%d", l)
	}
}
