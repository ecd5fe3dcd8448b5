package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"bookreplay/domain/arbitrage"
	"bookreplay/domain/window"
)

var ErrEncoding = errors.New("store: invalid encoding")

const barSize = 4 + 8 + 12*8

func barFields(b *window.Bar) []*float64 {
	return []*float64{
		&b.High, &b.Low, &b.Last, &b.Volume,
		&b.Spread, &b.Midpoint, &b.BidLiquidity, &b.AskLiquidity,
		&b.VolMid1, &b.VolMid3, &b.VolLast1, &b.VolLast3,
	}
}

// binary encoding: [index:4][endTime:8][12 x float64 bits]
func encodeBar(b window.Bar) []byte {
	buf := make([]byte, barSize)
	binary.BigEndian.PutUint32(buf[0:4], uint32(b.Index))
	binary.BigEndian.PutUint64(buf[4:12], uint64(b.EndTime))
	off := 12
	for _, f := range barFields(&b) {
		binary.BigEndian.PutUint64(buf[off:], math.Float64bits(*f))
		off += 8
	}
	return buf
}

func decodeBar(buf []byte) (window.Bar, error) {
	if len(buf) != barSize {
		return window.Bar{}, fmt.Errorf("%w: bar length %d", ErrEncoding, len(buf))
	}
	var b window.Bar
	b.Index = int(binary.BigEndian.Uint32(buf[0:4]))
	b.EndTime = int64(binary.BigEndian.Uint64(buf[4:12]))
	off := 12
	for _, f := range barFields(&b) {
		*f = math.Float64frombits(binary.BigEndian.Uint64(buf[off:]))
		off += 8
	}
	return b, nil
}

// binary encoding:
// [seq:8][time:8][cycle:4][return:8][n:1][weights:n]
// [state:1][retries:4][lastAttempt:8]
func encodeEvent(r EventRecord) []byte {
	n := len(r.Weights)
	buf := make([]byte, 8+8+4+8+1+n+1+4+8)
	binary.BigEndian.PutUint64(buf[0:8], r.Seq)
	binary.BigEndian.PutUint64(buf[8:16], uint64(r.Time))
	binary.BigEndian.PutUint32(buf[16:20], uint32(r.CycleID))
	binary.BigEndian.PutUint64(buf[20:28], math.Float64bits(r.Return))
	buf[28] = byte(n)
	for i, w := range r.Weights {
		buf[29+i] = byte(w)
	}
	off := 29 + n
	buf[off] = byte(r.State)
	binary.BigEndian.PutUint32(buf[off+1:off+5], r.Retries)
	binary.BigEndian.PutUint64(buf[off+5:off+13], uint64(r.LastAttempt))
	return buf
}

func decodeEvent(buf []byte) (EventRecord, error) {
	if len(buf) < 29 {
		return EventRecord{}, fmt.Errorf("%w: event length %d", ErrEncoding, len(buf))
	}
	n := int(buf[28])
	if len(buf) != 29+n+13 {
		return EventRecord{}, fmt.Errorf("%w: event length %d for %d weights", ErrEncoding, len(buf), n)
	}
	weights := make([]int8, n)
	for i := range weights {
		weights[i] = int8(buf[29+i])
	}
	off := 29 + n
	return EventRecord{
		Event: arbitrage.Event{
			Seq:     binary.BigEndian.Uint64(buf[0:8]),
			Time:    int64(binary.BigEndian.Uint64(buf[8:16])),
			CycleID: int(binary.BigEndian.Uint32(buf[16:20])),
			Return:  math.Float64frombits(binary.BigEndian.Uint64(buf[20:28])),
			Weights: weights,
		},
		State:       OutboxState(buf[off]),
		Retries:     binary.BigEndian.Uint32(buf[off+1 : off+5]),
		LastAttempt: int64(binary.BigEndian.Uint64(buf[off+5 : off+13])),
	}, nil
}
