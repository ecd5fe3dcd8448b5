package journal

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"bookreplay/domain/market"
)

var (
	ErrCorrupt  = errors.New("journal: corrupt record")
	ErrSequence = errors.New("journal: non-monotonic sequence")
)

type ReplayHandler func(*Record) error

// Replay reads every segment of dir in order and hands each record to fn.
// It stops at the first corrupt frame, sequence regression or handler
// error, and returns the last sequence number delivered.
func Replay(dir string, fn ReplayHandler) (lastSeq uint64, err error) {
	files, err := segments(dir)
	if err != nil {
		return 0, err
	}

	for _, path := range files {
		lastSeq, err = replaySegment(path, lastSeq, fn)
		if err != nil {
			return lastSeq, fmt.Errorf("%s: %w", path, err)
		}
	}
	return lastSeq, nil
}

func replaySegment(path string, lastSeq uint64, fn ReplayHandler) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return lastSeq, err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	for {
		rec, err := readRecord(r)
		if err != nil {
			if err == io.EOF {
				return lastSeq, nil
			}
			return lastSeq, err
		}

		if rec.Seq <= lastSeq {
			return lastSeq, fmt.Errorf("%w: %d after %d", ErrSequence, rec.Seq, lastSeq)
		}
		lastSeq = rec.Seq

		if err := fn(rec); err != nil {
			return lastSeq, err
		}
	}
}

func readRecord(r io.Reader) (*Record, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("%w: truncated header", ErrCorrupt)
		}
		return nil, err
	}

	t := RecordType(header[0])
	seq := binary.BigEndian.Uint64(header[1:9])
	ts := binary.BigEndian.Uint64(header[9:17])
	l := binary.BigEndian.Uint32(header[17:21])
	if l > maxPayload {
		return nil, fmt.Errorf("%w: payload length %d at seq %d", ErrCorrupt, l, seq)
	}

	data := make([]byte, int(l)+4)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("%w: truncated payload of seq %d", ErrCorrupt, seq)
	}

	payload := data[:l]
	crc := binary.BigEndian.Uint32(data[l:])

	if !checksumValid(append(header, payload...), crc) {
		return nil, fmt.Errorf("%w: crc mismatch at seq %d", ErrCorrupt, seq)
	}

	return &Record{
		Type: t,
		Seq:  seq,
		Time: int64(ts),
		Data: payload,
	}, nil
}

// Load replays dir into delta and trade slices, each in journal order.
func Load(dir string) ([]market.Delta, []market.Trade, error) {
	var deltas []market.Delta
	var trades []market.Trade

	_, err := Replay(dir, func(rec *Record) error {
		switch rec.Type {
		case RecordDelta:
			d, err := rec.Delta()
			if err != nil {
				return err
			}
			deltas = append(deltas, d)
		case RecordTrade:
			t, err := rec.Trade()
			if err != nil {
				return err
			}
			trades = append(trades, t)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return deltas, trades, nil
}
