// Package store persists replay results in pebble: per-pair window bars
// and arbitrage events, the latter doubling as the broadcaster's outbox.
package store

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"bookreplay/domain/arbitrage"
	"bookreplay/domain/market"
	"bookreplay/domain/window"
)

// -------------------- State --------------------

type OutboxState uint8

const (
	StateNew OutboxState = iota
	StateSent
	StateAcked
	StateFailed
)

func (s OutboxState) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateSent:
		return "SENT"
	case StateAcked:
		return "ACKED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// EventRecord is an arbitrage event plus its delivery state.
type EventRecord struct {
	arbitrage.Event
	State       OutboxState
	Retries     uint32
	LastAttempt int64
}

var ErrNotFound = errors.New("store: not found")

// -------------------- Store --------------------

type Config struct {
	Dir      string `yaml:"dir"`
	InMemory bool   `yaml:"in_memory"`
}

type Store struct {
	db *pebble.DB
}

func Open(cfg Config) (*Store, error) {
	opts := &pebble.Options{}
	if cfg.InMemory {
		opts.FS = vfs.NewMem()
		if cfg.Dir == "" {
			cfg.Dir = "mem"
		}
	}
	db, err := pebble.Open(cfg.Dir, opts)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", cfg.Dir, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// -------------------- Bars --------------------

// PutBars replaces every stored bar of pair with bars.
func (s *Store) PutBars(pair market.Pair, bars []window.Bar) error {
	b := s.db.NewBatch()
	defer b.Close()

	lo, hi := barBounds(pair)
	if err := b.DeleteRange(lo, hi, nil); err != nil {
		return err
	}
	for _, bar := range bars {
		if err := b.Set(barKey(pair, bar.Index), encodeBar(bar), nil); err != nil {
			return err
		}
	}
	return b.Commit(pebble.Sync)
}

// Bars returns the bars of pair in window order.
func (s *Store) Bars(pair market.Pair) ([]window.Bar, error) {
	lo, hi := barBounds(pair)
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lo, UpperBound: hi})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []window.Bar
	for iter.First(); iter.Valid(); iter.Next() {
		bar, err := decodeBar(iter.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, bar)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: bars for %s", ErrNotFound, pair)
	}
	return out, nil
}

// Pairs lists every pair with stored bars, sorted.
func (s *Store) Pairs() ([]market.Pair, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(barPrefix),
		UpperBound: []byte(barPrefix + "~"),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []market.Pair
	for iter.First(); iter.Valid(); iter.Next() {
		rest := bytes.TrimPrefix(iter.Key(), []byte(barPrefix))
		i := bytes.IndexByte(rest, '/')
		if i < 0 {
			return nil, fmt.Errorf("%w: key %q", ErrEncoding, iter.Key())
		}
		p := market.Pair(rest[:i])
		if len(out) == 0 || out[len(out)-1] != p {
			out = append(out, p)
		}
	}
	return out, iter.Error()
}

// -------------------- Events --------------------

// PutEvent stores ev as a NEW outbox entry. An event already stored under
// the same sequence with the same cycle, time and return keeps its
// delivery state, so re-running a replay does not resend it.
func (s *Store) PutEvent(ev arbitrage.Event) error {
	rec := EventRecord{Event: ev, State: StateNew}
	prev, err := s.Event(ev.Seq)
	switch {
	case err == nil && sameEvent(prev.Event, ev):
		rec.State, rec.Retries, rec.LastAttempt = prev.State, prev.Retries, prev.LastAttempt
	case err != nil && !errors.Is(err, ErrNotFound):
		return err
	}
	return s.db.Set(eventKey(ev.Seq), encodeEvent(rec), pebble.Sync)
}

// PruneEvents drops every event with a sequence number above last.
func (s *Store) PruneEvents(last uint64) error {
	return s.db.DeleteRange(eventKey(last+1), []byte(eventPrefix+"~"), pebble.Sync)
}

func sameEvent(a, b arbitrage.Event) bool {
	return a.CycleID == b.CycleID && a.Time == b.Time && a.Return == b.Return
}

func (s *Store) Event(seq uint64) (EventRecord, error) {
	val, closer, err := s.db.Get(eventKey(seq))
	if errors.Is(err, pebble.ErrNotFound) {
		return EventRecord{}, fmt.Errorf("%w: event %d", ErrNotFound, seq)
	}
	if err != nil {
		return EventRecord{}, err
	}
	defer closer.Close()

	return decodeEvent(val)
}

// Events returns every stored event in sequence order.
func (s *Store) Events() ([]EventRecord, error) {
	var out []EventRecord
	err := s.scanEvents(func(rec EventRecord) error {
		out = append(out, rec)
		return nil
	})
	return out, err
}

// ScanByState iterates events in the given state.
// This is used by the Broadcaster.
func (s *Store) ScanByState(state OutboxState, fn func(rec EventRecord) error) error {
	return s.scanEvents(func(rec EventRecord) error {
		if rec.State != state {
			return nil
		}
		return fn(rec)
	})
}

// UpdateState updates state after send / ack / failure.
func (s *Store) UpdateState(seq uint64, state OutboxState, retries uint32) error {
	rec, err := s.Event(seq)
	if err != nil {
		return err
	}
	rec.State = state
	rec.Retries = retries
	rec.LastAttempt = time.Now().UnixNano()
	return s.db.Set(eventKey(seq), encodeEvent(rec), pebble.Sync)
}

func (s *Store) scanEvents(fn func(rec EventRecord) error) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(eventPrefix),
		UpperBound: []byte(eventPrefix + "~"),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		rec, err := decodeEvent(iter.Value())
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return iter.Error()
}

// -------------------- Meta --------------------

// SetRunID records the id of the replay that produced the stored results.
func (s *Store) SetRunID(id string) error {
	return s.db.Set([]byte(runKey), []byte(id), pebble.Sync)
}

func (s *Store) RunID() (string, error) {
	val, closer, err := s.db.Get([]byte(runKey))
	if errors.Is(err, pebble.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	defer closer.Close()
	return string(val), nil
}

// -------------------- Helpers --------------------

const (
	barPrefix   = "bar/"
	eventPrefix = "arb/"
	runKey      = "meta/run"
)

func barKey(pair market.Pair, index int) []byte {
	return []byte(fmt.Sprintf("%s%s/%06d", barPrefix, pair, index))
}

func barBounds(pair market.Pair) (lo, hi []byte) {
	p := barPrefix + string(pair) + "/"
	return []byte(p), []byte(p + "~")
}

func eventKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", eventPrefix, seq))
}
