package window

import (
	"bookreplay/domain/market"
	"bookreplay/domain/orderbook"
)

// Phase is the state of a Snapshotter.
type Phase uint8

const (
	// Filling means the cursor sits on a window that can still be closed.
	Filling Phase = iota
	// Final means the cursor sits on the last window, which is overwritten
	// after every delta until the stream ends.
	Final
	// Done means the delta stream has been exhausted.
	Done
)

func (p Phase) String() string {
	switch p {
	case Filling:
		return "FILLING"
	case Final:
		return "FINAL"
	case Done:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

// Snapshotter walks one pair's deltas in order, applying each to the book
// and copying the book's top into bars as window boundaries are crossed.
type Snapshotter struct {
	book   *orderbook.OrderBook
	bars   []Bar
	policy GapPolicy

	cursor int // 0-based index into bars
	phase  Phase
	closed int
}

// NewSnapshotter starts at the first window. bars must not be empty.
func NewSnapshotter(book *orderbook.OrderBook, bars []Bar, policy GapPolicy) *Snapshotter {
	s := &Snapshotter{book: book, bars: bars, policy: policy}
	if len(bars) == 1 {
		s.phase = Final
	}
	return s
}

// State returns the current phase and the 1-based window under the cursor.
func (s *Snapshotter) State() (Phase, int) {
	return s.phase, s.cursor + 1
}

// Closes reports whether an event at ts would start a window after the
// one under the cursor.
func (s *Snapshotter) Closes(ts int64) bool {
	return s.phase == Filling && ts > s.bars[s.cursor].EndTime
}

// Step applies d and, peeking at next (the timestamp of the following
// delta, or d.Time for the last one), closes windows as needed.
func (s *Snapshotter) Step(d market.Delta, next int64) {
	if s.phase == Done {
		return
	}
	if s.policy == CatchUp {
		for s.Closes(d.Time) {
			s.closeCurrent()
		}
	}

	s.book.ApplyDelta(d.Price, d.Amount)

	switch s.phase {
	case Filling:
		if !s.Closes(next) {
			return
		}
		s.closeCurrent()
		for s.policy == CatchUp && s.Closes(next) {
			s.closeCurrent()
		}
	case Final:
		s.record(s.cursor)
	}
}

// Run feeds every delta through Step and finishes the walk. It returns the
// number of windows closed before the final one.
func (s *Snapshotter) Run(deltas []market.Delta) int {
	for i, d := range deltas {
		next := d.Time
		if i+1 < len(deltas) {
			next = deltas[i+1].Time
		}
		s.Step(d, next)
	}
	s.Finish()
	return s.closed
}

func (s *Snapshotter) Finish() {
	s.phase = Done
}

func (s *Snapshotter) closeCurrent() {
	s.record(s.cursor)
	s.closed++
	s.cursor++
	if s.cursor == len(s.bars)-1 {
		s.phase = Final
	}
}

func (s *Snapshotter) record(i int) {
	q := s.book.Top()
	b := &s.bars[i]
	b.Spread = q.Spread
	b.Midpoint = q.Midpoint
	b.BidLiquidity = q.BidLiquidity
	b.AskLiquidity = q.AskLiquidity
}
