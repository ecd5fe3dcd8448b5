package window

import (
	"errors"
	"fmt"
	"math"
)

// GapPolicy decides how the book-snapshot walk handles a gap between two
// deltas that spans more than one window boundary.
type GapPolicy string

const (
	// AdvanceOne closes a single window per detected crossing. Windows
	// skipped by a long gap keep undefined snapshots until the cursor
	// catches up on later crossings.
	AdvanceOne GapPolicy = "advance-one"
	// CatchUp closes every window the gap crosses, each with the book
	// state that was in force at its end.
	CatchUp GapPolicy = "catch-up"
)

var ErrInvalidConfig = errors.New("window: invalid config")

// Config describes the window grid.
type Config struct {
	Width     int64     `yaml:"width_us"`
	Horizon   int       `yaml:"horizon"`
	GapPolicy GapPolicy `yaml:"gap_policy"`
}

// DefaultConfig is one-minute windows over eight hours of microsecond
// timestamps.
func DefaultConfig() Config {
	return Config{
		Width:     60_000_000,
		Horizon:   480,
		GapPolicy: CatchUp,
	}
}

func (c Config) Validate() error {
	if c.Width <= 0 {
		return fmt.Errorf("%w: width %d", ErrInvalidConfig, c.Width)
	}
	if c.Horizon <= 0 {
		return fmt.Errorf("%w: horizon %d", ErrInvalidConfig, c.Horizon)
	}
	switch c.GapPolicy {
	case AdvanceOne, CatchUp:
	default:
		return fmt.Errorf("%w: gap policy %q", ErrInvalidConfig, c.GapPolicy)
	}
	return nil
}

// End returns the closing timestamp of 1-based window i.
func (c Config) End(i int) int64 {
	return int64(i) * c.Width
}

// WindowOf returns the 1-based window holding ts. It reports false for
// timestamps past the horizon.
func (c Config) WindowOf(ts int64) (int, bool) {
	if ts <= 0 {
		return 1, true
	}
	i := int((ts-1)/c.Width) + 1
	if i > c.Horizon {
		return 0, false
	}
	return i, true
}

// Bar is the summary of one window. Undefined values are NaN.
type Bar struct {
	Index   int
	EndTime int64

	High   float64
	Low    float64
	Last   float64
	Volume float64

	Spread       float64
	Midpoint     float64
	BidLiquidity float64
	AskLiquidity float64

	VolMid1  float64
	VolMid3  float64
	VolLast1 float64
	VolLast3 float64
}

// NewBars lays out one empty bar per window.
func NewBars(c Config) []Bar {
	nan := math.NaN()
	bars := make([]Bar, c.Horizon)
	for i := range bars {
		bars[i] = Bar{
			Index:        i + 1,
			EndTime:      c.End(i + 1),
			High:         nan,
			Low:          nan,
			Last:         nan,
			Spread:       nan,
			Midpoint:     nan,
			BidLiquidity: nan,
			AskLiquidity: nan,
			VolMid1:      nan,
			VolMid3:      nan,
			VolLast1:     nan,
			VolLast3:     nan,
		}
	}
	return bars
}
