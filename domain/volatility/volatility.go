// Package volatility derives rolling realized-volatility columns from a
// bar series.
package volatility

import (
	"errors"
	"fmt"
	"math"

	"bookreplay/domain/window"
)

var ErrInvalidSeries = errors.New("volatility: invalid series")

// Field selects the price column a series is computed from.
type Field string

const (
	Midpoint Field = "midpoint"
	Last     Field = "last"
)

// Column selects the bar column a series is written to.
type Column string

const (
	ColMid1  Column = "volatility_mid_1min"
	ColMid3  Column = "volatility_mid_3min"
	ColLast1 Column = "volatility_last_1min"
	ColLast3 Column = "volatility_last_3min"
)

// Series is one (price field, return lag, window length) triple.
type Series struct {
	Field  Field  `yaml:"field"`
	Lag    int    `yaml:"lag"`
	Window int    `yaml:"window"`
	Column Column `yaml:"column"`
}

// DefaultSeries are the four columns carried by every bar.
func DefaultSeries() []Series {
	return []Series{
		{Field: Midpoint, Lag: 1, Window: 10, Column: ColMid1},
		{Field: Midpoint, Lag: 3, Window: 10, Column: ColMid3},
		{Field: Last, Lag: 1, Window: 10, Column: ColLast1},
		{Field: Last, Lag: 3, Window: 10, Column: ColLast3},
	}
}

func (s Series) Validate() error {
	if s.Field != Midpoint && s.Field != Last {
		return fmt.Errorf("%w: field %q", ErrInvalidSeries, s.Field)
	}
	if s.Lag <= 0 || s.Window <= 0 {
		return fmt.Errorf("%w: lag %d window %d", ErrInvalidSeries, s.Lag, s.Window)
	}
	switch s.Column {
	case ColMid1, ColMid3, ColLast1, ColLast3:
	default:
		return fmt.Errorf("%w: column %q", ErrInvalidSeries, s.Column)
	}
	return nil
}

// Returns computes r[j] = (p[j+lag] - p[j]) / p[j]. A zero or NaN price
// yields a non-finite cell rather than an error.
func Returns(prices []float64, lag int) []float64 {
	if lag <= 0 || len(prices) <= lag {
		return nil
	}
	r := make([]float64, len(prices)-lag)
	for j := range r {
		r[j] = (prices[j+lag] - prices[j]) / prices[j]
	}
	return r
}

// Rolling computes the population standard deviation of each length-k
// window r[i:i+k] for i in [0, len(r)-k), left-padded with NaN to length n.
func Rolling(r []float64, k, n int) []float64 {
	out := make([]float64, n)
	m := len(r) - k
	if m < 0 {
		m = 0
	}
	if m > n {
		m = n
	}
	pad := n - m
	for i := 0; i < pad; i++ {
		out[i] = math.NaN()
	}
	for i := 0; i < m; i++ {
		out[pad+i] = stddev(r[i : i+k])
	}
	return out
}

// Compute returns the volatility column for s over prices.
func Compute(prices []float64, s Series) []float64 {
	return Rolling(Returns(prices, s.Lag), s.Window, len(prices))
}

// Fill computes every series and writes it into bars.
func Fill(bars []window.Bar, series []Series) error {
	for _, s := range series {
		if err := s.Validate(); err != nil {
			return err
		}
		v := Compute(prices(bars, s.Field), s)
		for i := range bars {
			*column(&bars[i], s.Column) = v[i]
		}
	}
	return nil
}

func prices(bars []window.Bar, f Field) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		if f == Midpoint {
			out[i] = b.Midpoint
		} else {
			out[i] = b.Last
		}
	}
	return out
}

func column(b *window.Bar, c Column) *float64 {
	switch c {
	case ColMid1:
		return &b.VolMid1
	case ColMid3:
		return &b.VolMid3
	case ColLast1:
		return &b.VolLast1
	default:
		return &b.VolLast3
	}
}

// stddev is two-pass so that a constant window gives exactly zero.
func stddev(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)))
}
