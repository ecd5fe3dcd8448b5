package service

import (
	"fmt"
	"io"
	"time"

	"bookreplay/domain/market"
	"bookreplay/domain/window"
)

// Report summarises one replay.
type Report struct {
	RunID      string
	Pairs      []PairReport
	Events     int
	Suppressed int
	Ignored    int
	Duration   time.Duration
}

type PairReport struct {
	Pair          market.Pair
	Deltas        int
	Trades        int
	OutOfHorizon  int
	EmptyWindows  int
	ClosedWindows int
}

func pairReport(res window.Result) PairReport {
	return PairReport{
		Pair:          res.Pair,
		Deltas:        res.Deltas,
		Trades:        res.Trades.Bucketed,
		OutOfHorizon:  res.Trades.OutOfHorizon,
		EmptyWindows:  res.Trades.EmptyWindows,
		ClosedWindows: res.ClosedWindows,
	}
}

// WriteTo prints the report as a plain table.
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	var total int64
	write := func(format string, args ...any) error {
		n, err := fmt.Fprintf(w, format, args...)
		total += int64(n)
		return err
	}

	if err := write("run %s (%s)\n", r.RunID, r.Duration.Round(time.Millisecond)); err != nil {
		return total, err
	}
	if err := write("%-10s %8s %8s %8s %8s %8s\n", "pair", "deltas", "trades", "late", "empty", "closed"); err != nil {
		return total, err
	}
	for _, p := range r.Pairs {
		if err := write("%-10s %8d %8d %8d %8d %8d\n",
			p.Pair, p.Deltas, p.Trades, p.OutOfHorizon, p.EmptyWindows, p.ClosedWindows); err != nil {
			return total, err
		}
	}
	err := write("arbitrage events %d, suppressed %d, ignored deltas %d\n", r.Events, r.Suppressed, r.Ignored)
	return total, err
}
