package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"bookreplay/config"
	"bookreplay/domain/arbitrage"
	"bookreplay/domain/market"
	"bookreplay/domain/volatility"
	"bookreplay/domain/window"
	"bookreplay/infra/journal"
	"bookreplay/infra/metrics"
	"bookreplay/infra/store"
)

// BarPublisher ships finished bars downstream.
type BarPublisher interface {
	Publish(ctx context.Context, pair market.Pair, bars []window.Bar) error
}

/*
ReplayService is the single entry point of a replay.

	journal -> per-pair aggregation (parallel)  -> volatility -> store
	        -> arbitrage detection (sequential) -> store (outbox)

Every run rebuilds all books from the first delta.
*/
type ReplayService struct {
	cfg       *config.Config
	store     *store.Store
	publisher BarPublisher
	metrics   *metrics.Registry
}

// NewReplayService wires a replay. publisher and reg may be nil.
func NewReplayService(
	cfg *config.Config,
	st *store.Store,
	publisher BarPublisher,
	reg *metrics.Registry,
) *ReplayService {
	return &ReplayService{
		cfg:       cfg,
		store:     st,
		publisher: publisher,
		metrics:   reg,
	}
}

//
// ──────────────────────────────────────────────────────────
// Entry points
// ──────────────────────────────────────────────────────────
//

// ReplayJournal loads every record of the configured journal and runs it.
func (s *ReplayService) ReplayJournal(ctx context.Context) (*Report, error) {
	start := time.Now()
	deltas, trades, err := journal.Load(s.cfg.Journal.Dir)
	if err != nil {
		return nil, fmt.Errorf("load journal: %w", err)
	}
	s.observe("load", start)

	log.Info().
		Str("dir", s.cfg.Journal.Dir).
		Int("deltas", len(deltas)).
		Int("trades", len(trades)).
		Msg("journal loaded")
	return s.Run(ctx, deltas, trades)
}

// Run computes bars for every pair present in the input plus every pair of
// the currency graph, detects arbitrage over the graph, and persists both.
func (s *ReplayService) Run(ctx context.Context, deltas []market.Delta, trades []market.Trade) (*Report, error) {
	start := time.Now()
	report := &Report{RunID: uuid.NewString()}

	// Both passes walk records in time order; equal times keep arrival order.
	deltas = append([]market.Delta(nil), deltas...)
	trades = append([]market.Trade(nil), trades...)
	market.SortDeltas(deltas)
	market.SortTrades(trades)

	pairs := pairsOf(s.cfg.Arbitrage.Graph.Pairs, deltas, trades)

	results := make([]window.Result, len(pairs))
	var events []arbitrage.Event
	var detector *arbitrage.Detector

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Replay.Workers + 1)

	g.Go(func() error {
		d, err := arbitrage.NewDetector(s.cfg.Arbitrage)
		if err != nil {
			return err
		}
		t := time.Now()
		for _, delta := range deltas {
			if err := gctx.Err(); err != nil {
				return err
			}
			d.Apply(delta)
		}
		detector, events = d, d.Events()
		s.observe("arbitrage", t)
		return nil
	})

	for i, pair := range pairs {
		i, pair := i, pair
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := s.aggregate(pair, deltas, trades)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := s.persist(ctx, report.RunID, results, events); err != nil {
		return nil, err
	}

	for _, res := range results {
		report.Pairs = append(report.Pairs, pairReport(res))
		s.countPair(res)
	}
	report.Events = len(events)
	report.Suppressed, report.Ignored = detector.Stats()
	report.Duration = time.Since(start)
	s.countEvents(events, report.Suppressed)

	log.Info().
		Str("run", report.RunID).
		Int("pairs", len(report.Pairs)).
		Int("events", report.Events).
		Int("suppressed", report.Suppressed).
		Dur("took", report.Duration).
		Msg("replay complete")
	return report, nil
}

//
// ──────────────────────────────────────────────────────────
// Stages
// ──────────────────────────────────────────────────────────
//

func (s *ReplayService) aggregate(pair market.Pair, deltas []market.Delta, trades []market.Trade) (window.Result, error) {
	t := time.Now()
	agg, err := window.NewAggregator(s.cfg.Window, pair)
	if err != nil {
		return window.Result{}, err
	}
	res := agg.Run(deltas, trades)

	if err := volatility.Fill(res.Bars, s.cfg.Volatility); err != nil {
		return window.Result{}, fmt.Errorf("volatility %s: %w", pair, err)
	}
	s.observe("aggregate", t)
	return res, nil
}

func (s *ReplayService) persist(ctx context.Context, runID string, results []window.Result, events []arbitrage.Event) error {
	t := time.Now()
	defer s.observe("persist", t)

	for _, res := range results {
		if err := s.store.PutBars(res.Pair, res.Bars); err != nil {
			return fmt.Errorf("store bars %s: %w", res.Pair, err)
		}
	}

	for _, ev := range events {
		if err := s.store.PutEvent(ev); err != nil {
			return fmt.Errorf("store event %d: %w", ev.Seq, err)
		}
	}
	if err := s.store.PruneEvents(uint64(len(events))); err != nil {
		return fmt.Errorf("prune events: %w", err)
	}
	if err := s.store.SetRunID(runID); err != nil {
		return err
	}

	if s.publisher == nil {
		return nil
	}
	for _, res := range results {
		if err := s.publisher.Publish(ctx, res.Pair, res.Bars); err != nil {
			return err
		}
	}
	return nil
}

//
// ──────────────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────────────
//

// pairsOf returns the graph pairs followed by any other input pair, the
// extra ones sorted.
func pairsOf(graph []market.Pair, deltas []market.Delta, trades []market.Trade) []market.Pair {
	seen := make(map[market.Pair]bool, len(graph))
	out := make([]market.Pair, 0, len(graph))
	for _, p := range graph {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	var extra []market.Pair
	add := func(p market.Pair) {
		if !seen[p] {
			seen[p] = true
			extra = append(extra, p)
		}
	}
	for _, d := range deltas {
		add(d.Pair)
	}
	for _, t := range trades {
		add(t.Pair)
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(out, extra...)
}

func (s *ReplayService) observe(stage string, since time.Time) {
	if s.metrics != nil {
		s.metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(since).Seconds())
	}
}

func (s *ReplayService) countPair(res window.Result) {
	if s.metrics == nil {
		return
	}
	p := string(res.Pair)
	s.metrics.DeltasApplied.WithLabelValues(p).Add(float64(res.Deltas))
	s.metrics.TradesBucketed.WithLabelValues(p).Add(float64(res.Trades.Bucketed))
	s.metrics.TradesOutOfHorizon.WithLabelValues(p).Add(float64(res.Trades.OutOfHorizon))
	s.metrics.EmptyWindows.WithLabelValues(p).Add(float64(res.Trades.EmptyWindows))
}

func (s *ReplayService) countEvents(events []arbitrage.Event, suppressed int) {
	if s.metrics == nil {
		return
	}
	for _, ev := range events {
		s.metrics.ArbEvents.WithLabelValues(strconv.Itoa(ev.CycleID)).Inc()
	}
	s.metrics.ArbSuppressed.Add(float64(suppressed))
	s.metrics.Replays.Inc()
}
