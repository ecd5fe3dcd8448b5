package broadcaster

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"bookreplay/domain/market"
	"bookreplay/infra/codec"
	"bookreplay/infra/metrics"
	"bookreplay/infra/store"
)

type Config struct {
	Topic            string        `yaml:"topic"`
	Interval         time.Duration `yaml:"interval"`
	MaxRetries       uint32        `yaml:"max_retries"`
	FailureThreshold uint32        `yaml:"failure_threshold"`
	OpenTimeout      time.Duration `yaml:"open_timeout"`
}

func DefaultConfig() Config {
	return Config{
		Topic:            "bookreplay.arbitrage",
		Interval:         250 * time.Millisecond,
		MaxRetries:       5,
		FailureThreshold: 3,
		OpenTimeout:      10 * time.Second,
	}
}

// Broadcaster drains the arbitrage outbox of a store into Kafka:
// NEW -> SENT -> ACKED, or FAILED once MaxRetries sends have failed.
type Broadcaster struct {
	store    *store.Store
	producer sarama.SyncProducer
	breaker  *gobreaker.CircuitBreaker
	codec    codec.Serializer
	pairs    []market.Pair
	metrics  *metrics.Registry
	cfg      Config
}

// ------------------------------------------------
// CONSTRUCTOR
// ------------------------------------------------

func NewSyncProducer(brokers []string) (sarama.SyncProducer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	return sarama.NewSyncProducer(brokers, cfg)
}

// New wires a broadcaster. pairs orders the weight columns of each
// published event; reg may be nil.
func New(
	st *store.Store,
	producer sarama.SyncProducer,
	cfg Config,
	ser codec.Serializer,
	pairs []market.Pair,
	reg *metrics.Registry,
) *Broadcaster {
	b := &Broadcaster{
		store:    st,
		producer: producer,
		codec:    ser,
		pairs:    pairs,
		metrics:  reg,
		cfg:      cfg,
	}
	b.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "broadcaster",
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit state change")
		},
	})
	return b
}

// ------------------------------------------------
// START LOOP
// ------------------------------------------------

// Start runs the delivery loop until ctx is cancelled. The returned
// channel closes when the loop has exited.
func (b *Broadcaster) Start(ctx context.Context) <-chan struct{} {
	log.Info().Str("topic", b.cfg.Topic).Msg("broadcaster started")
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(b.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("broadcaster stopped")
				return

			case <-ticker.C:
				if _, err := b.ReplayOnce(); err != nil {
					log.Warn().Err(err).Msg("outbox pass aborted")
				}
			}
		}
	}()
	return done
}

// ------------------------------------------------
// REPLAY LOGIC
// ------------------------------------------------

// ReplayOnce attempts every NEW or SENT-but-unacknowledged event once and
// returns how many were acknowledged. A pass stops early while the
// circuit is open.
func (b *Broadcaster) ReplayOnce() (int, error) {
	var pending []store.EventRecord
	collect := func(rec store.EventRecord) error {
		pending = append(pending, rec)
		return nil
	}
	if err := b.store.ScanByState(store.StateNew, collect); err != nil {
		return 0, err
	}
	if err := b.store.ScanByState(store.StateSent, collect); err != nil {
		return 0, err
	}

	acked := 0
	for _, rec := range pending {
		err := b.deliver(rec)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return acked, err
		}
		if err == nil {
			acked++
		}
	}
	return acked, nil
}

func (b *Broadcaster) deliver(rec store.EventRecord) error {
	// Mark SENT before publishing so a crash leaves it retryable.
	if err := b.store.UpdateState(rec.Seq, store.StateSent, rec.Retries); err != nil {
		return err
	}

	value, err := b.codec.Encode(codec.EventRow(rec.Event, b.pairs))
	if err != nil {
		return b.fail(rec, fmt.Errorf("encode event %d: %w", rec.Seq, err))
	}

	msg := &sarama.ProducerMessage{
		Topic: b.cfg.Topic,
		Key:   sarama.StringEncoder(strconv.Itoa(rec.CycleID)),
		Value: sarama.ByteEncoder(value),
	}

	_, err = b.breaker.Execute(func() (interface{}, error) {
		_, _, err := b.producer.SendMessage(msg)
		return nil, err
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		b.count("rejected")
		return err
	}
	if err != nil {
		return b.fail(rec, err)
	}

	b.count("acked")
	return b.store.UpdateState(rec.Seq, store.StateAcked, rec.Retries)
}

func (b *Broadcaster) fail(rec store.EventRecord, cause error) error {
	retries := rec.Retries + 1
	state := store.StateSent
	if retries >= b.cfg.MaxRetries {
		state = store.StateFailed
	}
	b.count("failed")
	log.Warn().Err(cause).Uint64("seq", rec.Seq).Uint32("retries", retries).Str("state", state.String()).Msg("event delivery failed")

	if err := b.store.UpdateState(rec.Seq, state, retries); err != nil {
		return err
	}
	return cause
}

func (b *Broadcaster) count(result string) {
	if b.metrics != nil {
		b.metrics.BroadcastSends.WithLabelValues(result).Inc()
	}
}

// ------------------------------------------------
// SHUTDOWN
// ------------------------------------------------

func (b *Broadcaster) Close() error {
	return b.producer.Close()
}
