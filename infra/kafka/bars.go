package kafka

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"bookreplay/domain/market"
	"bookreplay/domain/window"
	"bookreplay/infra/codec"
)

// BarPublisher publishes one message per bar, keyed by pair so a pair's
// bars stay ordered within a partition.
type BarPublisher struct {
	producer *Producer
	codec    codec.Serializer
}

func NewBarPublisher(p *Producer, s codec.Serializer) *BarPublisher {
	return &BarPublisher{producer: p, codec: s}
}

func (b *BarPublisher) Publish(ctx context.Context, pair market.Pair, bars []window.Bar) error {
	msgs := make([]kafka.Message, 0, len(bars))
	for _, bar := range bars {
		value, err := b.codec.Encode(codec.BarRow(pair, bar))
		if err != nil {
			return fmt.Errorf("kafka: encode bar %d of %s: %w", bar.Index, pair, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(pair),
			Value: value,
			Headers: []kafka.Header{
				{Key: "content-type", Value: []byte(b.codec.ContentType())},
			},
		})
	}
	if err := b.producer.SendBatch(ctx, msgs); err != nil {
		return fmt.Errorf("kafka: publish %s bars: %w", pair, err)
	}
	log.Debug().Str("pair", string(pair)).Int("bars", len(msgs)).Msg("bars published")
	return nil
}

func (b *BarPublisher) Close() error {
	return b.producer.Close()
}
