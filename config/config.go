// Package config assembles the settings of a replay and of the query
// server from defaults, a YAML file and BOOKREPLAY_* environment variables.
package config

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"bookreplay/domain/arbitrage"
	"bookreplay/domain/volatility"
	"bookreplay/domain/window"
	"bookreplay/infra/codec"
	"bookreplay/infra/journal"
	"bookreplay/infra/store"
	"bookreplay/jobs/broadcaster"
)

var ErrInvalid = errors.New("config: invalid")

type Config struct {
	Window      window.Config       `yaml:"window"`
	Volatility  []volatility.Series `yaml:"volatility"`
	Arbitrage   arbitrage.Config    `yaml:"arbitrage"`
	Replay      ReplayConfig        `yaml:"replay"`
	Journal     journal.Config      `yaml:"journal"`
	Store       store.Config        `yaml:"store"`
	Kafka       KafkaConfig         `yaml:"kafka"`
	Broadcaster broadcaster.Config  `yaml:"broadcaster"`
	Server      ServerConfig        `yaml:"server"`
	Log         LogConfig           `yaml:"log"`
}

type ReplayConfig struct {
	// Workers bounds how many pairs are aggregated at once.
	Workers int `yaml:"workers"`
}

type KafkaConfig struct {
	Brokers     []string `yaml:"brokers"`
	BarsTopic   string   `yaml:"bars_topic"`
	Encoding    string   `yaml:"encoding"`
	PublishBars bool     `yaml:"publish_bars"`
}

type ServerConfig struct {
	GRPCAddr string `yaml:"grpc_addr"`
	HTTPAddr string `yaml:"http_addr"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

func Defaults() Config {
	return Config{
		Window:     window.DefaultConfig(),
		Volatility: volatility.DefaultSeries(),
		Arbitrage:  arbitrage.DefaultConfig(),
		Replay:     ReplayConfig{Workers: 4},
		Journal:    journal.Config{Dir: "data/journal", SegmentSize: 64 << 20},
		Store:      store.Config{Dir: "data/results"},
		Kafka: KafkaConfig{
			Brokers:   []string{"localhost:9092"},
			BarsTopic: "bookreplay.bars",
			Encoding:  "json",
		},
		Broadcaster: broadcaster.DefaultConfig(),
		Server: ServerConfig{
			GRPCAddr: ":50051",
			HTTPAddr: ":9090",
		},
		Log: LogConfig{Level: "info"},
	}
}

func (c *Config) Validate() error {
	if err := c.Window.Validate(); err != nil {
		return err
	}
	for _, s := range c.Volatility {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	if err := c.Arbitrage.Validate(); err != nil {
		return err
	}
	if c.Replay.Workers <= 0 {
		return fmt.Errorf("%w: replay.workers %d", ErrInvalid, c.Replay.Workers)
	}
	if c.Journal.Dir == "" {
		return fmt.Errorf("%w: journal.dir is empty", ErrInvalid)
	}
	if c.Store.Dir == "" && !c.Store.InMemory {
		return fmt.Errorf("%w: store.dir is empty", ErrInvalid)
	}
	if _, err := codec.New(c.Kafka.Encoding); err != nil {
		return fmt.Errorf("%w: kafka.encoding: %w", ErrInvalid, err)
	}
	if c.Kafka.PublishBars && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("%w: kafka.publish_bars needs brokers", ErrInvalid)
	}
	if c.Broadcaster.Interval <= 0 || c.Broadcaster.MaxRetries == 0 {
		return fmt.Errorf("%w: broadcaster interval %s, max retries %d",
			ErrInvalid, c.Broadcaster.Interval, c.Broadcaster.MaxRetries)
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %w", ErrInvalid, err)
	}
	return nil
}
