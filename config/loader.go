package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load merges the YAML file at path (skipped when path is empty) over
// Defaults and applies BOOKREPLAY_* overrides, reading a .env file first
// when one exists. The result is not validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	// ── Window ──
	setInt64(&cfg.Window.Width, "BOOKREPLAY_WINDOW_WIDTH_US")
	setInt(&cfg.Window.Horizon, "BOOKREPLAY_WINDOW_HORIZON")
	setStr(&cfg.Window.GapPolicy, "BOOKREPLAY_WINDOW_GAP_POLICY")

	// ── Arbitrage ──
	setInt(&cfg.Arbitrage.DedupLookback, "BOOKREPLAY_ARBITRAGE_DEDUP_LOOKBACK")
	setFloat64(&cfg.Arbitrage.MinReturn, "BOOKREPLAY_ARBITRAGE_MIN_RETURN")
	setFloat64(&cfg.Arbitrage.MaxReturn, "BOOKREPLAY_ARBITRAGE_MAX_RETURN")

	// ── Replay ──
	setInt(&cfg.Replay.Workers, "BOOKREPLAY_REPLAY_WORKERS")

	// ── Storage ──
	setStr(&cfg.Journal.Dir, "BOOKREPLAY_JOURNAL_DIR")
	setInt64(&cfg.Journal.SegmentSize, "BOOKREPLAY_JOURNAL_SEGMENT_SIZE")
	setStr(&cfg.Store.Dir, "BOOKREPLAY_STORE_DIR")

	// ── Kafka ──
	setStringSlice(&cfg.Kafka.Brokers, "BOOKREPLAY_KAFKA_BROKERS")
	setStr(&cfg.Kafka.BarsTopic, "BOOKREPLAY_KAFKA_BARS_TOPIC")
	setStr(&cfg.Kafka.Encoding, "BOOKREPLAY_KAFKA_ENCODING")
	setBool(&cfg.Kafka.PublishBars, "BOOKREPLAY_KAFKA_PUBLISH_BARS")
	setStr(&cfg.Broadcaster.Topic, "BOOKREPLAY_BROADCASTER_TOPIC")
	setDuration(&cfg.Broadcaster.Interval, "BOOKREPLAY_BROADCASTER_INTERVAL")

	// ── Server ──
	setStr(&cfg.Server.GRPCAddr, "BOOKREPLAY_SERVER_GRPC_ADDR")
	setStr(&cfg.Server.HTTPAddr, "BOOKREPLAY_SERVER_HTTP_ADDR")

	setStr(&cfg.Log.Level, "BOOKREPLAY_LOG_LEVEL")
}

// Each helper only mutates the target when the variable is set and parses.

func setStr[T ~string](dst *T, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = T(v)
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
