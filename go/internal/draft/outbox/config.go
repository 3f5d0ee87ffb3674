package outbox

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/nats-io/nats.go"

	"github.com/mcdev12/budgetdraft/go/internal/draft/events"
)

// NotifyChannel is the Postgres channel the draft_outbox trigger notifies on
const NotifyChannel = "draft_outbox_events"

type ListenerConfig struct {
	DatabaseURL      string        `env:"DATABASE_URL"`
	NotifyChannel    string        `env:"OUTBOX_NOTIFY_CHANNEL" envDefault:"draft_outbox_events"`
	FallbackInterval time.Duration `env:"OUTBOX_FALLBACK_INTERVAL" envDefault:"30s"`
	MaxRetries       int           `env:"OUTBOX_MAX_RETRIES" envDefault:"5"`
	RetryDelay       time.Duration `env:"OUTBOX_RETRY_DELAY" envDefault:"200ms"`
	PingInterval     time.Duration `env:"OUTBOX_PING_INTERVAL" envDefault:"90s"`
	BatchSize        int32         `env:"OUTBOX_BATCH_SIZE" envDefault:"100"`
}

func DefaultListenerConfig() ListenerConfig {
	return ListenerConfig{
		NotifyChannel:    NotifyChannel,
		FallbackInterval: 30 * time.Second,
		MaxRetries:       5,
		RetryDelay:       200 * time.Millisecond,
		PingInterval:     90 * time.Second,
		BatchSize:        100,
	}
}

type JetStreamConfig struct {
	URL             string        `env:"NATS_URL"`
	StreamName      string        `env:"NATS_STREAM" envDefault:"DRAFT_EVENTS"`
	SubjectPrefix   string        `env:"NATS_SUBJECT_PREFIX" envDefault:"draft.events"`
	MaxReconnects   int           `env:"NATS_MAX_RECONNECTS" envDefault:"-1"`
	ReconnectWait   time.Duration `env:"NATS_RECONNECT_WAIT" envDefault:"2s"`
	MaxAge          time.Duration `env:"NATS_MAX_AGE" envDefault:"168h"`
	MaxMsgs         int64         `env:"NATS_MAX_MSGS" envDefault:"-1"`
	Replicas        int           `env:"NATS_REPLICAS" envDefault:"1"`
	DuplicateWindow time.Duration `env:"NATS_DUPLICATE_WINDOW" envDefault:"2h"`
}

func DefaultJetStreamConfig() JetStreamConfig {
	return JetStreamConfig{
		URL:             nats.DefaultURL,
		StreamName:      "DRAFT_EVENTS",
		SubjectPrefix:   events.DefaultSubjectPrefix,
		MaxReconnects:   -1,
		ReconnectWait:   2 * time.Second,
		MaxAge:          7 * 24 * time.Hour,
		MaxMsgs:         -1,
		Replicas:        1,
		DuplicateWindow: 2 * time.Hour,
	}
}

// Config is everything the relay process reads from the environment
type Config struct {
	Listener  ListenerConfig
	JetStream JetStreamConfig
	HTTPAddr  string `env:"OUTBOX_HTTP_ADDR" envDefault:":8081"`
}

// LoadConfig starts from the defaults and applies any set environment variables
func LoadConfig() (Config, error) {
	cfg := Config{
		Listener:  DefaultListenerConfig(),
		JetStream: DefaultJetStreamConfig(),
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse outbox env: %w", err)
	}
	if cfg.Listener.BatchSize <= 0 {
		return Config{}, fmt.Errorf("OUTBOX_BATCH_SIZE must be positive, got %d", cfg.Listener.BatchSize)
	}
	if cfg.Listener.MaxRetries < 0 {
		return Config{}, fmt.Errorf("OUTBOX_MAX_RETRIES must not be negative, got %d", cfg.Listener.MaxRetries)
	}
	return cfg, nil
}
