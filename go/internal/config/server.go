// Package config reads the draft server's environment and draft rules file.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/mcdev12/budgetdraft/go/internal/draft/gateway"
)

// Event sources for the WebSocket gateway
const (
	EventSourceDirect    = "direct"
	EventSourceJetStream = "jetstream"
)

// Server is the draft server's environment
type Server struct {
	Port           string        `env:"PORT" envDefault:"8080"`
	AllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	RulesFile      string        `env:"DRAFT_RULES_FILE" envDefault:"go/internal/assets/draft.yaml"`
	CatalogFile    string        `env:"CATALOG_FILE"`
	TickInterval   time.Duration `env:"DRAFT_TICK_INTERVAL" envDefault:"1s"`
	CreateOnBoot   bool          `env:"DRAFT_CREATE_ON_BOOT" envDefault:"false"`
	EventSource    string        `env:"GATEWAY_EVENT_SOURCE" envDefault:"direct"`
	JetStream      gateway.JetStreamConsumerConfig
}

// LoadServer parses the environment into a Server config
func LoadServer() (Server, error) {
	cfg := Server{JetStream: gateway.DefaultJetStreamConsumerConfig()}
	if err := env.Parse(&cfg); err != nil {
		return Server{}, fmt.Errorf("parse server env: %w", err)
	}
	if cfg.TickInterval <= 0 {
		return Server{}, fmt.Errorf("DRAFT_TICK_INTERVAL must be positive, got %s", cfg.TickInterval)
	}
	switch cfg.EventSource {
	case EventSourceDirect, EventSourceJetStream:
	default:
		return Server{}, fmt.Errorf("unknown GATEWAY_EVENT_SOURCE %q", cfg.EventSource)
	}
	return cfg, nil
}

// Gateway builds the gateway config for this server
func (s Server) Gateway() gateway.Config {
	cfg := gateway.DefaultConfig()
	cfg.JetStreamConfig = s.JetStream
	cfg.ConsumeJetStream = s.EventSource == EventSourceJetStream
	return cfg
}
