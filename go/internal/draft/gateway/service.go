package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/budgetdraft/go/internal/draft/events"
	"github.com/mcdev12/budgetdraft/go/internal/draft/orchestrator"
)

// Service is the draft gateway: WebSocket fan-out, the HTTP state API and,
// when it runs next to the orchestrator, the intent API.
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	stateHandler      *StateHandler
	draftHandler      *DraftHandler
	eventConsumer     *EventConsumer
}

// Config holds configuration for the draft gateway service
type Config struct {
	ConnectionConfig ConnectionConfig
	JetStreamConfig  JetStreamConsumerConfig
	// ConsumeJetStream relays events from the stream instead of taking them
	// straight from the orchestrator
	ConsumeJetStream bool
}

func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		JetStreamConfig:  DefaultJetStreamConsumerConfig(),
	}
}

// NewService creates a gateway. runner may be nil, in which case the gateway
// only serves state and relays events.
func NewService(ctx context.Context, config Config, state StateProvider, runner DraftRunner, defaults orchestrator.Settings) (*Service, error) {
	var commands CommandHandler
	if runner != nil {
		commands = NewRoomCommands(runner)
	}
	cm := NewConnectionManager(config.ConnectionConfig, state, commands)

	s := &Service{
		connectionManager: cm,
		wsHandler:         NewWebSocketHandler(cm),
		stateHandler:      NewStateHandler(state),
	}
	if runner != nil {
		s.draftHandler = NewDraftHandler(runner, defaults)
	}

	if config.ConsumeJetStream {
		consumer, err := NewEventConsumer(ctx, cm, config.JetStreamConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create event consumer: %w", err)
		}
		s.eventConsumer = consumer
	}
	return s, nil
}

// Broadcast forwards orchestrator events to clients. It does nothing when
// the gateway relays from JetStream, since the same events arrive there.
func (s *Service) Broadcast(draftID uuid.UUID, ev events.Envelope) {
	if s.eventConsumer != nil {
		return
	}
	s.connectionManager.Broadcast(draftID, ev)
}

// Start runs the broadcast loop and the stream consumer until ctx is done
func (s *Service) Start(ctx context.Context) error {
	log.Info().Bool("jetstream", s.eventConsumer != nil).Msg("starting draft gateway service")

	go s.connectionManager.Start(ctx)

	if s.eventConsumer != nil {
		go func() {
			if err := s.eventConsumer.Start(ctx); err != nil {
				log.Error().Err(err).Msg("event consumer failed")
			}
		}()
	}

	<-ctx.Done()
	log.Info().Msg("draft gateway service shutting down")
	return s.Stop()
}

func (s *Service) Stop() error {
	if s.eventConsumer != nil {
		if err := s.eventConsumer.Stop(); err != nil {
			log.Error().Err(err).Msg("failed to stop event consumer")
		}
	}
	log.Info().Msg("draft gateway service stopped")
	return nil
}

// RegisterRoutes registers the WebSocket and HTTP routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	s.stateHandler.RegisterStateRoutes(mux)
	if s.draftHandler != nil {
		s.draftHandler.RegisterDraftRoutes(mux)
	}
	log.Info().Bool("intents", s.draftHandler != nil).Msg("draft gateway routes registered")
}

func (s *Service) GetStats() ConnectionStats {
	return s.connectionManager.GetConnectionStats()
}
