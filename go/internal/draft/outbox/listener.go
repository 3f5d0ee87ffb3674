package outbox

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// Listener relays committed outbox rows to a Publisher. It reacts to
// LISTEN/NOTIFY from the outbox trigger and polls on an interval for anything
// a dropped notification left behind.
type Listener struct {
	store     Store
	listener  *pq.Listener
	publisher Publisher
	metrics   *Metrics
	cfg       ListenerConfig
	running   atomic.Bool
}

func NewListener(store Store, publisher Publisher, metrics *Metrics, cfg ListenerConfig) (*Listener, error) {
	l := pq.NewListener(
		cfg.DatabaseURL,
		10*time.Second,
		time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Error().Err(err).Msg("listener event")
			}
		},
	)
	if err := l.Listen(cfg.NotifyChannel); err != nil {
		l.Close()
		return nil, fmt.Errorf("failed to listen to channel: %w", err)
	}

	log.Info().
		Str("channel", cfg.NotifyChannel).
		Msg("listening for notifications")

	relay := newRelay(store, publisher, metrics, cfg)
	relay.listener = l
	return relay, nil
}

// newRelay builds a Listener that only polls
func newRelay(store Store, publisher Publisher, metrics *Metrics, cfg ListenerConfig) *Listener {
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Listener{
		store:     store,
		publisher: publisher,
		metrics:   metrics,
		cfg:       cfg,
	}
}

func (l *Listener) Start(ctx context.Context) error {
	log.Info().
		Str("channel", l.cfg.NotifyChannel).
		Dur("ping_interval", l.cfg.PingInterval).
		Dur("fallback_interval", l.cfg.FallbackInterval).
		Msg("listener started")

	l.running.Store(true)
	defer l.running.Store(false)

	pingTicker := time.NewTicker(l.cfg.PingInterval)
	fallbackTicker := time.NewTicker(l.cfg.FallbackInterval)
	defer pingTicker.Stop()
	defer fallbackTicker.Stop()

	var notify <-chan *pq.Notification
	if l.listener != nil {
		notify = l.listener.Notify
	}

	// anything committed while the relay was down
	if err := l.processUnsent(ctx); err != nil {
		log.Error().Err(err).Msg("failed to process unsent events")
	}

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("listener shutting down")
			return l.Stop()
		case note := <-notify:
			if note == nil {
				// connection was lost and re-established, sweep what we missed
				if err := l.processUnsent(ctx); err != nil {
					log.Error().Err(err).Msg("failed to process unsent events")
				}
				continue
			}
			if err := l.handleNotification(ctx, note.Extra); err != nil {
				log.Error().Err(err).Msg("failed to handle notification")
			}
		case <-fallbackTicker.C:
			if err := l.processUnsent(ctx); err != nil {
				log.Error().Err(err).Msg("failed to process unsent events")
			}
		case <-pingTicker.C:
			if l.listener == nil {
				continue
			}
			if err := l.listener.Ping(); err != nil {
				log.Error().Err(err).Msg("failed to ping listener")
			}
		}
	}
}

func (l *Listener) Stop() error {
	if l.listener == nil {
		return nil
	}
	return l.listener.Close()
}

// Active reports whether Start is running
func (l *Listener) Active() bool {
	return l.running.Load()
}

func (l *Listener) Metrics() *Metrics {
	return l.metrics
}

// handleNotification publishes the outbox row named by a notification payload.
// A row that is already gone was relayed by the fallback sweep.
func (l *Listener) handleNotification(ctx context.Context, extra string) error {
	id, err := uuid.Parse(extra)
	if err != nil {
		return fmt.Errorf("invalid event ID in notification: %w", err)
	}

	event, err := l.store.FetchOutboxByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrEventNotFound) {
			log.Debug().Str("event_id", id.String()).Msg("outbox event already sent")
			return nil
		}
		return err
	}

	if err := l.publishWithRetry(ctx, *event); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	if err := l.store.MarkOutboxSent(ctx, id); err != nil {
		return err
	}

	log.Info().
		Str("event_id", id.String()).
		Str("event_type", string(event.EventType)).
		Msg("published and marked event as sent")
	return nil
}

// processUnsent publishes one batch of unsent rows in commit order. It stops at
// the first row that cannot be published so a draft's events are never
// delivered out of order.
func (l *Listener) processUnsent(ctx context.Context) error {
	unsent, err := l.store.FetchUnsentOutbox(ctx, l.cfg.BatchSize)
	if err != nil {
		return err
	}
	if len(unsent) == 0 {
		return nil
	}

	sent := make([]uuid.UUID, 0, len(unsent))
	var publishErr error
	for _, event := range unsent {
		if err := l.publishWithRetry(ctx, event); err != nil {
			publishErr = err
			log.Error().Err(err).Str("event_id", event.ID.String()).Msg("failed to publish event")
			break
		}
		sent = append(sent, event.ID)
	}

	if err := l.store.MarkOutboxSent(ctx, sent...); err != nil {
		return err
	}

	log.Info().
		Int("published", len(sent)).
		Int("fetched", len(unsent)).
		Msg("processed unsent outbox batch")
	return publishErr
}

// publishWithRetry attempts to publish an outbox event with a linear backoff.
func (l *Listener) publishWithRetry(ctx context.Context, event OutboxEvent) error {
	var lastErr error

	for attempt := 0; attempt <= l.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			l.metrics.RecordRetry()
			delay := l.cfg.RetryDelay * time.Duration(attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		if err := l.publisher.Publish(ctx, event); err != nil {
			lastErr = err
			log.Error().
				Err(err).
				Int("attempt", attempt+1).
				Str("event_id", event.ID.String()).
				Msg("failed to publish, retrying")
			continue
		}

		l.metrics.RecordPublished(event.EventType, time.Now())
		if attempt > 0 {
			log.Info().
				Int("attempt", attempt+1).
				Str("event_id", event.ID.String()).
				Msg("publish succeeded after retry")
		}
		return nil
	}

	l.metrics.RecordFailed()
	return fmt.Errorf("publish failed after %d attempts: %w", l.cfg.MaxRetries+1, lastErr)
}
