package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/mcdev12/budgetdraft/go/internal/draft/events"
)

// PendingThreshold is the unsent backlog above which the relay reports a warning
const PendingThreshold = 1000

type HealthStatus struct {
	Healthy           bool      `json:"healthy"`
	EventsPublished   uint64    `json:"events_published"`
	EventsFailed      uint64    `json:"events_failed"`
	LastEventTime     time.Time `json:"last_event_time"`
	PendingEvents     int64     `json:"pending_events"`
	DatabaseConnected bool      `json:"database_connected"`
	NATSConnected     bool      `json:"nats_connected"`
	ListenerActive    bool      `json:"listener_active"`
	Errors            []string  `json:"errors"`
}

type pinger interface {
	PingContext(ctx context.Context) error
}

type connectedReporter interface {
	Connected() bool
}

// HealthChecker reports on the relay and the two systems it bridges
type HealthChecker struct {
	listener  *Listener
	db        pinger
	nats      connectedReporter
	threshold time.Duration // how long a backlog may sit without progress
}

func NewHealthChecker(listener *Listener, db pinger, nats connectedReporter, threshold time.Duration) *HealthChecker {
	return &HealthChecker{
		listener:  listener,
		db:        db,
		nats:      nats,
		threshold: threshold,
	}
}

func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	snap := h.listener.Metrics().Snapshot()
	status := HealthStatus{
		Healthy:         true,
		EventsPublished: snap.Published,
		EventsFailed:    snap.Failed,
		LastEventTime:   snap.LastEventTime,
		ListenerActive:  h.listener.Active(),
		Errors:          []string{},
	}

	if err := h.db.PingContext(ctx); err != nil {
		status.Healthy = false
		status.Errors = append(status.Errors, fmt.Sprintf("database ping failed: %v", err))
	} else {
		status.DatabaseConnected = true
	}

	if h.nats != nil {
		status.NATSConnected = h.nats.Connected()
		if !status.NATSConnected {
			status.Healthy = false
			status.Errors = append(status.Errors, "NATS disconnected")
		}
	}

	if !status.ListenerActive {
		status.Healthy = false
		status.Errors = append(status.Errors, "listener not active")
	}

	if status.DatabaseConnected {
		pending, err := h.listener.store.CountUnsentOutbox(ctx)
		if err != nil {
			status.Errors = append(status.Errors, fmt.Sprintf("failed to count pending events: %v", err))
		} else {
			status.PendingEvents = pending
			if pending > PendingThreshold {
				status.Errors = append(status.Errors, fmt.Sprintf("high pending event count: %d", pending))
			}
		}
	}

	if status.PendingEvents > 0 && !status.LastEventTime.IsZero() {
		if since := time.Since(status.LastEventTime); since > h.threshold {
			status.Healthy = false
			status.Errors = append(status.Errors, fmt.Sprintf("no events processed for %s", since.Round(time.Second)))
		}
	}

	return status
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Check(ctx)

	w.Header().Set("Content-Type", "application/json")
	if !status.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(status)
}

// MetricsHandler serves the relay counters in the Prometheus text format
func (h *HealthChecker) MetricsHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		fmt.Fprint(w, h.export(ctx))
	})
}

func (h *HealthChecker) export(ctx context.Context) string {
	status := h.Check(ctx)
	snap := h.listener.Metrics().Snapshot()

	var b strings.Builder
	gauge := func(name, help string, v int64) {
		fmt.Fprintf(&b, "# HELP %s %s\n# TYPE %s gauge\n%s %d\n", name, help, name, name, v)
	}
	counter := func(name, help string, v uint64) {
		fmt.Fprintf(&b, "# HELP %s %s\n# TYPE %s counter\n%s %d\n", name, help, name, name, v)
	}

	gauge("outbox_healthy", "Whether the outbox relay is healthy", boolGauge(status.Healthy))
	counter("outbox_events_published_total", "Total number of events published", snap.Published)
	counter("outbox_events_failed_total", "Events that exhausted their retries", snap.Failed)
	counter("outbox_publish_retries_total", "Publish attempts after the first", snap.Retries)
	gauge("outbox_pending_events", "Current number of pending events", status.PendingEvents)
	gauge("outbox_database_connected", "Whether the database is reachable", boolGauge(status.DatabaseConnected))
	gauge("outbox_nats_connected", "Whether NATS is connected", boolGauge(status.NATSConnected))
	gauge("outbox_listener_active", "Whether the listener is active", boolGauge(status.ListenerActive))

	types := make([]events.Type, 0, len(snap.ByType))
	for t := range snap.ByType {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	b.WriteString("# HELP outbox_events_by_type_total Events published per event type\n# TYPE outbox_events_by_type_total counter\n")
	for _, t := range types {
		fmt.Fprintf(&b, "outbox_events_by_type_total{event_type=%q} %d\n", t, snap.ByType[t])
	}

	var last int64
	if !snap.LastEventTime.IsZero() {
		last = snap.LastEventTime.Unix()
	}
	gauge("outbox_last_event_timestamp", "Unix timestamp of last published event", last)
	return b.String()
}

func boolGauge(v bool) int64 {
	if v {
		return 1
	}
	return 0
}
