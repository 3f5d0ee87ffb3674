package gateway

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/budgetdraft/go/internal/draft/orchestrator"
)

// WebSocketHandler handles WebSocket upgrade requests for draft connections
type WebSocketHandler struct {
	connectionManager *ConnectionManager
}

func NewWebSocketHandler(cm *ConnectionManager) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
	}
}

// HandleDraftConnection handles GET /ws/draft?draft_id=...&participant_id=...
// Connections without a participant_id watch the draft without acting on it.
func (h *WebSocketHandler) HandleDraftConnection(w http.ResponseWriter, r *http.Request) {
	draftID, err := uuid.Parse(r.URL.Query().Get("draft_id"))
	if err != nil {
		http.Error(w, "invalid draft_id format", http.StatusBadRequest)
		return
	}

	participantID := uuid.Nil
	if raw := r.URL.Query().Get("participant_id"); raw != "" {
		participantID, err = uuid.Parse(raw)
		if err != nil {
			http.Error(w, "invalid participant_id format", http.StatusBadRequest)
			return
		}
	}

	if state := h.connectionManager.state; state != nil {
		snap, err := state.DraftState(r.Context(), draftID)
		if err != nil {
			if errors.Is(err, orchestrator.ErrDraftNotFound) {
				http.Error(w, "draft not found", http.StatusNotFound)
				return
			}
			log.Error().Err(err).Str("draft_id", draftID.String()).Msg("failed to load draft for connection")
			http.Error(w, "failed to load draft", http.StatusInternalServerError)
			return
		}
		if participantID != uuid.Nil && !hasParticipant(snap.Participants, participantID) {
			http.Error(w, "participant is not in this draft", http.StatusForbidden)
			return
		}
	}

	if err := h.connectionManager.UpgradeConnection(w, r, participantID, draftID); err != nil {
		// the upgrader has already written an error response
		log.Error().
			Err(err).
			Str("draft_id", draftID.String()).
			Str("participant_id", participantID.String()).
			Msg("failed to upgrade WebSocket connection")
	}
}

// HandleConnectionStats returns statistics about active connections
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.connectionManager.GetConnectionStats())
}

// RegisterRoutes registers WebSocket routes with an HTTP mux
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws/draft", h.HandleDraftConnection)
	mux.HandleFunc("GET /ws/stats", h.HandleConnectionStats)
}
