package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/budgetdraft/go/internal/draft/engine"
	"github.com/mcdev12/budgetdraft/go/internal/draft/orchestrator"
	"github.com/mcdev12/budgetdraft/go/internal/draft/order"
)

const maxPlanRounds = 100

// StateHandler serves read-only draft state over HTTP
type StateHandler struct {
	stateProvider StateProvider
}

func NewStateHandler(provider StateProvider) *StateHandler {
	return &StateHandler{
		stateProvider: provider,
	}
}

// HandleListDrafts handles GET /api/drafts
func (h *StateHandler) HandleListDrafts(w http.ResponseWriter, r *http.Request) {
	drafts, err := h.stateProvider.Drafts(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list drafts")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, drafts)
}

// HandleGetDraftState handles GET /api/drafts/{id}
func (h *StateHandler) HandleGetDraftState(w http.ResponseWriter, r *http.Request) {
	draftID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	snap, err := h.stateProvider.DraftState(r.Context(), draftID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// HandleGetParticipant handles GET /api/drafts/{id}/participants/{participantID}
func (h *StateHandler) HandleGetParticipant(w http.ResponseWriter, r *http.Request) {
	draftID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	participantID, ok := pathUUID(w, r, "participantID")
	if !ok {
		return
	}
	snap, err := h.stateProvider.DraftState(r.Context(), draftID)
	if err != nil {
		writeError(w, err)
		return
	}
	for _, p := range snap.Participants {
		if p.ID == participantID {
			writeJSON(w, http.StatusOK, p)
			return
		}
	}
	http.Error(w, "participant not found", http.StatusNotFound)
}

// HandleGetActions handles GET /api/drafts/{id}/actions
func (h *StateHandler) HandleGetActions(w http.ResponseWriter, r *http.Request) {
	draftID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	snap, err := h.stateProvider.DraftState(r.Context(), draftID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap.Ledger)
}

// PlanSlot is one planned turn with the participant holding it
type PlanSlot struct {
	order.Slot
	ParticipantID uuid.UUID `json:"participant_id"`
	DisplayName   string    `json:"display_name"`
}

// HandleGetPlan handles GET /api/drafts/{id}/plan?rounds=N. Without rounds
// the plan covers enough rounds to fill the largest roster.
func (h *StateHandler) HandleGetPlan(w http.ResponseWriter, r *http.Request) {
	draftID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	snap, err := h.stateProvider.DraftState(r.Context(), draftID)
	if err != nil {
		writeError(w, err)
		return
	}

	rounds := 0
	ranks := make([]int, len(snap.Participants))
	for i, p := range snap.Participants {
		ranks[i] = p.Rank
		rounds = max(rounds, p.RosterCap)
	}
	if raw := r.URL.Query().Get("rounds"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxPlanRounds {
			http.Error(w, "invalid rounds", http.StatusBadRequest)
			return
		}
		rounds = n
	}

	slots := order.Sequence(snap.Mode, ranks, rounds)
	plan := make([]PlanSlot, len(slots))
	for i, s := range slots {
		p := snap.Participants[s.Index]
		plan[i] = PlanSlot{Slot: s, ParticipantID: p.ID, DisplayName: p.DisplayName}
	}
	writeJSON(w, http.StatusOK, plan)
}

// RegisterStateRoutes registers state-related HTTP routes
func (h *StateHandler) RegisterStateRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/drafts", h.HandleListDrafts)
	mux.HandleFunc("GET /api/drafts/{id}", h.HandleGetDraftState)
	mux.HandleFunc("GET /api/drafts/{id}/participants/{participantID}", h.HandleGetParticipant)
	mux.HandleFunc("GET /api/drafts/{id}/actions", h.HandleGetActions)
	mux.HandleFunc("GET /api/drafts/{id}/plan", h.HandleGetPlan)
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		http.Error(w, "invalid "+name+" format", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

// writeError maps engine and orchestrator errors onto HTTP statuses. Refused
// intents keep their rejection code in the body.
func writeError(w http.ResponseWriter, err error) {
	if r, ok := engine.AsRejection(err); ok {
		status := http.StatusConflict
		if r.Code == engine.CodeInvalidOrder {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, rejectedPayload("", r))
		return
	}

	switch {
	case errors.Is(err, orchestrator.ErrDraftNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, engine.ErrInvalidConfig), errors.Is(err, ErrUnknownCommand), errors.Is(err, ErrBadRequest):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		log.Error().Err(err).Msg("request failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
