package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mcdev12/budgetdraft/go/internal/draft/engine"
	"github.com/mcdev12/budgetdraft/go/internal/draft/orchestrator"
	"github.com/mcdev12/budgetdraft/go/internal/models"
)

// DraftRunner creates and finds live drafts
type DraftRunner interface {
	RoomLookup
	CreateDraft(ctx context.Context, s orchestrator.Settings) (*orchestrator.Room, error)
}

// DraftHandler serves the draft intents over HTTP
type DraftHandler struct {
	runner   DraftRunner
	defaults orchestrator.Settings
}

// NewDraftHandler creates a handler. defaults fills any setting a create
// request leaves out.
func NewDraftHandler(runner DraftRunner, defaults orchestrator.Settings) *DraftHandler {
	return &DraftHandler{runner: runner, defaults: defaults}
}

// CreateDraftRequest is the body of POST /api/drafts
type CreateDraftRequest struct {
	Name         string               `json:"name"`
	Participants []models.Participant `json:"participants"`
	Budget       *decimal.Decimal     `json:"budget,omitempty"`
	TurnSeconds  int                  `json:"turn_seconds,omitempty"`
	Mode         models.DraftMode     `json:"mode,omitempty"`
	Rules        *engine.Rules        `json:"rules,omitempty"`
}

// CreateDraftResponse is returned for a created draft
type CreateDraftResponse struct {
	DraftID  uuid.UUID       `json:"draft_id"`
	Snapshot engine.Snapshot `json:"snapshot"`
}

func (h *DraftHandler) settings(req CreateDraftRequest) orchestrator.Settings {
	s := h.defaults
	if req.Name != "" {
		s.Name = req.Name
	}
	if len(req.Participants) > 0 {
		s.Participants = make([]models.Participant, len(req.Participants))
		for i, p := range req.Participants {
			if p.ID == uuid.Nil {
				p.ID = uuid.New()
			}
			s.Participants[i] = p
		}
	}
	if req.Budget != nil {
		s.Budget = *req.Budget
	}
	if req.TurnSeconds != 0 {
		s.TurnSeconds = req.TurnSeconds
	}
	if req.Mode != "" {
		s.Mode = req.Mode
	}
	if req.Rules != nil {
		s.Rules = *req.Rules
	}
	return s
}

// HandleCreateDraft handles POST /api/drafts
func (h *DraftHandler) HandleCreateDraft(w http.ResponseWriter, r *http.Request) {
	var req CreateDraftRequest
	if !decodeBody(w, r, &req) {
		return
	}
	room, err := h.runner.CreateDraft(r.Context(), h.settings(req))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreateDraftResponse{DraftID: room.ID(), Snapshot: room.Snapshot()})
}

type pickRequest struct {
	ParticipantID uuid.UUID `json:"participant_id"`
	ItemID        int       `json:"item_id"`
}

type skipRequest struct {
	ParticipantID uuid.UUID `json:"participant_id"`
}

type orderRequest struct {
	Order map[uuid.UUID]int `json:"order"`
}

type modeRequest struct {
	Mode models.DraftMode `json:"mode"`
}

// intent wraps a room operation as an HTTP handler that answers with the
// resulting turn state
func (h *DraftHandler) intent(apply func(r *http.Request, room *orchestrator.Room) (engine.Result, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		draftID, ok := pathUUID(w, r, "id")
		if !ok {
			return
		}
		room, found := h.runner.Get(draftID)
		if !found {
			writeError(w, fmt.Errorf("%w: %s", orchestrator.ErrDraftNotFound, draftID))
			return
		}
		res, err := apply(r, room)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// HandleCanPick handles GET /api/drafts/{id}/can-pick?participant_id=&item_id=
func (h *DraftHandler) HandleCanPick(w http.ResponseWriter, r *http.Request) {
	draftID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	participantID, err := uuid.Parse(r.URL.Query().Get("participant_id"))
	if err != nil {
		http.Error(w, "invalid participant_id format", http.StatusBadRequest)
		return
	}
	itemID, err := strconv.Atoi(r.URL.Query().Get("item_id"))
	if err != nil {
		http.Error(w, "invalid item_id", http.StatusBadRequest)
		return
	}
	room, found := h.runner.Get(draftID)
	if !found {
		writeError(w, fmt.Errorf("%w: %s", orchestrator.ErrDraftNotFound, draftID))
		return
	}
	if err := room.CanPick(participantID, models.ItemID(itemID)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// RegisterDraftRoutes registers the draft intent routes
func (h *DraftHandler) RegisterDraftRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/drafts", h.HandleCreateDraft)
	mux.HandleFunc("GET /api/drafts/{id}/can-pick", h.HandleCanPick)

	mux.HandleFunc("POST /api/drafts/{id}/start", h.intent(func(r *http.Request, room *orchestrator.Room) (engine.Result, error) {
		return room.Start(r.Context())
	}))
	mux.HandleFunc("POST /api/drafts/{id}/pause", h.intent(func(r *http.Request, room *orchestrator.Room) (engine.Result, error) {
		return room.Pause(r.Context())
	}))
	mux.HandleFunc("POST /api/drafts/{id}/resume", h.intent(func(r *http.Request, room *orchestrator.Room) (engine.Result, error) {
		return room.Resume(r.Context())
	}))
	mux.HandleFunc("POST /api/drafts/{id}/pick", h.intent(func(r *http.Request, room *orchestrator.Room) (engine.Result, error) {
		var req pickRequest
		if err := readBody(r, &req); err != nil {
			return engine.Result{}, err
		}
		return room.Pick(r.Context(), req.ParticipantID, models.ItemID(req.ItemID))
	}))
	mux.HandleFunc("POST /api/drafts/{id}/skip", h.intent(func(r *http.Request, room *orchestrator.Room) (engine.Result, error) {
		var req skipRequest
		if err := readBody(r, &req); err != nil {
			return engine.Result{}, err
		}
		return room.Skip(r.Context(), req.ParticipantID)
	}))
	mux.HandleFunc("PUT /api/drafts/{id}/order", h.intent(func(r *http.Request, room *orchestrator.Room) (engine.Result, error) {
		var req orderRequest
		if err := readBody(r, &req); err != nil {
			return engine.Result{}, err
		}
		return room.SetOrder(r.Context(), req.Order)
	}))
	mux.HandleFunc("PUT /api/drafts/{id}/mode", h.intent(func(r *http.Request, room *orchestrator.Room) (engine.Result, error) {
		var req modeRequest
		if err := readBody(r, &req); err != nil {
			return engine.Result{}, err
		}
		return room.SetMode(r.Context(), req.Mode)
	}))
}

func readBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return false
	}
	return true
}
