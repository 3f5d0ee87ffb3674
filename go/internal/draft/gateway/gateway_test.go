package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/budgetdraft/go/internal/catalog"
	"github.com/mcdev12/budgetdraft/go/internal/draft/engine"
	"github.com/mcdev12/budgetdraft/go/internal/draft/events"
	"github.com/mcdev12/budgetdraft/go/internal/draft/orchestrator"
	"github.com/mcdev12/budgetdraft/go/internal/models"
)

type testGateway struct {
	server *httptest.Server
	orch   *orchestrator.Orchestrator
	ana    models.Participant
	ben    models.Participant
}

func newTestGateway(t *testing.T) *testGateway {
	t.Helper()
	cat, err := catalog.New([]models.Item{
		{ID: 1, Name: "Salah", Category: models.CategoryMID, Grade: models.GradeAPlus, Price: decimal.RequireFromString("12.0")},
		{ID: 2, Name: "Alisson", Category: models.CategoryGK, Grade: models.GradeA, Price: decimal.RequireFromString("5.5")},
		{ID: 3, Name: "Saliba", Category: models.CategoryDEF, Grade: models.GradeA, Price: decimal.RequireFromString("6.0")},
	})
	require.NoError(t, err)

	var svc *Service
	orch := orchestrator.New(cat, nil, orchestrator.BroadcastFunc(func(id uuid.UUID, ev events.Envelope) {
		svc.Broadcast(id, ev)
	}), orchestrator.WithClock(clockwork.NewFakeClock()))
	t.Cleanup(func() { orch.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	defaults := orchestrator.Settings{
		Name:        "draft",
		Budget:      decimal.NewFromInt(100),
		TurnSeconds: 60,
		Mode:        models.DraftModeSnake,
		Rules:       engine.DefaultRules(),
	}
	svc, err = NewService(ctx, DefaultConfig(), NewLiveStateProvider(orch), orch, defaults)
	require.NoError(t, err)
	go svc.Start(ctx)

	mux := http.NewServeMux()
	svc.RegisterRoutes(mux)
	server := httptest.NewServer(NewCORS(nil).Handler(mux))
	t.Cleanup(server.Close)

	return &testGateway{
		server: server,
		orch:   orch,
		ana:    models.Participant{ID: uuid.New(), DisplayName: "Ana"},
		ben:    models.Participant{ID: uuid.New(), DisplayName: "Ben"},
	}
}

func (g *testGateway) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, g.server.URL+path, &buf)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (g *testGateway) createDraft(t *testing.T) uuid.UUID {
	t.Helper()
	resp := g.do(t, http.MethodPost, "/api/drafts", CreateDraftRequest{
		Name:         "friday league",
		Participants: []models.Participant{g.ana, g.ben},
		Mode:         models.DraftModeLinear,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[CreateDraftResponse](t, resp)
	assert.Equal(t, models.DraftStatusNotStarted, created.Snapshot.Status)
	assert.Len(t, created.Snapshot.Available, 3)
	return created.DraftID
}

func TestHTTP_DraftLifecycle(t *testing.T) {
	g := newTestGateway(t)
	id := g.createDraft(t)
	base := "/api/drafts/" + id.String()

	// picking before the start is refused with its code
	resp := g.do(t, http.MethodPost, base+"/pick", pickRequest{ParticipantID: g.ana.ID, ItemID: 1})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, engine.CodeNotStarted, decode[RejectedPayload](t, resp).Code)

	resp = g.do(t, http.MethodPost, base+"/start", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decode[engine.Result](t, resp)
	assert.Equal(t, g.ana.ID, res.Turn.CurrentParticipantID)
	assert.Equal(t, 60, res.Turn.DeadlineRemaining)

	resp = g.do(t, http.MethodPost, base+"/pick", pickRequest{ParticipantID: g.ben.ID, ItemID: 1})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, engine.CodeNotYourTurn, decode[RejectedPayload](t, resp).Code)

	resp = g.do(t, http.MethodPost, base+"/pick", pickRequest{ParticipantID: g.ana.ID, ItemID: 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res = decode[engine.Result](t, resp)
	require.NotNil(t, res.Action)
	assert.Equal(t, 1, res.Action.Sequence)
	assert.Equal(t, g.ben.ID, res.Turn.CurrentParticipantID)

	resp = g.do(t, http.MethodGet, base+"/can-pick?participant_id="+g.ben.ID.String()+"&item_id=1", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, engine.CodeItemUnavailable, decode[RejectedPayload](t, resp).Code)

	resp = g.do(t, http.MethodGet, base+"/can-pick?participant_id="+g.ben.ID.String()+"&item_id=2", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = g.do(t, http.MethodPost, base+"/skip", skipRequest{ParticipantID: g.ben.ID})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = g.do(t, http.MethodGet, base+"/participants/"+g.ana.ID.String(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view := decode[models.ParticipantView](t, resp)
	assert.True(t, decimal.RequireFromString("88.0").Equal(view.BudgetRemaining))
	require.Len(t, view.Roster, 1)
	assert.Equal(t, "Salah", view.Roster[0].Name)

	resp = g.do(t, http.MethodGet, base+"/actions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	actions := decode[[]models.DraftAction](t, resp)
	require.Len(t, actions, 2)
	assert.Equal(t, models.ActionKindSkip, actions[1].Kind)

	resp = g.do(t, http.MethodPost, base+"/pause", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, models.DraftStatusPaused, decode[engine.Result](t, resp).Turn.Status)

	resp = g.do(t, http.MethodGet, "/api/drafts", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	summaries := decode[[]DraftSummary](t, resp)
	require.Len(t, summaries, 1)
	assert.Equal(t, "friday league", summaries[0].Name)
	assert.Equal(t, 2, summaries[0].Actions)
}

func TestHTTP_ConfigureBeforeStart(t *testing.T) {
	g := newTestGateway(t)
	id := g.createDraft(t)
	base := "/api/drafts/" + id.String()

	resp := g.do(t, http.MethodPut, base+"/mode", modeRequest{Mode: "RANDOM"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = g.do(t, http.MethodPut, base+"/order", orderRequest{Order: map[uuid.UUID]int{g.ana.ID: 1, g.ben.ID: 1}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, engine.CodeInvalidOrder, decode[RejectedPayload](t, resp).Code)

	resp = g.do(t, http.MethodPut, base+"/order", orderRequest{Order: map[uuid.UUID]int{g.ana.ID: 2, g.ben.ID: 1}})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = g.do(t, http.MethodGet, base+"/plan?rounds=2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	plan := decode[[]PlanSlot](t, resp)
	require.Len(t, plan, 4)
	var seq []uuid.UUID
	for _, slot := range plan {
		seq = append(seq, slot.ParticipantID)
	}
	assert.Equal(t, []uuid.UUID{g.ben.ID, g.ana.ID, g.ben.ID, g.ana.ID}, seq)
	assert.Equal(t, 2, plan[3].Round)
	assert.Equal(t, 4, plan[3].OverallPick)

	resp = g.do(t, http.MethodGet, base+"/plan", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]PlanSlot](t, resp), 2*engine.DefaultRosterCap)

	resp = g.do(t, http.MethodGet, base+"/plan?rounds=0", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = g.do(t, http.MethodPost, base+"/start", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, g.ben.ID, decode[engine.Result](t, resp).Turn.CurrentParticipantID)

	resp = g.do(t, http.MethodPut, base+"/mode", modeRequest{Mode: models.DraftModeSnake})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, engine.CodeDraftAlreadyStarted, decode[RejectedPayload](t, resp).Code)
}

func TestHTTP_Errors(t *testing.T) {
	g := newTestGateway(t)
	id := g.createDraft(t)

	resp := g.do(t, http.MethodPost, "/api/drafts/"+uuid.NewString()+"/start", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = g.do(t, http.MethodGet, "/api/drafts/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPost, g.server.URL+"/api/drafts/"+id.String()+"/pick", strings.NewReader("{"))
	require.NoError(t, err)
	raw, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer raw.Body.Close()
	assert.Equal(t, http.StatusBadRequest, raw.StatusCode)

	// a negative budget is an invalid configuration
	budget := decimal.NewFromInt(-1)
	resp = g.do(t, http.MethodPost, "/api/drafts", CreateDraftRequest{Participants: []models.Participant{g.ana}, Budget: &budget})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func (g *testGateway) dial(t *testing.T, draftID uuid.UUID, participantID uuid.UUID) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(g.server.URL, "http") + "/ws/draft?draft_id=" + draftID.String()
	if participantID != uuid.Nil {
		url += "&participant_id=" + participantID.String()
	}
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) DraftEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev DraftEvent
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestWebSocket_CommandsAndBroadcast(t *testing.T) {
	g := newTestGateway(t)
	id := g.createDraft(t)

	ana := g.dial(t, id, g.ana.ID)
	watcher := g.dial(t, id, uuid.Nil)

	first := readEvent(t, ana)
	require.Equal(t, EventTypeSnapshot, first.Type)
	payload, err := ParseEventPayload(&first)
	require.NoError(t, err)
	assert.Equal(t, models.DraftStatusNotStarted, payload.(*engine.Snapshot).Status)
	assert.Equal(t, EventTypeSnapshot, readEvent(t, watcher).Type)

	room, ok := g.orch.Get(id)
	require.True(t, ok)
	_, err = room.Start(context.Background())
	require.NoError(t, err)

	assert.Equal(t, EventTypeDraftStarted, readEvent(t, ana).Type)
	assert.Equal(t, EventTypeTurnStarted, readEvent(t, ana).Type)

	require.NoError(t, ana.WriteJSON(ClientCommand{Type: CommandPick, ItemID: 2}))
	picked := readEvent(t, ana)
	require.Equal(t, EventTypePickMade, picked.Type)
	payload, err = ParseEventPayload(&picked)
	require.NoError(t, err)
	assert.Equal(t, models.ItemID(2), payload.(*events.PickMadePayload).ItemID)
	assert.Equal(t, EventTypeTurnStarted, readEvent(t, ana).Type)

	// the watcher saw the same stream after its snapshot
	for _, want := range []EventType{EventTypeDraftStarted, EventTypeTurnStarted, EventTypePickMade, EventTypeTurnStarted} {
		assert.Equal(t, want, readEvent(t, watcher).Type)
	}

	// out of turn now that Ben is on the clock
	require.NoError(t, ana.WriteJSON(ClientCommand{Type: CommandSkip}))
	rejected := readEvent(t, ana)
	require.Equal(t, EventTypeRejected, rejected.Type)
	payload, err = ParseEventPayload(&rejected)
	require.NoError(t, err)
	assert.Equal(t, engine.CodeNotYourTurn, payload.(*RejectedPayload).Code)

	require.NoError(t, watcher.WriteJSON(ClientCommand{Type: CommandSkip}))
	rejected = readEvent(t, watcher)
	require.Equal(t, EventTypeRejected, rejected.Type)
	payload, err = ParseEventPayload(&rejected)
	require.NoError(t, err)
	assert.Equal(t, ErrSpectator.Error(), payload.(*RejectedPayload).Message)

	require.NoError(t, ana.WriteJSON(ClientCommand{Type: CommandSync}))
	synced := readEvent(t, ana)
	require.Equal(t, EventTypeSnapshot, synced.Type)
	payload, err = ParseEventPayload(&synced)
	require.NoError(t, err)
	assert.Len(t, payload.(*engine.Snapshot).Ledger, 1)
}

func TestWebSocket_RejectsUnknownDraftAndParticipant(t *testing.T) {
	g := newTestGateway(t)
	id := g.createDraft(t)
	base := "ws" + strings.TrimPrefix(g.server.URL, "http") + "/ws/draft"

	_, resp, err := websocket.DefaultDialer.Dial(base+"?draft_id="+uuid.NewString(), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(base+"?draft_id="+id.String()+"&participant_id="+uuid.NewString(), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	stats := g.do(t, http.MethodGet, "/ws/stats", nil)
	require.Equal(t, http.StatusOK, stats.StatusCode)
	assert.Equal(t, 0, decode[ConnectionStats](t, stats).TotalConnections)
}

func TestEventConsumer_ProcessMessage(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig(), nil, nil)
	ec := &EventConsumer{connectionManager: cm}

	env, err := events.New(uuid.New(), events.TypeDraftPaused, time.Now(), events.DraftPausedPayload{DeadlineRemaining: 12})
	require.NoError(t, err)
	data, err := json.Marshal(env)
	require.NoError(t, err)

	require.NoError(t, ec.processMessage(data))
	msg := <-cm.broadcastCh
	assert.Equal(t, env.DraftID, msg.DraftID)
	assert.Equal(t, EventTypeDraftPaused, msg.Event.Type)

	assert.Error(t, ec.processMessage([]byte("{")))

	env.EventType = "DraftCompleted"
	data, err = json.Marshal(env)
	require.NoError(t, err)
	assert.Error(t, ec.processMessage(data))
}
