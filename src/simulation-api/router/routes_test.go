package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jiaming2012/ward-market/src/data"
	"github.com/jiaming2012/ward-market/src/simulation-api/models"
	"github.com/jiaming2012/ward-market/src/simulation-api/services"
)

type testServer struct {
	router *mux.Router
	world  *services.WorldService
}

func newTestServer(t *testing.T, seeded bool) *testServer {
	t.Helper()

	now := time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)
	world := services.NewWorldService(data.NewMemoryStore(), models.SimulationParams{}, services.WithClock(func() time.Time { return now }))

	if seeded {
		roster := &models.Roster{
			Subjects: []models.RosterEntry{
				{Name: "Reginald Thornberry III", Company: "Thornberry Pharmaceuticals", Ticker: "THRN", Age: 67, Price: 142.5, Status: models.SubjectStatusAlive},
				{Name: "Douglas 'Duke' Crampton", Company: "Crampton Defense Industries", Ticker: "CDFI", Age: 74, Price: 89.3, Status: models.SubjectStatusCritical, Complaint: "Acute exacerbation of COPD"},
			},
		}

		_, err := world.Seed(context.Background(), roster)
		require.NoError(t, err)
	}

	events := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("events"))
	})

	router := mux.NewRouter()
	SetupHandler(router, world, events)

	return &testServer{router: router, world: world}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var payload []byte
	switch b := body.(type) {
	case nil:
	case string:
		payload = []byte(b)
	default:
		var err error
		payload, err = json.Marshal(b)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestUnseededWorld(t *testing.T) {
	s := newTestServer(t, false)

	for _, path := range []string{"/world", "/fund", "/clock"} {
		rec := s.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusConflict, rec.Code, path)
	}

	rec := s.do(t, http.MethodPost, "/clock/tick", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	errResp := decode[errorResponse](t, rec)
	assert.Equal(t, "tick", errResp.Type)
	assert.Contains(t, errResp.Msg, models.ErrWorldNotSeeded.Error())
}

func TestTradeRoutes(t *testing.T) {
	s := newTestServer(t, true)

	rec := s.do(t, http.MethodPost, "/trades", models.TradeRequest{Ticker: "cdfi", Action: models.TradeActionShort, Quantity: 1000})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	result := decode[models.TradeResult](t, rec)
	assert.Equal(t, models.TradeResultOpened, result.Status)
	assert.Equal(t, "CDFI", result.Position.Ticker)
	assert.InDelta(t, 89300.0, result.Cost, 1e-9)

	fund := decode[models.FundSummary](t, s.do(t, http.MethodGet, "/fund", nil))
	assert.InDelta(t, 89300.0, fund.AllocatedToPositions, 1e-9)
	assert.Equal(t, 1, fund.PositionCount)

	cases := []struct {
		name   string
		body   interface{}
		status int
	}{
		{"unknown ticker", models.TradeRequest{Ticker: "ZZZZ", Action: models.TradeActionBuy, Quantity: 1}, http.StatusNotFound},
		{"overdraft", models.TradeRequest{Ticker: "THRN", Action: models.TradeActionBuy, Quantity: 1_000_000_000}, http.StatusUnprocessableEntity},
		{"nothing to cover", models.TradeRequest{Ticker: "THRN", Action: models.TradeActionCover}, http.StatusConflict},
		{"bad action", `{"ticker":"THRN","action":"hold","quantity":1}`, http.StatusUnprocessableEntity},
		{"zero quantity", models.TradeRequest{Ticker: "THRN", Action: models.TradeActionBuy}, http.StatusUnprocessableEntity},
		{"malformed body", `{`, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/trades", tc.body)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
		})
	}

	positions := decode[[]*models.Position](t, s.do(t, http.MethodGet, "/positions?status=open", nil))
	assert.Len(t, positions, 1)

	positions = decode[[]*models.Position](t, s.do(t, http.MethodGet, "/positions?ticker=thrn", nil))
	assert.Empty(t, positions)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/positions?status=pending", nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/trades?limit=abc", nil).Code)

	trades := decode[[]*models.Trade](t, s.do(t, http.MethodGet, "/trades?limit=10", nil))
	assert.Len(t, trades, 1)

	rec = s.do(t, http.MethodPost, "/trades", models.TradeRequest{Ticker: "CDFI", Action: models.TradeActionCover})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, models.TradeResultClosed, decode[models.TradeResult](t, rec).Status)

	portfolio := decode[models.PortfolioSummary](t, s.do(t, http.MethodGet, "/portfolio", nil))
	assert.Equal(t, 0, portfolio.OpenPositions)
	assert.Equal(t, 1, portfolio.ClosedPositions)

	assert.Equal(t, http.StatusMethodNotAllowed, s.do(t, http.MethodDelete, "/fund", nil).Code)
}

func TestClockRoutes(t *testing.T) {
	s := newTestServer(t, true)

	assert.Equal(t, http.StatusUnprocessableEntity, s.do(t, http.MethodPut, "/clock/speed", models.SetSpeedRequest{Speed: 0}).Code)

	clock := decode[models.WorldClock](t, s.do(t, http.MethodPut, "/clock/speed", models.SetSpeedRequest{Speed: 60}))
	assert.Equal(t, 60.0, clock.Speed)

	clock = decode[models.WorldClock](t, s.do(t, http.MethodPut, "/clock/paused", models.SetPausedRequest{Paused: true}))
	assert.True(t, clock.Paused)

	result := decode[models.TickResult](t, s.do(t, http.MethodPost, "/clock/tick", nil))
	assert.Equal(t, models.TickStatusPaused, result.Status)

	clock = decode[models.WorldClock](t, s.do(t, http.MethodGet, "/clock", nil))
	assert.Equal(t, int64(0), clock.TickCount)
}

func TestSubjectRoutes(t *testing.T) {
	s := newTestServer(t, true)

	subjects := decode[[]*models.Subject](t, s.do(t, http.MethodGet, "/subjects", nil))
	assert.Len(t, subjects, 2)

	prices := decode[[]*models.LatestPrice](t, s.do(t, http.MethodGet, "/prices", nil))
	require.Len(t, prices, 2)
	for _, p := range prices {
		assert.NotEmpty(t, p.Ticker)
		assert.Positive(t, p.Price)
	}

	history := decode[[]*models.PricePoint](t, s.do(t, http.MethodGet, "/subjects/thrn/prices", nil))
	require.Len(t, history, 1)
	assert.Equal(t, 142.5, history[0].Price)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/subjects/NOPE/prices", nil).Code)
}

func TestPatientRoutes(t *testing.T) {
	s := newTestServer(t, true)

	patients := decode[[]*models.PatientWithSubject](t, s.do(t, http.MethodGet, "/patients?status=active", nil))
	require.Len(t, patients, 1)
	assert.Equal(t, "CDFI", patients[0].Subject.Ticker)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/patients?status=asleep", nil).Code)

	rec := s.do(t, http.MethodPost, "/patients", models.AdmitRequest{SubjectID: patients[0].SubjectID, Severity: 0.5})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/patients", models.AdmitRequest{Severity: 0.5})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	subjects := decode[[]*models.Subject](t, s.do(t, http.MethodGet, "/subjects", nil))
	var thrn *models.Subject
	for _, subject := range subjects {
		if subject.Ticker == "THRN" {
			thrn = subject
		}
	}
	require.NotNil(t, thrn)

	rec = s.do(t, http.MethodPost, "/patients", `{"subject_id":"`+thrn.ID.String()+`","presenting_complaint":"chest pain","severity":0.6}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	admitted := decode[models.Patient](t, rec)
	assert.Equal(t, "chest pain", admitted.PresentingComplaint)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/patients/not-a-uuid/diagnosis", models.DiagnoseRequest{Diagnosis: "x"}).Code)

	rec = s.do(t, http.MethodPost, "/patients/"+admitted.ID.String()+"/diagnosis", models.DiagnoseRequest{Diagnosis: "Angina", Confidence: 0.6})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Angina", decode[models.Patient](t, rec).Diagnosis)

	rec = s.do(t, http.MethodPost, "/patients/"+admitted.ID.String()+"/diagnosis", models.DiagnoseRequest{Diagnosis: "Angina", Confidence: 3})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestMemoryAndWorldRoutes(t *testing.T) {
	s := newTestServer(t, true)

	rec := s.do(t, http.MethodPost, "/memories", models.WriteMemoryRequest{Type: models.MemoryTypeNote, Title: "watch CDFI", Content: "breathing badly"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, http.StatusUnprocessableEntity, s.do(t, http.MethodPost, "/memories", models.WriteMemoryRequest{Type: "diary", Title: "x"}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/memories?type=diary", nil).Code)

	notes := decode[[]*models.AgentMemory](t, s.do(t, http.MethodGet, "/memories?type=note", nil))
	require.Len(t, notes, 1)
	assert.Equal(t, "watch CDFI", notes[0].Title)

	state := decode[models.WorldState](t, s.do(t, http.MethodGet, "/world", nil))
	assert.Len(t, state.Subjects, 2)
	assert.Len(t, state.ActivePatients, 1)
	assert.Len(t, state.RecentMemories, 1)
	require.NotNil(t, state.Fund)
	assert.Equal(t, state.Fund.InitialBalance, state.Fund.Balance)

	rec = s.do(t, http.MethodGet, "/events/ws", nil)
	assert.Equal(t, "events", rec.Body.String())
}
