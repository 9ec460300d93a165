package router

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jiaming2012/ward-market/src/simulation-api/models"
	"github.com/jiaming2012/ward-market/src/simulation-api/services"
)

type handler struct {
	world *services.WorldService
}

// SetupHandler registers the control surface on router. events serves the
// live event stream and may be nil.
func SetupHandler(router *mux.Router, world *services.WorldService, events http.Handler) {
	h := &handler{world: world}

	handleFunc := func(method, pattern string, f http.HandlerFunc) {
		// Configure the "http.route" for the HTTP instrumentation.
		router.Handle(pattern, otelhttp.WithRouteTag(pattern, f)).Methods(method)
	}

	handleFunc(http.MethodGet, "/clock", h.getClock)
	handleFunc(http.MethodPost, "/clock/tick", h.tick)
	handleFunc(http.MethodPut, "/clock/paused", h.setPaused)
	handleFunc(http.MethodPut, "/clock/speed", h.setSpeed)

	handleFunc(http.MethodGet, "/trades", h.getTrades)
	handleFunc(http.MethodPost, "/trades", h.placeTrade)
	handleFunc(http.MethodGet, "/positions", h.getPositions)
	handleFunc(http.MethodGet, "/fund", h.getFund)
	handleFunc(http.MethodGet, "/portfolio", h.getPortfolio)

	handleFunc(http.MethodGet, "/subjects", h.getSubjects)
	handleFunc(http.MethodGet, "/prices", h.getLatestPrices)
	handleFunc(http.MethodGet, "/subjects/{ticker}/prices", h.getPriceHistory)

	handleFunc(http.MethodGet, "/patients", h.getPatients)
	handleFunc(http.MethodPost, "/patients", h.admit)
	handleFunc(http.MethodPost, "/patients/{id}/diagnosis", h.diagnose)

	handleFunc(http.MethodGet, "/memories", h.getMemories)
	handleFunc(http.MethodPost, "/memories", h.writeMemory)

	handleFunc(http.MethodGet, "/world", h.getWorld)

	if events != nil {
		router.Handle("/events/ws", otelhttp.WithRouteTag("/events/ws", events)).Methods(http.MethodGet)
	}
}

func (h *handler) getClock(w http.ResponseWriter, r *http.Request) {
	clock, err := h.world.FetchClock(r.Context())
	respond("getClock", clock, err, w)
}

func (h *handler) tick(w http.ResponseWriter, r *http.Request) {
	result, err := h.world.Tick(r.Context())
	respond("tick", result, err, w)
}

func (h *handler) setPaused(w http.ResponseWriter, r *http.Request) {
	var req models.SetPausedRequest
	if err := decodeBody(r, &req); err != nil {
		respond("setPaused", nil, err, w)
		return
	}

	clock, err := h.world.SetPaused(r.Context(), req.Paused)
	respond("setPaused", clock, err, w)
}

func (h *handler) setSpeed(w http.ResponseWriter, r *http.Request) {
	var req models.SetSpeedRequest
	if err := decodeBody(r, &req); err != nil {
		respond("setSpeed", nil, err, w)
		return
	}

	clock, err := h.world.SetSpeed(r.Context(), req.Speed)
	respond("setSpeed", clock, err, w)
}

func (h *handler) getTrades(w http.ResponseWriter, r *http.Request) {
	query, err := decodeQuery(r)
	if err != nil {
		respond("getTrades", nil, err, w)
		return
	}

	trades, err := h.world.FetchTrades(r.Context(), query.Limit)
	respond("getTrades", trades, err, w)
}

func (h *handler) placeTrade(w http.ResponseWriter, r *http.Request) {
	var req models.TradeRequest
	if err := decodeBody(r, &req); err != nil {
		respond("placeTrade", nil, err, w)
		return
	}

	if err := validate(&req); err != nil {
		respond("placeTrade", nil, err, w)
		return
	}

	result, err := h.world.PlaceTrade(r.Context(), &req)
	respond("placeTrade", result, err, w)
}

func (h *handler) getPositions(w http.ResponseWriter, r *http.Request) {
	query, err := decodeQuery(r)
	if err != nil {
		respond("getPositions", nil, err, w)
		return
	}

	filter := models.PositionFilter{Ticker: strings.ToUpper(query.Ticker)}
	if query.Status != "" {
		status := models.PositionStatus(query.Status)
		if err := status.Validate(); err != nil {
			respond("getPositions", nil, NewWebError(http.StatusBadRequest, "invalid query", err), w)
			return
		}
		filter.Status = &status
	}

	positions, err := h.world.FetchPositions(r.Context(), filter)
	respond("getPositions", positions, err, w)
}

func (h *handler) getFund(w http.ResponseWriter, r *http.Request) {
	summary, err := h.world.FetchFundSummary(r.Context())
	respond("getFund", summary, err, w)
}

func (h *handler) getPortfolio(w http.ResponseWriter, r *http.Request) {
	portfolio, err := h.world.FetchPortfolio(r.Context())
	respond("getPortfolio", portfolio, err, w)
}

func (h *handler) getSubjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := h.world.FetchSubjects(r.Context())
	respond("getSubjects", subjects, err, w)
}

func (h *handler) getLatestPrices(w http.ResponseWriter, r *http.Request) {
	prices, err := h.world.FetchLatestPrices(r.Context())
	respond("getLatestPrices", prices, err, w)
}

func (h *handler) getPriceHistory(w http.ResponseWriter, r *http.Request) {
	query, err := decodeQuery(r)
	if err != nil {
		respond("getPriceHistory", nil, err, w)
		return
	}

	history, err := h.world.FetchPriceHistory(r.Context(), mux.Vars(r)["ticker"], query.Limit)
	respond("getPriceHistory", history, err, w)
}

func (h *handler) getPatients(w http.ResponseWriter, r *http.Request) {
	query, err := decodeQuery(r)
	if err != nil {
		respond("getPatients", nil, err, w)
		return
	}

	var status *models.PatientStatus
	if query.Status != "" {
		s := models.PatientStatus(query.Status)
		if err := s.Validate(); err != nil {
			respond("getPatients", nil, NewWebError(http.StatusBadRequest, "invalid query", err), w)
			return
		}
		status = &s
	}

	patients, err := h.world.FetchPatients(r.Context(), status)
	respond("getPatients", patients, err, w)
}

func (h *handler) admit(w http.ResponseWriter, r *http.Request) {
	var req models.AdmitRequest
	if err := decodeBody(r, &req); err != nil {
		respond("admit", nil, err, w)
		return
	}

	if err := validate(&req); err != nil {
		respond("admit", nil, err, w)
		return
	}

	patient, err := h.world.Admit(r.Context(), &req)
	respond("admit", patient, err, w)
}

func (h *handler) diagnose(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respond("diagnose", nil, NewWebError(http.StatusBadRequest, "invalid patient id", err), w)
		return
	}

	var req models.DiagnoseRequest
	if err := decodeBody(r, &req); err != nil {
		respond("diagnose", nil, err, w)
		return
	}

	if err := validate(&req); err != nil {
		respond("diagnose", nil, err, w)
		return
	}

	patient, err := h.world.Diagnose(r.Context(), id, &req)
	respond("diagnose", patient, err, w)
}

func (h *handler) getMemories(w http.ResponseWriter, r *http.Request) {
	query, err := decodeQuery(r)
	if err != nil {
		respond("getMemories", nil, err, w)
		return
	}

	var memoryType *models.MemoryType
	if query.Type != "" {
		t := models.MemoryType(query.Type)
		if err := t.Validate(); err != nil {
			respond("getMemories", nil, NewWebError(http.StatusBadRequest, "invalid query", err), w)
			return
		}
		memoryType = &t
	}

	memories, err := h.world.FetchMemories(r.Context(), memoryType, query.Limit)
	respond("getMemories", memories, err, w)
}

func (h *handler) writeMemory(w http.ResponseWriter, r *http.Request) {
	var req models.WriteMemoryRequest
	if err := decodeBody(r, &req); err != nil {
		respond("writeMemory", nil, err, w)
		return
	}

	if err := validate(&req); err != nil {
		respond("writeMemory", nil, err, w)
		return
	}

	memory, err := h.world.WriteMemory(r.Context(), &req)
	respond("writeMemory", memory, err, w)
}

func (h *handler) getWorld(w http.ResponseWriter, r *http.Request) {
	state, err := h.world.FetchWorldState(r.Context())
	respond("getWorld", state, err, w)
}
