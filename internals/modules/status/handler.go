package status

import (
	"context"
	"net/http"
	"strconv"

	"healthwatch/internals/modules/alert"
	"healthwatch/internals/modules/engine"
	"healthwatch/internals/modules/incident"
	"healthwatch/pkg/apperror"
	"healthwatch/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

type Monitor interface {
	Statuses() []engine.TargetStatus
	RunCycle(ctx context.Context) engine.CycleSummary
}

type IncidentReader interface {
	Statistics() incident.Stats
	History(limit int) []incident.Incident
	Get(id string) (incident.Incident, bool)
}

type AlertStats interface {
	Stats() alert.Stats
}

type Handler struct {
	monitor   Monitor
	incidents IncidentReader
	alerts    AlertStats
}

func NewHandler(monitor Monitor, incidents IncidentReader, alerts AlertStats) *Handler {
	return &Handler{
		monitor:   monitor,
		incidents: incidents,
		alerts:    alerts,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	statuses := h.monitor.Statuses()
	resp := HealthResponse{Status: "ok", Targets: len(statuses)}
	for _, s := range statuses {
		if s.Status == engine.StatusDown {
			resp.Down++
		}
	}

	utils.WriteJSON(w, http.StatusOK, reqID, utils.MsgHealthy, resp)
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	statuses := h.monitor.Statuses()
	resp := StatusResponse{Targets: statuses}
	for _, s := range statuses {
		if s.Status == engine.StatusDown {
			resp.Down++
		} else {
			resp.Up++
		}
	}

	utils.WriteJSON(w, http.StatusOK, reqID, utils.MsgStatusRetrieved, resp)
}

func (h *Handler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	resp := StatisticsResponse{Incidents: h.incidents.Statistics()}
	if h.alerts != nil {
		resp.Alerts = h.alerts.Stats()
	}

	utils.WriteJSON(w, http.StatusOK, reqID, utils.MsgStatsRetrieved, resp)
}

// /incidents?limit=20
func (h *Handler) ListIncidents(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxHistoryLimit {
			utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput,
				"limit must be between 1 and "+strconv.Itoa(maxHistoryLimit))
			return
		}
		limit = n
	}

	list := h.incidents.History(limit)
	utils.WriteJSON(w, http.StatusOK, reqID, utils.MsgHistoryRetrieved, IncidentsResponse{Incidents: list, Count: len(list)})
}

func (h *Handler) GetIncident(w http.ResponseWriter, r *http.Request) {
	const op string = "handler.incident.get"
	reqID := middleware.GetReqID(r.Context())

	id := chi.URLParam(r, "incidentID")
	inc, ok := h.incidents.Get(id)
	if !ok {
		utils.FromAppError(w, reqID, apperror.Newf(apperror.NotFound, op, "incident %q not found", id))
		return
	}

	utils.WriteJSON(w, http.StatusOK, reqID, utils.MsgIncidentRetrieved, inc)
}

// RunChecks runs a full cycle now and waits for it, queueing behind a cycle
// that is already running.
func (h *Handler) RunChecks(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	summary := h.monitor.RunCycle(context.WithoutCancel(r.Context()))

	utils.WriteJSON(w, http.StatusOK, reqID, utils.MsgCycleCompleted, summary)
}
