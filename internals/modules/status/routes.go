package status

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes mounts the read endpoints. runGuards wrap only the endpoint that
// triggers a cycle.
func Routes(h *Handler, runGuards ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/status", h.GetStatus)
	r.Get("/statistics", h.GetStatistics)
	r.Get("/incidents", h.ListIncidents)
	r.Get("/incidents/{incidentID}", h.GetIncident)
	r.With(runGuards...).Post("/checks/run", h.RunChecks)

	return r
}

/*
- GET: /healthz -> liveness, counts of targets and DOWN targets
- GET: /api/v1/status -> every target with its last result
- GET: /api/v1/statistics -> incident and alert delivery statistics
- GET: /api/v1/incidents?limit={} -> incident history, newest first (default 50, max 500)
- GET: /api/v1/incidents/{incidentID} -> one incident
- POST: /api/v1/checks/run -> run a check cycle now
	req auth : scope checks:run when auth is enabled
*/
