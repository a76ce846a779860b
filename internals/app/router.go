package app

import (
	"net/http"
	"time"

	middle "healthwatch/internals/middleware"
	"healthwatch/internals/modules/status"
	"healthwatch/internals/security"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func RegisterRoutes(c *Container) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middle.Logger(c.Logger))

	r.With(middleware.Timeout(5*time.Second)).Get("/healthz", c.statusHandler.Health)

	r.Route("/api/v1", func(v1 chi.Router) {
		var runGuards []func(http.Handler) http.Handler

		// auth is enabled by configuring a secret
		if c.authMW != nil {
			v1.Use(c.authMW.Handle)
			runGuards = append(runGuards, middle.RequireScope(security.ScopeRunChecks))
		}

		v1.Mount("/", status.Routes(c.statusHandler, runGuards...))
	})

	return r
}
