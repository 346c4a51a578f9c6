package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/tagtracker/internal/tracker"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// onRun, if non-nil, receives the outcome of every run triggered through the API.
func NewRouter(svc *tracker.Service, authEnabled bool, token string, sseHandler http.Handler, onRun tracker.RunCallback) chi.Router {
	h := NewHandler(svc, onRun)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Tags.
	r.Get("/tags", h.ListTags)
	r.Get("/tags/{tag}", h.GetTag)

	// Reports.
	r.Get("/reports", h.ListReports)
	r.Post("/reports/run", h.RunReport)
	r.Get("/reports/*", h.GetReport)

	// Views.
	r.Get("/views", h.ListViews)
	r.Get("/views/{name}", h.RenderView)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
