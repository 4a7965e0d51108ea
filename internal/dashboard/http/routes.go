package dashboardhttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/fomet/fomet/internal/auth"
	"github.com/fomet/fomet/internal/shared"
)

// MountRoutes registers the dashboard and API endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(20, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)

	r.Group(func(gr chi.Router) {
		gr.Use(auth.RequireLogin)
		gr.Get("/dashboard", h.handleDashboard)
		gr.Get("/dashboard/records/{row}/edit", h.handleEdit)
		gr.Get("/api/records", h.handleRecordsAPI)
		gr.Group(func(lr chi.Router) {
			lr.Use(limiter)
			lr.Get("/dashboard/export.csv", h.handleExport)
			lr.Post("/dashboard/records", h.handleSubmit)
			lr.Post("/dashboard/records/{row}/delete", h.handleDelete)
			lr.Post("/dashboard/records/{row}/done", h.handleDone)
		})
	})
	r.Post("/api/proxy", h.handleProxy)
	r.MethodFunc(http.MethodGet, "/api/proxy", h.handleProxy)
}

func rateLimitKey(r *http.Request) (string, error) {
	if p := shared.PrincipalFromContext(r.Context()); p != nil && p.Username != "" {
		return "user:" + p.Username, nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
