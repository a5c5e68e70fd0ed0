package dashboardhttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/ttl-analytics/insights-dashboard/internal/platform/httpx"
	"github.com/ttl-analytics/insights-dashboard/internal/session"
)

// MountRoutes registers the dashboard page and API endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(30, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.RespondError(w, httpx.ErrRateLimited, "too many view selections, try again shortly")
		}),
	)

	r.Get("/", h.handleIndex)
	r.Get("/insights", h.handleInsights)
	r.Get("/insights/current", h.handleCurrent)
	r.Get("/readyz", h.handleReady)
	r.Route("/api", func(api chi.Router) {
		api.Get("/views", h.handleListViews)
		api.Get("/state", h.handleState)
		api.With(limiter).Get("/views/{id}", h.handleSelectView)
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	if sess := session.FromContext(r.Context()); sess != nil && sess.ID != "" {
		return "session:" + sess.ID, nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
