package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/ttl-analytics/insights-dashboard/internal/observability"
	"github.com/ttl-analytics/insights-dashboard/internal/platform/httpx"
	"github.com/ttl-analytics/insights-dashboard/internal/session"
)

const defaultRequestTimeout = 30 * time.Second

// MiddlewareConfig aggregates dependencies shared by the middleware stack.
type MiddlewareConfig struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *session.Manager
	Metrics        *observability.Metrics
}

// MiddlewareStack returns the chain wrapped around every dashboard route, outermost first.
func MiddlewareStack(cfg MiddlewareConfig) []func(http.Handler) http.Handler {
	stack := []func(http.Handler) http.Handler{
		middleware.RealIP,
		middleware.RequestID,
		loadSession(cfg.SessionManager, cfg.Logger),
		middleware.Recoverer,
		middleware.Timeout(requestTimeout(cfg.Config)),
		securityHeaders(cfg.Config, cfg.Logger),
		middleware.Compress(5),
	}
	if limit := rateLimit(cfg.Config); limit > 0 {
		stack = append(stack, httprate.Limit(limit, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				httpx.RespondError(w, httpx.ErrRateLimited, "request rate exceeded")
			}),
		))
	}
	if cfg.Metrics != nil {
		stack = append(stack, cfg.Metrics.Middleware)
	}
	return stack
}

func requestTimeout(cfg *Config) time.Duration {
	if cfg != nil && cfg.AppRequestTimeout > 0 {
		return cfg.AppRequestTimeout
	}
	return defaultRequestTimeout
}

func rateLimit(cfg *Config) int {
	if cfg == nil {
		return 120
	}
	return cfg.RateLimitPerMin
}

// loadSession attaches the visitor session to the request context and commits
// it when the response starts. A nil manager disables sessions.
func loadSession(manager *session.Manager, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if manager == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := manager.Load(r.Context(), r)
			if err != nil {
				logger.Error("load session", slog.Any("error", err))
				httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "session store unavailable")
				return
			}
			ctx := session.NewContext(r.Context(), sess)
			cw := &committingWriter{
				ResponseWriter: w,
				commit: func(dst http.ResponseWriter) {
					// the commit must land even if the client has gone away
					if err := manager.Commit(context.WithoutCancel(ctx), dst, sess); err != nil {
						logger.Warn("commit session", slog.String("session", sess.ID), slog.Any("error", err))
					}
				},
			}
			next.ServeHTTP(cw, r.WithContext(ctx))
		})
	}
}

// committingWriter runs commit once, right before the status line is sent,
// so handlers can still mutate the session while building the response.
type committingWriter struct {
	http.ResponseWriter
	commit  func(http.ResponseWriter)
	started bool
}

func (w *committingWriter) WriteHeader(status int) {
	if !w.started {
		w.started = true
		w.commit(w.ResponseWriter)
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *committingWriter) Write(p []byte) (int, error) {
	if !w.started {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(p)
}

func (w *committingWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

func securityHeaders(cfg *Config, logger *slog.Logger) func(http.Handler) http.Handler {
	sec := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		PermissionsPolicy:     "camera=(), microphone=(), geolocation=()",
		ContentSecurityPolicy: "default-src 'self'; img-src 'self' data:",
		SSLRedirect:           cfg.IsProduction(),
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
	})
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := sec.Process(w, r); err != nil {
				// secure has already written the redirect or rejection
				logger.Debug("request stopped by secure headers", slog.Any("error", err))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
