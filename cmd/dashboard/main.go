package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ttl-analytics/insights-dashboard/internal/app"
	"github.com/ttl-analytics/insights-dashboard/internal/backend"
	"github.com/ttl-analytics/insights-dashboard/internal/dashboard"
	dashboardhttp "github.com/ttl-analytics/insights-dashboard/internal/dashboard/http"
	"github.com/ttl-analytics/insights-dashboard/internal/observability"
	"github.com/ttl-analytics/insights-dashboard/internal/platform/cache"
	"github.com/ttl-analytics/insights-dashboard/internal/session"
	"github.com/ttl-analytics/insights-dashboard/internal/view"
	"github.com/ttl-analytics/insights-dashboard/internal/views"
)

const sweepInterval = time.Minute

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	if err := app.LoadDotEnv(); err != nil {
		slog.Default().Warn("load .env", slog.Any("error", err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		if redisClient == nil {
			logger.Error("configure redis", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	registry, err := views.LoadFile(cfg.ViewsFile, cfg.BackendBaseURL)
	if err != nil {
		logger.Error("load view registry", slog.Any("error", err))
		os.Exit(1)
	}
	if !registry.Has(cfg.DefaultView) {
		logger.Error("default view not registered", slog.String("view", cfg.DefaultView))
		os.Exit(1)
	}

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	loadMetrics := dashboard.NewMetrics(metrics.Registerer())

	client := backend.NewClient(cfg.BackendBaseURL, cfg.BackendTimeout)
	pipeline := dashboard.NewPipeline(registry, client, logger,
		dashboard.WithMetrics(loadMetrics),
		dashboard.WithTimeout(cfg.BackendTimeout),
	)

	hub := dashboard.NewHub(pipeline, loadMetrics, cfg.ControllerIdle)
	hub.SetLimit(cfg.MaxControllers)
	go hub.Run(ctx, sweepInterval)

	sessionManager := session.NewManager(redisClient, session.DefaultCookieName, cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction()).
		WithFirstVisitTTL(cfg.SessionFirstTTL)

	dashboardHandler := dashboardhttp.NewHandler(logger, registry, hub, templates, client, dashboardhttp.Options{
		DefaultView: cfg.DefaultView,
		RenderWait:  cfg.RenderWait,
		Formatter:   dashboard.NewFormatter(cfg.CurrencySymbol, cfg.ZeroAsAbsent),
	})

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessionManager,
		DashboardHandler: dashboardHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server",
			slog.String("addr", cfg.AppAddr),
			slog.String("backend", cfg.BackendBaseURL),
			slog.Int("views", len(registry.List())),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
