// Package dashboardhttp serves the insights page and its JSON API.
package dashboardhttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ttl-analytics/insights-dashboard/internal/dashboard"
	"github.com/ttl-analytics/insights-dashboard/internal/platform/httpx"
	"github.com/ttl-analytics/insights-dashboard/internal/session"
	"github.com/ttl-analytics/insights-dashboard/internal/view"
	"github.com/ttl-analytics/insights-dashboard/internal/views"
)

const (
	pageTitle        = "TTL AI Analysis"
	currentPath      = "/insights/current"
	refreshSeconds   = 2
	readinessTimeout = 3 * time.Second
	anonymousKey     = "anonymous"
)

// Registry lists and checks the selectable views.
type Registry interface {
	List() []views.Descriptor
	Has(id string) bool
}

// Controllers hands out the controller bound to a session.
type Controllers interface {
	Controller(key string) *dashboard.Controller
	Lookup(key string) (*dashboard.Controller, bool)
}

// Pinger checks backend reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options carries the handler's tunables.
type Options struct {
	DefaultView string
	RenderWait  time.Duration
	Formatter   *dashboard.Formatter
	Chart       ChartRenderer
}

// Handler coordinates HTTP requests for the insights dashboard.
type Handler struct {
	logger      *slog.Logger
	registry    Registry
	controllers Controllers
	templates   *view.Engine
	backend     Pinger
	formatter   *dashboard.Formatter
	chart       ChartRenderer
	defaultView string
	renderWait  time.Duration
}

// NewHandler constructs the dashboard HTTP handler.
func NewHandler(logger *slog.Logger, registry Registry, controllers Controllers, templates *view.Engine, backend Pinger, opts Options) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Formatter == nil {
		opts.Formatter = dashboard.NewFormatter("₹", false)
	}
	if opts.Chart == nil {
		opts.Chart = DefaultChart
	}
	if opts.DefaultView == "" {
		opts.DefaultView = views.IDAIInsights
	}
	if opts.RenderWait <= 0 {
		opts.RenderWait = 10 * time.Second
	}
	return &Handler{
		logger:      logger,
		registry:    registry,
		controllers: controllers,
		templates:   templates,
		backend:     backend,
		formatter:   opts.Formatter,
		chart:       opts.Chart,
		defaultView: opts.DefaultView,
		renderWait:  opts.RenderWait,
	}
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/insights", http.StatusSeeOther)
}

func (h *Handler) handleInsights(w http.ResponseWriter, r *http.Request) {
	viewID := h.selectedView(r)
	ctrl := h.controllers.Controller(sessionKey(r))

	ctx, cancel := context.WithTimeout(r.Context(), h.renderWait)
	defer cancel()
	state := ctrl.SelectAndWait(ctx, viewID)
	h.renderPage(w, r, state)
}

func (h *Handler) handleCurrent(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controllers.Lookup(sessionKey(r))
	if !ok || ctrl.Active() == "" {
		http.Redirect(w, r, "/insights", http.StatusSeeOther)
		return
	}
	h.renderPage(w, r, ctrl.State())
}

func (h *Handler) renderPage(w http.ResponseWriter, r *http.Request, state dashboard.DisplayState) {
	vm, err := BuildPage(state, h.registry.List(), h.formatter, h.chart)
	if err != nil {
		h.logError("render product chart", err)
		vm.ProductChart = ""
	}
	data := view.TemplateData{
		Title:       pageTitle,
		CurrentPath: r.URL.Path,
		Data:        vm,
	}
	if !state.IsTerminal() {
		data.RefreshURL = currentPath
		data.RefreshAfter = refreshSeconds
	}
	w.Header().Set("Cache-Control", "no-store")
	if err := h.templates.Render(w, "pages/insights.html", data); err != nil {
		h.handleServerError(w, "render insights", err)
	}
}

type viewResponse struct {
	ID    string     `json:"id"`
	Label string     `json:"label"`
	Kind  views.Kind `json:"kind"`
}

func (h *Handler) handleListViews(w http.ResponseWriter, r *http.Request) {
	descriptors := h.registry.List()
	out := make([]viewResponse, 0, len(descriptors))
	for _, d := range descriptors {
		out = append(out, viewResponse{ID: d.ID, Label: d.Label, Kind: d.Kind})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) handleSelectView(w http.ResponseWriter, r *http.Request) {
	viewID := strings.TrimSpace(chi.URLParam(r, "id"))
	ctrl := h.controllers.Controller(sessionKey(r))

	ctx, cancel := context.WithTimeout(r.Context(), h.renderWait)
	defer cancel()
	state := ctrl.SelectAndWait(ctx, viewID)

	if !h.registry.Has(viewID) {
		httpx.RespondError(w, httpx.ErrNotFound, dashboard.MsgUnknownView)
		return
	}
	if sess := session.FromContext(r.Context()); sess != nil {
		sess.SetLastView(viewID)
	}
	httpx.JSON(w, stateStatus(state), state)
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controllers.Lookup(sessionKey(r))
	if !ok {
		httpx.JSON(w, http.StatusOK, dashboard.Empty(""))
		return
	}
	state := ctrl.State()
	httpx.JSON(w, stateStatus(state), state)
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if h.backend == nil {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()
	if err := h.backend.Ping(ctx); err != nil {
		h.logger.Warn("backend not ready", slog.Any("error", err))
		httpx.RespondError(w, errors.Join(httpx.ErrUnavailable, err), "analytics backend unreachable")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// selectedView picks the query view, then the session's last view, then the
// default, and remembers registered choices in the session.
func (h *Handler) selectedView(r *http.Request) string {
	sess := session.FromContext(r.Context())
	viewID := strings.TrimSpace(r.URL.Query().Get("view"))
	if viewID == "" && sess != nil && h.registry.Has(sess.LastView()) {
		viewID = sess.LastView()
	}
	if viewID == "" {
		viewID = h.defaultView
	}
	if sess != nil && h.registry.Has(viewID) {
		sess.SetLastView(viewID)
	}
	return viewID
}

func sessionKey(r *http.Request) string {
	if sess := session.FromContext(r.Context()); sess != nil && sess.ID != "" {
		return sess.ID
	}
	return anonymousKey
}

func stateStatus(state dashboard.DisplayState) int {
	if !state.IsTerminal() {
		return http.StatusAccepted
	}
	return http.StatusOK
}

func (h *Handler) handleServerError(w http.ResponseWriter, op string, err error) {
	h.logError(op, err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (h *Handler) logError(op string, err error) {
	if h.logger == nil || err == nil {
		return
	}
	h.logger.Error(op, slog.Any("error", err))
}
