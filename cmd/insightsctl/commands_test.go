package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ttl-analytics/insights-dashboard/internal/dashboard"
	"github.com/ttl-analytics/insights-dashboard/internal/views"
)

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/kpi-all", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"volume": {"total_opportunities": 1245, "win_rate": 24.899}, "financials": {"won_order_value": 3456789000}, "product_region": {"product": {"product_wise_orders": {"Pumps": 40, "Valves": 80}}}}`)
	})
	mux.HandleFunc("/ai-insights", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"insights": "- Revenue up 10%\n\n  • Costs down"}`)
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := rootCmd(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestViewsCommand(t *testing.T) {
	out, err := run(t, "views", "--backend", "http://analytics.test:8000")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "kpi "))
	assert.Contains(t, lines[1], "http://analytics.test:8000/kpi-all")
	assert.True(t, strings.HasPrefix(lines[2], "ai-insights "))
}

func TestFetchCommandText(t *testing.T) {
	srv := newBackend(t)
	out, err := run(t, "fetch", "kpi", "--backend", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "== kpi (kpi)")
	assert.Contains(t, out, "1,245")
	assert.Contains(t, out, "24.90%")
	assert.Contains(t, out, "₹3.46B")
	assert.Contains(t, out, dashboard.Placeholder)
	assert.Less(t, strings.Index(out, "Valves"), strings.Index(out, "Pumps"))
}

func TestFetchCommandJSON(t *testing.T) {
	srv := newBackend(t)
	out, err := run(t, "fetch", "ai-insights", "--json", "--backend", srv.URL)
	require.NoError(t, err)

	var state dashboard.DisplayState
	require.NoError(t, json.Unmarshal([]byte(out), &state))
	assert.Equal(t, dashboard.StateInsights, state.Kind)
	require.Len(t, state.Insights, 2)
	assert.Equal(t, "Costs down", state.Insights[1].Text)
	assert.Equal(t, 2, state.Insights[1].SequenceNumber)
}

func TestFetchCommandUnknownView(t *testing.T) {
	srv := newBackend(t)
	out, err := run(t, "fetch", "regional", "--backend", srv.URL)
	assert.ErrorIs(t, err, errLoadFailed)
	assert.Contains(t, out, dashboard.MsgUnknownView)
}

func TestSnapshotCommandWithViewsFile(t *testing.T) {
	srv := newBackend(t)
	file := filepath.Join(t.TempDir(), "views.yaml")
	require.NoError(t, os.WriteFile(file, []byte("views:\n  - id: broken\n    kind: kpi\n    label: Broken\n    path: /broken\n"), 0o600))

	out, err := run(t, "snapshot", "--json", "--backend", srv.URL, "--views-file", file)
	assert.ErrorIs(t, err, errLoadFailed)

	var states []dashboard.DisplayState
	require.NoError(t, json.Unmarshal([]byte(out), &states))
	require.Len(t, states, 3)
	assert.Equal(t, dashboard.StateKPI, states[0].Kind)
	assert.Equal(t, dashboard.StateInsights, states[1].Kind)
	assert.Equal(t, dashboard.Failed("broken", dashboard.MsgLoadFailed), states[2])
}

type countingLoader struct {
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (l *countingLoader) Load(_ context.Context, id string) dashboard.DisplayState {
	n := l.inFlight.Add(1)
	for {
		peak := l.peak.Load()
		if n <= peak || l.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)
	l.inFlight.Add(-1)
	return dashboard.Empty(id)
}

func TestSnapshotKeepsOrderAndRunsConcurrently(t *testing.T) {
	descriptors := []views.Descriptor{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}, {ID: "e"}, {ID: "f"}}
	loader := &countingLoader{}

	states, err := snapshot(context.Background(), loader, descriptors)
	require.NoError(t, err)
	require.Len(t, states, len(descriptors))
	for i, d := range descriptors {
		assert.Equal(t, d.ID, states[i].View)
	}
	assert.Greater(t, loader.peak.Load(), int32(1))
	assert.LessOrEqual(t, loader.peak.Load(), int32(4))
}
