// Package dashboard turns backend analytics payloads into the display state
// the insights page renders from.
package dashboard

import "time"

// StateKind tags the active variant of a DisplayState.
type StateKind string

const (
	StateLoading  StateKind = "loading"
	StateError    StateKind = "error"
	StateEmpty    StateKind = "empty"
	StateKPI      StateKind = "kpi"
	StateInsights StateKind = "insights"
)

// DisplayState is the single value a renderer reads. Only the fields that
// belong to Kind are populated; values are replaced, never mutated.
type DisplayState struct {
	Kind     StateKind     `json:"kind"`
	View     string        `json:"view"`
	Message  string        `json:"message,omitempty"`
	KPI      *KPISnapshot  `json:"kpi,omitempty"`
	Excerpt  *KPISnapshot  `json:"excerpt,omitempty"`
	Insights []InsightItem `json:"insights,omitempty"`
}

// InsightItem is one line of the AI narrative.
type InsightItem struct {
	SequenceNumber int       `json:"sequence_number"`
	Text           string    `json:"text"`
	GeneratedAt    time.Time `json:"generated_at"`
	SourceView     string    `json:"source_view"`
}

// Loading is shown between a selection and its completed fetch.
func Loading(view string) DisplayState {
	return DisplayState{Kind: StateLoading, View: view}
}

// Failed carries the user-facing message of a failed load.
func Failed(view, message string) DisplayState {
	return DisplayState{Kind: StateError, View: view, Message: message}
}

// Empty means the load succeeded but produced nothing to show.
func Empty(view string) DisplayState {
	return DisplayState{Kind: StateEmpty, View: view}
}

// ShowingKPI wraps a KPI snapshot.
func ShowingKPI(view string, snapshot *KPISnapshot) DisplayState {
	return DisplayState{Kind: StateKPI, View: view, KPI: snapshot}
}

// ShowingInsights wraps the KPI excerpt and insight list of the AI view.
func ShowingInsights(view string, excerpt *KPISnapshot, items []InsightItem) DisplayState {
	return DisplayState{Kind: StateInsights, View: view, Excerpt: excerpt, Insights: items}
}

// IsTerminal reports whether the state is the outcome of a completed load.
func (s DisplayState) IsTerminal() bool {
	return s.Kind != StateLoading && s.Kind != ""
}
