package dashboardhttp

import (
	"html/template"
	"net/url"
	"time"

	"github.com/ttl-analytics/insights-dashboard/internal/chart"
	"github.com/ttl-analytics/insights-dashboard/internal/dashboard"
	"github.com/ttl-analytics/insights-dashboard/internal/views"
)

// Switcher markers shown after each view label.
const (
	markerActive   = "▾"
	markerInactive = "↓"
)

// SwitcherItem is one entry of the view switcher.
type SwitcherItem struct {
	ID     string
	Label  string
	URL    string
	Marker string
	Active bool
}

// Card is one headline value.
type Card struct {
	Label string
	Value string
	Large bool
}

// Section groups cards under a heading.
type Section struct {
	Title string
	Cards []Card
}

// InsightCard is one numbered narrative line.
type InsightCard struct {
	Number int
	Text   string
}

// PageViewModel is everything the insights page renders.
type PageViewModel struct {
	View     string
	State    dashboard.StateKind
	Switcher []SwitcherItem

	Loading bool
	Failed  bool
	Empty   bool
	Message string

	Sections     []Section
	Products     []Card
	ProductChart template.HTML

	ShowInsights bool
	Insights     []InsightCard
	GeneratedAt  time.Time
}

// ChartRenderer abstracts the product chart.
type ChartRenderer interface {
	HorizontalBars(width int, points []chart.Point, opts chart.Opts) (template.HTML, error)
}

type chartFunc func(width int, points []chart.Point, opts chart.Opts) (template.HTML, error)

func (f chartFunc) HorizontalBars(width int, points []chart.Point, opts chart.Opts) (template.HTML, error) {
	return f(width, points, opts)
}

// DefaultChart renders with the chart package.
var DefaultChart ChartRenderer = chartFunc(chart.HorizontalBars)

// BuildSwitcher lists every registered view in registry order.
func BuildSwitcher(descriptors []views.Descriptor, active string) []SwitcherItem {
	items := make([]SwitcherItem, 0, len(descriptors))
	for _, d := range descriptors {
		item := SwitcherItem{
			ID:     d.ID,
			Label:  d.Label,
			URL:    "/insights?view=" + url.QueryEscape(d.ID),
			Marker: markerInactive,
		}
		if d.ID == active {
			item.Active = true
			item.Marker = markerActive
		}
		items = append(items, item)
	}
	return items
}

// BuildPage maps a display state onto the page view model. Chart failures
// only drop the chart.
func BuildPage(state dashboard.DisplayState, descriptors []views.Descriptor, f *dashboard.Formatter, renderer ChartRenderer) (PageViewModel, error) {
	vm := PageViewModel{
		View:     state.View,
		State:    state.Kind,
		Switcher: BuildSwitcher(descriptors, state.View),
	}
	switch state.Kind {
	case dashboard.StateLoading:
		vm.Loading = true
	case dashboard.StateError:
		vm.Failed = true
		vm.Message = state.Message
	case dashboard.StateKPI:
		vm.Sections = kpiSections(state.KPI, f)
		products := chart.SortedPoints(state.KPI.ProductWiseOrders())
		for _, p := range products {
			value := p.Value
			vm.Products = append(vm.Products, Card{Label: p.Label, Value: f.Count(&value)})
		}
		if len(products) > 0 && renderer != nil {
			svg, err := renderer.HorizontalBars(0, products, chart.Opts{
				Title:       "Product-wise orders",
				Description: "Won orders by product",
				Limit:       15,
			})
			if err != nil {
				return vm, err
			}
			vm.ProductChart = svg
		}
	case dashboard.StateInsights:
		vm.Sections = excerptSections(state.Excerpt, f)
		vm.ShowInsights = true
		for _, item := range state.Insights {
			vm.Insights = append(vm.Insights, InsightCard{Number: item.SequenceNumber, Text: item.Text})
			vm.GeneratedAt = item.GeneratedAt
		}
	default:
		vm.Empty = true
	}
	return vm, nil
}

func kpiSections(s *dashboard.KPISnapshot, f *dashboard.Formatter) []Section {
	var vol dashboard.Volume
	var fin dashboard.Financials
	if s != nil {
		if s.Volume != nil {
			vol = *s.Volume
		}
		if s.Financials != nil {
			fin = *s.Financials
		}
	}
	return []Section{
		{
			Title: "Volume Metrics",
			Cards: []Card{
				{Label: "Total Opportunities", Value: f.Count(vol.TotalOpportunities)},
				{Label: "Won", Value: f.Count(vol.TotalWon)},
				{Label: "Lost", Value: f.Count(vol.TotalLost)},
				{Label: "Win Rate", Value: f.Rate(vol.WinRate)},
				{Label: "Lost Rate", Value: f.Rate(vol.LostRate)},
				{Label: "Open Opportunities", Value: f.Count(vol.OpenOpportunities)},
			},
		},
		{
			Title: "Financial Metrics",
			Cards: []Card{
				{Label: "Won Order Value", Value: f.Billions(fin.WonOrderValue), Large: true},
				{Label: "Avg Won Deal Size", Value: f.Millions(fin.AvgWonDealSize), Large: true},
				{Label: "Expected Revenue", Value: f.Billions(fin.ExpectedRevenue), Large: true},
				{Label: "Revenue Realization", Value: f.Rate(fin.RevenueRealizationRate)},
			},
		},
	}
}

func excerptSections(s *dashboard.KPISnapshot, f *dashboard.Formatter) []Section {
	var vol dashboard.Volume
	var fin dashboard.Financials
	if s != nil {
		if s.Volume != nil {
			vol = *s.Volume
		}
		if s.Financials != nil {
			fin = *s.Financials
		}
	}
	return []Section{
		{
			Title: "Key Performance Indicators",
			Cards: []Card{
				{Label: "Total Opportunities", Value: f.Count(vol.TotalOpportunities)},
				{Label: "Won", Value: f.Count(vol.TotalWon)},
				{Label: "Lost", Value: f.Count(vol.TotalLost)},
				{Label: "Win Rate", Value: f.Rate(vol.WinRate)},
			},
		},
		{
			Cards: []Card{
				{Label: "Won Order Value", Value: f.Billions(fin.WonOrderValue), Large: true},
				{Label: "Expected Revenue", Value: f.Billions(fin.ExpectedRevenue), Large: true},
			},
		},
	}
}
