package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/ttl-analytics/insights-dashboard/internal/chart"
	"github.com/ttl-analytics/insights-dashboard/internal/dashboard"
)

func printState(w io.Writer, state dashboard.DisplayState, f *dashboard.Formatter) {
	fmt.Fprintf(w, "== %s (%s)\n", state.View, state.Kind)
	switch state.Kind {
	case dashboard.StateError:
		fmt.Fprintln(w, state.Message)
	case dashboard.StateEmpty:
		fmt.Fprintln(w, "No data available for the selected filter.")
	case dashboard.StateKPI:
		printKPI(w, state.KPI, f, true)
	case dashboard.StateInsights:
		printKPI(w, state.Excerpt, f, false)
		for _, item := range state.Insights {
			fmt.Fprintf(w, "%d. %s\n", item.SequenceNumber, item.Text)
		}
	}
}

func printKPI(w io.Writer, s *dashboard.KPISnapshot, f *dashboard.Formatter, full bool) {
	var vol dashboard.Volume
	var fin dashboard.Financials
	if s != nil && s.Volume != nil {
		vol = *s.Volume
	}
	if s != nil && s.Financials != nil {
		fin = *s.Financials
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	row := func(label, value string) { fmt.Fprintf(tw, "%s\t%s\n", label, value) }
	row("Total Opportunities", f.Count(vol.TotalOpportunities))
	row("Won", f.Count(vol.TotalWon))
	row("Lost", f.Count(vol.TotalLost))
	row("Win Rate", f.Rate(vol.WinRate))
	if full {
		row("Lost Rate", f.Rate(vol.LostRate))
		row("Open Opportunities", f.Count(vol.OpenOpportunities))
	}
	row("Won Order Value", f.Billions(fin.WonOrderValue))
	if full {
		row("Avg Won Deal Size", f.Millions(fin.AvgWonDealSize))
	}
	row("Expected Revenue", f.Billions(fin.ExpectedRevenue))
	if full {
		row("Revenue Realization", f.Rate(fin.RevenueRealizationRate))
		for _, p := range chart.SortedPoints(s.ProductWiseOrders()) {
			value := p.Value
			row("  "+p.Label, f.Count(&value))
		}
	}
	_ = tw.Flush()
}
