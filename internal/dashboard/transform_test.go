package dashboard

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func texts(items []InsightItem) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Text)
	}
	return out
}

func TestSplitNarrativeExample(t *testing.T) {
	items := SplitNarrative("- Revenue up 10%\n\n  • Costs down\nNo bullet line", "ai-insights", fixedNow)
	require.Len(t, items, 3)
	assert.Equal(t, []string{"Revenue up 10%", "Costs down", "No bullet line"}, texts(items))
	for i, item := range items {
		assert.Equal(t, i+1, item.SequenceNumber)
		assert.Equal(t, fixedNow, item.GeneratedAt)
		assert.Equal(t, "ai-insights", item.SourceView)
	}
}

func TestSplitNarrativeDropsBlankRuns(t *testing.T) {
	narrative := "\n\n   \n\t\nFirst\r\n\n\n\n   \nSecond\n \n"
	items := SplitNarrative(narrative, "ai-insights", fixedNow)
	assert.Equal(t, []string{"First", "Second"}, texts(items))
	assert.Empty(t, SplitNarrative("", "ai-insights", fixedNow))
	assert.Empty(t, SplitNarrative(" \n\t \n", "ai-insights", fixedNow))
}

func TestSplitNarrativeKeepsInteriorMarkers(t *testing.T) {
	items := SplitNarrative("-- • - North - South • East\n1. Year-over-year growth", "ai-insights", fixedNow)
	assert.Equal(t, []string{"North - South • East", "1. Year-over-year growth"}, texts(items))
}

func TestSplitNarrativeDropsBareBullets(t *testing.T) {
	items := SplitNarrative("-\n•\n - • \nReal insight", "ai-insights", fixedNow)
	require.Len(t, items, 1)
	assert.Equal(t, "Real insight", items[0].Text)
	assert.Equal(t, 1, items[0].SequenceNumber)
}

func TestSplitNarrativeCountsNonBlankLines(t *testing.T) {
	for n := 0; n <= 12; n++ {
		var b strings.Builder
		for i := 0; i < n; i++ {
			fmt.Fprintf(&b, "\n  - insight %d \n\n", i)
		}
		items := SplitNarrative(b.String(), "ai-insights", fixedNow)
		require.Len(t, items, n)
		for i, item := range items {
			assert.Equal(t, i+1, item.SequenceNumber)
			assert.Equal(t, fmt.Sprintf("insight %d", i), item.Text)
		}
	}
}

func TestDecodeKPIFullPayload(t *testing.T) {
	raw := json.RawMessage(`{
		"volume": {"total_opportunities": 120, "total_won": 30, "total_lost": 20, "win_rate": 60, "lost_rate": 16.67, "open_opportunities": 70, "unique_customers": 9},
		"financials": {"won_order_value": 2500000000, "avg_won_deal_size": 83333333.33, "expected_revenue": 4100000000, "revenue_realization_rate": 60.98},
		"product_region": {"product": {"product_wise_orders": {"Pumps": 40, "Valves": 80}}, "region": {}},
		"loss_analysis": {"lost_value": 1}
	}`)
	snap := DecodeKPI(raw)
	require.NotNil(t, snap)
	require.NotNil(t, snap.Volume)
	assert.Equal(t, 120.0, *snap.Volume.TotalOpportunities)
	assert.Equal(t, 16.67, *snap.Volume.LostRate)
	require.NotNil(t, snap.Financials)
	assert.Equal(t, 60.98, *snap.Financials.RevenueRealizationRate)
	assert.Equal(t, map[string]float64{"Pumps": 40, "Valves": 80}, snap.ProductWiseOrders())
	assert.JSONEq(t, string(raw), string(snap.Raw))
}

func TestDecodeKPIIsLenient(t *testing.T) {
	raw := json.RawMessage(`{
		"volume": {"total_won": "thirty", "win_rate": null, "total_lost": 0},
		"financials": "n/a",
		"product_region": {"product": {"product_wise_orders": {"Pumps": "many", "Valves": 3}}}
	}`)
	snap := DecodeKPI(raw)
	require.NotNil(t, snap)
	require.NotNil(t, snap.Volume)
	assert.Nil(t, snap.Volume.TotalWon)
	assert.Nil(t, snap.Volume.WinRate)
	require.NotNil(t, snap.Volume.TotalLost)
	assert.Equal(t, 0.0, *snap.Volume.TotalLost)
	assert.Nil(t, snap.Financials)
	assert.Equal(t, map[string]float64{"Valves": 3}, snap.ProductWiseOrders())
}

func TestDecodeKPINullAndNonObject(t *testing.T) {
	assert.Nil(t, DecodeKPI(json.RawMessage(`null`)))
	assert.Nil(t, DecodeKPI(json.RawMessage(` `)))

	snap := DecodeKPI(json.RawMessage(`[1,2,3]`))
	require.NotNil(t, snap)
	assert.Nil(t, snap.Volume)
	assert.Nil(t, snap.Financials)
	assert.Nil(t, snap.ProductWiseOrders())

	empty := DecodeKPI(json.RawMessage(`{}`))
	require.NotNil(t, empty)
	assert.Nil(t, empty.Volume)
}

func TestDecodeInsightsPayload(t *testing.T) {
	raw := json.RawMessage(`{"kpis": {"volume": {"total_opportunities": 10, "win_rate": 55.5}, "financials": {"won_order_value": 1e9}}, "insights": "- one\n- two"}`)
	excerpt, items := decodeInsights(raw, "ai-insights", fixedNow)
	require.NotNil(t, excerpt)
	assert.Equal(t, 55.5, *excerpt.Volume.WinRate)
	assert.Equal(t, []string{"one", "two"}, texts(items))
}

func TestDecodeInsightsMissingOrWrongNarrative(t *testing.T) {
	excerpt, items := decodeInsights(json.RawMessage(`{"kpis": {"volume": {}}}`), "ai-insights", fixedNow)
	assert.NotNil(t, excerpt)
	assert.Empty(t, items)

	excerpt, items = decodeInsights(json.RawMessage(`{"insights": 42, "kpis": "x"}`), "ai-insights", fixedNow)
	assert.Nil(t, excerpt)
	assert.Empty(t, items)

	excerpt, items = decodeInsights(json.RawMessage(`null`), "ai-insights", fixedNow)
	assert.Nil(t, excerpt)
	assert.Empty(t, items)
}
