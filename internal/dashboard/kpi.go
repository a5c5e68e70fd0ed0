package dashboard

import (
	"bytes"
	"encoding/json"
)

// Volume holds opportunity counts and win/loss rates.
type Volume struct {
	TotalOpportunities *float64 `json:"total_opportunities,omitempty"`
	TotalWon           *float64 `json:"total_won,omitempty"`
	TotalLost          *float64 `json:"total_lost,omitempty"`
	WinRate            *float64 `json:"win_rate,omitempty"`
	LostRate           *float64 `json:"lost_rate,omitempty"`
	OpenOpportunities  *float64 `json:"open_opportunities,omitempty"`
}

// Financials holds currency amounts and the realization rate.
type Financials struct {
	WonOrderValue          *float64 `json:"won_order_value,omitempty"`
	AvgWonDealSize         *float64 `json:"avg_won_deal_size,omitempty"`
	ExpectedRevenue        *float64 `json:"expected_revenue,omitempty"`
	RevenueRealizationRate *float64 `json:"revenue_realization_rate,omitempty"`
}

// ProductSummary holds per-product order counts.
type ProductSummary struct {
	ProductWiseOrders map[string]float64 `json:"product_wise_orders,omitempty"`
}

// ProductRegion groups product and region breakdowns.
type ProductRegion struct {
	Product *ProductSummary `json:"product,omitempty"`
}

// KPISnapshot is the typed view of a KPI payload. A nil section means the
// payload carried no usable data for it.
type KPISnapshot struct {
	Volume        *Volume         `json:"volume,omitempty"`
	Financials    *Financials     `json:"financials,omitempty"`
	ProductRegion *ProductRegion  `json:"product_region,omitempty"`
	Raw           json.RawMessage `json:"-"`
}

// ProductWiseOrders returns the product order map or nil.
func (s *KPISnapshot) ProductWiseOrders() map[string]float64 {
	if s == nil || s.ProductRegion == nil || s.ProductRegion.Product == nil {
		return nil
	}
	return s.ProductRegion.Product.ProductWiseOrders
}

// DecodeKPI reads a KPI payload without ever failing on its shape: sections
// or fields of the wrong type are treated as absent. JSON null yields nil;
// any other non-object value yields a snapshot with no sections.
func DecodeKPI(raw json.RawMessage) *KPISnapshot {
	if isNull(raw) {
		return nil
	}
	snap := &KPISnapshot{Raw: append(json.RawMessage(nil), raw...)}
	obj := object(raw)
	if obj == nil {
		return snap
	}
	if v := object(obj["volume"]); v != nil {
		snap.Volume = &Volume{
			TotalOpportunities: number(v["total_opportunities"]),
			TotalWon:           number(v["total_won"]),
			TotalLost:          number(v["total_lost"]),
			WinRate:            number(v["win_rate"]),
			LostRate:           number(v["lost_rate"]),
			OpenOpportunities:  number(v["open_opportunities"]),
		}
	}
	if f := object(obj["financials"]); f != nil {
		snap.Financials = &Financials{
			WonOrderValue:          number(f["won_order_value"]),
			AvgWonDealSize:         number(f["avg_won_deal_size"]),
			ExpectedRevenue:        number(f["expected_revenue"]),
			RevenueRealizationRate: number(f["revenue_realization_rate"]),
		}
	}
	if pr := object(obj["product_region"]); pr != nil {
		region := &ProductRegion{}
		if p := object(pr["product"]); p != nil {
			summary := &ProductSummary{}
			if orders := object(p["product_wise_orders"]); orders != nil {
				summary.ProductWiseOrders = make(map[string]float64, len(orders))
				for name, count := range orders {
					if n := number(count); n != nil {
						summary.ProductWiseOrders[name] = *n
					}
				}
			}
			region.Product = summary
		}
		snap.ProductRegion = region
	}
	return snap
}

// decodeExcerpt is DecodeKPI restricted to JSON objects.
func decodeExcerpt(raw json.RawMessage) *KPISnapshot {
	if object(raw) == nil {
		return nil
	}
	return DecodeKPI(raw)
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func object(raw json.RawMessage) map[string]json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}
	var out map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return nil
	}
	return out
}

func number(raw json.RawMessage) *float64 {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil
	}
	if c := trimmed[0]; c != '-' && (c < '0' || c > '9') {
		return nil
	}
	var v float64
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return nil
	}
	return &v
}
