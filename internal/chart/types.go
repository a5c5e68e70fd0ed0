// Package chart renders small inline SVG charts for the insights page.
package chart

import (
	"fmt"
	"math"
	"strings"
)

// Point is one labelled value of a bar chart.
type Point struct {
	Label string
	Value float64
}

// Opts customises the bar renderer.
type Opts struct {
	Title       string
	Description string
	BarColor    string
	AxisColor   string
	TrackColor  string
	// RowHeight is the height of one bar row in viewBox units.
	RowHeight float64
	// LabelWidth reserves room on the left for category labels.
	LabelWidth float64
	// Limit keeps only the largest N points. Zero keeps all.
	Limit int
}

// Defaults for the product chart.
const (
	DefaultWidth      = 640
	DefaultRowHeight  = 26.0
	DefaultLabelWidth = 160.0
	DefaultPadding    = 12.0
)

func fallback(value, defaultValue string) string {
	if strings.TrimSpace(value) == "" {
		return defaultValue
	}
	return value
}

func makeID(base, suffix string) string {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, strings.ToLower(strings.TrimSpace(base)))
	cleaned = strings.Trim(cleaned, "-")
	if cleaned == "" {
		cleaned = "chart"
	}
	return fmt.Sprintf("%s-%s", cleaned, suffix)
}

func formatValue(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1_000_000_000:
		return fmt.Sprintf("%.1fB", v/1_000_000_000)
	case abs >= 1_000_000:
		return fmt.Sprintf("%.1fM", v/1_000_000)
	case abs >= 10_000:
		return fmt.Sprintf("%.1fk", v/1_000)
	case v == math.Trunc(v):
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}

func truncateLabel(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
