package chart

import (
	"errors"
	"fmt"
	"html/template"
	"sort"
	"strings"
)

// ErrNoData is returned when there is nothing to plot.
var ErrNoData = errors.New("chart: no data")

// SortedPoints turns a label/value map into points ordered by value
// descending, then label ascending.
func SortedPoints(values map[string]float64) []Point {
	points := make([]Point, 0, len(values))
	for label, v := range values {
		points = append(points, Point{Label: label, Value: v})
	}
	sort.Slice(points, func(i, j int) bool {
		if points[i].Value != points[j].Value {
			return points[i].Value > points[j].Value
		}
		return points[i].Label < points[j].Label
	})
	return points
}

// HorizontalBars renders one bar per point, scaled to the largest value.
// Negative values are drawn as empty bars.
func HorizontalBars(width int, points []Point, opts Opts) (template.HTML, error) {
	if len(points) == 0 {
		return "", ErrNoData
	}
	if opts.Limit > 0 && len(points) > opts.Limit {
		points = points[:opts.Limit]
	}
	if width <= 0 {
		width = DefaultWidth
	}
	rowHeight := opts.RowHeight
	if rowHeight <= 0 {
		rowHeight = DefaultRowHeight
	}
	labelWidth := opts.LabelWidth
	if labelWidth <= 0 {
		labelWidth = DefaultLabelWidth
	}
	valueWidth := 64.0
	trackWidth := float64(width) - labelWidth - valueWidth - 2*DefaultPadding
	if trackWidth <= 0 {
		return "", fmt.Errorf("chart: width %d too small", width)
	}
	height := int(float64(len(points))*rowHeight + 2*DefaultPadding)

	barColor := fallback(opts.BarColor, "#0ea5e9")
	axisColor := fallback(opts.AxisColor, "#475569")
	trackColor := fallback(opts.TrackColor, "#e2e8f0")

	maxVal := 0.0
	for _, p := range points {
		if p.Value > maxVal {
			maxVal = p.Value
		}
	}

	titleID := makeID(opts.Title, "bars-title")
	descID := makeID(opts.Title, "bars-desc")

	var b strings.Builder
	fmt.Fprintf(&b, "<svg xmlns=\"http://www.w3.org/2000/svg\" viewBox=\"0 0 %d %d\" role=\"img\" aria-labelledby=\"%s %s\">", width, height, titleID, descID)
	fmt.Fprintf(&b, "<title id=\"%s\">%s</title>", titleID, template.HTMLEscapeString(fallback(opts.Title, "Bar chart")))
	fmt.Fprintf(&b, "<desc id=\"%s\">%s</desc>", descID, template.HTMLEscapeString(fallback(opts.Description, "Values by category")))

	trackX := DefaultPadding + labelWidth
	barHeight := rowHeight * 0.6
	for i, p := range points {
		top := DefaultPadding + float64(i)*rowHeight
		barY := top + (rowHeight-barHeight)/2
		textY := top + rowHeight/2 + 4

		w := 0.0
		if maxVal > 0 && p.Value > 0 {
			w = trackWidth * p.Value / maxVal
		}
		label := template.HTMLEscapeString(p.Label)
		fmt.Fprintf(&b, "<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"11\" text-anchor=\"end\">%s</text>", trackX-8, textY, axisColor, template.HTMLEscapeString(truncateLabel(p.Label, 24)))
		fmt.Fprintf(&b, "<rect x=\"%.2f\" y=\"%.2f\" width=\"%.2f\" height=\"%.2f\" rx=\"3\" fill=\"%s\" aria-hidden=\"true\"></rect>", trackX, barY, trackWidth, barHeight, trackColor)
		fmt.Fprintf(&b, "<rect x=\"%.2f\" y=\"%.2f\" width=\"%.2f\" height=\"%.2f\" rx=\"3\" fill=\"%s\" aria-label=\"%s %s\"></rect>", trackX, barY, w, barHeight, barColor, label, formatValue(p.Value))
		fmt.Fprintf(&b, "<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"11\" text-anchor=\"start\">%s</text>", trackX+trackWidth+8, textY, axisColor, formatValue(p.Value))
	}

	b.WriteString("</svg>")
	return template.HTML(b.String()), nil
}
