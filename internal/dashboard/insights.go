package dashboard

import (
	"encoding/json"
	"strings"
	"time"
	"unicode"
)

const (
	narrativeField = "insights"
	excerptField   = "kpis"
)

// SplitNarrative turns a newline-delimited narrative into numbered insight
// items. Blank lines and lines left empty once bullets are stripped are
// dropped.
func SplitNarrative(narrative, view string, now time.Time) []InsightItem {
	lines := strings.Split(narrative, "\n")
	items := make([]InsightItem, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = strings.TrimLeftFunc(line, isBulletRune)
		if line == "" {
			continue
		}
		items = append(items, InsightItem{
			SequenceNumber: len(items) + 1,
			Text:           line,
			GeneratedAt:    now,
			SourceView:     view,
		})
	}
	return items
}

func isBulletRune(r rune) bool {
	return r == '-' || r == '•' || unicode.IsSpace(r)
}

// decodeInsights extracts the KPI excerpt and the insight list from an
// AI-insights payload. A missing or non-string narrative yields no items.
func decodeInsights(raw json.RawMessage, view string, now time.Time) (*KPISnapshot, []InsightItem) {
	obj := object(raw)
	if obj == nil {
		return nil, nil
	}
	excerpt := decodeExcerpt(obj[excerptField])

	var narrative string
	field, ok := obj[narrativeField]
	if !ok || json.Unmarshal(field, &narrative) != nil {
		return excerpt, nil
	}
	return excerpt, SplitNarrative(narrative, view, now)
}
