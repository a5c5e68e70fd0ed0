package dashboard

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Placeholder is rendered for any absent value.
const Placeholder = "—"

const (
	billion = 1e9
	million = 1e6
)

// Formatter renders KPI values for display.
type Formatter struct {
	currency     string
	zeroAsAbsent bool
	printer      *message.Printer
}

// NewFormatter builds a formatter. With zeroAsAbsent set, zero rates and
// currency amounts render as the placeholder, matching the legacy dashboard.
func NewFormatter(currencySymbol string, zeroAsAbsent bool) *Formatter {
	return &Formatter{
		currency:     currencySymbol,
		zeroAsAbsent: zeroAsAbsent,
		printer:      message.NewPrinter(language.English),
	}
}

// Count renders an order or opportunity count. Zero is always shown.
func (f *Formatter) Count(v *float64) string {
	if v == nil {
		return Placeholder
	}
	if *v == math.Trunc(*v) && math.Abs(*v) < 1<<53 {
		return f.printer.Sprintf("%d", int64(*v))
	}
	return f.printer.Sprintf("%.2f", *v)
}

// Rate renders a percentage with two decimals.
func (f *Formatter) Rate(v *float64) string {
	if f.absent(v) {
		return Placeholder
	}
	return f.printer.Sprintf("%.2f%%", *v)
}

// Billions renders a currency amount in billions.
func (f *Formatter) Billions(v *float64) string {
	return f.scaled(v, billion, "B")
}

// Millions renders a currency amount in millions.
func (f *Formatter) Millions(v *float64) string {
	return f.scaled(v, million, "M")
}

func (f *Formatter) scaled(v *float64, divisor float64, suffix string) string {
	if f.absent(v) {
		return Placeholder
	}
	return f.currency + f.printer.Sprintf("%.2f", *v/divisor) + suffix
}

func (f *Formatter) absent(v *float64) bool {
	return v == nil || (f.zeroAsAbsent && *v == 0)
}
