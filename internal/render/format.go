package render

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var defaultTag = language.MustParse("en-IN")

// NumberFormatter prints decimals with locale digit grouping.
type NumberFormatter struct {
	p *message.Printer
}

// NewNumberFormatter builds a formatter for tag. The zero language.Tag falls back to en-IN,
// which groups in lakhs and crores.
func NewNumberFormatter(tag language.Tag) NumberFormatter {
	if tag == language.Und {
		tag = defaultTag
	}
	return NumberFormatter{p: message.NewPrinter(tag)}
}

// printer lets the zero NumberFormatter behave like the en-IN default.
func (f NumberFormatter) printer() *message.Printer {
	if f.p == nil {
		return message.NewPrinter(defaultTag)
	}
	return f.p
}

// Fixed formats d rounded to places decimals. The integer part is grouped by the
// printer; the fraction comes from decimal so no precision is lost to float64.
func (f NumberFormatter) Fixed(d decimal.Decimal, places int32) string {
	s := d.Abs().StringFixed(places)
	intPart, frac, _ := strings.Cut(s, ".")

	whole, err := decimal.NewFromString(intPart)
	if err != nil || !whole.BigInt().IsInt64() {
		// Beyond int64 the printer cannot group; print the digits plain.
		return d.StringFixed(places)
	}
	out := f.printer().Sprintf("%d", whole.IntPart())
	if frac != "" {
		out += "." + frac
	}
	if d.Round(places).IsNegative() {
		out = "-" + out
	}
	return out
}

// Quantity formats a quantity with three decimals trimmed of trailing zeros.
func (f NumberFormatter) Quantity(d decimal.Decimal) string {
	s := f.Fixed(d, 3)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	}
	return s
}

// Money formats an amount with two decimals.
func (f NumberFormatter) Money(d decimal.Decimal) string {
	return f.Fixed(d, 2)
}
