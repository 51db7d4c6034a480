// Package currency converts between kobo amounts and the naira strings shown to shoppers.
package currency

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Symbol is prepended to every formatted amount.
const Symbol = "₦"

// MinorPerMajor is the number of kobo in one naira.
const MinorPerMajor = 100

// Code is the ISO 4217 unit every amount is denominated in.
var Code = currency.MustParseISO("NGN")

var displayLocale = language.MustParse("en-NG")

// Minor is an amount in kobo. Pricing accumulates in Minor so tax and fee sums never drift.
type Minor int64

// ToMinor converts a naira amount to kobo, rounding half away from zero.
func ToMinor(major decimal.Decimal) Minor {
	return Minor(major.Shift(2).Round(0).IntPart())
}

// Major converts kobo back to naira.
func (m Minor) Major() decimal.Decimal {
	return decimal.New(int64(m), -2)
}

// String renders the amount for display.
func (m Minor) String() string {
	return Format(m.Major())
}

// Format renders a naira amount with grouped thousands and at most two fraction digits.
func Format(amount decimal.Decimal) string {
	rounded := amount.Round(2)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Abs()
	}
	value, _ := rounded.Float64()
	printer := message.NewPrinter(displayLocale)
	return sign + Symbol + printer.Sprint(number.Decimal(value, number.MaxFractionDigits(2)))
}

type compactUnit struct {
	threshold decimal.Decimal
	suffix    string
}

var compactUnits = []compactUnit{
	{threshold: decimal.New(1, 9), suffix: "B"},
	{threshold: decimal.New(1, 6), suffix: "M"},
	{threshold: decimal.New(1, 3), suffix: "K"},
}

// FormatCompact abbreviates amounts of a thousand or more (₦1.5K, ₦2M, ₦3.2B).
// An amount that rounds up to a thousand of its unit is shown in the next unit (999,950 is ₦1M).
func FormatCompact(amount decimal.Decimal) string {
	abs := amount.Abs()
	for i, unit := range compactUnits {
		if abs.LessThan(unit.threshold) {
			continue
		}
		scaled := abs.Div(unit.threshold).Round(1)
		if i > 0 && scaled.GreaterThanOrEqual(decimal.NewFromInt(1000)) {
			unit = compactUnits[i-1]
			scaled = abs.Div(unit.threshold).Round(1)
		}
		sign := ""
		if amount.IsNegative() {
			sign = "-"
		}
		return sign + Symbol + strings.TrimSuffix(scaled.StringFixed(1), ".0") + unit.suffix
	}
	return Format(amount)
}

// ParseInput reads free-form amount text typed by a shopper. Unparseable input yields zero.
func ParseInput(text string) decimal.Decimal {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == ',' {
			return -1
		}
		return r
	}, text)
	cleaned = strings.TrimPrefix(cleaned, Symbol)
	if cleaned == "" {
		return decimal.Zero
	}
	value, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return value
}
