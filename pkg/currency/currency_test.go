package currency

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	cases := map[string]string{
		"0":        "₦0",
		"1500":     "₦1,500",
		"1234.5":   "₦1,234.5",
		"1234.567": "₦1,234.57",
		"1000000":  "₦1,000,000",
		"-250":     "-₦250",
	}
	for in, want := range cases {
		assert.Equal(t, want, Format(decimal.RequireFromString(in)), "input %s", in)
	}
}

func TestFormatCompact(t *testing.T) {
	cases := map[string]string{
		"999":        "₦999",
		"1000":       "₦1K",
		"1500":       "₦1.5K",
		"2340000":    "₦2.3M",
		"3200000000": "₦3.2B",
		"-4500":      "-₦4.5K",
		"999949":     "₦999.9K",
		"999950":     "₦1M",
		"999999":     "₦1M",
		"999999999":  "₦1B",
		"-999999":    "-₦1M",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatCompact(decimal.RequireFromString(in)), "input %s", in)
	}
}

func TestParseInput(t *testing.T) {
	cases := map[string]string{
		"1,500":      "1500",
		" 2 000.50 ": "2000.5",
		"₦12,000":    "12000",
		"":           "0",
		"abc":        "0",
		"12a":        "0",
	}
	for in, want := range cases {
		got := ParseInput(in)
		assert.True(t, got.Equal(decimal.RequireFromString(want)), "input %q gave %s", in, got)
	}
}

func TestMinorConversions(t *testing.T) {
	assert.Equal(t, Minor(100050), ToMinor(decimal.RequireFromString("1000.50")))
	assert.Equal(t, Minor(1), ToMinor(decimal.RequireFromString("0.005")))
	assert.True(t, Minor(365000).Major().Equal(decimal.NewFromInt(3650)))
	assert.Equal(t, "₦3,650", Minor(365000).String())
	assert.Equal(t, "NGN", Code.String())
}
