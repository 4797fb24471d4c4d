package render

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is the rupee sign used when no symbol is configured
const DefaultCurrency = "₹"

// FormatCurrency renders amount with two decimals and Indian digit grouping,
// e.g. 1234567.891 -> "₹12,34,567.89"
func FormatCurrency(symbol string, amount float64) string {
	d := decimal.NewFromFloat(amount).Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}

	fixed := d.StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")
	return sign + symbol + groupIndian(whole) + "." + frac
}

// FormatINR is FormatCurrency with the rupee sign
func FormatINR(amount float64) string {
	return FormatCurrency(DefaultCurrency, amount)
}

// groupIndian groups the last three digits, then pairs: 1234567 -> 12,34,567
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]

	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	if head != "" {
		groups = append([]string{head}, groups...)
	}
	return strings.Join(append(groups, tail), ",")
}
