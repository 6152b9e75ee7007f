package insights

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const notAvailable = "n/a"

var printer = message.NewPrinter(language.English)

// FormatCount renders an integer with thousands separators, e.g. 1,234.
func FormatCount(n int) string {
	return printer.Sprintf("%d", n)
}

// FormatCurrency renders a dollar amount, e.g. "$ 1,234.56".
func FormatCurrency(v float64) string {
	return printer.Sprintf("$ %.2f", v)
}

// FormatDecimal renders a value rounded to two places with separators.
func FormatDecimal(v float64) string {
	return printer.Sprintf("%.2f", v)
}

func formatOptional(v *float64, f func(float64) string) string {
	if v == nil {
		return notAvailable
	}
	return f(*v)
}

func textOrNA(s *string) string {
	if s == nil {
		return notAvailable
	}
	return *s
}
