package cli

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"tally/internal/core"
)

var printer = message.NewPrinter(language.English)

// FormatMoney formats cents with digit grouping and two decimals,
// e.g. 123456 -> "1,234.56".
func FormatMoney(m core.Money) string {
	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%s.%02d", sign, printer.Sprintf("%d", cents/100), cents%100)
}

// FormatShare formats part/total as a percentage with one decimal.
func FormatShare(part, total core.Money) string {
	if total.Cents <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", float64(part.Cents)*100/float64(total.Cents))
}

// FormatDate renders an optional date, "-" when unset.
func FormatDate(d core.Date) string {
	if d.IsZero() {
		return "-"
	}
	return d.String()
}
