package salary

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"ai-job-scraper-go/internal/fx"
)

var printer = message.NewPrinter(language.English)

// formatRange renders "$150,000 - $180,000", or "$156,000 (from hourly)"
// when the amounts were annualized from another interval.
func formatRange(lo, hi float64, currency, interval string) string {
	sym := fx.Symbol(currency)
	text := sym + formatAmount(lo)
	if math.Round(lo) != math.Round(hi) {
		text += " - " + sym + formatAmount(hi)
	}
	if interval != "" && interval != Yearly {
		text += " (from " + interval + ")"
	}
	return text
}

func formatAmount(v float64) string {
	return printer.Sprintf("%d", int64(math.Round(v)))
}
