package fx

import (
	"strings"

	"golang.org/x/text/currency"
)

// symbolCodes maps display symbols to ISO codes, longest symbols first so
// that "HK$" is never read as "$".
var symbolCodes = []struct {
	symbol string
	code   string
}{
	{"US$", "USD"},
	{"HK$", "HKD"},
	{"A$", "AUD"},
	{"AU$", "AUD"},
	{"S$", "SGD"},
	{"SG$", "SGD"},
	{"C$", "CAD"},
	{"CA$", "CAD"},
	{"$", "USD"},
	{"£", "GBP"},
	{"€", "EUR"},
}

// NormalizeCode turns a symbol or ISO code into an upper-case ISO code.
// Unknown input is returned upper-cased so the caller can report it.
func NormalizeCode(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	upper := strings.ToUpper(s)
	for _, sc := range symbolCodes {
		if upper == sc.symbol {
			return sc.code
		}
	}
	if unit, err := currency.ParseISO(upper); err == nil {
		return unit.String()
	}
	return upper
}

// Symbol returns the display symbol used when formatting amounts.
func Symbol(code string) string {
	switch code {
	case "USD":
		return "$"
	case "GBP":
		return "£"
	case "AUD":
		return "A$"
	case "SGD":
		return "S$"
	case "HKD":
		return "HK$"
	case "EUR":
		return "€"
	case "CAD":
		return "C$"
	}
	return code + " "
}

// Supported reports whether code, or the symbol it is written with, has a
// fallback rate.
func Supported(code string) bool {
	_, ok := fallbackRates[NormalizeCode(code)]
	return ok
}
