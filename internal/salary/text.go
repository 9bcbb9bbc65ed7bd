package salary

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"ai-job-scraper-go/internal/models"
)

const (
	keywordWindow   = 200
	scanPrefixLimit = 3000
	intervalBefore  = 50
	intervalAfter   = 200
)

// symbolPattern lists multi-character symbols before "$".
const symbolPattern = `(?:\b(?:HK|US|AU|SG|CA|A|S|C)\$|\$|£|€)`
const amountPattern = `(\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:\.\d+)?)\s*([kK]\b)?`

var (
	symbolRangeExpr = regexp.MustCompile(`(` + symbolPattern + `)\s*` + amountPattern + `\s*(?:-|–|—|to)\s*` + symbolPattern + `\s*` + amountPattern)
	kRangeExpr      = regexp.MustCompile(`(` + symbolPattern + `)?\s*\b(\d+(?:\.\d+)?)\s*[kK]\s*(?:-|–|—|to)\s*` + symbolPattern + `?\s*(\d+(?:\.\d+)?)\s*[kK]\b`)
	symbolAmtExpr   = regexp.MustCompile(`(` + symbolPattern + `)\s*` + amountPattern)
	salaryKeyExpr   = regexp.MustCompile(`(?i)\b(?:salary|compensation|pay|wage|remuneration|package)\b`)
	annualizedExpr  = regexp.MustCompile(`\(from (hourly|daily|weekly|monthly)\)`)
)

var intervalExprs = []struct {
	interval string
	expr     *regexp.Regexp
}{
	{Yearly, regexp.MustCompile(`(?i)\b(?:yearly|annually|annual|per year|per annum|a year|p\.a\.)|/\s*(?:yr|year)\b`)},
	{Monthly, regexp.MustCompile(`(?i)\b(?:monthly|per month|a month|p\.m\.)|/\s*(?:mo|month)\b`)},
	{Hourly, regexp.MustCompile(`(?i)\b(?:hourly|per hour|per hr|an hour)\b|/\s*(?:hr|hour)\b`)},
	{Weekly, regexp.MustCompile(`(?i)\b(?:weekly|per week|a week)\b|/\s*(?:wk|week)\b`)},
	{Daily, regexp.MustCompile(`(?i)\b(?:daily|per day|a day)\b|/\s*day\b`)},
}

// textMatch is one amount (or range) found in free text.
type textMatch struct {
	lo, hi     float64
	symbol     string
	start, end int
}

// FromText scans a description for a salary. The first matching family
// wins: symbol range, K range, amount near a salary keyword, first
// reasonable amount.
func (n *Normalizer) FromText(ctx context.Context, text string, region models.Region) Result {
	if strings.TrimSpace(text) == "" {
		return Result{}
	}

	m, ok := findSalary(text)
	if !ok {
		return Result{}
	}

	currency := resolveCurrency(m.symbol, region)

	// Our own "(from hourly)" marker means the amounts are already annual.
	if am := annualizedExpr.FindStringSubmatchIndex(text); am != nil && am[0] >= m.end && am[0]-m.end <= 3 {
		return n.build(ctx, m.lo, m.hi, currency, text[am[2]:am[3]])
	}

	interval := detectInterval(text, m.start, m.end)
	if interval == "" {
		interval = guessInterval(m.lo)
	}
	mult := multipliers[interval]
	return n.build(ctx, m.lo*mult, m.hi*mult, currency, interval)
}

func findSalary(text string) (textMatch, bool) {
	if sm := symbolRangeExpr.FindStringSubmatchIndex(text); sm != nil {
		lo := parseAmount(text[sm[4]:sm[5]], sm[6] >= 0)
		hi := parseAmount(text[sm[8]:sm[9]], sm[10] >= 0)
		if lo > 0 && hi > 0 {
			return textMatch{lo: lo, hi: hi, symbol: text[sm[2]:sm[3]], start: sm[0], end: sm[1]}, true
		}
	}

	if km := kRangeExpr.FindStringSubmatchIndex(text); km != nil {
		lo := parseAmount(text[km[4]:km[5]], true)
		hi := parseAmount(text[km[6]:km[7]], true)
		symbol := ""
		if km[2] >= 0 {
			symbol = text[km[2]:km[3]]
		}
		if lo > 0 && hi > 0 {
			return textMatch{lo: lo, hi: hi, symbol: symbol, start: km[0], end: km[1]}, true
		}
	}

	for _, kw := range salaryKeyExpr.FindAllStringIndex(text, -1) {
		from := runeStart(text, kw[0]-keywordWindow)
		to := runeStart(text, kw[1]+keywordWindow)
		if m, ok := firstAmount(text, from, to, false); ok {
			return m, true
		}
	}

	return firstAmount(text, 0, runeStart(text, scanPrefixLimit), true)
}

// firstAmount returns the first symbol amount in text[from:to], optionally
// requiring it to be within the reasonable annual range.
func firstAmount(text string, from, to int, reasonable bool) (textMatch, bool) {
	window := text[from:to]
	for _, sm := range symbolAmtExpr.FindAllStringSubmatchIndex(window, -1) {
		v := parseAmount(window[sm[4]:sm[5]], sm[6] >= 0)
		if v <= 0 {
			continue
		}
		if reasonable && (v < minPlausibleAnnual || v > maxPlausibleAnnual) {
			continue
		}
		return textMatch{lo: v, hi: v, symbol: window[sm[2]:sm[3]], start: from + sm[0], end: from + sm[1]}, true
	}
	return textMatch{}, false
}

// detectInterval looks for interval keywords around text[start:end]. The
// keyword closest to the amount wins.
func detectInterval(text string, start, end int) string {
	from := runeStart(text, start-intervalBefore)
	to := runeStart(text, end+intervalAfter)
	window := text[from:to]

	best, bestDist := "", -1
	for _, ie := range intervalExprs {
		for _, loc := range ie.expr.FindAllStringIndex(window, -1) {
			kStart, kEnd := from+loc[0], from+loc[1]
			dist := 0
			switch {
			case kEnd <= start:
				dist = start - kEnd
			case kStart >= end:
				dist = kStart - end
			}
			if bestDist < 0 || dist < bestDist {
				best, bestDist = ie.interval, dist
			}
		}
	}
	return best
}

func parseAmount(s string, thousands bool) float64 {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0
	}
	if thousands {
		v *= 1000
	}
	return v
}

// runeStart clamps i into text and moves it back to a rune boundary.
func runeStart(text string, i int) int {
	if i <= 0 {
		return 0
	}
	if i >= len(text) {
		return len(text)
	}
	for i > 0 && !utf8.RuneStart(text[i]) {
		i--
	}
	return i
}
