package models

import (
	"regexp"
	"strings"
	"time"
)

// postedDateLayouts are tried in order; the first that parses wins.
var postedDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
	"02/01/2006",
}

// ParsePostedDate accepts ISO-8601 variants, YYYY-MM-DD, MM/DD/YYYY and
// DD/MM/YYYY. It returns nil for anything else.
func ParsePostedDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" || isNaNText(s) {
		return nil
	}
	for _, layout := range postedDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &d
		}
	}
	return nil
}

var teamSizeExpr = regexp.MustCompile(`(?i)\bteam of (?:about |around |over |~)?(\d{1,4})\b|\b(\d{1,4})[- ](?:person|people|member|strong)\s+team\b`)

// ExtractTeamSize pulls a team headcount out of phrases like "team of 12" or
// "8-person team".
func ExtractTeamSize(description string) string {
	m := teamSizeExpr.FindStringSubmatch(description)
	if m == nil {
		return ""
	}
	if m[1] != "" {
		return m[1]
	}
	return m[2]
}
