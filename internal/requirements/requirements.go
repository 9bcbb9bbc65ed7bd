// Package requirements condenses a job description into a short summary of
// what the employer asks for.
package requirements

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxLength bounds every summary.
const MaxLength = 500

const minSectionLength = 50

var (
	sectionExpr = regexp.MustCompile(`(?i)\b(?:minimum requirements|requirements|qualifications|required|must have|what you(?:'|’)ll need|what we(?:'|’)re looking for|you should have|education|experience|skills)[ \t]*(?:[:\-–—?!]|\r?\n)\s*([\s\S]{1,800})`)
	sentenceExpr = regexp.MustCompile(`[.!?]+\s+|\n+`)
	indicatorExpr = regexp.MustCompile(`(?i)years of experience|degree|bachelor|master|phd|proficiency|experience with|knowledge of|familiar with|required|must have|should have|qualifications`)
	durationExpr  = regexp.MustCompile(`(?i)\d+\+?\s*(?:years?|months?|yr)`)
)

// Extract returns at most MaxLength characters describing the role's
// requirements, or "" when none can be found.
func Extract(description string) string {
	if strings.TrimSpace(description) == "" {
		return ""
	}

	if m := sectionExpr.FindStringSubmatch(description); m != nil {
		section := collapse(m[1])
		if len(section) > minSectionLength {
			return truncate(section, MaxLength)
		}
	}

	var picked []string
	for _, sentence := range sentenceExpr.Split(description, -1) {
		sentence = collapse(sentence)
		if len(sentence) > 30 && indicatorExpr.MatchString(sentence) {
			picked = append(picked, sentence)
			if len(picked) == 5 {
				break
			}
		}
	}
	if len(picked) > 0 {
		return truncate(strings.Join(picked, " | "), MaxLength)
	}

	half := description[:runeBoundary(description, len(description)/2)]
	if durationExpr.MatchString(half) {
		return truncate(collapse(half), MaxLength)
	}
	return ""
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.TrimSpace(s[:runeBoundary(s, n)])
}

func runeBoundary(s string, i int) int {
	for i > 0 && i < len(s) && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}
