package models

import "strings"

// KeySeparator joins the parts of a dedup key.
const KeySeparator = "|||"

// NormalizeKeyPart lowercases, trims and collapses whitespace. The literal
// "nan" is treated as empty.
func NormalizeKeyPart(s string) string {
	s = strings.ToLower(strings.Join(strings.Fields(s), " "))
	if s == "nan" {
		return ""
	}
	return s
}

// IntraKey is the within-platform dedup key: title, company and location.
func IntraKey(title, company, location string) string {
	return NormalizeKeyPart(title) + KeySeparator + NormalizeKeyPart(company) + KeySeparator + NormalizeKeyPart(location)
}

// CrossKey is the across-platform dedup key. It is undefined when either
// title or company normalizes to empty.
func CrossKey(title, company string) (string, bool) {
	t := NormalizeKeyPart(title)
	c := NormalizeKeyPart(company)
	if t == "" || c == "" {
		return "", false
	}
	return t + KeySeparator + c, true
}

// IntraKey returns the record's within-platform dedup key.
func (r JobRecord) IntraKey() string {
	return IntraKey(r.Title, r.Company, r.Location)
}

// CrossKey returns the record's across-platform dedup key.
func (r JobRecord) CrossKey() (string, bool) {
	return CrossKey(r.Title, r.Company)
}
