package models

import "strings"

// Region is a labor-market jurisdiction and the orchestrator's failure domain.
type Region string

const (
	RegionUS Region = "US"
	RegionUK Region = "UK"
	RegionAU Region = "AU"
	RegionSG Region = "SG"
	RegionHK Region = "HK"
)

// RegionInfo carries everything the pipeline needs to know about a region.
type RegionInfo struct {
	Code             Region
	Name             string
	Slug             string
	CountryCode      string
	Currency         string
	DefaultLocations []string
}

// TableName is the remote table holding the region's rows.
func (ri RegionInfo) TableName() string {
	return "jobs_" + ri.Slug
}

var regions = map[Region]RegionInfo{
	RegionUS: {
		Code:        RegionUS,
		Name:        "United States",
		Slug:        "united_states",
		CountryCode: "us",
		Currency:    "USD",
		DefaultLocations: []string{
			"United States", "San Francisco, CA", "New York, NY", "Seattle, WA",
			"Boston, MA", "Austin, TX", "Los Angeles, CA", "Remote",
		},
	},
	RegionUK: {
		Code:             RegionUK,
		Name:             "United Kingdom",
		Slug:             "united_kingdom",
		CountryCode:      "gb",
		Currency:         "GBP",
		DefaultLocations: []string{"London", "Manchester", "Cambridge", "Edinburgh", "Bristol", "United Kingdom"},
	},
	RegionAU: {
		Code:             RegionAU,
		Name:             "Australia",
		Slug:             "australia",
		CountryCode:      "au",
		Currency:         "AUD",
		DefaultLocations: []string{"Sydney", "Melbourne", "Brisbane", "Perth", "Canberra", "Australia"},
	},
	RegionSG: {
		Code:             RegionSG,
		Name:             "Singapore",
		Slug:             "singapore",
		CountryCode:      "sg",
		Currency:         "SGD",
		DefaultLocations: []string{"Singapore"},
	},
	RegionHK: {
		Code:             RegionHK,
		Name:             "Hong Kong",
		Slug:             "hong_kong",
		CountryCode:      "hk",
		Currency:         "HKD",
		DefaultLocations: []string{"Hong Kong"},
	},
}

// Regions lists the supported regions in canonical order.
var Regions = []Region{RegionUS, RegionUK, RegionAU, RegionSG, RegionHK}

// LookupRegion returns the built-in description of a region.
func LookupRegion(r Region) (RegionInfo, bool) {
	info, ok := regions[r]
	return info, ok
}

// ParseRegion resolves a configured region code such as "us" or "UK".
func ParseRegion(s string) (Region, bool) {
	r := Region(strings.ToUpper(strings.TrimSpace(s)))
	if r == "GB" {
		r = RegionUK
	}
	_, ok := regions[r]
	return r, ok
}

// DefaultCurrency is the ISO code assumed for unlabeled amounts in a region.
func DefaultCurrency(r Region) string {
	if info, ok := regions[r]; ok {
		return info.Currency
	}
	return "USD"
}
