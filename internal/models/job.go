package models

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Platform identifies the upstream job board a record came from.
type Platform string

const (
	// PlatformLinkedIn is the business-network board.
	PlatformLinkedIn Platform = "linkedin"
	// PlatformAdzuna is the generalist aggregator.
	PlatformAdzuna Platform = "adzuna"
)

// Platforms lists every supported platform in its canonical order.
var Platforms = []Platform{PlatformLinkedIn, PlatformAdzuna}

// ParsePlatform resolves a configured platform name.
func ParsePlatform(s string) (Platform, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "linkedin", "business_network", "business-network-board":
		return PlatformLinkedIn, true
	case "adzuna", "aggregator", "generalist-aggregator":
		return PlatformAdzuna, true
	}
	return "", false
}

// DisplayName is the label used in the spreadsheet and the remote table.
func (p Platform) DisplayName() string {
	switch p {
	case PlatformLinkedIn:
		return "LinkedIn"
	case PlatformAdzuna:
		return "Adzuna"
	}
	return string(p)
}

// JobStatus values written to the job_status column.
const (
	JobStatusActive = "Active"
)

// RawPosting is one posting as returned by an upstream board for a single
// (keyword, location, platform) query. Missing fields are empty / nil.
type RawPosting struct {
	Site                Platform `json:"site"`
	Title               string   `json:"title"`
	Company             string   `json:"company"`
	Location            string   `json:"location"`
	Description         string   `json:"description,omitempty"`
	JobURL              string   `json:"job_url"`
	DatePosted          string   `json:"date_posted,omitempty"`
	MinAmount           *float64 `json:"min_amount,omitempty"`
	MaxAmount           *float64 `json:"max_amount,omitempty"`
	Currency            string   `json:"currency,omitempty"`
	Interval            string   `json:"interval,omitempty"`
	EmploymentType      string   `json:"employment_type,omitempty"`
	CompanyNumEmployees string   `json:"company_num_employees,omitempty"`
}

// JobRecord is the canonical, normalized posting.
type JobRecord struct {
	Title          string     `json:"title"`
	Company        string     `json:"company"`
	Location       string     `json:"location"`
	Description    string     `json:"description"`
	PostedDate     *time.Time `json:"posted_date,omitempty"`
	JobURL         string     `json:"job_url"`
	SourcePlatform Platform   `json:"source_platform"`
	Region         Region     `json:"region"`
	EmploymentType string     `json:"employment_type,omitempty"`

	MinAnnual          *float64 `json:"min_annual,omitempty"`
	MaxAnnual          *float64 `json:"max_annual,omitempty"`
	Currency           string   `json:"currency,omitempty"`
	IntervalSource     string   `json:"interval_source,omitempty"`
	SalaryText         string   `json:"salary_text"`
	EstimatedAnnual    *float64 `json:"estimated_annual,omitempty"`
	EstimatedAnnualUSD *float64 `json:"estimated_annual_usd,omitempty"`

	RequirementsSummary string `json:"requirements_summary"`
	CompanySize         string `json:"company_size,omitempty"`
	TeamSize            string `json:"team_size,omitempty"`

	IsAIRelevant bool           `json:"is_ai_relevant"`
	AIAnalysis   map[string]any `json:"ai_analysis,omitempty"`
}

// HasSalary reports whether any salary field is populated.
func (r JobRecord) HasSalary() bool {
	return r.MinAnnual != nil || r.MaxAnnual != nil || r.EstimatedAnnual != nil
}

// FromRaw builds a JobRecord from an upstream posting. The boolean is false
// when the posting lacks a usable title or company; such postings must be
// dropped before deduplication.
func FromRaw(raw RawPosting, platform Platform, region Region) (JobRecord, bool) {
	rec := JobRecord{
		Title:          cleanText(raw.Title),
		Company:        cleanText(raw.Company),
		Location:       cleanText(raw.Location),
		Description:    strings.TrimSpace(nanToEmpty(raw.Description)),
		JobURL:         strings.TrimSpace(nanToEmpty(raw.JobURL)),
		SourcePlatform: platform,
		Region:         region,
		EmploymentType: cleanText(raw.EmploymentType),
		PostedDate:     ParsePostedDate(raw.DatePosted),
		CompanySize:    cleanText(raw.CompanyNumEmployees),
	}
	rec.TeamSize = ExtractTeamSize(rec.Description)

	if rec.Title == "" || rec.Company == "" {
		return rec, false
	}
	return rec, true
}

// FloatValue returns nil for absent or not-a-number upstream amounts.
func FloatValue(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	out := *v
	return &out
}

// ParseAmount reads a numeric upstream field that may arrive as text.
func ParseAmount(s string) *float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if isNaNText(s) {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return FloatValue(&v)
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(nanToEmpty(s)), " ")
}

func nanToEmpty(s string) string {
	if isNaNText(strings.TrimSpace(s)) {
		return ""
	}
	return s
}

func isNaNText(s string) bool {
	switch strings.ToLower(s) {
	case "nan", "none", "null", "<na>":
		return true
	}
	return false
}
