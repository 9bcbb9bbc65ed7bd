package salary

import (
	"context"
	"io"
	"log"
	"math"
	"strings"

	"ai-job-scraper-go/internal/fx"
	"ai-job-scraper-go/internal/models"
)

// Interval names written to interval_source.
const (
	Yearly  = "yearly"
	Monthly = "monthly"
	Weekly  = "weekly"
	Daily   = "daily"
	Hourly  = "hourly"
)

// multipliers annualize an amount quoted per interval.
var multipliers = map[string]float64{
	Yearly:  1,
	Monthly: 12,
	Weekly:  52,
	Daily:   260,
	Hourly:  2080,
}

const (
	minPlausibleAnnual = 1_000
	maxPlausibleAnnual = 2_000_000
)

// RateSource converts between currencies. *fx.Cache satisfies it.
type RateSource interface {
	Rate(ctx context.Context, from, to string) (float64, error)
}

var _ RateSource = (*fx.Cache)(nil)

// Structured is a salary as reported in an upstream's typed fields.
type Structured struct {
	Min      *float64
	Max      *float64
	Currency string
	Interval string
	// Annualized marks amounts that are already yearly; Interval then only
	// labels where they came from.
	Annualized bool
}

// Result is the normalized salary group of a JobRecord. Numeric fields are
// nil and SalaryText is empty when no salary was found.
type Result struct {
	MinAnnual          *float64
	MaxAnnual          *float64
	Currency           string
	IntervalSource     string
	SalaryText         string
	EstimatedAnnual    *float64
	EstimatedAnnualUSD *float64
}

// Found reports whether a salary was recognized.
func (r Result) Found() bool {
	return r.MinAnnual != nil
}

// Structured feeds a result back into the structured path.
func (r Result) Structured() Structured {
	return Structured{
		Min:        r.MinAnnual,
		Max:        r.MaxAnnual,
		Currency:   r.Currency,
		Interval:   r.IntervalSource,
		Annualized: true,
	}
}

// ApplyTo copies the salary group onto rec.
func (r Result) ApplyTo(rec *models.JobRecord) {
	rec.MinAnnual = r.MinAnnual
	rec.MaxAnnual = r.MaxAnnual
	rec.Currency = r.Currency
	rec.IntervalSource = r.IntervalSource
	rec.SalaryText = r.SalaryText
	rec.EstimatedAnnual = r.EstimatedAnnual
	rec.EstimatedAnnualUSD = r.EstimatedAnnualUSD
}

// Normalizer turns structured fields or free text into annualized salaries.
type Normalizer struct {
	rates  RateSource
	logger *log.Logger
}

// NewNormalizer creates a normalizer converting to USD through rates.
func NewNormalizer(rates RateSource, logger *log.Logger) *Normalizer {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Normalizer{rates: rates, logger: logger}
}

// Normalize uses the posting's typed salary fields when present and falls
// back to scanning the description.
func (n *Normalizer) Normalize(ctx context.Context, raw models.RawPosting, region models.Region) Result {
	s := Structured{
		Min:      models.FloatValue(raw.MinAmount),
		Max:      models.FloatValue(raw.MaxAmount),
		Currency: raw.Currency,
		Interval: raw.Interval,
	}
	if res := n.FromStructured(ctx, s, region); res.Found() {
		return res
	}
	return n.FromText(ctx, raw.Description, region)
}

// FromStructured annualizes typed salary fields. A missing max falls back to
// min; a missing min falls back to max.
func (n *Normalizer) FromStructured(ctx context.Context, s Structured, region models.Region) Result {
	lo := positive(models.FloatValue(s.Min))
	hi := positive(models.FloatValue(s.Max))
	if lo == nil && hi == nil {
		return Result{}
	}
	if lo == nil {
		lo = hi
	}
	if hi == nil {
		hi = lo
	}

	interval := canonicalInterval(s.Interval)
	if interval == "" {
		interval = guessInterval(*lo)
	}
	mult := multipliers[interval]
	if s.Annualized {
		mult = 1
	}

	currency := resolveCurrency(s.Currency, region)
	return n.build(ctx, *lo*mult, *hi*mult, currency, interval)
}

func (n *Normalizer) build(ctx context.Context, lo, hi float64, currency, interval string) Result {
	if lo > hi {
		lo, hi = hi, lo
	}
	est := (lo + hi) / 2
	if est < minPlausibleAnnual || est > maxPlausibleAnnual {
		n.logger.Printf("WARNING: implausible annual salary %.0f %s (from %s)", est, currency, interval)
	}

	rate, err := n.rates.Rate(ctx, currency, fx.BaseCurrency)
	if err != nil {
		rate = 1.0
	}
	usd := est * rate

	return Result{
		MinAnnual:          &lo,
		MaxAnnual:          &hi,
		Currency:           currency,
		IntervalSource:     interval,
		SalaryText:         formatRange(lo, hi, currency, interval),
		EstimatedAnnual:    &est,
		EstimatedAnnualUSD: &usd,
	}
}

// canonicalInterval maps upstream interval spellings to an interval name.
// It returns "" for unknown or empty input.
func canonicalInterval(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yearly", "annual", "annually", "year", "per year", "yr":
		return Yearly
	case "monthly", "month", "per month":
		return Monthly
	case "weekly", "week", "per week":
		return Weekly
	case "daily", "day", "per day":
		return Daily
	case "hourly", "hour", "per hour", "hr":
		return Hourly
	}
	return ""
}

// guessInterval infers the interval of an unlabeled amount from its size.
func guessInterval(amount float64) string {
	switch {
	case amount < 500:
		return Hourly
	case amount < 10_000:
		return Monthly
	default:
		return Yearly
	}
}

// resolveCurrency turns a symbol or code into an ISO code. The region's
// currency applies only when there is no symbol at all; a bare "$" is USD.
func resolveCurrency(s string, region models.Region) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return models.DefaultCurrency(region)
	}
	return fx.NormalizeCode(s)
}

func positive(v *float64) *float64 {
	if v == nil || *v <= 0 || math.IsNaN(*v) {
		return nil
	}
	return v
}
