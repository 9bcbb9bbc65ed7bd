package salary

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-job-scraper-go/internal/fx"
	"ai-job-scraper-go/internal/models"
)

type downProvider struct{}

func (downProvider) FetchRates(ctx context.Context) (map[string]float64, error) {
	return nil, errors.New("provider down")
}

type fixedRates map[string]float64

func (r fixedRates) Rate(ctx context.Context, from, to string) (float64, error) {
	from, to = fx.NormalizeCode(from), fx.NormalizeCode(to)
	if from == to {
		return 1, nil
	}
	f, ok := r[from]
	if !ok {
		return 1, fx.ErrFXUnavailable
	}
	return f / r[to], nil
}

func newTestNormalizer() *Normalizer {
	return NewNormalizer(fixedRates{"USD": 1, "GBP": 1.25, "AUD": 0.65, "HKD": 0.128}, nil)
}

func ptr(v float64) *float64 { return &v }

func TestStructuredYearlyRange(t *testing.T) {
	n := newTestNormalizer()

	res := n.FromStructured(context.Background(), Structured{Min: ptr(150000), Max: ptr(180000), Currency: "USD", Interval: "yearly"}, models.RegionUS)

	require.True(t, res.Found())
	assert.Equal(t, 150000.0, *res.MinAnnual)
	assert.Equal(t, 180000.0, *res.MaxAnnual)
	assert.Equal(t, 165000.0, *res.EstimatedAnnual)
	assert.Equal(t, 165000.0, *res.EstimatedAnnualUSD)
	assert.Equal(t, "USD", res.Currency)
	assert.Equal(t, Yearly, res.IntervalSource)
	assert.Equal(t, "$150,000 - $180,000", res.SalaryText)
}

func TestStructuredHourly(t *testing.T) {
	n := newTestNormalizer()

	res := n.FromStructured(context.Background(), Structured{Min: ptr(50), Currency: "USD", Interval: "hourly"}, models.RegionUS)

	require.True(t, res.Found())
	assert.Equal(t, 104000.0, *res.EstimatedAnnual)
	assert.Equal(t, *res.MinAnnual, *res.MaxAnnual)
	assert.Equal(t, "$104,000 (from hourly)", res.SalaryText)
}

func TestStructuredMultipliers(t *testing.T) {
	n := newTestNormalizer()
	cases := map[string]float64{
		"yearly":  1000 * 100,
		"annual":  1000 * 100,
		"monthly": 1000 * 12,
		"weekly":  1000 * 52,
		"daily":   1000 * 260,
		"hourly":  1000 * 2080,
	}
	for interval, want := range cases {
		amount := 1000.0
		if interval == "yearly" || interval == "annual" {
			amount = 100000
		}
		res := n.FromStructured(context.Background(), Structured{Min: ptr(amount), Currency: "USD", Interval: interval}, models.RegionUS)
		require.True(t, res.Found(), interval)
		assert.Equal(t, want, *res.EstimatedAnnual, interval)
	}
}

func TestStructuredSwapsReversedBounds(t *testing.T) {
	n := newTestNormalizer()

	res := n.FromStructured(context.Background(), Structured{Min: ptr(90000), Max: ptr(70000), Currency: "GBP", Interval: "yearly"}, models.RegionUK)

	assert.Equal(t, 70000.0, *res.MinAnnual)
	assert.Equal(t, 90000.0, *res.MaxAnnual)
	assert.Equal(t, "£70,000 - £90,000", res.SalaryText)
	assert.InDelta(t, 80000*1.25, *res.EstimatedAnnualUSD, 0.01)
}

func TestStructuredNaNMaxFallsBackToMin(t *testing.T) {
	n := newTestNormalizer()
	nan := 0.0
	nan = nan / nan

	res := n.FromStructured(context.Background(), Structured{Min: ptr(120000), Max: &nan, Interval: "yearly"}, models.RegionAU)

	require.True(t, res.Found())
	assert.Equal(t, 120000.0, *res.MaxAnnual)
	assert.Equal(t, "AUD", res.Currency)
	assert.Equal(t, "A$120,000", res.SalaryText)
}

func TestStructuredEmpty(t *testing.T) {
	n := newTestNormalizer()

	res := n.FromStructured(context.Background(), Structured{Currency: "USD"}, models.RegionUS)

	assert.False(t, res.Found())
	assert.Nil(t, res.EstimatedAnnual)
	assert.Nil(t, res.EstimatedAnnualUSD)
	assert.Equal(t, "", res.SalaryText)
}

func TestTextHourlyNearKeyword(t *testing.T) {
	n := newTestNormalizer()

	res := n.FromText(context.Background(), "Great team. Pay: $75 per hour, flexible schedule.", models.RegionUS)

	require.True(t, res.Found())
	assert.Equal(t, 156000.0, *res.MinAnnual)
	assert.Equal(t, 156000.0, *res.MaxAnnual)
	assert.Equal(t, 156000.0, *res.EstimatedAnnual)
	assert.Equal(t, "USD", res.Currency)
	assert.Equal(t, Hourly, res.IntervalSource)
	assert.Equal(t, "$156,000 (from hourly)", res.SalaryText)
}

func TestTextSlashHour(t *testing.T) {
	n := newTestNormalizer()

	res := n.FromText(context.Background(), "Contract role, pay is $50/hr.", models.RegionUS)

	require.True(t, res.Found())
	assert.Equal(t, 104000.0, *res.EstimatedAnnual)
}

func TestTextHKDRangeWithFallbackRates(t *testing.T) {
	cache := fx.NewCache(downProvider{}, nil, nil)
	n := NewNormalizer(cache, nil)

	res := n.FromText(context.Background(), "HK$600,000 - HK$900,000 per year", models.RegionHK)

	require.True(t, res.Found())
	assert.Equal(t, "HKD", res.Currency)
	assert.Equal(t, 750000.0, *res.EstimatedAnnual)
	assert.InDelta(t, 97500, *res.EstimatedAnnualUSD, 0.01)
	assert.Equal(t, "HK$600,000 - HK$900,000", res.SalaryText)
	assert.True(t, cache.IsFallback())
}

func TestTextKRange(t *testing.T) {
	n := newTestNormalizer()

	res := n.FromText(context.Background(), "Base 120K-150K plus equity", models.RegionUK)

	require.True(t, res.Found())
	assert.Equal(t, "GBP", res.Currency)
	assert.Equal(t, 120000.0, *res.MinAnnual)
	assert.Equal(t, 150000.0, *res.MaxAnnual)
}

func TestTextSymbolKRange(t *testing.T) {
	n := newTestNormalizer()

	res := n.FromText(context.Background(), "Range: $50K - $80K", models.RegionUS)

	require.True(t, res.Found())
	assert.Equal(t, 50000.0, *res.MinAnnual)
	assert.Equal(t, 80000.0, *res.MaxAnnual)
}

func TestTextMonthlyKeyword(t *testing.T) {
	n := newTestNormalizer()

	res := n.FromText(context.Background(), "Salary of S$8,000 per month depending on experience", models.RegionSG)

	require.True(t, res.Found())
	assert.Equal(t, "SGD", res.Currency)
	assert.Equal(t, 96000.0, *res.EstimatedAnnual)
	assert.Equal(t, Monthly, res.IntervalSource)
}

func TestTextSizeHeuristicWithoutKeyword(t *testing.T) {
	n := newTestNormalizer()

	res := n.FromText(context.Background(), "Competitive compensation of $6,500 for the right person", models.RegionUS)

	require.True(t, res.Found())
	assert.Equal(t, Monthly, res.IntervalSource)
	assert.Equal(t, 78000.0, *res.EstimatedAnnual)
}

func TestTextFirstReasonableAmount(t *testing.T) {
	n := newTestNormalizer()

	res := n.FromText(context.Background(), "Get a $50 gift card on joining. Expect around $140,000 with bonus.", models.RegionUS)

	require.True(t, res.Found())
	assert.Equal(t, 140000.0, *res.EstimatedAnnual)
}

func TestTextBareDollarIsUSD(t *testing.T) {
	n := newTestNormalizer()

	res := n.FromText(context.Background(), "Salary: $130,000", models.RegionAU)
	assert.Equal(t, "USD", res.Currency)
	assert.Equal(t, "$130,000", res.SalaryText)

	res = n.FromText(context.Background(), "compensation $120k base", models.RegionHK)
	require.True(t, res.Found())
	assert.Equal(t, "USD", res.Currency)
	assert.InDelta(t, 120000, *res.EstimatedAnnual, 0.001)
	assert.InDelta(t, 120000, *res.EstimatedAnnualUSD, 0.001)

	res = n.FromText(context.Background(), "Salary: A$130,000", models.RegionAU)
	assert.Equal(t, "AUD", res.Currency)
	assert.Equal(t, "A$130,000", res.SalaryText)
}

func TestTextNoSalary(t *testing.T) {
	n := newTestNormalizer()

	for _, text := range []string{"", "We build models. Apply now.", "Join a team of 12 engineers"} {
		res := n.FromText(context.Background(), text, models.RegionUS)
		assert.False(t, res.Found(), text)
		assert.Equal(t, "", res.SalaryText)
	}
}

func TestNormalizePrefersStructured(t *testing.T) {
	n := newTestNormalizer()

	raw := models.RawPosting{
		MinAmount:   ptr(100000),
		MaxAmount:   ptr(120000),
		Currency:    "USD",
		Interval:    "yearly",
		Description: "Salary: $999,000",
	}
	res := n.Normalize(context.Background(), raw, models.RegionUS)
	assert.Equal(t, 110000.0, *res.EstimatedAnnual)

	raw.MinAmount, raw.MaxAmount = nil, nil
	res = n.Normalize(context.Background(), raw, models.RegionUS)
	assert.Equal(t, 999000.0, *res.EstimatedAnnual)
}

func TestIdempotentOnOwnOutput(t *testing.T) {
	n := newTestNormalizer()
	ctx := context.Background()

	inputs := []struct {
		text   string
		region models.Region
	}{
		{"Pay: $75 per hour", models.RegionUS},
		{"HK$600,000 - HK$900,000 per year", models.RegionHK},
		{"£45,000 - £60,000", models.RegionUK},
		{"Salary US$150,000", models.RegionSG},
	}
	for _, in := range inputs {
		first := n.FromText(ctx, in.text, in.region)
		require.True(t, first.Found(), in.text)

		assert.Equal(t, first, n.FromText(ctx, first.SalaryText, in.region), in.text)
		assert.Equal(t, first, n.FromStructured(ctx, first.Structured(), in.region), in.text)
	}
}

func TestUnknownCurrencyKeepsLocalAmount(t *testing.T) {
	n := newTestNormalizer()

	res := n.FromStructured(context.Background(), Structured{Min: ptr(90000), Currency: "EUR", Interval: "yearly"}, models.RegionUS)

	require.True(t, res.Found())
	assert.Equal(t, *res.EstimatedAnnual, *res.EstimatedAnnualUSD)
}

func TestApplyTo(t *testing.T) {
	n := newTestNormalizer()
	res := n.FromStructured(context.Background(), Structured{Min: ptr(100000), Interval: "yearly"}, models.RegionUS)

	var rec models.JobRecord
	res.ApplyTo(&rec)
	assert.True(t, rec.HasSalary())
	assert.Equal(t, "$100,000", rec.SalaryText)
	assert.Equal(t, "USD", rec.Currency)
}
