package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"ai-job-scraper-go/internal/models"
	"ai-job-scraper-go/pkg/httpclient"
)

const (
	adzunaBaseURL  = "https://api.adzuna.com/v1/api/jobs"
	adzunaPageSize = 50
	adzunaMaxPages = 10
)

// ErrMissingCredentials is returned when no Adzuna app id/key is configured.
var ErrMissingCredentials = errors.New("ADZUNA_APP_ID / ADZUNA_APP_KEY not set")

// adzunaCountries maps supported country codes to the currency salaries are
// reported in.
var adzunaCountries = map[string]string{
	"us": "USD",
	"gb": "GBP",
	"au": "AUD",
	"sg": "SGD",
	"ca": "CAD",
}

// AdzunaConfig configures an AdzunaScraper.
type AdzunaConfig struct {
	AppID   string `json:"app_id"`
	AppKey  string `json:"app_key"`
	BaseURL string `json:"base_url"`
}

// AdzunaScraper queries the generalist aggregator's public search API.
type AdzunaScraper struct {
	client  *httpclient.HttpClient
	appID   string
	appKey  string
	baseURL string
}

// NewAdzunaScraper creates the aggregator adapter.
func NewAdzunaScraper(client *httpclient.HttpClient, cfg AdzunaConfig) *AdzunaScraper {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = adzunaBaseURL
	}
	return &AdzunaScraper{client: client, appID: cfg.AppID, appKey: cfg.AppKey, baseURL: base}
}

func (a *AdzunaScraper) Platform() models.Platform {
	return models.PlatformAdzuna
}

// RateLimit matches the free tier allowance.
func (a *AdzunaScraper) RateLimit() int {
	return 25
}

type adzunaResponse struct {
	Results []adzunaResult `json:"results"`
	Count   int            `json:"count"`
}

type adzunaResult struct {
	ID                string         `json:"id"`
	Title             string         `json:"title"`
	Description       string         `json:"description"`
	Company           adzunaCompany  `json:"company"`
	Location          adzunaLocation `json:"location"`
	SalaryMin         *float64       `json:"salary_min"`
	SalaryMax         *float64       `json:"salary_max"`
	SalaryIsPredicted json.Number    `json:"salary_is_predicted"`
	RedirectURL       string         `json:"redirect_url"`
	Created           string         `json:"created"`
	ContractTime      string         `json:"contract_time"`
	ContractType      string         `json:"contract_type"`
}

type adzunaCompany struct {
	DisplayName string `json:"display_name"`
}

type adzunaLocation struct {
	DisplayName string `json:"display_name"`
}

// ScrapeOne fetches pages of 50 until ResultsWanted postings are collected
// or a short page signals the end.
func (a *AdzunaScraper) ScrapeOne(ctx context.Context, q Query) ([]models.RawPosting, error) {
	if a.appID == "" || a.appKey == "" {
		return nil, ErrMissingCredentials
	}
	country := strings.ToLower(q.CountryCode)
	currency, ok := adzunaCountries[country]
	if !ok {
		return nil, fmt.Errorf("adzuna %q: %w", q.CountryCode, ErrUnsupportedCountry)
	}

	wanted := q.ResultsWanted
	if wanted <= 0 {
		wanted = adzunaPageSize
	}

	var postings []models.RawPosting
	for page := 1; page <= adzunaMaxPages && len(postings) < wanted; page++ {
		perPage := min(adzunaPageSize, wanted-len(postings))
		batch, err := a.fetchPage(ctx, country, q, page, perPage)
		if err != nil {
			if len(postings) > 0 {
				break
			}
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		for _, r := range batch {
			postings = append(postings, r.toRaw(currency))
		}
		if len(batch) < perPage {
			break
		}
	}
	return postings, nil
}

func (a *AdzunaScraper) fetchPage(ctx context.Context, country string, q Query, page, perPage int) ([]adzunaResult, error) {
	params := url.Values{}
	params.Set("app_id", a.appID)
	params.Set("app_key", a.appKey)
	params.Set("results_per_page", strconv.Itoa(perPage))
	params.Set("what", q.Keyword)
	if loc := strings.TrimSpace(q.Location); loc != "" && !strings.EqualFold(loc, "remote") {
		params.Set("where", loc)
	}
	params.Set("content-type", "application/json")
	params.Set("sort_by", "date")

	reqURL := fmt.Sprintf("%s/%s/search/%d?%s", a.baseURL, country, page, params.Encode())
	body, err := a.client.GetBody(ctx, reqURL, map[string]string{"Accept": "application/json"})
	if err != nil {
		return nil, fmt.Errorf("adzuna search: %w", err)
	}

	var resp adzunaResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse Adzuna response: %w", err)
	}
	return resp.Results, nil
}

func (r adzunaResult) toRaw(currency string) models.RawPosting {
	raw := models.RawPosting{
		Site:           models.PlatformAdzuna,
		Title:          HTMLToText(r.Title),
		Company:        r.Company.DisplayName,
		Location:       r.Location.DisplayName,
		Description:    HTMLToText(r.Description),
		JobURL:         r.RedirectURL,
		DatePosted:     r.Created,
		EmploymentType: employmentType(r.ContractTime, r.ContractType),
	}
	// Predicted salaries are the aggregator's own estimate, not the employer's.
	if r.SalaryIsPredicted.String() != "1" {
		raw.MinAmount = models.FloatValue(r.SalaryMin)
		raw.MaxAmount = models.FloatValue(r.SalaryMax)
		if raw.MinAmount != nil || raw.MaxAmount != nil {
			raw.Currency = currency
			raw.Interval = "yearly"
		}
	}
	return raw
}

func employmentType(contractTime, contractType string) string {
	parts := make([]string, 0, 2)
	for _, v := range []string{contractTime, contractType} {
		if v = strings.TrimSpace(v); v != "" {
			parts = append(parts, strings.ReplaceAll(v, "_", "-"))
		}
	}
	return strings.Join(parts, ", ")
}
