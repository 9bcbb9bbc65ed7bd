package fx

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"ai-job-scraper-go/pkg/httpclient"
)

// DefaultEndpoint is a free endpoint returning USD-keyed rates.
const DefaultEndpoint = "https://api.exchangerate-api.com/v4/latest/USD"

// HTTPTimeout bounds one rate-table fetch.
const HTTPTimeout = 10 * time.Second

// HTTPProvider fetches `{base, rates}` JSON where rates[CODE] is the amount of
// CODE per one unit of base.
type HTTPProvider struct {
	client   *httpclient.HttpClient
	endpoint string
}

// NewHTTPProvider creates a provider for endpoint (DefaultEndpoint if empty).
func NewHTTPProvider(client *httpclient.HttpClient, endpoint string) *HTTPProvider {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &HTTPProvider{client: client, endpoint: endpoint}
}

type ratesResponse struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

// FetchRates returns rate_to_USD values for every currency in the response.
func (p *HTTPProvider) FetchRates(ctx context.Context) (map[string]float64, error) {
	body, err := p.client.GetBody(ctx, p.endpoint, map[string]string{"Accept": "application/json"})
	if err != nil {
		return nil, fmt.Errorf("fetch exchange rates: %w", err)
	}

	var resp ratesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse exchange rates: %w", err)
	}
	return invertRates(resp)
}

// invertRates converts base→CODE quotes into CODE→USD multipliers.
func invertRates(resp ratesResponse) (map[string]float64, error) {
	base := strings.ToUpper(resp.Base)
	if base == "" {
		base = BaseCurrency
	}
	if len(resp.Rates) == 0 {
		return nil, fmt.Errorf("exchange rate response has no rates")
	}

	usdPerBase := 1.0
	if base != BaseCurrency {
		q, ok := resp.Rates[BaseCurrency]
		if !ok || q <= 0 {
			return nil, fmt.Errorf("exchange rate response for base %s lacks USD", base)
		}
		usdPerBase = q
	}

	out := make(map[string]float64, len(resp.Rates))
	for code, quote := range resp.Rates {
		if quote <= 0 {
			continue
		}
		out[strings.ToUpper(code)] = usdPerBase / quote
	}
	out[base] = usdPerBase
	out[BaseCurrency] = 1.0
	return out, nil
}
