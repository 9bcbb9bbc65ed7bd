package sources

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"ai-job-scraper-go/internal/models"
	"ai-job-scraper-go/pkg/httpclient"
)

const (
	linkedInBaseURL  = "https://www.linkedin.com"
	linkedInSearch   = "/jobs-guest/jobs/api/seeMoreJobPostings/search"
	linkedInPageSize = 25
	linkedInMaxPages = 40
)

var linkedInSalaryExpr = regexp.MustCompile(`((?:[A-Z]{0,3}\$|£|€)?)\s*(\d[\d,]*(?:\.\d+)?)\s*([kK])?\s*(?:/\s*(yr|year|hr|hour|mo|month))?`)

// LinkedInScraper reads the business-network board's public guest search,
// which returns HTML job cards without login.
type LinkedInScraper struct {
	client           *httpclient.HttpClient
	baseURL          string
	fetchDescription bool
}

// LinkedInConfig configures a LinkedInScraper.
type LinkedInConfig struct {
	BaseURL string `json:"base_url"`
	// FetchDescription loads every posting page to get its description.
	// It costs one extra request per posting.
	FetchDescription bool `json:"fetch_description"`
}

// NewLinkedInScraper creates the business-network board adapter.
func NewLinkedInScraper(client *httpclient.HttpClient, cfg LinkedInConfig) *LinkedInScraper {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = linkedInBaseURL
	}
	return &LinkedInScraper{client: client, baseURL: base, fetchDescription: cfg.FetchDescription}
}

func (l *LinkedInScraper) Platform() models.Platform {
	return models.PlatformLinkedIn
}

func (l *LinkedInScraper) RateLimit() int {
	return 20
}

// ScrapeOne pages through search results until ResultsWanted postings are
// collected or the board runs out.
func (l *LinkedInScraper) ScrapeOne(ctx context.Context, q Query) ([]models.RawPosting, error) {
	wanted := q.ResultsWanted
	if wanted <= 0 {
		wanted = linkedInPageSize
	}

	var postings []models.RawPosting
	start := 0
	for page := 0; page < linkedInMaxPages && len(postings) < wanted; page++ {
		doc, err := l.fetchDocument(ctx, l.searchURL(q, start))
		if err != nil {
			if len(postings) > 0 {
				break
			}
			return nil, err
		}

		cards := doc.Find("div.base-card, div.base-search-card, div.job-search-card")
		if cards.Length() == 0 {
			break
		}
		cards.EachWithBreak(func(i int, card *goquery.Selection) bool {
			postings = append(postings, parseLinkedInCard(card, l.baseURL))
			return len(postings) < wanted
		})
		start += cards.Length()
	}

	if l.fetchDescription {
		for i := range postings {
			if postings[i].JobURL == "" {
				continue
			}
			desc, err := l.fetchPostingDescription(ctx, postings[i].JobURL)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				continue
			}
			postings[i].Description = desc
		}
	}

	return postings, nil
}

func (l *LinkedInScraper) searchURL(q Query, start int) string {
	params := url.Values{}
	params.Set("keywords", q.Keyword)
	params.Set("location", q.Location)
	params.Set("start", strconv.Itoa(start))
	return l.baseURL + linkedInSearch + "?" + params.Encode()
}

func (l *LinkedInScraper) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	body, err := l.client.GetBody(ctx, pageURL, map[string]string{"Accept": "text/html"})
	if err != nil {
		return nil, fmt.Errorf("linkedin search: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse linkedin page: %w", err)
	}
	return doc, nil
}

func (l *LinkedInScraper) fetchPostingDescription(ctx context.Context, jobURL string) (string, error) {
	doc, err := l.fetchDocument(ctx, jobURL)
	if err != nil {
		return "", err
	}
	markup, err := doc.Find("div.show-more-less-html__markup, div.description__text").First().Html()
	if err != nil {
		return "", fmt.Errorf("read description markup: %w", err)
	}
	return HTMLToText(markup), nil
}

func parseLinkedInCard(card *goquery.Selection, baseURL string) models.RawPosting {
	text := func(sel string) string {
		return strings.Join(strings.Fields(card.Find(sel).First().Text()), " ")
	}

	posting := models.RawPosting{
		Site:     models.PlatformLinkedIn,
		Title:    text(".base-search-card__title"),
		Company:  text(".base-search-card__subtitle"),
		Location: text(".job-search-card__location"),
	}

	if href, ok := card.Find("a.base-card__full-link, a.base-card--link").First().Attr("href"); ok {
		posting.JobURL = canonicalJobURL(href, baseURL)
	}
	if dt, ok := card.Find("time").First().Attr("datetime"); ok {
		posting.DatePosted = dt
	}

	if salary := text(".job-search-card__salary-info"); salary != "" {
		applyLinkedInSalary(&posting, salary)
	}
	return posting
}

// canonicalJobURL drops tracking parameters and resolves relative links.
func canonicalJobURL(href, baseURL string) string {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return strings.TrimSpace(href)
	}
	if !u.IsAbs() {
		if base, err := url.Parse(baseURL); err == nil {
			u = base.ResolveReference(u)
		}
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// applyLinkedInSalary reads card salaries like "$150,000.00/yr - $180,000.00/yr"
// or "$150K/yr - $200K/yr".
func applyLinkedInSalary(p *models.RawPosting, text string) {
	matches := linkedInSalaryExpr.FindAllStringSubmatch(text, 2)
	if len(matches) == 0 {
		return
	}
	p.MinAmount = cardAmount(matches[0])
	if len(matches) > 1 {
		p.MaxAmount = cardAmount(matches[1])
	}
	if sym := matches[0][1]; sym != "" {
		p.Currency = sym
	}
	interval := matches[0][4]
	if interval == "" && len(matches) > 1 {
		interval = matches[1][4]
	}
	switch interval {
	case "yr", "year":
		p.Interval = "yearly"
	case "hr", "hour":
		p.Interval = "hourly"
	case "mo", "month":
		p.Interval = "monthly"
	}
}

func cardAmount(m []string) *float64 {
	v := models.ParseAmount(m[2])
	if v != nil && m[3] != "" {
		k := *v * 1000
		v = &k
	}
	return v
}
