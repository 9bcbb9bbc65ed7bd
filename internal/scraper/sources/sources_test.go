package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-job-scraper-go/internal/models"
	"ai-job-scraper-go/internal/salary"
	"ai-job-scraper-go/pkg/httpclient"
)

const linkedInCards = `
<li>
  <div class="base-card base-search-card job-search-card">
    <a class="base-card__full-link" href="https://www.linkedin.com/jobs/view/ai-engineer-at-acme-123?refId=abc&trk=x"></a>
    <h3 class="base-search-card__title">
       AI Engineer
    </h3>
    <h4 class="base-search-card__subtitle"><a href="/company/acme">Acme</a></h4>
    <span class="job-search-card__location">Remote</span>
    <span class="job-search-card__salary-info">$150,000.00/yr - $180,000.00/yr</span>
    <time class="job-search-card__listdate" datetime="2025-02-01">2 weeks ago</time>
  </div>
</li>
<li>
  <div class="base-card base-search-card job-search-card">
    <a class="base-card__full-link" href="/jobs/view/ml-engineer-456"></a>
    <h3 class="base-search-card__title">ML Engineer</h3>
    <h4 class="base-search-card__subtitle">Beta</h4>
    <span class="job-search-card__location">New York, NY</span>
    <time datetime="2025-02-03">1 week ago</time>
  </div>
</li>`

func TestLinkedInScrapeOneParsesCards(t *testing.T) {
	var starts []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, linkedInSearch, r.URL.Path)
		assert.Equal(t, "AI Engineer", r.URL.Query().Get("keywords"))
		assert.Equal(t, "Remote", r.URL.Query().Get("location"))
		starts = append(starts, r.URL.Query().Get("start"))
		if r.URL.Query().Get("start") == "0" {
			_, _ = w.Write([]byte(linkedInCards))
			return
		}
		_, _ = w.Write([]byte(""))
	}))
	defer server.Close()

	s := NewLinkedInScraper(httpclient.NewHttpClient(5*time.Second), LinkedInConfig{BaseURL: server.URL})
	got, err := s.ScrapeOne(context.Background(), Query{Keyword: "AI Engineer", Location: "Remote", CountryCode: "us", ResultsWanted: 10})

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []string{"0", "2"}, starts)

	first := got[0]
	assert.Equal(t, models.PlatformLinkedIn, first.Site)
	assert.Equal(t, "AI Engineer", first.Title)
	assert.Equal(t, "Acme", first.Company)
	assert.Equal(t, "Remote", first.Location)
	assert.Equal(t, "https://www.linkedin.com/jobs/view/ai-engineer-at-acme-123", first.JobURL)
	assert.Equal(t, "2025-02-01", first.DatePosted)
	require.NotNil(t, first.MinAmount)
	require.NotNil(t, first.MaxAmount)
	assert.Equal(t, 150000.0, *first.MinAmount)
	assert.Equal(t, 180000.0, *first.MaxAmount)
	assert.Equal(t, "$", first.Currency)
	assert.Equal(t, "yearly", first.Interval)

	assert.Equal(t, server.URL+"/jobs/view/ml-engineer-456", got[1].JobURL)
	assert.Nil(t, got[1].MinAmount)
}

func TestLinkedInStopsAtResultsWanted(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(linkedInCards))
	}))
	defer server.Close()

	s := NewLinkedInScraper(httpclient.NewHttpClient(5*time.Second), LinkedInConfig{BaseURL: server.URL})
	got, err := s.ScrapeOne(context.Background(), Query{Keyword: "x", Location: "y", ResultsWanted: 3})

	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, 2, calls)
}

func TestLinkedInRateLimitedErrorMentions429(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	s := NewLinkedInScraper(httpclient.NewHttpClient(5*time.Second), LinkedInConfig{BaseURL: server.URL})
	_, err := s.ScrapeOne(context.Background(), Query{Keyword: "x", Location: "y", ResultsWanted: 5})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestLinkedInFetchesDescriptions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/jobs/view/") {
			_, _ = w.Write([]byte(`<html><body><div class="show-more-less-html__markup"><p>Build <b>LLM</b> agents.</p><ul><li>Python</li></ul></div></body></html>`))
			return
		}
		if r.URL.Query().Get("start") == "0" {
			_, _ = w.Write([]byte(`<div class="base-card"><a class="base-card__full-link" href="/jobs/view/1"></a><h3 class="base-search-card__title">AI Engineer</h3><h4 class="base-search-card__subtitle">Acme</h4></div>`))
		}
	}))
	defer server.Close()

	s := NewLinkedInScraper(httpclient.NewHttpClient(5*time.Second), LinkedInConfig{BaseURL: server.URL, FetchDescription: true})
	got, err := s.ScrapeOne(context.Background(), Query{Keyword: "x", Location: "y", ResultsWanted: 5})

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Build LLM agents.\n- Python", got[0].Description)
}

type oneToOne struct{}

func (oneToOne) Rate(ctx context.Context, from, to string) (float64, error) { return 1, nil }

func TestApplyLinkedInSalary(t *testing.T) {
	cases := []struct {
		text     string
		min, max float64
		currency string
		interval string
	}{
		{"$150K/yr - $200K/yr", 150000, 200000, "$", "yearly"},
		{"$150,000.00/yr - $180,000.00/yr", 150000, 180000, "$", "yearly"},
		{"$120k - $140k/yr", 120000, 140000, "$", "yearly"},
		{"$45/hr - $60/hr", 45, 60, "$", "hourly"},
		{"£6.5k/mo", 6500, 0, "£", "monthly"},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			var p models.RawPosting
			applyLinkedInSalary(&p, tc.text)
			require.NotNil(t, p.MinAmount)
			assert.InDelta(t, tc.min, *p.MinAmount, 0.001)
			if tc.max == 0 {
				assert.Nil(t, p.MaxAmount)
			} else {
				require.NotNil(t, p.MaxAmount)
				assert.InDelta(t, tc.max, *p.MaxAmount, 0.001)
			}
			assert.Equal(t, tc.currency, p.Currency)
			assert.Equal(t, tc.interval, p.Interval)
		})
	}
}

func TestLinkedInKSalaryNormalizesAsYearly(t *testing.T) {
	var p models.RawPosting
	applyLinkedInSalary(&p, "$150K/yr - $200K/yr")

	res := salary.NewNormalizer(oneToOne{}, nil).Normalize(context.Background(), p, models.RegionUS)
	assert.Equal(t, "$150,000 - $200,000", res.SalaryText)
	require.NotNil(t, res.EstimatedAnnual)
	assert.InDelta(t, 175000, *res.EstimatedAnnual, 0.001)
}

func TestAdzunaScrapeOne(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/gb/search/1", r.URL.Path)
		assert.Equal(t, "id", r.URL.Query().Get("app_id"))
		assert.Equal(t, "key", r.URL.Query().Get("app_key"))
		assert.Equal(t, "Machine Learning", r.URL.Query().Get("what"))
		assert.Equal(t, "London", r.URL.Query().Get("where"))
		_, _ = w.Write([]byte(`{"count":2,"results":[
			{"id":"1","title":"<strong>ML</strong> Engineer","company":{"display_name":"Acme"},"location":{"display_name":"London, UK"},
			 "description":"Train models","salary_min":60000,"salary_max":80000,"salary_is_predicted":"0",
			 "redirect_url":"https://adzuna.example/1","created":"2025-02-01T10:00:00Z","contract_time":"full_time","contract_type":"permanent"},
			{"id":"2","title":"Data Scientist","company":{"display_name":"Beta"},"location":{"display_name":"London"},
			 "salary_min":55000,"salary_max":55000,"salary_is_predicted":"1","redirect_url":"https://adzuna.example/2","created":"2025-02-02T10:00:00Z"}
		]}`))
	}))
	defer server.Close()

	s := NewAdzunaScraper(httpclient.NewHttpClient(5*time.Second), AdzunaConfig{AppID: "id", AppKey: "key", BaseURL: server.URL})
	got, err := s.ScrapeOne(context.Background(), Query{Keyword: "Machine Learning", Location: "London", CountryCode: "gb", ResultsWanted: 100})

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, models.PlatformAdzuna, got[0].Site)
	assert.Equal(t, "ML Engineer", got[0].Title)
	assert.Equal(t, "GBP", got[0].Currency)
	assert.Equal(t, "yearly", got[0].Interval)
	assert.Equal(t, 60000.0, *got[0].MinAmount)
	assert.Equal(t, "full-time, permanent", got[0].EmploymentType)
	assert.Nil(t, got[1].MinAmount)
	assert.Equal(t, "", got[1].Currency)
}

func TestAdzunaRejectsUnsupportedCountry(t *testing.T) {
	s := NewAdzunaScraper(httpclient.NewHttpClient(time.Second), AdzunaConfig{AppID: "id", AppKey: "key"})

	_, err := s.ScrapeOne(context.Background(), Query{Keyword: "AI", Location: "Hong Kong", CountryCode: "hk"})

	assert.ErrorIs(t, err, ErrUnsupportedCountry)
}

func TestAdzunaRequiresCredentials(t *testing.T) {
	s := NewAdzunaScraper(httpclient.NewHttpClient(time.Second), AdzunaConfig{})

	_, err := s.ScrapeOne(context.Background(), Query{Keyword: "AI", CountryCode: "us"})

	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestSourceManager(t *testing.T) {
	client := httpclient.NewHttpClient(time.Second)
	sm := NewSourceManager()
	sm.RegisterSource(NewLinkedInScraper(client, LinkedInConfig{}), SourceConfig{Enabled: true})
	sm.RegisterSource(NewAdzunaScraper(client, AdzunaConfig{}), SourceConfig{Enabled: false, RateLimit: 5})

	_, ok := sm.GetSource(models.PlatformLinkedIn)
	assert.True(t, ok)
	_, ok = sm.GetSource(models.PlatformAdzuna)
	assert.False(t, ok)
	assert.Equal(t, []models.Platform{models.PlatformLinkedIn}, sm.GetEnabledPlatforms())

	cfg, ok := sm.GetSourceConfig(models.PlatformLinkedIn)
	require.True(t, ok)
	assert.Equal(t, 20, cfg.RateLimit)
	cfg, _ = sm.GetSourceConfig(models.PlatformAdzuna)
	assert.Equal(t, 5, cfg.RateLimit)
}

func TestHTMLToText(t *testing.T) {
	assert.Equal(t, "Hello & welcome", HTMLToText("Hello &amp; welcome"))
	assert.Equal(t, "Title\nLine one\n- a\n- b", HTMLToText("<h2>Title</h2><p>Line   one</p><script>var x;</script><ul><li>a</li><li>b</li></ul>"))
}
