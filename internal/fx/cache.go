package fx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"
)

// BaseCurrency is the pivot every stored rate is expressed against.
const BaseCurrency = "USD"

// DefaultTTL is how long a fetched rate table stays fresh.
const DefaultTTL = time.Hour

// ErrFXUnavailable is returned when no rate exists for a currency in either
// the live table or the fallback table.
var ErrFXUnavailable = errors.New("FX_UNAVAILABLE")

// fallbackRates are rate_to_USD values used when the live provider fails.
var fallbackRates = map[string]float64{
	"USD": 1.0,
	"GBP": 1.27,
	"AUD": 0.67,
	"SGD": 0.74,
	"HKD": 0.13,
	"EUR": 1.09,
	"CAD": 0.73,
}

// Snapshot is a rate table as persisted between runs.
type Snapshot struct {
	Base      string             `json:"base_currency"`
	Rates     map[string]float64 `json:"rates"`
	FetchedAt time.Time          `json:"fetched_at"`
}

// Provider fetches live rates as rate_to_USD values.
type Provider interface {
	FetchRates(ctx context.Context) (map[string]float64, error)
}

// Store persists snapshots between runs.
type Store interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
}

// Cache resolves exchange rates with in-memory, stored, live and fallback
// tiers. It is not safe for concurrent use; the pipeline is single-threaded.
type Cache struct {
	provider Provider
	store    Store
	ttl      time.Duration
	logger   *log.Logger
	now      func() time.Time

	rates      map[string]float64
	fetchedAt  time.Time
	isFallback bool

	warnedFallback bool
	warnedUnknown  map[string]bool
}

// Option customizes a Cache.
type Option func(*Cache)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithTTL overrides the freshness window.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// NewCache creates a cache. provider and store may be nil.
func NewCache(provider Provider, store Store, logger *log.Logger, opts ...Option) *Cache {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	c := &Cache{
		provider:      provider,
		store:         store,
		ttl:           DefaultTTL,
		logger:        logger,
		now:           time.Now,
		warnedUnknown: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsFallback reports whether the current table is the built-in fallback.
func (c *Cache) IsFallback() bool {
	return c.isFallback
}

// FetchedAt is when the current table was obtained.
func (c *Cache) FetchedAt() time.Time {
	return c.fetchedAt
}

// Rates returns a copy of the current rate_to_USD table, refreshing it first
// if needed.
func (c *Cache) Rates(ctx context.Context) map[string]float64 {
	c.ensureFresh(ctx)
	out := make(map[string]float64, len(c.rates))
	for k, v := range c.rates {
		out[k] = v
	}
	return out
}

// Rate returns the multiplier converting one unit of from into to.
// For a currency with no known rate it returns 1.0 and ErrFXUnavailable.
func (c *Cache) Rate(ctx context.Context, from, to string) (float64, error) {
	from = NormalizeCode(from)
	to = NormalizeCode(to)
	if from == to {
		return 1.0, nil
	}

	c.ensureFresh(ctx)

	fromUSD, err := c.toBase(from)
	if err != nil {
		return 1.0, err
	}
	toUSD, err := c.toBase(to)
	if err != nil {
		return 1.0, err
	}
	return fromUSD / toUSD, nil
}

// Convert converts amount between currencies. On ErrFXUnavailable the amount
// is returned unchanged together with the error.
func (c *Cache) Convert(ctx context.Context, amount float64, from, to string) (float64, error) {
	r, err := c.Rate(ctx, from, to)
	return amount * r, err
}

func (c *Cache) toBase(code string) (float64, error) {
	if code == BaseCurrency {
		return 1.0, nil
	}
	if r, ok := c.rates[code]; ok && r > 0 {
		return r, nil
	}
	if r, ok := fallbackRates[code]; ok {
		return r, nil
	}
	if !c.warnedUnknown[code] {
		c.warnedUnknown[code] = true
		c.logger.Printf("No exchange rate for %q; USD amounts will equal local amounts", code)
	}
	return 1.0, fmt.Errorf("%w: %s", ErrFXUnavailable, code)
}

func (c *Cache) fresh() bool {
	return c.rates != nil && c.now().Sub(c.fetchedAt) <= c.ttl
}

func (c *Cache) ensureFresh(ctx context.Context) {
	if c.fresh() {
		return
	}

	if c.store != nil {
		snap, err := c.store.Load(ctx)
		if err != nil {
			c.logger.Printf("Failed to load stored exchange rates: %v", err)
		} else if snap != nil && len(snap.Rates) > 0 && c.now().Sub(snap.FetchedAt) <= c.ttl {
			c.use(snap.Rates, snap.FetchedAt, false)
			return
		}
	}

	if c.provider != nil {
		rates, err := c.provider.FetchRates(ctx)
		if err == nil && len(rates) > 0 {
			now := c.now()
			c.use(rates, now, false)
			if c.store != nil {
				if err := c.store.Save(ctx, Snapshot{Base: BaseCurrency, Rates: rates, FetchedAt: now}); err != nil {
					c.logger.Printf("Failed to persist exchange rates: %v", err)
				}
			}
			c.logger.Printf("Loaded %d live exchange rates", len(rates))
			return
		}
		if err == nil {
			err = errors.New("empty rate table")
		}
		c.logger.Printf("Live exchange rates unavailable: %v", err)
	}

	c.use(fallbackRates, c.now(), true)
	if !c.warnedFallback {
		c.warnedFallback = true
		c.logger.Printf("WARNING: using built-in fallback exchange rates; USD estimates are approximate")
	}
}

func (c *Cache) use(rates map[string]float64, at time.Time, fallback bool) {
	table := make(map[string]float64, len(rates)+1)
	for k, v := range rates {
		table[k] = v
	}
	table[BaseCurrency] = 1.0
	c.rates = table
	c.fetchedAt = at
	c.isFallback = fallback
}
