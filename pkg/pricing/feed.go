package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// FeedConfig configures a Feed.
type FeedConfig struct {
	// URL of a CoinGecko-compatible simple price endpoint.
	URL string
	// AssetID is the asset key in the response, e.g. "solana".
	AssetID string
	// BaseUnitsPerAsset is the number of base units in one whole asset (1e9 for SOL).
	BaseUnitsPerAsset int64
	// MaxAge rejects prices whose upstream timestamp is older than this.
	MaxAge time.Duration
	// CacheTTL is how long a fetched quote is reused.
	CacheTTL   time.Duration
	HTTPClient *http.Client
}

// Feed fetches USD prices over HTTP and caches them briefly.
// It never falls back to an older quote once the cache has expired.
type Feed struct {
	cfg    FeedConfig
	client *http.Client
	now    func() time.Time

	mu        sync.Mutex
	cached    Quote
	fetchedAt time.Time
}

type simplePrice struct {
	USD           decimal.Decimal `json:"usd"`
	LastUpdatedAt int64           `json:"last_updated_at"`
}

// NewFeed creates a Feed.
func NewFeed(cfg FeedConfig) (*Feed, error) {
	if cfg.URL == "" || cfg.AssetID == "" {
		return nil, fmt.Errorf("price feed url and asset id are required")
	}
	if cfg.BaseUnitsPerAsset <= 0 {
		return nil, fmt.Errorf("invalid base units per asset %d", cfg.BaseUnitsPerAsset)
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &Feed{cfg: cfg, client: client, now: time.Now}, nil
}

// Quote returns a cached quote if it is fresh, otherwise fetches a new one.
func (f *Feed) Quote(ctx context.Context) (Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	if !f.fetchedAt.IsZero() && now.Sub(f.fetchedAt) < f.cfg.CacheTTL {
		return f.cached, nil
	}

	q, err := f.fetch(ctx, now)
	if err != nil {
		return Quote{}, err
	}
	f.cached = q
	f.fetchedAt = now
	return q, nil
}

func (f *Feed) fetch(ctx context.Context, now time.Time) (Quote, error) {
	u, err := url.Parse(f.cfg.URL)
	if err != nil {
		return Quote{}, fmt.Errorf("%w: bad feed url: %v", ErrUnavailable, err)
	}
	q := u.Query()
	q.Set("ids", f.cfg.AssetID)
	q.Set("vs_currencies", "usd")
	q.Set("include_last_updated_at", "true")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Quote{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return Quote{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Quote{}, fmt.Errorf("%w: feed returned status %d", ErrUnavailable, resp.StatusCode)
	}

	var body map[string]simplePrice
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Quote{}, fmt.Errorf("%w: decode feed response: %v", ErrUnavailable, err)
	}
	price, ok := body[f.cfg.AssetID]
	if !ok {
		return Quote{}, fmt.Errorf("%w: asset %q missing from feed", ErrUnavailable, f.cfg.AssetID)
	}

	asOf := now
	if price.LastUpdatedAt > 0 {
		asOf = time.Unix(price.LastUpdatedAt, 0)
		if f.cfg.MaxAge > 0 && now.Sub(asOf) > f.cfg.MaxAge {
			return Quote{}, fmt.Errorf("%w: price is %s old", ErrUnavailable, now.Sub(asOf).Round(time.Second))
		}
	}

	return FromUSDPrice(price.USD, f.cfg.BaseUnitsPerAsset, asOf)
}
