// Package marketdata fetches token listings, snapshots and price history from Birdeye.
package marketdata

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/httpjson"
)

// Birdeye endpoints.
const (
	DefaultBirdeyeURL   = "https://public-api.birdeye.so"
	DefaultBirdeyeWSURL = "wss://public-api.birdeye.so/socket/solana"
	ProviderBirdeye     = "birdeye"
	SourceBirdeye       = "birdeye"

	// DefaultListingLookback is how far back NewListings looks.
	DefaultListingLookback = 1440 * time.Minute
)

// ErrNoData is returned when Birdeye answers without a payload.
var ErrNoData = errors.New("birdeye returned no data")

// NewBirdeyeHTTP builds the httpjson client for the Birdeye public API.
func NewBirdeyeHTTP(baseURL, apiKey string, opts ...httpjson.Option) *httpjson.Client {
	if baseURL == "" {
		baseURL = DefaultBirdeyeURL
	}
	opts = append([]httpjson.Option{
		httpjson.WithHeader("X-API-KEY", apiKey),
		httpjson.WithHeader("x-chain", "solana"),
	}, opts...)
	return httpjson.New(ProviderBirdeye, baseURL, opts...)
}

// BirdeyeClient reads market data for Solana tokens.
type BirdeyeClient struct {
	http *httpjson.Client
	now  func() time.Time
}

// NewBirdeyeClient creates a BirdeyeClient. now may be nil.
func NewBirdeyeClient(httpClient *httpjson.Client, now func() time.Time) *BirdeyeClient {
	if now == nil {
		now = time.Now
	}
	return &BirdeyeClient{http: httpClient, now: now}
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    *T     `json:"data"`
}

func (e *envelope[T]) payload() (*T, error) {
	if e.Data == nil {
		if e.Message != "" {
			return nil, fmt.Errorf("%w: %s", ErrNoData, e.Message)
		}
		return nil, ErrNoData
	}
	return e.Data, nil
}

type overview struct {
	Address           string `json:"address"`
	Name              string `json:"name"`
	Symbol            string `json:"symbol"`
	Price             number `json:"price"`
	Liquidity         number `json:"liquidity"`
	Volume24h         number `json:"v24hUSD"`
	MarketCap         number `json:"mc"`
	RealMarketCap     number `json:"marketCap"`
	Holders           int    `json:"holder"`
	CreatedAt         number `json:"createdAt"`
	LastTradeUnixTime int64  `json:"lastTradeUnixTime"`
}

// FetchTokenSnapshot returns the current overview of address. listedAt is
// carried through when the caller already knows the listing time.
func (c *BirdeyeClient) FetchTokenSnapshot(ctx context.Context, address string, listedAt time.Time) (*domain.TokenSnapshot, error) {
	var resp envelope[overview]
	if err := c.http.Get(ctx, "token_overview", "/defi/token_overview", url.Values{"address": {address}}, &resp); err != nil {
		return nil, err
	}
	o, err := resp.payload()
	if err != nil {
		return nil, fmt.Errorf("token overview %s: %w", address, err)
	}

	mc := o.MarketCap.Float()
	if mc == 0 {
		mc = o.RealMarketCap.Float()
	}
	if listedAt.IsZero() && o.CreatedAt.present && !o.CreatedAt.invalid && o.CreatedAt.value > 0 {
		listedAt = time.Unix(int64(o.CreatedAt.value), 0).UTC()
	}
	snap := &domain.TokenSnapshot{
		Address:          address,
		Name:             o.Name,
		Symbol:           o.Symbol,
		LiquidityUSD:     o.Liquidity.Float(),
		LiquidityInvalid: o.Liquidity.invalid,
		Volume24hUSD:     o.Volume24h.Float(),
		PriceUSD:         o.Price.Float(),
		MarketCapUSD:     mc,
		Holders:          o.Holders,
		ListedAt:         listedAt,
		FetchedAt:        c.now(),
		Source:           SourceBirdeye,
	}
	return snap, nil
}

type historyItems struct {
	Items []struct {
		UnixTime int64  `json:"unixTime"`
		Value    number `json:"value"`
	} `json:"items"`
}

// FetchPriceHistory returns prices for address over the last window at the given interval ("15m", "1H").
func (c *BirdeyeClient) FetchPriceHistory(ctx context.Context, address string, window time.Duration, interval string) ([]domain.PricePoint, error) {
	if interval == "" {
		interval = "15m"
	}
	to := c.now()
	q := url.Values{
		"address":      {address},
		"address_type": {"token"},
		"type":         {interval},
		"time_from":    {strconv.FormatInt(to.Add(-window).Unix(), 10)},
		"time_to":      {strconv.FormatInt(to.Unix(), 10)},
	}
	var resp envelope[historyItems]
	if err := c.http.Get(ctx, "history_price", "/defi/history_price", q, &resp); err != nil {
		return nil, err
	}
	h, err := resp.payload()
	if err != nil {
		return nil, fmt.Errorf("price history %s: %w", address, err)
	}

	points := make([]domain.PricePoint, 0, len(h.Items))
	for _, it := range h.Items {
		if it.Value.invalid || !it.Value.present {
			continue
		}
		points = append(points, domain.PricePoint{
			TokenAddress: address,
			Timestamp:    time.Unix(it.UnixTime, 0).UTC(),
			PriceUSD:     it.Value.value,
		})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Timestamp.Before(points[j].Timestamp) })
	return points, nil
}

type listingItems struct {
	Items []struct {
		Address          string `json:"address"`
		Name             string `json:"name"`
		Symbol           string `json:"symbol"`
		Liquidity        number `json:"liquidity"`
		LiquidityAddedAt string `json:"liquidityAddedAt"`
	} `json:"items"`
}

// NewListings returns tokens listed within lookback, newest first.
func (c *BirdeyeClient) NewListings(ctx context.Context, lookback time.Duration, limit int) ([]domain.TokenSnapshot, error) {
	if lookback <= 0 {
		lookback = DefaultListingLookback
	}
	if limit <= 0 || limit > 20 {
		limit = 20
	}
	now := c.now()
	q := url.Values{
		"time_to":               {strconv.FormatInt(now.Unix(), 10)},
		"limit":                 {strconv.Itoa(limit)},
		"meme_platform_enabled": {"false"},
	}
	var resp envelope[listingItems]
	if err := c.http.Get(ctx, "new_listing", "/defi/v2/tokens/new_listing", q, &resp); err != nil {
		return nil, err
	}
	l, err := resp.payload()
	if err != nil {
		return nil, fmt.Errorf("new listings: %w", err)
	}

	cutoff := now.Add(-lookback)
	out := make([]domain.TokenSnapshot, 0, len(l.Items))
	for _, it := range l.Items {
		if it.Address == "" {
			continue
		}
		listed, ok := parseListingTime(it.LiquidityAddedAt)
		if ok && listed.Before(cutoff) {
			continue
		}
		out = append(out, domain.TokenSnapshot{
			Address:          it.Address,
			Name:             it.Name,
			Symbol:           it.Symbol,
			LiquidityUSD:     it.Liquidity.Float(),
			LiquidityInvalid: it.Liquidity.invalid,
			ListedAt:         listed,
			FetchedAt:        now,
			Source:           SourceBirdeye,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ListedAt.After(out[j].ListedAt) })
	return out, nil
}

type trendingTokens struct {
	Tokens []struct {
		Address   string `json:"address"`
		Name      string `json:"name"`
		Symbol    string `json:"symbol"`
		Liquidity number `json:"liquidity"`
		Volume24h number `json:"volume24hUSD"`
		Price     number `json:"price"`
		Rank      int    `json:"rank"`
	} `json:"tokens"`
}

// Trending returns the top trending tokens by rank.
func (c *BirdeyeClient) Trending(ctx context.Context, limit int) ([]domain.TokenSnapshot, error) {
	if limit <= 0 || limit > 20 {
		limit = 20
	}
	q := url.Values{
		"sort_by":   {"rank"},
		"sort_type": {"asc"},
		"offset":    {"0"},
		"limit":     {strconv.Itoa(limit)},
	}
	var resp envelope[trendingTokens]
	if err := c.http.Get(ctx, "token_trending", "/defi/token_trending", q, &resp); err != nil {
		return nil, err
	}
	tr, err := resp.payload()
	if err != nil {
		return nil, fmt.Errorf("trending: %w", err)
	}
	now := c.now()
	out := make([]domain.TokenSnapshot, 0, len(tr.Tokens))
	for _, t := range tr.Tokens {
		out = append(out, domain.TokenSnapshot{
			Address:          t.Address,
			Name:             t.Name,
			Symbol:           t.Symbol,
			LiquidityUSD:     t.Liquidity.Float(),
			LiquidityInvalid: t.Liquidity.invalid,
			Volume24hUSD:     t.Volume24h.Float(),
			PriceUSD:         t.Price.Float(),
			FetchedAt:        now,
			Source:           SourceBirdeye,
		})
	}
	return out, nil
}

var listingLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000",
	"2006-01-02 15:04:05",
}

// parseListingTime accepts ISO timestamps with or without a zone (UTC assumed) and unix seconds.
func parseListingTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), true
	}
	for _, layout := range listingLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
