package sentiment

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"solana-token-trader/internal/httpjson"
)

// DefaultTwitterURL is the Twitter API v2 base.
const DefaultTwitterURL = "https://api.twitter.com"

// ProviderTwitter is the provider name used for metrics and the circuit breaker.
const ProviderTwitter = "twitter"

// Tweet is one search result.
type Tweet struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	Metrics   struct {
		Retweets int `json:"retweet_count"`
		Replies  int `json:"reply_count"`
		Likes    int `json:"like_count"`
	} `json:"public_metrics"`
}

// Engagement is the sum of retweets, replies and likes.
func (t Tweet) Engagement() int {
	return t.Metrics.Retweets + t.Metrics.Replies + t.Metrics.Likes
}

// TwitterClient searches recent tweets.
type TwitterClient struct {
	http *httpjson.Client
}

// NewTwitterClient wraps an httpjson client that carries the bearer token header.
func NewTwitterClient(httpClient *httpjson.Client) *TwitterClient {
	return &TwitterClient{http: httpClient}
}

// NewTwitterHTTP builds the httpjson client for the Twitter API.
func NewTwitterHTTP(baseURL, bearerToken string, opts ...httpjson.Option) *httpjson.Client {
	if baseURL == "" {
		baseURL = DefaultTwitterURL
	}
	opts = append([]httpjson.Option{httpjson.WithHeader("Authorization", "Bearer "+bearerToken)}, opts...)
	return httpjson.New(ProviderTwitter, baseURL, opts...)
}

type searchResponse struct {
	Data []Tweet `json:"data"`
	Meta struct {
		ResultCount int `json:"result_count"`
	} `json:"meta"`
}

// SearchRecent returns up to max tweets mentioning $SYMBOL or #SYMBOL, retweets excluded.
func (c *TwitterClient) SearchRecent(ctx context.Context, symbol string, max int) ([]Tweet, error) {
	// The API accepts 10..100.
	if max < 10 {
		max = 10
	}
	if max > 100 {
		max = 100
	}
	q := url.Values{
		"query":        {fmt.Sprintf("($%s OR #%s) -is:retweet", symbol, symbol)},
		"max_results":  {strconv.Itoa(max)},
		"tweet.fields": {"created_at,public_metrics"},
	}
	var resp searchResponse
	if err := c.http.Get(ctx, "search_recent", "/2/tweets/search/recent", q, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}
