package marketdata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-trader/internal/httpjson"
	"solana-token-trader/internal/retry"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestClient(t *testing.T, handler http.HandlerFunc) *BirdeyeClient {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.Header.Get("X-API-KEY"))
		assert.Equal(t, "solana", r.Header.Get("x-chain"))
		handler(w, r)
	}))
	t.Cleanup(server.Close)
	policy := retry.Policy{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
	return NewBirdeyeClient(NewBirdeyeHTTP(server.URL, "key", httpjson.WithRetryPolicy(policy)), func() time.Time { return testNow })
}

func TestBirdeye_FetchTokenSnapshot(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/defi/token_overview", r.URL.Path)
		assert.Equal(t, "mint1", r.URL.Query().Get("address"))
		_, _ = w.Write([]byte(`{"success":true,"data":{"address":"mint1","name":"One","symbol":"ONE","price":0.5,"liquidity":"12500.5","v24hUSD":900,"mc":50000,"holder":120}}`))
	})

	listed := testNow.Add(-2 * time.Hour)
	snap, err := c.FetchTokenSnapshot(context.Background(), "mint1", listed)
	require.NoError(t, err)
	assert.Equal(t, "ONE", snap.Symbol)
	assert.Equal(t, 12500.5, snap.LiquidityUSD)
	assert.False(t, snap.LiquidityInvalid)
	assert.Equal(t, 900.0, snap.Volume24hUSD)
	assert.Equal(t, 50000.0, snap.MarketCapUSD)
	assert.Equal(t, 120, snap.Holders)
	assert.Equal(t, listed, snap.ListedAt)
	assert.Equal(t, testNow, snap.FetchedAt)
}

func TestBirdeye_UnparseableLiquidityIsFlagged(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":{"symbol":"BAD","liquidity":"n/a"}}`))
	})

	snap, err := c.FetchTokenSnapshot(context.Background(), "mintBad", time.Time{})
	require.NoError(t, err)
	assert.True(t, snap.LiquidityInvalid)
	assert.False(t, snap.HasValidLiquidity())
}

func TestBirdeye_MissingDataIsError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"message":"Not found"}`))
	})

	_, err := c.FetchTokenSnapshot(context.Background(), "mintX", time.Time{})
	assert.ErrorIs(t, err, ErrNoData)
}

func TestBirdeye_FetchPriceHistory(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/defi/history_price", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "15m", q.Get("type"))
		assert.Equal(t, "1709294400", q.Get("time_to"))
		assert.Equal(t, "1709290800", q.Get("time_from"))
		_, _ = w.Write([]byte(`{"success":true,"data":{"items":[{"unixTime":1709286300,"value":2},{"unixTime":1709285400,"value":1},{"unixTime":1709286000,"value":null}]}}`))
	})

	points, err := c.FetchPriceHistory(context.Background(), "mint1", time.Hour, "")
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 1.0, points[0].PriceUSD)
	assert.Equal(t, 2.0, points[1].PriceUSD)
	assert.Equal(t, "mint1", points[1].TokenAddress)
}

func TestBirdeye_NewListingsFiltersByLookback(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/defi/v2/tokens/new_listing", r.URL.Path)
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		body := map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{"items": []map[string]interface{}{
				{"address": "old", "symbol": "OLD", "liquidity": 5000, "liquidityAddedAt": "2024-02-27T12:00:00"},
				{"address": "fresh", "symbol": "NEW", "liquidity": 3000, "liquidityAddedAt": "2024-03-01T11:00:00"},
				{"address": "mid", "symbol": "MID", "liquidity": 4000, "liquidityAddedAt": "2024-03-01T02:00:00Z"},
				{"address": "", "symbol": "NOADDR"},
			}},
		}
		_ = json.NewEncoder(w).Encode(body)
	})

	got, err := c.NewListings(context.Background(), 24*time.Hour, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "fresh", got[0].Address)
	assert.Equal(t, "mid", got[1].Address)
	assert.Equal(t, testNow.Add(-time.Hour), got[0].ListedAt)
	assert.Equal(t, 3000.0, got[0].LiquidityUSD)
}

func TestBirdeye_Trending(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/defi/token_trending", r.URL.Path)
		assert.Equal(t, "rank", r.URL.Query().Get("sort_by"))
		_, _ = w.Write([]byte(`{"success":true,"data":{"tokens":[{"address":"t1","symbol":"T1","liquidity":100000,"volume24hUSD":"50000","price":1.2,"rank":1}]}}`))
	})

	got, err := c.Trending(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 50000.0, got[0].Volume24hUSD)
	assert.True(t, got[0].ListedAt.IsZero())
}

func TestParseListingTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2024-03-01T11:00:00", testNow.Add(-time.Hour), true},
		{"2024-03-01T11:00:00.000", testNow.Add(-time.Hour), true},
		{"2024-03-01T13:00:00+02:00", testNow.Add(-time.Hour), true},
		{"1709290800", testNow.Add(-time.Hour), true},
		{"", time.Time{}, false},
		{"yesterday", time.Time{}, false},
	}
	for _, tt := range tests {
		got, ok := parseListingTime(tt.in)
		if ok != tt.ok || !got.Equal(tt.want) {
			t.Errorf("parseListingTime(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestNumber(t *testing.T) {
	var v struct {
		A number `json:"a"`
		B number `json:"b"`
		C number `json:"c"`
		D number `json:"d"`
		E number `json:"e"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":1.5,"b":"2.5","c":"abc","d":null,"e":""}`), &v))
	assert.Equal(t, 1.5, v.A.Float())
	assert.Equal(t, 2.5, v.B.Float())
	assert.True(t, v.C.invalid)
	assert.Equal(t, 0.0, v.C.Float())
	assert.False(t, v.D.present)
	assert.False(t, v.E.present)
}
