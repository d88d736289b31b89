package safety

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/httpjson"
)

// DefaultRugCheckURL is the public RugCheck API root.
const DefaultRugCheckURL = "https://api.rugcheck.xyz/v1"

// RugCheckClient queries the RugCheck token report endpoint.
type RugCheckClient struct {
	http   *httpjson.Client
	now    func() time.Time
	logger zerolog.Logger
}

// NewRugCheckClient creates a client. httpClient must be rooted at the API base URL.
func NewRugCheckClient(httpClient *httpjson.Client, logger zerolog.Logger) *RugCheckClient {
	return &RugCheckClient{
		http:   httpClient,
		now:    time.Now,
		logger: logger.With().Str("component", "rugcheck").Logger(),
	}
}

// Name returns "rugcheck".
func (c *RugCheckClient) Name() string {
	return ProviderRugCheck
}

type rugCheckReport struct {
	Status       string `json:"status"`
	Score        *int   `json:"score"`
	HoldersCount int    `json:"holdersCount"`
	TotalHolders int    `json:"totalHolders"`
	TopHolders   []struct {
		Pct float64 `json:"pct"`
	} `json:"topHolders"`
	Markets []struct {
		LP struct {
			LPLockedUSD float64 `json:"lpLockedUSD"`
		} `json:"lp"`
	} `json:"markets"`
	Honeypot struct {
		IsHoneypot bool `json:"isHoneypot"`
	} `json:"honeypot"`
	Contract struct {
		Verified bool `json:"verified"`
	} `json:"contract"`
	Tax struct {
		BuyTax  float64 `json:"buyTax"`
		SellTax float64 `json:"sellTax"`
	} `json:"tax"`
	CreatedAt string `json:"createdAt"`
}

// Check fetches /tokens/{address}/report. A 404 or an empty report is ErrUnavailable.
func (c *RugCheckClient) Check(ctx context.Context, address string) (*domain.SafetyReport, error) {
	var raw rugCheckReport
	path := "/tokens/" + url.PathEscape(address) + "/report"
	if err := c.http.Get(ctx, "report", path, nil, &raw); err != nil {
		if errors.Is(err, httpjson.ErrNotFound) {
			return nil, ErrUnavailable
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if raw.Status == "" && raw.Score == nil && len(raw.TopHolders) == 0 {
		return nil, ErrUnavailable
	}

	score := 50
	if raw.Score != nil {
		score = *raw.Score
	}
	holders := raw.HoldersCount
	if holders == 0 {
		holders = raw.TotalHolders
	}
	status := raw.Status
	if status == "" {
		status = "unknown"
	}

	report := &domain.SafetyReport{
		TokenAddress:     address,
		Status:           strings.ToLower(status),
		RiskScore:        domain.ClampInt(score, 0, 100),
		HoldersCount:     holders,
		IsHoneypot:       raw.Honeypot.IsHoneypot,
		ContractVerified: raw.Contract.Verified,
		MaxTax:           domain.ClampPct(maxFloat(raw.Tax.BuyTax, raw.Tax.SellTax)),
		Source:           ProviderRugCheck,
	}
	for _, h := range raw.TopHolders {
		report.TopHolderPcts = append(report.TopHolderPcts, h.Pct)
	}
	for _, m := range raw.Markets {
		report.LockedLiquidityUSD += m.LP.LPLockedUSD
	}
	if raw.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339, raw.CreatedAt); err == nil {
			report.CreatedAt = t.UTC()
		} else {
			c.logger.Warn().Str("token", address).Str("created_at", raw.CreatedAt).Msg("unparseable creation time")
		}
	}
	return report, nil
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

var _ Provider = (*RugCheckClient)(nil)
