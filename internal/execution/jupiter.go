package execution

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"solana-token-trader/internal/httpjson"
)

// Jupiter aggregator defaults.
const (
	DefaultJupiterURL = "https://quote-api.jup.ag/v6"
	ProviderJupiter   = "jupiter"
)

// NewJupiterHTTP builds the httpjson client for the Jupiter swap API.
func NewJupiterHTTP(baseURL, apiKey string, opts ...httpjson.Option) *httpjson.Client {
	if baseURL == "" {
		baseURL = DefaultJupiterURL
	}
	if apiKey != "" {
		opts = append([]httpjson.Option{httpjson.WithHeader("x-api-key", apiKey)}, opts...)
	}
	return httpjson.New(ProviderJupiter, baseURL, opts...)
}

// Quote is a Jupiter route quote. Raw is passed back verbatim to /swap.
type Quote struct {
	InAmount       uint64
	OutAmount      uint64
	PriceImpactPct float64
	Raw            json.RawMessage
}

// JupiterClient quotes and builds swap transactions.
type JupiterClient struct {
	http *httpjson.Client
}

// NewJupiterClient creates a JupiterClient.
func NewJupiterClient(httpClient *httpjson.Client) *JupiterClient {
	return &JupiterClient{http: httpClient}
}

// Quote returns the best route for amount base units of inputMint.
func (c *JupiterClient) Quote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps int) (*Quote, error) {
	q := url.Values{
		"inputMint":   {inputMint},
		"outputMint":  {outputMint},
		"amount":      {strconv.FormatUint(amount, 10)},
		"slippageBps": {strconv.Itoa(slippageBps)},
	}
	var raw json.RawMessage
	if err := c.http.Get(ctx, "quote", "/quote", q, &raw); err != nil {
		return nil, err
	}

	var fields struct {
		InAmount       string `json:"inAmount"`
		OutAmount      string `json:"outAmount"`
		PriceImpactPct string `json:"priceImpactPct"`
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode quote: %w", err)
	}
	in, err := strconv.ParseUint(fields.InAmount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("quote inAmount %q: %w", fields.InAmount, err)
	}
	out, err := strconv.ParseUint(fields.OutAmount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("quote outAmount %q: %w", fields.OutAmount, err)
	}
	impact, _ := strconv.ParseFloat(fields.PriceImpactPct, 64)
	return &Quote{InAmount: in, OutAmount: out, PriceImpactPct: impact, Raw: raw}, nil
}

type swapRequest struct {
	QuoteResponse             json.RawMessage `json:"quoteResponse"`
	UserPublicKey             string          `json:"userPublicKey"`
	WrapAndUnwrapSol          bool            `json:"wrapAndUnwrapSol"`
	DynamicComputeUnitLimit   bool            `json:"dynamicComputeUnitLimit"`
	PrioritizationFeeLamports interface{}     `json:"prioritizationFeeLamports"`
}

// SwapTransaction returns the unsigned base64 transaction for quote.
// priorityFee is in lamports; zero lets Jupiter choose.
func (c *JupiterClient) SwapTransaction(ctx context.Context, quote *Quote, userPublicKey string, priorityFee uint64) (string, error) {
	req := swapRequest{
		QuoteResponse:           quote.Raw,
		UserPublicKey:           userPublicKey,
		WrapAndUnwrapSol:        true,
		DynamicComputeUnitLimit: true,
	}
	if priorityFee > 0 {
		req.PrioritizationFeeLamports = priorityFee
	} else {
		req.PrioritizationFeeLamports = "auto"
	}

	var resp struct {
		SwapTransaction      string `json:"swapTransaction"`
		LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
	}
	if err := c.http.Post(ctx, "swap", "/swap", req, &resp); err != nil {
		return "", err
	}
	if resp.SwapTransaction == "" {
		return "", fmt.Errorf("jupiter swap: empty transaction")
	}
	return resp.SwapTransaction, nil
}
