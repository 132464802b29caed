package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/HonestMajority/lana-bank/core/money"
)

// PriceFeedConfig configures the HTTP client for the BTC price oracle.
type PriceFeedConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// PriceFeedClient implements credit.PriceFeed over a plain HTTP GET.
type PriceFeedClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewPriceFeedClient constructs a client with sane defaults.
func NewPriceFeedClient(cfg PriceFeedConfig) (*PriceFeedClient, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return nil, fmt.Errorf("clients: price feed base url required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &PriceFeedClient{
		baseURL:    strings.TrimRight(base, "/"),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type priceResponse struct {
	USDCents uint64 `json:"usd_cents"`
}

// BTCPriceUSD implements credit.PriceFeed.
func (c *PriceFeedClient) BTCPriceUSD(ctx context.Context) (money.PriceOfOneBTC, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/price/btc", nil)
	if err != nil {
		return 0, fmt.Errorf("clients: price request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("clients: price call: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("clients: price unexpected status %d", resp.StatusCode)
	}
	var payload priceResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("clients: price decode: %w", err)
	}
	return money.PriceOfOneBTC(payload.USDCents), nil
}
