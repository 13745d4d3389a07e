// Package marketdata provides candle fetching from the market data provider.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"patternwatch/internal/domain"
)

// Client fetches OHLC candles over HTTP.
// Implements domain.MarketDataSource.
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new market data client. The timeout bounds every
// request so one unreachable provider cannot stall a match run.
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		log:     log.With().Str("client", "marketdata").Logger(),
	}
}

// candlesResponse is the provider's wire format
type candlesResponse struct {
	Candles []domain.Candle `json:"candles"`
}

// FetchCandles returns up to count most recent candles for the pair and
// timeframe, oldest first
func (c *Client) FetchCandles(ctx context.Context, pair string, timeframe domain.Timeframe, count int) ([]domain.Candle, error) {
	url := fmt.Sprintf("%s/candles?pair=%s&timeframe=%s&count=%d", c.baseURL, pair, timeframe, count)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build candles request: %w", err)
	}

	c.log.Debug().Str("pair", pair).Str("timeframe", string(timeframe)).Msg("Fetching candles")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("candles request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("candles request returned status %d", resp.StatusCode)
	}

	var decoded candlesResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode candles response: %w", err)
	}

	if len(decoded.Candles) > count {
		decoded.Candles = decoded.Candles[len(decoded.Candles)-count:]
	}

	return decoded.Candles, nil
}
