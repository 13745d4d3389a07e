package domain

import "context"

// MarketDataSource defines the contract for fetching current market data.
// Implementations are external collaborators (broker API, data vendor);
// the matching runner treats any error as a per-pattern recoverable failure.
type MarketDataSource interface {
	// FetchCandles returns up to count most recent candles for the pair and
	// timeframe, oldest first
	FetchCandles(ctx context.Context, pair string, timeframe Timeframe, count int) ([]Candle, error)
}

// ImageFetcher resolves an image reference (URL) to raw bytes.
// Used for fingerprint extraction at pattern creation and for snapshot
// archival when an alert fires.
type ImageFetcher interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}
