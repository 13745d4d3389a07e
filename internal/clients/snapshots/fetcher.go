// Package snapshots resolves image references and archives triggering
// market snapshots to S3-compatible storage.
package snapshots

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// maxImageBytes caps reference image downloads; fingerprinting only samples
// byte offsets, so unbounded downloads buy nothing.
const maxImageBytes = 10 << 20 // 10MB

// Fetcher resolves image URLs to raw bytes.
// Implements domain.ImageFetcher.
type Fetcher struct {
	client *http.Client
	log    zerolog.Logger
}

// NewFetcher creates a new image fetcher with a bounded request timeout
func NewFetcher(timeout time.Duration, log zerolog.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
		log:    log.With().Str("client", "image_fetcher").Logger(),
	}
}

// FetchBytes downloads the image at url
func (f *Fetcher) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build image request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image request returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read image body: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("image at %s is empty", url)
	}

	f.log.Debug().Str("url", url).Int("bytes", len(data)).Msg("Image fetched")
	return data, nil
}
