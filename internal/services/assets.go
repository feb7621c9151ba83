package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/clipforge/pipeline/internal/models"
)

// ---------------------------------------------------------------------------
// AssetProvider: common interface for stock-media providers
// Pexels, Unsplash and the offline generator all implement this so the asset
// stage can walk a configured chain without knowing which source answered.
// ---------------------------------------------------------------------------

// AssetProvider is the interface any stock-media source must implement.
type AssetProvider interface {
	// Search returns candidate assets for query. Providers that cannot serve
	// the requested type (Unsplash has no video) return an empty slice and no
	// error so the chain moves on.
	Search(ctx context.Context, query string, assetType models.AssetType, limit int) ([]models.AssetDescriptor, error)

	// Name returns the provider identifier recorded on each descriptor.
	Name() string
}

// AssetChain tries each stock provider in order until one returns candidates.
// The offline generator is held separately as the fallback: it must not
// answer searches, or a real result for a broader retry query could never
// beat a synthetic one.
type AssetChain struct {
	providers []AssetProvider
	fallback  AssetProvider
	client    *http.Client
}

// NewAssetChain builds a chain over the stock providers, queried in order,
// with fallback consulted only once callers have exhausted their queries.
func NewAssetChain(fallback AssetProvider, providers ...AssetProvider) *AssetChain {
	return &AssetChain{
		providers: providers,
		fallback:  fallback,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Fallback returns the offline generator. Callers decide when to give up on
// the stock providers; the chain never falls back on its own.
func (c *AssetChain) Fallback() AssetProvider {
	return c.fallback
}

// Search walks the stock providers and returns the first non-empty candidate
// list. Provider errors are logged and skipped; an exhausted or empty chain
// is an error so callers can retry with a broader query.
func (c *AssetChain) Search(ctx context.Context, query string, assetType models.AssetType, limit int) ([]models.AssetDescriptor, error) {
	for _, p := range c.providers {
		candidates, err := p.Search(ctx, query, assetType, limit)
		if err != nil {
			log.Warn().Err(err).
				Str("provider", p.Name()).
				Str("query", query).
				Msg("asset search failed, trying next provider")
			continue
		}
		if len(candidates) > 0 {
			return candidates, nil
		}
	}
	return nil, fmt.Errorf("no assets found for query %q", query)
}

// Download fetches the descriptor's media. Descriptors without a download
// URL (the offline generator's) are rendered locally instead of fetched.
func (c *AssetChain) Download(ctx context.Context, desc models.AssetDescriptor) ([]byte, error) {
	if desc.DownloadURL == "" {
		return renderOfflineAsset(desc), nil
	}

	req, err := http.NewRequestWithContext(ctx, "GET", desc.DownloadURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create asset download request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("asset download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("asset download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read asset body: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("asset download returned empty body")
	}
	return data, nil
}
