package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/clipforge/pipeline/internal/models"
)

// ---------------------------------------------------------------------------
// Unsplash stock-photo provider
// Photos only; video searches return nothing so the chain falls through.
// ---------------------------------------------------------------------------

const unsplashBaseURL = "https://api.unsplash.com"

// UnsplashProvider searches the Unsplash photo API.
type UnsplashProvider struct {
	accessKey string
	client    *http.Client
}

var _ AssetProvider = (*UnsplashProvider)(nil)

func NewUnsplashProvider(accessKey string) *UnsplashProvider {
	return &UnsplashProvider{
		accessKey: accessKey,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *UnsplashProvider) Name() string { return "unsplash" }

type unsplashSearchResponse struct {
	Results []struct {
		ID             string `json:"id"`
		Width          int    `json:"width"`
		Height         int    `json:"height"`
		AltDescription string `json:"alt_description"`
		URLs           struct {
			Regular string `json:"regular"`
			Thumb   string `json:"thumb"`
		} `json:"urls"`
		Links struct {
			HTML string `json:"html"`
		} `json:"links"`
	} `json:"results"`
}

// Search queries Unsplash photos. Video requests yield an empty slice.
func (p *UnsplashProvider) Search(ctx context.Context, query string, assetType models.AssetType, limit int) ([]models.AssetDescriptor, error) {
	if assetType == models.AssetVideo {
		return nil, nil
	}

	u := fmt.Sprintf("%s/search/photos?query=%s&per_page=%d&orientation=landscape",
		unsplashBaseURL, url.QueryEscape(query), limit)

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Unsplash request: %w", err)
	}
	req.Header.Set("Authorization", "Client-ID "+p.accessKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Unsplash request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("Unsplash returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed unsplashSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode Unsplash response: %w", err)
	}

	descriptors := make([]models.AssetDescriptor, 0, len(parsed.Results))
	for _, photo := range parsed.Results {
		descriptors = append(descriptors, models.AssetDescriptor{
			ID:          photo.ID,
			Type:        models.AssetImage,
			Provider:    p.Name(),
			Title:       photo.AltDescription,
			PageURL:     photo.Links.HTML,
			DownloadURL: photo.URLs.Regular,
			Thumbnail:   photo.URLs.Thumb,
			Width:       photo.Width,
			Height:      photo.Height,
			License:     "Unsplash License",
		})
	}
	return descriptors, nil
}
