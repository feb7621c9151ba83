package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/clipforge/pipeline/internal/models"
)

// ---------------------------------------------------------------------------
// Pexels stock-media provider
// Serves both photos and videos, so it sits first in the asset chain.
// ---------------------------------------------------------------------------

const pexelsBaseURL = "https://api.pexels.com"

// PexelsProvider searches the Pexels photo and video APIs.
type PexelsProvider struct {
	apiKey string
	client *http.Client
}

var _ AssetProvider = (*PexelsProvider)(nil)

func NewPexelsProvider(apiKey string) *PexelsProvider {
	return &PexelsProvider{
		apiKey: apiKey,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *PexelsProvider) Name() string { return "pexels" }

type pexelsPhotoResponse struct {
	Photos []struct {
		ID     int    `json:"id"`
		Width  int    `json:"width"`
		Height int    `json:"height"`
		URL    string `json:"url"`
		Alt    string `json:"alt"`
		Src    struct {
			Large string `json:"large"`
			Tiny  string `json:"tiny"`
		} `json:"src"`
	} `json:"photos"`
}

type pexelsVideoResponse struct {
	Videos []struct {
		ID         int     `json:"id"`
		Width      int     `json:"width"`
		Height     int     `json:"height"`
		URL        string  `json:"url"`
		Duration   float64 `json:"duration"`
		Image      string  `json:"image"`
		VideoFiles []struct {
			Link    string `json:"link"`
			Width   int    `json:"width"`
			Height  int    `json:"height"`
			Quality string `json:"quality"`
		} `json:"video_files"`
	} `json:"videos"`
}

// Search queries the photo or video endpoint depending on assetType.
func (p *PexelsProvider) Search(ctx context.Context, query string, assetType models.AssetType, limit int) ([]models.AssetDescriptor, error) {
	if assetType == models.AssetVideo {
		return p.searchVideos(ctx, query, limit)
	}
	return p.searchPhotos(ctx, query, limit)
}

func (p *PexelsProvider) searchPhotos(ctx context.Context, query string, limit int) ([]models.AssetDescriptor, error) {
	var parsed pexelsPhotoResponse
	if err := p.get(ctx, "/v1/search", query, limit, &parsed); err != nil {
		return nil, err
	}

	descriptors := make([]models.AssetDescriptor, 0, len(parsed.Photos))
	for _, photo := range parsed.Photos {
		descriptors = append(descriptors, models.AssetDescriptor{
			ID:          strconv.Itoa(photo.ID),
			Type:        models.AssetImage,
			Provider:    p.Name(),
			Title:       photo.Alt,
			PageURL:     photo.URL,
			DownloadURL: photo.Src.Large,
			Thumbnail:   photo.Src.Tiny,
			Width:       photo.Width,
			Height:      photo.Height,
			License:     "Pexels License",
		})
	}
	return descriptors, nil
}

func (p *PexelsProvider) searchVideos(ctx context.Context, query string, limit int) ([]models.AssetDescriptor, error) {
	var parsed pexelsVideoResponse
	if err := p.get(ctx, "/videos/search", query, limit, &parsed); err != nil {
		return nil, err
	}

	descriptors := make([]models.AssetDescriptor, 0, len(parsed.Videos))
	for _, video := range parsed.Videos {
		if len(video.VideoFiles) == 0 {
			continue
		}
		// Prefer an HD rendition when one exists.
		file := video.VideoFiles[0]
		for _, vf := range video.VideoFiles {
			if strings.EqualFold(vf.Quality, "hd") {
				file = vf
				break
			}
		}
		descriptors = append(descriptors, models.AssetDescriptor{
			ID:          strconv.Itoa(video.ID),
			Type:        models.AssetVideo,
			Provider:    p.Name(),
			PageURL:     video.URL,
			DownloadURL: file.Link,
			Thumbnail:   video.Image,
			Width:       file.Width,
			Height:      file.Height,
			Duration:    video.Duration,
			License:     "Pexels License",
		})
	}
	return descriptors, nil
}

func (p *PexelsProvider) get(ctx context.Context, path, query string, limit int, out any) error {
	u := fmt.Sprintf("%s%s?query=%s&per_page=%d&orientation=landscape",
		pexelsBaseURL, path, url.QueryEscape(query), limit)

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return fmt.Errorf("failed to create Pexels request: %w", err)
	}
	req.Header.Set("Authorization", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("Pexels request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("Pexels returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode Pexels response: %w", err)
	}
	return nil
}
