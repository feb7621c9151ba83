package services

import (
	"bytes"
	"context"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/png"

	"github.com/clipforge/pipeline/internal/models"
)

// ---------------------------------------------------------------------------
// Offline asset provider
// Last link in the asset chain. Answers every image search with a single
// deterministic descriptor whose media is rendered locally as a solid-color
// PNG, so renders complete with no stock API configured at all.
// ---------------------------------------------------------------------------

const (
	offlineAssetWidth  = 1920
	offlineAssetHeight = 1080
)

// Colors cycled by query hash so distinct scenes get distinct placeholders.
var offlinePalette = []color.RGBA{
	{R: 0xFF, G: 0x6B, B: 0x6B, A: 0xFF},
	{R: 0x4E, G: 0xCD, B: 0xC4, A: 0xFF},
	{R: 0x45, G: 0xB7, B: 0xD1, A: 0xFF},
	{R: 0x96, G: 0xCE, B: 0xB4, A: 0xFF},
	{R: 0xFE, G: 0xCA, B: 0x57, A: 0xFF},
	{R: 0xFF, G: 0x9F, B: 0xF3, A: 0xFF},
}

// OfflineProvider generates synthetic assets without network access.
type OfflineProvider struct{}

var _ AssetProvider = (*OfflineProvider)(nil)

func NewOfflineProvider() *OfflineProvider { return &OfflineProvider{} }

func (p *OfflineProvider) Name() string { return "offline" }

// Search returns exactly one synthetic image descriptor for any query,
// including video queries; a still looped over the scene beats nothing.
func (p *OfflineProvider) Search(_ context.Context, query string, _ models.AssetType, _ int) ([]models.AssetDescriptor, error) {
	return []models.AssetDescriptor{{
		ID:       fmt.Sprintf("offline-%08x", queryHash(query)),
		Type:     models.AssetImage,
		Provider: p.Name(),
		Title:    query,
		Width:    offlineAssetWidth,
		Height:   offlineAssetHeight,
		License:  "generated",
	}}, nil
}

func queryHash(query string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(query))
	return h.Sum32()
}

// renderOfflineAsset rasterizes a descriptor into a solid-color PNG. The
// color is a pure function of the descriptor ID so retries upload identical
// bytes.
func renderOfflineAsset(desc models.AssetDescriptor) []byte {
	c := offlinePalette[int(queryHash(desc.ID))%len(offlinePalette)]

	img := image.NewRGBA(image.Rect(0, 0, offlineAssetWidth, offlineAssetHeight))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
	}

	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}
