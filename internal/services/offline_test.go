package services

import (
	"bytes"
	"context"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipforge/pipeline/internal/models"
)

func TestOfflineProviderDeterministic(t *testing.T) {
	p := NewOfflineProvider()

	a, err := p.Search(context.Background(), "mountain sunrise", models.AssetImage, 3)
	require.NoError(t, err)
	b, err := p.Search(context.Background(), "mountain sunrise", models.AssetImage, 3)
	require.NoError(t, err)

	require.Len(t, a, 1)
	assert.Equal(t, a[0].ID, b[0].ID)
	assert.Equal(t, models.AssetImage, a[0].Type)
	assert.Empty(t, a[0].DownloadURL)
}

func TestOfflineProviderAnswersVideoQueries(t *testing.T) {
	p := NewOfflineProvider()

	got, err := p.Search(context.Background(), "ocean waves", models.AssetVideo, 3)
	require.NoError(t, err)
	require.Len(t, got, 1)
	// Video queries degrade to a still rather than coming back empty.
	assert.Equal(t, models.AssetImage, got[0].Type)
}

func TestRenderOfflineAsset(t *testing.T) {
	desc := models.AssetDescriptor{ID: "offline-deadbeef", Type: models.AssetImage}

	data := renderOfflineAsset(desc)
	require.NotEmpty(t, data)
	assert.Equal(t, data, renderOfflineAsset(desc), "same descriptor must render identical bytes")

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, offlineAssetWidth, img.Bounds().Dx())
	assert.Equal(t, offlineAssetHeight, img.Bounds().Dy())
}

func TestAssetChainSearchNeverAnswersOffline(t *testing.T) {
	chain := NewAssetChain(NewOfflineProvider(), NewUnsplashProvider("test-key"))

	// Unsplash cannot serve video; the search must report exhaustion rather
	// than answering with a synthetic asset, so callers can retry a broader
	// query against the stock providers first.
	got, err := chain.Search(context.Background(), "city timelapse", models.AssetVideo, 3)
	assert.Error(t, err)
	assert.Empty(t, got)

	fb, err := chain.Fallback().Search(context.Background(), "city timelapse", models.AssetVideo, 1)
	require.NoError(t, err)
	require.Len(t, fb, 1)
	assert.Equal(t, "offline", fb[0].Provider)
}

func TestAssetChainEmptySearchErrors(t *testing.T) {
	chain := NewAssetChain(NewOfflineProvider())

	_, err := chain.Search(context.Background(), "forest", models.AssetImage, 1)
	assert.Error(t, err)
}

func TestAssetChainDownloadOffline(t *testing.T) {
	chain := NewAssetChain(NewOfflineProvider())

	descs, err := chain.Fallback().Search(context.Background(), "forest", models.AssetImage, 1)
	require.NoError(t, err)

	data, err := chain.Download(context.Background(), descs[0])
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}
