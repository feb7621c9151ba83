package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipforge/pipeline/internal/models"
	"github.com/clipforge/pipeline/internal/queue"
	"github.com/clipforge/pipeline/internal/services"
	"github.com/clipforge/pipeline/internal/storage"
)

// unreachableStorage builds a storage client whose every call fails, for
// exercising the degradation paths without a live object store.
func unreachableStorage(t *testing.T) *storage.Storage {
	t.Helper()
	stor, err := storage.New(storage.Options{
		Endpoint:  "127.0.0.1:1",
		AccessKey: "test",
		SecretKey: "test",
		Bucket:    "test",
	})
	require.NoError(t, err)
	return stor
}

// recordingAssetProvider scripts search results per query and records the
// order in which queries arrive.
type recordingAssetProvider struct {
	results map[string][]models.AssetDescriptor
	queries []string
}

func (p *recordingAssetProvider) Name() string { return "stub" }

func (p *recordingAssetProvider) Search(_ context.Context, query string, _ models.AssetType, _ int) ([]models.AssetDescriptor, error) {
	p.queries = append(p.queries, query)
	return p.results[query], nil
}

func TestExtractKeywords(t *testing.T) {
	got := extractKeywords("The majestic mountains rise above misty valleys at dawn.")
	assert.Equal(t, []string{"majestic", "mountains", "rise", "above", "misty"}, got)
}

func TestExtractKeywordsFiltersStopwordsAndShortWords(t *testing.T) {
	// "this", "that", "with" are stopwords; "a", "of", "is" are too short.
	got := extractKeywords("This is that thing with a lot of cats")
	assert.Equal(t, []string{"thing", "cats"}, got)
}

func TestSearchQuery(t *testing.T) {
	assert.Equal(t, "majestic mountains rise",
		searchQuery("The majestic mountains rise above misty valleys."))

	// Nothing searchable falls back to the generic query.
	assert.Equal(t, fallbackQuery, searchQuery("it is so so so"))
	assert.Equal(t, fallbackQuery, searchQuery(""))
}

func TestPreferredAssetType(t *testing.T) {
	short := models.Scene{Role: models.RoleMain, Duration: 3}
	long := models.Scene{Role: models.RoleMain, Duration: 6}

	plain := models.Template{}
	assert.Equal(t, models.AssetImage, preferredAssetType(plain, short))
	// Long scenes default to footage.
	assert.Equal(t, models.AssetVideo, preferredAssetType(plain, long))

	// A template hint beats the duration heuristic.
	hinted := models.Template{
		AssetTypes: map[models.SceneRole]string{models.RoleMain: "image"},
	}
	assert.Equal(t, models.AssetImage, preferredAssetType(hinted, long))
}

func TestSelectSceneAssetRetriesGenericQueryBeforeOffline(t *testing.T) {
	stub := &recordingAssetProvider{
		results: map[string][]models.AssetDescriptor{
			fallbackQuery: {{
				ID:          "stock-1",
				Type:        models.AssetImage,
				Provider:    "stub",
				DownloadURL: "http://127.0.0.1:1/asset.jpg",
			}},
		},
	}
	w := &Worker{
		assets:  services.NewAssetChain(services.NewOfflineProvider(), stub),
		storage: unreachableStorage(t),
	}

	scene := models.Scene{SceneID: "scene-1", Text: "Quantum chromodynamics binds quarks together"}
	audio := models.AudioSegment{SceneID: "scene-1", Duration: 4}
	entry := w.selectSceneAsset(context.Background(), queue.AssetPayload{}, scene, audio)

	// Zero hits for the scene's keywords must retry the stock providers
	// with the generic query, and that stock result must win over the
	// offline generator.
	require.Equal(t, []string{"quantum chromodynamics binds", fallbackQuery}, stub.queries)
	assert.Equal(t, "stub", entry.Descriptor.Provider)
}

func TestSelectSceneAssetUsesOfflineOnlyAfterBothQueries(t *testing.T) {
	stub := &recordingAssetProvider{results: map[string][]models.AssetDescriptor{}}
	w := &Worker{
		assets:  services.NewAssetChain(services.NewOfflineProvider(), stub),
		storage: unreachableStorage(t),
	}

	scene := models.Scene{SceneID: "scene-1", Text: "Quantum chromodynamics binds quarks together"}
	audio := models.AudioSegment{SceneID: "scene-1", Duration: 4}

	// Deadline keeps the storage client from retrying the dead endpoint.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	entry := w.selectSceneAsset(ctx, queue.AssetPayload{}, scene, audio)

	require.Equal(t, []string{"quantum chromodynamics binds", fallbackQuery}, stub.queries)
	assert.Equal(t, "offline", entry.Descriptor.Provider)
}

func TestAssetExtension(t *testing.T) {
	assert.Equal(t, "mp4", assetExtension(models.AssetDescriptor{Type: models.AssetVideo}))
	assert.Equal(t, "jpg", assetExtension(models.AssetDescriptor{Type: models.AssetImage, Provider: "pexels"}))
	assert.Equal(t, "png", assetExtension(models.AssetDescriptor{Type: models.AssetImage, Provider: "offline"}))
}
