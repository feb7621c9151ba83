package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"github.com/clipforge/pipeline/internal/models"
	"github.com/clipforge/pipeline/internal/queue"
)

// fallbackQuery is used when keyword extraction finds nothing and as the
// broader retry when a scene's own keywords match no results.
const fallbackQuery = "nature abstract"

const assetSearchLimit = 5

// assetStopwords are common words too generic to search stock media with.
var assetStopwords = map[string]struct{}{
	"this": {}, "that": {}, "with": {}, "have": {}, "will": {},
	"been": {}, "from": {}, "they": {}, "them": {}, "were": {},
	"said": {}, "what": {}, "make": {}, "like": {}, "time": {},
	"very": {}, "when": {}, "come": {}, "here": {}, "just": {},
	"long": {}, "over": {}, "also": {}, "back": {}, "after": {},
	"first": {}, "well": {}, "year": {},
}

// handleAssets picks one visual per scene. Unlike speech, this stage degrades
// per scene: a failed search or download becomes a placeholder entry rather
// than failing the job, because composition can render a solid color where a
// visual is missing.
func (w *Worker) handleAssets(ctx context.Context, t *asynq.Task) error {
	var p queue.AssetPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return skipRetry(fmt.Errorf("failed to decode asset payload: %w", err))
	}

	if err := w.db.UpdateProjectProgress(ctx, p.ProjectID, assetBand.at(0.1)); err != nil {
		return fmt.Errorf("failed to record progress: %w", err)
	}

	audioBySceneID := make(map[string]models.AudioSegment, len(p.AudioSegments))
	for _, seg := range p.AudioSegments {
		audioBySceneID[seg.SceneID] = seg
	}

	selected := make([]models.SelectedAsset, 0, len(p.Scenes))
	for i, scene := range p.Scenes {
		audio, ok := audioBySceneID[scene.SceneID]
		if !ok {
			log.Warn().
				Str("project_id", p.ProjectID.String()).
				Str("scene_id", scene.SceneID).
				Msg("scene has no audio segment, skipping")
			continue
		}

		selected = append(selected, w.selectSceneAsset(ctx, p, scene, audio))

		progress := assetBand.at(0.1 + 0.8*float64(i+1)/float64(len(p.Scenes)))
		if err := w.db.UpdateProjectProgress(ctx, p.ProjectID, progress); err != nil {
			return fmt.Errorf("failed to record progress: %w", err)
		}
	}

	fragment := models.JSONB{"selected_assets": selected}
	if err := w.db.MergeProjectScript(ctx, p.ProjectID, fragment, assetBand.done()); err != nil {
		return fmt.Errorf("failed to persist selected assets: %w", err)
	}

	next := queue.ComposePayload{AssetPayload: p, SelectedAssets: selected}
	if _, err := w.queue.EnqueueCompose(ctx, next); err != nil {
		return fmt.Errorf("failed to enqueue compose stage: %w", err)
	}
	return nil
}

// selectSceneAsset searches, picks and uploads one visual for a scene. Every
// failure path returns a placeholder entry instead of an error.
func (w *Worker) selectSceneAsset(ctx context.Context, p queue.AssetPayload, scene models.Scene, audio models.AudioSegment) models.SelectedAsset {
	entry := models.SelectedAsset{
		SceneID:   scene.SceneID,
		AssetType: preferredAssetType(p.Template, scene),
		StartTime: audio.StartTime,
		EndTime:   audio.EndTime,
		Duration:  audio.Duration,
	}

	query := searchQuery(scene.Text)
	candidates, err := w.assets.Search(ctx, query, entry.AssetType, assetSearchLimit)
	if (err != nil || len(candidates) == 0) && query != fallbackQuery {
		// Zero hits for the scene's own keywords: retry the stock providers
		// with the generic query before settling for a synthetic visual.
		candidates, err = w.assets.Search(ctx, fallbackQuery, entry.AssetType, assetSearchLimit)
	}
	if err != nil || len(candidates) == 0 {
		log.Warn().Err(err).
			Str("scene_id", scene.SceneID).
			Str("query", query).
			Msg("stock search exhausted, generating offline asset")
		candidates, err = w.assets.Fallback().Search(ctx, query, entry.AssetType, 1)
		if err != nil || len(candidates) == 0 {
			return entry
		}
	}

	// First hit wins; providers already return results ranked by relevance.
	entry.Descriptor = candidates[0]

	data, err := w.assets.Download(ctx, entry.Descriptor)
	if err != nil {
		log.Warn().Err(err).
			Str("scene_id", scene.SceneID).
			Str("provider", entry.Descriptor.Provider).
			Msg("asset download failed, using placeholder")
		return entry
	}

	objectName := w.storage.ObjectPath(p.ProjectID,
		fmt.Sprintf("assets/%s.%s", scene.SceneID, assetExtension(entry.Descriptor)))
	if err := w.storage.Upload(ctx, objectName, data); err != nil {
		log.Warn().Err(err).
			Str("scene_id", scene.SceneID).
			Msg("asset upload failed, using placeholder")
		return entry
	}

	entry.AssetObject = objectName
	return entry
}

// preferredAssetType takes the template's hint for the scene's role, falling
// back to footage for scenes long enough to make a still feel static.
func preferredAssetType(t models.Template, scene models.Scene) models.AssetType {
	switch t.AssetTypes[scene.Role] {
	case string(models.AssetVideo):
		return models.AssetVideo
	case string(models.AssetImage):
		return models.AssetImage
	}
	if scene.Duration > 5 {
		return models.AssetVideo
	}
	return models.AssetImage
}

// searchQuery reduces scene text to its top keywords.
func searchQuery(text string) string {
	keywords := extractKeywords(text)
	if len(keywords) == 0 {
		return fallbackQuery
	}
	if len(keywords) > 3 {
		keywords = keywords[:3]
	}
	return strings.Join(keywords, " ")
}

// extractKeywords lowercases the text, strips punctuation, and keeps up to
// five words long and specific enough to search with.
func extractKeywords(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return ' '
	}, strings.ToLower(text))

	var keywords []string
	for _, word := range strings.Fields(cleaned) {
		if len(word) <= 3 {
			continue
		}
		if _, stop := assetStopwords[word]; stop {
			continue
		}
		keywords = append(keywords, word)
		if len(keywords) == 5 {
			break
		}
	}
	return keywords
}

// assetExtension picks the stored file extension for a descriptor.
func assetExtension(desc models.AssetDescriptor) string {
	if desc.Type == models.AssetVideo {
		return "mp4"
	}
	if desc.Provider == "offline" {
		return "png"
	}
	return "jpg"
}
