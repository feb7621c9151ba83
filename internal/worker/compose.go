package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"github.com/clipforge/pipeline/internal/models"
	"github.com/clipforge/pipeline/internal/queue"
	"github.com/clipforge/pipeline/internal/services"
)

// handleCompose renders each scene into a clip at preview quality and
// concatenates them into the draft. The draft is what the preview URL serves;
// export re-encodes it at the requested tier.
func (w *Worker) handleCompose(ctx context.Context, t *asynq.Task) error {
	var p queue.ComposePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return skipRetry(fmt.Errorf("failed to decode compose payload: %w", err))
	}
	if len(p.SelectedAssets) == 0 {
		return skipRetry(fmt.Errorf("no assets to compose"))
	}
	if len(p.AudioSegments) == 0 {
		return skipRetry(fmt.Errorf("no audio segments to compose"))
	}

	if err := w.db.UpdateProjectProgress(ctx, p.ProjectID, composeBand.at(0.05)); err != nil {
		return fmt.Errorf("failed to record progress: %w", err)
	}

	audioBySceneID := make(map[string]models.AudioSegment, len(p.AudioSegments))
	for _, seg := range p.AudioSegments {
		audioBySceneID[seg.SceneID] = seg
	}

	profile := services.ProfileFor(models.QualityPreview)

	var scratch []string
	defer func() { w.ffmpeg.Cleanup(scratch...) }()

	clips := make([]string, 0, len(p.SelectedAssets))
	for i, asset := range p.SelectedAssets {
		audio, ok := audioBySceneID[asset.SceneID]
		if !ok {
			return skipRetry(fmt.Errorf("scene %s has an asset but no audio", asset.SceneID))
		}

		audioPath := w.ffmpeg.CreateTempFile(fmt.Sprintf("%s-%s-audio", p.ProjectID, asset.SceneID))
		scratch = append(scratch, audioPath)
		if err := w.storage.DownloadToFile(ctx, audio.AudioObject, audioPath); err != nil {
			return fmt.Errorf("failed to fetch audio for %s: %w", asset.SceneID, err)
		}

		assetPath := ""
		if !asset.Placeholder() {
			assetPath = w.ffmpeg.CreateTempFile(fmt.Sprintf("%s-%s-asset", p.ProjectID, asset.SceneID))
			scratch = append(scratch, assetPath)
			if err := w.storage.DownloadToFile(ctx, asset.AssetObject, assetPath); err != nil {
				return fmt.Errorf("failed to fetch asset for %s: %w", asset.SceneID, err)
			}
		}

		clipPath := w.ffmpeg.CreateTempFile(fmt.Sprintf("%s-%s-clip.mp4", p.ProjectID, asset.SceneID))
		scratch = append(scratch, clipPath)
		if err := w.ffmpeg.RenderSceneClip(ctx, assetPath, asset.AssetType, audioPath, clipPath, audio.Duration, profile); err != nil {
			return fmt.Errorf("failed to render clip for %s: %w", asset.SceneID, err)
		}
		clips = append(clips, clipPath)

		progress := composeBand.at(0.05 + 0.7*float64(i+1)/float64(len(p.SelectedAssets)))
		if err := w.db.UpdateProjectProgress(ctx, p.ProjectID, progress); err != nil {
			return fmt.Errorf("failed to record progress: %w", err)
		}
	}

	draftPath := w.ffmpeg.CreateTempFile(fmt.Sprintf("%s-draft.mp4", p.ProjectID))
	scratch = append(scratch, draftPath)
	if err := w.ffmpeg.ConcatenateClips(ctx, clips, draftPath, p.Watermark); err != nil {
		return fmt.Errorf("failed to concatenate clips: %w", err)
	}

	duration, err := w.ffmpeg.ProbeDuration(ctx, draftPath)
	if err != nil {
		return fmt.Errorf("failed to probe draft: %w", err)
	}

	draftObject := w.storage.ObjectPath(p.ProjectID, "draft.mp4")
	if err := w.storage.UploadFile(ctx, draftObject, draftPath); err != nil {
		return fmt.Errorf("failed to upload draft: %w", err)
	}

	previewURL, err := w.storage.PresignedURL(ctx, draftObject)
	if err != nil {
		return fmt.Errorf("failed to presign draft: %w", err)
	}

	composition := models.CompositionResult{
		DraftObject: draftObject,
		Duration:    duration,
		Width:       profile.Width,
		Height:      profile.Height,
		Quality:     p.Quality,
		Watermark:   p.Watermark,
	}

	log.Info().
		Str("project_id", p.ProjectID.String()).
		Float64("duration", duration).
		Int("clips", len(clips)).
		Msg("draft composed")

	fragment := models.JSONB{"composition": composition}
	if err := w.db.MergeProjectScript(ctx, p.ProjectID, fragment, composeBand.at(0.9)); err != nil {
		return fmt.Errorf("failed to persist composition: %w", err)
	}
	if err := w.db.SetProjectPreview(ctx, p.ProjectID, previewURL, composeBand.done()); err != nil {
		return fmt.Errorf("failed to set preview: %w", err)
	}

	next := queue.ExportPayload{ComposePayload: p, Composition: composition}
	if _, err := w.queue.EnqueueExport(ctx, next); err != nil {
		return fmt.Errorf("failed to enqueue export stage: %w", err)
	}
	return nil
}
