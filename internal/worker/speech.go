package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"github.com/clipforge/pipeline/internal/models"
	"github.com/clipforge/pipeline/internal/queue"
)

// handleSpeech synthesizes narration for every scene. The stage is
// all-or-nothing: one failed scene fails the whole job, because a video with
// holes in its narration is worse than a late one. Re-runs overwrite the
// same audio objects, so a retry after a partial pass is safe.
func (w *Worker) handleSpeech(ctx context.Context, t *asynq.Task) error {
	var p queue.SpeechPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return skipRetry(fmt.Errorf("failed to decode speech payload: %w", err))
	}
	if len(p.Scenes) == 0 {
		return skipRetry(fmt.Errorf("no scenes to synthesize"))
	}

	if err := w.db.UpdateProjectProgress(ctx, p.ProjectID, speechBand.at(0.1)); err != nil {
		return fmt.Errorf("failed to record progress: %w", err)
	}

	provider := w.speech.Resolve(p.Voice.Provider)
	log.Info().
		Str("project_id", p.ProjectID.String()).
		Str("provider", provider.Name()).
		Int("scenes", len(p.Scenes)).
		Msg("synthesizing narration")

	segments := make([]models.AudioSegment, 0, len(p.Scenes))
	for i, scene := range p.Scenes {
		result, err := provider.Synthesize(ctx, scene.Text, p.Voice)
		if err != nil {
			return fmt.Errorf("speech synthesis failed for %s: %w", scene.SceneID, err)
		}

		objectName := w.storage.ObjectPath(p.ProjectID,
			fmt.Sprintf("audio/%s.%s", scene.SceneID, result.Format))
		if err := w.storage.Upload(ctx, objectName, result.AudioData); err != nil {
			return fmt.Errorf("failed to upload audio for %s: %w", scene.SceneID, err)
		}

		segments = append(segments, models.AudioSegment{
			SceneID:     scene.SceneID,
			AudioObject: objectName,
			Duration:    result.Duration,
			StartTime:   scene.StartTime,
			EndTime:     scene.EndTime,
			Phonemes:    result.Phonemes,
		})

		progress := speechBand.at(0.1 + 0.8*float64(i+1)/float64(len(p.Scenes)))
		if err := w.db.UpdateProjectProgress(ctx, p.ProjectID, progress); err != nil {
			return fmt.Errorf("failed to record progress: %w", err)
		}
	}

	timing := buildTimingMap(segments)

	fragment := models.JSONB{
		"audio_segments": segments,
		"timing_map":     timing,
	}
	if err := w.db.MergeProjectScript(ctx, p.ProjectID, fragment, speechBand.done()); err != nil {
		return fmt.Errorf("failed to persist audio segments: %w", err)
	}

	next := queue.AssetPayload{
		SpeechPayload: p,
		AudioSegments: segments,
		Timing:        timing,
	}
	if _, err := w.queue.EnqueueAssets(ctx, next); err != nil {
		return fmt.Errorf("failed to enqueue asset stage: %w", err)
	}
	return nil
}

// buildTimingMap summarizes the synthesized track for downstream stages.
func buildTimingMap(segments []models.AudioSegment) models.TimingMap {
	timing := models.TimingMap{
		Segments: make([]models.TimingSegment, len(segments)),
	}
	for i, seg := range segments {
		timing.TotalDuration += seg.Duration
		timing.Segments[i] = models.TimingSegment{
			SceneID:     seg.SceneID,
			StartTime:   seg.StartTime,
			EndTime:     seg.EndTime,
			Duration:    seg.Duration,
			AudioObject: seg.AudioObject,
		}
	}
	return timing
}
