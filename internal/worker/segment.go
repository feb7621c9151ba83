package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"github.com/clipforge/pipeline/internal/models"
	"github.com/clipforge/pipeline/internal/queue"
)

// sentenceSplit breaks the script on terminal punctuation runs.
var sentenceSplit = regexp.MustCompile(`[.!?]+`)

// handleSegment turns raw script text into timed scenes and validates them
// against the template. Validation failures are terminal: retrying cannot
// make a script fit a template it does not fit.
func (w *Worker) handleSegment(ctx context.Context, t *asynq.Task) error {
	var p queue.SegmentPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return skipRetry(fmt.Errorf("failed to decode segment payload: %w", err))
	}

	if err := w.db.UpdateProjectProgress(ctx, p.ProjectID, segmentBand.at(0.2)); err != nil {
		return fmt.Errorf("failed to record progress: %w", err)
	}

	scenes := segmentScript(p.ScriptText)
	if len(scenes) == 0 {
		return skipRetry(fmt.Errorf("script contains no usable sentences"))
	}

	if err := validateTemplate(p.Template, scenes); err != nil {
		return skipRetry(err)
	}

	scenes = applyTiming(scenes, p.Template)

	log.Info().
		Str("project_id", p.ProjectID.String()).
		Int("scenes", len(scenes)).
		Float64("total_duration", scenes[len(scenes)-1].EndTime).
		Msg("script segmented")

	fragment := models.JSONB{"scenes": scenes}
	if err := w.db.MergeProjectScript(ctx, p.ProjectID, fragment, segmentBand.done()); err != nil {
		return fmt.Errorf("failed to persist scenes: %w", err)
	}

	next := queue.SpeechPayload{SegmentPayload: p, Scenes: scenes}
	if _, err := w.queue.EnqueueSpeech(ctx, next); err != nil {
		return fmt.Errorf("failed to enqueue speech stage: %w", err)
	}
	return nil
}

// segmentScript splits text into scenes: one sentence per scene, the
// heuristic duration, and a role by position: first sentence is the intro,
// last the outro, everything between is main. A single-sentence script is
// all intro.
func segmentScript(text string) []models.Scene {
	parts := sentenceSplit.Split(text, -1)

	sentences := make([]string, 0, len(parts))
	for _, part := range parts {
		if s := strings.TrimSpace(part); s != "" {
			sentences = append(sentences, s)
		}
	}

	scenes := make([]models.Scene, len(sentences))
	for i, sentence := range sentences {
		role := models.RoleMain
		switch {
		case i == 0:
			role = models.RoleIntro
		case i == len(sentences)-1:
			role = models.RoleOutro
		}
		scenes[i] = models.Scene{
			SceneID:  fmt.Sprintf("scene-%d", i+1),
			Text:     sentence,
			Duration: models.EstimateNarrationSeconds(sentence),
			Role:     role,
		}
	}
	return scenes
}

// validateTemplate checks scene count and roles against the template. An
// empty SupportedRoles list means the template accepts all roles.
func validateTemplate(t models.Template, scenes []models.Scene) error {
	if t.MaxScenes <= 0 {
		return fmt.Errorf("template %q has no scene capacity", t.Name)
	}
	if len(scenes) > t.MaxScenes {
		return fmt.Errorf("script needs %d scenes but template %q allows %d",
			len(scenes), t.Name, t.MaxScenes)
	}

	if len(t.SupportedRoles) == 0 {
		return nil
	}
	for _, scene := range scenes {
		if !t.SupportsRole(scene.Role) {
			return fmt.Errorf("template %q does not support %s scenes", t.Name, scene.Role)
		}
	}
	return nil
}

// applyTiming lays scenes end to end on the timeline and attaches the
// template's layer and transition hints.
func applyTiming(scenes []models.Scene, t models.Template) []models.Scene {
	current := 0.0
	for i := range scenes {
		scenes[i].StartTime = current
		scenes[i].EndTime = current + scenes[i].Duration
		current = scenes[i].EndTime

		layer := t.SceneLayers[scenes[i].Role]
		if layer == "" {
			layer = "default"
		}
		scenes[i].TemplateLayer = layer

		in := t.Transitions.Standard
		if i == 0 {
			in = t.Transitions.Intro
		}
		out := t.Transitions.Standard
		if i == len(scenes)-1 {
			out = t.Transitions.Outro
		}
		scenes[i].Transitions = models.SceneTransition{In: in, Out: out}
	}
	return scenes
}
