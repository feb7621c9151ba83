package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/clipforge/pipeline/internal/models"
	"github.com/clipforge/pipeline/internal/queue"
	"github.com/clipforge/pipeline/internal/services"
)

// handleExport re-encodes the draft at the requested tier, produces the
// thumbnail, and settles credits. Entitlement is checked before any encoding
// so a user who cannot pay does not cost us a transcode.
func (w *Worker) handleExport(ctx context.Context, t *asynq.Task) error {
	var p queue.ExportPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return skipRetry(fmt.Errorf("failed to decode export payload: %w", err))
	}
	if p.Composition.DraftObject == "" {
		return skipRetry(fmt.Errorf("no draft to export"))
	}

	if err := w.db.UpdateProjectProgress(ctx, p.ProjectID, exportBand.at(0.1)); err != nil {
		return fmt.Errorf("failed to record progress: %w", err)
	}

	cost := p.Quality.ExportCredits()
	user, err := w.db.GetUser(ctx, p.UserID)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	// Subscribers export without spending credits.
	payWithCredits := cost > 0 && !user.HasActiveSubscription()
	if payWithCredits && user.Credits < cost {
		return skipRetry(fmt.Errorf("insufficient credits: have %d, need %d", user.Credits, cost))
	}

	format := p.Format
	if format == "" {
		format = models.FormatMP4
	}
	profile := services.ProfileFor(p.Quality)

	var scratch []string
	defer func() { w.ffmpeg.Cleanup(scratch...) }()

	draftPath := w.ffmpeg.CreateTempFile(fmt.Sprintf("%s-export-src.mp4", p.ProjectID))
	scratch = append(scratch, draftPath)
	if err := w.storage.DownloadToFile(ctx, p.Composition.DraftObject, draftPath); err != nil {
		return fmt.Errorf("failed to fetch draft: %w", err)
	}

	finalPath := w.ffmpeg.CreateTempFile(fmt.Sprintf("%s-final.%s", p.ProjectID, format))
	scratch = append(scratch, finalPath)
	if err := w.ffmpeg.Transcode(ctx, draftPath, finalPath, profile, format); err != nil {
		return fmt.Errorf("export encode failed: %w", err)
	}

	if err := w.db.UpdateProjectProgress(ctx, p.ProjectID, exportBand.at(0.6)); err != nil {
		return fmt.Errorf("failed to record progress: %w", err)
	}

	thumbPath := w.ffmpeg.CreateTempFile(fmt.Sprintf("%s-thumb.jpg", p.ProjectID))
	scratch = append(scratch, thumbPath)
	if err := w.ffmpeg.ExtractThumbnail(ctx, finalPath, thumbPath, p.Composition.Duration/2); err != nil {
		return fmt.Errorf("thumbnail extraction failed: %w", err)
	}

	exportObject := w.storage.ObjectPath(p.ProjectID, fmt.Sprintf("export.%s", format))
	thumbObject := w.storage.ObjectPath(p.ProjectID, "thumbnail.jpg")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.storage.UploadFile(gctx, exportObject, finalPath) })
	g.Go(func() error { return w.storage.UploadFile(gctx, thumbObject, thumbPath) })
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to upload export artifacts: %w", err)
	}

	exportURL, err := w.storage.PresignedURL(ctx, exportObject)
	if err != nil {
		return fmt.Errorf("failed to presign export: %w", err)
	}
	thumbURL, err := w.storage.PresignedURL(ctx, thumbObject)
	if err != nil {
		return fmt.Errorf("failed to presign thumbnail: %w", err)
	}

	if payWithCredits {
		desc := fmt.Sprintf("%s export of project %s", p.Quality, p.ProjectID)
		if err := w.db.DeductCredits(ctx, p.UserID, cost, desc); err != nil {
			// The balance moved under us since the pre-check; not retryable.
			return skipRetry(fmt.Errorf("credit deduction failed: %w", err))
		}
	}

	if err := w.db.CompleteProject(ctx, p.ProjectID, exportURL, thumbURL); err != nil {
		return fmt.Errorf("failed to complete project: %w", err)
	}

	log.Info().
		Str("project_id", p.ProjectID.String()).
		Str("quality", string(p.Quality)).
		Str("format", string(format)).
		Int("credits", cost).
		Bool("charged", payWithCredits).
		Msg("export completed")
	return nil
}
