package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/clipforge/pipeline/internal/models"
	"github.com/google/uuid"
)

func (db *DB) CreateProject(ctx context.Context, project *models.Project) error {
	query := `
		INSERT INTO projects (
			id, user_id, status, progress, script_text, template, voice_config
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	return db.QueryRowContext(
		ctx, query,
		project.ID, project.UserID, project.Status, project.Progress,
		project.ScriptText, project.Template, project.VoiceConfig,
	).Scan(&project.CreatedAt, &project.UpdatedAt)
}

func (db *DB) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	query := `
		SELECT
			id, user_id, status, progress, script_text, script, template,
			voice_config, preview_url, export_url, thumbnail_url, job_id,
			created_at, updated_at
		FROM projects
		WHERE id = $1 AND status != 'DELETED'
	`

	project := &models.Project{}
	err := db.QueryRowContext(ctx, query, id).Scan(
		&project.ID, &project.UserID, &project.Status, &project.Progress,
		&project.ScriptText, &project.Script, &project.Template,
		&project.VoiceConfig, &project.PreviewURL, &project.ExportURL,
		&project.ThumbnailURL, &project.JobID,
		&project.CreatedAt, &project.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("project not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return project, nil
}

// StartRender flips a project into PROCESSING and records the root job id.
// The WHERE clause rejects projects that are already mid-pipeline, so two
// concurrent render requests cannot both win.
func (db *DB) StartRender(ctx context.Context, id uuid.UUID, jobID string) error {
	query := `
		UPDATE projects
		SET status = $1, progress = 0, job_id = $2, updated_at = NOW()
		WHERE id = $3 AND status != $1 AND status != 'DELETED'
	`

	result, err := db.ExecContext(ctx, query, models.ProjectStatusProcessing, jobID, id)
	if err != nil {
		return fmt.Errorf("failed to start render: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("project is already being processed")
	}
	return nil
}

// UpdateProjectProgress advances the progress bar. GREATEST keeps the value
// monotone while PROCESSING even if a retried job reports a lower number than
// a concurrent writer already stored.
func (db *DB) UpdateProjectProgress(ctx context.Context, id uuid.UUID, progress int) error {
	query := `
		UPDATE projects
		SET progress = GREATEST(progress, $1), updated_at = NOW()
		WHERE id = $2 AND status = $3
	`
	_, err := db.ExecContext(ctx, query, progress, id, models.ProjectStatusProcessing)
	return err
}

// MergeProjectScript merges a stage's output into the script accumulator.
// The jsonb concatenation only replaces the keys present in fragment;
// unrelated keys written by other paths survive.
func (db *DB) MergeProjectScript(ctx context.Context, id uuid.UUID, fragment models.JSONB, progress int) error {
	query := `
		UPDATE projects
		SET script = COALESCE(script, '{}'::jsonb) || $1,
		    progress = GREATEST(progress, $2),
		    updated_at = NOW()
		WHERE id = $3 AND status = $4
	`
	_, err := db.ExecContext(ctx, query, fragment, progress, id, models.ProjectStatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to merge project script: %w", err)
	}
	return nil
}

// SetProjectPreview records the draft composition output.
func (db *DB) SetProjectPreview(ctx context.Context, id uuid.UUID, previewURL string, progress int) error {
	query := `
		UPDATE projects
		SET preview_url = $1, progress = GREATEST(progress, $2), updated_at = NOW()
		WHERE id = $3 AND status = $4
	`
	_, err := db.ExecContext(ctx, query, previewURL, progress, id, models.ProjectStatusProcessing)
	return err
}

// CompleteProject is the terminal success write: both output URLs, progress
// pinned at 100, status COMPLETED.
func (db *DB) CompleteProject(ctx context.Context, id uuid.UUID, exportURL, thumbnailURL string) error {
	query := `
		UPDATE projects
		SET status = $1, progress = 100, export_url = $2, thumbnail_url = $3, updated_at = NOW()
		WHERE id = $4 AND status = $5
	`
	_, err := db.ExecContext(ctx, query,
		models.ProjectStatusCompleted, exportURL, thumbnailURL,
		id, models.ProjectStatusProcessing,
	)
	return err
}

// MarkProjectFailed records an unrecovered stage error. Progress resets to 0
// to distinguish a failed run from a stalled one. Already-terminal projects
// are left alone.
func (db *DB) MarkProjectFailed(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE projects
		SET status = $1, progress = 0, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`
	_, err := db.ExecContext(ctx, query, models.ProjectStatusFailed, id, models.ProjectStatusProcessing)
	return err
}
