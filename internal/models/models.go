package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Enums
type ProjectStatus string

const (
	ProjectStatusDraft      ProjectStatus = "DRAFT"
	ProjectStatusProcessing ProjectStatus = "PROCESSING"
	ProjectStatusCompleted  ProjectStatus = "COMPLETED"
	ProjectStatusFailed     ProjectStatus = "FAILED"
	ProjectStatusDeleted    ProjectStatus = "DELETED"
)

// Terminal reports whether the status ends a pipeline run. DELETED is not a
// pipeline outcome; it only happens through the soft-delete path outside the
// pipeline.
func (s ProjectStatus) Terminal() bool {
	return s == ProjectStatusCompleted || s == ProjectStatusFailed
}

type QualityTier string

const (
	QualityPreview  QualityTier = "preview"
	QualityStandard QualityTier = "standard"
	QualityPremium  QualityTier = "premium"
)

// ExportCredits is the credit price of an export at this tier. Previews are
// free; subscribers are not charged at any tier.
func (q QualityTier) ExportCredits() int {
	switch q {
	case QualityPremium:
		return 2
	case QualityStandard:
		return 1
	default:
		return 0
	}
}

type ExportFormat string

const (
	FormatMP4 ExportFormat = "mp4"
	FormatMOV ExportFormat = "mov"
)

// JSONB is a custom type for PostgreSQL JSONB columns
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

// Models

// Project is the shared record the five stages coordinate through. Stages
// only ever touch status, progress, the script accumulator, the output URLs
// and job_id. Everything else on a project belongs to the CRUD layer and is
// not represented here.
type Project struct {
	ID           uuid.UUID     `json:"id"`
	UserID       uuid.UUID     `json:"user_id"`
	Status       ProjectStatus `json:"status"`
	Progress     int           `json:"progress"`
	ScriptText   string        `json:"script_text"`
	Script       JSONB         `json:"script,omitempty"`
	Template     JSONB         `json:"template,omitempty"`
	VoiceConfig  JSONB         `json:"voice_config,omitempty"`
	PreviewURL   *string       `json:"preview_url,omitempty"`
	ExportURL    *string       `json:"export_url,omitempty"`
	ThumbnailURL *string       `json:"thumbnail_url,omitempty"`
	JobID        *string       `json:"job_id,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// User carries only what the export stage's entitlement check needs.
type User struct {
	ID                 uuid.UUID `json:"id"`
	Credits            int       `json:"credits"`
	SubscriptionStatus string    `json:"subscription_status"` // "active", "canceled", "none"
	CreatedAt          time.Time `json:"created_at"`
}

// HasActiveSubscription reports whether credit deduction is bypassed.
func (u *User) HasActiveSubscription() bool {
	return u.SubscriptionStatus == "active"
}

// DTOs for API responses

type CreateProjectRequest struct {
	ScriptText  string        `json:"script_text"`
	Template    Template      `json:"template"`
	VoiceConfig VoiceSettings `json:"voice_config"`
	UserID      *uuid.UUID    `json:"user_id,omitempty"`
}

type CreateProjectResponse struct {
	ProjectID uuid.UUID     `json:"project_id"`
	Status    ProjectStatus `json:"status"`
}

type RenderRequest struct {
	Quality   QualityTier  `json:"quality"`
	Watermark *bool        `json:"watermark,omitempty"` // default true
	Format    ExportFormat `json:"format,omitempty"`    // default mp4
}

type RenderResponse struct {
	JobID   string        `json:"job_id"`
	Status  ProjectStatus `json:"status"`
	Quality QualityTier   `json:"quality"`
}

// RenderStatusResponse is the job-status lookup shape: which stage the active
// job belongs to, what the queue substrate knows about it, and the project's
// own progress.
type RenderStatusResponse struct {
	StageName     string  `json:"stage_name"`
	QueueState    string  `json:"queue_state"`
	Progress      int     `json:"progress"`
	FailureReason *string `json:"failure_reason,omitempty"`
}

// ProgressEvent is one tick of the progress stream.
type ProgressEvent struct {
	ProjectID    uuid.UUID     `json:"project_id"`
	Status       ProjectStatus `json:"status"`
	Progress     int           `json:"progress"`
	PreviewURL   *string       `json:"preview_url,omitempty"`
	ExportURL    *string       `json:"export_url,omitempty"`
	ThumbnailURL *string       `json:"thumbnail_url,omitempty"`
	Timestamp    int64         `json:"timestamp"`
}
