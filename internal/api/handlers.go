package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/clipforge/pipeline/internal/db"
	"github.com/clipforge/pipeline/internal/models"
	"github.com/clipforge/pipeline/internal/queue"
	"github.com/clipforge/pipeline/internal/storage"
)

type Handler struct {
	db      *db.DB
	queue   *queue.Queue
	storage *storage.Storage
}

func NewHandler(database *db.DB, q *queue.Queue, stor *storage.Storage) *Handler {
	return &Handler{
		db:      database,
		queue:   q,
		storage: stor,
	}
}

// CreateProject handles POST /v1/projects
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req models.CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.ScriptText) == "" {
		respondError(w, http.StatusBadRequest, "script_text is required")
		return
	}
	if req.Template.MaxScenes <= 0 {
		respondError(w, http.StatusBadRequest, "template.max_scenes must be positive")
		return
	}
	if req.UserID == nil {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	templateJSON, voiceJSON, err := encodeProjectConfig(req.Template, req.VoiceConfig)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid template or voice config")
		return
	}

	project := &models.Project{
		ID:          uuid.New(),
		UserID:      *req.UserID,
		Status:      models.ProjectStatusDraft,
		Progress:    0,
		ScriptText:  req.ScriptText,
		Template:    templateJSON,
		VoiceConfig: voiceJSON,
	}

	if err := h.db.CreateProject(r.Context(), project); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create project")
		return
	}

	respondJSON(w, http.StatusCreated, models.CreateProjectResponse{
		ProjectID: project.ID,
		Status:    project.Status,
	})
}

// StartRender handles POST /v1/projects/{id}/render, the pipeline entry
// point. Validates the record, pre-checks entitlement so a render that could
// never export is rejected before any work starts, and enqueues segmentation.
func (h *Handler) StartRender(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid project ID")
		return
	}

	var req models.RenderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	quality := req.Quality
	if quality == "" {
		quality = models.QualityPreview
	}
	switch quality {
	case models.QualityPreview, models.QualityStandard, models.QualityPremium:
	default:
		respondError(w, http.StatusBadRequest, "Invalid quality. Allowed: preview, standard, premium")
		return
	}

	watermark := true
	if req.Watermark != nil {
		watermark = *req.Watermark
	}

	format := req.Format
	if format == "" {
		format = models.FormatMP4
	}
	if format != models.FormatMP4 && format != models.FormatMOV {
		respondError(w, http.StatusBadRequest, "Invalid format. Allowed: mp4, mov")
		return
	}

	project, err := h.db.GetProject(r.Context(), projectID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Project not found")
		return
	}

	if project.Status == models.ProjectStatusProcessing {
		respondError(w, http.StatusConflict, "Project is already being processed")
		return
	}
	if strings.TrimSpace(project.ScriptText) == "" || len(project.Template) == 0 {
		respondError(w, http.StatusBadRequest, "Project must have script and template to render")
		return
	}

	var template models.Template
	if err := decodeJSONB(project.Template, &template); err != nil {
		respondError(w, http.StatusInternalServerError, "Stored template is invalid")
		return
	}
	var voice models.VoiceSettings
	if len(project.VoiceConfig) > 0 {
		if err := decodeJSONB(project.VoiceConfig, &voice); err != nil {
			respondError(w, http.StatusInternalServerError, "Stored voice config is invalid")
			return
		}
	}

	user, err := h.db.GetUser(r.Context(), project.UserID)
	if err != nil {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}

	// Entitlement pre-checks. The export stage re-verifies before charging,
	// but failing here saves the whole render.
	cost := quality.ExportCredits()
	if !user.HasActiveSubscription() {
		if cost > 0 && user.Credits < cost {
			respondError(w, http.StatusPaymentRequired, "Insufficient credits for this quality tier")
			return
		}
		// Removing the watermark from a free preview is a paid feature.
		if !watermark && cost == 0 {
			respondError(w, http.StatusForbidden, "Watermark removal requires a paid tier or active subscription")
			return
		}
	}

	payload := queue.SegmentPayload{
		ProjectID:  project.ID,
		UserID:     project.UserID,
		ScriptText: project.ScriptText,
		Template:   template,
		Voice:      voice,
		Quality:    quality,
		Watermark:  watermark,
		Format:     format,
	}

	// Claim the record before enqueueing. The conditional update lets exactly
	// one of two racing render requests through; the loser never enqueues, so
	// a project can never have two pipelines running.
	jobID := uuid.NewString()
	if err := h.db.StartRender(r.Context(), project.ID, jobID); err != nil {
		respondError(w, http.StatusConflict, "Project is already being processed")
		return
	}

	if err := h.queue.EnqueueSegment(r.Context(), jobID, payload); err != nil {
		// The record is PROCESSING with no job behind it; fail it so the
		// caller can retry instead of watching a stalled progress bar.
		if dbErr := h.db.MarkProjectFailed(r.Context(), project.ID); dbErr != nil {
			log.Error().Err(dbErr).
				Str("project_id", project.ID.String()).
				Msg("failed to release project after enqueue error")
		}
		respondError(w, http.StatusInternalServerError, "Failed to enqueue render")
		return
	}

	respondJSON(w, http.StatusAccepted, models.RenderResponse{
		JobID:   jobID,
		Status:  models.ProjectStatusProcessing,
		Quality: quality,
	})
}

// RenderStatus handles GET /v1/projects/{id}/render: job-level diagnostics
// from the queue substrate paired with the project's own progress.
func (h *Handler) RenderStatus(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid project ID")
		return
	}

	project, err := h.db.GetProject(r.Context(), projectID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Project not found")
		return
	}
	if project.JobID == nil {
		respondError(w, http.StatusNotFound, "Project has no render job")
		return
	}

	resp := models.RenderStatusResponse{Progress: project.Progress}

	status, err := h.queue.LookupJob(*project.JobID)
	if err != nil {
		// The root job can age out of retention while successors still run;
		// the project record remains the source of truth.
		resp.StageName = "unknown"
		resp.QueueState = "expired"
	} else {
		resp.StageName = status.StageName
		resp.QueueState = status.QueueState
		if status.FailureReason != "" {
			resp.FailureReason = &status.FailureReason
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

// GetProject handles GET /v1/projects/{id}
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid project ID")
		return
	}

	project, err := h.db.GetProject(r.Context(), projectID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Project not found")
		return
	}

	respondJSON(w, http.StatusOK, project)
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// encodeProjectConfig round-trips the typed template and voice settings into
// the JSONB shape the projects table stores.
func encodeProjectConfig(t models.Template, v models.VoiceSettings) (models.JSONB, models.JSONB, error) {
	var templateJSON, voiceJSON models.JSONB
	if err := roundTrip(t, &templateJSON); err != nil {
		return nil, nil, err
	}
	if err := roundTrip(v, &voiceJSON); err != nil {
		return nil, nil, err
	}
	return templateJSON, voiceJSON, nil
}

func roundTrip(in, out interface{}) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func decodeJSONB(j models.JSONB, out interface{}) error {
	return roundTrip(j, out)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
