package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clipforge/pipeline/internal/models"
)

const progressPollInterval = 2 * time.Second

// StreamProgress handles GET /v1/projects/{id}/progress as a server-sent
// event stream. The current state is emitted immediately, then the record is
// polled every tick; the stream closes once the project reaches a terminal
// status or the client disconnects. Read only and lock free; the stream is
// eventually consistent with the workers.
func (h *Handler) StreamProgress(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid project ID")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	project, err := h.db.GetProject(r.Context(), projectID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Project not found")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	writeProgressEvent(w, project)
	flusher.Flush()
	if project.Status.Terminal() {
		return
	}

	ticker := time.NewTicker(progressPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			project, err := h.db.GetProject(r.Context(), projectID)
			if err != nil {
				return
			}
			writeProgressEvent(w, project)
			flusher.Flush()
			if project.Status.Terminal() {
				return
			}
		}
	}
}

func writeProgressEvent(w http.ResponseWriter, project *models.Project) {
	event := models.ProgressEvent{
		ProjectID:    project.ID,
		Status:       project.Status,
		Progress:     project.Progress,
		PreviewURL:   project.PreviewURL,
		ExportURL:    project.ExportURL,
		ThumbnailURL: project.ThumbnailURL,
		Timestamp:    time.Now().UnixMilli(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}
