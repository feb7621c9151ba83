package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipforge/pipeline/internal/db"
	"github.com/clipforge/pipeline/internal/models"
	"github.com/clipforge/pipeline/internal/queue"
	"github.com/clipforge/pipeline/internal/services"
)

// brokenSpeechProvider fails every synthesis call.
type brokenSpeechProvider struct{}

func (p *brokenSpeechProvider) Name() string { return "broken" }

func (p *brokenSpeechProvider) Synthesize(context.Context, string, models.VoiceSettings) (*services.SpeechResult, error) {
	return nil, fmt.Errorf("voice service unavailable")
}

func speechTask(t *testing.T) *asynq.Task {
	t.Helper()
	p := queue.SpeechPayload{
		SegmentPayload: queue.SegmentPayload{
			ProjectID: uuid.New(),
			Voice:     models.VoiceSettings{Provider: "broken"},
		},
		Scenes: []models.Scene{
			{SceneID: "scene-1", Text: "First sentence", Duration: 2, EndTime: 2},
			{SceneID: "scene-2", Text: "Second sentence", Duration: 2, StartTime: 2, EndTime: 4},
		},
	}
	data, err := json.Marshal(p)
	require.NoError(t, err)
	return asynq.NewTask(queue.TypeSpeech, data)
}

func TestHandleSpeechFailureNeverPersistsPartialSegments(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	// Only the initial progress tick may hit the database. A synthesis
	// failure on any scene must leave the script accumulator untouched, so
	// no merge UPDATE is expected.
	mock.ExpectExec("UPDATE projects").WillReturnResult(sqlmock.NewResult(0, 1))

	w := &Worker{
		db:      &db.DB{DB: mockDB},
		queue:   queue.New("127.0.0.1:1", ""),
		storage: unreachableStorage(t),
		speech:  services.NewSpeechRegistry(&brokenSpeechProvider{}),
	}

	err = w.handleSpeech(context.Background(), speechTask(t))
	require.Error(t, err)
	assert.ErrorContains(t, err, "speech synthesis failed for scene-1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleSpeechUploadFailureNeverPersistsPartialSegments(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectExec("UPDATE projects").WillReturnResult(sqlmock.NewResult(0, 1))

	// The silent provider synthesizes fine; the dead object store rejects
	// the first upload, which must fail the whole job before any merge.
	w := &Worker{
		db:      &db.DB{DB: mockDB},
		queue:   queue.New("127.0.0.1:1", ""),
		storage: unreachableStorage(t),
		speech:  services.NewSpeechRegistry(services.NewSilenceProvider()),
	}

	// Deadline keeps the storage client from retrying the dead endpoint.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err = w.handleSpeech(ctx, speechTask(t))
	require.Error(t, err)
	assert.ErrorContains(t, err, "failed to upload audio for scene-1")
	assert.NoError(t, mock.ExpectationsWereMet())
}
