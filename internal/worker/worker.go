package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"github.com/clipforge/pipeline/internal/db"
	"github.com/clipforge/pipeline/internal/queue"
	"github.com/clipforge/pipeline/internal/services"
	"github.com/clipforge/pipeline/internal/storage"
)

// Worker owns the five stage handlers. Each stage runs on its own server so
// the expensive stages (composition, export) stay single-flight while the
// cheap ones run wider.
type Worker struct {
	db      *db.DB
	queue   *queue.Queue
	storage *storage.Storage
	speech  *services.SpeechRegistry
	assets  *services.AssetChain
	ffmpeg  *services.FFmpegService
	conc    Concurrency

	servers []*asynq.Server
}

// Concurrency caps one server per stage.
type Concurrency struct {
	Segment int
	Speech  int
	Assets  int
	Compose int
	Export  int
}

func New(
	database *db.DB,
	q *queue.Queue,
	stor *storage.Storage,
	speechReg *services.SpeechRegistry,
	assetChain *services.AssetChain,
	ffmpegSvc *services.FFmpegService,
	conc Concurrency,
) *Worker {
	return &Worker{
		db:      database,
		queue:   q,
		storage: stor,
		speech:  speechReg,
		assets:  assetChain,
		ffmpeg:  ffmpegSvc,
		conc:    conc,
	}
}

// Start launches one server per stage queue. Servers share the queue's redis
// connection options and use asynq's default exponential retry backoff.
func (w *Worker) Start() error {
	stages := []struct {
		queueName   string
		taskType    string
		concurrency int
		handler     func(context.Context, *asynq.Task) error
	}{
		{queue.QueueSegment, queue.TypeSegment, w.conc.Segment, w.handleSegment},
		{queue.QueueSpeech, queue.TypeSpeech, w.conc.Speech, w.handleSpeech},
		{queue.QueueAssets, queue.TypeAssets, w.conc.Assets, w.handleAssets},
		{queue.QueueCompose, queue.TypeCompose, w.conc.Compose, w.handleCompose},
		{queue.QueueExport, queue.TypeExport, w.conc.Export, w.handleExport},
	}

	for _, stage := range stages {
		srv := asynq.NewServer(w.queue.RedisOpt(), asynq.Config{
			Concurrency: stage.concurrency,
			Queues:      map[string]int{stage.queueName: 1},
		})

		mux := asynq.NewServeMux()
		mux.HandleFunc(stage.taskType, w.wrap(queue.StageName(stage.queueName), stage.handler))

		if err := srv.Start(mux); err != nil {
			w.Shutdown()
			return fmt.Errorf("failed to start %s server: %w", stage.queueName, err)
		}
		w.servers = append(w.servers, srv)

		log.Info().
			Str("queue", stage.queueName).
			Int("concurrency", stage.concurrency).
			Msg("stage server started")
	}
	return nil
}

// Shutdown stops all stage servers, waiting for in-flight jobs.
func (w *Worker) Shutdown() {
	for _, srv := range w.servers {
		srv.Shutdown()
	}
	w.servers = nil
}

// wrap applies the shared failure policy around a stage handler: a terminal
// error, or a retryable error on the final allowed attempt, marks the whole
// project FAILED. Anything else is left to the queue's backoff.
func (w *Worker) wrap(stage string, fn func(context.Context, *asynq.Task) error) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		err := fn(ctx, t)
		if err == nil {
			return nil
		}

		terminal := errors.Is(err, asynq.SkipRetry) || lastAttempt(ctx)
		log.Error().Err(err).
			Str("stage", stage).
			Bool("terminal", terminal).
			Msg("stage handler failed")

		if terminal {
			if projectID, ok := projectIDFromPayload(t.Payload()); ok {
				// Detached context: the job's own deadline may already be gone.
				if dbErr := w.db.MarkProjectFailed(context.WithoutCancel(ctx), projectID); dbErr != nil {
					log.Error().Err(dbErr).
						Str("project_id", projectID.String()).
						Msg("failed to mark project failed")
				}
			}
		}
		return err
	}
}

// lastAttempt reports whether the current execution is the job's final try.
func lastAttempt(ctx context.Context) bool {
	retried, ok := asynq.GetRetryCount(ctx)
	if !ok {
		return false
	}
	maxRetry, ok := asynq.GetMaxRetry(ctx)
	if !ok {
		return false
	}
	return retried >= maxRetry
}

// projectIDFromPayload pulls just the project id out of any stage payload.
// Every payload embeds the root one, so the field is always present.
func projectIDFromPayload(data []byte) (uuid.UUID, bool) {
	var head struct {
		ProjectID uuid.UUID `json:"project_id"`
	}
	if err := json.Unmarshal(data, &head); err != nil || head.ProjectID == uuid.Nil {
		return uuid.Nil, false
	}
	return head.ProjectID, true
}

// skipRetry marks an error terminal so the queue does not retry it.
func skipRetry(err error) error {
	return fmt.Errorf("%w: %w", asynq.SkipRetry, err)
}
