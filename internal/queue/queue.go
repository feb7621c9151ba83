package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// One named queue per pipeline stage. Hand-off between stages happens only by
// enqueueing on the successor's queue; workers never call each other.
const (
	QueueSegment = "render:segment"
	QueueSpeech  = "render:speech"
	QueueAssets  = "render:assets"
	QueueCompose = "render:compose"
	QueueExport  = "render:export"
)

// Task type names, one per stage handler.
const (
	TypeSegment = "render:segment"
	TypeSpeech  = "render:speech"
	TypeAssets  = "render:assets"
	TypeCompose = "render:compose"
	TypeExport  = "render:export"
)

const (
	maxRetry  = 3
	retention = 24 * time.Hour
)

// StageName maps a queue to the name surfaced in job-status lookups.
func StageName(queueName string) string {
	switch queueName {
	case QueueSegment:
		return "script-segmentation"
	case QueueSpeech:
		return "speech-synthesis"
	case QueueAssets:
		return "asset-selection"
	case QueueCompose:
		return "composition"
	case QueueExport:
		return "export"
	default:
		return queueName
	}
}

// AllQueues lists the stage queues in pipeline order.
func AllQueues() []string {
	return []string{QueueSegment, QueueSpeech, QueueAssets, QueueCompose, QueueExport}
}

// Queue wraps the asynq client and inspector. The redis connection options
// are shared with the stage servers so the whole process talks to one broker.
type Queue struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	redisOpt  asynq.RedisClientOpt
}

func New(redisAddr, redisPassword string) *Queue {
	opt := asynq.RedisClientOpt{Addr: redisAddr, Password: redisPassword}
	return &Queue{
		client:    asynq.NewClient(opt),
		inspector: asynq.NewInspector(opt),
		redisOpt:  opt,
	}
}

func (q *Queue) Close() error {
	if err := q.client.Close(); err != nil {
		return err
	}
	return q.inspector.Close()
}

// RedisOpt exposes the connection options for the stage servers.
func (q *Queue) RedisOpt() asynq.RedisClientOpt {
	return q.redisOpt
}

func (q *Queue) enqueue(ctx context.Context, queueName, taskType, jobID string, payload interface{}, timeout time.Duration) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s payload: %w", taskType, err)
	}

	task := asynq.NewTask(taskType, data)

	_, err = q.client.EnqueueContext(ctx, task,
		asynq.Queue(queueName),
		asynq.TaskID(jobID),
		asynq.MaxRetry(maxRetry),
		asynq.Timeout(timeout),
		asynq.Retention(retention),
	)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue %s: %w", taskType, err)
	}

	return jobID, nil
}

// EnqueueSegment starts a pipeline run under a caller-supplied job id. The
// record is flipped to PROCESSING under that id before the task exists, so a
// racing render request loses at the database and never enqueues.
func (q *Queue) EnqueueSegment(ctx context.Context, jobID string, p SegmentPayload) error {
	_, err := q.enqueue(ctx, QueueSegment, TypeSegment, jobID, p, 2*time.Minute)
	return err
}

func (q *Queue) EnqueueSpeech(ctx context.Context, p SpeechPayload) (string, error) {
	return q.enqueue(ctx, QueueSpeech, TypeSpeech, uuid.NewString(), p, 10*time.Minute)
}

func (q *Queue) EnqueueAssets(ctx context.Context, p AssetPayload) (string, error) {
	return q.enqueue(ctx, QueueAssets, TypeAssets, uuid.NewString(), p, 10*time.Minute)
}

func (q *Queue) EnqueueCompose(ctx context.Context, p ComposePayload) (string, error) {
	return q.enqueue(ctx, QueueCompose, TypeCompose, uuid.NewString(), p, 30*time.Minute)
}

func (q *Queue) EnqueueExport(ctx context.Context, p ExportPayload) (string, error) {
	return q.enqueue(ctx, QueueExport, TypeExport, uuid.NewString(), p, 30*time.Minute)
}

// JobStatus is what the queue substrate knows about one job: which stage owns
// it, its queue state, attempts so far, and the last failure reason.
type JobStatus struct {
	StageName     string
	QueueState    string
	Retried       int
	FailureReason string
}

// LookupJob scans the stage queues for the job. The substrate's own
// bookkeeping (state, retries, last error) is the diagnostic record; the
// pipeline keeps no separate error log.
func (q *Queue) LookupJob(jobID string) (*JobStatus, error) {
	for _, queueName := range AllQueues() {
		info, err := q.inspector.GetTaskInfo(queueName, jobID)
		if err != nil {
			continue // not in this queue
		}
		return &JobStatus{
			StageName:     StageName(queueName),
			QueueState:    info.State.String(),
			Retried:       info.Retried,
			FailureReason: info.LastErr,
		}, nil
	}
	return nil, fmt.Errorf("job not found: %s", jobID)
}
