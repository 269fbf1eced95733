package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// QueueEmails is the Redis list key for email jobs.
	QueueEmails = "worker:emails"
	// QueueDLQ is the dead-letter queue for failed jobs after retries.
	QueueDLQ = "worker:dlq"
	// MaxRetries is the number of times to retry a job before moving to DLQ.
	MaxRetries = 3
	// RetryBackoff is the delay between retries.
	RetryBackoff = 10 * time.Second
)

// JobType identifies the job kind.
type JobType string

const (
	// JobTypeTransactionalEmail sends one templated email to one registration.
	JobTypeTransactionalEmail JobType = "transactional_email"
	// JobTypeBulkEmail sends a custom message to a filtered registration set.
	JobTypeBulkEmail JobType = "bulk_email"
	// JobTypeReminderSweep fans out payment reminders to pending registrations.
	JobTypeReminderSweep JobType = "reminder_sweep"
)

// TransactionalEmailPayload is the payload for transactional email jobs.
// EmailType is one of the models.EmailType* constants. Force bypasses
// the already-sent guard, for admin-triggered resends.
type TransactionalEmailPayload struct {
	EmailType      string    `json:"email_type"`
	RegistrationID uuid.UUID `json:"registration_id"`
	Force          bool      `json:"force,omitempty"`
}

// BulkEmailPayload is the payload for bulk email jobs.
type BulkEmailPayload struct {
	Filter  string `json:"filter"` // all, paid, pending
	Subject string `json:"subject"`
	Message string `json:"message"` // HTML body, {{name}} substituted per recipient
}

// Job is a generic job envelope.
type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt"`
	CreatedAt time.Time       `json:"created_at"`
}

// Queue enqueues and dequeues jobs via Redis.
type Queue struct {
	client *redis.Client
	logger *zap.Logger
}

// NewQueue creates a new Redis-backed job queue.
func NewQueue(client *redis.Client, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{client: client, logger: logger}
}

// EnqueueTransactionalEmail enqueues a templated email for one registration.
func (q *Queue) EnqueueTransactionalEmail(ctx context.Context, payload TransactionalEmailPayload) error {
	return q.enqueue(ctx, JobTypeTransactionalEmail, payload)
}

// EnqueueBulkEmail enqueues a bulk email batch.
func (q *Queue) EnqueueBulkEmail(ctx context.Context, payload BulkEmailPayload) (string, error) {
	job, err := q.newJob(JobTypeBulkEmail, payload)
	if err != nil {
		return "", err
	}
	if err := q.push(ctx, job); err != nil {
		return "", err
	}
	return job.ID, nil
}

// EnqueueReminderSweep enqueues a payment reminder sweep.
func (q *Queue) EnqueueReminderSweep(ctx context.Context) (string, error) {
	job, err := q.newJob(JobTypeReminderSweep, struct{}{})
	if err != nil {
		return "", err
	}
	if err := q.push(ctx, job); err != nil {
		return "", err
	}
	return job.ID, nil
}

func (q *Queue) enqueue(ctx context.Context, jobType JobType, payload interface{}) error {
	job, err := q.newJob(jobType, payload)
	if err != nil {
		return err
	}
	return q.push(ctx, job)
}

func (q *Queue) newJob(jobType JobType, payload interface{}) (*Job, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return &Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		Payload:   body,
		Attempt:   0,
		CreatedAt: time.Now(),
	}, nil
}

func (q *Queue) push(ctx context.Context, job *Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.RPush(ctx, QueueEmails, raw).Err(); err != nil {
		return fmt.Errorf("rpush: %w", err)
	}
	q.logger.Debug("enqueued job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
	return nil
}

// Dequeue blocks until a job is available or ctx is done.
func (q *Queue) Dequeue(ctx context.Context) (*Job, error) {
	result, err := q.client.BLPop(ctx, 0, QueueEmails).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	if len(result) < 2 {
		return nil, nil
	}
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		q.logger.Warn("invalid job payload", zap.String("raw", result[1]), zap.Error(err))
		return nil, nil
	}
	return &job, nil
}

// Retry re-enqueues a job with incremented attempt. If attempt >= MaxRetries, pushes to DLQ instead.
func (q *Queue) Retry(ctx context.Context, job *Job) error {
	job.Attempt++
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if job.Attempt >= MaxRetries {
		if err := q.client.RPush(ctx, QueueDLQ, raw).Err(); err != nil {
			q.logger.Error("dlq push failed", zap.Error(err), zap.String("job_id", job.ID))
			return err
		}
		q.logger.Warn("job moved to DLQ", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
		return nil
	}
	if err := q.client.RPush(ctx, QueueEmails, raw).Err(); err != nil {
		return err
	}
	q.logger.Info("job retried", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
	return nil
}
