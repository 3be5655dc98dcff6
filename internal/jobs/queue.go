package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	queueKey  = "tf:jd:queue"
	jobPrefix = "tf:jd:job:"

	// job records expire a day after their last update
	jobTTL = 24 * time.Hour
)

// Queue stores extraction job records and the pending-job list in Redis.
type Queue struct {
	client *redis.Client
}

// NewQueue wraps an existing Redis client.
func NewQueue(client *redis.Client) *Queue {
	return &Queue{client: client}
}

// Connect dials Redis and verifies the connection.
func Connect(ctx context.Context, addr, password string, db int) (*Queue, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return &Queue{client: client}, nil
}

// Close releases the underlying Redis connection.
func (q *Queue) Close() error {
	return q.client.Close()
}

func jobKey(jobID string) string {
	return jobPrefix + jobID
}

// Enqueue creates a PENDING job record for a pipeline's extraction and pushes
// its id onto the queue. Returns the new job id.
func (q *Queue) Enqueue(ctx context.Context, pipelineID, url string) (string, error) {
	now := time.Now().Unix()
	job := Job{
		ID:         strings.ReplaceAll(uuid.NewString(), "-", ""),
		PipelineID: pipelineID,
		URL:        url,
		State:      StatePending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("failed to marshal job: %w", err)
	}

	pipe := q.client.TxPipeline()
	pipe.Set(ctx, jobKey(job.ID), payload, jobTTL)
	pipe.RPush(ctx, queueKey, job.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("failed to enqueue job: %w", err)
	}
	return job.ID, nil
}

// Job retrieves a job record by id. Returns nil without error when the record
// does not exist or has expired.
func (q *Queue) Job(ctx context.Context, jobID string) (*Job, error) {
	raw, err := q.client.Get(ctx, jobKey(jobID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job %s: %w", jobID, err)
	}
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return nil, fmt.Errorf("failed to decode job %s: %w", jobID, err)
	}
	return &job, nil
}

// Next blocks up to timeout for the next queued job id and loads its record.
// Returns nil without error when the wait times out. Intended for the
// external worker loop.
func (q *Queue) Next(ctx context.Context, timeout time.Duration) (*Job, error) {
	res, err := q.client.BLPop(ctx, timeout, queueKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pop job: %w", err)
	}
	// res[0] is the queue key, res[1] the job id
	return q.Job(ctx, res[1])
}

// Length returns how many jobs are waiting ahead in the queue.
func (q *Queue) Length(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, queueKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read queue length: %w", err)
	}
	return n, nil
}

// MarkRunning transitions a job to RUNNING with the worker's current stage
// and progress percentage.
func (q *Queue) MarkRunning(ctx context.Context, jobID, stage string, progress int) error {
	return q.update(ctx, jobID, func(j *Job) {
		j.State = StateRunning
		j.Stage = stage
		j.Progress = progress
	})
}

// MarkSucceeded transitions a job to SUCCESS.
func (q *Queue) MarkSucceeded(ctx context.Context, jobID string) error {
	return q.update(ctx, jobID, func(j *Job) {
		j.State = StateSuccess
		j.Progress = 100
	})
}

// MarkFailed transitions a job to FAILURE with the worker's error text.
func (q *Queue) MarkFailed(ctx context.Context, jobID, errText string) error {
	return q.update(ctx, jobID, func(j *Job) {
		j.State = StateFailure
		j.Error = errText
	})
}

// MarkRevoked transitions a job to REVOKED (cancelled before completion).
func (q *Queue) MarkRevoked(ctx context.Context, jobID string) error {
	return q.update(ctx, jobID, func(j *Job) {
		j.State = StateRevoked
	})
}

func (q *Queue) update(ctx context.Context, jobID string, mutate func(*Job)) error {
	job, err := q.Job(ctx, jobID)
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("job not found: %s", jobID)
	}
	mutate(job)
	job.UpdatedAt = time.Now().Unix()

	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	if err := q.client.Set(ctx, jobKey(jobID), payload, jobTTL).Err(); err != nil {
		return fmt.Errorf("failed to update job %s: %w", jobID, err)
	}
	return nil
}
