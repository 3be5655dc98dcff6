package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testQueue(t *testing.T) *Queue {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewQueue(client)
}

func TestEnqueueAndFetch(t *testing.T) {
	q := testQueue(t)
	ctx := context.Background()

	jobID, err := q.Enqueue(ctx, "pl2_1700000000000_ab12cd", "https://example.com/job")
	require.NoError(t, err)
	require.NotEmpty(t, jobID)

	job, err := q.Job(ctx, jobID)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, StatePending, job.State)
	assert.Equal(t, "pl2_1700000000000_ab12cd", job.PipelineID)
	assert.Equal(t, "https://example.com/job", job.URL)
	assert.False(t, job.State.Terminal())

	n, err := q.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestJob_MissingReturnsNil(t *testing.T) {
	q := testQueue(t)

	job, err := q.Job(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestNext_DrainsQueueInOrder(t *testing.T) {
	q := testQueue(t)
	ctx := context.Background()

	first, err := q.Enqueue(ctx, "pl2_a", "https://example.com/a")
	require.NoError(t, err)
	second, err := q.Enqueue(ctx, "pl2_b", "https://example.com/b")
	require.NoError(t, err)

	got, err := q.Next(ctx, 100*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, first, got.ID)

	got, err = q.Next(ctx, 100*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, second, got.ID)
}

func TestStateTransitions(t *testing.T) {
	q := testQueue(t)
	ctx := context.Background()

	jobID, err := q.Enqueue(ctx, "pl2_a", "https://example.com/a")
	require.NoError(t, err)

	require.NoError(t, q.MarkRunning(ctx, jobID, "fetching", 10))
	job, err := q.Job(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, StateRunning, job.State)
	assert.Equal(t, "fetching", job.Stage)
	assert.Equal(t, 10, job.Progress)

	require.NoError(t, q.MarkSucceeded(ctx, jobID))
	job, err = q.Job(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, StateSuccess, job.State)
	assert.Equal(t, 100, job.Progress)
	assert.True(t, job.State.Terminal())
}

func TestMarkFailed_KeepsErrorText(t *testing.T) {
	q := testQueue(t)
	ctx := context.Background()

	jobID, err := q.Enqueue(ctx, "pl2_a", "https://example.com/a")
	require.NoError(t, err)

	require.NoError(t, q.MarkFailed(ctx, jobID, "blocked_or_not_found: captcha (http 403)"))
	job, err := q.Job(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, StateFailure, job.State)
	assert.Equal(t, "blocked_or_not_found: captcha (http 403)", job.Error)
}

func TestMarkRunning_MissingJob(t *testing.T) {
	q := testQueue(t)

	err := q.MarkRunning(context.Background(), "missing", "fetching", 0)
	assert.Error(t, err)
}

func TestEstimate(t *testing.T) {
	msg, eta := Estimate(nil, 0)
	assert.Equal(t, "Preparing job…", msg)
	assert.Equal(t, 10, eta)

	msg, eta = Estimate(&Job{State: StatePending}, 2)
	assert.Contains(t, msg, "Queued (2 ahead)")
	assert.Equal(t, 11, eta)

	// queue estimate caps at 45s
	_, eta = Estimate(&Job{State: StatePending}, 100)
	assert.Equal(t, 45, eta)

	msg, eta = Estimate(&Job{State: StateRunning, Stage: "extracting", UpdatedAt: time.Now().Unix()}, 0)
	assert.Contains(t, msg, "extracting")
	assert.GreaterOrEqual(t, eta, 5)

	msg, eta = Estimate(&Job{State: StateFailure, Error: "http_500"}, 0)
	assert.Equal(t, "Failed: http_500", msg)
	assert.Equal(t, 0, eta)

	_, eta = Estimate(&Job{State: StateSuccess}, 0)
	assert.Equal(t, 1, eta)
}
