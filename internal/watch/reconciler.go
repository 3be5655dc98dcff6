package watch

import (
	"context"
	"log"
	"time"

	"github.com/jonathan/talentflow/internal/jobs"
	"github.com/jonathan/talentflow/internal/telemetry"
)

const (
	defaultPollInterval = time.Second
	defaultMaxAttempts  = 120
)

// Reconciler is the polling backstop for the push subscription. It reads the
// upload-status snapshot on an interval and emits the same terminal
// conditions the monitor does; the bus dedupes when both fire.
type Reconciler struct {
	client *Client
	bus    *Bus

	// Interval and MaxAttempts bound the poll loop.
	Interval    time.Duration
	MaxAttempts int
}

// NewReconciler creates a reconciler with the default 1s/120-attempt budget.
func NewReconciler(client *Client, bus *Bus) *Reconciler {
	return &Reconciler{
		client:      client,
		bus:         bus,
		Interval:    defaultPollInterval,
		MaxAttempts: defaultMaxAttempts,
	}
}

// Poll watches the pipeline until a terminal condition or the attempt budget
// runs out. Exhaustion is a soft timeout, not an error: the job may still
// finish after we stop watching.
func (r *Reconciler) Poll(ctx context.Context, pipelineID string) error {
	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	for attempt := 1; attempt <= r.MaxAttempts; attempt++ {
		telemetry.PollAttempts.Inc()

		snap, err := r.client.FetchUploadStatus(ctx, pipelineID)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// Transient; the next attempt retries.
			log.Printf("[reconciler] snapshot failed for %s: %v", pipelineID, err)
		} else if done := r.inspect(pipelineID, snap); done {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}

	r.bus.Publish(Condition{
		PipelineID: pipelineID,
		Kind:       CondTimeout,
		Err:        "monitoring failed: extraction did not finish in time",
		Source:     "reconciler",
	})
	return nil
}

// inspect emits a terminal condition for the snapshot if one is visible.
func (r *Reconciler) inspect(pipelineID string, snap *UploadStatus) bool {
	var failed *JobSnapshot
	succeeded := false
	pending := false
	for kind := range snap.Jobs {
		job := snap.Jobs[kind]
		switch job.State {
		case jobs.StateSuccess:
			succeeded = true
		case jobs.StateFailure, jobs.StateRevoked:
			failed = &job
		default:
			pending = true
		}
	}

	if failed != nil {
		errText := failed.Error
		if errText == "" {
			errText = "extraction job " + string(failed.State)
		}
		r.bus.Publish(Condition{PipelineID: pipelineID, Kind: CondFailed, Err: errText, Source: "reconciler"})
		return true
	}
	if succeeded {
		// The worker finished; the artifact lands with its final write.
		r.bus.Publish(Condition{PipelineID: pipelineID, Kind: CondReady, Source: "reconciler"})
		return true
	}
	// The artifact alone is not enough while any tracked job is still
	// pending or running; keep polling until the jobs settle.
	if !pending && snap.HasArtifact("jd") {
		r.bus.Publish(Condition{PipelineID: pipelineID, Kind: CondReady, Source: "reconciler"})
		return true
	}
	return false
}
