package watch

import (
	"context"
	"errors"
	"sync"
)

// ErrRetryInFlight is returned when a retry is already running for the
// pipeline; only one outbound retry request is allowed at a time.
var ErrRetryInFlight = errors.New("retry already in flight for pipeline")

// RetryController issues extraction retries with a per-pipeline in-flight
// guard. Local failed/timeout flags are cleared optimistically before the
// request and restored if it fails; the bus is re-armed on success so the
// retried job's terminal condition triggers a fresh canonical re-fetch.
type RetryController struct {
	client *Client
	bus    *Bus

	mu       sync.Mutex
	inFlight map[string]bool
}

// NewRetryController creates a controller over client and bus.
func NewRetryController(client *Client, bus *Bus) *RetryController {
	return &RetryController{
		client:   client,
		bus:      bus,
		inFlight: make(map[string]bool),
	}
}

// Retry re-enqueues the extraction job for the pipeline. monitor may be nil
// when no subscription is running.
func (rc *RetryController) Retry(ctx context.Context, pipelineID string, monitor *Monitor) (*RetryResult, error) {
	rc.mu.Lock()
	if rc.inFlight[pipelineID] {
		rc.mu.Unlock()
		return nil, ErrRetryInFlight
	}
	rc.inFlight[pipelineID] = true
	rc.mu.Unlock()

	defer func() {
		rc.mu.Lock()
		delete(rc.inFlight, pipelineID)
		rc.mu.Unlock()
	}()

	var prior monitorFlags
	if monitor != nil {
		prior = monitor.flagsSnapshot()
		monitor.clearFlags()
	}

	res, err := rc.client.RetryExtraction(ctx, pipelineID)
	if err != nil {
		// The retry never happened; the previous failure stands.
		if monitor != nil {
			monitor.restoreFlags(prior)
		}
		return nil, err
	}

	rc.bus.Reset(pipelineID)
	return res, nil
}
