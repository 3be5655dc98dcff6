// Package jobs tracks background extraction jobs in Redis. The jobs
// themselves run in an external worker; this package owns only the queue and
// the observable status record.
package jobs

// State is the lifecycle state of an extraction job as reported by the
// worker.
type State string

const (
	StatePending State = "PENDING"
	StateRunning State = "RUNNING"
	StateSuccess State = "SUCCESS"
	StateFailure State = "FAILURE"
	StateRevoked State = "REVOKED"
)

// Terminal reports whether the job has finished and will never change state
// again.
func (s State) Terminal() bool {
	switch s {
	case StateSuccess, StateFailure, StateRevoked:
		return true
	}
	return false
}

// Job is the observable record for one background extraction job.
type Job struct {
	ID         string `json:"id"`
	PipelineID string `json:"pipeline_id"`
	URL        string `json:"url"`
	State      State  `json:"state"`
	Stage      string `json:"stage,omitempty"`
	Progress   int    `json:"progress,omitempty"`
	Error      string `json:"error,omitempty"`
	CreatedAt  int64  `json:"created_at"`
	UpdatedAt  int64  `json:"updated_at"`
}
