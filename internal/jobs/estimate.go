package jobs

import (
	"fmt"
	"time"
)

// Estimate returns a user-facing message and a rough remaining-seconds guess
// for a job, based on its state and the current queue length. The numbers are
// a feedback heuristic, not a promise.
func Estimate(job *Job, queueLen int64) (string, int) {
	if job == nil {
		return "Preparing job…", 10
	}
	switch job.State {
	case StatePending:
		eta := 5 + int(queueLen)*3
		if eta > 45 {
			eta = 45
		}
		return fmt.Sprintf("Queued (%d ahead). ~%ds remaining", queueLen, eta), eta
	case StateRunning:
		// Fetch + extract + normalize lands around 20s total.
		elapsed := time.Now().Unix() - job.UpdatedAt
		if elapsed < 0 {
			elapsed = 0
		}
		eta := 20 - int(elapsed)
		if eta < 5 {
			eta = 5
		}
		msg := fmt.Sprintf("Processing job posting (fetching and extracting)… ~%ds", eta)
		if job.Stage != "" {
			msg = fmt.Sprintf("Processing job posting (%s)… ~%ds", job.Stage, eta)
		}
		return msg, eta
	case StateSuccess:
		return "Finalizing…", 1
	case StateFailure:
		return fmt.Sprintf("Failed: %s", job.Error), 0
	case StateRevoked:
		return "Cancelled", 0
	}
	return "Preparing job…", 10
}
