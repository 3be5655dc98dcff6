package server

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/jonathan/talentflow/internal/jobs"
	"github.com/jonathan/talentflow/internal/store"
	"github.com/jonathan/talentflow/internal/telemetry"
)

// streamPollInterval is how often the stream re-reads the store while waiting
// for the extraction artifact.
const streamPollInterval = time.Second

// handleStream streams extraction progress for a pipeline as SSE until a
// terminal event or the soft timeout.
//
// Event contract:
//
//	status    {message, etaSeconds}  progress estimate, sent when it changes
//	ready     {ready: true}          the jd artifact exists; re-fetch the record
//	failed    {error}                the extraction job ended FAILURE/REVOKED
//	timeout   {timeout: true}        soft guard fired; the job may still finish
//	keepalive {}                     transport heartbeat
//
// ready/failed/timeout close the stream. Payloads are advisory: clients are
// expected to GET the pipeline afterwards for the canonical state.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	telemetry.StreamConnects.Inc()

	ctx := r.Context()
	lastStatus := ""

	// check reads the current state and emits at most one event. It reports
	// whether the stream is finished.
	check := func() bool {
		p, err := s.store.Get(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			sse.WriteEvent("error", map[string]string{"error": "not_found"})
			return true
		}
		if err != nil {
			// Transient store failure; the next tick retries.
			log.Printf("[stream] read failed for %s: %v", id, err)
			return false
		}

		if _, ok := p.Artifacts["jd"]; ok {
			sse.WriteReady()
			return true
		}

		var job *jobs.Job
		if jobID, ok := p.Artifacts["jd_job_id"].(string); ok && jobID != "" {
			job, err = s.jobs.Job(ctx, jobID)
			if err != nil {
				log.Printf("[stream] job lookup failed for %s: %v", id, err)
			}
		}

		if job != nil && job.State.Terminal() && job.State != jobs.StateSuccess {
			errText := job.Error
			if errText == "" {
				errText = "extraction failed"
			}
			sse.WriteFailed(errText)
			return true
		}

		queueLen, _ := s.jobs.Length(ctx)
		msg, eta := jobs.Estimate(job, queueLen)
		if msg != lastStatus {
			lastStatus = msg
			payload := map[string]any{"message": msg, "etaSeconds": eta}
			if job != nil {
				if job.Stage != "" {
					payload["stage"] = job.Stage
				}
				payload["progress"] = job.Progress
			}
			sse.WriteEvent("status", payload)
		} else {
			sse.WriteKeepalive()
		}
		return false
	}

	if check() {
		return
	}

	ticker := time.NewTicker(streamPollInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(s.streamTimeout)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			sse.WriteTimeout()
			return
		case <-ticker.C:
			if check() {
				return
			}
		}
	}
}
