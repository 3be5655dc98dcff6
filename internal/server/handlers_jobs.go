package server

import (
	"log"
	"net/http"
	"strings"

	"github.com/jonathan/talentflow/internal/jobs"
	"github.com/jonathan/talentflow/internal/pipeline"
	"github.com/jonathan/talentflow/internal/store"
	"github.com/jonathan/talentflow/internal/telemetry"
)

// jobArtifactKeys maps the upload kinds reported by /upload-status to the
// artifact key holding their job id.
var jobArtifactKeys = map[string]string{
	"jd":           "jd_job_id",
	"resume_parse": "resume_job_id",
}

// jobSnapshot is the per-job view returned by the upload-status endpoint.
type jobSnapshot struct {
	ID       string     `json:"id"`
	State    jobs.State `json:"state"`
	Stage    string     `json:"stage,omitempty"`
	Progress int        `json:"progress,omitempty"`
	Error    string     `json:"error,omitempty"`
}

// handleUploadStatus returns a point-in-time snapshot of the pipeline's
// background jobs and which artifacts exist. One round trip covers what the
// stream would otherwise deliver incrementally.
func (s *Server) handleUploadStatus(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.storeError(w, err)
		return
	}

	snapshots := map[string]jobSnapshot{}
	for kind, artifactKey := range jobArtifactKeys {
		jobID, ok := p.Artifacts[artifactKey].(string)
		if !ok || jobID == "" {
			continue
		}
		job, err := s.jobs.Job(r.Context(), jobID)
		if err != nil {
			log.Printf("[upload-status] job lookup failed for %s: %v", jobID, err)
			continue
		}
		if job == nil {
			// Expired from Redis; report the id so the client can decide.
			snapshots[kind] = jobSnapshot{ID: jobID, State: jobs.StatePending}
			continue
		}
		snapshots[kind] = jobSnapshot{
			ID:       job.ID,
			State:    job.State,
			Stage:    job.Stage,
			Progress: job.Progress,
			Error:    job.Error,
		}
	}

	artifacts := make([]string, 0, len(p.Artifacts))
	for key := range p.Artifacts {
		artifacts = append(artifacts, key)
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"pipelineId": p.ID,
		"jobs":       snapshots,
		"artifacts":  artifacts,
	})
}

// handleRetry re-enqueues the extraction job for a pipeline whose previous
// attempt failed or stalled. The jd step drops back to pending and the new
// job id replaces the old one.
func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	p, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.storeError(w, err)
		return
	}

	if p.JDID == nil || *p.JDID == "" || strings.HasPrefix(*p.JDID, manualPrefix) {
		retryErr := &ErrMissingJobURL{ID: id}
		s.errorResponse(w, HTTPStatus(retryErr), retryErr.Error())
		return
	}

	jobID, err := s.jobs.Enqueue(r.Context(), p.ID, *p.JDID)
	if err != nil {
		log.Printf("[retry] enqueue failed for %s: %v", id, err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to enqueue extraction job")
		return
	}
	telemetry.JobsEnqueued.Inc()
	telemetry.RetriesIssued.Inc()

	order := pipeline.Order(pipeline.VersionOf(p.ID))
	statuses := pipeline.MergeStatuses(p.Statuses, map[string]pipeline.Status{
		"jd": pipeline.StatusPending,
	})
	statuses = pipeline.EnsureSingleActive(order, statuses)

	merged, err := s.store.Patch(r.Context(), id, store.Patch{
		Statuses:  statuses,
		Artifacts: map[string]any{"jd_job_id": jobID},
	})
	if err != nil {
		s.storeError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"jobId":    jobID,
		"pipeline": merged,
	})
}
