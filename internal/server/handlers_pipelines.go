package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/jonathan/talentflow/internal/pipeline"
	"github.com/jonathan/talentflow/internal/schemas"
	"github.com/jonathan/talentflow/internal/store"
	"github.com/jonathan/talentflow/internal/telemetry"
)

// manualPrefix marks a jdId that carries pasted job posting text instead of a
// URL. The manual-fallback path skips the background extraction entirely.
const manualPrefix = "manual:"

// PipelineCreateRequest is the POST /pipelines body
type PipelineCreateRequest struct {
	Name     string `json:"name" validate:"required"`
	Company  string `json:"company,omitempty"`
	JDID     string `json:"jdId,omitempty"`
	ResumeID string `json:"resumeId,omitempty"`
	Version  string `json:"version,omitempty" validate:"omitempty,oneof=v1 v2"`
}

// handleCreatePipeline creates a pipeline and, for a v2 pipeline with a job
// posting URL, enqueues the background extraction job.
func (s *Server) handleCreatePipeline(w http.ResponseWriter, r *http.Request) {
	var req PipelineCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	version := pipeline.V2
	if req.Version == "v1" {
		version = pipeline.V1
	}

	p := pipeline.New(version, req.Name)
	if req.Company != "" {
		p.Company = &req.Company
	}
	if req.JDID != "" {
		p.JDID = &req.JDID
	}
	if req.ResumeID != "" {
		p.ResumeID = &req.ResumeID
	}

	if version == pipeline.V2 {
		// Intake finishes at creation: the user has named the pipeline and
		// handed over its inputs.
		p.Statuses["intake"] = pipeline.StatusComplete

		switch {
		case strings.HasPrefix(req.JDID, manualPrefix):
			// Pasted text needs no extraction job.
			p.Artifacts = pipeline.MergeArtifacts(p.Artifacts, map[string]any{
				"jd": map[string]any{
					"url":         "manual",
					"title":       req.Name,
					"description": strings.TrimPrefix(req.JDID, manualPrefix),
					"source":      "user_input",
				},
			})
			p.Statuses["jd"] = pipeline.StatusComplete
		case req.JDID != "":
			jobID, err := s.jobs.Enqueue(r.Context(), p.ID, req.JDID)
			if err != nil {
				// Best-effort: the pipeline still renders; retry can re-queue.
				log.Printf("[pipelines] enqueue failed for %s: %v", p.ID, err)
			} else {
				telemetry.JobsEnqueued.Inc()
				p.Artifacts = pipeline.MergeArtifacts(p.Artifacts, map[string]any{"jd_job_id": jobID})
			}
			p.Statuses["jd"] = pipeline.StatusPending
		}
		p.Statuses = pipeline.EnsureSingleActive(pipeline.Order(version), p.Statuses)
	}

	if err := validateContract(p); err != nil {
		log.Printf("[pipelines] contract violation on create: %v", err)
		s.errorResponse(w, http.StatusInternalServerError, "pipeline contract violation")
		return
	}

	if err := s.store.Create(r.Context(), p); err != nil {
		s.storeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, p)
}

// handleListPipelines returns all pipelines, newest first.
func (s *Server) handleListPipelines(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.List(r.Context())
	if err != nil {
		s.storeError(w, err)
		return
	}
	if items == nil {
		items = []*pipeline.Pipeline{}
	}
	s.jsonResponse(w, http.StatusOK, items)
}

// handleGetPipeline returns the canonical record. This is the re-fetch point
// clients hit after any terminal signal.
func (s *Server) handleGetPipeline(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, p)
}

// PipelinePatchRequest is the PATCH /pipelines/{id} body. All fields are
// optional; statuses and artifacts are partial maps merged into the record.
type PipelinePatchRequest struct {
	Name      *string                    `json:"name"`
	Company   *string                    `json:"company"`
	JDID      *string                    `json:"jdId"`
	ResumeID  *string                    `json:"resumeId"`
	Statuses  map[string]pipeline.Status `json:"statuses"`
	Artifacts map[string]any             `json:"artifacts"`
}

// handlePatchPipeline applies a partial update and echoes the merged record.
func (s *Server) handlePatchPipeline(w http.ResponseWriter, r *http.Request) {
	var req PipelinePatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	for step, status := range req.Statuses {
		if !status.Valid() {
			s.errorResponse(w, http.StatusBadRequest,
				(&ErrValidation{Field: "statuses." + step, Message: "unknown status"}).Error())
			return
		}
	}

	merged, err := s.store.Patch(r.Context(), r.PathValue("id"), store.Patch{
		Name:      req.Name,
		Company:   req.Company,
		JDID:      req.JDID,
		ResumeID:  req.ResumeID,
		Statuses:  req.Statuses,
		Artifacts: req.Artifacts,
	})
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, merged)
}

// handleDeletePipeline removes a pipeline record.
func (s *Server) handleDeletePipeline(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.storeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]bool{"ok": true})
}

// validateContract checks the record against the pipeline JSON contract.
func validateContract(p *pipeline.Pipeline) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return schemas.ValidatePipeline(string(doc))
}
