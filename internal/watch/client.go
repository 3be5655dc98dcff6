// Package watch is the client side of the pipeline tracker: a typed HTTP
// client, an SSE monitor for extraction progress, a polling reconciler
// backstop, and the retry controller. The monitor and the reconciler never
// apply state themselves; they emit terminal conditions onto a Bus whose
// single consumer re-fetches the canonical record.
package watch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jonathan/talentflow/internal/jobs"
	"github.com/jonathan/talentflow/internal/pipeline"
)

// Client is a typed HTTP client for the pipeline REST surface.
type Client struct {
	baseURL string
	http    *http.Client
	// stream requests hold the response open; they get a client with no
	// overall timeout and rely on context cancellation instead.
	streamHTTP *http.Client
}

// NewClient creates a client for the API at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       &http.Client{Timeout: 15 * time.Second},
		streamHTTP: &http.Client{},
	}
}

// apiError is the server's error envelope.
type apiError struct {
	Err string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var ae apiError
		if json.NewDecoder(resp.Body).Decode(&ae) == nil && ae.Err != "" {
			return fmt.Errorf("%s %s: %s (HTTP %d)", method, path, ae.Err, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: HTTP %d", method, path, resp.StatusCode)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Pipeline fetches the canonical pipeline record.
func (c *Client) Pipeline(ctx context.Context, id string) (*pipeline.Pipeline, error) {
	var p pipeline.Pipeline
	if err := c.do(ctx, http.MethodGet, "/pipelines/"+id, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// PatchRequest is a partial pipeline update.
type PatchRequest struct {
	Name      *string                    `json:"name,omitempty"`
	Company   *string                    `json:"company,omitempty"`
	JDID      *string                    `json:"jdId,omitempty"`
	ResumeID  *string                    `json:"resumeId,omitempty"`
	Statuses  map[string]pipeline.Status `json:"statuses,omitempty"`
	Artifacts map[string]any             `json:"artifacts,omitempty"`
}

// PatchPipeline applies a partial update and returns the merged record.
func (c *Client) PatchPipeline(ctx context.Context, id string, patch PatchRequest) (*pipeline.Pipeline, error) {
	var p pipeline.Pipeline
	if err := c.do(ctx, http.MethodPatch, "/pipelines/"+id, patch, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// CompleteStep marks a step complete and advances the next step to active,
// then persists the full normalized status map.
func (c *Client) CompleteStep(ctx context.Context, id, step string) (*pipeline.Pipeline, error) {
	p, err := c.Pipeline(ctx, id)
	if err != nil {
		return nil, err
	}
	order := pipeline.Order(pipeline.VersionOf(p.ID))
	statuses := pipeline.AdvanceOnCompletion(p.Statuses, order, step)
	return c.PatchPipeline(ctx, id, PatchRequest{Statuses: statuses})
}

// RetryResult is the server's response to a retry request.
type RetryResult struct {
	JobID    string             `json:"jobId"`
	Pipeline *pipeline.Pipeline `json:"pipeline"`
}

// RetryExtraction re-enqueues the extraction job for the pipeline.
func (c *Client) RetryExtraction(ctx context.Context, id string) (*RetryResult, error) {
	var res RetryResult
	if err := c.do(ctx, http.MethodPost, "/pipelines/"+id+"/jd/retry", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// JobSnapshot is the per-job view in an upload-status response.
type JobSnapshot struct {
	ID       string     `json:"id"`
	State    jobs.State `json:"state"`
	Stage    string     `json:"stage,omitempty"`
	Progress int        `json:"progress,omitempty"`
	Error    string     `json:"error,omitempty"`
}

// UploadStatus is a point-in-time snapshot of a pipeline's background jobs
// and existing artifacts.
type UploadStatus struct {
	PipelineID string                 `json:"pipelineId"`
	Jobs       map[string]JobSnapshot `json:"jobs"`
	Artifacts  []string               `json:"artifacts"`
}

// HasArtifact reports whether the snapshot lists the artifact key.
func (u *UploadStatus) HasArtifact(key string) bool {
	for _, k := range u.Artifacts {
		if k == key {
			return true
		}
	}
	return false
}

// FetchUploadStatus fetches the upload-status snapshot for the pipeline.
func (c *Client) FetchUploadStatus(ctx context.Context, id string) (*UploadStatus, error) {
	var us UploadStatus
	if err := c.do(ctx, http.MethodGet, "/pipelines/"+id+"/upload-status", nil, &us); err != nil {
		return nil, err
	}
	return &us, nil
}

// openStream opens the SSE stream for the pipeline's extraction progress.
// The caller owns the returned body and must close it.
func (c *Client) openStream(ctx context.Context, id string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/pipelines/"+id+"/jd/stream", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamHTTP.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("stream open: HTTP %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		resp.Body.Close()
		return nil, fmt.Errorf("stream open: unexpected content type %q", ct)
	}
	return resp.Body, nil
}
