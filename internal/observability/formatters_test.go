package observability

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/talentflow/internal/pipeline"
	"github.com/jonathan/talentflow/internal/watch"
)

func TestPrintPipeline(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	rec := pipeline.New(pipeline.V2, "Backend Engineer")
	company := "Acme Corp"
	rec.Company = &company
	rec.Statuses["intake"] = pipeline.StatusComplete
	rec.Statuses["jd"] = pipeline.StatusActive

	p.PrintPipeline(rec)
	out := buf.String()

	assert.Contains(t, out, rec.ID)
	assert.Contains(t, out, "Backend Engineer")
	assert.Contains(t, out, "Acme Corp")
	assert.Contains(t, out, "[x] intake")
	assert.Contains(t, out, "[>] jd")
	assert.Contains(t, out, "[ ] profile")
}

func TestPrintPipeline_FailedMarker(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	rec := pipeline.New(pipeline.V2, "Doomed")
	rec.Statuses["jd"] = pipeline.StatusFailed

	p.PrintPipeline(rec)
	assert.Contains(t, buf.String(), "[!] jd")
}

func TestPrintPipeline_Nil(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintPipeline(nil)
	assert.Empty(t, buf.String())
}

func TestPrintUploadStatus(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintUploadStatus(&watch.UploadStatus{
		PipelineID: "pl2_1_aaaaaa",
		Jobs: map[string]watch.JobSnapshot{
			"jd": {ID: "j1", State: "RUNNING", Stage: "parsing", Progress: 40},
		},
		Artifacts: []string{"jd_job_id"},
	})
	out := buf.String()

	assert.Contains(t, out, "jd: RUNNING")
	assert.Contains(t, out, "parsing")
	assert.Contains(t, out, "Artifacts: jd_job_id")
}

func TestPrintCondition(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintCondition(watch.Condition{Kind: watch.CondFailed, Err: "blocked", Source: "monitor"})
	assert.Contains(t, buf.String(), "blocked")

	buf.Reset()
	p.PrintCondition(watch.Condition{Kind: watch.CondReady, Source: "reconciler"})
	assert.True(t, strings.Contains(buf.String(), "ready"))
}
