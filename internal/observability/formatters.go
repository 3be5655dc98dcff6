// Package observability provides formatted output utilities for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/talentflow/internal/pipeline"
	"github.com/jonathan/talentflow/internal/watch"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
)

// Printer handles formatted output for the watch and retry commands
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// stepMarker maps a step status to its one-character list marker.
func stepMarker(s pipeline.Status) string {
	switch s {
	case pipeline.StatusComplete:
		return "x"
	case pipeline.StatusActive:
		return ">"
	case pipeline.StatusFailed:
		return "!"
	}
	return " "
}

// PrintPipeline outputs a human-readable summary of a pipeline record.
func (p *Printer) PrintPipeline(rec *pipeline.Pipeline) {
	if rec == nil {
		return
	}

	view := rec.View()
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Name:     %s\n", rec.Name))
	if rec.Company != nil {
		sb.WriteString(fmt.Sprintf("Company:  %s\n", *rec.Company))
	}
	sb.WriteString(fmt.Sprintf("Progress: %d%%\n", view.PercentComplete()))
	sb.WriteString("\n")

	for _, step := range view.OrderedSteps() {
		sb.WriteString(fmt.Sprintf("[%s] %s\n", stepMarker(view.StatusOf(step)), step))
	}

	p.printBox(rec.ID, strings.TrimRight(sb.String(), "\n"))
}

// PrintUploadStatus outputs the background job snapshot for a pipeline.
func (p *Printer) PrintUploadStatus(snap *watch.UploadStatus) {
	if snap == nil {
		return
	}

	var sb strings.Builder
	if len(snap.Jobs) == 0 {
		sb.WriteString("No background jobs\n")
	}
	for kind, job := range snap.Jobs {
		sb.WriteString(fmt.Sprintf("%s: %s", kind, job.State))
		if job.Stage != "" {
			sb.WriteString(fmt.Sprintf(" (%s, %d%%)", job.Stage, job.Progress))
		}
		if job.Error != "" {
			sb.WriteString(fmt.Sprintf(" - %s", job.Error))
		}
		sb.WriteString("\n")
	}
	if len(snap.Artifacts) > 0 {
		sb.WriteString(fmt.Sprintf("\nArtifacts: %s\n", strings.Join(snap.Artifacts, ", ")))
	}

	p.printBox("Upload status", strings.TrimRight(sb.String(), "\n"))
}

// PrintCondition outputs a terminal condition as a single line.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintCondition(cond watch.Condition) {
	switch cond.Kind {
	case watch.CondReady:
		fmt.Fprintf(p.out, "extraction ready (reported by %s)\n", cond.Source)
	case watch.CondFailed:
		fmt.Fprintf(p.out, "extraction failed (%s): %s\n", cond.Source, cond.Err)
	case watch.CondTimeout:
		fmt.Fprintf(p.out, "still waiting: %s\n", cond.Err)
	}
}
