// Package store provides persistence for pipeline records.
package store

import (
	"context"
	"errors"

	"github.com/jonathan/talentflow/internal/pipeline"
)

// ErrNotFound is returned when no pipeline exists for the given id.
var ErrNotFound = errors.New("pipeline not found")

// Patch is a partial update against a pipeline record. Nil fields are left
// untouched. Statuses merge key-wise; Artifacts merge shallowly with
// last-writer-wins per key (see pipeline.MergeArtifacts).
//
// There is no version token: concurrent patches from two sessions resolve as
// last write wins at the field level. Known open risk, documented in
// DESIGN.md.
type Patch struct {
	Name      *string
	Company   *string
	JDID      *string
	ResumeID  *string
	Statuses  map[string]pipeline.Status
	Artifacts map[string]any
}

// Empty reports whether the patch carries no changes.
func (p Patch) Empty() bool {
	return p.Name == nil && p.Company == nil && p.JDID == nil && p.ResumeID == nil &&
		len(p.Statuses) == 0 && len(p.Artifacts) == 0
}

// Store is the persistence boundary for pipeline records.
type Store interface {
	Create(ctx context.Context, p *pipeline.Pipeline) error
	Get(ctx context.Context, id string) (*pipeline.Pipeline, error)
	List(ctx context.Context) ([]*pipeline.Pipeline, error)
	Patch(ctx context.Context, id string, patch Patch) (*pipeline.Pipeline, error)
	Delete(ctx context.Context, id string) error
}

// apply merges a patch into a pipeline copy. Shared by implementations so the
// merge semantics cannot drift between them.
func apply(p *pipeline.Pipeline, patch Patch) *pipeline.Pipeline {
	out := p.Clone()
	if patch.Name != nil {
		out.Name = *patch.Name
	}
	if patch.Company != nil {
		out.Company = patch.Company
	}
	if patch.JDID != nil {
		out.JDID = patch.JDID
	}
	if patch.ResumeID != nil {
		out.ResumeID = patch.ResumeID
	}
	if len(patch.Statuses) > 0 {
		out.Statuses = pipeline.MergeStatuses(out.Statuses, patch.Statuses)
	}
	if len(patch.Artifacts) > 0 {
		out.Artifacts = pipeline.MergeArtifacts(out.Artifacts, patch.Artifacts)
	}
	return out
}
