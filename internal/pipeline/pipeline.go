// Package pipeline defines the curation pipeline aggregate and the pure
// status-transition logic shared by the HTTP server and the watch client.
package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the per-step state of a pipeline.
type Status string

const (
	StatusPending  Status = "pending"
	StatusActive   Status = "active"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

// Valid reports whether s is one of the four known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusComplete, StatusFailed:
		return true
	}
	return false
}

// Version identifies which step vocabulary a pipeline uses. The two
// vocabularies are not interchangeable; callers must go through a View
// instead of branching on key presence.
type Version string

const (
	V1 Version = "v1"
	V2 Version = "v2"
)

var (
	v1Order = []string{"extract", "generate", "keywords", "ats", "export", "save"}
	v2Order = []string{"intake", "jd", "profile", "analysis", "ats", "actions", "export"}
)

// Order returns the ordered step vocabulary for a version. The returned slice
// is a copy; callers may mutate it freely.
func Order(v Version) []string {
	var src []string
	switch v {
	case V2:
		src = v2Order
	default:
		src = v1Order
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}

// VersionOf derives the vocabulary version from a pipeline id prefix.
// Ids are minted as pl_* (v1) or pl2_* (v2).
func VersionOf(id string) Version {
	if strings.HasPrefix(id, "pl2_") {
		return V2
	}
	return V1
}

// NewID mints a pipeline id in the pl_<ms>_<suffix> / pl2_<ms>_<suffix> form.
func NewID(v Version) string {
	prefix := "pl"
	if v == V2 {
		prefix = "pl2"
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("%s_%d_%s", prefix, time.Now().UnixMilli(), suffix)
}

// Pipeline is the aggregate tracking a user's progress through the ordered
// curation steps, plus accumulated artifacts produced by external
// collaborators. The JSON shape is the wire contract; CreatedAt is epoch
// milliseconds.
type Pipeline struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	CreatedAt int64             `json:"createdAt"`
	Company   *string           `json:"company,omitempty"`
	JDID      *string           `json:"jdId,omitempty"`
	ResumeID  *string           `json:"resumeId,omitempty"`
	Statuses  map[string]Status `json:"statuses"`
	Artifacts map[string]any    `json:"artifacts,omitempty"`
}

// New creates a pipeline with every step pending except the first, which
// starts active.
func New(v Version, name string) *Pipeline {
	statuses := make(map[string]Status)
	order := Order(v)
	for _, step := range order {
		statuses[step] = StatusPending
	}
	statuses[order[0]] = StatusActive
	return &Pipeline{
		ID:        NewID(v),
		Name:      name,
		CreatedAt: time.Now().UnixMilli(),
		Statuses:  statuses,
	}
}

// Version returns the step vocabulary this pipeline uses.
func (p *Pipeline) Version() Version {
	return VersionOf(p.ID)
}

// View returns the status view joining this pipeline's statuses with its
// step vocabulary.
func (p *Pipeline) View() View {
	return NewView(p.Version(), p.Statuses)
}

// Clone returns a deep copy of the pipeline. Artifact values are shared;
// artifact keys are owned wholesale by their last writer, so sharing the
// opaque values is safe.
func (p *Pipeline) Clone() *Pipeline {
	out := *p
	out.Statuses = make(map[string]Status, len(p.Statuses))
	for k, v := range p.Statuses {
		out.Statuses[k] = v
	}
	if p.Artifacts != nil {
		out.Artifacts = make(map[string]any, len(p.Artifacts))
		for k, v := range p.Artifacts {
			out.Artifacts[k] = v
		}
	}
	return &out
}

// View joins a status map with its ordered step vocabulary.
type View struct {
	version  Version
	statuses map[string]Status
}

// NewView builds a View over statuses using the given vocabulary.
func NewView(v Version, statuses map[string]Status) View {
	return View{version: v, statuses: statuses}
}

// OrderedSteps returns the vocabulary's step names in order.
func (v View) OrderedSteps() []string {
	return Order(v.version)
}

// StatusOf returns the status of a step, defaulting to pending for steps the
// record has not written yet.
func (v View) StatusOf(step string) Status {
	if s, ok := v.statuses[step]; ok && s.Valid() {
		return s
	}
	return StatusPending
}

// ActiveStep returns the currently active step, if any.
func (v View) ActiveStep() (string, bool) {
	for _, step := range v.OrderedSteps() {
		if v.StatusOf(step) == StatusActive {
			return step, true
		}
	}
	return "", false
}

// PercentComplete reports completed steps over total, rounded down.
func (v View) PercentComplete() int {
	order := v.OrderedSteps()
	if len(order) == 0 {
		return 0
	}
	done := 0
	for _, step := range order {
		if v.StatusOf(step) == StatusComplete {
			done++
		}
	}
	return done * 100 / len(order)
}

// Summary renders a compact "step:status, ..." line for logs.
func (v View) Summary() string {
	order := v.OrderedSteps()
	parts := make([]string, 0, len(order))
	for _, step := range order {
		parts = append(parts, fmt.Sprintf("%s:%s", step, v.StatusOf(step)))
	}
	return strings.Join(parts, ", ")
}
