package watch

import (
	"context"
	"log"
	"sync"

	"github.com/jonathan/talentflow/internal/pipeline"
	"github.com/jonathan/talentflow/internal/telemetry"
)

// ConditionKind classifies a terminal condition.
type ConditionKind string

const (
	// CondReady means the extraction artifact exists.
	CondReady ConditionKind = "ready"
	// CondFailed means the extraction job ended in failure.
	CondFailed ConditionKind = "failed"
	// CondTimeout is the soft timeout guard. It carries no new state, so the
	// consumer does not re-fetch for it.
	CondTimeout ConditionKind = "timeout"
)

// Condition is one terminal condition observed for a pipeline. Both the
// monitor and the reconciler emit these; neither applies state itself.
type Condition struct {
	PipelineID string
	Kind       ConditionKind
	Err        string
	Source     string
}

// UpdateFunc receives the canonical record after the bus re-fetches it. The
// record is nil for conditions that do not trigger a re-fetch (timeout) or
// when the re-fetch itself failed.
type UpdateFunc func(p *pipeline.Pipeline, cond Condition)

// Bus serializes terminal conditions from the push and poll liveness
// mechanisms. A single consumer performs the canonical re-fetch, so it
// happens at most once per pipeline even when both mechanisms fire -- until
// Reset, which a retry uses to arm the next condition.
type Bus struct {
	client   *Client
	onUpdate UpdateFunc

	mu      sync.Mutex
	handled map[string]bool

	ch   chan Condition
	done chan struct{}
}

// NewBus creates a bus that re-fetches through client and reports results to
// onUpdate. onUpdate may be nil.
func NewBus(client *Client, onUpdate UpdateFunc) *Bus {
	return &Bus{
		client:   client,
		onUpdate: onUpdate,
		handled:  make(map[string]bool),
		ch:       make(chan Condition, 16),
		done:     make(chan struct{}),
	}
}

// Publish submits a condition. It never blocks the emitter: if the buffer is
// full the condition is dropped, which is safe because every terminal
// condition is re-observable from the canonical record.
func (b *Bus) Publish(cond Condition) {
	select {
	case b.ch <- cond:
	default:
		log.Printf("[bus] dropping condition %s for %s (consumer backlogged)", cond.Kind, cond.PipelineID)
	}
}

// Reset re-arms the pipeline so its next terminal condition triggers a fresh
// canonical re-fetch. Called when a retry invalidates prior conditions.
func (b *Bus) Reset(pipelineID string) {
	b.mu.Lock()
	delete(b.handled, pipelineID)
	b.mu.Unlock()
}

// Run consumes conditions until ctx is cancelled. It is the only goroutine
// that performs canonical re-fetches.
func (b *Bus) Run(ctx context.Context) {
	defer close(b.done)
	for {
		select {
		case <-ctx.Done():
			return
		case cond := <-b.ch:
			b.handle(ctx, cond)
		}
	}
}

// Wait blocks until Run has returned.
func (b *Bus) Wait() {
	<-b.done
}

func (b *Bus) handle(ctx context.Context, cond Condition) {
	if cond.Kind == CondTimeout {
		// Soft guard: surface it, but there is nothing new to fetch.
		if b.onUpdate != nil {
			b.onUpdate(nil, cond)
		}
		return
	}

	b.mu.Lock()
	if b.handled[cond.PipelineID] {
		b.mu.Unlock()
		return
	}
	b.handled[cond.PipelineID] = true
	b.mu.Unlock()

	telemetry.CanonicalRefetches.Inc()
	p, err := b.client.Pipeline(ctx, cond.PipelineID)
	if err != nil {
		log.Printf("[bus] canonical re-fetch failed for %s: %v", cond.PipelineID, err)
		p = nil
	}
	if b.onUpdate != nil {
		b.onUpdate(p, cond)
	}
}
