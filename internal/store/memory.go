package store

import (
	"context"
	"sort"
	"sync"

	"github.com/jonathan/talentflow/internal/pipeline"
)

// Memory is an in-process Store used by tests and dev mode. It applies the
// same patch semantics as the Postgres implementation.
type Memory struct {
	mu        sync.RWMutex
	pipelines map[string]*pipeline.Pipeline
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{pipelines: make(map[string]*pipeline.Pipeline)}
}

// Create inserts a new pipeline record.
func (s *Memory) Create(_ context.Context, p *pipeline.Pipeline) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pipelines[p.ID] = p.Clone()
	return nil
}

// Get retrieves a pipeline by id, or ErrNotFound.
func (s *Memory) Get(_ context.Context, id string) (*pipeline.Pipeline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pipelines[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p.Clone(), nil
}

// List retrieves all pipelines, newest first.
func (s *Memory) List(_ context.Context) ([]*pipeline.Pipeline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*pipeline.Pipeline, 0, len(s.pipelines))
	for _, p := range s.pipelines {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

// Patch applies a partial update and returns the merged record.
func (s *Memory) Patch(_ context.Context, id string, patch Patch) (*pipeline.Pipeline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pipelines[id]
	if !ok {
		return nil, ErrNotFound
	}
	merged := apply(p, patch)
	s.pipelines[id] = merged
	return merged.Clone(), nil
}

// Delete removes a pipeline record.
func (s *Memory) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pipelines[id]; !ok {
		return ErrNotFound
	}
	delete(s.pipelines, id)
	return nil
}
