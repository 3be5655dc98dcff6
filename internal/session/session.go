package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	keyActivePipeline = "active_pipeline"
	keyRecentActions  = "recent_actions"

	// maxRecentActions caps the action log so a long session cannot grow it
	// without bound.
	maxRecentActions = 50
)

// Action is one entry in the session's recent-actions log.
type Action struct {
	At   int64  `json:"at"`
	Note string `json:"note"`
}

// Session carries the state a pipeline view needs across handlers: which
// pipeline is open and what the user did recently. It is created at session
// start and flushed on close; nothing here is global.
type Session struct {
	id string
	kv KV
}

// New starts a session over the given KV store.
func New(kv KV) *Session {
	return &Session{id: uuid.NewString(), kv: kv}
}

// ID returns the session identifier (the KV namespace).
func (s *Session) ID() string {
	return s.id
}

// SetActivePipeline records which pipeline the session is viewing.
func (s *Session) SetActivePipeline(ctx context.Context, pipelineID string) error {
	return s.kv.Set(ctx, s.id, keyActivePipeline, []byte(pipelineID))
}

// ActivePipeline returns the open pipeline id, if any.
func (s *Session) ActivePipeline(ctx context.Context) (string, bool) {
	val, err := s.kv.Get(ctx, s.id, keyActivePipeline)
	if err != nil {
		return "", false
	}
	return string(val), true
}

// ClearActivePipeline forgets the open pipeline.
func (s *Session) ClearActivePipeline(ctx context.Context) error {
	return s.kv.Delete(ctx, s.id, keyActivePipeline)
}

// RecordAction appends a note to the recent-actions log, trimming the oldest
// entries past the cap.
func (s *Session) RecordAction(ctx context.Context, note string) error {
	actions, err := s.RecentActions(ctx)
	if err != nil {
		return err
	}
	actions = append(actions, Action{At: time.Now().UnixMilli(), Note: note})
	if len(actions) > maxRecentActions {
		actions = actions[len(actions)-maxRecentActions:]
	}
	payload, err := json.Marshal(actions)
	if err != nil {
		return fmt.Errorf("failed to marshal actions: %w", err)
	}
	return s.kv.Set(ctx, s.id, keyRecentActions, payload)
}

// RecentActions returns the session's action log, oldest first.
func (s *Session) RecentActions(ctx context.Context) ([]Action, error) {
	raw, err := s.kv.Get(ctx, s.id, keyRecentActions)
	if errors.Is(err, ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var actions []Action
	if err := json.Unmarshal(raw, &actions); err != nil {
		return nil, fmt.Errorf("failed to decode actions: %w", err)
	}
	return actions, nil
}

// Flush drops all session state. Called on logout or view close.
func (s *Session) Flush(ctx context.Context) error {
	return s.kv.Clear(ctx, s.id)
}
