package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jonathan/talentflow/internal/pipeline"
)

// update is one bus consumer callback, captured for assertions.
type update struct {
	pipeline *pipeline.Pipeline
	cond     Condition
}

// testBus wires a bus to client with a running consumer and returns the
// channel of consumer callbacks.
func testBus(t *testing.T, client *Client) (*Bus, <-chan update) {
	t.Helper()
	updates := make(chan update, 16)
	bus := NewBus(client, func(p *pipeline.Pipeline, cond Condition) {
		updates <- update{pipeline: p, cond: cond}
	})

	ctx, cancel := context.WithCancel(context.Background())
	go bus.Run(ctx)
	t.Cleanup(func() {
		cancel()
		bus.Wait()
	})
	return bus, updates
}

// waitUpdate blocks for the next consumer callback.
func waitUpdate(t *testing.T, updates <-chan update) update {
	t.Helper()
	select {
	case u := <-updates:
		return u
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for bus update")
		return update{}
	}
}

// requireNoUpdate asserts nothing arrives within the window.
func requireNoUpdate(t *testing.T, updates <-chan update, window time.Duration) {
	t.Helper()
	select {
	case u := <-updates:
		t.Fatalf("unexpected bus update: %+v", u.cond)
	case <-time.After(window):
	}
}

// writeSSE emits one event in the server's wire format.
func writeSSE(w http.ResponseWriter, name string, data any) {
	payload, _ := json.Marshal(data)
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, payload)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// servePipeline answers the canonical GET with a minimal v2 record.
func servePipeline(t *testing.T, w http.ResponseWriter, id string) {
	t.Helper()
	p := pipeline.New(pipeline.V2, "test pipeline")
	p.ID = id
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(p))
}
