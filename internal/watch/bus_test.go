package watch

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func busTestServer(t *testing.T, fetches *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /pipelines/{id}", func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		servePipeline(t, w, r.PathValue("id"))
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func TestBus_DedupesWhenBothMechanismsFire(t *testing.T) {
	var fetches atomic.Int32
	ts := busTestServer(t, &fetches)

	client := NewClient(ts.URL)
	bus, updates := testBus(t, client)

	// The push subscription and the poll loop race to report the same
	// terminal condition.
	bus.Publish(Condition{PipelineID: "pl2_1_aaaaaa", Kind: CondReady, Source: "monitor"})
	bus.Publish(Condition{PipelineID: "pl2_1_aaaaaa", Kind: CondReady, Source: "reconciler"})

	u := waitUpdate(t, updates)
	assert.Equal(t, CondReady, u.cond.Kind)
	require.NotNil(t, u.pipeline)

	requireNoUpdate(t, updates, 100*time.Millisecond)
	assert.Equal(t, int32(1), fetches.Load())
}

func TestBus_ResetRearms(t *testing.T) {
	var fetches atomic.Int32
	ts := busTestServer(t, &fetches)

	client := NewClient(ts.URL)
	bus, updates := testBus(t, client)

	bus.Publish(Condition{PipelineID: "pl2_1_bbbbbb", Kind: CondFailed, Err: "blocked"})
	waitUpdate(t, updates)

	// Without a reset the second condition is swallowed.
	bus.Publish(Condition{PipelineID: "pl2_1_bbbbbb", Kind: CondReady})
	requireNoUpdate(t, updates, 100*time.Millisecond)

	// A retry re-arms the pipeline.
	bus.Reset("pl2_1_bbbbbb")
	bus.Publish(Condition{PipelineID: "pl2_1_bbbbbb", Kind: CondReady})
	u := waitUpdate(t, updates)
	assert.Equal(t, CondReady, u.cond.Kind)
	assert.Equal(t, int32(2), fetches.Load())
}

func TestBus_IndependentPipelines(t *testing.T) {
	var fetches atomic.Int32
	ts := busTestServer(t, &fetches)

	client := NewClient(ts.URL)
	bus, updates := testBus(t, client)

	bus.Publish(Condition{PipelineID: "pl2_1_cccccc", Kind: CondReady})
	bus.Publish(Condition{PipelineID: "pl2_1_dddddd", Kind: CondReady})

	waitUpdate(t, updates)
	waitUpdate(t, updates)
	assert.Equal(t, int32(2), fetches.Load())
}

func TestBus_TimeoutSkipsRefetch(t *testing.T) {
	var fetches atomic.Int32
	ts := busTestServer(t, &fetches)

	client := NewClient(ts.URL)
	bus, updates := testBus(t, client)

	bus.Publish(Condition{PipelineID: "pl2_1_eeeeee", Kind: CondTimeout, Err: "monitoring failed"})

	u := waitUpdate(t, updates)
	assert.Equal(t, CondTimeout, u.cond.Kind)
	assert.Nil(t, u.pipeline)
	assert.Zero(t, fetches.Load())

	// A later ready still gets its re-fetch; the timeout consumed nothing.
	bus.Publish(Condition{PipelineID: "pl2_1_eeeeee", Kind: CondReady})
	u = waitUpdate(t, updates)
	assert.Equal(t, CondReady, u.cond.Kind)
	require.NotNil(t, u.pipeline)
	assert.Equal(t, int32(1), fetches.Load())
}
