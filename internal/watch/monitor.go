package watch

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/jonathan/talentflow/internal/telemetry"
)

// MonitorState is the lifecycle state of an extraction monitor.
type MonitorState string

const (
	StateIdle       MonitorState = "IDLE"
	StateConnecting MonitorState = "CONNECTING"
	StateStreaming  MonitorState = "STREAMING"
	StateReady      MonitorState = "READY"
	StateFailed     MonitorState = "FAILED"
	StateTimedOut   MonitorState = "TIMEOUT"
)

// ErrAlreadyWatching is returned by Start when a subscription for a
// different pipeline is already running; a monitor carries one subscription.
var ErrAlreadyWatching = errors.New("monitor already watching a pipeline")

// Monitor subscribes to the extraction SSE stream and tracks its state.
//
// ready and failed are terminal: the monitor closes intentionally and never
// reconnects after them. timeout is soft: the flag is set, the server closes
// the stream, and the monitor reconnects to keep watching; a later ready
// clears the flag. Any other stream close before a terminal event counts as
// a transport error and triggers a reconnect with backoff.
type Monitor struct {
	client *Client
	bus    *Bus

	initialBackoff time.Duration
	maxBackoff     time.Duration

	mu           sync.Mutex
	pipelineID   string
	state        MonitorState
	lastProgress Progress
	failure      string
	timedOut     bool
	running      bool
	reconnects   int
	cancel       context.CancelFunc
	done         chan struct{}
}

// Progress is the decoded payload of the most recent status event. All
// fields are optional on the wire; absent ones stay at their zero values.
type Progress struct {
	Message    string `json:"message"`
	Stage      string `json:"stage"`
	Percent    int    `json:"progress"`
	ETASeconds int    `json:"etaSeconds"`
}

// NewMonitor creates a monitor that emits terminal conditions onto bus.
func NewMonitor(client *Client, bus *Bus) *Monitor {
	return &Monitor{
		client:         client,
		bus:            bus,
		initialBackoff: 500 * time.Millisecond,
		maxBackoff:     10 * time.Second,
		state:          StateIdle,
	}
}

// Start begins watching the pipeline. A second call for the same id while
// the subscription is active is a no-op; a call for a different id returns
// ErrAlreadyWatching. Either way no second subscription opens.
func (m *Monitor) Start(ctx context.Context, pipelineID string) error {
	m.mu.Lock()
	if m.running {
		samePipeline := m.pipelineID == pipelineID
		m.mu.Unlock()
		if samePipeline {
			return nil
		}
		return ErrAlreadyWatching
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.running = true
	m.pipelineID = pipelineID
	m.cancel = cancel
	m.done = make(chan struct{})
	m.state = StateConnecting
	m.mu.Unlock()

	telemetry.StreamConnects.Inc()
	go m.run(runCtx, pipelineID)
	return nil
}

// Stop cancels the subscription and waits for it to exit. Safe to call more
// than once and after a terminal event.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	done := m.done
	m.cancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// State returns the current monitor state.
func (m *Monitor) State() MonitorState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// LastMessage returns the most recent progress message from the stream.
func (m *Monitor) LastMessage() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastProgress.Message
}

// Progress returns the most recent decoded status payload.
func (m *Monitor) Progress() Progress {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastProgress
}

// Failure returns the error text of the last failed event, if any.
func (m *Monitor) Failure() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failure
}

// TimedOut reports whether the soft timeout flag is set.
func (m *Monitor) TimedOut() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timedOut
}

// Reconnects returns how many reconnect attempts have been made.
func (m *Monitor) Reconnects() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reconnects
}

func (m *Monitor) setState(s MonitorState) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

func (m *Monitor) run(ctx context.Context, pipelineID string) {
	defer func() {
		m.mu.Lock()
		m.running = false
		close(m.done)
		m.mu.Unlock()
	}()

	backoff := m.initialBackoff
	first := true

	for {
		if ctx.Err() != nil {
			return
		}
		if !first {
			m.mu.Lock()
			m.reconnects++
			m.mu.Unlock()
			telemetry.StreamReconnects.Inc()
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > m.maxBackoff {
				backoff = m.maxBackoff
			}
		}
		first = false

		m.setState(StateConnecting)
		body, err := m.client.openStream(ctx, pipelineID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("[monitor] stream open failed for %s: %v", pipelineID, err)
			continue
		}

		m.setState(StateStreaming)
		backoff = m.initialBackoff

		terminal := m.consume(body, pipelineID)
		body.Close()
		if terminal {
			return
		}
		// Stream closed without a terminal event; reconnect.
	}
}

// consume reads events until the stream closes or a terminal event arrives.
// It reports whether the close was intentional.
func (m *Monitor) consume(body io.Reader, pipelineID string) bool {
	r := bufio.NewReader(body)
	for {
		ev, err := readStreamEvent(r)
		if err != nil {
			return false
		}

		switch ev.name {
		case "keepalive":
			// heartbeat only

		case "status":
			var payload Progress
			json.Unmarshal([]byte(ev.data), &payload)
			m.mu.Lock()
			m.lastProgress = payload
			m.mu.Unlock()

		case "timeout":
			// Soft guard: keep watching. The server closes the stream next,
			// and the reconnect path picks it back up.
			m.mu.Lock()
			m.state = StateTimedOut
			m.timedOut = true
			m.mu.Unlock()
			m.bus.Publish(Condition{PipelineID: pipelineID, Kind: CondTimeout, Source: "monitor"})

		case "ready":
			m.mu.Lock()
			m.state = StateReady
			m.timedOut = false
			m.failure = ""
			m.mu.Unlock()
			m.bus.Publish(Condition{PipelineID: pipelineID, Kind: CondReady, Source: "monitor"})
			return true

		case "failed", "error":
			var payload struct {
				Err string `json:"error"`
			}
			json.Unmarshal([]byte(ev.data), &payload)
			if payload.Err == "" {
				payload.Err = "extraction failed"
			}
			m.mu.Lock()
			m.state = StateFailed
			m.failure = payload.Err
			m.mu.Unlock()
			m.bus.Publish(Condition{PipelineID: pipelineID, Kind: CondFailed, Err: payload.Err, Source: "monitor"})
			return true
		}
	}
}

// monitorFlags is a snapshot of the terminal-state flags, used by the retry
// controller to restore them when a retry request fails.
type monitorFlags struct {
	state    MonitorState
	failure  string
	timedOut bool
}

func (m *Monitor) flagsSnapshot() monitorFlags {
	m.mu.Lock()
	defer m.mu.Unlock()
	return monitorFlags{state: m.state, failure: m.failure, timedOut: m.timedOut}
}

// clearFlags optimistically drops failed/timeout state ahead of a retry.
func (m *Monitor) clearFlags() {
	m.mu.Lock()
	m.state = StateIdle
	m.failure = ""
	m.timedOut = false
	m.mu.Unlock()
}

func (m *Monitor) restoreFlags(f monitorFlags) {
	m.mu.Lock()
	m.state = f.state
	m.failure = f.failure
	m.timedOut = f.timedOut
	m.mu.Unlock()
}

// streamEvent is one parsed server-sent event.
type streamEvent struct {
	name string
	data string
}

// readStreamEvent reads one event off the wire. The server writes events as
// an "event:" line, a "data:" line, and a blank separator.
func readStreamEvent(r *bufio.Reader) (streamEvent, error) {
	var ev streamEvent
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return ev, err
		}
		line = strings.TrimRight(line, "\r\n")
		switch {
		case strings.HasPrefix(line, "event:"):
			ev.name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			ev.data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		case line == "":
			if ev.name != "" || ev.data != "" {
				return ev, nil
			}
		}
	}
}
