package server

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// SSEWriter helps write Server-Sent Events
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSEWriter creates a new SSE writer
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	return &SSEWriter{w: w, flusher: flusher}, nil
}

// WriteEvent sends an SSE event
func (s *SSEWriter) WriteEvent(event string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(s.w, "event: %s\n", event); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", jsonData); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// WriteReady signals that the extraction artifact exists; the client must
// re-fetch the canonical record rather than trust this payload.
func (s *SSEWriter) WriteReady() error {
	return s.WriteEvent("ready", map[string]bool{"ready": true})
}

// WriteFailed reports a terminal extraction failure with the worker's error
// text verbatim.
func (s *SSEWriter) WriteFailed(errText string) error {
	return s.WriteEvent("failed", map[string]string{"error": errText})
}

// WriteTimeout signals the soft timeout guard. Informational only.
func (s *SSEWriter) WriteTimeout() error {
	return s.WriteEvent("timeout", map[string]bool{"timeout": true})
}

// WriteKeepalive holds the transport open. Carries no data.
func (s *SSEWriter) WriteKeepalive() error {
	return s.WriteEvent("keepalive", map[string]any{})
}
