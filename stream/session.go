package stream

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Session is a single server-sent event stream owned by the manager. Writes
// after close are silent no-ops; the sink belongs to the subscriber's HTTP
// connection and is never written to once the subscriber is gone.
type Session struct {
	ID      string
	created time.Time

	mux          sync.Mutex
	writer       http.ResponseWriter
	flusher      http.Flusher
	closed       bool
	lastProgress int
	logger       *slog.Logger
}

// Closed reports whether the session has been closed.
func (s *Session) Closed() bool {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.closed
}

// Created returns the session creation time.
func (s *Session) Created() time.Time {
	return s.created
}

// Send writes one SSE frame tagged with event. Data is JSON serialized unless
// it is already a raw JSON payload. Sending on a closed session does nothing.
func (s *Session) Send(event string, data interface{}) {
	s.mux.Lock()
	defer s.mux.Unlock()
	if s.closed {
		return
	}
	payload, err := json.Marshal(data)
	if err != nil {
		s.logger.Warn("failed to serialize event", "session", s.ID, "event", event, "error", err)
		return
	}
	if _, err := fmt.Fprintf(s.writer, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		// the subscriber is gone; treat as disconnect
		s.closed = true
		return
	}
	s.flusher.Flush()
}

// SendProgress emits a progress event, clamping the percentage to [0,100] and
// enforcing that it never decreases within the session.
func (s *Session) SendProgress(event *ProgressEvent) {
	s.mux.Lock()
	if event.Progress > 100 {
		event.Progress = 100
	}
	if event.Progress < s.lastProgress {
		event.Progress = s.lastProgress
	}
	s.lastProgress = event.Progress
	s.mux.Unlock()
	s.Send(EventProgress, event)
}

// close marks the session closed. Idempotent.
func (s *Session) close() {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.closed = true
}
