// Package stream turns a single tool call into an asynchronous,
// progress-reporting server-sent event channel. The manager owns every open
// session; the rest of the bridge never touches a sink directly.
package stream

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/viant/codebridge/internal/collection"
)

// Manager allocates a push channel per long-running request and guarantees
// session teardown on completion, error, shutdown and client disconnect.
type Manager struct {
	sessions  *collection.SyncMap[string, *Session]
	accepting atomic.Bool
	logger    *slog.Logger
}

// NewManager creates a session manager.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	ret := &Manager{
		sessions: collection.NewSyncMap[string, *Session](),
		logger:   logger,
	}
	ret.accepting.Store(true)
	return ret
}

// Open establishes an event stream on the subscriber's connection: it writes
// the SSE preamble, registers the session and closes it when the subscriber
// disconnects. Session ids are unique for the lifetime of the process.
func (m *Manager) Open(writer http.ResponseWriter, request *http.Request, id string) (*Session, error) {
	if !m.accepting.Load() {
		return nil, fmt.Errorf("shutting down, no new sessions accepted")
	}
	if id == "" {
		id = uuid.NewString()
	}
	if _, exists := m.sessions.Get(id); exists {
		return nil, fmt.Errorf("session %v already open", id)
	}
	flusher, ok := writer.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support streaming")
	}
	writer.Header().Set("Content-Type", "text/event-stream")
	writer.Header().Set("Cache-Control", "no-cache")
	writer.Header().Set("Connection", "keep-alive")
	writer.WriteHeader(http.StatusOK)
	flusher.Flush()

	session := &Session{
		ID:      id,
		created: time.Now(),
		writer:  writer,
		flusher: flusher,
		logger:  m.logger,
	}
	m.sessions.Put(id, session)
	go func() {
		<-request.Context().Done()
		session.close()
		m.sessions.Delete(id)
	}()
	m.logger.Debug("session opened", "session", id)
	return session, nil
}

// Close tears a session down. Idempotent; safe after disconnect.
func (m *Manager) Close(session *Session) {
	session.close()
	m.sessions.Delete(session.ID)
	m.logger.Debug("session closed", "session", session.ID)
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	return m.sessions.Size()
}

// FailAll delivers an error event to every open session and closes them;
// used when the backend crashes underneath in-flight operations.
func (m *Manager) FailAll(message string) {
	for _, session := range m.sessions.Values() {
		session.Send(EventError, map[string]string{"error": message})
		m.Close(session)
	}
}

// Shutdown stops accepting new sessions and closes the open ones.
func (m *Manager) Shutdown() {
	m.accepting.Store(false)
	for _, session := range m.sessions.Values() {
		m.Close(session)
	}
}
