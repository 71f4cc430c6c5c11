package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/viant/codebridge/backend"
)

// Operation kinds served under /stream/.
const (
	KindAnalyze = "analyze"
	KindModify  = "modify"
)

type callResult struct {
	data []byte
	err  error
}

// Server exposes the SSE progress endpoints. Each subscriber connection
// drives one session through its stage plan while the backend request runs
// concurrently.
type Server struct {
	manager    *Manager
	caller     backend.Caller
	stageDelay time.Duration
	health     func() string
	cors       *Cors
	logger     *slog.Logger
	httpServer *http.Server
}

// ServerOption customises a stream server.
type ServerOption func(s *Server)

// WithStageDelay paces simulated progress stages.
func WithStageDelay(delay time.Duration) ServerOption {
	return func(s *Server) {
		s.stageDelay = delay
	}
}

// WithHealth supplies the backend state shown on /healthz.
func WithHealth(health func() string) ServerOption {
	return func(s *Server) {
		s.health = health
	}
}

// WithCors overrides the default CORS policy.
func WithCors(cors *Cors) ServerOption {
	return func(s *Server) {
		s.cors = cors
	}
}

// WithServerLogger sets the diagnostic logger.
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates the SSE progress server.
func NewServer(manager *Manager, caller backend.Caller, options ...ServerOption) *Server {
	ret := &Server{
		manager:    manager,
		caller:     caller,
		stageDelay: 300 * time.Millisecond,
		health:     func() string { return "unknown" },
		cors:       defaultCors(),
		logger:     slog.Default(),
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// Handler returns the HTTP handler serving /stream/analyze, /stream/modify
// and /healthz.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/stream/analyze", s.handleStream(KindAnalyze))
	mux.HandleFunc("/stream/modify", s.handleStream(KindModify))
	mux.HandleFunc("/healthz", s.handleHealth)
	return s.cors.Middleware(mux)
}

// Serve accepts subscriber connections on the supplied listener until Shutdown.
func (s *Server) Serve(listener net.Listener) error {
	s.httpServer = &http.Server{Handler: s.Handler()}
	err := s.httpServer.Serve(listener)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown closes open sessions and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.manager.Shutdown()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(writer http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodGet {
		http.Error(writer, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writer.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(writer).Encode(map[string]interface{}{
		"status":   "ok",
		"backend":  s.health(),
		"sessions": s.manager.Len(),
	})
}

func (s *Server) handleStream(kind string) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		if request.Method != http.MethodGet {
			http.Error(writer, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		query := request.URL.Query()
		files := splitFiles(query.Get("files"))
		if len(files) == 0 {
			http.Error(writer, "files parameter is required", http.StatusBadRequest)
			return
		}
		task := query.Get("task")
		if kind == KindModify && task == "" {
			http.Error(writer, "task parameter is required", http.StatusBadRequest)
			return
		}
		session, err := s.manager.Open(writer, request, query.Get("id"))
		if err != nil {
			http.Error(writer, err.Error(), http.StatusConflict)
			return
		}
		payload := map[string]interface{}{"files": files}
		if task != "" {
			payload["task"] = task
		}
		s.logger.Info("stream started", "kind", kind, "session", session.ID, "files", len(files))
		s.run(request.Context(), session, kind, payload)
	}
}

// run drives the session through its stage plan while the backend call is in
// flight, then emits exactly one terminal event and closes the session. A
// disconnected subscriber aborts stage narration promptly; an already issued
// backend request runs to completion and its result is discarded.
func (s *Server) run(ctx context.Context, session *Session, kind string, payload map[string]interface{}) {
	resultCh := make(chan callResult, 1)
	go func() {
		data, err := s.caller.Call(context.WithoutCancel(ctx), http.MethodPost, "/"+kind, payload)
		resultCh <- callResult{data: data, err: err}
	}()

	plan := PlanFor(kind)
	total := len(plan.Stages) + 1
	var result callResult
	received := false
	for index, stage := range plan.Stages {
		if session.Closed() {
			return
		}
		session.SendProgress(&ProgressEvent{
			Status:     stage.Status,
			Message:    stage.Message,
			Progress:   progressAt(index, len(plan.Stages)),
			Step:       index + 1,
			TotalSteps: total,
		})
		select {
		case result = <-resultCh:
			received = true
		case <-time.After(s.stageDelay):
		case <-ctx.Done():
			return
		}
		if received {
			break
		}
	}
	if !received {
		session.Send(EventInfo, map[string]string{"message": "waiting for backend"})
		select {
		case result = <-resultCh:
		case <-ctx.Done():
			return
		}
	}
	if session.Closed() {
		return
	}
	if result.err != nil {
		s.logger.Warn("stream failed", "kind", kind, "session", session.ID, "error", result.err)
		session.Send(EventError, map[string]string{"error": result.err.Error()})
		s.manager.Close(session)
		return
	}
	session.SendProgress(&ProgressEvent{
		Status:     "finalizing",
		Message:    "finalizing results",
		Progress:   100,
		Step:       total,
		TotalSteps: total,
	})
	session.Send(EventResult, resultPayload(result.data))
	s.manager.Close(session)
	s.logger.Info("stream completed", "kind", kind, "session", session.ID)
}

func resultPayload(data []byte) interface{} {
	if json.Valid(data) {
		return json.RawMessage(data)
	}
	return map[string]string{"output": string(data)}
}

func splitFiles(value string) []string {
	var ret []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			ret = append(ret, item)
		}
	}
	return ret
}
