// Package bridge wires the protocol gateway, the backend supervisor, the port
// reconciler and the streaming session manager into one runnable service and
// owns the startup/shutdown ordering between them.
package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/viant/codebridge/backend"
	"github.com/viant/codebridge/config"
	"github.com/viant/codebridge/dispatch"
	"github.com/viant/codebridge/gateway"
	"github.com/viant/codebridge/internal/portutil"
	"github.com/viant/codebridge/stream"
	"github.com/viant/gosh"
	"github.com/viant/gosh/runner/local"
	"github.com/viant/mcp-protocol/schema"
)

// Version is the bridge implementation version advertised on initialize.
const Version = "0.1"

// Service is the assembled bridge. The supervisor owns the backend process
// handle and the manager owns the session set; nothing else mutates them.
type Service struct {
	config       *config.Config
	logger       *slog.Logger
	table        *dispatch.Table
	reconciler   portutil.Reconciler
	client       *backend.Client
	supervisor   *backend.Supervisor
	sessions     *stream.Manager
	streamServer *stream.Server
	gateway      *gateway.Server
}

// New assembles the bridge from configuration and flags.
func New(ctx context.Context, options *Options) (*Service, error) {
	cfg := config.New()
	if options.ConfigURL != "" {
		var err error
		if cfg, err = config.Load(ctx, options.ConfigURL); err != nil {
			return nil, err
		}
	}
	options.Apply(cfg)

	level := slog.LevelInfo
	if options.Verbose {
		level = slog.LevelDebug
	}
	// stdout carries the JSON-RPC stream; every diagnostic goes to stderr
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	goshService, err := gosh.New(ctx, local.New())
	if err != nil {
		return nil, fmt.Errorf("failed to create command runner: %w", err)
	}
	ret := &Service{
		config:     cfg,
		logger:     logger,
		table:      dispatch.New(),
		reconciler: portutil.New(&portutil.GoshRunner{Service: goshService}, portutil.WithLogger(logger)),
	}
	ret.client = backend.NewClient(cfg.BackendURL(),
		backend.WithTimeout(time.Duration(cfg.HTTP.TimeoutMs)*time.Millisecond),
		backend.WithMaxAttempts(cfg.HTTP.MaxAttempts),
		backend.WithBackoffBase(time.Duration(cfg.HTTP.BackoffBaseMs)*time.Millisecond),
		backend.WithClientLogger(logger),
	)
	ret.sessions = stream.NewManager(logger)
	ret.supervisor = backend.NewSupervisor(backend.SupervisorConfig{
		Command:      cfg.Backend.Command,
		Args:         cfg.Backend.Args,
		Port:         cfg.Backend.Port,
		ReadyMarker:  cfg.Backend.ReadyMarker,
		ReadyTimeout: cfg.ReadyTimeout(),
	},
		backend.WithSupervisorLogger(logger),
		backend.WithOnFailure(ret.onBackendFailure),
	)
	ret.streamServer = stream.NewServer(ret.sessions, ret.client,
		stream.WithStageDelay(cfg.StageDelay()),
		stream.WithHealth(func() string { return ret.supervisor.State().String() }),
		stream.WithServerLogger(logger),
	)
	workspace := options.Workspace
	if workspace == "" {
		workspace, _ = os.Getwd()
	}
	ret.gateway, err = gateway.New(ret.table, ret.client, cfg.StreamBaseURL(),
		gateway.WithImplementation(schema.Implementation{Name: "codebridge", Version: Version}),
		gateway.WithDiagnostics(logger),
		gateway.WithWorkspace(workspace),
	)
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// onBackendFailure invalidates every open streaming session and fails
// subsequent synchronous calls fast until the bridge is restarted.
func (s *Service) onBackendFailure(err error) {
	s.client.SetAvailable(false)
	s.sessions.FailAll(fmt.Sprintf("backend process exited: %v", err))
}

// Run starts the bridge: reconcile and bind the SSE port, start the backend
// and await readiness, then serve the stdio protocol until the client
// disconnects. Shutdown closes sessions, then the HTTP server, then the
// backend process.
func (s *Service) Run(ctx context.Context) error {
	listener, err := s.bind(ctx, s.config.Stream.Port)
	if err != nil {
		return err
	}
	if err := s.supervisor.Start(ctx); err != nil {
		_ = listener.Close()
		return err
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.streamServer.Serve(listener)
	}()
	s.logger.Info("bridge ready",
		"backend", s.config.BackendURL(),
		"stream", s.config.StreamBaseURL(),
		"tools", s.table.Size(),
	)
	err = s.gateway.Stdio(ctx).ListenAndServe()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if shutdownErr := s.streamServer.Shutdown(shutdownCtx); shutdownErr != nil {
		s.logger.Warn("stream server shutdown failed", "error", shutdownErr)
	}
	s.supervisor.Stop()
	select {
	case srvErr := <-serveErr:
		if srvErr != nil {
			s.logger.Warn("stream server stopped with error", "error", srvErr)
		}
	default:
	}
	if ctx.Err() != nil {
		// orderly signal-driven shutdown
		return nil
	}
	return err
}

// bind reconciles the port and binds it, retrying the reconciliation exactly
// once more when the bind still fails with an address-in-use error.
func (s *Service) bind(ctx context.Context, port int) (net.Listener, error) {
	address := fmt.Sprintf("127.0.0.1:%d", port)
	if _, err := s.reconciler.EnsureFree(ctx, port); err != nil {
		s.logger.Warn("port reconciliation failed", "port", port, "error", err)
	}
	listener, err := net.Listen("tcp", address)
	if err == nil {
		return listener, nil
	}
	if !portutil.IsAddrInUse(err) {
		return nil, err
	}
	if _, err := s.reconciler.EnsureFree(ctx, port); err != nil {
		return nil, &portutil.ConflictError{Port: port}
	}
	if listener, err = net.Listen("tcp", address); err != nil {
		return nil, &portutil.ConflictError{Port: port}
	}
	return listener, nil
}
