package gateway

import (
	"log/slog"

	"github.com/viant/mcp-protocol/schema"
)

// Option is a function that configures the gateway server.
type Option func(s *Server) error

// WithImplementation sets the server implementation info.
func WithImplementation(implementation schema.Implementation) Option {
	return func(s *Server) error {
		s.info = implementation
		return nil
	}
}

// WithInstructions sets the instructions returned on initialize.
func WithInstructions(instructions string) Option {
	return func(s *Server) error {
		s.instructions = &instructions
		return nil
	}
}

// WithLoggerName sets the client-facing logger name.
func WithLoggerName(name string) Option {
	return func(s *Server) error {
		s.loggerName = name
		return nil
	}
}

// WithDiagnostics sets the stderr diagnostic logger.
func WithDiagnostics(logger *slog.Logger) Option {
	return func(s *Server) error {
		s.diagnostics = logger
		return nil
	}
}

// WithWorkspace sets the workspace directory used to stamp checkpoint
// requests with the current git revision.
func WithWorkspace(workspace string) Option {
	return func(s *Server) error {
		s.workspace = workspace
		return nil
	}
}
