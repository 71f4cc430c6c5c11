// Package gateway is the stdio-facing front end of the bridge. It speaks the
// MCP JSON-RPC protocol over stdio, routes tool calls through the dispatch
// table and either awaits a synchronous backend result or returns a streaming
// session locator immediately. Diagnostics go to a side channel (stderr),
// never to the protocol's stdout stream.
package gateway

import (
	"context"
	"errors"
	"log/slog"

	"github.com/viant/codebridge/backend"
	"github.com/viant/codebridge/dispatch"
	"github.com/viant/jsonrpc/transport"
	"github.com/viant/mcp-protocol/schema"
	"github.com/viant/mcp-protocol/syncmap"
)

type activeContext struct {
	context.Context
	context.CancelFunc
}

// Server holds the gateway wiring shared by every transport connection.
type Server struct {
	table         *dispatch.Table
	caller        backend.Caller
	streamBaseURL string
	workspace     string

	activeContexts  *syncmap.Map[int, *activeContext]
	info            schema.Implementation
	instructions    *string
	protocolVersion string
	loggerName      string
	diagnostics     *slog.Logger
}

func (s *Server) cancelOperation(id int) {
	if active, ok := s.activeContexts.Get(id); ok {
		active.CancelFunc()
		s.activeContexts.Delete(id)
	}
}

// NewHandler creates a handler bound to a transport connection.
func (s *Server) NewHandler(ctx context.Context, aTransport transport.Transport) transport.Handler {
	return s.newHandler(ctx, aTransport)
}

func (s *Server) newHandler(_ context.Context, notifier transport.Notifier) *Handler {
	ret := &Handler{
		Server:   s,
		Notifier: notifier,
	}
	ret.Logger = NewLogger(s.loggerName, &ret.loggingLevel, notifier)
	return ret
}

// New creates a gateway Server routing tool calls through table against caller.
func New(table *dispatch.Table, caller backend.Caller, streamBaseURL string, options ...Option) (*Server, error) {
	s := &Server{
		table:         table,
		caller:        caller,
		streamBaseURL: streamBaseURL,
		info: schema.Implementation{
			Name:    "codebridge",
			Version: "0.1",
		},
		loggerName:      "codebridge",
		protocolVersion: schema.LatestProtocolVersion,
		activeContexts:  syncmap.NewMap[int, *activeContext](),
		diagnostics:     slog.Default(),
	}
	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}
	if s.table == nil {
		return nil, errors.New("no dispatch table specified")
	}
	if s.caller == nil {
		return nil, errors.New("no backend caller specified")
	}
	return s, nil
}
