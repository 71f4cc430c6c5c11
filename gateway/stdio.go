package gateway

import (
	"context"

	"github.com/viant/jsonrpc/transport/server/stdio"
)

// Stdio returns the stdio JSON-RPC server for this gateway.
func (s *Server) Stdio(ctx context.Context, options ...stdio.Option) *stdio.Server {
	return stdio.New(ctx, s.NewHandler, options...)
}
