// Package codebridge exposes a code analysis backend's HTTP API to MCP
// clients over the stdio transport.
//
// The bridge speaks JSON-RPC on stdin/stdout, translates tool calls into
// HTTP requests against a supervised backend child process, and hands out
// SSE session locators for long-running operations so agents receive
// progress without holding the protocol channel open.
//
// The runnable entry point lives in the bridge package:
//
//	service, _ := bridge.New(ctx, options)
//	err := service.Run(ctx)
//
// See cmd/codebridge for the command line wrapper.
package codebridge
