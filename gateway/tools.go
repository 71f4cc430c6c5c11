package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/viant/codebridge/dispatch"
	"github.com/viant/codebridge/internal/gitinfo"
	"github.com/viant/jsonrpc"
	"github.com/viant/mcp-protocol/schema"
)

// streamArgs carries the arguments embedded in a streaming session locator.
type streamArgs struct {
	Files []string `json:"files"`
	Task  string   `json:"task,omitempty"`
}

// ListTools handles the tools/list method.
func (h *Handler) ListTools(_ context.Context, request *jsonrpc.Request) (*schema.ListToolsResult, *jsonrpc.Error) {
	listToolsRequest := &schema.ListToolsRequest{Method: request.Method}
	if err := json.Unmarshal(request.Params, &listToolsRequest.Params); err != nil {
		return nil, jsonrpc.NewInvalidParamsError(fmt.Sprintf("failed to parse: %v", err), request.Params)
	}
	return &schema.ListToolsResult{Tools: h.table.Tools()}, nil
}

// CallTool handles the tools/call method. Unknown tools fail immediately
// without contacting the backend; streaming tools return a session locator
// without waiting for the operation to finish.
func (h *Handler) CallTool(ctx context.Context, request *jsonrpc.Request) (*schema.CallToolResult, *jsonrpc.Error) {
	callToolRequest := &schema.CallToolRequest{Method: request.Method}
	if err := json.Unmarshal(request.Params, &callToolRequest.Params); err != nil {
		return nil, jsonrpc.NewInvalidParamsError(fmt.Sprintf("failed to parse: %v", err), request.Params)
	}
	name := callToolRequest.Params.Name
	entry, ok := h.table.Lookup(name)
	if !ok {
		h.diagnostics.Warn("tool call rejected", "tool", name, "id", request.Id, "outcome", "unknown tool")
		_ = h.Warning(ctx, map[string]interface{}{"tool": name, "message": "tool not found"})
		return nil, jsonrpc.NewMethodNotFound(fmt.Sprintf("tool %v not found", name), nil)
	}
	if entry.Streaming {
		locator, err := h.streamLocator(entry, callToolRequest.Params.Arguments)
		if err != nil {
			h.diagnostics.Warn("tool call rejected", "tool", name, "id", request.Id, "outcome", "invalid arguments")
			_ = h.Warning(ctx, map[string]interface{}{"tool": name, "message": err.Error()})
			return nil, jsonrpc.NewInvalidParamsError(err.Error(), request.Params)
		}
		h.diagnostics.Info("tool call", "tool", name, "id", request.Id, "outcome", "streaming session")
		_ = h.Info(ctx, map[string]interface{}{"tool": name, "message": "streaming session started"})
		return textResult(locator), nil
	}
	result, err := h.callSynchronous(ctx, entry, callToolRequest.Params.Arguments)
	if err != nil {
		h.diagnostics.Warn("tool call failed", "tool", name, "id", request.Id, "outcome", err.Error())
		_ = h.Warning(ctx, map[string]interface{}{"tool": name, "message": err.Error()})
		return errorResult(fmt.Sprintf("%v failed: %v", name, err)), nil
	}
	h.diagnostics.Info("tool call", "tool", name, "id", request.Id, "outcome", "ok")
	_ = h.Info(ctx, map[string]interface{}{"tool": name, "message": "completed"})
	return textResult(string(result)), nil
}

// streamLocator mints a session id and builds the SSE locator URL embedding
// the serialized arguments.
func (h *Handler) streamLocator(entry *dispatch.Entry, arguments map[string]interface{}) (string, error) {
	args := &streamArgs{}
	if err := loadArguments(arguments, args); err != nil {
		return "", err
	}
	if len(args.Files) == 0 {
		return "", fmt.Errorf("files argument is required")
	}
	kind := strings.TrimPrefix(entry.Endpoint, "/")
	values := url.Values{}
	values.Set("id", uuid.NewString())
	values.Set("files", strings.Join(args.Files, ","))
	if args.Task != "" {
		values.Set("task", args.Task)
	}
	return fmt.Sprintf("%s/stream/%s?%s", h.streamBaseURL, kind, values.Encode()), nil
}

// callSynchronous forwards the arguments to the mapped backend endpoint and
// waits for the response. Checkpoint operations are stamped with the current
// workspace revision when available.
func (h *Handler) callSynchronous(ctx context.Context, entry *dispatch.Entry, arguments map[string]interface{}) ([]byte, error) {
	if entry.Method == http.MethodGet {
		return h.caller.Call(ctx, entry.Method, entry.Endpoint, nil)
	}
	body := map[string]interface{}{}
	for key, value := range arguments {
		body[key] = value
	}
	if h.workspace != "" && (entry.Endpoint == "/checkpoint" || entry.Endpoint == "/rollback") {
		if revision, err := gitinfo.Head(h.workspace); err == nil && revision != nil {
			body["workspaceRevision"] = revision
		}
	}
	return h.caller.Call(ctx, entry.Method, entry.Endpoint, body)
}

func loadArguments(arguments map[string]interface{}, target interface{}) error {
	data, err := json.Marshal(arguments)
	if err != nil {
		return fmt.Errorf("failed to marshal arguments: %w", err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func textResult(text string) *schema.CallToolResult {
	return &schema.CallToolResult{
		Content: []schema.CallToolResultContentElem{schema.TextContent{Type: "text", Text: text}},
	}
}

func errorResult(text string) *schema.CallToolResult {
	isError := true
	ret := textResult(text)
	ret.IsError = &isError
	return ret
}
