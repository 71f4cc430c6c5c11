package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/codebridge/dispatch"
	"github.com/viant/jsonrpc"
	"github.com/viant/mcp-protocol/schema"
)

type recordingNotifier struct {
	mux           sync.Mutex
	notifications []*jsonrpc.Notification
}

func (n *recordingNotifier) Notify(_ context.Context, notification *jsonrpc.Notification) error {
	n.mux.Lock()
	defer n.mux.Unlock()
	n.notifications = append(n.notifications, notification)
	return nil
}

type recordingCaller struct {
	mux      sync.Mutex
	data     []byte
	err      error
	calls    int
	method   string
	endpoint string
	body     interface{}
}

func (c *recordingCaller) Call(_ context.Context, method, endpoint string, body interface{}) ([]byte, error) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.calls++
	c.method = method
	c.endpoint = endpoint
	c.body = body
	return c.data, c.err
}

func newTestHandler(t *testing.T, caller *recordingCaller, options ...Option) *Handler {
	server, err := New(dispatch.New(), caller, "http://127.0.0.1:3001", options...)
	assert.NoError(t, err)
	return server.newHandler(context.Background(), &recordingNotifier{})
}

func serve(t *testing.T, handler *Handler, method string, params interface{}) *jsonrpc.Response {
	request, err := jsonrpc.NewRequest(method, params)
	assert.NoError(t, err)
	response := &jsonrpc.Response{}
	handler.Serve(context.Background(), request, response)
	return response
}

type callToolResultView struct {
	Content []schema.TextContent `json:"content"`
	IsError *bool                `json:"isError,omitempty"`
}

func callToolResult(t *testing.T, response *jsonrpc.Response) *callToolResultView {
	assert.Nil(t, response.Error)
	result := &callToolResultView{}
	assert.NoError(t, json.Unmarshal(response.Result, result))
	assert.NotEmpty(t, result.Content)
	return result
}

func TestHandler_Initialize(t *testing.T) {
	handler := newTestHandler(t, &recordingCaller{},
		WithImplementation(schema.Implementation{Name: "codebridge", Version: "0.1"}))
	response := serve(t, handler, schema.MethodInitialize, &schema.InitializeRequestParams{})
	assert.Nil(t, response.Error)

	result := &schema.InitializeResult{}
	assert.NoError(t, json.Unmarshal(response.Result, result))
	assert.Equal(t, "codebridge", result.ServerInfo.Name)
	assert.NotNil(t, result.Capabilities.Tools)

	handler.OnNotification(context.Background(), &jsonrpc.Notification{Method: schema.MethodNotificationInitialized})
	assert.True(t, handler.Initialized)
}

func TestHandler_InvalidVersion(t *testing.T) {
	handler := newTestHandler(t, &recordingCaller{})
	request, _ := jsonrpc.NewRequest(schema.MethodPing, &schema.PingRequestParams{})
	request.Jsonrpc = "1.0"
	response := &jsonrpc.Response{}
	handler.Serve(context.Background(), request, response)
	assert.NotNil(t, response.Error)
}

func TestHandler_UnknownMethod(t *testing.T) {
	handler := newTestHandler(t, &recordingCaller{})
	response := serve(t, handler, "resources/list", map[string]interface{}{})
	assert.NotNil(t, response.Error)
}

func TestHandler_ListTools(t *testing.T) {
	handler := newTestHandler(t, &recordingCaller{})
	response := serve(t, handler, schema.MethodToolsList, &schema.ListToolsRequestParams{})
	assert.Nil(t, response.Error)

	result := &schema.ListToolsResult{}
	assert.NoError(t, json.Unmarshal(response.Result, result))
	assert.Equal(t, 8, len(result.Tools))
	assert.Equal(t, "discover_capabilities", result.Tools[0].Name)
}

func TestHandler_CallUnknownTool(t *testing.T) {
	caller := &recordingCaller{}
	handler := newTestHandler(t, caller)
	response := serve(t, handler, schema.MethodToolsCall, &schema.CallToolRequestParams{Name: "no_such_tool"})
	// unknown tools fail without touching the backend
	assert.NotNil(t, response.Error)
	assert.Equal(t, 0, caller.calls)
}

func TestHandler_CallStreamingTool(t *testing.T) {
	caller := &recordingCaller{}
	handler := newTestHandler(t, caller)
	response := serve(t, handler, schema.MethodToolsCall, &schema.CallToolRequestParams{
		Name:      "analyze_code",
		Arguments: map[string]interface{}{"files": []string{"a.js", "b.js"}},
	})
	result := callToolResult(t, response)

	// the locator comes back immediately; the backend is contacted only once
	// a subscriber connects to the stream
	locator := result.Content[0].Text
	assert.Contains(t, locator, "http://127.0.0.1:3001/stream/analyze?")
	assert.Contains(t, locator, "files=a.js%2Cb.js")
	assert.Contains(t, locator, "id=")
	assert.Equal(t, 0, caller.calls)
}

func TestHandler_CallModifyEmbedsTask(t *testing.T) {
	handler := newTestHandler(t, &recordingCaller{})
	response := serve(t, handler, schema.MethodToolsCall, &schema.CallToolRequestParams{
		Name:      "modify_code",
		Arguments: map[string]interface{}{"files": []string{"a.js"}, "task": "rename foo"},
	})
	result := callToolResult(t, response)
	assert.Contains(t, result.Content[0].Text, "/stream/modify?")
	assert.Contains(t, result.Content[0].Text, "task=rename+foo")
}

func TestHandler_StreamingToolRequiresFiles(t *testing.T) {
	handler := newTestHandler(t, &recordingCaller{})
	response := serve(t, handler, schema.MethodToolsCall, &schema.CallToolRequestParams{
		Name:      "analyze_code",
		Arguments: map[string]interface{}{},
	})
	assert.NotNil(t, response.Error)
}

func TestHandler_CallSynchronousTool(t *testing.T) {
	caller := &recordingCaller{data: []byte(`{"result":2}`)}
	handler := newTestHandler(t, caller)
	response := serve(t, handler, schema.MethodToolsCall, &schema.CallToolRequestParams{
		Name:      "execute_code",
		Arguments: map[string]interface{}{"code": "1+1", "language": "javascript"},
	})
	result := callToolResult(t, response)
	assert.Equal(t, `{"result":2}`, result.Content[0].Text)
	assert.Nil(t, result.IsError)

	assert.Equal(t, 1, caller.calls)
	assert.Equal(t, http.MethodPost, caller.method)
	assert.Equal(t, "/execute", caller.endpoint)
	body, ok := caller.body.(map[string]interface{})
	assert.True(t, ok)
	assert.Equal(t, "1+1", body["code"])
}

func TestHandler_DiscoverUsesGet(t *testing.T) {
	caller := &recordingCaller{data: []byte(`{"capabilities":[]}`)}
	handler := newTestHandler(t, caller)
	response := serve(t, handler, schema.MethodToolsCall, &schema.CallToolRequestParams{Name: "discover_capabilities"})
	callToolResult(t, response)
	assert.Equal(t, http.MethodGet, caller.method)
	assert.Equal(t, "/discover", caller.endpoint)
	assert.Nil(t, caller.body)
}

func TestHandler_BackendFailureIsToolError(t *testing.T) {
	caller := &recordingCaller{err: fmt.Errorf("backend unavailable")}
	handler := newTestHandler(t, caller)
	response := serve(t, handler, schema.MethodToolsCall, &schema.CallToolRequestParams{
		Name:      "search_code",
		Arguments: map[string]interface{}{"query": "handler"},
	})
	// backend failures surface as tool errors, not protocol errors; the
	// bridge keeps serving
	result := callToolResult(t, response)
	assert.NotNil(t, result.IsError)
	assert.True(t, *result.IsError)
	assert.Contains(t, result.Content[0].Text, "backend unavailable")

	response = serve(t, handler, schema.MethodPing, &schema.PingRequestParams{})
	assert.Nil(t, response.Error)
}

func TestHandler_ClientLogging(t *testing.T) {
	caller := &recordingCaller{data: []byte(`{"capabilities":[]}`)}
	server, err := New(dispatch.New(), caller, "http://127.0.0.1:3001")
	assert.NoError(t, err)
	notifier := &recordingNotifier{}
	handler := server.newHandler(context.Background(), notifier)

	response := serve(t, handler, schema.MethodLoggingSetLevel, &schema.SetLevelRequestParams{Level: schema.Warning})
	assert.Nil(t, response.Error)

	// a successful call logs at info, below the warning threshold
	serve(t, handler, schema.MethodToolsCall, &schema.CallToolRequestParams{Name: "discover_capabilities"})
	assert.Empty(t, notifier.notifications)

	// an unknown tool surfaces to the client as a warning message
	serve(t, handler, schema.MethodToolsCall, &schema.CallToolRequestParams{Name: "no_such_tool"})
	assert.Equal(t, 1, len(notifier.notifications))
	notification := notifier.notifications[0]
	assert.Equal(t, schema.MethodNotificationMessage, notification.Method)
	params := &schema.LoggingMessageNotificationParams{}
	assert.NoError(t, json.Unmarshal(notification.Params, params))
	assert.Equal(t, schema.Warning, params.Level)

	// raising the threshold lets info messages through again
	serve(t, handler, schema.MethodLoggingSetLevel, &schema.SetLevelRequestParams{Level: schema.Info})
	serve(t, handler, schema.MethodToolsCall, &schema.CallToolRequestParams{Name: "discover_capabilities"})
	assert.Equal(t, 2, len(notifier.notifications))
}

func TestHandler_SetLevel(t *testing.T) {
	handler := newTestHandler(t, &recordingCaller{})
	response := serve(t, handler, schema.MethodLoggingSetLevel, &schema.SetLevelRequestParams{Level: schema.Warning})
	assert.Nil(t, response.Error)
	assert.Equal(t, schema.Warning, handler.loggingLevel)
}
