// Package dispatch defines the static mapping between tool names and backend
// endpoints. The set of tools is data, not control flow: the gateway consults
// the table for routing and serves the catalog on tools/list.
package dispatch

import (
	"net/http"

	"github.com/viant/mcp-protocol/schema"
)

// Entry binds a tool to a backend endpoint and marks whether its invocation
// streams progress over SSE instead of returning a direct result.
type Entry struct {
	Tool      schema.Tool
	Endpoint  string
	Method    string
	Streaming bool
}

// Table is the static tool catalog. Lookups are O(1); there is no runtime
// registration.
type Table struct {
	entries map[string]*Entry
	order   []string
}

// Lookup returns the entry for a tool name.
func (t *Table) Lookup(name string) (*Entry, bool) {
	entry, ok := t.entries[name]
	return entry, ok
}

// Tools returns the catalog in registration order for tools/list.
func (t *Table) Tools() []schema.Tool {
	ret := make([]schema.Tool, 0, len(t.order))
	for _, name := range t.order {
		ret = append(ret, t.entries[name].Tool)
	}
	return ret
}

// Size returns the number of registered tools.
func (t *Table) Size() int {
	return len(t.entries)
}

func (t *Table) register(entry *Entry) {
	t.entries[entry.Tool.Name] = entry
	t.order = append(t.order, entry.Tool.Name)
}

func description(text string) *string {
	return &text
}

func objectSchema(properties schema.ToolInputSchemaProperties, required ...string) schema.ToolInputSchema {
	return schema.ToolInputSchema{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}
}

func stringProperty(description string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": description}
}

func stringListProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"items":       map[string]interface{}{"type": "string"},
		"description": description,
	}
}

// New builds the tool catalog.
func New() *Table {
	ret := &Table{entries: map[string]*Entry{}}
	ret.register(&Entry{
		Tool: schema.Tool{
			Name:        "discover_capabilities",
			Description: description("List the capabilities of the code analysis backend"),
			InputSchema: objectSchema(schema.ToolInputSchemaProperties{}),
		},
		Endpoint: "/discover",
		Method:   http.MethodGet,
	})
	ret.register(&Entry{
		Tool: schema.Tool{
			Name:        "analyze_code",
			Description: description("Analyze source files; returns a progress stream locator"),
			InputSchema: objectSchema(schema.ToolInputSchemaProperties{
				"files": stringListProperty("Source files to analyze"),
			}, "files"),
		},
		Endpoint:  "/analyze",
		Method:    http.MethodPost,
		Streaming: true,
	})
	ret.register(&Entry{
		Tool: schema.Tool{
			Name:        "modify_code",
			Description: description("Apply a modification task to source files; returns a progress stream locator"),
			InputSchema: objectSchema(schema.ToolInputSchemaProperties{
				"files": stringListProperty("Source files to modify"),
				"task":  stringProperty("Natural language description of the modification"),
			}, "files", "task"),
		},
		Endpoint:  "/modify",
		Method:    http.MethodPost,
		Streaming: true,
	})
	ret.register(&Entry{
		Tool: schema.Tool{
			Name:        "execute_code",
			Description: description("Execute a code snippet in the backend sandbox"),
			InputSchema: objectSchema(schema.ToolInputSchemaProperties{
				"code":     stringProperty("Code to execute"),
				"language": stringProperty("Implementation language"),
			}, "code"),
		},
		Endpoint: "/execute",
		Method:   http.MethodPost,
	})
	ret.register(&Entry{
		Tool: schema.Tool{
			Name:        "search_code",
			Description: description("Search the workspace for symbols or text"),
			InputSchema: objectSchema(schema.ToolInputSchemaProperties{
				"query": stringProperty("Search query"),
				"path":  stringProperty("Optional path restricting the search"),
			}, "query"),
		},
		Endpoint: "/search",
		Method:   http.MethodPost,
	})
	ret.register(&Entry{
		Tool: schema.Tool{
			Name:        "create_checkpoint",
			Description: description("Create a named checkpoint of the current workspace state"),
			InputSchema: objectSchema(schema.ToolInputSchemaProperties{
				"name":        stringProperty("Checkpoint name"),
				"description": stringProperty("Optional checkpoint description"),
			}),
		},
		Endpoint: "/checkpoint",
		Method:   http.MethodPost,
	})
	ret.register(&Entry{
		Tool: schema.Tool{
			Name:        "rollback_changes",
			Description: description("Roll the workspace back to a previously created checkpoint"),
			InputSchema: objectSchema(schema.ToolInputSchemaProperties{
				"checkpoint": stringProperty("Checkpoint name or id"),
			}, "checkpoint"),
		},
		Endpoint: "/rollback",
		Method:   http.MethodPost,
	})
	ret.register(&Entry{
		Tool: schema.Tool{
			Name:        "configure_backend",
			Description: description("Update backend analysis settings"),
			InputSchema: objectSchema(schema.ToolInputSchemaProperties{
				"settings": map[string]interface{}{
					"type":        "object",
					"description": "Settings applied to the backend",
				},
			}, "settings"),
		},
		Endpoint: "/config",
		Method:   http.MethodPost,
	})
	return ret
}
