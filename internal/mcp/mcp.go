// Package mcp provides the exrun MCP server, exposing the check, run
// and batch operations as tools.
package mcp

import (
	_ "embed"
	"io"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/deixis/exrun"
	"github.com/deixis/exrun/internal/report"
	"github.com/deixis/exrun/internal/workflow"
)

//go:embed instructions.md
var Instructions string

// handler holds shared dependencies for all tool handlers.
type handler struct {
	// mu keeps at most one example process running across sessions.
	mu     sync.Mutex
	engine *workflow.Engine
	store  report.Store
}

// NewServer creates an MCP server with all exrun tools registered.
// The engine's console output is discarded; results are returned as
// tool content instead.
func NewServer(engine *workflow.Engine, store report.Store) *mcp.Server {
	engine.Out = io.Discard
	h := &handler{engine: engine, store: store}

	s := mcp.NewServer(&mcp.Implementation{Name: "exrun", Version: exrun.Version}, &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
	})

	mcp.AddTool(s, &mcp.Tool{
		Name:        "exrun_check",
		Description: "Check that every example in the catalog has been built. Lists missing executables.",
	}, h.checkHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "exrun_run",
		Description: `Run one example from the catalog with the default time budget.

Returns the outcome (ok, FAIL, TIMEOUT, LAUNCH FAILED) and a run ID for exrun_inspect.`,
	}, h.runHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "exrun_all",
		Description: `Run every example in catalog order, each with its own time budget.

Failures do not stop the batch. Returns a summary and a run ID for exrun_inspect.`,
	}, h.allHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "exrun_inspect",
		Description: "Show captured stdout and stderr for one example of a previous exrun_run or exrun_all result.",
	}, h.inspectHandler)

	return s
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult is a helper to build an error tool result.
func errorResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}
