package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/deixis/exrun/internal/locator"
	"github.com/deixis/exrun/internal/report"
	"github.com/deixis/exrun/internal/workflow"
)

type checkParams struct{}

func (h *handler) checkHandler(ctx context.Context, req *mcp.CallToolRequest, _ checkParams) (*mcp.CallToolResult, any, error) {
	err := h.engine.Check()
	var missing *locator.MissingError
	if errors.As(err, &missing) {
		return textResult(fmt.Sprintf("Status: FAIL\nDirectory: %s\nMissing: %s\n", missing.Dir, strings.Join(missing.Names, ", ")))
	}
	if err != nil {
		return errorResult(fmt.Sprintf("check failed: %v", err))
	}
	return textResult(fmt.Sprintf("Status: PASS\nDirectory: %s\nExamples: %d\n", h.engine.Location.Dir, len(h.engine.Config.Catalog())))
}

type runParams struct {
	Name string `json:"name" jsonschema:"catalog name of the example to run (e.g. 02_timers)"`
}

func (h *handler) runHandler(ctx context.Context, req *mcp.CallToolRequest, params runParams) (*mcp.CallToolResult, any, error) {
	if params.Name == "" {
		return errorResult("name is required")
	}
	h.mu.Lock()
	rr, err := h.engine.RunOne(ctx, params.Name)
	h.mu.Unlock()
	return h.finish(rr, err)
}

type allParams struct{}

func (h *handler) allHandler(ctx context.Context, req *mcp.CallToolRequest, _ allParams) (*mcp.CallToolResult, any, error) {
	h.mu.Lock()
	rr, err := h.engine.RunAll(ctx)
	h.mu.Unlock()
	return h.finish(rr, err)
}

// finish stores rr for exrun_inspect and renders it.
func (h *handler) finish(rr *report.RunResult, err error) (*mcp.CallToolResult, any, error) {
	if len(rr.Missing) > 0 {
		return textResult(fmt.Sprintf("Status: FAIL\nMissing: %s\n", strings.Join(rr.Missing, ", ")))
	}
	if err != nil && !errors.Is(err, workflow.ErrInterrupted) {
		return errorResult(fmt.Sprintf("run failed: %v", err))
	}

	// Save results for exrun_inspect.
	if err := h.store.Save(rr); err != nil {
		return errorResult(fmt.Sprintf("saving run %s: %v", rr.ID, err))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Run: %s (%s)\n\n", rr.ID, rr.Kind)
	b.WriteString(workflow.FormatSummary(rr))
	if !rr.Passed() {
		fmt.Fprintf(&b, "\nUse exrun_inspect with run_id %q and a name to see captured output.\n", rr.ID)
	}
	return textResult(b.String())
}

type inspectParams struct {
	RunID string `json:"run_id" jsonschema:"the run ID from an exrun_run or exrun_all result"`
	Name  string `json:"name" jsonschema:"example name within that run"`
}

func (h *handler) inspectHandler(ctx context.Context, req *mcp.CallToolRequest, params inspectParams) (*mcp.CallToolResult, any, error) {
	if params.RunID == "" {
		return errorResult("run_id is required")
	}
	if params.Name == "" {
		return errorResult("name is required")
	}

	rr, err := h.store.Load(params.RunID)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to load run %s: %v", params.RunID, err))
	}
	rec, ok := rr.Lookup(params.Name)
	if !ok {
		return textResult(fmt.Sprintf("No run of %s in run %s (%s).", params.Name, params.RunID, rr.Kind))
	}
	return textResult(formatInspect(rec))
}

func formatInspect(rec report.RunRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s (%s)\n", rec.Name, rec.Outcome(), rec.Duration())
	if rec.Reason != "" {
		fmt.Fprintf(&b, "Reason: %s\n", rec.Reason)
	}
	section := func(label, text string) {
		if text == "" {
			return
		}
		fmt.Fprintf(&b, "\n%s:\n", label)
		for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
			fmt.Fprintf(&b, "    %s\n", line)
		}
	}
	section("Stdout", rec.Stdout)
	section("Stderr", rec.Stderr)
	if rec.Truncated {
		fmt.Fprintln(&b, "\n(output truncated)")
	}
	return b.String()
}
