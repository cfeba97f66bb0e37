package orchestrator

import (
	"context"
	"fmt"

	"github.com/deskpilot-core/deskpilot/internal/exec"
	"github.com/deskpilot-core/deskpilot/internal/graph"
	"github.com/deskpilot-core/deskpilot/internal/llm"
	"github.com/deskpilot-core/deskpilot/internal/memory"
	"github.com/deskpilot-core/deskpilot/internal/risk"
)

// Dispatcher routes tool calls to their executors: shell commands to the
// command runner, bookkeeping to the note store, everything else to the UI
// driver. It implements graph.Executor.
type Dispatcher struct {
	UI       graph.Executor
	Shell    *exec.Runner
	NotesDir string

	notes *memory.Store
}

// StartRun resets per-run state. The orchestrator calls this alongside the
// gate's StartRun.
func (d *Dispatcher) StartRun(runID string) {
	d.notes = memory.NewStore(d.NotesDir, runID)
}

// EndRun persists the run's notes.
func (d *Dispatcher) EndRun() error {
	if d.notes == nil {
		return nil
	}
	return d.notes.Flush()
}

// Notes exposes the run's note snapshot for prompt building.
func (d *Dispatcher) Notes() string {
	if d.notes == nil {
		return ""
	}
	return d.notes.Snapshot()
}

func (d *Dispatcher) Execute(ctx context.Context, call risk.ToolCall) (string, error) {
	switch call.Name {
	case risk.ToolShell:
		if d.Shell == nil {
			return "", fmt.Errorf("shell execution is not configured")
		}
		result, err := d.Shell.Run(ctx, call.Arg("command"))
		if err != nil {
			if result.Output != "" {
				return result.Output, err
			}
			return "", err
		}
		if result.Output == "" {
			return "(no output)", nil
		}
		return result.Output, nil
	case "memory_note":
		if d.notes == nil {
			return "", fmt.Errorf("no active run")
		}
		d.notes.AddNote(call.Arg("note"))
		return "noted", nil
	case "task_update":
		if d.notes == nil {
			return "", fmt.Errorf("no active run")
		}
		d.notes.RecordTask(call.Arg("step"), call.Arg("status"), call.Arg("detail"))
		return "recorded", nil
	default:
		if d.UI == nil {
			return "", fmt.Errorf("ui driver is not configured")
		}
		return d.UI.Execute(ctx, call)
	}
}

// DefaultToolSchemas is the tool surface offered to the model. The schemas
// stay flat string maps so classified inputs and executed inputs match.
func DefaultToolSchemas() []llm.ToolSchema {
	str := func(desc string) map[string]any {
		return map[string]any{"type": "string", "description": desc}
	}
	obj := func(props map[string]any, required ...string) map[string]any {
		p := map[string]any{"type": "object", "properties": props}
		if len(required) > 0 {
			p["required"] = required
		}
		return p
	}
	return []llm.ToolSchema{
		{
			Name:        risk.ToolClick,
			Description: "Click the element matching the selector or visible text.",
			Parameters: obj(map[string]any{
				"selector": str("CSS selector of the target element"),
				"text":     str("visible text or label of the target element"),
			}),
		},
		{
			Name:        risk.ToolTypeText,
			Description: "Type text into the focused element or the element matching the selector.",
			Parameters: obj(map[string]any{
				"text":     str("text to type"),
				"selector": str("optional CSS selector to focus first"),
			}, "text"),
		},
		{
			Name:        risk.ToolPressKey,
			Description: "Press a key or key combination, e.g. enter, escape, cmd+a.",
			Parameters:  obj(map[string]any{"key": str("key or combination to press")}, "key"),
		},
		{
			Name:        risk.ToolOpenURL,
			Description: "Navigate the browser to a URL.",
			Parameters:  obj(map[string]any{"url": str("absolute URL to open")}, "url"),
		},
		{
			Name:        "scroll",
			Description: "Scroll the page by a number of pixels, negative for up.",
			Parameters:  obj(map[string]any{"amount": str("pixels to scroll, e.g. 600 or -300")}),
		},
		{
			Name:        "screenshot",
			Description: "Capture the current page so the next observation includes a fresh image.",
			Parameters:  obj(map[string]any{}),
		},
		{
			Name:        "get_ui_tree",
			Description: "Read a text summary of the visible interactive elements.",
			Parameters:  obj(map[string]any{}),
		},
		{
			Name:        "wait",
			Description: "Pause briefly to let the page settle.",
			Parameters:  obj(map[string]any{"seconds": str("seconds to wait, default 1")}),
		},
		{
			Name:        risk.ToolShell,
			Description: "Run a shell command and return its combined output.",
			Parameters:  obj(map[string]any{"command": str("command line to execute")}, "command"),
		},
		{
			Name:        "memory_note",
			Description: "Record a fact worth remembering for the rest of the run.",
			Parameters:  obj(map[string]any{"note": str("the fact to remember")}, "note"),
		},
		{
			Name:        "task_update",
			Description: "Report progress on the current plan step: done, failed, or skipped.",
			Parameters: obj(map[string]any{
				"step":   str("step id being updated"),
				"status": str("done, failed, or skipped"),
				"detail": str("optional short explanation"),
			}, "status"),
		},
	}
}
