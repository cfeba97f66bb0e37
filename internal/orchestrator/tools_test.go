package orchestrator

import (
	"context"
	"strings"
	"testing"

	"github.com/deskpilot-core/deskpilot/internal/exec"
	"github.com/deskpilot-core/deskpilot/internal/risk"
)

type fakeUI struct {
	calls []risk.ToolCall
}

func (f *fakeUI) Execute(ctx context.Context, call risk.ToolCall) (string, error) {
	f.calls = append(f.calls, call)
	return "ui: " + call.Name, nil
}

func TestDispatcherRoutesShell(t *testing.T) {
	t.Parallel()
	d := &Dispatcher{Shell: &exec.Runner{}, NotesDir: t.TempDir()}
	d.StartRun("run-1")

	out, err := d.Execute(context.Background(), risk.ToolCall{
		Name:  risk.ToolShell,
		Input: map[string]string{"command": "echo routed"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out, "routed") {
		t.Fatalf("output = %q", out)
	}
}

func TestDispatcherShellNotConfigured(t *testing.T) {
	t.Parallel()
	d := &Dispatcher{}
	d.StartRun("run-1")

	if _, err := d.Execute(context.Background(), risk.ToolCall{Name: risk.ToolShell}); err == nil {
		t.Fatal("expected an error without a shell runner")
	}
}

func TestDispatcherRoutesBookkeeping(t *testing.T) {
	t.Parallel()
	d := &Dispatcher{NotesDir: t.TempDir()}
	d.StartRun("run-1")

	if _, err := d.Execute(context.Background(), risk.ToolCall{
		Name:  "memory_note",
		Input: map[string]string{"note": "the export lives under Settings"},
	}); err != nil {
		t.Fatalf("memory_note: %v", err)
	}
	if _, err := d.Execute(context.Background(), risk.ToolCall{
		Name:  "task_update",
		Input: map[string]string{"step": "step-1", "status": "done"},
	}); err != nil {
		t.Fatalf("task_update: %v", err)
	}

	notes := d.Notes()
	if !strings.Contains(notes, "the export lives under Settings") {
		t.Fatalf("notes = %q", notes)
	}
	if !strings.Contains(notes, "step-1: done") {
		t.Fatalf("notes = %q", notes)
	}
}

func TestDispatcherBookkeepingWithoutRun(t *testing.T) {
	t.Parallel()
	d := &Dispatcher{}
	if _, err := d.Execute(context.Background(), risk.ToolCall{Name: "memory_note"}); err == nil {
		t.Fatal("expected no-active-run error")
	}
	if _, err := d.Execute(context.Background(), risk.ToolCall{Name: "task_update"}); err == nil {
		t.Fatal("expected no-active-run error")
	}
}

func TestDispatcherRoutesUIByDefault(t *testing.T) {
	t.Parallel()
	ui := &fakeUI{}
	d := &Dispatcher{UI: ui, NotesDir: t.TempDir()}
	d.StartRun("run-1")

	out, err := d.Execute(context.Background(), risk.ToolCall{Name: risk.ToolClick})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out != "ui: click" || len(ui.calls) != 1 {
		t.Fatalf("out = %q calls = %d", out, len(ui.calls))
	}

	d.UI = nil
	if _, err := d.Execute(context.Background(), risk.ToolCall{Name: risk.ToolClick}); err == nil {
		t.Fatal("expected an error without a ui driver")
	}
}

func TestDispatcherEndRunWithoutStart(t *testing.T) {
	t.Parallel()
	d := &Dispatcher{}
	if err := d.EndRun(); err != nil {
		t.Fatalf("EndRun: %v", err)
	}
	if d.Notes() != "" {
		t.Fatal("notes must be empty without a run")
	}
}

func TestDefaultToolSchemas(t *testing.T) {
	t.Parallel()
	schemas := DefaultToolSchemas()
	byName := map[string]bool{}
	for _, s := range schemas {
		if s.Name == "" || s.Description == "" {
			t.Fatalf("schema missing name or description: %+v", s)
		}
		if byName[s.Name] {
			t.Fatalf("duplicate schema %q", s.Name)
		}
		byName[s.Name] = true
		if s.Parameters["type"] != "object" {
			t.Fatalf("%s: parameters must be an object schema", s.Name)
		}
	}
	for _, want := range []string{
		risk.ToolClick, risk.ToolTypeText, risk.ToolPressKey, risk.ToolOpenURL,
		risk.ToolShell, "scroll", "screenshot", "get_ui_tree", "wait",
		"memory_note", "task_update",
	} {
		if !byName[want] {
			t.Fatalf("schema %q missing", want)
		}
	}
}
