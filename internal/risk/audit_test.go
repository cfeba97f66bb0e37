package risk

import (
	"strings"
	"testing"
	"time"
)

func TestSummarizeInput(t *testing.T) {
	t.Parallel()

	got := summarizeInput(map[string]string{"url": "https://example.com", "password": "hunter2"})
	if strings.Contains(got, "hunter2") {
		t.Fatalf("summary leaked a redacted value: %q", got)
	}
	if !strings.Contains(got, `password="[redacted]"`) || !strings.Contains(got, `url="https://example.com"`) {
		t.Fatalf("summary = %q", got)
	}

	long := strings.Repeat("x", 300)
	got = summarizeInput(map[string]string{"text": long})
	if strings.Contains(got, long) {
		t.Fatal("long values must be truncated")
	}
	if !strings.Contains(got, "…") {
		t.Fatalf("truncated summary missing ellipsis: %q", got)
	}

	if got := summarizeInput(nil); got != "" {
		t.Fatalf("nil input summary = %q, want empty", got)
	}
}

func TestAuditEntryLine(t *testing.T) {
	t.Parallel()
	e := AuditEntry{Tool: ToolShell, Level: LevelHigh, Reason: "shell command category: git_write"}

	if got := e.Line(); got != "high run_shell_command: shell command category: git_write" {
		t.Fatalf("Line() = %q", got)
	}
	approved := true
	e.Approved = &approved
	if got := e.Line(); !strings.HasSuffix(got, " (approved)") {
		t.Fatalf("Line() = %q, want approved suffix", got)
	}
	approved = false
	if got := e.Line(); !strings.HasSuffix(got, " (denied)") {
		t.Fatalf("Line() = %q, want denied suffix", got)
	}
}

func TestFormatAuditLog(t *testing.T) {
	t.Parallel()
	ts := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	denied := false
	entries := []AuditEntry{
		{
			Timestamp:    ts,
			Tool:         ToolShell,
			Level:        LevelCritical,
			Reason:       "dangerous shell command: recursive delete at filesystem root",
			Method:       MethodHeuristic,
			Approved:     &denied,
			InputSummary: `command="rm -rf /"`,
			AppContext:   "Terminal",
		},
		{
			Timestamp: ts.Add(time.Minute),
			Tool:      "memory_note",
			Level:     LevelModerate,
			Reason:    "internal bookkeeping tool",
			Method:    MethodHeuristic,
		},
	}

	got := formatAuditLog("run-42", entries)
	for _, want := range []string{
		"## Run run-42",
		"`2025-03-04T05:06:07Z` **critical** run_shell_command (heuristic, denied): dangerous shell command",
		`| command="rm -rf /"`,
		"| ctx: Terminal",
		"**moderate** memory_note (heuristic, -): internal bookkeeping tool",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("log missing %q:\n%s", want, got)
		}
	}
}
