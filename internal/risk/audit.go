package risk

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// AuditEntry records one gated decision. Entries below moderate are never
// recorded; that keeps log volume bounded without losing signal.
type AuditEntry struct {
	Timestamp    time.Time
	RunID        string
	Tool         string
	InputSummary string
	Level        RiskLevel
	Reason       string
	Method       Method
	Approved     *bool
	AppContext   string
}

// AuditSink persists one formatted log segment; files are named by date.
type AuditSink interface {
	Append(segment string, day time.Time) error
}

func newAuditEntry(runID string, call ToolCall, actx ActionContext, v Verdict, now time.Time) AuditEntry {
	return AuditEntry{
		Timestamp:    now,
		RunID:        runID,
		Tool:         call.Name,
		InputSummary: summarizeInput(call.Input),
		Level:        v.Level,
		Reason:       v.Reason,
		Method:       v.Method,
		AppContext:   summarizeContext(actx),
	}
}

const maxInputSummaryLen = 120

func summarizeInput(input map[string]string) string {
	redacted := RedactInput(input)
	keys := make([]string, 0, len(redacted))
	for key := range redacted {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		value := redacted[key]
		if len(value) > maxInputSummaryLen {
			value = value[:maxInputSummaryLen] + "…"
		}
		parts = append(parts, fmt.Sprintf("%s=%q", key, value))
	}
	return strings.Join(parts, " ")
}

func summarizeContext(actx ActionContext) string {
	parts := make([]string, 0, 3)
	if actx.ActiveAppName != "" {
		parts = append(parts, actx.ActiveAppName)
	}
	if actx.WindowTitle != "" {
		parts = append(parts, actx.WindowTitle)
	}
	if actx.CurrentURL != "" {
		parts = append(parts, actx.CurrentURL)
	}
	return strings.Join(parts, " | ")
}

// Line renders the entry as a single summary line for run reports.
func (e AuditEntry) Line() string {
	line := fmt.Sprintf("%s %s: %s", e.Level, e.Tool, e.Reason)
	if e.Approved != nil {
		if *e.Approved {
			line += " (approved)"
		} else {
			line += " (denied)"
		}
	}
	return line
}

// formatAuditLog renders the run's entries as a markdown segment for the sink.
func formatAuditLog(runID string, entries []AuditEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Run %s\n\n", runID)
	for _, e := range entries {
		approved := "-"
		if e.Approved != nil {
			if *e.Approved {
				approved = "approved"
			} else {
				approved = "denied"
			}
		}
		fmt.Fprintf(&b, "- `%s` **%s** %s (%s, %s): %s",
			e.Timestamp.UTC().Format(time.RFC3339), e.Level, e.Tool, e.Method, approved, e.Reason)
		if e.InputSummary != "" {
			fmt.Fprintf(&b, " | %s", e.InputSummary)
		}
		if e.AppContext != "" {
			fmt.Fprintf(&b, " | ctx: %s", e.AppContext)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String()
}
