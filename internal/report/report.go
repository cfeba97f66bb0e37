// Package report renders a per-run markdown report: what was asked, what
// happened, and which risky actions the gate audited along the way.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type Info struct {
	RunID        string
	Task         string
	Outcome      string
	Summary      string
	Iterations   int
	InputTokens  int
	OutputTokens int
	StartedAt    time.Time
	FinishedAt   time.Time
	// Audited holds pre-formatted lines from the safety gate's audit log.
	Audited []string
	Plan    string
	Notes   string
}

func Generate(outPath string, info Info) error {
	if outPath == "" {
		return fmt.Errorf("output path is required")
	}
	if info.RunID == "" {
		return fmt.Errorf("run id is required")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Run report: %s\n\n", info.RunID)
	fmt.Fprintf(&b, "- Task: %s\n", info.Task)
	fmt.Fprintf(&b, "- Outcome: %s\n", info.Outcome)
	if info.Summary != "" {
		fmt.Fprintf(&b, "- Summary: %s\n", info.Summary)
	}
	fmt.Fprintf(&b, "- Iterations: %d\n", info.Iterations)
	fmt.Fprintf(&b, "- Tokens: %d in / %d out\n", info.InputTokens, info.OutputTokens)
	if !info.StartedAt.IsZero() && !info.FinishedAt.IsZero() {
		fmt.Fprintf(&b, "- Duration: %s\n", info.FinishedAt.Sub(info.StartedAt).Round(time.Second))
	}

	if info.Plan != "" {
		b.WriteString("\n## Plan\n\n")
		b.WriteString(strings.TrimSpace(info.Plan))
		b.WriteString("\n")
	}

	b.WriteString("\n## Audited actions\n\n")
	if len(info.Audited) == 0 {
		b.WriteString("None.\n")
	} else {
		for _, line := range info.Audited {
			fmt.Fprintf(&b, "- %s\n", line)
		}
	}

	if info.Notes != "" {
		b.WriteString("\n## Notes\n\n")
		b.WriteString(strings.TrimSpace(info.Notes))
		b.WriteString("\n")
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	if err := os.WriteFile(outPath, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
