// Package session lays out the on-disk artifact directories a run writes
// into: audit logs, command transcripts, notes, and reports all live under
// one base directory.
package session

import (
	"fmt"
	"os"
	"path/filepath"
)

type Layout struct {
	BaseDir string
}

func NewLayout(baseDir string) Layout {
	if baseDir == "" {
		baseDir = "runs"
	}
	return Layout{BaseDir: baseDir}
}

func (l Layout) AuditDir() string    { return filepath.Join(l.BaseDir, "audit") }
func (l Layout) CommandsDir() string { return filepath.Join(l.BaseDir, "commands") }
func (l Layout) NotesDir() string    { return filepath.Join(l.BaseDir, "notes") }
func (l Layout) ReportsDir() string  { return filepath.Join(l.BaseDir, "reports") }

// Ensure creates the artifact directories up front so a run never fails on
// its first write.
func (l Layout) Ensure() error {
	for _, dir := range []string{l.AuditDir(), l.CommandsDir(), l.NotesDir(), l.ReportsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}
