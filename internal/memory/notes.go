// Package memory keeps the agent's scratch notes for one run: facts the
// model asked to remember and task status updates, persisted as a markdown
// artifact next to the run's other outputs.
package memory

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

type Note struct {
	At   time.Time
	Kind string // "note" or "task"
	Text string
}

type Store struct {
	mu    sync.Mutex
	dir   string
	runID string
	notes []Note
	now   func() time.Time
}

// NewStore creates a note store for one run. dir may be empty, in which
// case notes are kept in memory only.
func NewStore(dir, runID string) *Store {
	return &Store{dir: dir, runID: runID, now: time.Now}
}

func (s *Store) AddNote(text string) {
	s.add("note", text)
}

// RecordTask records a task_update bookkeeping call, e.g. "step-2: done".
func (s *Store) RecordTask(step, status, detail string) {
	line := step + ": " + status
	if detail != "" {
		line += " (" + detail + ")"
	}
	s.add("task", line)
}

func (s *Store) add(kind, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	s.mu.Lock()
	s.notes = append(s.notes, Note{At: s.now(), Kind: kind, Text: text})
	s.mu.Unlock()
}

// Snapshot renders the notes for inclusion in a prompt. Empty when nothing
// was recorded.
func (s *Store) Snapshot() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.notes) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Notes so far:\n")
	for _, n := range s.notes {
		fmt.Fprintf(&b, "- [%s] %s\n", n.Kind, n.Text)
	}
	return b.String()
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.notes)
}

// Flush writes the accumulated notes to notes-<runID>.md. A run with no
// notes writes nothing.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dir == "" || len(s.notes) == 0 {
		return nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create notes dir: %w", err)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# Run %s notes\n\n", s.runID)
	for _, n := range s.notes {
		fmt.Fprintf(&b, "- %s [%s] %s\n", n.At.UTC().Format(time.RFC3339), n.Kind, n.Text)
	}
	path := filepath.Join(s.dir, "notes-"+s.runID+".md")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write notes: %w", err)
	}
	return nil
}
