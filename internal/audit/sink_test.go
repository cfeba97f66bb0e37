package audit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFileSinkAppend(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "nested", "audit")
	s := NewFileSink(dir)
	day := time.Date(2025, 3, 4, 23, 59, 0, 0, time.UTC)

	if err := s.Append("## Run a\n", day); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Append("## Run b\n", day); err != nil {
		t.Fatalf("Append: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "audit-2025-03-04.md"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	got := string(raw)
	if !strings.Contains(got, "## Run a") || !strings.Contains(got, "## Run b") {
		t.Fatalf("file = %q, want both segments appended", got)
	}
	if strings.Index(got, "## Run a") > strings.Index(got, "## Run b") {
		t.Fatal("segments out of order")
	}
}

func TestFileSinkSplitsByDay(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	s := NewFileSink(dir)

	if err := s.Append("one\n", time.Date(2025, 3, 4, 12, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Append("two\n", time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("Append: %v", err)
	}

	for _, name := range []string{"audit-2025-03-04.md", "audit-2025-03-05.md"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
	}
}

func TestFileSinkEmptySegment(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	s := NewFileSink(dir)

	if err := s.Append("", time.Now()); err != nil {
		t.Fatalf("Append: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatal("empty segment must not create a file")
	}
}
