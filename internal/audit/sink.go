// Package audit persists the safety gate's formatted log segments to
// date-named markdown files.
package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type FileSink struct {
	mu  sync.Mutex
	dir string
}

func NewFileSink(dir string) *FileSink {
	return &FileSink{dir: dir}
}

// Append writes one segment to audit-YYYY-MM-DD.md under the sink directory,
// creating the directory and file as needed.
func (s *FileSink) Append(segment string, day time.Time) error {
	if segment == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create audit dir: %w", err)
	}
	path := filepath.Join(s.dir, fmt.Sprintf("audit-%s.md", day.UTC().Format("2006-01-02")))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open audit file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(segment); err != nil {
		return fmt.Errorf("append audit segment: %w", err)
	}
	return nil
}
