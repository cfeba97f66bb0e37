// Package exec runs shell commands on behalf of the agent. Safety decisions
// happen upstream in the gate; by the time a command reaches the Runner it
// has already been classified and, where required, approved.
package exec

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultShell     = "/bin/sh"
	defaultTimeout   = 30 * time.Second
	defaultMaxOutput = 8 * 1024
)

type Runner struct {
	Shell     string        // defaults to /bin/sh
	Timeout   time.Duration // per-command deadline, defaults to 30s
	LogDir    string        // command transcript directory, empty disables transcripts
	MaxOutput int           // bytes of combined output retained, defaults to 8 KiB
	Now       func() time.Time
}

type CommandResult struct {
	Command  string
	Output   string
	ExitCode int
	Duration time.Duration
	LogPath  string
}

// Run executes command through the shell and returns its combined output.
// On timeout the whole process group is killed, not just the shell.
func (r *Runner) Run(ctx context.Context, command string) (CommandResult, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return CommandResult{}, fmt.Errorf("command is required")
	}

	shell := r.Shell
	if shell == "" {
		shell = defaultShell
	}
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	now := r.Now
	if now == nil {
		now = time.Now
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, shell, "-c", command)
	setProcessGroup(cmd)
	cmd.Cancel = func() error {
		killProcessTree(cmd)
		return nil
	}
	cmd.WaitDelay = 2 * time.Second

	start := now()
	output, err := cmd.CombinedOutput()
	result := CommandResult{
		Command:  command,
		Output:   truncateOutput(string(output), r.maxOutput()),
		Duration: now().Sub(start),
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("command timed out after %s", timeout)
	} else if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			err = fmt.Errorf("command exited with status %d", result.ExitCode)
		}
	}

	if path, logErr := r.writeTranscript(result, now()); logErr == nil {
		result.LogPath = path
	}
	return result, err
}

func (r *Runner) maxOutput() int {
	if r.MaxOutput > 0 {
		return r.MaxOutput
	}
	return defaultMaxOutput
}

func truncateOutput(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max] + "\n[output truncated]"
}

func (r *Runner) writeTranscript(result CommandResult, ts time.Time) (string, error) {
	if r.LogDir == "" {
		return "", os.ErrNotExist
	}
	if err := os.MkdirAll(r.LogDir, 0o755); err != nil {
		return "", fmt.Errorf("create log dir: %w", err)
	}
	path := filepath.Join(r.LogDir, fmt.Sprintf("cmd-%s.log", ts.UTC().Format("20060102-150405.000000000")))
	content := fmt.Sprintf("$ %s\n\n%s\n", result.Command, result.Output)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write transcript: %w", err)
	}
	return path, nil
}
