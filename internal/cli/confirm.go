// Package cli holds the terminal-facing pieces of the agent: the approval
// prompt shown when the gate demands confirmation.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/deskpilot-core/deskpilot/internal/graph"
)

// SessionApprover remembers an approved command category for the rest of
// the run. The gate implements it.
type SessionApprover interface {
	RecordSessionApproval(category string, approved bool)
}

// Confirmer asks the operator to approve a risky action. It implements
// graph.Confirmer; the state machine enforces the timeout, so a prompt left
// unanswered simply loses the race.
type Confirmer struct {
	In       io.Reader
	Out      io.Writer
	Approver SessionApprover
	// IsTerminal overrides TTY detection in tests.
	IsTerminal func() bool
}

func (c *Confirmer) Decide(ctx context.Context, req graph.ApprovalRequest, w *graph.ConfirmationWaiter) {
	if !c.interactive() {
		// No operator to ask; fail closed.
		w.Deny()
		return
	}

	out := c.Out
	if out == nil {
		out = os.Stdout
	}
	in := c.In
	if in == nil {
		in = os.Stdin
	}

	prompt := req.Prompt
	if prompt == "" {
		prompt = fmt.Sprintf("Allow %s?", req.Tool)
	}
	fmt.Fprintf(out, "\n[%s] %s\n", strings.ToUpper(req.Level.String()), prompt)
	if req.CacheKey != "" && c.Approver != nil {
		fmt.Fprint(out, "Approve? [y]es / [N]o / [a]lways for this category: ")
	} else {
		fmt.Fprint(out, "Approve? [y]es / [N]o: ")
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		w.Deny()
		return
	}
	if w.Settled() {
		// Answer arrived after the timeout; it no longer counts.
		fmt.Fprintln(out, "(too late, the action was already denied)")
		return
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		w.Approve()
	case "a", "always":
		if req.CacheKey != "" && c.Approver != nil {
			c.Approver.RecordSessionApproval(req.CacheKey, true)
			w.Approve()
			return
		}
		w.Deny()
	default:
		w.Deny()
	}
}

func (c *Confirmer) interactive() bool {
	if c.IsTerminal != nil {
		return c.IsTerminal()
	}
	if f, ok := c.In.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	if c.In != nil {
		return true
	}
	return term.IsTerminal(int(os.Stdin.Fd()))
}
