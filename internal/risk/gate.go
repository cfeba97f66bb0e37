package risk

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Read-only observation tools short-circuit to safe at zero evaluation cost.
var readOnlyTools = map[string]struct{}{
	"screenshot":      {},
	"read_screen":     {},
	"get_ui_tree":     {},
	"read_text":       {},
	"scroll":          {},
	"wait":            {},
	"focused_element": {},
}

// Internal low-risk bookkeeping tools: moderate, auto-approved, logged.
var bookkeepingTools = map[string]struct{}{
	"memory_note": {},
	"task_update": {},
}

// Gate is the single mandatory choke point: every proposed action passes
// through Evaluate before any executor runs it. It exclusively owns the
// session-approval cache and the audit log for its run; the lock is never
// held across the arbiter's network call.
type Gate struct {
	mode       PermissionMode
	classifier *Classifier
	arbiter    *Arbiter
	sink       AuditSink
	log        zerolog.Logger
	now        func() time.Time

	mu        sync.Mutex
	runID     string
	entries   []AuditEntry
	approvals map[string]bool
}

func NewGate(mode PermissionMode, arbiter *Arbiter, sink AuditSink, log zerolog.Logger) *Gate {
	return &Gate{
		mode:       mode,
		classifier: NewClassifier(mode),
		arbiter:    arbiter,
		sink:       sink,
		log:        log,
		now:        time.Now,
		approvals:  map[string]bool{},
	}
}

// StartRun resets the approval cache and audit log. It must be called exactly
// once before the first Evaluate of a run.
func (g *Gate) StartRun(runID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.runID = runID
	g.entries = nil
	g.approvals = map[string]bool{}
	g.log.Info().Str("run_id", runID).Str("mode", string(g.mode)).Msg("safety gate armed")
}

// EndRun flushes the accumulated audit log to the sink (no-op when empty)
// and clears the current run. Idempotent.
func (g *Gate) EndRun() error {
	g.mu.Lock()
	runID := g.runID
	entries := g.entries
	g.runID = ""
	g.entries = nil
	g.mu.Unlock()

	if runID == "" || len(entries) == 0 || g.sink == nil {
		return nil
	}
	if err := g.sink.Append(formatAuditLog(runID, entries), g.now()); err != nil {
		return fmt.Errorf("flush audit log: %w", err)
	}
	return nil
}

// Evaluate classifies one proposed action. Uncertain heuristic results are
// escalated to the arbiter; every verdict at moderate or above is audited.
func (g *Gate) Evaluate(ctx context.Context, call ToolCall, actx ActionContext) Verdict {
	if _, ok := readOnlyTools[call.Name]; ok {
		return verdict(call, LevelSafe, "read-only observation tool")
	}
	if _, ok := bookkeepingTools[call.Name]; ok {
		v := verdict(call, LevelModerate, "internal bookkeeping tool")
		g.record(call, actx, v)
		return v
	}

	v, certain := g.classifier.Classify(call, actx)
	if !certain && g.arbiter != nil {
		// No gate lock is held here; arbitration does network I/O.
		v = g.arbiter.Evaluate(ctx, call, actx, v)
	}
	v = g.applySessionApproval(v)

	if v.Level >= LevelModerate {
		g.record(call, actx, v)
	}
	g.log.Debug().
		Str("tool", call.Name).
		Str("level", v.Level.String()).
		Bool("requires_approval", v.RequiresApproval).
		Str("method", string(v.Method)).
		Msg("action evaluated")
	return v
}

// applySessionApproval downgrades a high verdict carrying a cache key to an
// auto-proceeding moderate when the category is session-approved and the gate
// runs in the elevated permission mode. Critical never downgrades.
func (g *Gate) applySessionApproval(v Verdict) Verdict {
	if v.SessionCacheKey == "" || v.Level != LevelHigh {
		return v
	}
	if g.mode != PermissionAll {
		return v
	}
	if !g.IsSessionApproved(v.SessionCacheKey) {
		return v
	}
	v.Level = LevelModerate
	v.RequiresApproval = false
	v.ApprovalPrompt = ""
	v.Reason = v.Reason + " (session-approved category)"
	return v
}

func (g *Gate) IsSessionApproved(category string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.approvals[category]
}

// RecordSessionApproval is called by the confirmation-UI layer after the user
// answers a prompt whose verdict carried a session cache key.
func (g *Gate) RecordSessionApproval(category string, approved bool) {
	if category == "" {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.approvals[category] = approved
}

// RecordApprovalOutcome annotates the most recent audit entry for tool with
// the human decision.
func (g *Gate) RecordApprovalOutcome(tool string, approved bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := len(g.entries) - 1; i >= 0; i-- {
		if g.entries[i].Tool == tool && g.entries[i].Approved == nil {
			outcome := approved
			g.entries[i].Approved = &outcome
			return
		}
	}
}

func (g *Gate) record(call ToolCall, actx ActionContext, v Verdict) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.entries = append(g.entries, newAuditEntry(g.runID, call, actx, v, g.now()))
}

// AuditEntries returns a copy of the current run's audit log.
func (g *Gate) AuditEntries() []AuditEntry {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]AuditEntry, len(g.entries))
	copy(out, g.entries)
	return out
}

// Mode reports the gate's permission mode.
func (g *Gate) Mode() PermissionMode {
	return g.mode
}
