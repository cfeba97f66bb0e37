// Package orchestrator owns a run's full lifecycle: it mints the run ID,
// opens and closes the safety gate's audit scope, drives the iteration
// machine, and turns the final state into a result callers can report on.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/deskpilot-core/deskpilot/internal/graph"
	"github.com/deskpilot-core/deskpilot/internal/plan"
	"github.com/deskpilot-core/deskpilot/internal/report"
	"github.com/deskpilot-core/deskpilot/internal/risk"
)

// RunResult is the externally visible outcome of one run.
type RunResult struct {
	RunID        string
	Task         string
	Success      bool
	Canceled     bool
	Iterations   int
	InputTokens  int
	OutputTokens int
	Summary      string
	StartedAt    time.Time
	FinishedAt   time.Time
}

type Orchestrator struct {
	gate    *risk.Gate
	machine *graph.Machine
	tools   *Dispatcher // may be nil when the caller wires its own executor
	log     zerolog.Logger
	now     func() time.Time

	// ReportDir, when set, receives a markdown report per run.
	ReportDir string
	// Planner, when set, drafts an execution plan before the loop starts.
	Planner *plan.LLMPlanner
}

func New(gate *risk.Gate, machine *graph.Machine, tools *Dispatcher, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		gate:    gate,
		machine: machine,
		tools:   tools,
		log:     log,
		now:     time.Now,
	}
}

// Run executes one task end to end. The orchestrator is the only caller of
// StartRun and EndRun, so the audit log is flushed exactly once per run,
// including on cancellation.
func (o *Orchestrator) Run(ctx context.Context, task string) (RunResult, error) {
	task = strings.TrimSpace(task)
	if task == "" {
		return RunResult{}, fmt.Errorf("task is required")
	}

	runID := uuid.NewString()
	result := RunResult{RunID: runID, Task: task, StartedAt: o.now()}

	o.gate.StartRun(runID)
	if o.tools != nil {
		o.tools.StartRun(runID)
	}
	defer func() {
		if err := o.gate.EndRun(); err != nil {
			o.log.Warn().Err(err).Str("run_id", runID).Msg("audit flush failed")
		}
		if o.tools != nil {
			if err := o.tools.EndRun(); err != nil {
				o.log.Warn().Err(err).Str("run_id", runID).Msg("notes flush failed")
			}
		}
	}()

	o.log.Info().Str("run_id", runID).Str("task", task).Msg("run started")

	var execPlan *plan.Plan
	if o.Planner != nil {
		drafted, planErr := o.Planner.Draft(ctx, task)
		if planErr != nil {
			// Plans are an aid, not a requirement.
			o.log.Warn().Err(planErr).Msg("plan drafting failed, running planless")
		} else {
			execPlan = drafted
			o.log.Info().Int("steps", len(drafted.Steps())).Msg("plan drafted")
		}
	}

	st, err := o.machine.RunWithPlan(ctx, runID, task, execPlan)
	result.FinishedAt = o.now()

	if st != nil {
		result.Iterations = st.Iteration
		result.InputTokens = st.InputTokens
		result.OutputTokens = st.OutputTokens
	}

	if err != nil {
		if errors.Is(err, graph.ErrRunCanceled) {
			result.Canceled = true
			result.Summary = cancelSummary(st)
			o.log.Info().Str("run_id", runID).Int("iterations", result.Iterations).Msg("run canceled")
			o.writeReport(result, st)
			return result, nil
		}
		return result, fmt.Errorf("run %s: %w", runID, err)
	}

	result.Success = st.Completed && st.PlanErr == nil && st.ErrorClass != graph.ErrResource
	result.Summary = finalSummary(st)
	o.log.Info().
		Str("run_id", runID).
		Bool("success", result.Success).
		Int("iterations", result.Iterations).
		Int("input_tokens", result.InputTokens).
		Int("output_tokens", result.OutputTokens).
		Msg("run finished")
	o.writeReport(result, st)
	return result, nil
}

// writeReport renders the run report while the gate still holds this run's
// audit entries, so it must run before EndRun flushes them.
func (o *Orchestrator) writeReport(result RunResult, st *graph.State) {
	if o.ReportDir == "" {
		return
	}
	info := report.Info{
		RunID:        result.RunID,
		Task:         result.Task,
		Outcome:      outcome(result),
		Summary:      result.Summary,
		Iterations:   result.Iterations,
		InputTokens:  result.InputTokens,
		OutputTokens: result.OutputTokens,
		StartedAt:    result.StartedAt,
		FinishedAt:   result.FinishedAt,
	}
	for _, entry := range o.gate.AuditEntries() {
		info.Audited = append(info.Audited, entry.Line())
	}
	if st != nil {
		info.Plan = st.Plan.Summary()
	}
	if o.tools != nil {
		info.Notes = o.tools.Notes()
	}
	path := filepath.Join(o.ReportDir, result.RunID+".md")
	if err := report.Generate(path, info); err != nil {
		o.log.Warn().Err(err).Str("run_id", result.RunID).Msg("report write failed")
	}
}

func outcome(result RunResult) string {
	switch {
	case result.Canceled:
		return "canceled"
	case result.Success:
		return "success"
	default:
		return "incomplete"
	}
}

func cancelSummary(st *graph.State) string {
	if st == nil {
		return "run canceled before the first iteration"
	}
	return fmt.Sprintf("run canceled at iteration %d", st.Iteration)
}

func finalSummary(st *graph.State) string {
	switch {
	case st.PlanErr != nil:
		return "run aborted: " + st.CompletionReason
	case st.ErrorClass == graph.ErrResource:
		return "run stopped on a resource error: " + st.CompletionReason
	case st.Completed:
		reason := st.CompletionReason
		if reason == "" {
			reason = "task reported complete"
		}
		if st.Plan.Aborted() {
			return reason + " (plan aborted on a critical step)"
		}
		return reason
	case st.CompletionSource == "iteration_budget":
		return fmt.Sprintf("iteration budget exhausted after %d iterations", st.Iteration)
	case st.CompletionSource == "recovery_budget":
		return "recovery budget exhausted while stuck: " + st.StuckReason
	default:
		return "run ended: " + st.CompletionSource
	}
}
