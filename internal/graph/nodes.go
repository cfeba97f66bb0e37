package graph

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/deskpilot-core/deskpilot/internal/llm"
	"github.com/deskpilot-core/deskpilot/internal/plan"
	"github.com/deskpilot-core/deskpilot/internal/risk"
	"github.com/deskpilot-core/deskpilot/internal/vision"
)

// Tools known not to change visual layout; their iterations may reuse the
// previous screenshot.
var nonVisualTools = map[string]struct{}{
	risk.ToolTypeText: {},
	risk.ToolShell:    {},
	"memory_note":     {},
	"task_update":     {},
}

const maxRecentCalls = 10

func (m *Machine) perceive(ctx context.Context) NodeKind {
	st := m.st
	st.Iteration++
	st.resetIteration()

	prev := st.Observation
	obs := &Observation{}

	if actx, err := m.cap.ActionContext(ctx); err == nil {
		obs.Context = actx
	} else {
		m.log.Warn().Err(err).Msg("action context unavailable")
		if prev != nil {
			obs.Context = prev.Context
		}
	}
	obs.Context.RecentToolCalls = append([]risk.RecentCall(nil), m.recent...)

	// The UI-tree read is cheap and disambiguates; it is never skipped.
	if tree, err := m.cap.UITreeSummary(ctx); err == nil {
		obs.UITree = tree
	} else {
		m.log.Warn().Err(err).Msg("ui tree read failed")
	}

	if m.shouldSkipScreenshot(prev) {
		st.ScreenshotSkipped = true
		if prev != nil {
			obs.Screenshot = prev.Screenshot
			obs.ScreenshotHash = prev.ScreenshotHash
			obs.HashValid = prev.HashValid
		}
	} else {
		m.captureInto(ctx, obs)
		if m.prevHadAction {
			m.idleCaptureStreak = 0
		} else {
			m.idleCaptureStreak++
		}
	}

	st.Observation = obs
	st.PreActionHash = obs.ScreenshotHash
	st.PreActionHashValid = obs.HashValid
	return NodePlan
}

// shouldSkipScreenshot trades a small risk of stale visual context for lower
// per-iteration cost: never within the first two iterations, then when the
// previous action could not change layout or two consecutive captures already
// happened with no intervening action.
func (m *Machine) shouldSkipScreenshot(prev *Observation) bool {
	if m.st.Iteration <= 2 || prev == nil {
		return false
	}
	if m.lastExecuted != "" {
		if _, ok := nonVisualTools[m.lastExecuted]; ok {
			return true
		}
	}
	return m.idleCaptureStreak >= 2
}

func (m *Machine) captureInto(ctx context.Context, obs *Observation) {
	shot, err := m.cap.CaptureScreen(ctx, m.cfg.CaptureMaxDimension, m.cfg.CaptureQuality)
	if err != nil {
		// Degrade to AX-tree-only operation for this iteration.
		m.log.Warn().Err(err).Msg("screenshot failed, continuing with ui tree only")
		return
	}
	obs.Screenshot = shot
	if hash, err := vision.AverageHash(shot); err == nil {
		obs.ScreenshotHash = hash
		obs.HashValid = true
	} else {
		m.log.Warn().Err(err).Msg("screenshot hash failed")
	}
}

func (m *Machine) plan(ctx context.Context) NodeKind {
	st := m.st

	system := m.cfg.SystemPrompt
	if m.notes != nil {
		if snapshot := m.notes(); snapshot != "" {
			system += "\n\n" + snapshot
		}
	}
	if st.ScreenshotSkipped {
		system += "\n\nNote: no fresh screenshot is available this iteration; rely on the UI tree summary."
	}

	userMsg := llm.Message{Role: llm.RoleUser, Content: m.observationMessage()}
	messages := make([]llm.Message, 0, len(st.Messages)+1)
	messages = append(messages, st.Messages...)
	messages = append(messages, userMsg)

	req := llm.Request{
		System:    system,
		Messages:  messages,
		Tools:     m.tools,
		Model:     m.cfg.Model,
		MaxTokens: m.cfg.MaxTokens,
	}
	if !st.ScreenshotSkipped && st.Observation != nil && len(st.Observation.Screenshot) > 0 {
		req.Images = [][]byte{st.Observation.Screenshot}
	}

	resp, err := m.model.SendMessage(ctx, req)
	if err != nil {
		// The one node whose failure is not absorbed: without a model
		// response the loop cannot make progress.
		st.PlanErr = fmt.Errorf("plan: %w", err)
		st.CompletionReason = "model call failed: " + err.Error()
		return NodeEvaluate
	}

	st.Response = &resp
	st.InputTokens += resp.InputTokens
	st.OutputTokens += resp.OutputTokens

	assistant := resp.Text
	if assistant == "" && len(resp.ToolCalls) > 0 {
		assistant = fmt.Sprintf("(requested %d tool calls)", len(resp.ToolCalls))
	}
	st.Messages = append(st.Messages, userMsg, llm.Message{Role: llm.RoleAssistant, Content: assistant})
	m.stuck.ObserveResponse(resp.Text)
	return NodeAct
}

func (m *Machine) observationMessage() string {
	st := m.st
	var b strings.Builder
	fmt.Fprintf(&b, "Iteration %d. Task: %s\n", st.Iteration, st.Task)
	if step, ok := st.Plan.Current(); ok {
		fmt.Fprintf(&b, "Current step: %s\n", step.Instruction)
	}
	if st.Observation != nil {
		ctx := st.Observation.Context
		if ctx.ActiveAppName != "" {
			fmt.Fprintf(&b, "Active app: %s\n", ctx.ActiveAppName)
		}
		if ctx.WindowTitle != "" {
			fmt.Fprintf(&b, "Window: %s\n", ctx.WindowTitle)
		}
		if ctx.CurrentURL != "" {
			fmt.Fprintf(&b, "URL: %s\n", ctx.CurrentURL)
		}
		if st.Observation.UITree != "" {
			fmt.Fprintf(&b, "UI tree:\n%s\n", st.Observation.UITree)
		}
	}
	return b.String()
}

func (m *Machine) act(ctx context.Context) NodeKind {
	st := m.st
	m.lastExecuted = ""
	m.prevHadAction = false
	if st.Response == nil || len(st.Response.ToolCalls) == 0 {
		return NodeObserve
	}

	for _, inv := range st.Response.ToolCalls {
		if ctx.Err() != nil {
			break
		}
		call := risk.ToolCall{
			Name:            inv.Name,
			Input:           inv.Args,
			Iteration:       st.Iteration,
			StepInstruction: m.currentStepInstruction(),
		}
		verdict := m.gate.Evaluate(ctx, call, m.currentContext())

		if verdict.RequiresApproval {
			decision := m.awaitApproval(ctx, verdict)
			approved := decision == DecisionApproved
			m.gate.RecordApprovalOutcome(call.Name, approved)
			if !approved {
				st.Results = append(st.Results, ToolResult{
					Call:    call,
					Skipped: true,
					Summary: "skipped: approval " + decision.String(),
				})
				st.Messages = append(st.Messages, llm.Message{
					Role:    llm.RoleUser,
					Content: fmt.Sprintf("Action %s was not approved (%s) and was skipped.", call.Name, decision),
				})
				continue
			}
		}

		summary, err := m.exec.Execute(ctx, call)
		result := ToolResult{Call: call, Summary: summary}
		if err != nil {
			result.Failed = true
			result.Error = err.Error()
			m.log.Warn().Err(err).Str("tool", call.Name).Msg("tool execution failed")
		}
		st.Results = append(st.Results, result)
		m.lastExecuted = call.Name
		m.prevHadAction = true

		m.recent = append(m.recent, risk.RecentCall{Name: call.Name, Summary: truncate(summary, 80)})
		if len(m.recent) > maxRecentCalls {
			m.recent = m.recent[len(m.recent)-maxRecentCalls:]
		}
		st.Messages = append(st.Messages, llm.Message{
			Role:    llm.RoleUser,
			Content: fmt.Sprintf("Result of %s: %s", call.Name, resultText(result)),
		})
	}
	return NodeObserve
}

// awaitApproval suspends until exactly one of approve, deny, timeout, or
// cancellation resolves the waiter. Timeout and cancellation count as denial.
func (m *Machine) awaitApproval(ctx context.Context, v risk.Verdict) Decision {
	w := NewConfirmationWaiter()
	timer := time.AfterFunc(m.cfg.ConfirmTimeout, func() { w.Timeout() })
	defer timer.Stop()
	stop := context.AfterFunc(ctx, func() { w.Cancel() })
	defer stop()

	if m.conf == nil {
		w.Deny()
	} else {
		go m.conf.Decide(ctx, ApprovalRequest{
			Tool:     v.Tool,
			Prompt:   v.ApprovalPrompt,
			Level:    v.Level,
			CacheKey: v.SessionCacheKey,
		}, w)
	}
	return <-w.Wait()
}

func (m *Machine) observe(ctx context.Context) NodeKind {
	st := m.st
	prev := st.Observation
	post := &Observation{}
	if prev != nil {
		post.Context = prev.Context
	}

	if actx, err := m.cap.ActionContext(ctx); err == nil {
		post.Context = actx
	}
	post.Context.RecentToolCalls = append([]risk.RecentCall(nil), m.recent...)

	if tree, err := m.cap.UITreeSummary(ctx); err == nil {
		post.UITree = tree
	} else if prev != nil {
		post.UITree = prev.UITree
	}

	if m.axVerified(ctx) {
		// Verified via the accessibility tree; the screenshot cost is saved.
		if prev != nil {
			post.Screenshot = prev.Screenshot
			post.ScreenshotHash = prev.ScreenshotHash
			post.HashValid = prev.HashValid
		}
	} else {
		m.captureInto(ctx, post)
		if post.HashValid && st.PreActionHashValid {
			st.LastDiff = vision.ClassifyDiff(vision.HammingDistance(st.PreActionHash, post.ScreenshotHash))
		}
	}

	if post.HashValid {
		m.stuck.ObserveScreen(post.ScreenshotHash, post.UITree)
	}
	st.Observation = post
	return NodeEvaluate
}

// axVerified confirms the last action's effect through the accessibility
// tree before paying for a screenshot: typed text shows up as field content,
// a click shows up as a gained child selection.
func (m *Machine) axVerified(ctx context.Context) bool {
	switch m.lastExecuted {
	case risk.ToolTypeText:
		f, err := m.cap.FocusedElement(ctx)
		return err == nil && f != nil && strings.TrimSpace(f.Value) != ""
	case risk.ToolClick:
		f, err := m.cap.FocusedElement(ctx)
		return err == nil && f != nil && f.SelectedChildCount > 0
	default:
		return false
	}
}

func (m *Machine) evaluate(ctx context.Context) NodeKind {
	st := m.st

	if st.PlanErr == nil && st.Response != nil {
		switch {
		case containsCompletionMarker(st.Response.Text, m.cfg.CompletionMarker):
			st.Completed = true
			st.CompletionReason = "completion marker emitted"
		case len(st.Response.ToolCalls) == 0:
			st.Completed = true
			st.CompletionReason = "model proposed no further actions"
		}
	}

	st.ErrorClass = classifyFailures(st.Results)
	if st.ErrorClass == ErrResource && st.CompletionReason == "" {
		st.CompletionReason = "resource-class error forced completion"
	}

	m.resolvePlanStep()

	if !st.Completed && st.PlanErr == nil && st.ErrorClass != ErrResource && m.canCheckStuck() {
		if stuck, reason := m.stuck.Detect(); stuck {
			st.Stuck = true
			st.StuckReason = reason
			m.log.Info().Str("reason", reason).Msg("stuck detected")
		}
	}

	// Genuine progress resets recovery escalation.
	if !st.Completed && !st.Stuck && st.ErrorClass == ErrNone && st.StrategyIndex > 0 {
		st.StrategyIndex = 0
		st.EpisodeRecoveryAttempts = 0
	}

	next := m.routeFromEvaluate()
	if next == NodeComplete && st.CompletionReason == "" {
		st.CompletionReason = st.CompletionSource
	}
	return next
}

// canCheckStuck guards against false positives while the agent is still
// making legitimate progress or hit a recoverable blip.
func (m *Machine) canCheckStuck() bool {
	st := m.st
	if st.Iteration < m.cfg.MinIterationsBeforeStuck {
		return false
	}
	if st.ErrorClass == ErrTransient {
		return false
	}
	return m.noPlannedWork() || m.allCallsFailed()
}

func (m *Machine) noPlannedWork() bool {
	return m.st.Plan.Done()
}

func (m *Machine) allCallsFailed() bool {
	executed := 0
	for _, r := range m.st.Results {
		if r.Skipped {
			continue
		}
		executed++
		if !r.Failed {
			return false
		}
	}
	return executed > 0
}

// resolvePlanStep validates the active step from this iteration's results:
// an explicit task_update bookkeeping call resolves it, an all-failed
// iteration counts as uncertain until the step's attempt budget runs out.
func (m *Machine) resolvePlanStep() {
	st := m.st
	step, ok := st.Plan.Current()
	if !ok {
		return
	}
	var outcome plan.Outcome
	resolved := false
	for _, r := range st.Results {
		if r.Skipped || r.Call.Name != "task_update" {
			continue
		}
		switch strings.ToLower(r.Call.Arg("status")) {
		case "done", "succeeded":
			outcome, resolved = plan.OutcomeSucceeded, true
		case "failed":
			outcome, resolved = plan.OutcomeFailed, true
		case "skipped":
			outcome, resolved = plan.OutcomeSkipped, true
		}
	}
	if !resolved && m.allCallsFailed() {
		outcome, resolved = plan.OutcomeUncertain, true
	}
	if !resolved {
		return
	}
	if err := st.Plan.Resolve(outcome); err != nil {
		m.log.Warn().Err(err).Str("step", step.ID).Msg("plan step resolution failed")
		return
	}
	// Step transition: stuck detection restarts cleanly.
	m.stuck.Clear()
}

func (m *Machine) recoverNode(ctx context.Context) NodeKind {
	guidance, strategy := m.chain.Apply(ctx, m.st)
	m.st.Messages = append(m.st.Messages, llm.Message{
		Role:    llm.RoleUser,
		Content: "[recovery] " + guidance,
	})
	m.stuck.Clear()
	m.log.Info().Int("strategy", strategy).Msg("recovery guidance injected")
	return NodePerceive
}

func (m *Machine) currentStepInstruction() string {
	if step, ok := m.st.Plan.Current(); ok {
		return step.Instruction
	}
	return ""
}

func (m *Machine) currentContext() risk.ActionContext {
	if m.st.Observation != nil {
		return m.st.Observation.Context
	}
	return risk.ActionContext{RecentToolCalls: append([]risk.RecentCall(nil), m.recent...)}
}

func resultText(r ToolResult) string {
	if r.Failed {
		return "error: " + r.Error
	}
	if r.Summary == "" {
		return "ok"
	}
	return r.Summary
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
