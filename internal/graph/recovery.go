package graph

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/deskpilot-core/deskpilot/internal/llm"
)

// The five recovery strategies, ordered by cost. Each RECOVER visit executes
// the strategy at the current index (clamped to this range) and advances the
// index; only observed progress resets it.
const (
	StrategyRephrase = iota
	StrategyCheapSuggestion
	StrategyBacktrack
	StrategyDeepConsult
	StrategyForceComplete
)

const rephraseGuidance = `The previous approach is not working. Try a different method to ` +
	`accomplish the current step and do not repeat the exact actions you already tried.`

const backtrackGuidance = `Back out of the current state: press Escape or use Undo, dismiss any ` +
	`open dialogs, then consider an alternate path such as the menu bar, global search, or a keyboard shortcut.`

const forceCompleteGuidance = `Stop attempting further actions. Emit the completion marker now and ` +
	`summarize what was accomplished and what was not.`

// StrategyChain escalates through the five strategies. Model-backed
// strategies absorb their own failures and fall back to canned guidance;
// applying a strategy never fails.
type StrategyChain struct {
	client     llm.Client
	cheapModel string
	deepModel  string
	log        zerolog.Logger
}

func NewStrategyChain(client llm.Client, cheapModel, deepModel string, log zerolog.Logger) *StrategyChain {
	return &StrategyChain{client: client, cheapModel: cheapModel, deepModel: deepModel, log: log}
}

// Apply executes the strategy at the state's current (clamped) index,
// updates the recovery counters, and advances the index. The returned
// guidance is injected into the model conversation by the caller.
func (c *StrategyChain) Apply(ctx context.Context, st *State) (string, int) {
	idx := st.StrategyIndex
	if idx < 0 {
		idx = 0
	}
	if idx > StrategyForceComplete {
		idx = StrategyForceComplete
	}

	var guidance string
	switch idx {
	case StrategyRephrase:
		guidance = rephraseGuidance
	case StrategyCheapSuggestion:
		guidance = c.cheapSuggestion(ctx, st)
	case StrategyBacktrack:
		guidance = backtrackGuidance
	case StrategyDeepConsult:
		guidance = c.deepConsultation(ctx, st)
	default:
		guidance = forceCompleteGuidance
	}

	st.TotalRecoveryAttempts++
	st.EpisodeRecoveryAttempts++
	st.StrategyIndex = idx + 1
	c.log.Info().Int("strategy", idx).Int("total_attempts", st.TotalRecoveryAttempts).Msg("recovery strategy applied")
	return guidance, idx
}

func (c *StrategyChain) cheapSuggestion(ctx context.Context, st *State) string {
	if c.client == nil {
		return rephraseGuidance
	}
	resp, err := c.client.SendMessage(ctx, llm.Request{
		System: "You help an automation agent that is stuck. Answer with one alternative approach in 2-3 sentences.",
		Messages: []llm.Message{{
			Role:    llm.RoleUser,
			Content: fmt.Sprintf("Task: %s\nStuck because: %s", st.Task, st.StuckReason),
		}},
		Model:     c.cheapModel,
		MaxTokens: 200,
	})
	if err != nil || resp.Text == "" {
		c.log.Warn().Err(err).Msg("cheap suggestion failed, using canned rephrase guidance")
		return rephraseGuidance
	}
	return "A different approach to try: " + resp.Text
}

func (c *StrategyChain) deepConsultation(ctx context.Context, st *State) string {
	if !st.EscalatedDeep {
		st.EscalatedDeep = true
	}
	if c.client == nil {
		return backtrackGuidance
	}
	req := llm.Request{
		System: "You are a senior operator reviewing a stuck desktop-automation run. " +
			"Assess the situation and give 2-3 concrete suggestions.",
		Messages: []llm.Message{{
			Role: llm.RoleUser,
			Content: fmt.Sprintf("Task: %s\nStuck because: %s\nCurrent UI tree:\n%s",
				st.Task, st.StuckReason, currentUITree(st)),
		}},
		Model:     c.deepModel,
		MaxTokens: 500,
	}
	if st.Observation != nil && len(st.Observation.Screenshot) > 0 {
		req.Images = [][]byte{st.Observation.Screenshot}
	}
	resp, err := c.client.SendMessage(ctx, req)
	if err != nil || resp.Text == "" {
		c.log.Warn().Err(err).Msg("deep consultation failed, using canned backtrack guidance")
		return backtrackGuidance
	}
	return "Situational assessment: " + resp.Text
}

func currentUITree(st *State) string {
	if st.Observation == nil {
		return "(unavailable)"
	}
	return st.Observation.UITree
}
