package plan

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/deskpilot-core/deskpilot/internal/llm"
)

const draftSystemPrompt = `You break a desktop task into a short ordered plan.
Respond with a JSON array only, no prose. Each element:
{"id": "step-1", "instruction": "...", "expected": "what success looks like",
"critical": false, "depends_on": []}
Use 2 to 6 steps. Mark a step critical only if the task is pointless without it.`

// LLMPlanner drafts an execution plan from the task description before the
// iteration loop starts. Drafting is best effort; callers run planless when
// it fails.
type LLMPlanner struct {
	Client llm.Client
	Model  string
}

func (p LLMPlanner) Draft(ctx context.Context, task string) (*Plan, error) {
	if p.Client == nil {
		return nil, fmt.Errorf("llm client missing")
	}
	resp, err := p.Client.SendMessage(ctx, llm.Request{
		System:   draftSystemPrompt,
		Messages: []llm.Message{{Role: llm.RoleUser, Content: task}},
		Model:    p.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("draft plan: %w", err)
	}
	steps, err := parseDraft(resp.Text)
	if err != nil {
		return nil, err
	}
	return New(steps)
}

func parseDraft(text string) ([]Step, error) {
	raw := extractJSONArray(text)
	if raw == "" {
		return nil, fmt.Errorf("no plan array in model response")
	}
	var drafted []struct {
		ID          string   `json:"id"`
		Instruction string   `json:"instruction"`
		Expected    string   `json:"expected"`
		Critical    bool     `json:"critical"`
		DependsOn   []string `json:"depends_on"`
	}
	if err := json.Unmarshal([]byte(raw), &drafted); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	steps := make([]Step, 0, len(drafted))
	for i, d := range drafted {
		if strings.TrimSpace(d.Instruction) == "" {
			continue
		}
		id := strings.TrimSpace(d.ID)
		if id == "" {
			id = fmt.Sprintf("step-%d", i+1)
		}
		steps = append(steps, Step{
			ID:          id,
			Instruction: strings.TrimSpace(d.Instruction),
			Expected:    strings.TrimSpace(d.Expected),
			Critical:    d.Critical,
			DependsOn:   d.DependsOn,
		})
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("plan has no usable steps")
	}
	return steps, nil
}

// extractJSONArray tolerates markdown fences and prose around the array.
func extractJSONArray(text string) string {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}
