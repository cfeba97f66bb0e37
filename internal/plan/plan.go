// Package plan models the optional decomposition of a command into ordered
// steps with expected outcomes. The state machine consults the plan cursor
// to scope each iteration and to decide when the agent has no more planned
// work.
package plan

import (
	"fmt"
	"strings"
)

type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepActive    StepStatus = "active"
	StepSucceeded StepStatus = "succeeded"
	StepUncertain StepStatus = "uncertain"
	StepFailed    StepStatus = "failed"
	StepSkipped   StepStatus = "skipped"
)

// Outcome is the validated result of attempting a step.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeUncertain Outcome = "uncertain"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped"
)

type Step struct {
	ID          string
	Instruction string
	Expected    string
	Critical    bool
	DependsOn   []string
	TargetApp   string
	MaxAttempts int
	Attempts    int
	Status      StepStatus
	FailureNote string
}

// Plan is an ordered sequence of steps with a cursor. A critical step that
// fails aborts the whole plan.
type Plan struct {
	steps   []Step
	cursor  int
	aborted bool
}

const defaultStepAttempts = 3

func New(steps []Step) (*Plan, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("plan requires at least one step")
	}
	seen := map[string]struct{}{}
	for i := range steps {
		if strings.TrimSpace(steps[i].ID) == "" {
			steps[i].ID = fmt.Sprintf("step-%d", i+1)
		}
		if _, dup := seen[steps[i].ID]; dup {
			return nil, fmt.Errorf("duplicate step id: %s", steps[i].ID)
		}
		seen[steps[i].ID] = struct{}{}
		if steps[i].MaxAttempts <= 0 {
			steps[i].MaxAttempts = defaultStepAttempts
		}
		steps[i].Status = StepPending
	}
	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if _, ok := seen[dep]; !ok {
				return nil, fmt.Errorf("step %s depends on unknown step %s", step.ID, dep)
			}
		}
	}
	steps[0].Status = StepActive
	return &Plan{steps: steps}, nil
}

// Current returns the active step, if the plan is still in progress.
func (p *Plan) Current() (*Step, bool) {
	if p == nil || p.aborted || p.cursor >= len(p.steps) {
		return nil, false
	}
	return &p.steps[p.cursor], true
}

// Resolve applies a validated outcome to the active step and moves the
// cursor. Uncertain outcomes retry the step until its attempt budget is
// spent, then degrade to failed.
func (p *Plan) Resolve(outcome Outcome) error {
	step, ok := p.Current()
	if !ok {
		return fmt.Errorf("no active step to resolve")
	}
	step.Attempts++
	switch outcome {
	case OutcomeSucceeded:
		step.Status = StepSucceeded
		p.advance()
	case OutcomeSkipped:
		step.Status = StepSkipped
		p.advance()
	case OutcomeUncertain:
		if step.Attempts >= step.MaxAttempts {
			return p.fail(step, "attempt budget exhausted while uncertain")
		}
		// Stays active for another iteration.
	case OutcomeFailed:
		return p.fail(step, "step failed")
	default:
		return fmt.Errorf("invalid step outcome: %q", outcome)
	}
	return nil
}

func (p *Plan) fail(step *Step, note string) error {
	step.Status = StepFailed
	step.FailureNote = note
	if step.Critical {
		p.aborted = true
		return nil
	}
	p.advance()
	return nil
}

func (p *Plan) advance() {
	p.cursor++
	if p.cursor < len(p.steps) {
		p.steps[p.cursor].Status = StepActive
	}
}

// Done reports whether the cursor has passed the last step.
func (p *Plan) Done() bool {
	return p == nil || p.aborted || p.cursor >= len(p.steps)
}

func (p *Plan) Aborted() bool {
	return p != nil && p.aborted
}

// Steps returns a copy of the plan's steps for reporting.
func (p *Plan) Steps() []Step {
	if p == nil {
		return nil
	}
	out := make([]Step, len(p.steps))
	copy(out, p.steps)
	return out
}

// Summary renders a one-line-per-step progress report.
func (p *Plan) Summary() string {
	if p == nil {
		return ""
	}
	var b strings.Builder
	for i, step := range p.steps {
		fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, step.Status, step.Instruction)
	}
	if p.aborted {
		b.WriteString("plan aborted: a critical step failed\n")
	}
	return b.String()
}
