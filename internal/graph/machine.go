package graph

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/deskpilot-core/deskpilot/internal/llm"
	"github.com/deskpilot-core/deskpilot/internal/plan"
	"github.com/deskpilot-core/deskpilot/internal/risk"
)

type Config struct {
	MaxIterations            int
	MinIterationsBeforeStuck int
	StuckWindow              int
	HammingTolerance         int
	RecoveryBudget           int
	ConfirmTimeout           time.Duration
	CaptureMaxDimension      int
	CaptureQuality           int
	Model                    string
	CheapModel               string
	DeepModel                string
	MaxTokens                int
	SystemPrompt             string
	CompletionMarker         string
}

func (c Config) withDefaults() Config {
	if c.MaxIterations <= 0 {
		c.MaxIterations = 25
	}
	if c.MinIterationsBeforeStuck <= 0 {
		c.MinIterationsBeforeStuck = 3
	}
	if c.StuckWindow <= 0 {
		c.StuckWindow = DefaultStuckWindow
	}
	if c.HammingTolerance <= 0 {
		c.HammingTolerance = DefaultHammingTolerance
	}
	if c.RecoveryBudget <= 0 {
		c.RecoveryBudget = 8
	}
	if c.ConfirmTimeout <= 0 {
		c.ConfirmTimeout = 60 * time.Second
	}
	if c.CaptureMaxDimension <= 0 {
		c.CaptureMaxDimension = 1440
	}
	if c.CaptureQuality <= 0 {
		c.CaptureQuality = 80
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 2048
	}
	if c.CompletionMarker == "" {
		c.CompletionMarker = DefaultCompletionMarker
	}
	return c
}

// Deps are the run's collaborators, all externally owned.
type Deps struct {
	Gate     *risk.Gate
	Model    llm.Client
	Capturer Capturer
	Executor Executor
	Confirm  Confirmer
	Chain    *StrategyChain
	Tools    []llm.ToolSchema
	// Notes returns the run's accumulated memory notes rendered for a
	// prompt, or "" when nothing has been recorded yet.
	Notes func() string
	Log   zerolog.Logger
}

// Machine drives one run's iteration loop sequentially; there is no parallel
// fan-out across iterations.
type Machine struct {
	cfg   Config
	gate  *risk.Gate
	model llm.Client
	cap   Capturer
	exec  Executor
	conf  Confirmer
	chain *StrategyChain
	tools []llm.ToolSchema
	notes func() string
	stuck *StuckDetector
	log   zerolog.Logger

	st *State
	// recent executed tool calls, fed into ActionContext snapshots
	recent []risk.RecentCall
	// consecutive iterations that captured a screenshot with no
	// intervening executed action
	idleCaptureStreak int
	// name of the last tool actually executed this iteration, "" if none
	lastExecuted  string
	prevHadAction bool
}

func NewMachine(cfg Config, deps Deps) *Machine {
	cfg = cfg.withDefaults()
	return &Machine{
		cfg:   cfg,
		gate:  deps.Gate,
		model: deps.Model,
		cap:   deps.Capturer,
		exec:  deps.Executor,
		conf:  deps.Confirm,
		chain: deps.Chain,
		tools: deps.Tools,
		notes: deps.Notes,
		stuck: NewStuckDetector(cfg.StuckWindow, cfg.HammingTolerance),
		log:   deps.Log,
	}
}

// Run executes the node graph until COMPLETE or cancellation. The returned
// State is valid in both cases; on cancellation the error is ErrRunCanceled.
func (m *Machine) Run(ctx context.Context, runID, task string) (*State, error) {
	return m.RunWithPlan(ctx, runID, task, nil)
}

// RunWithPlan is Run with a pre-drafted execution plan attached to the state.
func (m *Machine) RunWithPlan(ctx context.Context, runID, task string, p *plan.Plan) (*State, error) {
	m.st = &State{RunID: runID, Task: task, Plan: p}
	node := NodePerceive
	for node != NodeComplete {
		// Cancellation is honored at every node boundary.
		if ctx.Err() != nil {
			return m.st, ErrRunCanceled
		}
		next := m.step(ctx, node)
		m.log.Debug().Str("from", node.String()).Str("to", next.String()).Int("iteration", m.st.Iteration).Msg("node transition")
		node = next
	}
	return m.st, nil
}

func (m *Machine) step(ctx context.Context, node NodeKind) NodeKind {
	switch node {
	case NodePerceive:
		return m.perceive(ctx)
	case NodePlan:
		return m.plan(ctx)
	case NodeAct:
		return m.act(ctx)
	case NodeObserve:
		return m.observe(ctx)
	case NodeEvaluate:
		return m.evaluate(ctx)
	case NodeRecover:
		return m.recoverNode(ctx)
	default:
		return NodeComplete
	}
}

// edge routing out of EVALUATE is an ordered list evaluated first-match-wins,
// so force-complete conditions are checked ahead of the looping default.
type edge struct {
	source string
	when   func(*Machine) bool
	next   NodeKind
}

var evaluateEdges = []edge{
	{"plan_error", func(m *Machine) bool { return m.st.PlanErr != nil }, NodeComplete},
	{"resource_error", func(m *Machine) bool { return m.st.ErrorClass == ErrResource }, NodeComplete},
	{"completed", func(m *Machine) bool { return m.st.Completed }, NodeComplete},
	{"iteration_budget", func(m *Machine) bool { return m.st.Iteration >= m.cfg.MaxIterations }, NodeComplete},
	{"recovery_budget", func(m *Machine) bool {
		return m.st.Stuck && m.st.TotalRecoveryAttempts >= m.cfg.RecoveryBudget
	}, NodeComplete},
	{"stuck", func(m *Machine) bool { return m.st.Stuck }, NodeRecover},
	{"continue", func(*Machine) bool { return true }, NodePerceive},
}

func (m *Machine) routeFromEvaluate() NodeKind {
	for _, e := range evaluateEdges {
		if e.when(m) {
			if e.next == NodeComplete && m.st.CompletionSource == "" {
				m.st.CompletionSource = e.source
			}
			return e.next
		}
	}
	return NodeComplete
}

// State exposes the machine's state for the orchestrator's final read.
func (m *Machine) State() *State {
	return m.st
}
