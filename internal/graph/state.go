package graph

import (
	"strings"

	"github.com/deskpilot-core/deskpilot/internal/llm"
	"github.com/deskpilot-core/deskpilot/internal/plan"
	"github.com/deskpilot-core/deskpilot/internal/vision"
)

// ErrorClass buckets an iteration's tool-call failures.
type ErrorClass int

const (
	ErrNone ErrorClass = iota
	ErrTransient
	ErrPermanent
	ErrResource
)

func (e ErrorClass) String() string {
	switch e {
	case ErrNone:
		return "none"
	case ErrTransient:
		return "transient"
	case ErrPermanent:
		return "permanent"
	default:
		return "resource"
	}
}

// State is the iteration-scoped mutable record threaded through the machine.
// Per-iteration fields reset on each PERCEIVE; the rest persists across
// iterations within one run. The machine owns it exclusively.
type State struct {
	RunID string
	Task  string

	Iteration   int
	Observation *Observation
	Response    *llm.Response
	Results     []ToolResult
	Messages    []llm.Message

	PreActionHash      uint64
	PreActionHashValid bool
	ScreenshotSkipped  bool
	LastDiff           vision.DiffClass

	Completed        bool
	CompletionSource string
	CompletionReason string

	Stuck       bool
	StuckReason string

	StrategyIndex           int
	EpisodeRecoveryAttempts int
	TotalRecoveryAttempts   int
	EscalatedDeep           bool

	ErrorClass ErrorClass
	PlanErr    error

	Plan *plan.Plan

	InputTokens  int
	OutputTokens int
}

func (s *State) resetIteration() {
	s.Response = nil
	s.Results = nil
	s.ErrorClass = ErrNone
	s.ScreenshotSkipped = false
	s.Stuck = false
	s.StuckReason = ""
	s.LastDiff = vision.DiffIdentical
}

// DefaultCompletionMarker is scanned for, case- and whitespace-insensitively,
// in model text to signal completion.
const DefaultCompletionMarker = "TASK_COMPLETE"

func containsCompletionMarker(text, marker string) bool {
	normalize := func(s string) string {
		return strings.Join(strings.Fields(strings.ToLower(s)), "")
	}
	m := normalize(marker)
	if m == "" {
		return false
	}
	return strings.Contains(normalize(text), m)
}

var resourceErrorTerms = []string{
	"rate limit",
	"quota",
	"resource limit",
	"out of memory",
	"disk full",
	"budget exhausted",
	"context length",
}

var transientErrorTerms = []string{
	"timeout",
	"timed out",
	"temporar",
	"connection refused",
	"connection reset",
	"busy",
	"try again",
	"unavailable",
}

// classifyFailures triages the iteration's failed results. Resource errors
// dominate (they force completion), then permanent, then transient.
func classifyFailures(results []ToolResult) ErrorClass {
	class := ErrNone
	for _, r := range results {
		if !r.Failed {
			continue
		}
		msg := strings.ToLower(r.Error)
		switch {
		case matchesTerm(msg, resourceErrorTerms):
			return ErrResource
		case matchesTerm(msg, transientErrorTerms):
			if class == ErrNone {
				class = ErrTransient
			}
		default:
			class = ErrPermanent
		}
	}
	return class
}

func matchesTerm(msg string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(msg, term) {
			return true
		}
	}
	return false
}
