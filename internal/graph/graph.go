// Package graph drives one run's perceive-plan-act-observe-evaluate-recover
// loop as a closed graph of nodes with ordered, first-match-wins edges. It
// consults the safety gate before every act step and owns the run's
// GraphState exclusively.
package graph

import (
	"context"
	"errors"

	"github.com/deskpilot-core/deskpilot/internal/risk"
)

// ErrRunCanceled is returned by Run when the surrounding context is canceled;
// pending confirmations are resolved as denied before it surfaces.
var ErrRunCanceled = errors.New("run canceled")

// NodeKind is the closed set of state-machine nodes. The set is fixed and
// small; dispatch is a switch, not a registry.
type NodeKind int

const (
	NodePerceive NodeKind = iota
	NodePlan
	NodeAct
	NodeObserve
	NodeEvaluate
	NodeRecover
	NodeComplete
)

func (n NodeKind) String() string {
	switch n {
	case NodePerceive:
		return "perceive"
	case NodePlan:
		return "plan"
	case NodeAct:
		return "act"
	case NodeObserve:
		return "observe"
	case NodeEvaluate:
		return "evaluate"
	case NodeRecover:
		return "recover"
	case NodeComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// FocusedElement mirrors the capture collaborator's focused-element detail.
type FocusedElement struct {
	Role               string
	Value              string
	Label              string
	SelectedChildCount int
}

// Observation is one snapshot of the screen: image bytes plus the structured
// UI summary. The UI tree is always present; the screenshot may be reused or
// absent when the adaptive skip fires.
type Observation struct {
	Screenshot     []byte
	ScreenshotHash uint64
	HashValid      bool
	UITree         string
	Context        risk.ActionContext
}

// Capturer is the external screen-capture collaborator.
type Capturer interface {
	CaptureScreen(ctx context.Context, maxDimension, quality int) ([]byte, error)
	UITreeSummary(ctx context.Context) (string, error)
	FocusedElement(ctx context.Context) (*FocusedElement, error)
	ActionContext(ctx context.Context) (risk.ActionContext, error)
}

// Executor performs one approved physical action and returns a result
// summary. The core never executes actions itself; it only gates them.
type Executor interface {
	Execute(ctx context.Context, call risk.ToolCall) (string, error)
}

// ToolResult records one tool call's outcome within an iteration.
type ToolResult struct {
	Call    risk.ToolCall
	Summary string
	Failed  bool
	Error   string
	Skipped bool
}

// ApprovalRequest is handed to the confirmation-UI collaborator.
type ApprovalRequest struct {
	Tool     string
	Prompt   string
	Level    risk.RiskLevel
	CacheKey string
}

// Confirmer renders an approval prompt however it likes and resolves the
// waiter with the user's answer. The machine owns timeout and cancellation.
type Confirmer interface {
	Decide(ctx context.Context, req ApprovalRequest, w *ConfirmationWaiter)
}
