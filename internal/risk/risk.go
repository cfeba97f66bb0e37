package risk

import (
	"fmt"
	"strings"
)

// RiskLevel is totally ordered: Safe < Moderate < High < Critical. A verdict's
// level is never downgraded within one evaluation; only a human approval lets
// a high or critical action proceed.
type RiskLevel int

const (
	LevelSafe RiskLevel = iota
	LevelModerate
	LevelHigh
	LevelCritical
)

func (l RiskLevel) String() string {
	switch l {
	case LevelSafe:
		return "safe"
	case LevelModerate:
		return "moderate"
	case LevelHigh:
		return "high"
	case LevelCritical:
		return "critical"
	default:
		return fmt.Sprintf("risk(%d)", int(l))
	}
}

func ParseLevel(raw string) (RiskLevel, error) {
	switch strings.TrimSpace(strings.ToLower(raw)) {
	case "safe":
		return LevelSafe, nil
	case "moderate":
		return LevelModerate, nil
	case "high":
		return LevelHigh, nil
	case "critical":
		return LevelCritical, nil
	default:
		return LevelSafe, fmt.Errorf("invalid risk level: %q", raw)
	}
}

type PermissionMode string

const (
	PermissionReadonly PermissionMode = "readonly"
	PermissionDefault  PermissionMode = "default"
	PermissionAll      PermissionMode = "all"
)

func ParsePermissionMode(raw string) (PermissionMode, error) {
	mode := PermissionMode(strings.TrimSpace(strings.ToLower(raw)))
	switch mode {
	case PermissionReadonly, PermissionDefault, PermissionAll:
		return mode, nil
	default:
		return "", fmt.Errorf("invalid permission mode: %q", raw)
	}
}

// Method records which layer produced a verdict.
type Method string

const (
	MethodHeuristic Method = "heuristic"
	MethodLLM       Method = "llm"
)

// ToolCall is one proposed action, constructed once by the planning step and
// never mutated afterwards.
type ToolCall struct {
	Name            string
	Input           map[string]string
	Iteration       int
	StepInstruction string
}

func (c ToolCall) Arg(key string) string {
	if c.Input == nil {
		return ""
	}
	return c.Input[key]
}

// RecentCall is a (tool name, summary) pair from the current run's history.
type RecentCall struct {
	Name    string
	Summary string
}

// ActionContext is an immutable snapshot of the desktop state at evaluation
// time, re-captured each iteration.
type ActionContext struct {
	ActiveAppName       string
	ActiveAppBundleID   string
	WindowTitle         string
	FocusedElementRole  string
	FocusedElementLabel string
	CurrentURL          string
	RecentToolCalls     []RecentCall
}

// LastToolCall returns the most recent entry in the history, if any.
func (c ActionContext) LastToolCall() (RecentCall, bool) {
	if len(c.RecentToolCalls) == 0 {
		return RecentCall{}, false
	}
	return c.RecentToolCalls[len(c.RecentToolCalls)-1], true
}

// Verdict is the gate's classification of one proposed action. Created fresh
// per evaluation and carries enough to render a confirmation prompt and log
// an audit entry.
type Verdict struct {
	Level            RiskLevel
	Reason           string
	Tool             string
	RequiresApproval bool
	ApprovalPrompt   string
	SessionCacheKey  string
	Method           Method
}

func verdict(call ToolCall, level RiskLevel, reason string) Verdict {
	return Verdict{
		Level:  level,
		Reason: reason,
		Tool:   call.Name,
		Method: MethodHeuristic,
	}
}

func approvalVerdict(call ToolCall, level RiskLevel, reason, prompt string) Verdict {
	v := verdict(call, level, reason)
	v.RequiresApproval = true
	v.ApprovalPrompt = prompt
	return v
}
