package risk

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/deskpilot-core/deskpilot/internal/llm"
)

const arbiterSystemPrompt = `You assess the risk of one desktop-automation action.
Answer with exactly one line in this form and nothing else:
RISK: <safe|moderate|high|critical> -- <short reason>`

const DefaultArbiterTimeout = 10 * time.Second

// Arbiter resolves the one case the heuristics cannot: it races a single
// model call against a fixed timeout and always returns a verdict. On any
// failure, timeout, or unparseable reply it returns the heuristic hint
// unchanged; it never errors and never hangs.
type Arbiter struct {
	client  llm.Client
	model   string
	timeout time.Duration
	log     zerolog.Logger
}

func NewArbiter(client llm.Client, model string, timeout time.Duration, log zerolog.Logger) *Arbiter {
	if timeout <= 0 {
		timeout = DefaultArbiterTimeout
	}
	return &Arbiter{client: client, model: model, timeout: timeout, log: log}
}

func (a *Arbiter) Evaluate(ctx context.Context, call ToolCall, actx ActionContext, hint Verdict) Verdict {
	if a == nil || a.client == nil {
		return hint
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	type outcome struct {
		resp llm.Response
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		resp, err := a.client.SendMessage(ctx, llm.Request{
			System:    arbiterSystemPrompt,
			Messages:  []llm.Message{{Role: llm.RoleUser, Content: arbiterUserPrompt(call, actx)}},
			Model:     a.model,
			MaxTokens: 120,
		})
		done <- outcome{resp: resp, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			a.log.Warn().Err(out.err).Str("tool", call.Name).Msg("arbiter model call failed, keeping heuristic hint")
			return hint
		}
		if v, ok := parseArbiterResponse(out.resp.Text, call); ok {
			a.log.Debug().Str("tool", call.Name).Str("level", v.Level.String()).Msg("arbiter verdict")
			return v
		}
		return hint
	case <-ctx.Done():
		a.log.Warn().Str("tool", call.Name).Msg("arbiter timed out, keeping heuristic hint")
		return hint
	}
}

func arbiterUserPrompt(call ToolCall, actx ActionContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Tool: %s\n", call.Name)
	redacted := RedactInput(call.Input)
	keys := make([]string, 0, len(redacted))
	for key := range redacted {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(&b, "Input %s: %s\n", key, redacted[key])
	}
	if actx.ActiveAppName != "" {
		fmt.Fprintf(&b, "Active app: %s\n", actx.ActiveAppName)
	}
	if actx.WindowTitle != "" {
		fmt.Fprintf(&b, "Window: %s\n", actx.WindowTitle)
	}
	if actx.CurrentURL != "" {
		fmt.Fprintf(&b, "URL: %s\n", actx.CurrentURL)
	}
	return b.String()
}

// parseArbiterResponse is line-oriented and case-insensitive; unparseable
// lines are skipped and a fully unparseable reply is a miss.
func parseArbiterResponse(text string, call ToolCall) (Verdict, bool) {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)
		if !strings.HasPrefix(lower, "risk:") {
			continue
		}
		rest := strings.TrimSpace(trimmed[len("risk:"):])
		levelPart := rest
		reason := "model arbitration"
		if idx := strings.Index(rest, "--"); idx >= 0 {
			levelPart = rest[:idx]
			if r := strings.TrimSpace(rest[idx+2:]); r != "" {
				reason = r
			}
		}
		level, err := ParseLevel(levelPart)
		if err != nil {
			continue
		}
		v := Verdict{
			Level:  level,
			Reason: reason,
			Tool:   call.Name,
			Method: MethodLLM,
		}
		if level >= LevelHigh {
			v.RequiresApproval = true
			v.ApprovalPrompt = fmt.Sprintf("Allow %s? %s.", call.Name, reason)
		}
		return v, true
	}
	return Verdict{}, false
}
