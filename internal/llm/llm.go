// Package llm defines the narrow model-client contract the core depends on,
// plus the shipped OpenAI-compatible adapter. The core treats the client as
// opaque request/response; retry policy lives behind the interface.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// ErrModelUnavailable is returned by a guarded client while it is cooling
// down after repeated failures.
var ErrModelUnavailable = errors.New("model client unavailable")

type Message struct {
	Role    string
	Content string
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ToolSchema describes one callable tool in JSON-schema form.
type ToolSchema struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToolInvocation is one tool call requested by the model. Arguments are
// flattened to strings; the planner owns any further coercion.
type ToolInvocation struct {
	ID   string
	Name string
	Args map[string]string
}

type Request struct {
	System    string
	Messages  []Message
	Tools     []ToolSchema
	Model     string
	MaxTokens int
	// Optional image attachments (PNG/JPEG bytes) appended to the final
	// user message when the endpoint supports vision input.
	Images [][]byte
}

type Response struct {
	Text         string
	ToolCalls    []ToolInvocation
	InputTokens  int
	OutputTokens int
}

type Client interface {
	SendMessage(ctx context.Context, req Request) (Response, error)
}

// Guarded wraps a client with a failure-cooldown guard so that a flapping
// endpoint cannot stall every iteration.
func Guarded(client Client, guard *Guard) Client {
	return &guardedClient{client: client, guard: guard}
}

type guardedClient struct {
	client Client
	guard  *Guard
}

func (g *guardedClient) SendMessage(ctx context.Context, req Request) (Response, error) {
	if !g.guard.Allow() {
		return Response{}, fmt.Errorf("%w: cooling down until %s", ErrModelUnavailable, g.guard.DisabledUntil().Format("15:04:05"))
	}
	resp, err := g.client.SendMessage(ctx, req)
	if err != nil {
		g.guard.RecordFailure()
		return Response{}, err
	}
	g.guard.RecordSuccess()
	return resp, nil
}
