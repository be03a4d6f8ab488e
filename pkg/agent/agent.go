// Package agent defines the Agent contract and the node bodies for the
// named agents the Policy Engine can enable (spec §4.2's FAST / SENSORY
// / OPTIMIZE / RESEARCH table): intent, recipe, presentation,
// sensory_model, explanation, frontier, selector, recipe_renderer, and
// the research-only agents. Every agent normalizes its output into one
// tagged Result type instead of the loose dict/dataclass mix a dynamic
// source would use.
package agent

import (
	"context"

	"github.com/kitchencore/reasoner/pkg/llm"
)

// Status is the normalized outcome of one agent invocation.
type Status string

const (
	StatusOK        Status = "ok"
	StatusDegraded  Status = "degraded"
	StatusError     Status = "error"
	StatusSkipped   Status = "skipped"
)

// Result is the single tagged sum type every agent returns, replacing a
// dynamic mix of SimpleNamespace/dict/dataclass shapes.
type Result struct {
	Name      string
	Status    Status
	Text      string
	Data      map[string]any
	Err       error
}

// Context bundles what an agent needs: the assembled reasoning inputs
// for this turn, plus access to the LLM for agents that need to call it.
type Context struct {
	Message      string
	Mode         string
	Phases       []string
	RetrievedCtx map[string][]string // index name -> retrieved snippets
	Preferences  map[string]string
	Client       llm.ChatClient
}

// Agent is the minimal contract every node body satisfies.
type Agent interface {
	Name() string
	Run(ctx context.Context, ac Context, args []any, kwargs map[string]any) (Result, error)
}

// Func adapts a plain function into an Agent.
type Func struct {
	AgentName string
	Body      func(ctx context.Context, ac Context, args []any, kwargs map[string]any) (Result, error)
}

func (f Func) Name() string { return f.AgentName }

func (f Func) Run(ctx context.Context, ac Context, args []any, kwargs map[string]any) (Result, error) {
	return f.Body(ctx, ac, args, kwargs)
}
