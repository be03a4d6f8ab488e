package agent

import (
	"context"
	"strings"

	"github.com/kitchencore/reasoner/pkg/llm"
)

// PromptBuilder assembles the persona+instruction prompt for one agent,
// given the shared reasoning context for this turn.
type PromptBuilder func(ac Context) []llm.Message

// NewPromptAgent builds an Agent that calls the LLM with the messages
// PromptBuilder produces, collects the full streamed text, and returns it
// as a Result. This is the shared body every named agent below is built
// from -- only the persona prompt differs between them.
func NewPromptAgent(name string, build PromptBuilder) Agent {
	return Func{
		AgentName: name,
		Body: func(ctx context.Context, ac Context, args []any, kwargs map[string]any) (Result, error) {
			if ac.Client == nil {
				return Result{Name: name, Status: StatusSkipped}, nil
			}

			req := llm.Request{SessionID: name, Messages: build(ac)}
			chunks, errs := ac.Client.Stream(ctx, req)

			var text strings.Builder
			for chunk := range chunks {
				if !chunk.IsThinking {
					text.WriteString(chunk.Content)
				}
			}
			if err := <-errs; err != nil {
				return Result{Name: name, Status: StatusError, Err: err}, err
			}

			return Result{Name: name, Status: StatusOK, Text: text.String()}, nil
		},
	}
}
