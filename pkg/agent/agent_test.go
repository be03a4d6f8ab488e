package agent

import (
	"context"
	"testing"

	"github.com/kitchencore/reasoner/pkg/llm"
	"github.com/stretchr/testify/require"
)

func TestPromptAgent_CollectsNonThinkingChunks(t *testing.T) {
	fake := &llm.FakeClient{Chunks: []llm.StreamChunk{
		{Content: "reasoning...", IsThinking: true},
		{Content: "final answer part 1 ", IsThinking: false},
		{Content: "final answer part 2", IsThinking: false, IsFinal: true},
	}}

	a := NewRecipeAgent()
	result, err := a.Run(context.Background(), Context{Message: "how do I poach an egg", Client: fake}, nil, nil)
	require.NoError(t, err)
	require.Equal(t, StatusOK, result.Status)
	require.Equal(t, "final answer part 1 final answer part 2", result.Text)
}

func TestPromptAgent_NoClientIsSkipped(t *testing.T) {
	a := NewIntentAgent()
	result, err := a.Run(context.Background(), Context{Message: "hi"}, nil, nil)
	require.NoError(t, err)
	require.Equal(t, StatusSkipped, result.Status)
}

func TestPromptAgent_PropagatesClientError(t *testing.T) {
	fake := &llm.FakeClient{Err: assertError("boom")}
	a := NewPresentationAgent()
	_, err := a.Run(context.Background(), Context{Message: "hi", Client: fake}, nil, nil)
	require.Error(t, err)
}

func TestStandardSet_ContainsAllTableAgents(t *testing.T) {
	set := StandardSet()
	for _, name := range []string{"intent", "recipe", "presentation", "sensory_model", "explanation", "frontier", "selector", "recipe_renderer"} {
		_, ok := set[name]
		require.True(t, ok, "missing agent %s", name)
	}
}

func TestResearchAgent_NamedDynamically(t *testing.T) {
	a := NewResearchAgent("deep_literature_search")
	require.Equal(t, "deep_literature_search", a.Name())
}

type assertErr string

func (e assertErr) Error() string { return string(e) }

func assertError(msg string) error { return assertErr(msg) }
