package agent

import (
	"fmt"
	"strings"

	"github.com/kitchencore/reasoner/pkg/llm"
)

func contextBlock(ac Context) string {
	if len(ac.RetrievedCtx) == 0 {
		return ""
	}
	var b strings.Builder
	for index, snippets := range ac.RetrievedCtx {
		for _, s := range snippets {
			fmt.Fprintf(&b, "[%s] %s\n", index, s)
		}
	}
	return b.String()
}

func systemMessage(persona string, ac Context) llm.Message {
	content := persona
	if ctxBlock := contextBlock(ac); ctxBlock != "" {
		content += "\n\nRetrieved context:\n" + ctxBlock
	}
	return llm.Message{Role: llm.RoleSystem, Content: content}
}

// NewIntentAgent classifies the user's goal and confidence -- required
// for every profile (spec §4.2 table).
func NewIntentAgent() Agent {
	return NewPromptAgent("intent", func(ac Context) []llm.Message {
		return []llm.Message{
			systemMessage("Identify the user's culinary goal (one short phrase) and nothing else.", ac),
			{Role: llm.RoleUser, Content: ac.Message},
		}
	})
}

// NewRecipeAgent produces the core recipe/answer content -- required for
// every profile.
func NewRecipeAgent() Agent {
	return NewPromptAgent("recipe", func(ac Context) []llm.Message {
		return []llm.Message{
			systemMessage("You are a precise culinary assistant. Answer the user's cooking question directly.", ac),
			{Role: llm.RoleUser, Content: ac.Message},
		}
	})
}

// NewPresentationAgent formats/polishes the recipe output for display --
// required for every profile.
func NewPresentationAgent() Agent {
	return NewPromptAgent("presentation", func(ac Context) []llm.Message {
		return []llm.Message{
			systemMessage("Format the given recipe answer for clear, friendly presentation.", ac),
			{Role: llm.RoleUser, Content: ac.Message},
		}
	})
}

// NewSensoryModelAgent models texture/flavor/aroma mechanics -- added at
// SENSORY and above.
func NewSensoryModelAgent() Agent {
	return NewPromptAgent("sensory_model", func(ac Context) []llm.Message {
		return []llm.Message{
			systemMessage("Explain the sensory mechanics (texture, flavor, aroma) behind the dish in question.", ac),
			{Role: llm.RoleUser, Content: ac.Message},
		}
	})
}

// NewExplanationAgent produces the accompanying mechanism explanation --
// added at SENSORY and above.
func NewExplanationAgent() Agent {
	return NewPromptAgent("explanation", func(ac Context) []llm.Message {
		return []llm.Message{
			systemMessage("Explain the underlying food-science mechanism in plain language.", ac),
			{Role: llm.RoleUser, Content: ac.Message},
		}
	})
}

// NewRecipeRendererAgent is the speculative node: it renders a quick
// draft with no dependency on recipe/presentation. The pipeline does not
// read its output, so no profile falls back to this draft.
func NewRecipeRendererAgent() Agent {
	return NewPromptAgent("recipe_renderer", func(ac Context) []llm.Message {
		return []llm.Message{
			systemMessage("Render a fast, minimal draft answer -- brevity over polish.", ac),
			{Role: llm.RoleUser, Content: ac.Message},
		}
	})
}

// NewResearchAgent builds one of the configurable research-only agents
// added at RESEARCH (spec §9 open question: RESEARCH = OPTIMIZE's sets
// plus configured research-only agents).
func NewResearchAgent(name string) Agent {
	return NewPromptAgent(name, func(ac Context) []llm.Message {
		return []llm.Message{
			systemMessage(fmt.Sprintf("Perform deep research as the %q specialist for this query, citing mechanisms where relevant.", name), ac),
			{Role: llm.RoleUser, Content: ac.Message},
		}
	})
}

// StandardSet builds the fixed non-research agents the Policy Engine's
// agent table names.
func StandardSet() map[string]Agent {
	return map[string]Agent{
		"intent":          NewIntentAgent(),
		"recipe":          NewRecipeAgent(),
		"presentation":    NewPresentationAgent(),
		"sensory_model":   NewSensoryModelAgent(),
		"explanation":     NewExplanationAgent(),
		"frontier":        NewFrontierAgent(),
		"selector":        NewSelectorAgent(),
		"recipe_renderer": NewRecipeRendererAgent(),
	}
}
