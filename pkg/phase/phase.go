// Package phase implements the confidence-gated Phase Selector (spec
// §4.4): an ordered subset of {DIAGNOSE, MODEL, PREDICT, RECOMMEND}
// chosen from message patterns, memory, and skill level, then validated
// per-phase once content is generated.
package phase

import (
	"strings"

	"github.com/kitchencore/reasoner/pkg/config"
	"github.com/kitchencore/reasoner/pkg/mode"
)

// Phase is one of the four canonical reasoning phases.
type Phase string

const (
	Diagnose  Phase = "DIAGNOSE"
	Model     Phase = "MODEL"
	Predict   Phase = "PREDICT"
	Recommend Phase = "RECOMMEND"
)

// canonicalOrder fixes the output sequence regardless of match order.
var canonicalOrder = []Phase{Diagnose, Model, Predict, Recommend}

// Preferences is the subset of remembered user preferences relevant to
// phase selection.
type Preferences struct {
	HasEquipment bool
	SkillLevel   string // "", "beginner", "intermediate", "advanced"
}

// Input bundles what the selector needs to choose phases for one turn.
type Input struct {
	Message          string
	PreviousMode     mode.State
	IntentConfidence float64
	Preferences      Preferences
}

// Select implements spec §4.4: confidence gate, pattern mapping, memory
// short-circuit, and skill-level modulation.
func Select(in Input, vocab config.VocabularyConfig) []Phase {
	lower := strings.ToLower(in.Message)
	scientific := containsAny(lower, vocab.ScientificKeywords)

	if !scientific && in.IntentConfidence < 0.6 {
		return nil
	}

	phases := patternPhases(lower, in.PreviousMode, vocab)

	if isProcedural(lower, vocab) && in.Preferences.HasEquipment && in.Preferences.SkillLevel != "" {
		phases = remove(phases, Model)
		if onlyContains(phases, Recommend) {
			return nil
		}
	}

	if in.Preferences.SkillLevel == "beginner" && !isWhyQuestion(lower) {
		phases = remove(phases, Model)
	}

	return sortCanonical(phases)
}

func patternPhases(lower string, previous mode.State, vocab config.VocabularyConfig) []Phase {
	switch {
	case strings.Contains(lower, "how do i fix") || strings.Contains(lower, "how do i fix it"):
		return []Phase{Diagnose, Recommend}
	case strings.Contains(lower, "what if") || strings.Contains(lower, "what happens if"):
		return []Phase{Predict, Model}
	case isWhyQuestion(lower) || containsAny(lower, vocab.ScientificKeywords):
		return []Phase{Model}
	case containsAny(lower, vocab.DiagnosticPhrases) && !isProcedural(lower, vocab):
		return []Phase{Diagnose}
	case isProcedural(lower, vocab):
		return nil
	case previous == mode.Diagnostic:
		return []Phase{Diagnose}
	default:
		return nil
	}
}

func isWhyQuestion(lower string) bool {
	return strings.HasPrefix(strings.TrimSpace(lower), "why")
}

func isProcedural(lower string, vocab config.VocabularyConfig) bool {
	return containsAny(lower, vocab.ProceduralTriggers)
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

func remove(phases []Phase, target Phase) []Phase {
	out := make([]Phase, 0, len(phases))
	for _, p := range phases {
		if p != target {
			out = append(out, p)
		}
	}
	return out
}

func onlyContains(phases []Phase, target Phase) bool {
	return len(phases) == 1 && phases[0] == target
}

func sortCanonical(phases []Phase) []Phase {
	if len(phases) == 0 {
		return nil
	}
	present := make(map[Phase]bool, len(phases))
	for _, p := range phases {
		present[p] = true
	}
	out := make([]Phase, 0, len(phases))
	for _, p := range canonicalOrder {
		if present[p] {
			out = append(out, p)
		}
	}
	return out
}

var actionVerbs = []string{"add", "reduce", "increase", "use", "try", "adjust", "heat", "cool", "mix", "stir", "fold", "whisk", "bake", "fry", "boil", "simmer"}

var instructionalImperatives = []string{"you should", "first step", "next,", "then add", "start by", "begin by"}

// ValidateContent implements the per-phase content validation rules from
// spec §4.4. Returns true if content may be kept for the given phase.
func ValidateContent(p Phase, content string) bool {
	lower := strings.ToLower(content)
	switch p {
	case Recommend:
		return containsAny(lower, actionVerbs)
	case Model:
		return !containsAny(lower, instructionalImperatives)
	case Diagnose, Predict:
		return len(strings.TrimSpace(removeWhitespace(content))) >= 10
	default:
		return true
	}
}

func removeWhitespace(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FilterValid drops phases whose generated content fails validation. If
// results has no entry for a selected phase, that phase is dropped too.
func FilterValid(selected []Phase, results map[Phase]string) []Phase {
	out := make([]Phase, 0, len(selected))
	for _, p := range selected {
		content, ok := results[p]
		if !ok || !ValidateContent(p, content) {
			continue
		}
		out = append(out, p)
	}
	return out
}
