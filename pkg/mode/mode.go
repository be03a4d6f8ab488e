// Package mode implements the sticky Mode Classifier (spec §4.3): a small
// state machine that tracks conversational mode across turns and only
// transitions on specific triggers, logging a reason at every transition.
package mode

import (
	"log/slog"
	"strings"

	"github.com/kitchencore/reasoner/pkg/config"
)

// State is a conversational mode.
type State string

const (
	Conversation    State = "CONVERSATION"
	Diagnostic      State = "DIAGNOSTIC"
	Procedural      State = "PROCEDURAL"
	NumericAnalysis State = "NUMERIC_ANALYSIS"
)

// Input bundles what the classifier needs to evaluate a transition.
type Input struct {
	Message   string
	Previous  State // "" treated as Conversation
	TurnCount int
}

// Result is the outcome of one classification step.
type Result struct {
	State  State
	Reason string
}

func isTopicShift(message string, vocab config.VocabularyConfig) bool {
	return containsAny(strings.ToLower(message), vocab.TopicShiftPhrases)
}

func asksForNutrition(message string, vocab config.VocabularyConfig) bool {
	return containsAny(strings.ToLower(message), vocab.NutritionMarkers)
}

func asksForHealth(message string, vocab config.VocabularyConfig) bool {
	return containsAny(strings.ToLower(message), vocab.HealthTerms)
}

func asksForSteps(message string, vocab config.VocabularyConfig) bool {
	return containsAny(strings.ToLower(message), vocab.ProceduralTriggers)
}

func isCausalIntent(message string, vocab config.VocabularyConfig) bool {
	return containsAny(strings.ToLower(message), vocab.CausalTriggers)
}

func isLowRelevance(message string, vocab config.VocabularyConfig) bool {
	lower := strings.ToLower(message)
	return len(strings.Fields(lower)) < 3 && !containsAny(lower, vocab.DiagnosticPhrases)
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// Classify runs one step of the sticky state machine. It never panics on
// an unrecognized Previous value, treating it as Conversation.
func Classify(in Input, vocab config.VocabularyConfig, log *slog.Logger) Result {
	prev := in.Previous
	if prev == "" {
		prev = Conversation
	}

	next, reason := transition(prev, in.Message, vocab)

	if log != nil && next != prev {
		log.Info("mode transition",
			"from", string(prev),
			"to", string(next),
			"reason", reason,
			"turn", in.TurnCount,
		)
	}

	return Result{State: next, Reason: reason}
}

// transition implements the per-previous-mode rule table from spec §4.3.
func transition(prev State, message string, vocab config.VocabularyConfig) (State, string) {
	nutrition := asksForNutrition(message, vocab)
	health := asksForHealth(message, vocab)
	steps := asksForSteps(message, vocab)
	causal := isCausalIntent(message, vocab)
	shift := isTopicShift(message, vocab)
	lowRelevance := isLowRelevance(message, vocab)

	switch prev {
	case Conversation:
		switch {
		case nutrition || health:
			return NumericAnalysis, "nutrition or health question"
		case steps:
			return Procedural, "procedural request"
		case causal:
			return Diagnostic, "causal intent detected"
		default:
			return Conversation, "no trigger"
		}

	case Diagnostic:
		switch {
		case shift:
			return Conversation, "topic shift"
		case nutrition || health:
			return NumericAnalysis, "nutrition or health question"
		case lowRelevance:
			return Conversation, "low relevance follow-up"
		default:
			return Diagnostic, "sticky diagnostic"
		}

	case Procedural:
		switch {
		case shift:
			return Conversation, "topic shift"
		case nutrition || health:
			return NumericAnalysis, "nutrition or health question"
		case steps || isContinuation(message, vocab):
			return Procedural, "sticky procedural"
		default:
			return Conversation, "procedural sequence ended"
		}

	case NumericAnalysis:
		switch {
		case shift:
			return Conversation, "topic shift"
		case lowRelevance:
			return Conversation, "low relevance follow-up"
		default:
			return NumericAnalysis, "sticky numeric analysis"
		}

	default:
		return Conversation, "unrecognized previous mode"
	}
}

// isContinuation recognizes short affirmation-style follow-ups ("ok",
// "continue", "go on") that keep a procedural sequence alive without
// re-triggering a procedural keyword.
func isContinuation(message string, vocab config.VocabularyConfig) bool {
	lower := strings.ToLower(strings.TrimSpace(message))
	for _, c := range vocab.AffirmationTokens {
		if lower == c || strings.HasPrefix(lower, c+" ") {
			return true
		}
	}
	return false
}
