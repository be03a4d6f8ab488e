// Package retrieval implements the Retrieval Router & Index Manager
// (spec §4.6): keyword-driven index selection, a resident-set policy
// with mutual exclusion and memory-safety eviction, and a
// process-wide embedding throttle.
package retrieval

import (
	"log/slog"
	"strings"

	"github.com/kitchencore/reasoner/pkg/config"
)

const (
	IndexChemistry    = "chemistry"
	IndexBrandedFoods = "branded_foods"
	IndexScience      = "science"
	IndexFoundation   = "foundation"
	IndexRecipes      = "recipes"
)

// Route decides which named indexes to query for a message, logging the
// explicit routing decision (spec §4.6 "every call logs the explicit
// routing decision").
func Route(message string, vocab config.VocabularyConfig, log *slog.Logger) []string {
	lower := strings.ToLower(message)
	var chosen []string

	if containsAny(lower, vocab.ScientificKeywords) {
		chosen = append(chosen, IndexChemistry, IndexScience)
	}
	if containsAny(lower, vocab.NutritionMarkers) {
		chosen = append(chosen, IndexBrandedFoods, IndexFoundation)
	}
	if containsAny(lower, vocab.ProceduralTriggers) {
		chosen = append(chosen, IndexRecipes)
	}

	chosen = dedup(chosen)

	if log != nil {
		log.Info("retrieval route decided", "message_preview", preview(message), "indexes", chosen)
	}
	return chosen
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

func dedup(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func preview(s string) string {
	const maxLen = 60
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
