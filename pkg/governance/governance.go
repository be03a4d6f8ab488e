// Package governance implements mode-aware nutrition-claim governance
// (spec §4.8): strict numeric leakage patterns are always stripped,
// contextual units are stripped unless a PROCEDURAL exception applies,
// and culinary volume references ("cup of flour") are preserved.
package governance

import (
	"regexp"
	"strings"
)

const neutralPhrase = "an appropriate amount"

var strictPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b\d+(\.\d+)?\s*kcal\b`),
	regexp.MustCompile(`(?i)\b(calories|protein|fat|carbs|sugar)\s*:\s*\d+(\.\d+)?\s*(g|mg|kcal)?\b`),
	regexp.MustCompile(`(?i)\b(provides|contains)\s+\d+(\.\d+)?\s*(g|mg)\b`),
	regexp.MustCompile(`(?i)\b\d+(\.\d+)?\s*scoville\b`),
}

var contextualUnitPattern = regexp.MustCompile(`(?i)\b\d+(\.\d+)?\s*(?:(?:g|mg)\b|%)`)

var strictNutrientKeywords = []string{"protein", "carb", "fiber", "sodium", "cholesterol", "vitamin"}
var ambiguousKeywords = []string{"sugar", "fat"}

var cultinaryOfPattern = regexp.MustCompile(`(?i)\bof\s+[a-z]+`)

// Mode is the subset of conversational modes governance cares about.
type Mode string

const (
	ModeProcedural      Mode = "PROCEDURAL"
	ModeNumericAnalysis Mode = "NUMERIC_ANALYSIS"
	ModeOther           Mode = ""
)

// Apply runs governance over text for the given mode. NUMERIC_ANALYSIS
// disables governance entirely -- that mode is the authorized numeric
// surface (spec §4.8).
func Apply(text string, mode Mode) string {
	if mode == ModeNumericAnalysis {
		return text
	}

	out := stripStrict(text)
	out = stripContextual(out, mode)
	return out
}

func stripStrict(text string) string {
	for _, p := range strictPatterns {
		text = p.ReplaceAllString(text, neutralPhrase)
	}
	return text
}

func stripContextual(text string, mode Mode) string {
	locs := contextualUnitPattern.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return text
	}

	var b strings.Builder
	last := 0
	for _, loc := range locs {
		start, end := loc[0], loc[1]
		b.WriteString(text[last:start])
		b.WriteString(resolveContextualMatch(text, text[start:end], start, mode))
		last = end
	}
	b.WriteString(text[last:])
	return b.String()
}

// resolveContextualMatch decides whether one contextual-unit match
// should be stripped, preserved as a culinary volume reference, or kept
// because the surrounding window qualifies for the PROCEDURAL exception.
func resolveContextualMatch(text, match string, idx int, mode Mode) string {
	window := surroundingWindow(text, idx, len(match))

	if mode == ModeProcedural {
		if !containsAny(window, strictNutrientKeywords) {
			return match
		}
		if containsAny(window, ambiguousKeywords) {
			return match
		}
		return neutralPhrase
	}

	if followedByOf(text, idx+len(match)) {
		return match
	}

	return neutralPhrase
}

func surroundingWindow(text string, idx, matchLen int) string {
	const radius = 25
	start := idx - radius
	if start < 0 {
		start = 0
	}
	end := idx + matchLen + radius
	if end > len(text) {
		end = len(text)
	}
	return strings.ToLower(text[start:end])
}

func followedByOf(text string, afterIdx int) bool {
	if afterIdx >= len(text) {
		return false
	}
	rest := text[afterIdx:]
	trimmed := strings.TrimLeft(rest, " ")
	return cultinaryOfPattern.MatchString(" " + trimmed)
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
