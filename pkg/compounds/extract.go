package compounds

import (
	"regexp"
	"strings"
)

// lineItemPattern matches user-message lines like "- 200g flour".
var lineItemPattern = regexp.MustCompile(`(?m)^\s*-\s*\d+\s*[a-zA-Z]*\s+(.+)$`)

// ExtractIngredientNames implements the decorator-like wrapper's name
// resolution order (spec §4.9): explicit kwarg, then an intent object's
// ingredients field, then a regex pass over the user message, then a
// prior current-ingredients list. The first non-empty source wins.
func ExtractIngredientNames(kwargs map[string]any, intent map[string]any, userMessage string, currentIngredients []string) []string {
	if names, ok := stringSlice(kwargs["ingredients"]); ok && len(names) > 0 {
		return names
	}
	if intent != nil {
		if names, ok := stringSlice(intent["ingredients"]); ok && len(names) > 0 {
			return names
		}
	}
	if names := extractFromMessage(userMessage); len(names) > 0 {
		return names
	}
	if len(currentIngredients) > 0 {
		return currentIngredients
	}
	return nil
}

func extractFromMessage(message string) []string {
	matches := lineItemPattern.FindAllStringSubmatch(message, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.TrimSpace(m[1]))
	}
	return names
}

func stringSlice(v any) ([]string, bool) {
	switch vv := v.(type) {
	case []string:
		return vv, true
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out, true
	default:
		return nil, false
	}
}
