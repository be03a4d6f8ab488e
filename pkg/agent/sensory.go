package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/kitchencore/reasoner/pkg/llm"
)

// SensoryProfile is the flattened set of numeric texture/flavor/mouthfeel
// attributes a variant is scored on.
type SensoryProfile map[string]float64

// SensoryVariant is one named recipe variant plus its predicted profile.
type SensoryVariant struct {
	Name    string
	Recipe  string
	Profile SensoryProfile
}

// frontierTargets are the named angles NewFrontierAgent explores per
// request -- a crisp-leaning variant, a tender-leaning variant, and one
// aiming for trade-off balance across the whole profile.
var frontierTargets = []struct{ Name, Goal string }{
	{"Crisp", "maximize crispness"},
	{"Tender", "maximize tenderness"},
	{"Balanced", "a balanced trade-off across tenderness, crispness, and moistness"},
}

// frontierObjectives is the default optimization direction per sensory
// attribute used for Pareto dominance filtering.
var frontierObjectives = map[string]string{
	"tenderness": "maximize",
	"crispness":  "maximize",
	"moistness":  "maximize",
	"chewiness":  "minimize",
}

// NewFrontierAgent proposes one recipe variant per named target, predicts
// each variant's sensory profile, and keeps only the variants on the
// Pareto frontier -- no variant survives that some other variant matches
// or beats on every objective and strictly beats on at least one. Added
// at OPTIMIZE and above.
func NewFrontierAgent() Agent {
	return Func{
		AgentName: "frontier",
		Body: func(ctx context.Context, ac Context, args []any, kwargs map[string]any) (Result, error) {
			if ac.Client == nil {
				return Result{Name: "frontier", Status: StatusSkipped}, nil
			}

			var variants []SensoryVariant
			for _, target := range frontierTargets {
				v, err := proposeVariant(ctx, ac, target.Name, target.Goal)
				if err != nil {
					continue
				}
				variants = append(variants, v)
			}
			if len(variants) == 0 {
				return Result{Name: "frontier", Status: StatusDegraded}, nil
			}

			frontier := filterDominated(variants, frontierObjectives)
			names := make([]string, len(frontier))
			for i, v := range frontier {
				names[i] = v.Name
			}

			return Result{
				Name:   "frontier",
				Status: StatusOK,
				Text:   "Pareto frontier: " + strings.Join(names, ", "),
				Data:   map[string]any{"variants": frontier},
			}, nil
		},
	}
}

// proposeVariant asks the model for one named variant and its predicted
// sensory profile as a single JSON object -- standing in for the
// engine-then-predictor pipeline with one structured generation step.
func proposeVariant(ctx context.Context, ac Context, name, goal string) (SensoryVariant, error) {
	persona := fmt.Sprintf(
		"Propose a recipe variant named %q that pursues: %s. "+
			"Reply with exactly one JSON object and nothing else: "+
			`{"recipe": "<one paragraph describing the variant>", "profile": `+
			`{"tenderness": <0-1>, "crispness": <0-1>, "moistness": <0-1>, "chewiness": <0-1>}}.`,
		name, goal)

	req := llm.Request{SessionID: "frontier:" + name, Messages: []llm.Message{
		systemMessage(persona, ac),
		{Role: llm.RoleUser, Content: ac.Message},
	}}

	chunks, errs := ac.Client.Stream(ctx, req)
	var text strings.Builder
	for chunk := range chunks {
		if !chunk.IsThinking {
			text.WriteString(chunk.Content)
		}
	}
	if err := <-errs; err != nil {
		return SensoryVariant{}, err
	}

	var parsed struct {
		Recipe  string             `json:"recipe"`
		Profile map[string]float64 `json:"profile"`
	}
	if err := json.Unmarshal(extractJSONObject(text.String()), &parsed); err != nil {
		return SensoryVariant{}, err
	}
	return SensoryVariant{Name: name, Recipe: parsed.Recipe, Profile: parsed.Profile}, nil
}

// extractJSONObject trims any prose wrapping a model's JSON reply down to
// the outermost {...} span.
func extractJSONObject(s string) []byte {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end == -1 || end < start {
		return []byte("{}")
	}
	return []byte(s[start : end+1])
}

// filterDominated keeps only the variants no other variant dominates.
func filterDominated(variants []SensoryVariant, objectives map[string]string) []SensoryVariant {
	var kept []SensoryVariant
	for i, v1 := range variants {
		dominated := false
		for j, v2 := range variants {
			if i == j {
				continue
			}
			if dominates(v2, v1, objectives) {
				dominated = true
				break
			}
		}
		if !dominated {
			kept = append(kept, v1)
		}
	}
	return kept
}

// dominates reports whether v1 is at least as good as v2 on every
// objective and strictly better on at least one.
func dominates(v1, v2 SensoryVariant, objectives map[string]string) bool {
	betterOnOne := false
	for attr, goal := range objectives {
		a, b := v1.Profile[attr], v2.Profile[attr]
		switch goal {
		case "maximize":
			if a < b {
				return false
			}
			if a > b {
				betterOnOne = true
			}
		case "minimize":
			if a > b {
				return false
			}
			if a < b {
				betterOnOne = true
			}
		}
	}
	return betterOnOne
}

// NewSelectorAgent picks the highest-scoring variant off the frontier
// agent's Pareto frontier, deterministically, by projecting the caller's
// preference signals onto an objective weight vector and scoring each
// variant's profile against it. Added at OPTIMIZE and above.
func NewSelectorAgent() Agent {
	return Func{
		AgentName: "selector",
		Body: func(ctx context.Context, ac Context, args []any, kwargs map[string]any) (Result, error) {
			frontierResult, ok := kwargs["frontier"].(Result)
			if !ok || frontierResult.Status != StatusOK {
				return Result{Name: "selector", Status: StatusSkipped}, nil
			}
			variants, ok := frontierResult.Data["variants"].([]SensoryVariant)
			if !ok || len(variants) == 0 {
				return Result{Name: "selector", Status: StatusSkipped}, nil
			}

			weights := preferenceWeights(ac.Preferences)
			scores := make(map[string]float64, len(variants))
			best := variants[0]
			bestScore := math.Inf(-1)
			for _, v := range variants {
				score := scoreVariant(v.Profile, weights)
				scores[v.Name] = score
				if score > bestScore {
					bestScore = score
					best = v
				}
			}
			reasoning := explainSelection(ac.Preferences, weights)

			return Result{
				Name:   "selector",
				Status: StatusOK,
				Text:   strings.Join(reasoning, " ") + " Selected: " + best.Name + ".",
				Data: map[string]any{
					"selected_variant": best,
					"scores":           scores,
				},
			}, nil
		},
	}
}

// preferenceWeights maps explicit eating_style/texture_preference signals
// onto an objective weight vector, deterministically -- no LLM call.
func preferenceWeights(prefs map[string]string) map[string]float64 {
	weights := map[string]float64{
		"tenderness": 1.0,
		"crispness":  1.0,
		"moistness":  1.0,
		"chewiness":  -1.0,
	}
	switch prefs["eating_style"] {
	case "comfort":
		weights["tenderness"] += 1.0
		weights["moistness"] += 0.5
		weights["chewiness"] -= 0.5
	case "indulgent":
		weights["crispness"] += 1.0
		weights["moistness"] += 0.5
	case "light":
		weights["moistness"] += 1.0
		weights["crispness"] += 0.5
	case "performance":
		weights["tenderness"] += 1.0
		weights["chewiness"] -= 1.0
	}
	switch prefs["texture_preference"] {
	case "soft":
		weights["tenderness"] += 2.0
		weights["crispness"] -= 1.0
	case "crisp":
		weights["crispness"] += 2.0
		weights["tenderness"] -= 0.5
	}
	return weights
}

// scoreVariant is the weighted dot product of a variant's profile against
// the projected preference weights.
func scoreVariant(profile SensoryProfile, weights map[string]float64) float64 {
	var score float64
	for attr, weight := range weights {
		score += profile[attr] * weight
	}
	return score
}

// explainSelection names the top prioritized and de-prioritized
// attributes the selection was made on, in order of weight magnitude.
func explainSelection(prefs map[string]string, weights map[string]float64) []string {
	type weighted struct {
		attr string
		w    float64
	}
	sorted := make([]weighted, 0, len(weights))
	for attr, w := range weights {
		sorted = append(sorted, weighted{attr, w})
	}
	sort.Slice(sorted, func(i, j int) bool { return math.Abs(sorted[i].w) > math.Abs(sorted[j].w) })

	var prioritized, deprioritized []string
	for _, e := range sorted {
		if e.w > 0 && len(prioritized) < 2 {
			prioritized = append(prioritized, e.attr)
		}
	}
	for _, e := range sorted {
		if e.w < 0 {
			deprioritized = append(deprioritized, e.attr)
			break
		}
	}

	reasons := []string{fmt.Sprintf(
		"Preference profile: eating_style=%q, texture_preference=%q.",
		prefs["eating_style"], prefs["texture_preference"],
	)}
	if len(prioritized) > 0 {
		reasons = append(reasons, "Prioritized: "+strings.Join(prioritized, ", ")+".")
	}
	if len(deprioritized) > 0 {
		reasons = append(reasons, "De-emphasized: "+strings.Join(deprioritized, ", ")+".")
	}
	return reasons
}
