package agent

import (
	"context"
	"testing"

	"github.com/kitchencore/reasoner/pkg/llm"
	"github.com/stretchr/testify/require"
)

func TestFilterDominated_DropsStrictlyWorseVariant(t *testing.T) {
	variants := []SensoryVariant{
		{Name: "better", Profile: SensoryProfile{"tenderness": 0.8, "crispness": 0.8, "moistness": 0.8, "chewiness": 0.2}},
		{Name: "worse", Profile: SensoryProfile{"tenderness": 0.5, "crispness": 0.5, "moistness": 0.5, "chewiness": 0.5}},
	}
	kept := filterDominated(variants, frontierObjectives)
	require.Len(t, kept, 1)
	require.Equal(t, "better", kept[0].Name)
}

func TestFilterDominated_KeepsTradeOffs(t *testing.T) {
	variants := []SensoryVariant{
		{Name: "crisp", Profile: SensoryProfile{"tenderness": 0.3, "crispness": 0.9, "moistness": 0.3, "chewiness": 0.2}},
		{Name: "tender", Profile: SensoryProfile{"tenderness": 0.9, "crispness": 0.3, "moistness": 0.5, "chewiness": 0.4}},
	}
	kept := filterDominated(variants, frontierObjectives)
	require.Len(t, kept, 2)
}

func TestDominates_RequiresAtLeastOneBetter(t *testing.T) {
	equal := SensoryVariant{Profile: SensoryProfile{"tenderness": 0.5, "crispness": 0.5, "moistness": 0.5, "chewiness": 0.5}}
	require.False(t, dominates(equal, equal, frontierObjectives))
}

func TestPreferenceWeights_ComfortPrioritizesTendernessAndMoistness(t *testing.T) {
	w := preferenceWeights(map[string]string{"eating_style": "comfort"})
	require.Equal(t, 2.0, w["tenderness"])
	require.Equal(t, 1.5, w["moistness"])
	require.Equal(t, -1.5, w["chewiness"])
}

func TestPreferenceWeights_CrispTexturePreferenceFlipsBalance(t *testing.T) {
	w := preferenceWeights(map[string]string{"texture_preference": "crisp"})
	require.Equal(t, 3.0, w["crispness"])
	require.Equal(t, 0.5, w["tenderness"])
}

func TestScoreVariant_IsWeightedDotProduct(t *testing.T) {
	profile := SensoryProfile{"tenderness": 0.5, "crispness": 0.5, "moistness": 0.5, "chewiness": 0.5}
	weights := map[string]float64{"tenderness": 1.0, "chewiness": -1.0}
	require.Equal(t, 0.0, scoreVariant(profile, weights))
}

func TestNewSelectorAgent_PicksHighestScoringFrontierVariant(t *testing.T) {
	frontier := Result{
		Name:   "frontier",
		Status: StatusOK,
		Data: map[string]any{"variants": []SensoryVariant{
			{Name: "crisp", Profile: SensoryProfile{"tenderness": 0.2, "crispness": 0.9, "moistness": 0.3, "chewiness": 0.1}},
			{Name: "tender", Profile: SensoryProfile{"tenderness": 0.9, "crispness": 0.2, "moistness": 0.6, "chewiness": 0.3}},
		}},
	}

	selector := NewSelectorAgent()
	result, err := selector.Run(context.Background(), Context{
		Preferences: map[string]string{"texture_preference": "soft"},
	}, nil, map[string]any{"frontier": frontier})

	require.NoError(t, err)
	require.Equal(t, StatusOK, result.Status)
	selected := result.Data["selected_variant"].(SensoryVariant)
	require.Equal(t, "tender", selected.Name)
}

func TestNewSelectorAgent_SkipsWithoutFrontierResult(t *testing.T) {
	selector := NewSelectorAgent()
	result, err := selector.Run(context.Background(), Context{}, nil, nil)
	require.NoError(t, err)
	require.Equal(t, StatusSkipped, result.Status)
}

func TestNewFrontierAgent_SkippedWithoutClient(t *testing.T) {
	frontierAgent := NewFrontierAgent()
	result, err := frontierAgent.Run(context.Background(), Context{Message: "how do I fry chicken"}, nil, nil)
	require.NoError(t, err)
	require.Equal(t, StatusSkipped, result.Status)
}

func TestNewFrontierAgent_FiltersVariantsFromStructuredResponses(t *testing.T) {
	fake := &jsonPerTargetClient{
		byTarget: map[string]string{
			"frontier:Crisp":    `{"recipe": "double-fry coating", "profile": {"tenderness": 0.3, "crispness": 0.95, "moistness": 0.3, "chewiness": 0.2}}`,
			"frontier:Tender":   `{"recipe": "brined and slow-braised", "profile": {"tenderness": 0.95, "crispness": 0.2, "moistness": 0.3, "chewiness": 0.2}}`,
			"frontier:Balanced": `{"recipe": "milder version of both", "profile": {"tenderness": 0.4, "crispness": 0.15, "moistness": 0.2, "chewiness": 0.3}}`,
		},
	}
	frontierAgent := NewFrontierAgent()
	result, err := frontierAgent.Run(context.Background(), Context{Message: "fried chicken", Client: fake}, nil, nil)

	require.NoError(t, err)
	require.Equal(t, StatusOK, result.Status)
	variants := result.Data["variants"].([]SensoryVariant)

	var names []string
	for _, v := range variants {
		names = append(names, v.Name)
	}
	require.Contains(t, names, "Crisp")
	require.Contains(t, names, "Tender")
	require.NotContains(t, names, "Balanced")
}

// jsonPerTargetClient returns a different canned JSON variant body keyed
// by the request's SessionID, since NewFrontierAgent tags each per-target
// call as "frontier:<name>".
type jsonPerTargetClient struct {
	byTarget map[string]string
}

func (c *jsonPerTargetClient) Stream(ctx context.Context, req llm.Request) (<-chan llm.StreamChunk, <-chan error) {
	chunks := make(chan llm.StreamChunk, 1)
	errs := make(chan error, 1)
	chunks <- llm.StreamChunk{Content: c.byTarget[req.SessionID], IsFinal: true}
	close(chunks)
	close(errs)
	return chunks, errs
}

func (c *jsonPerTargetClient) Close() error { return nil }
