package compounds

import (
	"context"
	"testing"
	"time"

	"github.com/kitchencore/reasoner/pkg/config"
	"github.com/stretchr/testify/require"
)

type fakeLookup struct {
	ids        map[string]string
	properties map[string]map[string]any
}

func (f fakeLookup) SearchByName(ctx context.Context, name string) (string, bool, error) {
	id, ok := f.ids[name]
	return id, ok, nil
}

func (f fakeLookup) PropertiesByID(ctx context.Context, id string) (map[string]any, error) {
	return f.properties[id], nil
}

func baseCfg() config.CompoundsConfig {
	return config.CompoundsConfig{RequestsPerSecond: 1000, RequestTimeout: time.Second, MaxRetries: 1}
}

func TestResolveIngredients_MixResolvedAndUnresolved(t *testing.T) {
	lookup := fakeLookup{
		ids:        map[string]string{"capsaicin": "CID1"},
		properties: map[string]map[string]any{"CID1": {"formula": "C18H27NO3"}},
	}
	c := New(baseCfg(), lookup)
	res, err := c.ResolveIngredients(context.Background(), []string{"capsaicin", "unknownite"})
	require.NoError(t, err)
	require.Len(t, res.Resolved, 1)
	require.Equal(t, []string{"unknownite"}, res.Unresolved)
	require.InDelta(t, 0.5, res.Confidence, 0.0001)
	require.Len(t, res.ProofHash, 12)
}

func TestResolveIngredients_EmptyInputHasZeroConfidence(t *testing.T) {
	c := New(baseCfg(), fakeLookup{})
	res, err := c.ResolveIngredients(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, 0.0, res.Confidence)
}

func TestProofHash_StableAcrossOrdering(t *testing.T) {
	a := proofHash([]Compound{{Name: "b", ID: "2"}, {Name: "a", ID: "1"}})
	b := proofHash([]Compound{{Name: "a", ID: "1"}, {Name: "b", ID: "2"}})
	require.Equal(t, a, b)
}

func TestExtractIngredientNames_PrefersExplicitKwarg(t *testing.T) {
	names := ExtractIngredientNames(
		map[string]any{"ingredients": []string{"salt"}},
		map[string]any{"ingredients": []string{"pepper"}},
		"- 200g flour",
		[]string{"sugar"},
	)
	require.Equal(t, []string{"salt"}, names)
}

func TestExtractIngredientNames_FallsBackToMessageRegex(t *testing.T) {
	names := ExtractIngredientNames(nil, nil, "- 200g flour\n- 2 eggs", []string{"sugar"})
	require.Equal(t, []string{"flour", "eggs"}, names)
}

func TestExtractIngredientNames_FallsBackToCurrentIngredients(t *testing.T) {
	names := ExtractIngredientNames(nil, nil, "no ingredients listed here", []string{"sugar"})
	require.Equal(t, []string{"sugar"}, names)
}
