package policy

import (
	"strings"
	"testing"

	"github.com/kitchencore/reasoner/pkg/config"
	"github.com/kitchencore/reasoner/pkg/resourcemon"
	"github.com/stretchr/testify/require"
)

func baseInput(msg string) Input {
	return Input{Message: msg, Pressure: resourcemon.PressureNone}
}

func TestDecide_EmptyMessageIsFast(t *testing.T) {
	cfg := config.Defaults()
	p := Decide(baseInput(""), cfg.Policy, cfg.Vocabulary)
	require.Equal(t, Fast, p.Profile)
}

func TestDecide_DegradedForcesFast(t *testing.T) {
	cfg := config.Defaults()
	in := baseInput("what's the best way to optimize this recipe for flavor and texture today")
	in.Degraded = true
	p := Decide(in, cfg.Policy, cfg.Vocabulary)
	require.Equal(t, Fast, p.Profile)
	require.Equal(t, "gpu-degraded", p.DowngradeReason)
}

func TestDecide_CriticalPressureForcesFast(t *testing.T) {
	cfg := config.Defaults()
	in := baseInput("what's the best way to optimize this recipe for flavor and texture today")
	in.Pressure = resourcemon.PressureCritical
	p := Decide(in, cfg.Policy, cfg.Vocabulary)
	require.Equal(t, Fast, p.Profile)
}

func TestDecide_OptimizeKeyword(t *testing.T) {
	cfg := config.Defaults()
	msg := "what alternatives make this sauce better and more ideal for guests tonight at dinner party"
	require.True(t, len(strings.Fields(msg)) >= 15)
	p := Decide(baseInput(msg), cfg.Policy, cfg.Vocabulary)
	require.Equal(t, Optimize, p.Profile)
}

func TestDecide_SensoryKeyword(t *testing.T) {
	cfg := config.Defaults()
	msg := "why does this custard have such a smooth and rich mouthfeel unlike the other one"
	p := Decide(baseInput(msg), cfg.Policy, cfg.Vocabulary)
	require.Equal(t, Sensory, p.Profile)
}

func TestDecide_ModeratePressureDowngradesOptimize(t *testing.T) {
	cfg := config.Defaults()
	in := baseInput("what alternatives make this sauce better and more ideal for guests tonight at dinner party")
	in.Pressure = resourcemon.PressureModerate
	p := Decide(in, cfg.Policy, cfg.Vocabulary)
	require.Equal(t, Sensory, p.Profile)
}

func TestDecide_ExplicitModeWins(t *testing.T) {
	cfg := config.Defaults()
	in := baseInput("what alternatives make this sauce better and more ideal for guests tonight at dinner")
	in.ExplicitMode = Research
	p := Decide(in, cfg.Policy, cfg.Vocabulary)
	require.Equal(t, Research, p.Profile)
}

func TestDecide_ShortUtteranceClampsToFast(t *testing.T) {
	cfg := config.Defaults()
	p := Decide(baseInput("optimize this"), cfg.Policy, cfg.Vocabulary)
	require.Equal(t, Fast, p.Profile)
}

func TestDecide_Exactly15TokensDoesNotClamp(t *testing.T) {
	cfg := config.Defaults()
	msg := "please optimize this dish to make it the best and most ideal version for tonight"
	require.Equal(t, 15, len(strings.Fields(msg)))
	p := Decide(baseInput(msg), cfg.Policy, cfg.Vocabulary)
	require.Equal(t, Optimize, p.Profile)
}

func TestDecide_ResearchIncludesResearchOnlyAgents(t *testing.T) {
	cfg := config.Defaults()
	in := baseInput("run a full comparison")
	in.ExplicitMode = Research
	p := Decide(in, cfg.Policy, cfg.Vocabulary)
	for _, a := range cfg.Policy.ResearchOnlyAgents {
		require.True(t, p.EnabledAgents[a], "expected research-only agent %s enabled", a)
	}
	require.True(t, p.EnabledAgents["frontier"])
	require.Empty(t, p.SpeculativeAgents)
}

func TestDecide_FastHasSpeculativeRenderer(t *testing.T) {
	cfg := config.Defaults()
	p := Decide(baseInput(""), cfg.Policy, cfg.Vocabulary)
	require.True(t, p.SpeculativeAgents["recipe_renderer"])
}

func TestClip_InvalidProfileFallsBackToFast(t *testing.T) {
	require.Equal(t, Fast, Clip(Profile("bogus")))
}
