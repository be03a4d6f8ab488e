package phase

import (
	"testing"

	"github.com/kitchencore/reasoner/pkg/config"
	"github.com/kitchencore/reasoner/pkg/mode"
	"github.com/stretchr/testify/require"
)

func TestSelect_LowConfidenceNonScientificReturnsEmpty(t *testing.T) {
	cfg := config.Defaults()
	phases := Select(Input{Message: "tell me something", IntentConfidence: 0.3}, cfg.Vocabulary)
	require.Empty(t, phases)
}

func TestSelect_HowDoIFixMapsToDiagnoseRecommend(t *testing.T) {
	cfg := config.Defaults()
	phases := Select(Input{Message: "how do I fix this sauce", IntentConfidence: 0.9}, cfg.Vocabulary)
	require.Equal(t, []Phase{Diagnose, Recommend}, phases)
}

func TestSelect_WhatIfMapsToPredictModelInCanonicalOrder(t *testing.T) {
	cfg := config.Defaults()
	phases := Select(Input{Message: "what if I use butter instead", IntentConfidence: 0.9}, cfg.Vocabulary)
	require.Equal(t, []Phase{Model, Predict}, phases)
}

func TestSelect_WhyQuestionMapsToModel(t *testing.T) {
	cfg := config.Defaults()
	phases := Select(Input{Message: "why does this happen", IntentConfidence: 0.9}, cfg.Vocabulary)
	require.Equal(t, []Phase{Model}, phases)
}

func TestSelect_ScientificKeywordBypassesConfidenceGate(t *testing.T) {
	cfg := config.Defaults()
	kw := cfg.Vocabulary.ScientificKeywords[0]
	phases := Select(Input{Message: "tell me about " + kw, IntentConfidence: 0.1}, cfg.Vocabulary)
	require.Equal(t, []Phase{Model}, phases)
}

func TestSelect_ProceduralTriggerReturnsEmpty(t *testing.T) {
	cfg := config.Defaults()
	procMsg := cfg.Vocabulary.ProceduralTriggers[0] + " this dish"
	phases := Select(Input{Message: procMsg, IntentConfidence: 0.9}, cfg.Vocabulary)
	require.Empty(t, phases)
}

func TestSelect_PreviousDiagnosticFallsThroughToDiagnose(t *testing.T) {
	cfg := config.Defaults()
	phases := Select(Input{Message: "still not working", IntentConfidence: 0.9, PreviousMode: mode.Diagnostic}, cfg.Vocabulary)
	require.Equal(t, []Phase{Diagnose}, phases)
}

func TestSelect_ProceduralWithEquipmentAndSkillStaysEmpty(t *testing.T) {
	cfg := config.Defaults()
	procMsg := cfg.Vocabulary.ProceduralTriggers[0] + " this dish"
	phases := Select(Input{
		Message:          procMsg,
		IntentConfidence: 0.9,
		Preferences:      Preferences{HasEquipment: true, SkillLevel: "intermediate"},
	}, cfg.Vocabulary)
	require.Empty(t, phases)
}

func TestSelect_BeginnerDropsModelUnlessWhyQuestion(t *testing.T) {
	cfg := config.Defaults()
	phases := Select(Input{
		Message:          "what if I double the recipe",
		IntentConfidence: 0.9,
		Preferences:      Preferences{SkillLevel: "beginner"},
	}, cfg.Vocabulary)
	require.Equal(t, []Phase{Predict}, phases)
}

func TestSelect_BeginnerKeepsModelForWhyQuestion(t *testing.T) {
	cfg := config.Defaults()
	phases := Select(Input{
		Message:          "why does this happen",
		IntentConfidence: 0.9,
		Preferences:      Preferences{SkillLevel: "beginner"},
	}, cfg.Vocabulary)
	require.Equal(t, []Phase{Model}, phases)
}

func TestValidateContent_RecommendRequiresActionVerb(t *testing.T) {
	require.True(t, ValidateContent(Recommend, "Add more salt to balance it."))
	require.False(t, ValidateContent(Recommend, "That sounds delicious overall."))
}

func TestValidateContent_ModelRejectsInstructionalImperative(t *testing.T) {
	require.False(t, ValidateContent(Model, "First step is to understand the Maillard reaction."))
	require.True(t, ValidateContent(Model, "The Maillard reaction browns proteins and sugars under heat."))
}

func TestValidateContent_DiagnoseRequiresMinimumLength(t *testing.T) {
	require.False(t, ValidateContent(Diagnose, "too short"))
	require.True(t, ValidateContent(Diagnose, "The sauce likely broke because it was heated too quickly."))
}

func TestFilterValid_DropsMissingOrInvalidPhases(t *testing.T) {
	selected := []Phase{Diagnose, Recommend}
	results := map[Phase]string{
		Diagnose: "The sauce broke because of rapid temperature change.",
	}
	out := FilterValid(selected, results)
	require.Equal(t, []Phase{Diagnose}, out)
}
