// Package memory implements the two-stage Memory Extractor (spec §4.5):
// a cheap deterministic trigger filter gates an expensive structured LLM
// extraction, confidence decays over 90 days of silence, and an
// injection rule caps what rejoins the generation prompt.
package memory

import (
	"context"
	"strings"
	"time"

	"github.com/kitchencore/reasoner/pkg/config"
)

// Field is one of the three allowed preference fields.
type Field string

const (
	Skill     Field = "skill_level"
	Equipment Field = "equipment"
	Dietary   Field = "dietary"
)

// Preference is one remembered fact with a confidence and freshness.
type Preference struct {
	Field           Field
	Value           string
	Confidence      float64
	LastConfirmedAt time.Time
}

// Preferences is the full set of remembered preferences for a user,
// keyed by field. Only one value is kept per field.
type Preferences map[Field]Preference

// Extractor is the structured-extraction call made to the LLM once the
// trigger filter fires. It must return a value only for fields whose
// stage-1 trigger matched; Extract enforces that constraint regardless.
type Extractor interface {
	Extract(ctx context.Context, message string, triggered []Field) (map[Field]string, error)
}

// TriggerMatches runs the stage-1 deterministic filter and returns which
// of the three fields have a trigger hit in the message.
func TriggerMatches(message string, vocab config.VocabularyConfig) []Field {
	lower := strings.ToLower(message)
	var fired []Field
	if containsAny(lower, vocab.SkillTriggers) {
		fired = append(fired, Skill)
	}
	if containsAny(lower, vocab.EquipmentTriggers) {
		fired = append(fired, Equipment)
	}
	if containsAny(lower, vocab.DietaryTriggers) {
		fired = append(fired, Dietary)
	}
	return fired
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

func confidenceFor(f Field) float64 {
	if f == Dietary {
		return 0.95
	}
	return 0.9
}

// Update runs both stages: the trigger filter, then (only if something
// fired) the structured extraction, and folds accepted fields into prefs.
// Returns the updated Preferences; if nothing fires, prefs is unchanged
// and no LLM call is made.
func Update(ctx context.Context, prefs Preferences, message string, vocab config.VocabularyConfig, extractor Extractor, now time.Time) (Preferences, error) {
	fired := TriggerMatches(message, vocab)
	if len(fired) == 0 {
		return prefs, nil
	}

	extracted, err := extractor.Extract(ctx, message, fired)
	if err != nil {
		return prefs, err
	}

	if prefs == nil {
		prefs = Preferences{}
	}
	firedSet := make(map[Field]bool, len(fired))
	for _, f := range fired {
		firedSet[f] = true
	}

	for field, value := range extracted {
		if !firedSet[field] {
			continue // stage 2 may only confirm fields stage 1 triggered
		}
		prefs[field] = Preference{
			Field:           field,
			Value:           value,
			Confidence:      confidenceFor(field),
			LastConfirmedAt: now,
		}
	}
	return prefs, nil
}

const defaultIdleDays = 90
const defaultDecayDelta = 0.2

// Decay applies the confidence decay rule at session start: any
// preference whose last confirmation is older than idleDays has
// decayDelta subtracted from its confidence, clamped at zero. idleDays
// and decayDelta come from config.SessionConfig; a zero idleDays falls
// back to the spec's 90-day/0.2 default.
func Decay(prefs Preferences, now time.Time, idleDays int, decayDelta float64) Preferences {
	if idleDays <= 0 {
		idleDays = defaultIdleDays
	}
	if decayDelta <= 0 {
		decayDelta = defaultDecayDelta
	}
	window := time.Duration(idleDays) * 24 * time.Hour
	for field, p := range prefs {
		if now.Sub(p.LastConfirmedAt) > window {
			p.Confidence -= decayDelta
			if p.Confidence < 0 {
				p.Confidence = 0
			}
			prefs[field] = p
		}
	}
	return prefs
}

const injectionThreshold = 0.6

// Inject returns at most one copy of each preference whose confidence is
// at or above the injection threshold, suitable for folding into a
// generation prompt.
func Inject(prefs Preferences) []Preference {
	out := make([]Preference, 0, len(prefs))
	for _, p := range prefs {
		if p.Confidence >= injectionThreshold {
			out = append(out, p)
		}
	}
	return out
}

// LiftContext is the heuristic dish/technique lifter from spec §4.5: it
// returns the first recognized dish/technique keyword found in the
// message, or ok=false if none is found -- callers must never overwrite
// existing context with an empty extraction.
func LiftContext(message string, knownDishesAndTechniques []string) (value string, ok bool) {
	lower := strings.ToLower(message)
	for _, candidate := range knownDishesAndTechniques {
		if strings.Contains(lower, strings.ToLower(candidate)) {
			return candidate, true
		}
	}
	return "", false
}
