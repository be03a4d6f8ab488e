package orchestrate

import (
	"github.com/kitchencore/reasoner/pkg/memory"
	"github.com/kitchencore/reasoner/pkg/session"
)

// toMemoryPreferences narrows session.UserPreferences (whose
// equipment/dietary fields are slices) down to the single
// highest-confidence value per field memory.Preferences tracks.
func toMemoryPreferences(p *session.UserPreferences) memory.Preferences {
	out := memory.Preferences{}
	if p == nil {
		return out
	}
	if p.SkillLevel.Value != "" {
		out[memory.Skill] = memory.Preference{Field: memory.Skill, Value: p.SkillLevel.Value, Confidence: p.SkillLevel.Confidence, LastConfirmedAt: p.SkillLevel.LastConfirmedAt}
	}
	if best, ok := strongest(p.Equipment); ok {
		out[memory.Equipment] = memory.Preference{Field: memory.Equipment, Value: best.Value, Confidence: best.Confidence, LastConfirmedAt: best.LastConfirmedAt}
	}
	if best, ok := strongest(p.Dietary); ok {
		out[memory.Dietary] = memory.Preference{Field: memory.Dietary, Value: best.Value, Confidence: best.Confidence, LastConfirmedAt: best.LastConfirmedAt}
	}
	return out
}

func strongest(values []session.PreferenceValue) (session.PreferenceValue, bool) {
	if len(values) == 0 {
		return session.PreferenceValue{}, false
	}
	best := values[0]
	for _, v := range values[1:] {
		if v.Confidence > best.Confidence {
			best = v
		}
	}
	return best, true
}

// fromMemoryPreferences widens the single-value-per-field memory.Preferences
// back into session.UserPreferences, writing the current value as the
// only entry of the corresponding slice; earlier entries are not kept.
func fromMemoryPreferences(userID string, prefs memory.Preferences) *session.UserPreferences {
	out := &session.UserPreferences{UserID: userID}
	if skill, ok := prefs[memory.Skill]; ok {
		out.SkillLevel = session.PreferenceValue{Value: skill.Value, Confidence: skill.Confidence, LastConfirmedAt: skill.LastConfirmedAt}
	}
	if eq, ok := prefs[memory.Equipment]; ok {
		out.Equipment = []session.PreferenceValue{{Value: eq.Value, Confidence: eq.Confidence, LastConfirmedAt: eq.LastConfirmedAt}}
	}
	if diet, ok := prefs[memory.Dietary]; ok {
		out.Dietary = []session.PreferenceValue{{Value: diet.Value, Confidence: diet.Confidence, LastConfirmedAt: diet.LastConfirmedAt}}
	}
	return out
}

// prefsToStrings flattens remembered preferences into the plain
// string map agent.Context carries for persona prompts.
func prefsToStrings(prefs memory.Preferences) map[string]string {
	out := make(map[string]string, len(prefs))
	for _, p := range memory.Inject(prefs) {
		out[string(p.Field)] = p.Value
	}
	return out
}
