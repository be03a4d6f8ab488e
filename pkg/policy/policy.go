// Package policy implements the Meta-Learner Policy Engine (spec §4.2):
// a purely deterministic function of (message, explicit mode, resource
// state) to an ExecutionPolicy.
package policy

import (
	"strings"

	"github.com/kitchencore/reasoner/pkg/config"
	"github.com/kitchencore/reasoner/pkg/resourcemon"
)

// Profile is the coarse execution tier.
type Profile string

const (
	Fast     Profile = "FAST"
	Sensory  Profile = "SENSORY"
	Optimize Profile = "OPTIMIZE"
	Research Profile = "RESEARCH"
)

var validProfiles = map[Profile]bool{Fast: true, Sensory: true, Optimize: true, Research: true}

// Clip returns p if it's a recognized profile, else Fast.
func Clip(p Profile) Profile {
	if validProfiles[p] {
		return p
	}
	return Fast
}

// LatencyBudget mirrors config.LatencyBudget so callers don't need to
// import pkg/config just to read a policy's budget.
type LatencyBudget = config.LatencyBudget

// ExecutionPolicy is the output of the Policy Engine (spec §3).
type ExecutionPolicy struct {
	Profile            Profile
	EnabledAgents      map[string]bool
	SpeculativeAgents  map[string]bool
	Budget             LatencyBudget
	DowngradeReason    string
}

// requiredAgentsByProfile and speculativeAgentsByProfile implement the
// table in spec §4.2. RESEARCH = OPTIMIZE's sets plus configured
// research-only agents (spec §9 open question #3 resolution).
func requiredAgentsByProfile(p Profile, researchOnly []string) map[string]bool {
	base := map[string]bool{"intent": true, "recipe": true, "presentation": true}
	switch p {
	case Sensory:
		base["sensory_model"] = true
		base["explanation"] = true
	case Optimize:
		base["sensory_model"] = true
		base["explanation"] = true
		base["frontier"] = true
		base["selector"] = true
	case Research:
		base["sensory_model"] = true
		base["explanation"] = true
		base["frontier"] = true
		base["selector"] = true
		for _, a := range researchOnly {
			base[a] = true
		}
	}
	return base
}

func speculativeAgentsByProfile(p Profile) map[string]bool {
	switch p {
	case Optimize, Research:
		return map[string]bool{}
	default:
		return map[string]bool{"recipe_renderer": true}
	}
}

func budgetFor(p Profile, cfg config.PolicyConfig) LatencyBudget {
	switch p {
	case Fast:
		return cfg.FastBudget
	case Sensory:
		return cfg.SensoryBudget
	default:
		return cfg.DefaultBudget
	}
}

// Input bundles everything the Policy Engine needs to decide.
type Input struct {
	Message      string
	ExplicitMode Profile // "" if not provided
	Resource     resourcemon.Status
	Degraded     bool
	Pressure     resourcemon.PressureClass
}

// Decide is the pure policy function (spec §4.2).
func Decide(in Input, cfg config.PolicyConfig, vocab config.VocabularyConfig) ExecutionPolicy {
	profile, reason := decideProfile(in, cfg, vocab)
	profile = Clip(profile)

	return ExecutionPolicy{
		Profile:           profile,
		EnabledAgents:     requiredAgentsByProfile(profile, cfg.ResearchOnlyAgents),
		SpeculativeAgents: speculativeAgentsByProfile(profile),
		Budget:            budgetFor(profile, cfg),
		DowngradeReason:   reason,
	}
}

func decideProfile(in Input, cfg config.PolicyConfig, vocab config.VocabularyConfig) (Profile, string) {
	if in.Degraded {
		return Fast, "gpu-degraded"
	}
	if in.Pressure == resourcemon.PressureCritical {
		return Fast, "critical memory"
	}

	var profile Profile
	var reason string

	if in.ExplicitMode != "" {
		profile = Clip(in.ExplicitMode)
	} else {
		profile = routeByKeyword(in.Message, vocab)
	}

	if in.Pressure == resourcemon.PressureModerate && (profile == Optimize || profile == Research) {
		profile = Sensory
		reason = "moderate memory pressure downgrade"
	}

	if in.ExplicitMode == "" && tokenCount(in.Message) < cfg.ShortUtteranceTokens {
		profile = Fast
		if reason == "" {
			reason = "short utterance"
		}
	}

	return profile, reason
}

func routeByKeyword(message string, vocab config.VocabularyConfig) Profile {
	lower := strings.ToLower(message)
	if containsAny(lower, vocab.OptimizeTriggers) {
		return Optimize
	}
	if containsAny(lower, vocab.SensoryTriggers) {
		return Sensory
	}
	return Fast
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

func tokenCount(s string) int {
	return len(strings.Fields(s))
}
