package config

import "time"

// Defaults returns the built-in configuration, mirroring the teacher's
// pattern of a Go-literal baseline merged with user YAML overrides
// rather than hardcoding values inline at call sites.
func Defaults() *Config {
	return &Config{
		Resource: ResourceConfig{
			HealthyRAMPercent:    85,
			HealthyGPUPercent:    92,
			GPURequireMaxPercent: 85,
			ModerateSwapMB:       1500,
			CriticalSwapMB:       2500,
			LeakGrowthMB:         100,
			LeakStreakToDegrade:  3,
			SampleInterval:       5 * time.Second,
		},
		Policy: PolicyConfig{
			ShortUtteranceTokens: 15,
			FastBudget:           LatencyBudget{FirstTokenSeconds: 2, Layer1Seconds: 5, TotalSeconds: 10},
			SensoryBudget:        LatencyBudget{FirstTokenSeconds: 2, Layer1Seconds: 5, TotalSeconds: 30},
			DefaultBudget:        LatencyBudget{FirstTokenSeconds: 2, Layer1Seconds: 5, TotalSeconds: 120},
			ResearchOnlyAgents:   []string{"literature_review", "citation_checker", "deep_comparator"},
		},
		Queue: QueueConfig{
			WorkerCount:           4,
			MaxConcurrentSessions: 32,
			SessionTimeout:        2 * time.Minute,
			HeartbeatInterval:     5 * time.Second,
		},
		Retrieval: RetrievalConfig{
			EmbeddingThrottlePermits: 2,
			SlowWaitThreshold:        50 * time.Millisecond,
			Indexes: []IndexDefinition{
				{Name: "chemistry", MemoryCostMB: 4096},
				{Name: "branded_foods", MemoryCostMB: 4096},
				{Name: "science", MemoryCostMB: 512},
				{Name: "foundation", MemoryCostMB: 512},
				{Name: "recipes", MemoryCostMB: 1024},
			},
			CoreResidentIndexes:    []string{"science", "foundation"},
			MutuallyExclusivePairs: [][2]string{{"chemistry", "branded_foods"}},
		},
		Compounds: CompoundsConfig{
			BaseURL:           "https://compounds.example.invalid",
			RequestsPerSecond: 5,
			RequestTimeout:    2 * time.Second,
			MaxRetries:        3,
		},
		HTTP: HTTPConfig{
			Port:           "8080",
			AllowedOrigins: []string{"*"},
			HeartbeatHz:    1,
		},
		Session: SessionConfig{
			IdleDecayAfter:       12 * time.Hour,
			PreferenceIdleDays:   90,
			PreferenceDecayDelta: 0.2,
		},
		Vocabulary: VocabularyConfig{
			OptimizeTriggers: []string{
				"best", "optimize", "compare", "variants", "better", "improve", "perfect", "ideal", "alternatives",
			},
			SensoryTriggers: []string{
				"texture", "taste", "smooth", "crisp", "tender", "chewy", "mouthfeel", "crunchy", "soft", "juicy",
				"rich", "coating", "sensory", "feel", "bitter", "bitterness", "sweet", "sweetness", "sour",
				"sourness", "salty", "saltiness", "umami", "aromatic", "fragrant",
			},
			TopicShiftPhrases: []string{
				"new question", "anyway", "forget that", "never mind", "let's talk about something else",
				"changing the subject", "moving on",
			},
			NutritionMarkers: []string{
				"calories", "calorie", "kcal", "macros", "macro", "grams of protein", "grams of fat",
				"grams of carb", "scoville",
			},
			HealthTerms: []string{
				"healthy", "healthier", "low carb", "low-carb", "low fat", "low-fat", "heart healthy", "nutritious",
			},
			ProceduralTriggers: []string{
				"how do i", "how do you", "walk me through", "recipe for", "steps to", "step by step", "instructions for",
			},
			CausalTriggers: []string{
				"why does", "why do", "how does", "how do", "mechanism", "what causes", "what makes",
			},
			DiagnosticPhrases: []string{
				"went wrong", "didn't work", "failed", "too salty", "too sweet", "too dry", "too tough", "burnt",
				"undercooked", "overcooked", "why is my", "why did my",
			},
			AffirmationTokens: []string{"yes", "no", "ok", "okay", "sure", "continue", "more", "go on", "yeah", "yep"},
			ScientificKeywords: []string{
				"maillard", "denature", "emulsify", "emulsion", "gluten", "enzyme", "acid", "protein", "starch",
				"capsaicin", "caramelize", "caramelization",
			},
			ActionVerbs: []string{
				"add", "reduce", "increase", "use", "try", "adjust", "heat", "cool", "mix", "stir", "fold", "whisk",
				"bake", "fry", "boil", "simmer",
			},
			InstructionalPhrases: []string{
				"you should", "first step", "next,", "then add", "start by", "begin by",
			},
			SkillTriggers: []string{
				"i'm a beginner", "i am a beginner", "new to cooking", "i'm experienced", "i am experienced",
				"intermediate cook", "professional chef", "i'm a pro",
			},
			EquipmentTriggers: []string{
				"instant pot", "air fryer", "sous vide", "cast iron", "wok", "stand mixer", "pressure cooker",
				"dutch oven", "grill", "smoker",
			},
			DietaryTriggers: []string{
				"vegan", "vegetarian", "gluten-free", "gluten free", "dairy-free", "dairy free", "nut allergy",
				"kosher", "halal", "keto", "paleo",
			},
		},
	}
}
