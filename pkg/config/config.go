// Package config loads and validates the reasoning core's configuration:
// execution profile latency budgets, keyword trigger vocabularies,
// resource thresholds, queue sizing, retrieval index costs, compound
// lookup rate limits, and HTTP/CORS settings.
package config

import "time"

// Config is the umbrella configuration object returned by Load.
type Config struct {
	configDir string

	Resource   ResourceConfig   `yaml:"resource"`
	Policy     PolicyConfig     `yaml:"policy"`
	Queue      QueueConfig      `yaml:"queue"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Compounds  CompoundsConfig  `yaml:"compounds"`
	HTTP       HTTPConfig       `yaml:"http"`
	Session    SessionConfig    `yaml:"session"`
	Vocabulary VocabularyConfig `yaml:"vocabulary"`
}

// ResourceConfig configures the Resource Monitor (spec §4.1).
type ResourceConfig struct {
	HealthyRAMPercent     float64       `yaml:"healthy_ram_percent"`
	HealthyGPUPercent     float64       `yaml:"healthy_gpu_percent"`
	GPURequireMaxPercent  float64       `yaml:"gpu_require_max_percent"`
	ModerateSwapMB        float64       `yaml:"moderate_swap_mb"`
	CriticalSwapMB        float64       `yaml:"critical_swap_mb"`
	LeakGrowthMB          float64       `yaml:"leak_growth_mb"`
	LeakStreakToDegrade   int           `yaml:"leak_streak_to_degrade"`
	SampleInterval        time.Duration `yaml:"sample_interval"`
}

// PolicyConfig configures the Meta-Learner Policy Engine (spec §4.2).
type PolicyConfig struct {
	ShortUtteranceTokens int `yaml:"short_utterance_tokens"`

	FastBudget     LatencyBudget `yaml:"fast_budget"`
	SensoryBudget  LatencyBudget `yaml:"sensory_budget"`
	DefaultBudget  LatencyBudget `yaml:"default_budget"`

	ResearchOnlyAgents []string `yaml:"research_only_agents"`
}

// LatencyBudget is the per-milestone latency budget (spec §4.2).
type LatencyBudget struct {
	FirstTokenSeconds int `yaml:"first_token_seconds"`
	Layer1Seconds     int `yaml:"layer1_seconds"`
	TotalSeconds      int `yaml:"total_seconds"`
}

// QueueConfig sizes the request-scoped worker pool.
type QueueConfig struct {
	WorkerCount           int           `yaml:"worker_count"`
	MaxConcurrentSessions int           `yaml:"max_concurrent_sessions"`
	SessionTimeout        time.Duration `yaml:"session_timeout"`
	HeartbeatInterval     time.Duration `yaml:"heartbeat_interval"`
}

// RetrievalConfig configures the Retrieval Router & Index Manager (spec §4.6).
type RetrievalConfig struct {
	EmbeddingThrottlePermits int               `yaml:"embedding_throttle_permits"`
	SlowWaitThreshold        time.Duration     `yaml:"slow_wait_threshold"`
	Indexes                  []IndexDefinition `yaml:"indexes"`
	CoreResidentIndexes       []string          `yaml:"core_resident_indexes"`
	MutuallyExclusivePairs    [][2]string       `yaml:"mutually_exclusive_pairs"`
}

// IndexDefinition describes one named retrieval index and its memory cost.
type IndexDefinition struct {
	Name           string `yaml:"name"`
	MemoryCostMB   int    `yaml:"memory_cost_mb"`
}

// CompoundsConfig configures the external compound-lookup client (spec §4.9).
type CompoundsConfig struct {
	BaseURL            string        `yaml:"base_url"`
	RequestsPerSecond  float64       `yaml:"requests_per_second"`
	RequestTimeout     time.Duration `yaml:"request_timeout"`
	MaxRetries         int           `yaml:"max_retries"`
}

// HTTPConfig configures the HTTP/SSE surface (spec §4.12, §6).
type HTTPConfig struct {
	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	HeartbeatHz    float64  `yaml:"heartbeat_hz"`
}

// SessionConfig configures session/preference lifecycle (spec §3).
type SessionConfig struct {
	IdleDecayAfter       time.Duration `yaml:"idle_decay_after"`
	PreferenceIdleDays   int           `yaml:"preference_idle_days"`
	PreferenceDecayDelta float64       `yaml:"preference_decay_delta"`
}

// VocabularyConfig holds the deterministic keyword trigger sets used by
// the Policy Engine, Mode Classifier, and Phase Selector.
type VocabularyConfig struct {
	OptimizeTriggers   []string `yaml:"optimize_triggers"`
	SensoryTriggers    []string `yaml:"sensory_triggers"`
	TopicShiftPhrases  []string `yaml:"topic_shift_phrases"`
	NutritionMarkers   []string `yaml:"nutrition_markers"`
	HealthTerms        []string `yaml:"health_terms"`
	ProceduralTriggers []string `yaml:"procedural_triggers"`
	CausalTriggers     []string `yaml:"causal_triggers"`
	DiagnosticPhrases  []string `yaml:"diagnostic_phrases"`
	AffirmationTokens  []string `yaml:"affirmation_tokens"`
	ScientificKeywords []string `yaml:"scientific_keywords"`
	ActionVerbs        []string `yaml:"action_verbs"`
	InstructionalPhrases []string `yaml:"instructional_phrases"`
	SkillTriggers      []string `yaml:"skill_triggers"`
	EquipmentTriggers  []string `yaml:"equipment_triggers"`
	DietaryTriggers    []string `yaml:"dietary_triggers"`
}

// ConfigDir returns the directory the config was loaded from.
func (c *Config) ConfigDir() string { return c.configDir }
