package config

import (
	"fmt"
	"strings"
)

// Validate checks cross-field invariants the YAML schema alone cannot
// express, aggregating every violation into one error the way the
// teacher's validator.go does instead of failing on the first problem.
func Validate(c *Config) error {
	var problems []string

	if c.Resource.HealthyRAMPercent <= 0 || c.Resource.HealthyRAMPercent > 100 {
		problems = append(problems, "resource.healthy_ram_percent must be in (0, 100]")
	}
	if c.Resource.ModerateSwapMB <= 0 || c.Resource.CriticalSwapMB <= c.Resource.ModerateSwapMB {
		problems = append(problems, "resource.critical_swap_mb must be greater than resource.moderate_swap_mb")
	}
	if c.Resource.LeakStreakToDegrade < 1 {
		problems = append(problems, "resource.leak_streak_to_degrade must be >= 1")
	}

	if c.Policy.ShortUtteranceTokens < 1 {
		problems = append(problems, "policy.short_utterance_tokens must be >= 1")
	}

	if c.Queue.WorkerCount < 1 {
		problems = append(problems, "queue.worker_count must be >= 1")
	}
	if c.Queue.MaxConcurrentSessions < 1 {
		problems = append(problems, "queue.max_concurrent_sessions must be >= 1")
	}

	if c.Retrieval.EmbeddingThrottlePermits < 1 {
		problems = append(problems, "retrieval.embedding_throttle_permits must be >= 1")
	}
	indexNames := map[string]bool{}
	for _, idx := range c.Retrieval.Indexes {
		if idx.Name == "" {
			problems = append(problems, "retrieval.indexes entries must have a name")
			continue
		}
		indexNames[idx.Name] = true
	}
	for _, pair := range c.Retrieval.MutuallyExclusivePairs {
		if !indexNames[pair[0]] || !indexNames[pair[1]] {
			problems = append(problems, fmt.Sprintf(
				"retrieval.mutually_exclusive_pairs references unknown index in pair (%s, %s)", pair[0], pair[1]))
		}
	}
	for _, core := range c.Retrieval.CoreResidentIndexes {
		if !indexNames[core] {
			problems = append(problems, fmt.Sprintf("retrieval.core_resident_indexes references unknown index %q", core))
		}
	}

	if c.Compounds.RequestsPerSecond <= 0 {
		problems = append(problems, "compounds.requests_per_second must be > 0")
	}
	if c.Compounds.MaxRetries < 0 {
		problems = append(problems, "compounds.max_retries must be >= 0")
	}

	if c.Session.PreferenceIdleDays < 1 {
		problems = append(problems, "session.preference_idle_days must be >= 1")
	}
	if c.Session.PreferenceDecayDelta <= 0 || c.Session.PreferenceDecayDelta > 1 {
		problems = append(problems, "session.preference_decay_delta must be in (0, 1]")
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}
