package retrieval

import (
	"log/slog"
	"sync"

	"github.com/kitchencore/reasoner/pkg/apperr"
	"github.com/kitchencore/reasoner/pkg/config"
)

// mutuallyExclusive holds an unordered pair of index names that can never
// both be resident; loading one evicts the other.
type mutuallyExclusive struct{ a, b string }

// IndexManager enforces the resident-set policy: a memory budget, a core
// set that's never evicted, and mutual exclusion between heavy indexes.
type IndexManager struct {
	mu sync.Mutex

	costMB      map[string]int
	core        map[string]bool
	exclusivity []mutuallyExclusive
	budgetMB    int

	resident map[string]bool
	log      *slog.Logger
}

// NewIndexManager builds a manager from RetrievalConfig. budgetMB is the
// caller-supplied memory ceiling available for resident indexes; it is
// not part of the static config.
func NewIndexManager(cfg config.RetrievalConfig, budgetMB int, log *slog.Logger) *IndexManager {
	costMB := make(map[string]int, len(cfg.Indexes))
	for _, idx := range cfg.Indexes {
		costMB[idx.Name] = idx.MemoryCostMB
	}
	core := make(map[string]bool, len(cfg.CoreResidentIndexes))
	for _, name := range cfg.CoreResidentIndexes {
		core[name] = true
	}
	excl := make([]mutuallyExclusive, 0, len(cfg.MutuallyExclusivePairs))
	for _, pair := range cfg.MutuallyExclusivePairs {
		excl = append(excl, mutuallyExclusive{a: pair[0], b: pair[1]})
	}
	return &IndexManager{
		costMB:      costMB,
		core:        core,
		exclusivity: excl,
		budgetMB:    budgetMB,
		resident:    map[string]bool{},
		log:         log,
	}
}

func (m *IndexManager) counterpartOf(name string) (string, bool) {
	for _, pair := range m.exclusivity {
		if pair.a == name {
			return pair.b, true
		}
		if pair.b == name {
			return pair.a, true
		}
	}
	return "", false
}

func (m *IndexManager) currentUsageMB() int {
	total := 0
	for name := range m.resident {
		total += m.costMB[name]
	}
	return total
}

// Load brings an index resident, evicting its mutually-exclusive
// counterpart if present, and retrying once after evicting non-core
// indexes if the memory-safety check fails.
func (m *IndexManager) Load(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.resident[name] {
		return nil
	}

	if counterpart, ok := m.counterpartOf(name); ok && m.resident[counterpart] {
		m.unloadLocked(counterpart)
	}

	if m.fitsLocked(name) {
		m.resident[name] = true
		return nil
	}

	m.evictNonCoreLocked()

	if m.fitsLocked(name) {
		m.resident[name] = true
		return nil
	}

	return apperr.New(apperr.ResourceExceeded, "insufficient memory to load index "+name)
}

func (m *IndexManager) fitsLocked(name string) bool {
	return m.currentUsageMB()+m.costMB[name] <= m.budgetMB
}

func (m *IndexManager) evictNonCoreLocked() {
	for name := range m.resident {
		if !m.core[name] {
			m.unloadLocked(name)
		}
	}
}

func (m *IndexManager) unloadLocked(name string) {
	delete(m.resident, name)
	if m.log != nil {
		m.log.Info("index unloaded", "index", name)
	}
}

// Unload explicitly releases an index's reference. Core indexes may still
// be unloaded explicitly; only eviction during Load protects them.
func (m *IndexManager) Unload(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unloadLocked(name)
}

// Resident reports whether name is currently loaded.
func (m *IndexManager) Resident(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resident[name]
}
