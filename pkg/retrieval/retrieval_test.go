package retrieval

import (
	"context"
	"testing"
	"time"

	"github.com/kitchencore/reasoner/pkg/config"
	"github.com/stretchr/testify/require"
)

func TestRoute_ScientificKeywordRoutesChemistryAndScience(t *testing.T) {
	cfg := config.Defaults()
	kw := cfg.Vocabulary.ScientificKeywords[0]
	indexes := Route("tell me about "+kw, cfg.Vocabulary, nil)
	require.Contains(t, indexes, IndexChemistry)
	require.Contains(t, indexes, IndexScience)
}

func TestRoute_NoMatchReturnsEmpty(t *testing.T) {
	cfg := config.Defaults()
	indexes := Route("good morning", cfg.Vocabulary, nil)
	require.Empty(t, indexes)
}

func TestRoute_Deduplicates(t *testing.T) {
	cfg := config.Defaults()
	kw := cfg.Vocabulary.ScientificKeywords[0]
	indexes := Route(kw+" "+kw, cfg.Vocabulary, nil)
	seen := map[string]int{}
	for _, idx := range indexes {
		seen[idx]++
	}
	for name, count := range seen {
		require.Equal(t, 1, count, "index %s appeared more than once", name)
	}
}

func TestIndexManager_LoadEvictsMutualExclusionCounterpart(t *testing.T) {
	cfg := config.RetrievalConfig{
		Indexes: []config.IndexDefinition{
			{Name: IndexChemistry, MemoryCostMB: 500},
			{Name: IndexBrandedFoods, MemoryCostMB: 500},
		},
		MutuallyExclusivePairs: [][2]string{{IndexChemistry, IndexBrandedFoods}},
	}
	m := NewIndexManager(cfg, 500, nil)

	require.NoError(t, m.Load(IndexChemistry))
	require.True(t, m.Resident(IndexChemistry))

	require.NoError(t, m.Load(IndexBrandedFoods))
	require.True(t, m.Resident(IndexBrandedFoods))
	require.False(t, m.Resident(IndexChemistry))
}

func TestIndexManager_EvictsNonCoreOnMemoryPressure(t *testing.T) {
	cfg := config.RetrievalConfig{
		Indexes: []config.IndexDefinition{
			{Name: IndexScience, MemoryCostMB: 200},
			{Name: IndexChemistry, MemoryCostMB: 100},
			{Name: IndexRecipes, MemoryCostMB: 200},
		},
		CoreResidentIndexes: []string{IndexScience},
	}
	m := NewIndexManager(cfg, 400, nil)

	require.NoError(t, m.Load(IndexScience))
	require.NoError(t, m.Load(IndexChemistry))
	require.NoError(t, m.Load(IndexRecipes))

	require.True(t, m.Resident(IndexRecipes))
	require.True(t, m.Resident(IndexScience))
	require.False(t, m.Resident(IndexChemistry))
}

func TestIndexManager_LoadFailsWhenEvenCoreCannotFit(t *testing.T) {
	cfg := config.RetrievalConfig{
		Indexes: []config.IndexDefinition{
			{Name: IndexScience, MemoryCostMB: 1000},
		},
		CoreResidentIndexes: []string{IndexScience},
	}
	m := NewIndexManager(cfg, 10, nil)
	err := m.Load(IndexScience)
	require.Error(t, err)
}

func TestIndexManager_Unload(t *testing.T) {
	cfg := config.RetrievalConfig{
		Indexes: []config.IndexDefinition{{Name: IndexRecipes, MemoryCostMB: 100}},
	}
	m := NewIndexManager(cfg, 100, nil)
	require.NoError(t, m.Load(IndexRecipes))
	m.Unload(IndexRecipes)
	require.False(t, m.Resident(IndexRecipes))
}

func TestEmbeddingThrottle_LimitsConcurrency(t *testing.T) {
	cfg := config.RetrievalConfig{EmbeddingThrottlePermits: 2}
	th := NewEmbeddingThrottle(cfg, nil)

	ctx := context.Background()
	require.NoError(t, th.Acquire(ctx))
	require.NoError(t, th.Acquire(ctx))

	acquired := make(chan struct{})
	go func() {
		_ = th.Acquire(ctx)
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("third acquire should block while two permits are held")
	case <-time.After(50 * time.Millisecond):
	}

	th.Release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("third acquire should unblock after release")
	}
}

func TestEmbeddingThrottle_QueueDepthReflectsWaiters(t *testing.T) {
	cfg := config.RetrievalConfig{EmbeddingThrottlePermits: 1}
	th := NewEmbeddingThrottle(cfg, nil)
	ctx := context.Background()
	require.NoError(t, th.Acquire(ctx))

	done := make(chan struct{})
	go func() {
		_ = th.Acquire(ctx)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, int64(1), th.QueueDepth())

	th.Release()
	<-done
}
