package resourcemon

import (
	"context"
	"testing"

	"github.com/kitchencore/reasoner/pkg/config"
	"github.com/stretchr/testify/require"
)

type fakeMem struct{ ramPercent, swapMB float64 }

func (f fakeMem) Sample(context.Context) (float64, float64, error) {
	return f.ramPercent, f.swapMB, nil
}

type fakeGPU struct{ steps []float64 }

func (f *fakeGPU) Sample(context.Context) (float64, float64, bool, error) {
	v := f.steps[0]
	f.steps = f.steps[1:]
	return v, 0, true, nil
}

func TestStatus_Healthy(t *testing.T) {
	cfg := config.Defaults().Resource
	m := New(cfg, fakeMem{ramPercent: 50, swapMB: 100}, nil)
	s, err := m.Status(context.Background())
	require.NoError(t, err)
	require.True(t, s.Healthy)
}

func TestStatus_UnhealthyOverRAM(t *testing.T) {
	cfg := config.Defaults().Resource
	m := New(cfg, fakeMem{ramPercent: 99, swapMB: 0}, nil)
	s, err := m.Status(context.Background())
	require.NoError(t, err)
	require.False(t, s.Healthy)
}

func TestPressureClassOf(t *testing.T) {
	cfg := config.Defaults().Resource
	m := New(cfg, fakeMem{}, nil)
	require.Equal(t, PressureNone, m.PressureClassOf(1499))
	require.Equal(t, PressureModerate, m.PressureClassOf(1500))
	require.Equal(t, PressureModerate, m.PressureClassOf(2500))
	require.Equal(t, PressureCritical, m.PressureClassOf(2501))
}

func TestLeakWatch_TwoGrowthsDoNotDegrade(t *testing.T) {
	cfg := config.Defaults().Resource
	gpu := &fakeGPU{steps: []float64{0, 0.2, 0.2, 0.4, 0.4, 0.6}} // three before/after pairs queued, +0.2GB each; this test consumes only the first two
	m := New(cfg, fakeMem{}, gpu)

	// Round 1: before=0, after=0.2GB => +200MB growth
	after1, err := m.LeakWatch(context.Background())
	require.NoError(t, err)
	after1(context.Background())
	require.False(t, m.Degraded())

	// Round 2: before=0.2, after=0.4GB => +200MB growth (2nd consecutive)
	after2, err := m.LeakWatch(context.Background())
	require.NoError(t, err)
	after2(context.Background())
	require.False(t, m.Degraded())
}

func TestLeakWatch_ThreeGrowthsDegrade(t *testing.T) {
	cfg := config.Defaults().Resource
	gpu := &fakeGPU{steps: []float64{0, 0.2, 0.2, 0.4, 0.4, 0.6}}
	m := New(cfg, fakeMem{}, gpu)

	for i := 0; i < 3; i++ {
		after, err := m.LeakWatch(context.Background())
		require.NoError(t, err)
		after(context.Background())
	}
	require.True(t, m.Degraded())
}

func TestClearDegraded(t *testing.T) {
	cfg := config.Defaults().Resource
	gpu := &fakeGPU{steps: []float64{0, 0.2, 0.2, 0.4, 0.4, 0.6}}
	m := New(cfg, fakeMem{}, gpu)
	for i := 0; i < 3; i++ {
		after, _ := m.LeakWatch(context.Background())
		after(context.Background())
	}
	require.True(t, m.Degraded())
	m.ClearDegraded()
	require.False(t, m.Degraded())
}
