// Package resourcemon samples process/host resource pressure and exposes
// the Resource Monitor described in spec §4.1: a status snapshot, a
// budget check, a pressure classification, and a GPU leak watch that
// flips a process-wide degraded flag.
package resourcemon

import (
	"context"
	"sync/atomic"

	"github.com/kitchencore/reasoner/pkg/apperr"
	"github.com/kitchencore/reasoner/pkg/config"
	"github.com/kitchencore/reasoner/pkg/metrics"
)

// PressureClass classifies swap usage (spec §4.1).
type PressureClass string

const (
	PressureNone     PressureClass = "none"
	PressureModerate PressureClass = "moderate"
	PressureCritical PressureClass = "critical"
)

// Status is a point-in-time resource snapshot.
type Status struct {
	RAMPercent     float64
	SwapMB         float64
	GPUVRAMGB      float64
	GPUVRAMPercent float64
	Healthy        bool
}

// MemSampler abstracts host memory/swap sampling so it can be backed by
// gopsutil in production and a fake in tests.
type MemSampler interface {
	// Sample returns virtual memory used percent and swap used in MB.
	Sample(ctx context.Context) (ramPercent float64, swapMB float64, err error)
}

// GPUSampler abstracts GPU VRAM sampling. No portable cross-vendor Go
// library exists in the example corpus or wider ecosystem for this, so
// the default NoGPU implementation reports zero usage and the field is
// pluggable for deployments with vendor-specific tooling.
type GPUSampler interface {
	Sample(ctx context.Context) (vramGB float64, vramPercent float64, available bool, err error)
}

// NoGPU is a GPUSampler that reports no GPU present.
type NoGPU struct{}

func (NoGPU) Sample(context.Context) (float64, float64, bool, error) { return 0, 0, false, nil }

// Monitor is the Resource Monitor.
type Monitor struct {
	cfg config.ResourceConfig
	mem MemSampler
	gpu GPUSampler

	degraded      atomic.Bool
	growthStreak  atomic.Int32
	lastGPUVRAMGB atomic.Value // float64, boxed
}

// New creates a Monitor. gpu may be nil (defaults to NoGPU{}).
func New(cfg config.ResourceConfig, mem MemSampler, gpu GPUSampler) *Monitor {
	if gpu == nil {
		gpu = NoGPU{}
	}
	m := &Monitor{cfg: cfg, mem: mem, gpu: gpu}
	m.lastGPUVRAMGB.Store(float64(0))
	return m
}

// Status samples current resource usage (spec §4.1 status()).
func (m *Monitor) Status(ctx context.Context) (Status, error) {
	ramPercent, swapMB, err := m.mem.Sample(ctx)
	if err != nil {
		return Status{}, apperr.Wrap(apperr.Upstream, "sampling host memory", err)
	}
	vramGB, vramPercent, _, err := m.gpu.Sample(ctx)
	if err != nil {
		return Status{}, apperr.Wrap(apperr.Upstream, "sampling GPU", err)
	}

	healthy := ramPercent <= m.cfg.HealthyRAMPercent && vramPercent <= m.cfg.HealthyGPUPercent
	metrics.RecordResourceStatus(ramPercent, healthy, m.Degraded())
	return Status{
		RAMPercent:     ramPercent,
		SwapMB:         swapMB,
		GPUVRAMGB:      vramGB,
		GPUVRAMPercent: vramPercent,
		Healthy:        healthy,
	}, nil
}

// CheckBudget fails when the monitor is unhealthy, or when the task
// requires GPU and GPU VRAM percent exceeds the GPU-specific threshold
// (spec §4.1 check_budget).
func (m *Monitor) CheckBudget(ctx context.Context, taskName string, requiresGPU bool) error {
	status, err := m.Status(ctx)
	if err != nil {
		return err
	}
	if !status.Healthy {
		return apperr.New(apperr.ResourceExceeded, "resources unhealthy for task "+taskName)
	}
	if requiresGPU && status.GPUVRAMPercent > m.cfg.GPURequireMaxPercent {
		return apperr.New(apperr.ResourceExceeded, "GPU budget exceeded for task "+taskName)
	}
	return nil
}

// PressureClassOf classifies swap usage into NONE/MODERATE/CRITICAL (spec §4.1).
func (m *Monitor) PressureClassOf(swapMB float64) PressureClass {
	switch {
	case swapMB > m.cfg.CriticalSwapMB:
		return PressureCritical
	case swapMB >= m.cfg.ModerateSwapMB:
		return PressureModerate
	default:
		return PressureNone
	}
}

// Degraded reports whether the process-wide GPU leak-watch flag is set.
func (m *Monitor) Degraded() bool { return m.degraded.Load() }

// ClearDegraded resets the degraded flag and growth streak. The request
// pipeline does not call it; the flag stays set until it is called.
func (m *Monitor) ClearDegraded() {
	m.degraded.Store(false)
	m.growthStreak.Store(0)
}

// LeakWatch samples GPU VRAM before and after a request body, and flips
// the degraded flag after three consecutive growths exceeding the
// configured threshold (spec §4.1 leak_watch). Returns the function to
// call after the request completes.
func (m *Monitor) LeakWatch(ctx context.Context) (after func(context.Context), err error) {
	beforeGB, _, _, err := m.gpu.Sample(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.Upstream, "sampling GPU before request", err)
	}
	return func(ctx context.Context) {
		afterGB, _, _, sampleErr := m.gpu.Sample(ctx)
		if sampleErr != nil {
			return
		}
		growthMB := (afterGB - beforeGB) * 1024
		if growthMB > m.cfg.LeakGrowthMB {
			streak := m.growthStreak.Add(1)
			if int(streak) >= m.cfg.LeakStreakToDegrade {
				m.degraded.Store(true)
			}
		} else {
			m.growthStreak.Store(0)
		}
	}, nil
}
