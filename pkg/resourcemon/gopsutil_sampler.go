package resourcemon

import (
	"context"

	"github.com/shirou/gopsutil/v3/mem"
)

// GopsutilSampler implements MemSampler using gopsutil/v3, reading actual
// host virtual memory and swap usage.
type GopsutilSampler struct{}

func (GopsutilSampler) Sample(ctx context.Context) (ramPercent float64, swapMB float64, err error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, 0, err
	}
	sw, err := mem.SwapMemoryWithContext(ctx)
	if err != nil {
		return 0, 0, err
	}
	return vm.UsedPercent, float64(sw.Used) / (1024 * 1024), nil
}
