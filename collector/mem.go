package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/mem"

	"github.com/shiimaxx/connectmetrics/types"
)

// MemCollector reports memory of the sandbox the function runs in.
type MemCollector struct {
	Function string
	// VirtualMemory defaults to gopsutil's reader.
	VirtualMemory func(context.Context) (*mem.VirtualMemoryStat, error)
}

func (m *MemCollector) Collect(ctx context.Context, t time.Time) (types.Metrics, error) {
	read := m.VirtualMemory
	if read == nil {
		read = mem.VirtualMemoryWithContext
	}
	memstat, err := read(ctx)
	if err != nil {
		return types.Metrics{}, fmt.Errorf("read sandbox memory: %w", err)
	}

	tags := map[string]string{"Function": m.Function}
	var metrics types.Metrics
	metrics.Data = append(metrics.Data, types.Metric{
		Name:      "Sandbox Memory Used",
		Timestamp: t,
		Value:     float64(memstat.Used),
		Unit:      "Bytes",
		Tags:      tags,
	})
	metrics.Data = append(metrics.Data, types.Metric{
		Name:      "Sandbox Memory Available",
		Timestamp: t,
		Value:     float64(memstat.Available),
		Unit:      "Bytes",
		Tags:      tags,
	})
	metrics.Data = append(metrics.Data, types.Metric{
		Name:      "Sandbox Memory Used Percent",
		Timestamp: t,
		Value:     memstat.UsedPercent,
		Unit:      "Percent",
		Tags:      tags,
	})
	return metrics, nil
}
