package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"

	"github.com/shiimaxx/connectmetrics/types"
)

// CPUCollector reports how the sandbox spent its CPU time since the previous
// Collect. A warm sandbox keeps the collector between invocations; the first
// call only records a baseline and returns no metrics.
type CPUCollector struct {
	Function string
	// Times defaults to gopsutil's reader.
	Times func(ctx context.Context, percpu bool) ([]cpu.TimesStat, error)

	mu       sync.Mutex
	previous *cpu.TimesStat
}

func (c *CPUCollector) Collect(ctx context.Context, t time.Time) (types.Metrics, error) {
	read := c.Times
	if read == nil {
		read = cpu.TimesWithContext
	}
	stats, err := read(ctx, false)
	if err != nil {
		return types.Metrics{}, fmt.Errorf("read sandbox cpu times: %w", err)
	}
	if len(stats) == 0 {
		return types.Metrics{}, errors.New("read sandbox cpu times: no data")
	}
	latest := stats[0]

	c.mu.Lock()
	previous := c.previous
	c.previous = &latest
	c.mu.Unlock()
	if previous == nil {
		return types.Metrics{}, nil
	}

	diff := cpu.TimesStat{
		CPU:     latest.CPU,
		User:    latest.User - previous.User,
		System:  latest.System - previous.System,
		Idle:    latest.Idle - previous.Idle,
		Nice:    latest.Nice - previous.Nice,
		Iowait:  latest.Iowait - previous.Iowait,
		Irq:     latest.Irq - previous.Irq,
		Softirq: latest.Softirq - previous.Softirq,
		Steal:   latest.Steal - previous.Steal,
	}
	total := diff.Total()
	if total <= 0 {
		return types.Metrics{}, nil
	}

	tags := map[string]string{"Function": c.Function}
	var metrics types.Metrics
	for _, s := range []struct {
		name  string
		value float64
	}{
		{"Sandbox CPU User", diff.User},
		{"Sandbox CPU System", diff.System},
		{"Sandbox CPU Idle", diff.Idle},
		{"Sandbox CPU Iowait", diff.Iowait},
		{"Sandbox CPU Steal", diff.Steal},
	} {
		metrics.Data = append(metrics.Data, types.Metric{
			Name:      s.name,
			Timestamp: t,
			Value:     s.value / total * 100,
			Unit:      "Percent",
			Tags:      tags,
		})
	}
	return metrics, nil
}
