package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/net"

	"github.com/shiimaxx/connectmetrics/types"
)

// NetIOCollector reports sandbox network traffic since the previous Collect,
// summed over all interfaces. Like CPUCollector it needs one call to
// establish a baseline.
type NetIOCollector struct {
	Function string
	// Counters defaults to gopsutil's reader.
	Counters func(ctx context.Context, pernic bool) ([]net.IOCountersStat, error)

	mu       sync.Mutex
	previous *net.IOCountersStat
}

func (n *NetIOCollector) Collect(ctx context.Context, t time.Time) (types.Metrics, error) {
	read := n.Counters
	if read == nil {
		read = net.IOCountersWithContext
	}
	stats, err := read(ctx, false)
	if err != nil {
		return types.Metrics{}, fmt.Errorf("read sandbox network counters: %w", err)
	}
	if len(stats) == 0 {
		return types.Metrics{}, errors.New("read sandbox network counters: no data")
	}
	l := stats[0]

	n.mu.Lock()
	p := n.previous
	n.previous = &l
	n.mu.Unlock()
	// counters restart when the sandbox is thawed on a new host
	if p == nil || l.BytesSent < p.BytesSent || l.BytesRecv < p.BytesRecv {
		return types.Metrics{}, nil
	}

	tags := map[string]string{"Function": n.Function}
	var metrics types.Metrics
	metrics.Data = append(metrics.Data, types.Metric{
		Name:      "Sandbox Network Bytes Sent",
		Timestamp: t,
		Value:     float64(l.BytesSent - p.BytesSent),
		Unit:      "Bytes",
		Tags:      tags,
	})
	metrics.Data = append(metrics.Data, types.Metric{
		Name:      "Sandbox Network Bytes Received",
		Timestamp: t,
		Value:     float64(l.BytesRecv - p.BytesRecv),
		Unit:      "Bytes",
		Tags:      tags,
	})
	return metrics, nil
}
