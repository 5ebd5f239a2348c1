package collector

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/shiimaxx/connectmetrics/types"
)

type Collector interface {
	Collect(ctx context.Context) ([]types.MetricGroup, error)
}

// CollectorManager runs collectors concurrently and gathers their groups in
// collector order.
type CollectorManager struct {
	Concurrency int
}

func (c CollectorManager) Run(ctx context.Context, collectors []Collector) ([]types.MetricGroup, error) {
	g, ctx := errgroup.WithContext(ctx)
	if c.Concurrency > 0 {
		g.SetLimit(c.Concurrency)
	}

	results := make([][]types.MetricGroup, len(collectors))
	for i, collector := range collectors {
		i, collector := i, collector
		g.Go(func() error {
			groups, err := collector.Collect(ctx)
			if err != nil {
				return err
			}
			results[i] = groups
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var groups []types.MetricGroup
	for _, r := range results {
		groups = append(groups, r...)
	}
	return groups, nil
}
