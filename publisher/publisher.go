package publisher

import (
	"context"
	"time"

	"github.com/shiimaxx/connectmetrics/types"
)

type Publisher interface {
	Publish(context.Context, types.Metrics) error
}

// Series describes how one normalized metric name is published.
type Series struct {
	Name    string
	Display string
	Unit    string
}

// FromRecord expands a normalized record into one metric per series, in
// series order. Every series must be present in the record.
func FromRecord(record types.NormalizedRecord, series []Series, tags map[string]string, t time.Time) types.Metrics {
	var metrics types.Metrics
	for _, s := range series {
		name := s.Display
		if name == "" {
			name = s.Name
		}
		metrics.Data = append(metrics.Data, types.Metric{
			Name:      name,
			Timestamp: t,
			Value:     record[s.Name],
			Unit:      s.Unit,
			Tags:      tags,
		})
	}
	return metrics
}
