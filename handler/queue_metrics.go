package handler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/shiimaxx/connectmetrics/collector"
	"github.com/shiimaxx/connectmetrics/config"
	"github.com/shiimaxx/connectmetrics/logging"
	"github.com/shiimaxx/connectmetrics/publisher"
	"github.com/shiimaxx/connectmetrics/types"
	"github.com/shiimaxx/connectmetrics/window"
)

// QueueMetrics publishes per queue Connect statistics for one preset.
type QueueMetrics struct {
	Config    config.QueueMetrics
	Connect   collector.ConnectAPI
	Publisher publisher.Publisher
	Clock     window.Clock
	Logger    *zap.Logger
	// Sandbox collectors add metrics about the function itself.
	Sandbox []SandboxCollector
}

type SandboxCollector interface {
	Collect(ctx context.Context, t time.Time) (types.Metrics, error)
}

type QueueMetricsSummary struct {
	Preset  string `json:"preset"`
	Window  string `json:"window"`
	Groups  int    `json:"groups"`
	Skipped int    `json:"skipped"`
	Metrics int    `json:"metrics"`
}

func (h *QueueMetrics) Handle(ctx context.Context) (QueueMetricsSummary, error) {
	logger := logging.ForInvocation(ctx, h.Logger)
	cfg := h.Config

	preset, err := collector.LookupPreset(cfg.Preset)
	if err != nil {
		return QueueMetricsSummary{}, err
	}
	dir, err := h.queues(ctx)
	if err != nil {
		return QueueMetricsSummary{}, err
	}

	w := preset.Window(h.Clock.Current())
	summary := QueueMetricsSummary{Preset: preset.Name, Window: w.String()}
	logger = logger.With(zap.String("preset", preset.Name), zap.Stringer("window", w))
	logger.Info("collecting queue metrics", zap.Int("queues", len(dir.IDs)))

	c := &collector.ConnectCollector{
		Client:     h.Connect,
		Manager:    collector.CollectorManager{Concurrency: cfg.QueryConcurrency},
		InstanceID: cfg.InstanceID,
		Channel:    cfg.Channel,
		Grouping:   cfg.Grouping,
		Preset:     preset,
		Window:     w,
		Queues:     dir.IDs,
	}
	groups, err := c.Collect(ctx)
	if err != nil {
		return summary, fmt.Errorf("collect %s metrics: %w", preset.Name, err)
	}
	summary.Groups = len(groups)

	series := make([]publisher.Series, 0, len(preset.Metrics))
	for _, m := range preset.Metrics {
		series = append(series, publisher.Series{Name: m.Name, Display: m.Display, Unit: m.Unit})
	}
	names := preset.Names()

	var errs error
	var metrics types.Metrics
	n := cfg.Normalizer()
	for _, group := range groups {
		record, err := n.Normalize(group, names)
		if err != nil {
			logger.Warn("skipping queue", zap.String("queue_id", group.DimensionKey), zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("queue %s: %w", group.DimensionKey, err))
			summary.Skipped++
			continue
		}
		tags := map[string]string{
			"Id":         group.DimensionKey,
			"Arn":        group.Tags["Arn"],
			"Queue Name": dir.Name(group.DimensionKey),
		}
		metrics.Data = append(metrics.Data, publisher.FromRecord(record, series, tags, w.End).Data...)
	}

	for _, c := range h.Sandbox {
		sandbox, err := c.Collect(ctx, w.End)
		if err != nil {
			logger.Warn("sandbox metrics unavailable", zap.Error(err))
			continue
		}
		metrics.Data = append(metrics.Data, sandbox.Data...)
	}

	summary.Metrics = len(metrics.Data)
	if len(metrics.Data) > 0 {
		if err := h.Publisher.Publish(ctx, metrics); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("publish: %w", err))
		}
	}

	logger.Info("queue metrics done",
		zap.Int("groups", summary.Groups),
		zap.Int("skipped", summary.Skipped),
		zap.Int("metrics", summary.Metrics),
	)
	return summary, errs
}

func (h *QueueMetrics) queues(ctx context.Context) (collector.QueueDirectory, error) {
	if h.Config.Queues != "" {
		return collector.ParseQueues(h.Config.Queues)
	}
	return collector.ListQueues(ctx, h.Connect, h.Config.InstanceID)
}
