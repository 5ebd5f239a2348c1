package handler

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/shiimaxx/connectmetrics/collector"
	"github.com/shiimaxx/connectmetrics/config"
	"github.com/shiimaxx/connectmetrics/logging"
	"github.com/shiimaxx/connectmetrics/normalizer"
	"github.com/shiimaxx/connectmetrics/publisher"
	"github.com/shiimaxx/connectmetrics/types"
	"github.com/shiimaxx/connectmetrics/window"
)

// ReportMetrics publishes the rows of agent reports written to S3.
type ReportMetrics struct {
	Config    config.ReportMetrics
	Store     ObjectFetcher
	Publisher publisher.Publisher
	Clock     window.Clock
	Logger    *zap.Logger
}

func (h *ReportMetrics) Handle(ctx context.Context, event events.S3Event) error {
	logger := logging.ForInvocation(ctx, h.Logger)

	objects, err := reportObjects(event, h.Config.BucketName, h.Config.ReportPath, logger)
	if err != nil {
		return err
	}

	var errs error
	for _, o := range objects {
		if err := h.publishReport(ctx, o, logger); err != nil {
			logger.Error("report not published", zap.String("key", o.Key), zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", o.Key, err))
		}
	}
	if errs == nil {
		logger.Info("successfully processed reports", zap.Int("reports", len(objects)))
	}
	return errs
}

func (h *ReportMetrics) series() []publisher.Series {
	return []publisher.Series{
		{Name: collector.AgentIdleTime, Display: "Agent Idle Time Per " + h.Config.DimensionName, Unit: "None"},
		{Name: collector.ContactsHandled, Display: "Contacts Handled Per " + h.Config.DimensionName, Unit: "None"},
	}
}

func (h *ReportMetrics) publishReport(ctx context.Context, o reportObject, logger *zap.Logger) error {
	data, err := h.Store.Fetch(ctx, o.Bucket, o.Key)
	if err != nil {
		return err
	}
	groups, err := (&collector.ReportCollector{Data: data, HeaderLines: h.Config.HeaderLines}).Collect(ctx)
	if err != nil {
		return err
	}

	now := h.Clock.Current()
	series := h.series()
	var metrics types.Metrics
	for _, group := range groups {
		record, err := normalizer.Normalize(group, collector.ReportColumns, normalizer.Zero)
		if err != nil {
			return err
		}
		tags := map[string]string{h.Config.DimensionName: group.DimensionKey}
		metrics.Data = append(metrics.Data, publisher.FromRecord(record, series, tags, now).Data...)
	}
	if len(metrics.Data) == 0 {
		logger.Info("report has no rows", zap.String("key", o.Key))
		return nil
	}

	logger.Debug("publishing report", zap.String("key", o.Key), zap.Int("rows", len(groups)))
	return h.Publisher.Publish(ctx, metrics)
}
