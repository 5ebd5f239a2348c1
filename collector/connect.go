package collector

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/connect"
	connecttypes "github.com/aws/aws-sdk-go-v2/service/connect/types"
	"go.uber.org/multierr"

	"github.com/shiimaxx/connectmetrics/normalizer"
	"github.com/shiimaxx/connectmetrics/types"
	"github.com/shiimaxx/connectmetrics/window"
)

// MaxQueuesPerQuery is the number of queues a single metric data request
// may filter on.
const MaxQueuesPerQuery = 100

var ErrMissingDimension = errors.New("metric result has no queue dimension")

// ConnectAPI is the subset of the Amazon Connect client used here.
type ConnectAPI interface {
	GetMetricData(ctx context.Context, params *connect.GetMetricDataInput, optFns ...func(*connect.Options)) (*connect.GetMetricDataOutput, error)
	GetCurrentMetricData(ctx context.Context, params *connect.GetCurrentMetricDataInput, optFns ...func(*connect.Options)) (*connect.GetCurrentMetricDataOutput, error)
	ListQueues(ctx context.Context, params *connect.ListQueuesInput, optFns ...func(*connect.Options)) (*connect.ListQueuesOutput, error)
}

// QueueDirectory resolves queue ids to display names.
type QueueDirectory struct {
	IDs   []string
	Names map[string]string
}

func (d QueueDirectory) Name(id string) string {
	if name, ok := d.Names[id]; ok && name != "" {
		return name
	}
	return id
}

// ListQueues pages through every STANDARD queue of the instance.
func ListQueues(ctx context.Context, client connect.ListQueuesAPIClient, instanceID string) (QueueDirectory, error) {
	dir := QueueDirectory{Names: make(map[string]string)}
	paginator := connect.NewListQueuesPaginator(client, &connect.ListQueuesInput{
		InstanceId: aws.String(instanceID),
		QueueTypes: []connecttypes.QueueType{connecttypes.QueueTypeStandard},
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return QueueDirectory{}, fmt.Errorf("list queues: %w", err)
		}
		for _, q := range page.QueueSummaryList {
			id := aws.ToString(q.Id)
			if id == "" {
				continue
			}
			if _, seen := dir.Names[id]; !seen {
				dir.IDs = append(dir.IDs, id)
			}
			dir.Names[id] = aws.ToString(q.Name)
		}
	}
	return dir, nil
}

// ParseQueues reads a static "id=name,id=name" list. A bare id is its own
// name.
func ParseQueues(s string) (QueueDirectory, error) {
	dir := QueueDirectory{Names: make(map[string]string)}
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		id, name, _ := strings.Cut(item, "=")
		id = strings.TrimSpace(id)
		if id == "" {
			return QueueDirectory{}, fmt.Errorf("queue entry %q has no id", item)
		}
		if _, seen := dir.Names[id]; seen {
			return QueueDirectory{}, fmt.Errorf("queue %q listed twice", id)
		}
		dir.IDs = append(dir.IDs, id)
		dir.Names[id] = strings.TrimSpace(name)
	}
	return dir, nil
}

// ConnectCollector queries queue metrics for one preset. Queue ids are split
// into chunks the API accepts and the chunks are queried concurrently.
type ConnectCollector struct {
	Client     ConnectAPI
	Manager    CollectorManager
	InstanceID string
	Channel    string
	Grouping   string
	Preset     Preset
	Window     window.Window
	Queues     []string
}

func (c *ConnectCollector) Collect(ctx context.Context) ([]types.MetricGroup, error) {
	if len(c.Queues) == 0 {
		return nil, nil
	}

	var queries []Collector
	for start := 0; start < len(c.Queues); start += MaxQueuesPerQuery {
		end := min(start+MaxQueuesPerQuery, len(c.Queues))
		queries = append(queries, &chunkQuery{parent: c, queues: c.Queues[start:end]})
	}
	return c.Manager.Run(ctx, queries)
}

func (c *ConnectCollector) filters(queues []string) *connecttypes.Filters {
	return &connecttypes.Filters{
		Channels: []connecttypes.Channel{connecttypes.Channel(c.Channel)},
		Queues:   queues,
	}
}

type chunkQuery struct {
	parent *ConnectCollector
	queues []string
}

func (q *chunkQuery) Collect(ctx context.Context) ([]types.MetricGroup, error) {
	if q.parent.Preset.Kind == Current {
		return q.current(ctx)
	}
	return q.historical(ctx)
}

func (q *chunkQuery) historical(ctx context.Context) ([]types.MetricGroup, error) {
	c := q.parent
	metrics := make([]connecttypes.HistoricalMetric, 0, len(c.Preset.Metrics))
	for _, m := range c.Preset.Metrics {
		metrics = append(metrics, connecttypes.HistoricalMetric{
			Name:      connecttypes.HistoricalMetricName(m.Name),
			Statistic: connecttypes.StatisticSum,
			Unit:      connecttypes.Unit(m.Unit),
		})
	}

	input := &connect.GetMetricDataInput{
		InstanceId:        aws.String(c.InstanceID),
		StartTime:         aws.Time(c.Window.Start),
		EndTime:           aws.Time(c.Window.End),
		Filters:           c.filters(q.queues),
		Groupings:         []connecttypes.Grouping{connecttypes.Grouping(c.Grouping)},
		HistoricalMetrics: metrics,
	}

	var groups []types.MetricGroup
	for {
		out, err := c.Client.GetMetricData(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("get metric data: %w", err)
		}
		for _, r := range out.MetricResults {
			group := newGroup(r.Dimensions)
			for _, d := range r.Collections {
				var name string
				if d.Metric != nil {
					name = string(d.Metric.Name)
				}
				group.add(name, d.Value)
			}
			groups = append(groups, group.MetricGroup)
		}
		if aws.ToString(out.NextToken) == "" {
			return groups, nil
		}
		input.NextToken = out.NextToken
	}
}

func (q *chunkQuery) current(ctx context.Context) ([]types.MetricGroup, error) {
	c := q.parent
	metrics := make([]connecttypes.CurrentMetric, 0, len(c.Preset.Metrics))
	for _, m := range c.Preset.Metrics {
		metrics = append(metrics, connecttypes.CurrentMetric{
			Name: connecttypes.CurrentMetricName(m.Name),
			Unit: connecttypes.Unit(m.Unit),
		})
	}

	input := &connect.GetCurrentMetricDataInput{
		InstanceId:     aws.String(c.InstanceID),
		Filters:        c.filters(q.queues),
		Groupings:      []connecttypes.Grouping{connecttypes.Grouping(c.Grouping)},
		CurrentMetrics: metrics,
	}

	var groups []types.MetricGroup
	for {
		out, err := c.Client.GetCurrentMetricData(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("get current metric data: %w", err)
		}
		for _, r := range out.MetricResults {
			group := newGroup(r.Dimensions)
			for _, d := range r.Collections {
				var name string
				if d.Metric != nil {
					name = string(d.Metric.Name)
				}
				group.add(name, d.Value)
			}
			groups = append(groups, group.MetricGroup)
		}
		if aws.ToString(out.NextToken) == "" {
			return groups, nil
		}
		input.NextToken = out.NextToken
	}
}

// rowGroup accumulates one result row. Conversion problems are kept on the
// group so one malformed row does not fail the whole query.
type rowGroup struct {
	types.MetricGroup
}

func newGroup(d *connecttypes.Dimensions) *rowGroup {
	if d == nil || d.Queue == nil || aws.ToString(d.Queue.Id) == "" {
		return &rowGroup{types.MetricGroup{Err: ErrMissingDimension}}
	}
	return &rowGroup{types.MetricGroup{
		DimensionKey: aws.ToString(d.Queue.Id),
		Tags:         map[string]string{"Arn": aws.ToString(d.Queue.Arn)},
	}}
}

func (g *rowGroup) add(name string, value *float64) {
	switch {
	case name == "":
		g.Err = multierr.Append(g.Err, fmt.Errorf("%w: unnamed metric in queue %q", normalizer.ErrTypeMismatch, g.DimensionKey))
	case value == nil:
		g.Err = multierr.Append(g.Err, fmt.Errorf("%w: %s has no value in queue %q", normalizer.ErrTypeMismatch, name, g.DimensionKey))
	default:
		g.Entries = append(g.Entries, types.MetricEntry{Name: name, Value: *value})
	}
}
