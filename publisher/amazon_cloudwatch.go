package publisher

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/shiimaxx/connectmetrics/types"
)

const maxDatumsPerRequest = 20

var unitKey = strings.NewReplacer("_", "", "/", "", " ", "")

// CloudWatchAPI is the subset of the CloudWatch client used here.
type CloudWatchAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

type AmazonCloudWatchPublisher struct {
	Client    CloudWatchAPI
	Namespace string
	Logger    *zap.Logger
}

func NewAmazonCloudWatchPublisher(cfg aws.Config, namespace string, logger *zap.Logger) *AmazonCloudWatchPublisher {
	return &AmazonCloudWatchPublisher{
		Client:    cloudwatch.NewFromConfig(cfg),
		Namespace: namespace,
		Logger:    logger,
	}
}

// Publish sends the metrics in batches. A failed batch does not stop the
// remaining ones; all failures are returned together.
func (p *AmazonCloudWatchPublisher) Publish(ctx context.Context, metrics types.Metrics) error {
	var mData [][]cwtypes.MetricDatum
	for i, m := range metrics.Data {
		if i%maxDatumsPerRequest == 0 {
			mData = append(mData, make([]cwtypes.MetricDatum, 0, maxDatumsPerRequest))
		}
		last := len(mData) - 1
		mData[last] = append(mData[last], cwtypes.MetricDatum{
			MetricName: aws.String(m.Name),
			Timestamp:  aws.Time(m.Timestamp),
			Value:      aws.Float64(m.Value),
			Unit:       convertUnit(m.Unit),
			Dimensions: p.convertTags(m.Tags),
		})
	}

	var errs error
	for i, d := range mData {
		input := &cloudwatch.PutMetricDataInput{
			MetricData: d,
			Namespace:  aws.String(p.Namespace),
		}
		if _, err := p.Client.PutMetricData(ctx, input); err != nil {
			p.logger().Warn("put metric data failed",
				zap.String("namespace", p.Namespace),
				zap.Int("batch", i),
				zap.Int("datums", len(d)),
				zap.Error(err),
			)
			errs = multierr.Append(errs, fmt.Errorf("put metric data batch %d: %w", i, err))
			continue
		}
		p.logger().Debug("put metric data", zap.String("namespace", p.Namespace), zap.Int("datums", len(d)))
	}
	return errs
}

func (p *AmazonCloudWatchPublisher) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

func (p *AmazonCloudWatchPublisher) convertTags(tags map[string]string) []cwtypes.Dimension {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var dimensions []cwtypes.Dimension
	for _, k := range keys {
		if tags[k] == "" {
			continue
		}
		dimensions = append(dimensions, cwtypes.Dimension{
			Name:  aws.String(k),
			Value: aws.String(tags[k]),
		})
	}
	return dimensions
}

// convertUnit maps Connect style ("COUNT") and CloudWatch style ("Count")
// unit names onto a CloudWatch unit. Unknown units publish as None.
func convertUnit(unit string) cwtypes.StandardUnit {
	key := unitKey.Replace(strings.ToLower(unit))
	for _, u := range cwtypes.StandardUnitNone.Values() {
		if unitKey.Replace(strings.ToLower(string(u))) == key {
			return u
		}
	}
	return cwtypes.StandardUnitNone
}
