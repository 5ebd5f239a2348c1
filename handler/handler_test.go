package handler

import (
	"context"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/connect"
	"github.com/stretchr/testify/mock"

	"github.com/shiimaxx/connectmetrics/mailer"
	"github.com/shiimaxx/connectmetrics/types"
	"github.com/shiimaxx/connectmetrics/window"
)

type mockConnect struct {
	mock.Mock
}

func (m *mockConnect) GetMetricData(ctx context.Context, params *connect.GetMetricDataInput, optFns ...func(*connect.Options)) (*connect.GetMetricDataOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*connect.GetMetricDataOutput)
	return out, args.Error(1)
}

func (m *mockConnect) GetCurrentMetricData(ctx context.Context, params *connect.GetCurrentMetricDataInput, optFns ...func(*connect.Options)) (*connect.GetCurrentMetricDataOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*connect.GetCurrentMetricDataOutput)
	return out, args.Error(1)
}

func (m *mockConnect) ListQueues(ctx context.Context, params *connect.ListQueuesInput, optFns ...func(*connect.Options)) (*connect.ListQueuesOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*connect.ListQueuesOutput)
	return out, args.Error(1)
}

// recordingPublisher keeps every batch it was asked to publish.
type recordingPublisher struct {
	published []types.Metrics
	err       error
}

func (p *recordingPublisher) Publish(ctx context.Context, metrics types.Metrics) error {
	p.published = append(p.published, metrics)
	return p.err
}

func (p *recordingPublisher) all() []types.Metric {
	var out []types.Metric
	for _, m := range p.published {
		out = append(out, m.Data...)
	}
	return out
}

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) Fetch(ctx context.Context, bucket, key string) ([]byte, error) {
	args := m.Called(ctx, bucket, key)
	out, _ := args.Get(0).([]byte)
	return out, args.Error(1)
}

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(ctx context.Context, msg mailer.Message) (string, error) {
	args := m.Called(ctx, msg)
	return args.String(0), args.Error(1)
}

func fixedClock(t time.Time) window.Clock {
	return window.Clock{Location: time.UTC, Now: func() time.Time { return t }}
}

func s3Event(bucket string, keys ...string) events.S3Event {
	var event events.S3Event
	for _, k := range keys {
		var r events.S3EventRecord
		r.S3.Bucket.Name = bucket
		r.S3.Object.Key = k
		event.Records = append(event.Records, r)
	}
	return event
}
