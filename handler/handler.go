// Package handler holds the Lambda entrypoints' logic, one type per function.
package handler

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/shiimaxx/connectmetrics/storage"
)

// ObjectFetcher reads an object's content.
type ObjectFetcher interface {
	Fetch(ctx context.Context, bucket, key string) ([]byte, error)
}

type reportObject struct {
	Bucket string
	Key    string
}

// reportObjects picks the records of an S3 event that are reports from the
// configured bucket under the configured prefix. Anything else is logged and
// dropped; retrying it would never succeed.
func reportObjects(event events.S3Event, bucket, prefix string, logger *zap.Logger) ([]reportObject, error) {
	var objects []reportObject
	for _, r := range event.Records {
		key, err := storage.ObjectKey(r)
		if err != nil {
			return nil, err
		}
		if r.S3.Bucket.Name != "" && r.S3.Bucket.Name != bucket {
			logger.Warn("event from unexpected bucket, skipping",
				zap.String("expected_bucket", bucket),
				zap.String("bucket", r.S3.Bucket.Name),
				zap.String("key", key),
			)
			continue
		}
		if !storage.IsReport(key, prefix) {
			logger.Info("not a report", zap.String("key", key), zap.String("report_path", prefix))
			continue
		}
		objects = append(objects, reportObject{Bucket: bucket, Key: key})
	}
	return objects, nil
}
