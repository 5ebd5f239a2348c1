// Package storage reads report files dropped into S3.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// S3API is the subset of the S3 client used here.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type ObjectStore struct {
	Client S3API
	Logger *zap.Logger
}

func NewObjectStore(cfg aws.Config, logger *zap.Logger) *ObjectStore {
	return &ObjectStore{Client: s3.NewFromConfig(cfg), Logger: logger}
}

func (o *ObjectStore) Fetch(ctx context.Context, bucket, key string) ([]byte, error) {
	result, err := o.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object s3://%s/%s: %w", bucket, key, err)
	}
	defer func() {
		if err := result.Body.Close(); err != nil && o.Logger != nil {
			o.Logger.Warn("close object body", zap.String("key", key), zap.Error(err))
		}
	}()

	body, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("read object s3://%s/%s: %w", bucket, key, err)
	}
	return body, nil
}

// ObjectKey returns the decoded key of an event record. Event notifications
// carry the key form-encoded, so "+" stands for a space.
func ObjectKey(record events.S3EventRecord) (string, error) {
	if record.S3.Object.URLDecodedKey != "" {
		return record.S3.Object.URLDecodedKey, nil
	}
	key, err := url.QueryUnescape(record.S3.Object.Key)
	if err != nil {
		return "", fmt.Errorf("decode object key %q: %w", record.S3.Object.Key, err)
	}
	return key, nil
}

// IsReport reports whether key lives under prefix, ignoring case.
func IsReport(key, prefix string) bool {
	return strings.HasPrefix(strings.ToLower(key), strings.ToLower(prefix))
}
