// Package logging builds the zap loggers used by every function.
package logging

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a JSON logger writing to stderr at the given level.
func New(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Sampling = nil
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	if lambdacontext.FunctionName != "" {
		logger = logger.With(zap.String("function_name", lambdacontext.FunctionName))
	}
	return logger, nil
}

// ForInvocation tags logger with the request id of the current invocation.
func ForInvocation(ctx context.Context, logger *zap.Logger) *zap.Logger {
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		return logger.With(zap.String("aws_request_id", lc.AwsRequestID))
	}
	return logger
}
