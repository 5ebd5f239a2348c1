// Package main compiles to the scheduled Lambda that queries Amazon Connect
// for per queue statistics and publishes them to CloudWatch. The statistics
// and the interval they cover come from the PRESET variable.
package main

import (
	"context"
	goLog "log"
	"os"

	env "github.com/Netflix/go-env"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/aws/aws-sdk-go-v2/service/connect"
	"go.uber.org/zap"

	"github.com/shiimaxx/connectmetrics/collector"
	"github.com/shiimaxx/connectmetrics/config"
	"github.com/shiimaxx/connectmetrics/handler"
	"github.com/shiimaxx/connectmetrics/logging"
	"github.com/shiimaxx/connectmetrics/publisher"
)

func main() {
	ctx := context.Background()

	es, err := env.EnvironToEnvSet(os.Environ())
	if err != nil {
		goLog.Fatalf("error reading environment: %v", err)
	}
	cfg, err := config.LoadQueueMetrics(es)
	if err != nil {
		goLog.Fatalf("error configuring environment variables: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		goLog.Fatalf("error configuring logger: %v", err)
	}
	defer logger.Sync()

	clock, err := cfg.Clock()
	if err != nil {
		logger.Fatal("invalid time zone", zap.Error(err))
	}
	awsCfg, err := config.LoadAWS(ctx, cfg.Common)
	if err != nil {
		logger.Fatal("could not create AWS SDK config", zap.Error(err))
	}

	h := &handler.QueueMetrics{
		Config:    cfg,
		Connect:   connect.NewFromConfig(awsCfg),
		Publisher: publisher.NewAmazonCloudWatchPublisher(awsCfg, cfg.Namespace, logger),
		Clock:     clock,
		Logger:    logger,
	}
	if cfg.SandboxMetrics {
		// created once so warm invocations measure against the previous one
		h.Sandbox = []handler.SandboxCollector{
			&collector.MemCollector{Function: lambdacontext.FunctionName},
			&collector.CPUCollector{Function: lambdacontext.FunctionName},
			&collector.NetIOCollector{Function: lambdacontext.FunctionName},
		}
	}

	logger.Debug("starting lambda", zap.String("preset", cfg.Preset))
	lambda.Start(h.Handle)
}
