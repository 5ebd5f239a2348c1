// Package main compiles to the Lambda that turns agent reports written to S3
// into per team lead CloudWatch metrics. It is invoked by S3 event
// notifications.
package main

import (
	"context"
	goLog "log"
	"os"

	env "github.com/Netflix/go-env"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/shiimaxx/connectmetrics/config"
	"github.com/shiimaxx/connectmetrics/handler"
	"github.com/shiimaxx/connectmetrics/logging"
	"github.com/shiimaxx/connectmetrics/publisher"
	"github.com/shiimaxx/connectmetrics/storage"
)

func main() {
	ctx := context.Background()

	es, err := env.EnvironToEnvSet(os.Environ())
	if err != nil {
		goLog.Fatalf("error reading environment: %v", err)
	}
	cfg, err := config.LoadReportMetrics(es)
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

	h := &handler.ReportMetrics{
		Config:    cfg,
		Store:     storage.NewObjectStore(awsCfg, logger),
		Publisher: publisher.NewAmazonCloudWatchPublisher(awsCfg, cfg.Namespace, logger),
		Clock:     clock,
		Logger:    logger,
	}
	lambda.Start(h.Handle)
}
