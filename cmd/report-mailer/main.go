// Package main compiles to the Lambda that mails reports written to S3 as
// attachments through SES. Recipients are chosen by matching the report's
// file name against the KEY_<n> variables.
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
	"github.com/shiimaxx/connectmetrics/mailer"
	"github.com/shiimaxx/connectmetrics/storage"
)

func main() {
	ctx := context.Background()

	es, err := env.EnvironToEnvSet(os.Environ())
	if err != nil {
		goLog.Fatalf("error reading environment: %v", err)
	}
	cfg, err := config.LoadReportMailer(es)
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

	h := &handler.ReportMailer{
		Config: cfg,
		Store:  storage.NewObjectStore(awsCfg, logger),
		Sender: mailer.NewSESSender(awsCfg),
		Clock:  clock,
		Logger: logger,
	}
	logger.Debug("starting lambda", zap.Int("routes", len(cfg.Routes.Routes)))
	lambda.Start(h.Handle)
}
