package handler

import (
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/shiimaxx/connectmetrics/config"
	"github.com/shiimaxx/connectmetrics/logging"
	"github.com/shiimaxx/connectmetrics/mailer"
	"github.com/shiimaxx/connectmetrics/window"
)

type MessageSender interface {
	Send(ctx context.Context, m mailer.Message) (string, error)
}

// ReportMailer mails every report written to S3 to the recipients routed
// by its file name.
type ReportMailer struct {
	Config config.ReportMailer
	Store  ObjectFetcher
	Sender MessageSender
	Clock  window.Clock
	Logger *zap.Logger
}

func (h *ReportMailer) Handle(ctx context.Context, event events.S3Event) error {
	logger := logging.ForInvocation(ctx, h.Logger)

	objects, err := reportObjects(event, h.Config.BucketName, h.Config.ReportPath, logger)
	if err != nil {
		return err
	}

	var errs error
	for _, o := range objects {
		id, err := h.mail(ctx, o)
		if err != nil {
			logger.Error("report not mailed", zap.String("key", o.Key), zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", o.Key, err))
			continue
		}
		logger.Info("email sent", zap.String("key", o.Key), zap.String("message_id", id))
	}
	if errs == nil {
		logger.Info("successfully processed reports", zap.Int("reports", len(objects)))
	}
	return errs
}

func (h *ReportMailer) mail(ctx context.Context, o reportObject) (string, error) {
	cfg := h.Config
	route := cfg.Routes.Select(path.Base(o.Key))

	data, err := h.Store.Fetch(ctx, o.Bucket, o.Key)
	if err != nil {
		return "", err
	}

	date := mailer.ReportDate(h.Clock.Current())
	return h.Sender.Send(ctx, mailer.Message{
		From:           cfg.Sender,
		To:             route.To,
		Cc:             route.Cc,
		Subject:        cfg.Subject + " " + date,
		ReturnPath:     cfg.ReturnPath,
		ReplyTo:        cfg.ReplyTo,
		Charset:        cfg.Charset,
		AttachmentName: mailer.AttachmentName(cfg.Subject, date),
		Attachment:     data,
	})
}
