// Package config decodes the environment of each function into an explicit
// configuration value that is validated once at cold start.
package config

import (
	"errors"
	"fmt"
	"strings"

	env "github.com/Netflix/go-env"
	"go.uber.org/multierr"

	"github.com/shiimaxx/connectmetrics/collector"
	"github.com/shiimaxx/connectmetrics/mailer"
	"github.com/shiimaxx/connectmetrics/normalizer"
	"github.com/shiimaxx/connectmetrics/window"
)

var (
	ErrMissingVariable = errors.New("environment variable not configured")
	ErrInvalidVariable = errors.New("environment variable invalid")
)

// VariableError names the environment variable a problem was found in.
type VariableError struct {
	Name   string
	Reason string
	Err    error
}

func (e *VariableError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Name, e.Err, e.Reason)
}

func (e *VariableError) Unwrap() error {
	return e.Err
}

func missing(name string) error {
	return &VariableError{Name: name, Err: ErrMissingVariable}
}

func invalid(name, format string, args ...any) error {
	return &VariableError{Name: name, Reason: fmt.Sprintf(format, args...), Err: ErrInvalidVariable}
}

func required(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return missing(name)
	}
	return nil
}

// Common holds settings shared by every function.
type Common struct {
	LogLevel      string `env:"LOG_LEVEL,default=info"`
	Region        string `env:"REGION"`
	MaxAttempts   int    `env:"MAX_ATTEMPTS,default=5"`
	AssumeRoleARN string `env:"ASSUME_ROLE_ARN"`
	ExternalID    string `env:"EXTERNAL_ID"`
	Timezone      string `env:"TIMEZONE,default=America/Chicago"`
}

func (c Common) Validate() error {
	var errs error
	if c.MaxAttempts < 1 {
		errs = multierr.Append(errs, invalid("MAX_ATTEMPTS", "must be at least 1, got %d", c.MaxAttempts))
	}
	if _, err := window.NewClock(c.Timezone); err != nil {
		errs = multierr.Append(errs, invalid("TIMEZONE", "%v", err))
	}
	if c.ExternalID != "" && c.AssumeRoleARN == "" {
		errs = multierr.Append(errs, invalid("EXTERNAL_ID", "set without ASSUME_ROLE_ARN"))
	}
	return errs
}

func (c Common) Clock() (window.Clock, error) {
	return window.NewClock(c.Timezone)
}

// QueueMetrics configures the scheduled queue metrics function.
type QueueMetrics struct {
	Common

	InstanceID       string `env:"CONNECT_INSTANCE_ID"`
	Namespace        string `env:"NAMESPACE"`
	Channel          string `env:"CHANNEL,default=VOICE"`
	Grouping         string `env:"GROUPING,default=QUEUE"`
	Preset           string `env:"PRESET,default=daily"`
	MissingPolicy    string `env:"MISSING_POLICY,default=sentinel"`
	RejectDuplicates bool   `env:"REJECT_DUPLICATE_METRICS,default=false"`
	Queues           string `env:"QUEUES"`
	QueryConcurrency int    `env:"QUERY_CONCURRENCY,default=4"`
	SandboxMetrics   bool   `env:"SANDBOX_METRICS,default=false"`
}

func LoadQueueMetrics(es env.EnvSet) (QueueMetrics, error) {
	var c QueueMetrics
	if err := env.Unmarshal(es, &c); err != nil {
		return QueueMetrics{}, fmt.Errorf("decode environment: %w", err)
	}
	if err := c.Validate(); err != nil {
		return QueueMetrics{}, err
	}
	return c, nil
}

func (c QueueMetrics) Validate() error {
	errs := c.Common.Validate()
	errs = multierr.Append(errs, required("CONNECT_INSTANCE_ID", c.InstanceID))
	errs = multierr.Append(errs, required("NAMESPACE", c.Namespace))
	errs = multierr.Append(errs, required("CHANNEL", c.Channel))
	errs = multierr.Append(errs, required("GROUPING", c.Grouping))
	if _, err := collector.LookupPreset(c.Preset); err != nil {
		errs = multierr.Append(errs, invalid("PRESET", "%v", err))
	}
	if _, err := normalizer.ParsePolicy(c.MissingPolicy); err != nil {
		errs = multierr.Append(errs, invalid("MISSING_POLICY", "%v", err))
	}
	if _, err := collector.ParseQueues(c.Queues); err != nil {
		errs = multierr.Append(errs, invalid("QUEUES", "%v", err))
	}
	if c.QueryConcurrency < 1 {
		errs = multierr.Append(errs, invalid("QUERY_CONCURRENCY", "must be at least 1, got %d", c.QueryConcurrency))
	}
	return errs
}

func (c QueueMetrics) Normalizer() normalizer.Normalizer {
	policy, _ := normalizer.ParsePolicy(c.MissingPolicy)
	return normalizer.Normalizer{Policy: policy, RejectDuplicates: c.RejectDuplicates}
}

// ReportMetrics configures the function turning agent reports into metrics.
type ReportMetrics struct {
	Common

	ReportPath    string `env:"REPORT_PATH"`
	BucketName    string `env:"BUCKET_NAME"`
	Namespace     string `env:"NAMESPACE,default=ConnectHistoricalMetrics"`
	HeaderLines   int    `env:"HEADER_LINES,default=2"`
	DimensionName string `env:"DIMENSION_NAME,default=Team Lead"`
}

func LoadReportMetrics(es env.EnvSet) (ReportMetrics, error) {
	var c ReportMetrics
	if err := env.Unmarshal(es, &c); err != nil {
		return ReportMetrics{}, fmt.Errorf("decode environment: %w", err)
	}
	if err := c.Validate(); err != nil {
		return ReportMetrics{}, err
	}
	return c, nil
}

func (c ReportMetrics) Validate() error {
	errs := c.Common.Validate()
	errs = multierr.Append(errs, validReportPath(c.ReportPath))
	errs = multierr.Append(errs, required("BUCKET_NAME", c.BucketName))
	errs = multierr.Append(errs, required("NAMESPACE", c.Namespace))
	errs = multierr.Append(errs, required("DIMENSION_NAME", c.DimensionName))
	if c.HeaderLines < 0 {
		errs = multierr.Append(errs, invalid("HEADER_LINES", "must not be negative, got %d", c.HeaderLines))
	}
	return errs
}

// ReportMailer configures the report distribution function. Routes come
// from numbered KEY_<n>, RECIPIENT_<n> and CC_<n> variables.
type ReportMailer struct {
	Common

	ReportPath       string `env:"REPORT_PATH"`
	BucketName       string `env:"BUCKET_NAME"`
	Sender           string `env:"SENDER"`
	Subject          string `env:"SUBJECT"`
	RecipientDefault string `env:"RECIPIENT_DEFAULT"`
	CcDefault        string `env:"CC_DEFAULT"`
	ReturnPath       string `env:"RETURN_PATH"`
	ReplyTo          string `env:"REPLY_TO"`
	Charset          string `env:"CHARSET,default=UTF-8"`

	Routes mailer.Routes
}

func LoadReportMailer(es env.EnvSet) (ReportMailer, error) {
	var c ReportMailer
	if err := env.Unmarshal(es, &c); err != nil {
		return ReportMailer{}, fmt.Errorf("decode environment: %w", err)
	}
	c.Routes = mailer.Routes{
		Default: mailer.Route{
			To: mailer.SplitAddresses(c.RecipientDefault),
			Cc: mailer.SplitAddresses(c.CcDefault),
		},
	}
	for n := 1; ; n++ {
		key, ok := es[fmt.Sprintf("KEY_%d", n)]
		if !ok {
			break
		}
		c.Routes.Routes = append(c.Routes.Routes, mailer.Route{
			Key: strings.TrimSpace(key),
			To:  mailer.SplitAddresses(es[fmt.Sprintf("RECIPIENT_%d", n)]),
			Cc:  mailer.SplitAddresses(es[fmt.Sprintf("CC_%d", n)]),
		})
	}
	if err := c.Validate(); err != nil {
		return ReportMailer{}, err
	}
	return c, nil
}

func (c ReportMailer) Validate() error {
	errs := c.Common.Validate()
	errs = multierr.Append(errs, validReportPath(c.ReportPath))
	errs = multierr.Append(errs, required("BUCKET_NAME", c.BucketName))
	errs = multierr.Append(errs, required("SUBJECT", c.Subject))
	errs = multierr.Append(errs, address("SENDER", c.Sender))
	errs = multierr.Append(errs, address("RETURN_PATH", c.ReturnPath))
	errs = multierr.Append(errs, address("REPLY_TO", c.ReplyTo))
	if len(c.Routes.Default.To) == 0 {
		errs = multierr.Append(errs, missing("RECIPIENT_DEFAULT"))
	}
	errs = multierr.Append(errs, addresses("RECIPIENT_DEFAULT", c.Routes.Default.To))
	errs = multierr.Append(errs, addresses("CC_DEFAULT", c.Routes.Default.Cc))
	for i, r := range c.Routes.Routes {
		n := i + 1
		if r.Key == "" {
			errs = multierr.Append(errs, missing(fmt.Sprintf("KEY_%d", n)))
		}
		if len(r.To) == 0 {
			errs = multierr.Append(errs, missing(fmt.Sprintf("RECIPIENT_%d", n)))
		}
		errs = multierr.Append(errs, addresses(fmt.Sprintf("RECIPIENT_%d", n), r.To))
		errs = multierr.Append(errs, addresses(fmt.Sprintf("CC_%d", n), r.Cc))
	}
	return errs
}

// validReportPath also rejects the REPLACE placeholder shipped in deployment
// templates.
func validReportPath(path string) error {
	if err := required("REPORT_PATH", path); err != nil {
		return err
	}
	if strings.HasPrefix(path, "REPLACE") {
		return invalid("REPORT_PATH", "placeholder value not updated")
	}
	return nil
}

func address(name, value string) error {
	if err := required(name, value); err != nil {
		return err
	}
	return addresses(name, []string{value})
}

func addresses(name string, values []string) error {
	if err := mailer.ValidateAddresses(values...); err != nil {
		return invalid(name, "%v", err)
	}
	return nil
}
