package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	env "github.com/Netflix/go-env"
	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/connect"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shiimaxx/connectmetrics/collector"
	"github.com/shiimaxx/connectmetrics/config"
	"github.com/shiimaxx/connectmetrics/handler"
	"github.com/shiimaxx/connectmetrics/logging"
	"github.com/shiimaxx/connectmetrics/publisher"
)

var rootCmd = &cobra.Command{
	Use:          "connectmetrics",
	Short:        "Run the contact center metric jobs outside of Lambda",
	SilenceUsage: true,
}

var (
	preset string
	dryRun bool
)

var queueMetricsCmd = &cobra.Command{
	Use:     "queue-metrics",
	Short:   "Query Amazon Connect once and publish per queue metrics",
	Long:    "Reads the same environment variables as the queue-metrics function.",
	Example: "connectmetrics queue-metrics --preset hourly --dry-run",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		es, err := env.EnvironToEnvSet(os.Environ())
		if err != nil {
			return err
		}
		if preset != "" {
			es["PRESET"] = preset
		}
		if dryRun && es["NAMESPACE"] == "" {
			es["NAMESPACE"] = "dry-run"
		}
		cfg, err := config.LoadQueueMetrics(es)
		if err != nil {
			return err
		}
		logger, err := logging.New(cfg.LogLevel)
		if err != nil {
			return err
		}
		defer logger.Sync()

		clock, err := cfg.Clock()
		if err != nil {
			return err
		}
		awsCfg, err := config.LoadAWS(ctx, cfg.Common)
		if err != nil {
			return err
		}

		var pub publisher.Publisher = &publisher.StdoutPublisher{Out: cmd.OutOrStdout()}
		if !dryRun {
			pub = publisher.NewAmazonCloudWatchPublisher(awsCfg, cfg.Namespace, logger)
		}
		h := &handler.QueueMetrics{
			Config:    cfg,
			Connect:   connect.NewFromConfig(awsCfg),
			Publisher: pub,
			Clock:     clock,
			Logger:    logger,
		}
		summary, err := h.Handle(ctx)
		logger.Info("finished", zap.Any("summary", summary))
		return err
	},
}

var (
	headerLines   int
	dimensionName string
)

var reportCmd = &cobra.Command{
	Use:     "report FILE...",
	Short:   "Print the metrics an exported agent report would publish",
	Example: "connectmetrics report ./agent-idle-2024-03-05.csv",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := logging.New("warn")
		if err != nil {
			return err
		}
		h := &handler.ReportMetrics{
			Config: config.ReportMetrics{
				HeaderLines:   headerLines,
				DimensionName: dimensionName,
			},
			Store:     localFiles{},
			Publisher: &publisher.StdoutPublisher{Out: cmd.OutOrStdout()},
			Logger:    logger,
		}
		var event events.S3Event
		for _, name := range args {
			var r events.S3EventRecord
			r.S3.Object.URLDecodedKey = name
			event.Records = append(event.Records, r)
		}
		return h.Handle(cmd.Context(), event)
	},
}

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List the metric presets",
	RunE: func(cmd *cobra.Command, _ []string) error {
		for _, name := range collector.PresetNames() {
			p, err := collector.LookupPreset(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", name, strings.Join(p.Names(), ","))
		}
		return nil
	},
}

// localFiles reads reports from disk instead of S3.
type localFiles struct{}

func (localFiles) Fetch(_ context.Context, _, key string) ([]byte, error) {
	return os.ReadFile(filepath.Clean(key))
}

func init() {
	queueMetricsCmd.Flags().StringVar(&preset, "preset", "", "override PRESET, one of "+strings.Join(collector.PresetNames(), ", "))
	queueMetricsCmd.Flags().BoolVar(&dryRun, "dry-run", false, "print metrics instead of publishing them")

	reportCmd.Flags().IntVar(&headerLines, "header-lines", 2, "lines to skip before the first row")
	reportCmd.Flags().StringVar(&dimensionName, "dimension", "Team Lead", "name of the first column's dimension")

	rootCmd.AddCommand(queueMetricsCmd, reportCmd, presetsCmd)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
