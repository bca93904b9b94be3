package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/selimk/pg2click/internal/config"
	"github.com/selimk/pg2click/internal/pipeline"
	"github.com/selimk/pg2click/internal/retry"
	"github.com/selimk/pg2click/internal/sink/clickhouse"
	"github.com/selimk/pg2click/internal/source/postgres"
	"github.com/selimk/pg2click/internal/transform"
)

func NewRunCmd() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full ETL process",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(debug)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runETL(ctx, logger)
		},
	}
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	return cmd
}

// runETL opens both connections with retry, drives the pipeline and reports
// the outcome. Connection retries exhausted here abort the whole run.
func runETL(ctx context.Context, logger *zap.Logger) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		logger.Error("config load failed", zap.Error(err))
		return err
	}
	logger.Info("configuration loaded",
		zap.String("source_schema", cfg.Source.Schema),
		zap.String("sink_table", cfg.Sink.Table),
		zap.Int("batch_size", cfg.BatchSize))

	policy := retry.Policy{MaxAttempts: cfg.Retry.MaxAttempts, Delay: cfg.Retry.Delay()}

	source, err := retry.Do(ctx, logger, "open source connection", policy, func() (*postgres.DB, error) {
		return postgres.Connect(ctx, cfg.Source, cfg.BatchSize, logger)
	})
	if err != nil {
		return err
	}

	sink, err := retry.Do(ctx, logger, "open sink connection", policy, func() (*clickhouse.Client, error) {
		return clickhouse.Connect(ctx, cfg.Sink, logger)
	})
	if err != nil {
		source.Close(ctx)
		return err
	}

	p := pipeline.New(source, sink, transform.New(logger), logger)
	if err := p.Run(ctx); err != nil {
		logger.Error("etl run failed", zap.Error(err))
		return err
	}

	logger.Info("etl run completed")
	return nil
}
