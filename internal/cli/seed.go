package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/selimk/pg2click/internal/config"
	"github.com/selimk/pg2click/internal/retry"
	"github.com/selimk/pg2click/internal/source/postgres"
)

func NewSeedCmd() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:   "seed <table> <csv-file>",
		Short: "Snapshot a CSV file and bulk-insert it into the source schema",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, csvPath := args[0], args[1]

			logger, err := newLogger(debug)
			if err != nil {
				return err
			}
			defer logger.Sync()

			cfg, err := config.LoadFromEnv()
			if err != nil {
				return err
			}

			ctx := context.Background()
			policy := retry.Policy{MaxAttempts: cfg.Retry.MaxAttempts, Delay: cfg.Retry.Delay()}

			_, err = retry.Do(ctx, logger, fmt.Sprintf("seed table %s", table), policy, func() (struct{}, error) {
				db, err := postgres.Connect(ctx, cfg.Source, cfg.BatchSize, logger)
				if err != nil {
					return struct{}{}, err
				}
				defer db.Close(ctx)
				return struct{}{}, db.SeedCSV(ctx, table, csvPath, cfg.Seed.ProcessedDataDir, cfg.Seed.BatchSize)
			})
			return err
		},
	}
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	return cmd
}
