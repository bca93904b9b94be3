package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pg2click",
		Short: "pg2click - batch ETL from Postgres into ClickHouse",
		Long: `pg2click extracts tables from a Postgres schema in bounded batches,
runs each batch through a fixed transformation pipeline and appends the
result to a ClickHouse table, tagged with the source table name.`,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	rootCmd.AddCommand(NewRunCmd())
	rootCmd.AddCommand(NewSeedCmd())

	return rootCmd
}

func newLogger(debug bool) (*zap.Logger, error) {
	zapConfig := zap.NewProductionConfig()
	if debug {
		zapConfig.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return zapConfig.Build()
}
