package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/dealflow-cli/internal/orchestrator"
)

var batchLimit int

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Analyze every stored property and persist the results",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		limit := batchLimit
		if limit == 0 {
			limit = cfg.Batch.Limit
		}

		properties, err := env.Store.ListProperties(ctx, limit)
		if err != nil {
			return err
		}
		markets, err := env.Store.ListMarkets(ctx)
		if err != nil {
			return err
		}
		buyers, err := env.Store.ListActiveBuyers(ctx)
		if err != nil {
			return err
		}

		runner := orchestrator.NewRunner(env.Store, cfg.Engine, env.Narrator).
			WithConcurrency(cfg.Batch.Concurrency)
		summary, err := runner.Run(ctx, properties, markets, buyers)
		if err != nil {
			return err
		}

		zap.L().Info("batch complete",
			zap.Int("total", summary.Total),
			zap.Int("succeeded", summary.Succeeded),
			zap.Int("failed", summary.Failed),
		)
		return printJSON(summary)
	},
}

func init() {
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max number of properties to process (default from config)")
	rootCmd.AddCommand(batchCmd)
}
