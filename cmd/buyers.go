package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/dealflow-cli/internal/importer"
)

var buyersCmd = &cobra.Command{
	Use:   "buyers",
	Short: "Manage the buyer registry",
}

var buyersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active buyers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		buyers, err := env.Store.ListActiveBuyers(ctx)
		if err != nil {
			return err
		}
		return printJSON(buyers)
	},
}

var buyersLoadCmd = &cobra.Command{
	Use:   "load <registry.yaml>",
	Short: "Load a YAML buyer registry into the store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		buyers, err := importer.BuyersYAML(args[0])
		if err != nil {
			return err
		}
		for _, b := range buyers {
			if err := env.Store.SaveBuyer(ctx, b); err != nil {
				return err
			}
		}

		zap.L().Info("buyer registry loaded",
			zap.Int("buyers", len(buyers)),
			zap.String("path", args[0]),
		)
		return nil
	},
}

func init() {
	buyersCmd.AddCommand(buyersListCmd, buyersLoadCmd)
	rootCmd.AddCommand(buyersCmd)
}
