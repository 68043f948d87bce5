package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/sells-group/dealflow-cli/internal/engine"
	"github.com/sells-group/dealflow-cli/internal/importer"
	"github.com/sells-group/dealflow-cli/internal/match"
	"github.com/sells-group/dealflow-cli/internal/model"
	"github.com/sells-group/dealflow-cli/internal/store"
)

var matchBuyersFile string

var matchCmd = &cobra.Command{
	Use:   "match <property-id>",
	Short: "Rank buyers for a property",
	Long:  "Analyzes the property and ranks the buyer registry against it. With --buyers, a YAML registry file replaces the stored buyers.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		prop, err := env.Store.FindProperty(ctx, args[0])
		if err != nil {
			return err
		}
		market, err := env.Store.GetMarket(ctx, prop.ZIP)
		if err != nil {
			return err
		}

		buyers, err := loadMatchBuyers(ctx, env.Store, matchBuyersFile)
		if err != nil {
			return err
		}

		analysis, err := engine.Analyze(*prop, market, cfg.Engine)
		if err != nil {
			return err
		}

		result := match.Rank(analysis.Summary(*prop), buyers, cfg.Engine.Match)
		return printJSON(result)
	},
}

// loadMatchBuyers resolves the buyer registry for a match run. A --buyers file
// replaces the stored registry entirely, so the store is not consulted.
func loadMatchBuyers(ctx context.Context, st store.Store, file string) ([]model.BuyerRecord, error) {
	if file != "" {
		return importer.BuyersYAML(file)
	}
	return st.ListActiveBuyers(ctx)
}

func init() {
	matchCmd.Flags().StringVar(&matchBuyersFile, "buyers", "", "path to a YAML buyer registry (overrides stored buyers)")
	rootCmd.AddCommand(matchCmd)
}
