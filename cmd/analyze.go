package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/dealflow-cli/internal/engine"
	"github.com/sells-group/dealflow-cli/internal/enrich"
	"github.com/sells-group/dealflow-cli/internal/model"
)

var (
	analyzeFile string
	analyzeSave bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [property-id]",
	Short: "Analyze a single property and match it against the buyer registry",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		prop, err := resolveProperty(ctx, env, args)
		if err != nil {
			return err
		}

		market, err := env.Store.GetMarket(ctx, prop.ZIP)
		if err != nil {
			return err
		}
		buyers, err := env.Store.ListActiveBuyers(ctx)
		if err != nil {
			return err
		}

		out, err := engine.AnalyzeAndMatch(*prop, market, buyers, cfg.Engine)
		if err != nil {
			return err
		}

		narrative := enrich.Fallback(*prop, out.Analysis)
		if env.Narrator != nil {
			narrative = env.Narrator.Narrate(ctx, *prop, out.Analysis)
		}

		if analyzeSave {
			if err := env.Store.SaveAnalysis(ctx, prop.ID, out.Analysis, out.Matches, narrative); err != nil {
				return err
			}
			zap.L().Info("analysis saved", zap.String("property", prop.ID))
		}

		return printJSON(struct {
			Analysis  *model.AnalysisResult `json:"analysis"`
			Matches   model.MatchResult     `json:"matches"`
			Narrative enrich.Narrative      `json:"narrative"`
		}{out.Analysis, out.Matches, narrative})
	},
}

// resolveProperty loads the lead either from the store by id or from a JSON
// file given with --file.
func resolveProperty(ctx context.Context, env *runEnv, args []string) (*model.PropertyRecord, error) {
	if analyzeFile != "" {
		raw, err := os.ReadFile(analyzeFile)
		if err != nil {
			return nil, eris.Wrap(err, "read property file")
		}
		var p model.PropertyRecord
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, eris.Wrap(err, "parse property file")
		}
		return &p, nil
	}

	if len(args) == 0 {
		return nil, eris.New("a property id or --file is required")
	}
	return env.Store.FindProperty(ctx, args[0])
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "encode output")
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFile, "file", "", "path to a property JSON file (bypasses the store lookup)")
	analyzeCmd.Flags().BoolVar(&analyzeSave, "save", false, "persist the analysis")
	rootCmd.AddCommand(analyzeCmd)
}
