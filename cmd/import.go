package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/dealflow-cli/internal/importer"
)

var importSheet string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import leads, buyers, and market snapshots",
}

var importPropertiesCmd = &cobra.Command{
	Use:   "properties <file.xlsx>",
	Short: "Import property leads from an XLSX worksheet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		records, report, err := importer.Properties(args[0], importer.XLSXOptions{SheetName: importSheet})
		if err != nil {
			return err
		}
		for _, p := range records {
			if err := env.Store.SaveProperty(ctx, p); err != nil {
				return err
			}
		}
		return printJSON(report)
	},
}

var importBuyersCmd = &cobra.Command{
	Use:   "buyers <file.xlsx>",
	Short: "Import buyers from an XLSX worksheet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		records, report, err := importer.Buyers(args[0], importer.XLSXOptions{SheetName: importSheet})
		if err != nil {
			return err
		}
		for _, b := range records {
			if err := env.Store.SaveBuyer(ctx, b); err != nil {
				return err
			}
		}
		return printJSON(report)
	},
}

var importMarketsCmd = &cobra.Command{
	Use:   "markets <file.yaml>",
	Short: "Import market snapshots from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		markets, err := importer.MarketsYAML(args[0])
		if err != nil {
			return err
		}
		for _, m := range markets {
			if err := env.Store.SaveMarket(ctx, *m); err != nil {
				return err
			}
		}

		zap.L().Info("markets imported",
			zap.Int("markets", len(markets)),
			zap.String("path", args[0]),
		)
		return nil
	},
}

func init() {
	importCmd.PersistentFlags().StringVar(&importSheet, "sheet", "", "worksheet name (default first sheet)")
	importCmd.AddCommand(importPropertiesCmd, importBuyersCmd, importMarketsCmd)
	rootCmd.AddCommand(importCmd)
}
