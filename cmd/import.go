package main

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oakline-research/rating-cli/internal/fetcher"
	"github.com/oakline-research/rating-cli/internal/model"
)

var (
	importTicker   string
	importFile     string
	importSheet    string
	importSkipRows int
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import analyst-supplied period and price files into the store",
}

var importPeriodsCmd = &cobra.Command{
	Use:   "periods",
	Short: "Import financial periods from a JSON or XLSX file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		var periods []model.FinancialPeriod
		var err error
		switch ext := strings.ToLower(filepath.Ext(importFile)); ext {
		case ".json":
			periods, err = fetcher.ReadPeriodsJSON(importFile)
		case ".xlsx":
			periods, err = fetcher.ReadPeriodsXLSX(importFile, fetcher.XLSXOptions{
				SheetName: importSheet,
				SkipRows:  importSkipRows,
			})
		default:
			return eris.Errorf("unsupported periods format %q (want .json or .xlsx)", ext)
		}
		if err != nil {
			return eris.Wrap(err, "read periods file")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		n, err := st.UpsertPeriods(ctx, importTicker, periods)
		if err != nil {
			return eris.Wrap(err, "upsert periods")
		}

		zap.L().Info("periods imported",
			zap.String("ticker", strings.ToUpper(importTicker)),
			zap.Int("upserted", n),
			zap.String("file", importFile),
		)
		return nil
	},
}

var importPricesCmd = &cobra.Command{
	Use:   "prices",
	Short: "Import daily price points from a JSON or CSV file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		var prices []model.PricePoint
		var err error
		switch ext := strings.ToLower(filepath.Ext(importFile)); ext {
		case ".json":
			prices, err = fetcher.ReadPricesJSON(importFile)
		case ".csv":
			prices, err = fetcher.ReadPricesCSV(importFile)
		default:
			return eris.Errorf("unsupported prices format %q (want .json or .csv)", ext)
		}
		if err != nil {
			return eris.Wrap(err, "read prices file")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		n, err := st.UpsertPrices(ctx, importTicker, prices)
		if err != nil {
			return eris.Wrap(err, "upsert prices")
		}

		zap.L().Info("prices imported",
			zap.String("ticker", strings.ToUpper(importTicker)),
			zap.Int("upserted", n),
			zap.String("file", importFile),
		)
		return nil
	},
}

func init() {
	importCmd.PersistentFlags().StringVar(&importTicker, "ticker", "", "ticker the file belongs to (required)")
	importCmd.PersistentFlags().StringVar(&importFile, "file", "", "path to the data file (required)")
	_ = importCmd.MarkPersistentFlagRequired("ticker")
	_ = importCmd.MarkPersistentFlagRequired("file")

	importPeriodsCmd.Flags().StringVar(&importSheet, "sheet", "", "XLSX sheet name (default first sheet)")
	importPeriodsCmd.Flags().IntVar(&importSkipRows, "skip-rows", 0, "rows above the XLSX header")

	importCmd.AddCommand(importPeriodsCmd)
	importCmd.AddCommand(importPricesCmd)
	rootCmd.AddCommand(importCmd)
}
