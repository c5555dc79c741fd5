package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oakline-research/rating-cli/internal/fetcher"
)

var (
	scanDeep     bool
	scanRefresh  bool
	scanFilingsN int
	scanInsiders string
)

var scanCmd = &cobra.Command{
	Use:   "scan <ticker>",
	Short: "Scan recent filings for qualitative signals",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		opts := rateOptions{Deep: scanDeep, Refresh: scanRefresh, MaxFilings: scanFilingsN}
		if scanInsiders != "" {
			opts.Insiders, err = fetcher.ReadInsidersJSON(scanInsiders)
			if err != nil {
				return eris.Wrap(err, "read insiders")
			}
		}

		profile, all, err := e.loadCompany(ctx, args[0])
		if err != nil {
			return eris.Wrapf(err, "load company %s", args[0])
		}

		res, err := e.scanFilings(ctx, profile, all, opts)
		if err != nil {
			return eris.Wrap(err, "scan filings")
		}

		zap.L().Info("scan complete",
			zap.String("ticker", profile.Ticker),
			zap.Int("signals", len(res.Signals)),
			zap.Bool("from_cache", res.FromCache),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

func init() {
	scanCmd.Flags().BoolVar(&scanDeep, "deep", false, "derive amendment-history and insider signals")
	scanCmd.Flags().BoolVar(&scanRefresh, "refresh", false, "bypass the signal cache")
	scanCmd.Flags().IntVar(&scanFilingsN, "filings", 0, "max filings to scan (default from config)")
	scanCmd.Flags().StringVar(&scanInsiders, "insiders", "", "path to insider transactions JSON for the deep scan")
	rootCmd.AddCommand(scanCmd)
}
