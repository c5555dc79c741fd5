package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/oakline-research/rating-cli/internal/fundamentals"
	"github.com/oakline-research/rating-cli/internal/model"
)

var periodsRefresh bool

var periodsCmd = &cobra.Command{
	Use:   "periods <ticker>",
	Short: "Show the normalized period series and TTM snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ticker := strings.ToUpper(strings.TrimSpace(args[0]))

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		cik := ""
		if periodsRefresh {
			profile, _, err := e.loadCompany(ctx, ticker)
			if err != nil {
				return eris.Wrapf(err, "load company %s", ticker)
			}
			cik = profile.CIK
		}

		records, err := e.loadPeriods(ctx, ticker, cik, periodsRefresh)
		if err != nil {
			return eris.Wrapf(err, "load periods %s", ticker)
		}
		if len(records) == 0 {
			return eris.Errorf("no periods for %s (try --refresh)", ticker)
		}

		quarters, annuals := fundamentals.Normalize(records)
		out := struct {
			Ticker    string                `json:"ticker"`
			Quarterly model.QuarterlySeries `json:"quarterly"`
			Annual    model.AnnualSeries    `json:"annual"`
			TTM       *model.TtmSnapshot    `json:"ttm,omitempty"`
		}{
			Ticker:    ticker,
			Quarterly: quarters,
			Annual:    annuals,
			TTM:       fundamentals.BuildTTM(quarters, annuals),
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	periodsCmd.Flags().BoolVar(&periodsRefresh, "refresh", false, "pull fresh XBRL facts before normalizing")
	rootCmd.AddCommand(periodsCmd)
}
