package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/oakline-research/rating-cli/internal/fetcher"
	"github.com/oakline-research/rating-cli/internal/model"
)

var (
	rateDeep     bool
	rateRefresh  bool
	rateJSON     bool
	rateInsiders string
)

var rateCmd = &cobra.Command{
	Use:   "rate <ticker>",
	Short: "Rate a single entity through the full pipeline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		opts := rateOptions{Deep: rateDeep, Refresh: rateRefresh}
		if rateInsiders != "" {
			opts.Insiders, err = fetcher.ReadInsidersJSON(rateInsiders)
			if err != nil {
				return eris.Wrap(err, "read insiders")
			}
		}

		res, err := e.rateTicker(ctx, args[0], opts)
		if err != nil {
			return err
		}

		if rateJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}

		printRating(res)
		return nil
	},
}

func printRating(res *model.RatingResult) {
	fmt.Printf("%s  %s  %.1f/100 (raw %+.1f)\n", res.Ticker, res.Tier, res.NormalizedScore, res.RawScore)
	fmt.Printf("coverage %d/%d rules (%.0f%%)\n\n", res.Completeness.Applicable, res.Completeness.Total, res.Completeness.Pct)

	for _, r := range res.Reasons {
		switch {
		case r.Missing:
			fmt.Printf("   ?    %-28s %s\n", r.Name, r.Message)
		case r.NotApplicable:
			fmt.Printf("   -    %-28s %s\n", r.Name, r.Message)
		default:
			fmt.Printf("%+6.1f  %-28s %s\n", r.Score, r.Name, r.Message)
		}
	}

	if len(res.Signals) > 0 {
		fmt.Printf("\nfiling signals (%+d):\n", res.SignalScore)
		for _, sig := range res.Signals {
			fmt.Printf("%+4d  [%s] %s\n", sig.Score, sig.Severity, sig.Title)
		}
	}

	for _, note := range res.OverrideNotes {
		fmt.Printf("\nnote: %s\n", note)
	}

	if res.Narrative != "" {
		fmt.Printf("\n%s\n", res.Narrative)
	}
}

func init() {
	rateCmd.Flags().BoolVar(&rateDeep, "deep", false, "derive amendment-history and insider signals")
	rateCmd.Flags().BoolVar(&rateRefresh, "refresh", false, "bypass stored periods and the signal cache")
	rateCmd.Flags().BoolVar(&rateJSON, "json", false, "emit the full result as JSON")
	rateCmd.Flags().StringVar(&rateInsiders, "insiders", "", "path to insider transactions JSON for the deep scan")
	rootCmd.AddCommand(rateCmd)
}
