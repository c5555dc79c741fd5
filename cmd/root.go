package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oakline-research/rating-cli/internal/config"
)

var (
	cfg        *config.Config
	tuningPath string
)

var rootCmd = &cobra.Command{
	Use:   "rating-cli",
	Short: "Fundamental rating pipeline for public equities",
	Long:  "Normalizes reported financials into TTM aggregates, scans filings for qualitative signals, and scores entities through a fixed rule catalog.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if tuningPath != "" {
			if err := config.ApplyTuningFile(cfg, tuningPath); err != nil {
				return fmt.Errorf("apply tuning file: %w", err)
			}
		}

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&tuningPath, "tuning", "", "YAML overlay for rating bands")
}
