package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and purge cached filing-signal scans",
}

var cacheShowCmd = &cobra.Command{
	Use:   "show <ticker>",
	Short: "Print the cached scan entry for a ticker",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cache, err := initCache()
		if err != nil {
			return err
		}
		if cache == nil {
			return eris.New("signal cache is disabled")
		}

		entry, err := cache.Get(cmd.Context(), strings.ToUpper(args[0]))
		if err != nil {
			return eris.Wrap(err, "read cache entry")
		}
		if entry == nil {
			return eris.Errorf("no cache entry for %s", strings.ToUpper(args[0]))
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entry)
	},
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge <ticker>",
	Short: "Drop the cached scan entry for a ticker",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cache, err := initCache()
		if err != nil {
			return err
		}
		if cache == nil {
			return eris.New("signal cache is disabled")
		}

		ticker := strings.ToUpper(args[0])
		if err := cache.Purge(cmd.Context(), ticker); err != nil {
			return eris.Wrap(err, "purge cache entry")
		}

		zap.L().Info("cache entry purged", zap.String("ticker", ticker))
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheShowCmd)
	cacheCmd.AddCommand(cachePurgeCmd)
	rootCmd.AddCommand(cacheCmd)
}
