package main

import (
	"bufio"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	batchFile          string
	batchDeep          bool
	batchRefresh       bool
	batchMaxConcurrent int
)

var batchCmd = &cobra.Command{
	Use:   "batch [tickers...]",
	Short: "Rate many entities under a bounded worker pool",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		tickers := args
		if batchFile != "" {
			fromFile, err := readTickerFile(batchFile)
			if err != nil {
				return err
			}
			tickers = append(tickers, fromFile...)
		}
		tickers = dedupeTickers(tickers)
		if len(tickers) == 0 {
			return eris.New("no tickers given (pass args or --file)")
		}

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		concurrency := batchMaxConcurrent
		if concurrency <= 0 {
			concurrency = cfg.Batch.MaxConcurrent
		}
		if concurrency <= 0 {
			concurrency = 4
		}

		zap.L().Info("processing batch",
			zap.Int("tickers", len(tickers)),
			zap.Int("concurrency", concurrency),
		)

		var rated, failed atomic.Int64
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)

		for _, ticker := range tickers {
			g.Go(func() error {
				res, err := e.rateTicker(gctx, ticker, rateOptions{Deep: batchDeep, Refresh: batchRefresh})
				if err != nil {
					// Per-ticker isolation: one bad entity never
					// aborts the rest of the batch.
					failed.Add(1)
					zap.L().Error("rating failed",
						zap.String("ticker", ticker),
						zap.Error(err),
					)
					return nil
				}
				rated.Add(1)
				zap.L().Info("rated",
					zap.String("ticker", res.Ticker),
					zap.String("tier", res.Tier),
					zap.Float64("score", res.NormalizedScore),
				)
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return err
		}

		zap.L().Info("batch complete",
			zap.Int64("rated", rated.Load()),
			zap.Int64("failed", failed.Load()),
		)

		if rated.Load() == 0 {
			return eris.New("batch: every ticker failed")
		}
		return nil
	},
}

// readTickerFile reads one ticker per line, skipping blanks and # comments.
func readTickerFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "open ticker file")
	}
	defer f.Close()

	var tickers []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		tickers = append(tickers, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrap(err, "read ticker file")
	}

	return tickers, nil
}

func dedupeTickers(tickers []string) []string {
	seen := make(map[string]bool, len(tickers))
	out := tickers[:0]
	for _, t := range tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func init() {
	batchCmd.Flags().StringVar(&batchFile, "file", "", "file with one ticker per line")
	batchCmd.Flags().BoolVar(&batchDeep, "deep", false, "deep-scan every entity")
	batchCmd.Flags().BoolVar(&batchRefresh, "refresh", false, "bypass stored periods and the signal cache")
	batchCmd.Flags().IntVar(&batchMaxConcurrent, "max-concurrent", 0, "worker pool size (default from config)")
	rootCmd.AddCommand(batchCmd)
}
