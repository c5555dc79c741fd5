package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oakline-research/rating-cli/internal/fundamentals"
	"github.com/oakline-research/rating-cli/internal/model"
	"github.com/oakline-research/rating-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve ratings, signals, and periods over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		rate := func(ctx context.Context, ticker string) (*model.RatingResult, error) {
			return e.rateTicker(ctx, ticker, rateOptions{})
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		if port == 0 {
			port = 8080
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(e.store, cfg.Server.AllowedOrigins, rate),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

type rateFunc func(ctx context.Context, ticker string) (*model.RatingResult, error)

func newRouter(st store.Store, origins []string, rate rateFunc) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/api/ratings", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		limit, _ := strconv.Atoi(q.Get("limit"))
		ratings, err := st.ListRatings(r.Context(), store.RatingFilter{
			Ticker: q.Get("ticker"),
			Tier:   q.Get("tier"),
			Limit:  limit,
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, ratings)
	})

	r.Get("/api/ratings/{ticker}", func(w http.ResponseWriter, r *http.Request) {
		res, err := latestRating(r.Context(), st, chi.URLParam(r, "ticker"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if res == nil {
			writeError(w, http.StatusNotFound, eris.New("no rating for ticker"))
			return
		}
		writeJSON(w, http.StatusOK, res)
	})

	r.Get("/api/signals/{ticker}", func(w http.ResponseWriter, r *http.Request) {
		res, err := latestRating(r.Context(), st, chi.URLParam(r, "ticker"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if res == nil {
			writeError(w, http.StatusNotFound, eris.New("no rating for ticker"))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"ticker":       res.Ticker,
			"signal_score": res.SignalScore,
			"signals":      res.Signals,
		})
	})

	r.Get("/api/periods/{ticker}", func(w http.ResponseWriter, r *http.Request) {
		ticker := strings.ToUpper(chi.URLParam(r, "ticker"))
		records, err := st.ListPeriods(r.Context(), ticker)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if len(records) == 0 {
			writeError(w, http.StatusNotFound, eris.New("no periods for ticker"))
			return
		}
		quarters, annuals := fundamentals.Normalize(records)
		writeJSON(w, http.StatusOK, map[string]any{
			"ticker":    ticker,
			"quarterly": quarters,
			"annual":    annuals,
			"ttm":       fundamentals.BuildTTM(quarters, annuals),
		})
	})

	r.Post("/api/rate/{ticker}", func(w http.ResponseWriter, r *http.Request) {
		ticker := strings.ToUpper(chi.URLParam(r, "ticker"))
		if rate == nil {
			writeError(w, http.StatusServiceUnavailable, eris.New("rating pipeline not available"))
			return
		}

		// Rating pulls filings from EDGAR and can take a while;
		// run it detached and let the caller poll GET /api/ratings.
		go func() {
			res, err := rate(context.WithoutCancel(r.Context()), ticker)
			if err != nil {
				zap.L().Error("async rating failed",
					zap.String("ticker", ticker),
					zap.Error(err),
				)
				return
			}
			zap.L().Info("async rating complete",
				zap.String("ticker", ticker),
				zap.String("tier", res.Tier),
			)
		}()

		writeJSON(w, http.StatusAccepted, map[string]string{
			"status": "accepted",
			"ticker": ticker,
		})
	})

	return r
}

func latestRating(ctx context.Context, st store.Store, ticker string) (*model.RatingResult, error) {
	ratings, err := st.ListRatings(ctx, store.RatingFilter{
		Ticker: strings.ToUpper(ticker),
		Limit:  1,
	})
	if err != nil {
		return nil, err
	}
	if len(ratings) == 0 {
		return nil, nil
	}
	return &ratings[0], nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
