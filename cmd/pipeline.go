package main

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/oakline-research/rating-cli/internal/edgar"
	"github.com/oakline-research/rating-cli/internal/filings"
	"github.com/oakline-research/rating-cli/internal/fundamentals"
	"github.com/oakline-research/rating-cli/internal/model"
	"github.com/oakline-research/rating-cli/internal/narrative"
	"github.com/oakline-research/rating-cli/internal/rating"
)

type rateOptions struct {
	Deep       bool
	Refresh    bool
	MaxFilings int
	Insiders   []model.InsiderTransaction
}

// scannableForms are the filing types whose narrative text the scanner
// reads. Everything else (ownership forms, prospectuses) is metadata only.
var scannableForms = map[string]bool{
	"10-K": true, "10-K/A": true,
	"10-Q": true, "10-Q/A": true,
	"8-K":  true,
	"20-F": true, "40-F": true, "6-K": true,
}

// loadCompany resolves the ticker against EDGAR and persists the refreshed
// profile. The returned filing list is newest first.
func (e *env) loadCompany(ctx context.Context, ticker string) (model.Profile, []model.Filing, error) {
	cik, err := e.edgar.ResolveCIK(ctx, ticker)
	if err != nil {
		return model.Profile{}, nil, err
	}

	profile, all, err := e.edgar.Submissions(ctx, cik)
	if err != nil {
		return model.Profile{}, nil, err
	}
	profile.Ticker = ticker

	if err := e.store.SaveProfile(ctx, profile); err != nil {
		zap.L().Warn("save profile failed", zap.String("ticker", ticker), zap.Error(err))
	}

	return profile, all, nil
}

// loadPeriods returns the stored period records, pulling fresh XBRL facts
// from EDGAR when the store is empty or a refresh was requested.
func (e *env) loadPeriods(ctx context.Context, ticker, cik string, refresh bool) ([]model.FinancialPeriod, error) {
	if !refresh {
		periods, err := e.store.ListPeriods(ctx, ticker)
		if err != nil {
			return nil, err
		}
		if len(periods) > 0 {
			return periods, nil
		}
	}

	if cik == "" {
		return nil, eris.Errorf("pipeline: no stored periods and no CIK for %s", ticker)
	}

	facts, err := e.edgar.CompanyFacts(ctx, cik)
	if err != nil {
		return nil, err
	}

	periods := edgar.PeriodsFromFacts(facts)
	if len(periods) == 0 {
		return nil, nil
	}

	n, err := e.store.UpsertPeriods(ctx, ticker, periods)
	if err != nil {
		return nil, eris.Wrap(err, "persist periods")
	}
	zap.L().Info("periods refreshed",
		zap.String("ticker", ticker),
		zap.Int("upserted", n),
	)

	return periods, nil
}

// scanFilings fetches the newest scannable filings and runs the signal
// scanner over them. Individual fetch failures skip the filing.
func (e *env) scanFilings(ctx context.Context, profile model.Profile, all []model.Filing, opts rateOptions) (*filings.Result, error) {
	var latest time.Time
	for _, f := range all {
		if f.Filed.After(latest) {
			latest = f.Filed
		}
	}

	limit := opts.MaxFilings
	if limit <= 0 {
		limit = cfg.Scanner.MaxFilings
	}
	if limit <= 0 {
		limit = 8
	}

	docs := make([]filings.Document, 0, limit)
	for _, f := range all {
		if len(docs) >= limit {
			break
		}
		if !scannableForms[f.Form] {
			continue
		}

		text, err := e.edgar.Document(ctx, f)
		if err != nil {
			zap.L().Warn("filing fetch failed, skipping",
				zap.String("ticker", profile.Ticker),
				zap.String("accession", f.Accession),
				zap.Error(err),
			)
			continue
		}
		docs = append(docs, filings.Document{Filing: f, Text: text})
	}

	return e.scanner.Scan(ctx, profile, docs, filings.Options{
		Depth:       limit,
		Deep:        opts.Deep,
		Refresh:     opts.Refresh,
		LatestFiled: latest,
		AllFilings:  all,
		Insiders:    opts.Insiders,
	})
}

// rateTicker runs the full pipeline for one entity: profile and period
// refresh, state build, filing scan, scoring, narrative, persistence.
func (e *env) rateTicker(ctx context.Context, ticker string, opts rateOptions) (*model.RatingResult, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))

	profile, all, err := e.loadCompany(ctx, ticker)
	if err != nil {
		stored, serr := e.store.GetProfile(ctx, ticker)
		if serr != nil || stored == nil {
			return nil, eris.Wrapf(err, "pipeline: load company %s", ticker)
		}
		zap.L().Warn("edgar unavailable, using stored profile",
			zap.String("ticker", ticker),
			zap.Error(err),
		)
		profile = *stored
	}

	periods, err := e.loadPeriods(ctx, ticker, profile.CIK, opts.Refresh)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: load periods %s", ticker)
	}

	prices, err := e.store.ListPrices(ctx, ticker, 0)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: load prices %s", ticker)
	}

	state := fundamentals.BuildState(profile, periods, prices)
	if state == nil {
		return nil, eris.Errorf("pipeline: no usable periods for %s", ticker)
	}

	var signals []model.FilingSignal
	if len(all) > 0 {
		scanRes, err := e.scanFilings(ctx, profile, all, opts)
		if err != nil {
			zap.L().Warn("filing scan failed, rating without signals",
				zap.String("ticker", ticker),
				zap.Error(err),
			)
		} else {
			signals = scanRes.Signals
			if scanRes.FromCache {
				zap.L().Debug("filing signals served from cache", zap.String("ticker", ticker))
			}
		}
	}

	res := rating.Rate(state, signals, cfg.Rating)
	if res == nil {
		return nil, eris.Errorf("pipeline: cannot rate %s", ticker)
	}
	res.Narrative = narrative.Synthesize(res, state)

	id, err := e.store.SaveRating(ctx, res)
	if err != nil {
		return nil, eris.Wrap(err, "save rating")
	}

	zap.L().Info("rating complete",
		zap.String("ticker", ticker),
		zap.String("id", id),
		zap.String("tier", res.Tier),
		zap.Float64("score", res.NormalizedScore),
		zap.Int("signals", len(res.Signals)),
	)

	return res, nil
}
