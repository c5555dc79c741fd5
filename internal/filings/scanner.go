package filings

import (
	"context"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/oakline-research/rating-cli/internal/config"
	"github.com/oakline-research/rating-cli/internal/model"
	"github.com/oakline-research/rating-cli/internal/sigcache"
)

// Document is one filing plus its pre-fetched, HTML-stripped text.
type Document struct {
	Filing model.Filing
	Text   string
}

// Options controls a single scan.
type Options struct {
	// Depth is the number of filings the caller asked to cover. Used for
	// cache-coverage checks; defaults to len(docs).
	Depth int
	// Deep additionally derives the amendment-history and insider-balance
	// signals.
	Deep bool
	// Refresh bypasses the cache read (the result is still written back).
	Refresh bool
	// LatestFiled is the newest filing date known upstream, used to keep
	// an expired cache alive when nothing new was filed.
	LatestFiled time.Time
	// AllFilings is the full metadata list (beyond fetched docs) consulted
	// by the deep scan for amendment history.
	AllFilings []model.Filing
	// Insiders are recent insider transactions for the deep scan.
	Insiders []model.InsiderTransaction
	// Now is an injectable clock; zero means time.Now().
	Now time.Time
}

// Result is the outcome of one scan.
type Result struct {
	Signals   []model.FilingSignal
	Meta      sigcache.Meta
	FromCache bool
	Note      string
}

// Scanner extracts filing signals. It holds no per-scan state; the only
// shared mutable state is the injected cache.
type Scanner struct {
	catalog []SignalDef
	cache   sigcache.Cache
	cfg     config.ScannerConfig
	ttl     time.Duration
}

// NewScanner builds a scanner over the static catalog. cache may be nil,
// in which case every scan is fresh.
func NewScanner(cache sigcache.Cache, cfg config.ScannerConfig, ttl time.Duration) *Scanner {
	if cfg.NarrowWindow <= 0 {
		cfg.NarrowWindow = 60
	}
	if cfg.WideWindow <= 0 {
		cfg.WideWindow = 1800
	}
	if cfg.SnippetLen <= 0 {
		cfg.SnippetLen = 240
	}
	return &Scanner{catalog: Catalog(), cache: cache, cfg: cfg, ttl: ttl}
}

// Scan processes the given documents most-recent-first and returns the
// de-duplicated, conflict-resolved signal set. Individual unusable
// documents are skipped, never fatal.
func (s *Scanner) Scan(ctx context.Context, profile model.Profile, docs []Document, opts Options) (*Result, error) {
	now := opts.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	if opts.Depth <= 0 {
		opts.Depth = len(docs)
	}

	var cached *sigcache.Entry
	if s.cache != nil {
		var err error
		cached, err = s.cache.Get(ctx, profile.Ticker)
		if err != nil {
			zap.L().Warn("filings: cache read failed",
				zap.String("ticker", profile.Ticker),
				zap.Error(err),
			)
			cached = nil
		}
	}

	if cached != nil && !opts.Refresh &&
		cached.Usable(ScannerVersion, opts.Depth, opts.Deep, s.ttl, opts.LatestFiled, now) {
		zap.L().Debug("filings: cache hit",
			zap.String("ticker", profile.Ticker),
			zap.Int("signals", len(cached.FilingSignals)),
		)
		return &Result{Signals: cached.FilingSignals, Meta: cached.Meta, FromCache: true}, nil
	}

	// Most-recent-first: later filings take precedence in dedup.
	ordered := make([]Document, len(docs))
	copy(ordered, docs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Filing.Filed.After(ordered[j].Filing.Filed)
	})

	best := make(map[string]model.FilingSignal)
	seen := 0
	var latestFiled time.Time
	for _, doc := range ordered {
		if strings.TrimSpace(doc.Text) == "" {
			zap.L().Warn("filings: skipping filing with no usable text",
				zap.String("ticker", profile.Ticker),
				zap.String("accession", doc.Filing.Accession),
			)
			continue
		}
		seen++
		if doc.Filing.Filed.After(latestFiled) {
			latestFiled = doc.Filing.Filed
		}
		for _, sig := range s.scanDocument(doc, profile) {
			existing, ok := best[sig.ID]
			// Strongest magnitude wins; the earlier-processed (more
			// recent) filing wins ties.
			if !ok || abs(sig.Score) > abs(existing.Score) {
				best[sig.ID] = sig
			}
		}
	}

	signals := resolveConflicts(best)

	if opts.Deep {
		if sig := amendmentSignal(opts.AllFilings, now, s.cfg.DeepScanYears); sig != nil {
			signals = append(signals, *sig)
		}
		if sig := insiderSignal(opts.Insiders, now); sig != nil {
			signals = append(signals, *sig)
		}
	}

	sortSignals(signals)

	result := &Result{
		Signals: signals,
		Meta: sigcache.Meta{
			ScanDepth:   opts.Depth,
			FilingsSeen: seen,
			LatestFiled: latestFiled,
			DeepScan:    opts.Deep,
		},
	}

	// A fresh scan with zero flags does not erase history: keep the
	// cached signals and say so. The original CachedAt is kept too, so
	// the reused set never masquerades as a fresh scan on the next run.
	cachedAt := now
	if len(signals) == 0 && cached != nil && len(cached.FilingSignals) > 0 {
		result.Signals = cached.FilingSignals
		result.Note = "reused: no new flags detected"
		cachedAt = cached.CachedAt
		zap.L().Info("filings: reusing historical signals",
			zap.String("ticker", profile.Ticker),
			zap.Int("signals", len(cached.FilingSignals)),
		)
	}

	if s.cache != nil {
		entry := &sigcache.Entry{
			Ticker:         strings.ToUpper(profile.Ticker),
			FilingSignals:  result.Signals,
			Meta:           result.Meta,
			CachedAt:       cachedAt,
			ScannerVersion: ScannerVersion,
		}
		if err := s.cache.Put(ctx, entry); err != nil {
			zap.L().Warn("filings: cache write failed",
				zap.String("ticker", profile.Ticker),
				zap.Error(err),
			)
		}
	}

	zap.L().Info("filings: scan complete",
		zap.String("ticker", profile.Ticker),
		zap.Int("filings", seen),
		zap.Int("signals", len(result.Signals)),
		zap.Bool("deep", opts.Deep),
	)

	return result, nil
}

// scanDocument applies the full catalog to one filing and returns the
// first non-suppressed occurrence per signal ID.
func (s *Scanner) scanDocument(doc Document, profile model.Profile) []model.FilingSignal {
	text := normalizeText(doc.Text)

	var out []model.FilingSignal
	for _, def := range s.catalog {
		// Jurisdictional boilerplate in foreign-filer reports produces
		// going-concern false positives at an unusable rate.
		if profile.ForeignFiler && def.ID == "going_concern" {
			continue
		}
		if sig := s.scanSignal(def, text, doc.Filing); sig != nil {
			out = append(out, *sig)
		}
	}
	return out
}

// scanSignal finds the first occurrence of any phrase variant that
// survives the suppression chain.
func (s *Scanner) scanSignal(def SignalDef, text string, filing model.Filing) *model.FilingSignal {
	type hit struct{ idx, end int }
	var hits []hit
	for _, phrase := range def.Phrases {
		from := 0
		for {
			i := strings.Index(text[from:], phrase)
			if i < 0 {
				break
			}
			idx := from + i
			hits = append(hits, hit{idx: idx, end: idx + len(phrase)})
			from = idx + len(phrase)
		}
	}
	if len(hits) == 0 {
		return nil
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].idx < hits[j].idx })

	for _, h := range hits {
		mc := s.window(text, h.idx, h.end)
		if reason := suppress(mc, def); reason != "" {
			zap.L().Debug("filings: match suppressed",
				zap.String("signal", def.ID),
				zap.String("reason", reason),
			)
			continue
		}
		return &model.FilingSignal{
			ID:             def.ID,
			Title:          def.Title,
			Score:          def.Score,
			Severity:       def.Severity,
			Snippet:        s.snippet(mc.Narrow),
			Form:           filing.Form,
			Filed:          filing.Filed,
			DocURL:         filing.DocURL,
			IncludeInScore: def.IncludeInScore,
		}
	}
	return nil
}

func suppress(mc matchContext, def SignalDef) string {
	for _, pred := range suppressionChain {
		if reason := pred(mc, def); reason != "" {
			return reason
		}
	}
	return ""
}

// window extracts the narrow and wide context around a match.
func (s *Scanner) window(text string, start, end int) matchContext {
	return matchContext{
		Before: text[clampIdx(start-s.cfg.NarrowWindow, len(text)):start],
		Narrow: text[clampIdx(start-s.cfg.NarrowWindow, len(text)):clampIdx(end+s.cfg.NarrowWindow, len(text))],
		Wide:   text[clampIdx(start-s.cfg.WideWindow, len(text)):clampIdx(end+s.cfg.WideWindow, len(text))],
	}
}

func (s *Scanner) snippet(narrow string) string {
	snip := strings.TrimSpace(narrow)
	if len(snip) <= s.cfg.SnippetLen {
		return snip
	}
	// Back off to a rune boundary so the cut never emits invalid UTF-8.
	cut := s.cfg.SnippetLen
	for cut > 0 && !utf8.RuneStart(snip[cut]) {
		cut--
	}
	return snip[:cut]
}

// resolveConflicts drops each positive counterpart whose negative signal
// is also present, then returns the surviving set.
func resolveConflicts(best map[string]model.FilingSignal) []model.FilingSignal {
	for neg, pos := range conflictPairs {
		if _, hasNeg := best[neg]; hasNeg {
			if _, hasPos := best[pos]; hasPos {
				zap.L().Debug("filings: dropping positive counterpart",
					zap.String("negative", neg),
					zap.String("positive", pos),
				)
				delete(best, pos)
			}
		}
	}

	out := make([]model.FilingSignal, 0, len(best))
	for _, sig := range best {
		out = append(out, sig)
	}
	return out
}

// sortSignals orders by score ascending (worst first), then ID, so
// identical inputs always produce identical output.
func sortSignals(signals []model.FilingSignal) {
	sort.Slice(signals, func(i, j int) bool {
		if signals[i].Score != signals[j].Score {
			return signals[i].Score < signals[j].Score
		}
		return signals[i].ID < signals[j].ID
	})
}

func clampIdx(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
