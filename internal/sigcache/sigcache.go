// Package sigcache persists filing-signal scan results per ticker, with a
// TTL and a scanner-version stamp that invalidates entries when the phrase
// catalog changes. The cache is a best-effort optimization:
// last-writer-wins, no transactional guarantee beyond atomic whole-file
// replacement.
package sigcache

import (
	"context"
	"time"

	"github.com/oakline-research/rating-cli/internal/model"
)

// Meta describes how a cached scan was produced.
type Meta struct {
	ScanDepth   int       `json:"scan_depth"`
	FilingsSeen int       `json:"filings_seen"`
	LatestFiled time.Time `json:"latest_filed"`
	DeepScan    bool      `json:"deep_scan"`
}

// Entry is the persisted cache record for one ticker. It serializes as a
// single JSON document.
type Entry struct {
	Ticker         string                  `json:"ticker"`
	FilingSignals  []model.FilingSignal    `json:"filingSignals"`
	Meta           Meta                    `json:"filingSignalsMeta"`
	CachedAt       time.Time               `json:"filingSignalsCachedAt"`
	ScannerVersion string                  `json:"filingSignalsScannerVersion"`
	Periods        []model.FinancialPeriod `json:"periods,omitempty"`
}

// Expired reports whether the entry is older than ttl.
func (e *Entry) Expired(ttl time.Duration, now time.Time) bool {
	return now.Sub(e.CachedAt) > ttl
}

// Usable reports whether a cached entry can satisfy a scan request: the
// scanner version must match, the cached depth must cover the requested
// depth, a deep request needs a deep-scanned entry, and the entry must
// either be within TTL or still reflect the latest known filing.
func (e *Entry) Usable(version string, depth int, deep bool, ttl time.Duration, latestFiled time.Time, now time.Time) bool {
	if e.ScannerVersion != version {
		return false
	}
	if e.Meta.ScanDepth < depth {
		return false
	}
	if deep && !e.Meta.DeepScan {
		return false
	}
	if !e.Expired(ttl, now) {
		return true
	}
	return !latestFiled.IsZero() && !e.Meta.LatestFiled.Before(latestFiled)
}

// Cache stores scan entries keyed by ticker. Get returns (nil, nil) when
// no entry exists.
type Cache interface {
	Get(ctx context.Context, ticker string) (*Entry, error)
	Put(ctx context.Context, entry *Entry) error
	Purge(ctx context.Context, ticker string) error
}
