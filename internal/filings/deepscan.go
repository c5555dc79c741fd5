package filings

import (
	"fmt"
	"strings"
	"time"

	"github.com/oakline-research/rating-cli/internal/model"
)

// insiderLookback bounds which transactions count toward the insider
// balance signal.
const insiderLookback = 180 * 24 * time.Hour

// amendmentSignal flags a history of amended periodic filings within the
// lookback window. Amendments to 10-K/10-Q reports correlate with
// reporting-quality problems even when each amendment is individually
// benign.
func amendmentSignal(all []model.Filing, now time.Time, years int) *model.FilingSignal {
	if years <= 0 {
		years = 3
	}
	cutoff := now.AddDate(-years, 0, 0)

	var count int
	var latest model.Filing
	for _, f := range all {
		form := strings.ToUpper(f.Form)
		if form != "10-K/A" && form != "10-Q/A" {
			continue
		}
		if f.Filed.Before(cutoff) {
			continue
		}
		count++
		if f.Filed.After(latest.Filed) {
			latest = f
		}
	}
	if count == 0 {
		return nil
	}

	return &model.FilingSignal{
		ID:             "amended_filings",
		Title:          "Amended filing history",
		Score:          -3,
		Severity:       model.SeverityMedium,
		Snippet:        fmt.Sprintf("%d amended periodic filing(s) in the last %d years", count, years),
		Form:           latest.Form,
		Filed:          latest.Filed,
		DocURL:         latest.DocURL,
		IncludeInScore: true,
	}
}

// insiderSignal derives a coarse buy/sell balance from recent insider
// transaction filings. The scale is small and deliberately weighted
// toward buying: insiders sell for many reasons but buy for one.
func insiderSignal(txns []model.InsiderTransaction, now time.Time) *model.FilingSignal {
	cutoff := now.Add(-insiderLookback)

	buys, sells := 0, 0
	for _, t := range txns {
		if t.Date.Before(cutoff) {
			continue
		}
		switch strings.ToUpper(t.Code) {
		case "P":
			buys++
		case "S":
			sells++
		}
	}
	if buys == 0 && sells == 0 {
		return nil
	}

	var score int
	switch {
	case buys >= 3 && sells == 0:
		score = 4
	case buys > sells:
		score = 2
	case sells >= 3 && sells >= 3*buys:
		score = -3
	case sells > buys:
		score = -1
	default:
		score = 0
	}
	if score == 0 {
		return nil
	}

	severity := model.SeverityLow
	if score < 0 {
		severity = model.SeverityMedium
	}

	return &model.FilingSignal{
		ID:             "insider_activity",
		Title:          "Insider trading pattern",
		Score:          score,
		Severity:       severity,
		Snippet:        fmt.Sprintf("%d insider purchase(s), %d sale(s) in the last 6 months", buys, sells),
		IncludeInScore: true,
	}
}
