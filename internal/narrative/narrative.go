// Package narrative renders a short human-readable summary of a rating.
// Sentence templates are chosen deterministically: a hash of the ticker
// plus a pool key picks within each pool, so repeated builds for the same
// ticker read the same while different tickers get stable variety.
package narrative

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/oakline-research/rating-cli/internal/fundamentals"
	"github.com/oakline-research/rating-cli/internal/model"
	"github.com/oakline-research/rating-cli/internal/rating"
)

// Regime labels the dominant growth/margin posture used to key the
// middle sentence pool.
type Regime string

const (
	RegimeHypergrowth Regime = "hypergrowth"
	RegimeGrower      Regime = "grower"
	RegimeCompounder  Regime = "compounder"
	RegimeBurner      Regime = "burner"
	RegimeDecliner    Regime = "decliner"
	RegimeUnclear     Regime = "unclear"
)

// ClassifyRegime picks the dominant posture from the financial state.
func ClassifyRegime(s *fundamentals.State) Regime {
	if s == nil {
		return RegimeUnclear
	}
	growth := s.RevenueGrowthYoY
	fcf := s.FCFMargin

	switch {
	case model.IsFiniteValue(growth) && *growth >= 40:
		return RegimeHypergrowth
	case model.IsFiniteValue(growth) && *growth < -5:
		return RegimeDecliner
	case model.IsFiniteValue(fcf) && *fcf < -10:
		return RegimeBurner
	case model.IsFiniteValue(growth) && *growth >= 10:
		return RegimeGrower
	case model.IsFiniteValue(fcf) && *fcf >= 10:
		return RegimeCompounder
	default:
		return RegimeUnclear
	}
}

// signalBalance buckets the scored filing signals into negative, neutral,
// or positive.
func signalBalance(signals []model.FilingSignal) string {
	total := 0
	for _, sig := range signals {
		if sig.IncludeInScore {
			total += sig.Score
		}
	}
	switch {
	case total <= -5:
		return "negative"
	case total >= 3:
		return "positive"
	default:
		return "neutral"
	}
}

var tierPools = map[string][]string{
	rating.TierElite: {
		"%s screens near the top of the catalog on both growth and quality.",
		"%s clears almost every rule in the book with room to spare.",
		"Few names score as cleanly across the board as %s does here.",
	},
	rating.TierStrong: {
		"%s rates strongly, with most rules breaking in its favor.",
		"The weight of the evidence on %s is clearly positive.",
		"%s comes through the rule catalog in good shape.",
	},
	rating.TierSolid: {
		"%s rates as solid: more going right than wrong, with some soft spots.",
		"The picture on %s is constructive but not without blemishes.",
		"%s holds up to the catalog reasonably well.",
	},
	rating.TierMixed: {
		"%s is a mixed bag: real strengths offset by real weaknesses.",
		"The rules split roughly evenly on %s.",
		"%s shows as much to like as to worry about.",
	},
	rating.TierWeak: {
		"%s rates weakly, with penalties outweighing the positives.",
		"Most of the catalog breaks against %s at the moment.",
		"The score on %s reflects more deterioration than strength.",
	},
	rating.TierDanger: {
		"%s lands in the danger band, with broad-based penalties.",
		"Very little in the catalog works in %s's favor right now.",
		"%s fails most of the rules that matter.",
	},
}

var regimePools = map[Regime][]string{
	RegimeHypergrowth: {
		"Top-line growth is running hot and the engine treats the spend as investment rather than failure.",
		"Revenue is compounding fast enough that heavy reinvestment gets the benefit of the doubt.",
	},
	RegimeGrower: {
		"Growth is steady rather than spectacular, which keeps the margin rules honest.",
		"The top line is moving in the right direction at a sustainable clip.",
	},
	RegimeCompounder: {
		"Growth is modest but the business throws off cash, which carries the score.",
		"This is a cash-generation story more than a growth story.",
	},
	RegimeBurner: {
		"Cash burn is the dominant feature of the financials and the runway rule carries real weight.",
		"The burn rate does most of the damage to the score here.",
	},
	RegimeDecliner: {
		"A shrinking top line drags nearly every growth-linked rule into penalty territory.",
		"Revenue contraction sets the tone for the rest of the scorecard.",
	},
	RegimeUnclear: {
		"The reporting history is too thin for a clear growth or margin read.",
		"Several core metrics are unavailable, so the posture is hard to call.",
	},
}

var signalPools = map[string][]string{
	"negative": {
		"Filing language adds meaningful red flags on top of the numbers.",
		"The disclosure scan turned up warnings that weigh on the score.",
	},
	"neutral": {
		"Nothing in the recent filings moves the score much either way.",
		"The disclosure scan was quiet.",
	},
	"positive": {
		"Recent filings add constructive signals beyond the financials.",
		"The disclosure scan found more good news than bad.",
	},
}

// pick selects a template from pool by hashing ticker+key. FNV keeps the
// choice stable across processes without seeding anything.
func pick(pool []string, ticker, key string) string {
	if len(pool) == 0 {
		return ""
	}
	h := fnv.New32a()
	h.Write([]byte(strings.ToUpper(ticker)))
	h.Write([]byte{'|'})
	h.Write([]byte(key))
	return pool[int(h.Sum32())%len(pool)]
}

// Synthesize builds the three-sentence narrative from a rating result and
// the state it was computed from. Safe on a nil state.
func Synthesize(res *model.RatingResult, s *fundamentals.State) string {
	if res == nil {
		return ""
	}
	ticker := strings.ToUpper(res.Ticker)

	lead := pick(tierPools[res.Tier], ticker, "tier:"+res.Tier)
	if lead == "" {
		lead = "%s has no tier narrative."
	}
	parts := []string{
		fmt.Sprintf(lead, ticker),
		pick(regimePools[ClassifyRegime(s)], ticker, "regime"),
	}
	if len(res.Signals) > 0 {
		parts = append(parts, pick(signalPools[signalBalance(res.Signals)], ticker, "signals"))
	}
	if len(res.OverrideNotes) > 0 {
		parts = append(parts, "Note: "+res.OverrideNotes[0]+".")
	}

	return strings.Join(parts, " ")
}
