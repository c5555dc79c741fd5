package rating

import (
	"fmt"
	"time"

	"github.com/oakline-research/rating-cli/internal/config"
	"github.com/oakline-research/rating-cli/internal/fundamentals"
	"github.com/oakline-research/rating-cli/internal/model"
)

// Tier labels, descending.
const (
	TierElite  = "elite"
	TierStrong = "strong"
	TierSolid  = "solid"
	TierMixed  = "mixed"
	TierWeak   = "weak"
	TierDanger = "danger"
)

// Rate runs the full scoring pipeline: rule evaluation, sector gating,
// lifecycle softening, split handling, filing-signal contribution,
// growth-phase adjustment, the event-risk cap, then normalization and
// tiering. It is a pure function of its inputs; nothing is persisted.
// Returns nil only when the state itself is nil.
func Rate(s *fundamentals.State, signals []model.FilingSignal, cfg config.RatingConfig) *model.RatingResult {
	if s == nil {
		return nil
	}

	res := &model.RatingResult{
		Ticker:  s.Profile.Ticker,
		Signals: signals,
		RatedAt: time.Now().UTC(),
	}

	bucket := ClassifySector(s.Profile.Sector)
	intensity := GrowthIntensity(s, cfg)
	soften := intensity > 0 && MidOrLargeCap(s, cfg)
	action := DetectShareAction(s, cfg)

	catalog := Catalog()
	res.Completeness.Total = len(catalog)

	var raw float64
	var profitPenalty float64

	for _, rule := range catalog {
		out := rule.Evaluate(s)

		if rule.Name == "dilution" {
			out = adjustDilution(out, action, res)
		}
		if soften && rule.Softened() && out.Score < 0 {
			out = softenPenalty(out, intensity, cfg, res)
		}

		switch {
		case out.Missing:
			res.Completeness.Missing++
			res.MissingNotes = append(res.MissingNotes, fmt.Sprintf("%s: %s", rule.Name, out.Message))
		case out.NotApplicable:
			res.Completeness.NotApplicable++
		default:
			res.Completeness.Applicable++
			out.Score *= rule.Weight
			raw += out.Score
			if out.Score < 0 && (rule.Category == CategoryProfitability || rule.Category == CategoryCashFlow) {
				profitPenalty += -out.Score
			}
		}

		res.Reasons = append(res.Reasons, model.RuleOutcome{
			Name:          rule.Name,
			Score:         out.Score,
			Message:       out.Message,
			Missing:       out.Missing,
			NotApplicable: out.NotApplicable,
			Basis:         out.Basis,
		})
	}

	if evaluable := res.Completeness.Total - res.Completeness.NotApplicable; evaluable > 0 {
		res.Completeness.Pct = 100 * float64(res.Completeness.Applicable) / float64(evaluable)
	}

	// Filing signals contribute directly to the raw score, surfaced as one
	// labeled reason so the breakdown stays complete.
	res.SignalScore = signalScore(signals)
	if len(signals) > 0 {
		raw += float64(res.SignalScore)
		res.Reasons = append(res.Reasons, model.RuleOutcome{
			Name:    "filing_signals",
			Score:   float64(res.SignalScore),
			Message: fmt.Sprintf("%d filing signal(s) contributing %+d", len(signals), res.SignalScore),
			Basis:   "filing scan",
		})
	}

	if bonus := growthBonus(s, intensity, profitPenalty, cfg); bonus > 0 {
		raw += bonus
		res.Reasons = append(res.Reasons, model.RuleOutcome{
			Name:    "growth_phase",
			Score:   bonus,
			Message: fmt.Sprintf("growth-phase adjustment at intensity %.2f", intensity),
			Basis:   s.GrowthBasis,
		})
	}

	res.RawScore = raw
	res.NormalizedScore = normalize(raw, cfg)

	if bucket == BucketBiotech && eventRiskTriggered(s, cfg) && res.NormalizedScore > cfg.EventCeiling {
		res.NormalizedScore = cfg.EventCeiling
		res.OverrideNotes = append(res.OverrideNotes, fmt.Sprintf(
			"score capped at %.0f: small-cap biotech down %.0f%%+ over %d sessions",
			cfg.EventCeiling, cfg.EventDropPct, cfg.EventWindowDays))
	}

	res.Tier = tierFor(res.NormalizedScore, cfg)
	return res
}

// adjustDilution reconciles the dilution rule with the split detector. A
// likely forward split is a paper change, not dilution, so the rule is
// marked not-applicable. A likely reverse split forces the worst penalty
// regardless of the banded score.
func adjustDilution(out Outcome, action ShareAction, res *model.RatingResult) Outcome {
	switch action {
	case ShareActionLikelySplit:
		res.OverrideNotes = append(res.OverrideNotes, "likely split: share-count jump matches inverse EPS move, dilution rule skipped")
		return notApplicable("likely split, share-count change not treated as dilution")
	case ShareActionLikelyReverseSplit:
		res.OverrideNotes = append(res.OverrideNotes, "likely reverse split: treated as a distress marker")
		out.Score = -6
		out.Message = "likely reverse split"
		return out
	default:
		return out
	}
}

// softenPenalty lifts a growth-stage company's penalty toward the
// configured floor, in proportion to intensity. At or above the
// hypergrowth threshold the penalty is hard-capped at the floor.
func softenPenalty(out Outcome, intensity float64, cfg config.RatingConfig, res *model.RatingResult) Outcome {
	if out.Score >= cfg.HypergrowthFloor {
		return out
	}
	frac := 1.0
	if cfg.HypergrowthIntensity > 0 {
		frac = clamp01(intensity / cfg.HypergrowthIntensity)
	}
	softened := out.Score + (cfg.HypergrowthFloor-out.Score)*frac
	if softened == out.Score {
		return out
	}
	res.OverrideNotes = append(res.OverrideNotes, fmt.Sprintf(
		"growth-stage softening: %+.1f relaxed to %+.1f (intensity %.2f)", out.Score, softened, intensity))
	out.Score = softened
	out.Message += " (growth-stage softened)"
	return out
}

func signalScore(signals []model.FilingSignal) int {
	total := 0
	for _, sig := range signals {
		if sig.IncludeInScore {
			total += sig.Score
		}
	}
	return total
}

// growthBonus rewards strong top-line growth in proportion to intensity,
// capped at half of the profitability penalties it offsets so growth can
// cushion losses but never erase them.
func growthBonus(s *fundamentals.State, intensity, profitPenalty float64, cfg config.RatingConfig) float64 {
	if !model.IsFiniteValue(s.RevenueGrowthYoY) || intensity <= 0 {
		return 0
	}
	var band float64
	switch g := *s.RevenueGrowthYoY; {
	case g >= 80:
		band = cfg.GrowthBonus80
	case g >= 50:
		band = cfg.GrowthBonus50
	case g >= 30:
		band = cfg.GrowthBonus30
	default:
		return 0
	}
	bonus := band * intensity
	if limit := profitPenalty / 2; bonus > limit {
		bonus = limit
	}
	return bonus
}

// eventRiskTriggered reports a sharp recent drawdown in a small cap, the
// pattern of a binary clinical or regulatory event going wrong.
func eventRiskTriggered(s *fundamentals.State, cfg config.RatingConfig) bool {
	if !model.IsFiniteValue(s.MarketCap) || *s.MarketCap >= cfg.SmallCapLimit {
		return false
	}
	return model.IsFiniteValue(s.FiveDayReturn) && *s.FiveDayReturn <= -cfg.EventDropPct
}

// normalize maps raw linearly from [RawMin,RawMax] onto [0,100], clamped.
func normalize(raw float64, cfg config.RatingConfig) float64 {
	span := cfg.RawMax - cfg.RawMin
	if span <= 0 {
		return 0
	}
	n := (raw - cfg.RawMin) / span * 100
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

func tierFor(normalized float64, cfg config.RatingConfig) string {
	switch {
	case normalized >= cfg.TierElite:
		return TierElite
	case normalized >= cfg.TierStrong:
		return TierStrong
	case normalized >= cfg.TierSolid:
		return TierSolid
	case normalized >= cfg.TierMixed:
		return TierMixed
	case normalized >= cfg.TierWeak:
		return TierWeak
	default:
		return TierDanger
	}
}
