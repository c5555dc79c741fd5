package rating

import (
	"math"

	"github.com/oakline-research/rating-cli/internal/config"
	"github.com/oakline-research/rating-cli/internal/fundamentals"
	"github.com/oakline-research/rating-cli/internal/model"
)

// ShareAction classifies a structural share-count change.
type ShareAction int

const (
	ShareActionNone ShareAction = iota
	ShareActionLikelySplit
	ShareActionLikelyReverseSplit
)

// DetectShareAction flags a likely stock split: share count at least
// doubled while EPS moved inversely in a matching ratio (share ratio x
// EPS ratio near 1) and net income stayed roughly stable. A large
// negative share change is flagged as a likely reverse split instead.
//
// Only reported quarters feed the ratios here; a quarter derived from an
// annual residual never contributes share-count evidence, since a bad
// residual would fabricate exactly the jump this detector looks for.
func DetectShareAction(s *fundamentals.State, cfg config.RatingConfig) ShareAction {
	if !model.IsFiniteValue(s.ShareRatioYoY) {
		return ShareActionNone
	}
	shareRatio := *s.ShareRatioYoY

	if shareRatio > 0 && shareRatio <= 1/cfg.SplitShareRatio {
		return ShareActionLikelyReverseSplit
	}

	if shareRatio < cfg.SplitShareRatio {
		return ShareActionNone
	}
	if !model.IsFiniteValue(s.EPSRatioYoY) || *s.EPSRatioYoY <= 0 {
		return ShareActionNone
	}

	product := shareRatio * *s.EPSRatioYoY
	if math.Abs(product-1) > cfg.SplitProductTol {
		return ShareActionNone
	}

	if !model.IsFiniteValue(s.IncomeRatioYoY) || math.Abs(*s.IncomeRatioYoY-1) > cfg.SplitIncomeTol {
		return ShareActionNone
	}

	return ShareActionLikelySplit
}
