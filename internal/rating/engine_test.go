package rating

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakline-research/rating-cli/internal/config"
	"github.com/oakline-research/rating-cli/internal/fundamentals"
	"github.com/oakline-research/rating-cli/internal/model"
)

func testRatingConfig() config.RatingConfig {
	return config.RatingConfig{
		RawMin: -60, RawMax: 80,
		TierElite: 90, TierStrong: 75, TierSolid: 60, TierMixed: 45, TierWeak: 30,
		GrowthRampFloor: 20, GrowthRampSpan: 60,
		BurnRampFloor: 5, BurnRampSpan: 35,
		CapexRampFloor: 10, CapexRampSpan: 50,
		HypergrowthIntensity: 0.6, HypergrowthFloor: -4,
		MidCapAssets: 1e9, MidCapMarketCap: 2e9,
		GrowthBonus30: 8, GrowthBonus50: 10, GrowthBonus80: 12,
		EventDropPct: 30, EventWindowDays: 5, EventCeiling: 45, SmallCapLimit: 2e9,
		SplitShareRatio: 2.0, SplitProductTol: 0.15, SplitIncomeTol: 0.3,
	}
}

func findReason(t *testing.T, res *model.RatingResult, name string) model.RuleOutcome {
	t.Helper()
	for _, r := range res.Reasons {
		if r.Name == name {
			return r
		}
	}
	t.Fatalf("no reason named %q", name)
	return model.RuleOutcome{}
}

func TestRateNilState(t *testing.T) {
	assert.Nil(t, Rate(nil, nil, testRatingConfig()))
}

func TestDetectShareActionLikelySplit(t *testing.T) {
	// Shares 100 -> 210, EPS 1.00 -> 0.48: the product 2.1*0.48 = 1.008
	// sits inside the tolerance, and income is roughly flat.
	s := &fundamentals.State{
		ShareRatioYoY:  model.Float(2.1),
		EPSRatioYoY:    model.Float(0.48),
		IncomeRatioYoY: model.Float(1.008),
	}
	assert.Equal(t, ShareActionLikelySplit, DetectShareAction(s, testRatingConfig()))
}

func TestDetectShareActionRealDilution(t *testing.T) {
	// Shares doubled but EPS held up: income doubled too, so the product
	// is far from 1. That is issuance into growth, not a split.
	s := &fundamentals.State{
		ShareRatioYoY:  model.Float(2.1),
		EPSRatioYoY:    model.Float(0.95),
		IncomeRatioYoY: model.Float(2.0),
	}
	assert.Equal(t, ShareActionNone, DetectShareAction(s, testRatingConfig()))
}

func TestDetectShareActionReverseSplit(t *testing.T) {
	s := &fundamentals.State{ShareRatioYoY: model.Float(0.1)}
	assert.Equal(t, ShareActionLikelyReverseSplit, DetectShareAction(s, testRatingConfig()))
}

func TestRateSplitSkipsDilutionRule(t *testing.T) {
	s := &fundamentals.State{
		Profile:        model.Profile{Ticker: "SPLT", Sector: "Software"},
		ShareChangePct: model.Float(110),
		ShareRatioYoY:  model.Float(2.1),
		EPSRatioYoY:    model.Float(0.48),
		IncomeRatioYoY: model.Float(1.008),
	}
	res := Rate(s, nil, testRatingConfig())
	require.NotNil(t, res)

	dil := findReason(t, res, "dilution")
	assert.True(t, dil.NotApplicable)
	assert.Zero(t, dil.Score)
	require.NotEmpty(t, res.OverrideNotes)
	assert.Contains(t, res.OverrideNotes[0], "likely split")
}

func TestRateReverseSplitForcesPenalty(t *testing.T) {
	s := &fundamentals.State{
		Profile:        model.Profile{Ticker: "RVSP"},
		ShareChangePct: model.Float(-90),
		ShareRatioYoY:  model.Float(0.1),
	}
	res := Rate(s, nil, testRatingConfig())
	require.NotNil(t, res)

	dil := findReason(t, res, "dilution")
	assert.False(t, dil.NotApplicable)
	assert.Equal(t, -6.0, dil.Score)
	assert.Contains(t, dil.Message, "reverse split")
}

// hypergrowthState is a mid cap with 55% revenue growth, 60% capex
// intensity, and a -25% FCF margin: intensity lands above the
// hypergrowth threshold.
func hypergrowthState() *fundamentals.State {
	return &fundamentals.State{
		Profile:          model.Profile{Ticker: "GROW", Sector: "Software"},
		RevenueGrowthYoY: model.Float(55),
		OpexGrowthYoY:    model.Float(40),
		FCFMargin:        model.Float(-25),
		CapexIntensity:   model.Float(60),
		MarketCap:        model.Float(3e9),
		GrowthBasis:      "ttm",
	}
}

func TestGrowthIntensityHypergrowth(t *testing.T) {
	got := GrowthIntensity(hypergrowthState(), testRatingConfig())
	assert.InDelta(t, 0.718, got, 0.01)
}

func TestRateSoftensFCFPenaltyForFundedHypergrowth(t *testing.T) {
	cfg := testRatingConfig()
	res := Rate(hypergrowthState(), nil, cfg)
	require.NotNil(t, res)

	fcf := findReason(t, res, "fcf_margin")
	assert.Equal(t, cfg.HypergrowthFloor, fcf.Score, "penalty should be capped at the floor")
	assert.Contains(t, fcf.Message, "softened")

	require.NotEmpty(t, res.OverrideNotes)
	assert.Contains(t, res.OverrideNotes[0], "softening")
}

func TestRateNoSofteningForSmallCapBurner(t *testing.T) {
	s := hypergrowthState()
	s.MarketCap = model.Float(4e8)
	res := Rate(s, nil, testRatingConfig())
	require.NotNil(t, res)

	fcf := findReason(t, res, "fcf_margin")
	assert.Equal(t, -8.0, fcf.Score, "small caps take the full burn penalty")
}

func TestRateSignalScoreContribution(t *testing.T) {
	s := &fundamentals.State{Profile: model.Profile{Ticker: "SIG"}}
	signals := []model.FilingSignal{
		{ID: "going_concern", Score: -12, IncludeInScore: true},
		{ID: "buyback_program", Score: 3, IncludeInScore: true},
		{ID: "shareholder_litigation", Score: -4, IncludeInScore: false},
	}
	res := Rate(s, signals, testRatingConfig())
	require.NotNil(t, res)

	assert.Equal(t, -9, res.SignalScore)
	reason := findReason(t, res, "filing_signals")
	assert.Equal(t, -9.0, reason.Score)
}

func TestRateNormalizedScoreClamped(t *testing.T) {
	cfg := testRatingConfig()

	floor := &fundamentals.State{
		Profile:          model.Profile{Ticker: "BAD"},
		RevenueGrowthYoY: model.Float(-60),
		RevenueCAGR3Y:    model.Float(-30),
		GrossMargin:      model.Float(5),
		OperatingMargin:  model.Float(-80),
		NetMargin:        model.Float(-90),
		FCFMargin:        model.Float(-100),
		OpexGrowthYoY:    model.Float(40),
		ROE:              model.Float(-50),
		ROIC:             model.Float(-40),
		InterestCoverage: model.Float(0.2),
		DebtToEquity:     model.Float(5),
		CurrentRatio:     model.Float(0.3),
		ShareChangePct:   model.Float(60),
		PriceToSales:     model.Float(40),
	}
	signals := []model.FilingSignal{{ID: "going_concern", Score: -12, IncludeInScore: true}}
	res := Rate(floor, signals, cfg)
	require.NotNil(t, res)
	assert.Equal(t, 0.0, res.NormalizedScore)
	assert.Equal(t, TierDanger, res.Tier)

	ceiling := &fundamentals.State{
		Profile:          model.Profile{Ticker: "GOOD"},
		RevenueGrowthYoY: model.Float(45),
		RevenueCAGR3Y:    model.Float(30),
		GrossMargin:      model.Float(80),
		OperatingMargin:  model.Float(35),
		NetMargin:        model.Float(30),
		FCFMargin:        model.Float(25),
		OpexGrowthYoY:    model.Float(10),
		ROE:              model.Float(35),
		ROIC:             model.Float(25),
		DebtToEquity:     model.Float(0.1),
		CurrentRatio:     model.Float(3),
		ShareChangePct:   model.Float(-4),
		PriceToEarnings:  model.Float(10),
		MarketCap:        model.Float(5e10),
	}
	pos := []model.FilingSignal{
		{ID: "fda_approval", Score: 8, IncludeInScore: true},
		{ID: "major_contract", Score: 5, IncludeInScore: true},
	}
	res = Rate(ceiling, pos, cfg)
	require.NotNil(t, res)
	assert.Equal(t, 100.0, res.NormalizedScore)
	assert.Equal(t, TierElite, res.Tier)
}

func TestTierMonotoneInScore(t *testing.T) {
	cfg := testRatingConfig()
	rank := map[string]int{
		TierDanger: 0, TierWeak: 1, TierMixed: 2, TierSolid: 3, TierStrong: 4, TierElite: 5,
	}
	prev := -1
	for n := 0.0; n <= 100; n += 0.5 {
		r := rank[tierFor(n, cfg)]
		require.GreaterOrEqual(t, r, prev, "tier regressed at %.1f", n)
		prev = r
	}
}

func TestRateEventRiskCapsSmallCapBiotech(t *testing.T) {
	cfg := testRatingConfig()
	s := &fundamentals.State{
		Profile:          model.Profile{Ticker: "BIO", Sector: "Biotechnology"},
		RevenueGrowthYoY: model.Float(45),
		RevenueCAGR3Y:    model.Float(30),
		GrossMargin:      model.Float(80),
		OperatingMargin:  model.Float(30),
		NetMargin:        model.Float(25),
		FCFMargin:        model.Float(20),
		OpexGrowthYoY:    model.Float(10),
		ROE:              model.Float(25),
		ROIC:             model.Float(20),
		CurrentRatio:     model.Float(3),
		DebtToEquity:     model.Float(0.1),
		ShareChangePct:   model.Float(0),
		PriceToEarnings:  model.Float(15),
		MarketCap:        model.Float(9e8),
		FiveDayReturn:    model.Float(-42),
	}
	res := Rate(s, nil, cfg)
	require.NotNil(t, res)
	assert.Equal(t, cfg.EventCeiling, res.NormalizedScore)
	assert.Equal(t, TierMixed, res.Tier)
	require.NotEmpty(t, res.OverrideNotes)
	assert.Contains(t, res.OverrideNotes[0], "capped")

	// Same drawdown outside biotech is not capped.
	s.Profile.Sector = "Software"
	uncapped := Rate(s, nil, cfg)
	assert.Greater(t, uncapped.NormalizedScore, cfg.EventCeiling)
}

func TestRateCompletenessCountsMissingRules(t *testing.T) {
	s := &fundamentals.State{
		Profile:          model.Profile{Ticker: "THIN"},
		RevenueGrowthYoY: model.Float(12),
		OpexGrowthYoY:    model.Float(8),
		GrossMargin:      model.Float(50),
	}
	res := Rate(s, nil, testRatingConfig())
	require.NotNil(t, res)

	assert.Equal(t, len(Catalog()), res.Completeness.Total)
	assert.Greater(t, res.Completeness.Missing, 0)
	assert.NotEmpty(t, res.MissingNotes)
	assert.Less(t, res.Completeness.Pct, 100.0)
}

func TestGrowthBonusCappedByProfitPenalties(t *testing.T) {
	cfg := testRatingConfig()
	s := &fundamentals.State{
		RevenueGrowthYoY: model.Float(85),
		FCFMargin:        model.Float(-6),
	}
	// Intensity well above zero, band bonus would be 12*intensity, but
	// the only profitability/cashflow penalty in play is -4.
	bonus := growthBonus(s, 1.0, 4, cfg)
	assert.Equal(t, 2.0, bonus)
}

func TestClassifySector(t *testing.T) {
	cases := []struct {
		in   string
		want Bucket
	}{
		{"Biotechnology", BucketBiotech},
		{"Pharmaceutical Preparations", BucketBiotech},
		{"Prepackaged Software", BucketTech},
		{"Semiconductors & Related Devices", BucketTech},
		{"State Commercial Banks", BucketFinancial},
		{"Crude Petroleum & Natural Gas", BucketEnergy},
		{"Retail-Catalog & Mail-Order Houses", BucketConsumer},
		{"Aerospace & Defense", BucketIndustrial},
		{"", BucketOther},
		{"Blank Checks", BucketOther},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ClassifySector(tc.in), "sector %q", tc.in)
	}
}

func TestInterestCoverageNotApplicableWithoutDebtService(t *testing.T) {
	s := &fundamentals.State{
		Profile: model.Profile{Ticker: "NODEBT"},
		TTM:     &model.TtmSnapshot{Basis: model.BasisTTM},
	}
	for _, rule := range Catalog() {
		if rule.Name != "interest_coverage" {
			continue
		}
		out := rule.Evaluate(s)
		assert.True(t, out.NotApplicable)
		return
	}
	t.Fatal("interest_coverage rule missing from catalog")
}

func TestCashRunwayNotApplicableWhenCashGenerative(t *testing.T) {
	s := &fundamentals.State{
		TTM: &model.TtmSnapshot{Basis: model.BasisTTM, FreeCashFlow: model.Float(50)},
	}
	for _, rule := range Catalog() {
		if rule.Name != "cash_runway" {
			continue
		}
		out := rule.Evaluate(s)
		assert.True(t, out.NotApplicable)
		return
	}
	t.Fatal("cash_runway rule missing from catalog")
}
