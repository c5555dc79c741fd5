package narrative

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakline-research/rating-cli/internal/fundamentals"
	"github.com/oakline-research/rating-cli/internal/model"
	"github.com/oakline-research/rating-cli/internal/rating"
)

func TestSynthesizeDeterministic(t *testing.T) {
	res := &model.RatingResult{Ticker: "ACME", Tier: rating.TierSolid}
	s := &fundamentals.State{RevenueGrowthYoY: model.Float(18)}

	first := Synthesize(res, s)
	require.NotEmpty(t, first)
	assert.Contains(t, first, "ACME")
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, Synthesize(res, s))
	}
}

func TestSynthesizeVariesByTicker(t *testing.T) {
	s := &fundamentals.State{RevenueGrowthYoY: model.Float(18)}

	tickers := []string{
		"AAAA", "BBBB", "CCCC", "DDDD", "EEEE", "FFFF", "GGGG", "HHHH",
		"IIII", "JJJJ", "KKKK", "LLLL", "MMMM", "NNNN", "OOOO", "PPPP",
	}
	seen := map[string]bool{}
	for _, tk := range tickers {
		out := Synthesize(&model.RatingResult{Ticker: tk, Tier: rating.TierSolid}, s)
		// Strip the ticker itself before comparing template choices.
		seen[strings.ReplaceAll(out, tk, "X")] = true
	}
	assert.Greater(t, len(seen), 1, "template choice should vary across tickers")
}

func TestSynthesizeMentionsSignalBalance(t *testing.T) {
	res := &model.RatingResult{
		Ticker: "WARN",
		Tier:   rating.TierWeak,
		Signals: []model.FilingSignal{
			{ID: "going_concern", Score: -12, IncludeInScore: true},
		},
	}
	out := Synthesize(res, nil)
	found := false
	for _, tmpl := range signalPools["negative"] {
		if strings.Contains(out, tmpl) {
			found = true
		}
	}
	assert.True(t, found, "expected a negative-balance sentence in %q", out)
}

func TestSynthesizeCarriesOverrideNote(t *testing.T) {
	res := &model.RatingResult{
		Ticker:        "SPLT",
		Tier:          rating.TierMixed,
		OverrideNotes: []string{"likely split: share-count jump matches inverse EPS move, dilution rule skipped"},
	}
	out := Synthesize(res, nil)
	assert.Contains(t, out, "likely split")
}

func TestSynthesizeNilInputs(t *testing.T) {
	assert.Empty(t, Synthesize(nil, nil))
	out := Synthesize(&model.RatingResult{Ticker: "THIN", Tier: rating.TierMixed}, nil)
	assert.NotEmpty(t, out)
}

func TestClassifyRegime(t *testing.T) {
	cases := []struct {
		name  string
		state *fundamentals.State
		want  Regime
	}{
		{"nil state", nil, RegimeUnclear},
		{"hypergrowth", &fundamentals.State{RevenueGrowthYoY: model.Float(55)}, RegimeHypergrowth},
		{"decliner", &fundamentals.State{RevenueGrowthYoY: model.Float(-12)}, RegimeDecliner},
		{"burner", &fundamentals.State{RevenueGrowthYoY: model.Float(4), FCFMargin: model.Float(-30)}, RegimeBurner},
		{"grower", &fundamentals.State{RevenueGrowthYoY: model.Float(15), FCFMargin: model.Float(2)}, RegimeGrower},
		{"compounder", &fundamentals.State{RevenueGrowthYoY: model.Float(3), FCFMargin: model.Float(20)}, RegimeCompounder},
		{"unclear", &fundamentals.State{}, RegimeUnclear},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyRegime(tc.state))
		})
	}
}
