package rating

import (
	"github.com/oakline-research/rating-cli/internal/config"
	"github.com/oakline-research/rating-cli/internal/fundamentals"
	"github.com/oakline-research/rating-cli/internal/model"
)

// GrowthIntensity is the continuous [0,1] growth-stage score: the mean of
// three clamped ramps over revenue growth, cash burn, and capex intensity.
// Continuous by design so that 39.5% and 40% growth land next to each
// other instead of across a cliff.
func GrowthIntensity(s *fundamentals.State, cfg config.RatingConfig) float64 {
	ramps := []float64{
		ramp(s.RevenueGrowthYoY, cfg.GrowthRampFloor, cfg.GrowthRampSpan),
		burnRamp(s.FCFMargin, cfg.BurnRampFloor, cfg.BurnRampSpan),
		ramp(s.CapexIntensity, cfg.CapexRampFloor, cfg.CapexRampSpan),
	}

	sum := 0.0
	for _, r := range ramps {
		sum += r
	}
	return sum / float64(len(ramps))
}

// ramp maps v onto [0,1]: 0 at floor, 1 at floor+span. Missing input
// contributes zero intensity.
func ramp(v *float64, floor, span float64) float64 {
	if !model.IsFiniteValue(v) || span <= 0 {
		return 0
	}
	return clamp01((*v - floor) / span)
}

// burnRamp measures negative-FCF-margin intensity: a -25% FCF margin is a
// 25-point burn.
func burnRamp(fcfMargin *float64, floor, span float64) float64 {
	if !model.IsFiniteValue(fcfMargin) || *fcfMargin >= 0 {
		return 0
	}
	burn := -*fcfMargin
	return clamp01((burn - floor) / span)
}

// MidOrLargeCap gates lifecycle softening: small companies burning cash
// are distressed until proven otherwise, scaled ones get the benefit of
// the doubt.
func MidOrLargeCap(s *fundamentals.State, cfg config.RatingConfig) bool {
	if assets := s.TotalAssets(); model.IsFiniteValue(assets) && *assets >= cfg.MidCapAssets {
		return true
	}
	return model.IsFiniteValue(s.MarketCap) && *s.MarketCap >= cfg.MidCapMarketCap
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
