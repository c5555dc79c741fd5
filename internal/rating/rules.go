package rating

import (
	"fmt"

	"github.com/oakline-research/rating-cli/internal/fundamentals"
	"github.com/oakline-research/rating-cli/internal/model"
)

// Category groups rules for the engine's adjustment passes.
type Category string

const (
	CategoryGrowth        Category = "growth"
	CategoryMargins       Category = "margins"
	CategoryProfitability Category = "profitability"
	CategoryCashFlow      Category = "cashflow"
	CategoryLeverage      Category = "leverage"
	CategoryLiquidity     Category = "liquidity"
	CategoryDilution      Category = "dilution"
	CategoryValuation     Category = "valuation"
)

// Outcome is the result of evaluating one rule.
type Outcome struct {
	Score         float64
	Message       string
	Missing       bool
	NotApplicable bool
	Basis         string
}

// Rule is one entry in the static scoring catalog: a name, a weight, and
// a pure evaluation function over the financial state.
type Rule struct {
	Name     string
	Weight   float64
	Category Category
	Evaluate func(s *fundamentals.State) Outcome
}

// Softened reports whether lifecycle softening applies to this rule.
func (r Rule) Softened() bool {
	return r.Name == "fcf_margin" || r.Name == "operating_leverage"
}

func missing(what string) Outcome {
	return Outcome{Missing: true, Message: what + " unavailable"}
}

func notApplicable(why string) Outcome {
	return Outcome{NotApplicable: true, Message: why}
}

// Catalog returns the ordered rule catalog. The slice is rebuilt per call;
// nothing mutates it at runtime.
func Catalog() []Rule {
	return []Rule{
		{
			Name: "revenue_growth", Weight: 1, Category: CategoryGrowth,
			Evaluate: func(s *fundamentals.State) Outcome {
				g := s.RevenueGrowthYoY
				if !model.IsFiniteValue(g) {
					return missing("year-over-year revenue comparison")
				}
				var score float64
				switch {
				case *g >= 40:
					score = 10
				case *g >= 25:
					score = 8
				case *g >= 10:
					score = 5
				case *g >= 0:
					score = 1
				case *g >= -10:
					score = -4
				default:
					score = -8
				}
				return Outcome{
					Score:   score,
					Message: fmt.Sprintf("revenue %+.1f%% year over year", *g),
					Basis:   s.GrowthBasis,
				}
			},
		},
		{
			Name: "revenue_trajectory", Weight: 1, Category: CategoryGrowth,
			Evaluate: func(s *fundamentals.State) Outcome {
				c := s.RevenueCAGR3Y
				if !model.IsFiniteValue(c) {
					return missing("3-year revenue CAGR")
				}
				var score float64
				switch {
				case *c >= 20:
					score = 5
				case *c >= 10:
					score = 3
				case *c >= 0:
					score = 1
				default:
					score = -3
				}
				return Outcome{
					Score:   score,
					Message: fmt.Sprintf("3-year revenue CAGR %+.1f%%", *c),
					Basis:   "annual",
				}
			},
		},
		{
			Name: "gross_margin", Weight: 1, Category: CategoryMargins,
			Evaluate: func(s *fundamentals.State) Outcome {
				if ClassifySector(s.Profile.Sector) == BucketFinancial {
					return notApplicable("gross margin is not meaningful for financials")
				}
				m := s.GrossMargin
				if !model.IsFiniteValue(m) {
					return missing("gross margin")
				}
				var score float64
				switch {
				case *m >= 60:
					score = 6
				case *m >= 40:
					score = 4
				case *m >= 25:
					score = 1
				case *m >= 10:
					score = -2
				default:
					score = -4
				}
				return Outcome{
					Score:   score,
					Message: fmt.Sprintf("gross margin %.1f%%", *m),
					Basis:   ttmBasis(s),
				}
			},
		},
		{
			Name: "operating_margin", Weight: 1, Category: CategoryProfitability,
			Evaluate: func(s *fundamentals.State) Outcome {
				m := s.OperatingMargin
				if !model.IsFiniteValue(m) {
					return missing("operating margin")
				}
				var score float64
				switch {
				case *m >= 25:
					score = 6
				case *m >= 15:
					score = 4
				case *m >= 5:
					score = 2
				case *m >= 0:
					score = 0
				case *m >= -15:
					score = -4
				default:
					score = -7
				}
				return Outcome{
					Score:   score,
					Message: fmt.Sprintf("operating margin %.1f%%", *m),
					Basis:   ttmBasis(s),
				}
			},
		},
		{
			Name: "net_margin", Weight: 1, Category: CategoryProfitability,
			Evaluate: func(s *fundamentals.State) Outcome {
				m := s.NetMargin
				if !model.IsFiniteValue(m) {
					return missing("net margin")
				}
				var score float64
				switch {
				case *m >= 20:
					score = 5
				case *m >= 10:
					score = 3
				case *m >= 0:
					score = 1
				case *m >= -15:
					score = -3
				default:
					score = -6
				}
				return Outcome{
					Score:   score,
					Message: fmt.Sprintf("net margin %.1f%%", *m),
					Basis:   ttmBasis(s),
				}
			},
		},
		{
			Name: "fcf_margin", Weight: 1, Category: CategoryCashFlow,
			Evaluate: func(s *fundamentals.State) Outcome {
				m := s.FCFMargin
				if !model.IsFiniteValue(m) {
					return missing("free cash flow margin")
				}
				var score float64
				switch {
				case *m >= 15:
					score = 8
				case *m >= 5:
					score = 4
				case *m >= 0:
					score = 1
				case *m >= -10:
					score = -4
				case *m >= -25:
					score = -8
				default:
					score = -12
				}
				return Outcome{
					Score:   score,
					Message: fmt.Sprintf("FCF margin %.1f%%", *m),
					Basis:   ttmBasis(s),
				}
			},
		},
		{
			Name: "operating_leverage", Weight: 1, Category: CategoryCashFlow,
			Evaluate: func(s *fundamentals.State) Outcome {
				if !model.IsFiniteValue(s.RevenueGrowthYoY) || !model.IsFiniteValue(s.OpexGrowthYoY) {
					return missing("revenue vs. opex growth comparison")
				}
				spread := *s.RevenueGrowthYoY - *s.OpexGrowthYoY
				var score float64
				switch {
				case spread >= 10:
					score = 5
				case spread >= 0:
					score = 2
				case spread >= -10:
					score = -2
				default:
					score = -6
				}
				return Outcome{
					Score:   score,
					Message: fmt.Sprintf("revenue growth leads opex growth by %+.1fpp", spread),
					Basis:   s.GrowthBasis,
				}
			},
		},
		{
			Name: "return_on_equity", Weight: 1, Category: CategoryProfitability,
			Evaluate: func(s *fundamentals.State) Outcome {
				r := s.ROE
				if !model.IsFiniteValue(r) {
					return missing("return on equity")
				}
				var score float64
				switch {
				case *r >= 20:
					score = 6
				case *r >= 10:
					score = 3
				case *r >= 0:
					score = 0
				default:
					score = -5
				}
				return Outcome{
					Score:   score,
					Message: fmt.Sprintf("ROE %.1f%%", *r),
					Basis:   ttmBasis(s),
				}
			},
		},
		{
			Name: "return_on_invested_capital", Weight: 1, Category: CategoryProfitability,
			Evaluate: func(s *fundamentals.State) Outcome {
				r := s.ROIC
				if !model.IsFiniteValue(r) {
					return missing("return on invested capital")
				}
				var score float64
				switch {
				case *r >= 15:
					score = 6
				case *r >= 8:
					score = 3
				case *r >= 0:
					score = 0
				default:
					score = -4
				}
				return Outcome{
					Score:   score,
					Message: fmt.Sprintf("ROIC %.1f%%", *r),
					Basis:   ttmBasis(s),
				}
			},
		},
		{
			Name: "interest_coverage", Weight: 1, Category: CategoryLeverage,
			Evaluate: func(s *fundamentals.State) Outcome {
				c := s.InterestCoverage
				if !model.IsFiniteValue(c) {
					// No interest expense at all reads as an unlevered
					// balance sheet, not missing data.
					if s.TTM != nil && !model.IsFiniteValue(s.TTM.InterestExpense) {
						return notApplicable("no material interest expense")
					}
					return missing("interest coverage")
				}
				var score float64
				switch {
				case *c >= 10:
					score = 4
				case *c >= 4:
					score = 1
				case *c >= 1.5:
					score = -3
				default:
					score = -7
				}
				return Outcome{
					Score:   score,
					Message: fmt.Sprintf("operating income covers interest %.1fx", *c),
					Basis:   ttmBasis(s),
				}
			},
		},
		{
			Name: "debt_to_equity", Weight: 1, Category: CategoryLeverage,
			Evaluate: func(s *fundamentals.State) Outcome {
				if ClassifySector(s.Profile.Sector) == BucketFinancial {
					return notApplicable("balance-sheet leverage is the business model for financials")
				}
				d := s.DebtToEquity
				if !model.IsFiniteValue(d) {
					return missing("debt to equity")
				}
				var score float64
				switch {
				case *d <= 0.3:
					score = 5
				case *d <= 1:
					score = 2
				case *d <= 2:
					score = -2
				default:
					score = -6
				}
				return Outcome{
					Score:   score,
					Message: fmt.Sprintf("debt/equity %.2f", *d),
					Basis:   "latest balance sheet",
				}
			},
		},
		{
			Name: "current_ratio", Weight: 1, Category: CategoryLiquidity,
			Evaluate: func(s *fundamentals.State) Outcome {
				c := s.CurrentRatio
				if !model.IsFiniteValue(c) {
					return missing("current ratio")
				}
				var score float64
				switch {
				case *c >= 2:
					score = 3
				case *c >= 1.2:
					score = 1
				case *c >= 0.8:
					score = -3
				default:
					score = -6
				}
				return Outcome{
					Score:   score,
					Message: fmt.Sprintf("current ratio %.2f", *c),
					Basis:   "latest balance sheet",
				}
			},
		},
		{
			Name: "cash_runway", Weight: 1, Category: CategoryLiquidity,
			Evaluate: func(s *fundamentals.State) Outcome {
				if s.TTM == nil || !model.IsFiniteValue(s.TTM.FreeCashFlow) {
					return missing("free cash flow")
				}
				if *s.TTM.FreeCashFlow >= 0 {
					return notApplicable("cash-generative, runway not a constraint")
				}
				r := s.CashRunwayQtrs
				if !model.IsFiniteValue(r) {
					return missing("cash runway")
				}
				var score float64
				switch {
				case *r >= 8:
					score = 4
				case *r >= 4:
					score = 0
				case *r >= 2:
					score = -6
				default:
					score = -10
				}
				return Outcome{
					Score:   score,
					Message: fmt.Sprintf("%.1f quarters of cash at current burn", *r),
					Basis:   ttmBasis(s),
				}
			},
		},
		{
			Name: "dilution", Weight: 1, Category: CategoryDilution,
			Evaluate: func(s *fundamentals.State) Outcome {
				d := s.ShareChangePct
				if !model.IsFiniteValue(d) {
					return missing("year-over-year share count comparison")
				}
				var score float64
				switch {
				case *d <= -3:
					score = 5
				case *d <= 2.5:
					score = 1
				case *d <= 10:
					score = -3
				case *d <= 25:
					score = -6
				default:
					score = -9
				}
				return Outcome{
					Score:   score,
					Message: fmt.Sprintf("share count %+.1f%% year over year", *d),
					Basis:   "yoy shares",
				}
			},
		},
		{
			Name: "valuation", Weight: 1, Category: CategoryValuation,
			Evaluate: func(s *fundamentals.State) Outcome {
				if model.IsFiniteValue(s.PriceToEarnings) {
					pe := *s.PriceToEarnings
					var score float64
					switch {
					case pe <= 12:
						score = 4
					case pe <= 25:
						score = 2
					case pe <= 50:
						score = 0
					default:
						score = -3
					}
					return Outcome{
						Score:   score,
						Message: fmt.Sprintf("P/E %.1f", pe),
						Basis:   "market cap vs ttm earnings",
					}
				}
				if model.IsFiniteValue(s.PriceToSales) {
					ps := *s.PriceToSales
					var score float64
					switch {
					case ps <= 2:
						score = 3
					case ps <= 6:
						score = 1
					case ps <= 15:
						score = -1
					default:
						score = -4
					}
					return Outcome{
						Score:   score,
						Message: fmt.Sprintf("P/S %.1f (unprofitable, sales basis)", ps),
						Basis:   "market cap vs ttm revenue",
					}
				}
				return missing("market capitalization")
			},
		},
	}
}

func ttmBasis(s *fundamentals.State) string {
	if s.TTM == nil {
		return ""
	}
	return string(s.TTM.Basis)
}
