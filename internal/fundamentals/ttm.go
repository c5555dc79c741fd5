package fundamentals

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/oakline-research/rating-cli/internal/model"
)

const (
	// yearTolerance is the slack allowed when matching a period against a
	// date exactly one year away.
	yearTolerance = 30 * 24 * time.Hour
	// annualMatchWindow bounds how far an annual period's end may sit from
	// a derivation target: one year plus the usual tolerance.
	annualMatchWindow = 395 * 24 * time.Hour
	// minYoYHistory is the minimum period count before a year-over-year
	// comparison is allowed at all.
	minYoYHistory = 5
	// minPriorTTMQuarters is the history required for a prior-TTM window.
	minPriorTTMQuarters = 8
)

// BuildTTM aggregates the latest trailing-twelve-month window.
//
// The basis tag is honest: "ttm" only when all 4 quarters report both
// revenue and net income, "derived" when a missing quarter was
// reconstructed from an annual total, "annual" when the latest annual
// period was used directly. Returns nil when nothing usable exists.
func BuildTTM(quarters model.QuarterlySeries, annuals model.AnnualSeries) *model.TtmSnapshot {
	if len(quarters) >= 4 {
		window := quarters[len(quarters)-4:]
		if windowComplete(window) {
			return sumWindow(window, model.BasisTTM)
		}
	}

	if snap := deriveTTM(quarters, annuals); snap != nil {
		return snap
	}

	if len(annuals) > 0 {
		return annualSnapshot(annuals[len(annuals)-1])
	}

	return nil
}

// PriorTTM aggregates the 4 quarters ending 12 months before the latest
// window, for period-over-period deltas. Requires at least 8 quarters of
// history and a complete prior window; otherwise nil rather than an
// approximation.
func PriorTTM(quarters model.QuarterlySeries) *model.TtmSnapshot {
	if len(quarters) < minPriorTTMQuarters {
		return nil
	}
	window := quarters[len(quarters)-8 : len(quarters)-4]
	if !windowComplete(window) {
		return nil
	}
	return sumWindow(window, model.BasisTTM)
}

// windowComplete reports whether every quarter in the window carries both
// revenue and net income. A partial sum is never labeled TTM.
func windowComplete(window []model.FinancialPeriod) bool {
	for i := range window {
		if !model.IsFiniteValue(window[i].Revenue) || !model.IsFiniteValue(window[i].NetIncome) {
			return false
		}
	}
	return true
}

// deriveTTM reconstructs the missing quarter (typically Q4) as
// annual − sum(known quarters), then aggregates the synthetic window.
func deriveTTM(quarters model.QuarterlySeries, annuals model.AnnualSeries) *model.TtmSnapshot {
	if len(quarters) < 3 || len(annuals) == 0 {
		return nil
	}

	known := quarters[len(quarters)-3:]
	// The missing quarter follows the latest known one.
	target := known[2].PeriodEnd.AddDate(0, 3, 0)

	annual := nearestAnnual(annuals, target)
	if annual == nil {
		return nil
	}

	derived := model.FinancialPeriod{
		PeriodEnd:  target,
		PeriodType: model.PeriodQuarter,

		Revenue:           residual(annual.Revenue, known, func(p *model.FinancialPeriod) *float64 { return p.Revenue }),
		GrossProfit:       residual(annual.GrossProfit, known, func(p *model.FinancialPeriod) *float64 { return p.GrossProfit }),
		OperatingIncome:   residual(annual.OperatingIncome, known, func(p *model.FinancialPeriod) *float64 { return p.OperatingIncome }),
		NetIncome:         residual(annual.NetIncome, known, func(p *model.FinancialPeriod) *float64 { return p.NetIncome }),
		OperatingCashFlow: residual(annual.OperatingCashFlow, known, func(p *model.FinancialPeriod) *float64 { return p.OperatingCashFlow }),
		CapEx:             residual(annual.CapEx, known, func(p *model.FinancialPeriod) *float64 { return p.CapEx }),
		FreeCashFlow:      residual(annual.FreeCashFlow, known, func(p *model.FinancialPeriod) *float64 { return p.FreeCashFlow }),
		InterestExpense:   residual(annual.InterestExpense, known, func(p *model.FinancialPeriod) *float64 { return p.InterestExpense }),

		// Point-in-time fields carry over from the annual report.
		SharesDiluted:      annual.SharesDiluted,
		TotalAssets:        annual.TotalAssets,
		CashAndEquivalents: annual.CashAndEquivalents,
		ShortTermDebt:      annual.ShortTermDebt,
		LongTermDebt:       annual.LongTermDebt,
		StockholdersEquity: annual.StockholdersEquity,
	}

	if !model.IsFiniteValue(derived.Revenue) || !model.IsFiniteValue(derived.NetIncome) {
		return nil
	}

	window := append(append([]model.FinancialPeriod{}, known...), derived)
	snap := sumWindow(window, model.BasisDerived)

	zap.L().Debug("fundamentals: derived missing quarter for TTM",
		zap.Time("target", target),
		zap.Time("annual_end", annual.PeriodEnd),
	)

	return snap
}

// residual computes annual − sum(known) for one field, nil unless the
// annual and every known quarter report it.
func residual(annual *float64, known []model.FinancialPeriod, field func(*model.FinancialPeriod) *float64) *float64 {
	if !model.IsFiniteValue(annual) {
		return nil
	}
	sum := 0.0
	for i := range known {
		v := field(&known[i])
		if !model.IsFiniteValue(v) {
			return nil
		}
		sum += *v
	}
	return model.Float(*annual - sum)
}

// nearestAnnual returns the annual period whose end is closest to target,
// within the match window, or nil.
func nearestAnnual(annuals model.AnnualSeries, target time.Time) *model.FinancialPeriod {
	var best *model.FinancialPeriod
	bestDist := annualMatchWindow
	for i := range annuals {
		d := absDuration(annuals[i].PeriodEnd.Sub(target))
		if d <= bestDist {
			best = &annuals[i]
			bestDist = d
		}
	}
	return best
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// sumWindow aggregates flow fields over the window and takes point-in-time
// fields from the final period.
func sumWindow(window []model.FinancialPeriod, basis model.TtmBasis) *model.TtmSnapshot {
	last := window[len(window)-1]
	snap := &model.TtmSnapshot{
		Basis:     basis,
		WindowEnd: last.PeriodEnd,

		Revenue:           sumField(window, func(p *model.FinancialPeriod) *float64 { return p.Revenue }),
		GrossProfit:       sumField(window, func(p *model.FinancialPeriod) *float64 { return p.GrossProfit }),
		OperatingIncome:   sumField(window, func(p *model.FinancialPeriod) *float64 { return p.OperatingIncome }),
		NetIncome:         sumField(window, func(p *model.FinancialPeriod) *float64 { return p.NetIncome }),
		OperatingCashFlow: sumField(window, func(p *model.FinancialPeriod) *float64 { return p.OperatingCashFlow }),
		CapEx:             sumField(window, func(p *model.FinancialPeriod) *float64 { return p.CapEx }),
		FreeCashFlow:      sumField(window, func(p *model.FinancialPeriod) *float64 { return p.FreeCashFlow }),
		InterestExpense:   sumField(window, func(p *model.FinancialPeriod) *float64 { return p.InterestExpense }),

		SharesDiluted:      firstFinite(last.SharesDiluted, last.SharesBasic),
		TotalAssets:        last.TotalAssets,
		CashAndEquivalents: last.CashAndEquivalents,
		TotalDebt:          totalDebt(&last),
		StockholdersEquity: last.StockholdersEquity,
	}
	return snap
}

// annualSnapshot builds a snapshot directly from one annual period.
func annualSnapshot(a model.FinancialPeriod) *model.TtmSnapshot {
	return &model.TtmSnapshot{
		Basis:     model.BasisAnnual,
		WindowEnd: a.PeriodEnd,

		Revenue:           a.Revenue,
		GrossProfit:       a.GrossProfit,
		OperatingIncome:   a.OperatingIncome,
		NetIncome:         a.NetIncome,
		OperatingCashFlow: a.OperatingCashFlow,
		CapEx:             a.CapEx,
		FreeCashFlow:      a.FreeCashFlow,
		InterestExpense:   a.InterestExpense,

		SharesDiluted:      firstFinite(a.SharesDiluted, a.SharesBasic),
		TotalAssets:        a.TotalAssets,
		CashAndEquivalents: a.CashAndEquivalents,
		TotalDebt:          totalDebt(&a),
		StockholdersEquity: a.StockholdersEquity,
	}
}

func sumField(window []model.FinancialPeriod, field func(*model.FinancialPeriod) *float64) *float64 {
	vals := make([]*float64, len(window))
	for i := range window {
		vals[i] = field(&window[i])
	}
	return model.SumValues(vals...)
}

func firstFinite(vals ...*float64) *float64 {
	for _, v := range vals {
		if model.IsFiniteValue(v) {
			return v
		}
	}
	return nil
}

func totalDebt(p *model.FinancialPeriod) *float64 {
	st := model.IsFiniteValue(p.ShortTermDebt)
	lt := model.IsFiniteValue(p.LongTermDebt)
	switch {
	case st && lt:
		return model.Float(*p.ShortTermDebt + *p.LongTermDebt)
	case lt:
		return p.LongTermDebt
	case st:
		return p.ShortTermDebt
	default:
		return nil
	}
}

// YearAgo finds the comparable period roughly 365 days before target.
// It refuses to compare at all when fewer than minYoYHistory periods
// exist: a coincidental date match on thin history fabricates a wrong
// comparison, so nil is returned instead.
func YearAgo(periods []model.FinancialPeriod, target time.Time) *model.FinancialPeriod {
	if len(periods) < minYoYHistory {
		return nil
	}
	want := target.AddDate(0, 0, -365)
	for i := range periods {
		if absDuration(periods[i].PeriodEnd.Sub(want)) <= yearTolerance {
			return &periods[i]
		}
	}
	return nil
}

// CAGR computes the compound annual growth rate between two positive
// values over the given span, as a percentage. Nil when the endpoints do
// not support a meaningful rate.
func CAGR(begin, end *float64, years float64) *float64 {
	if !model.IsFiniteValue(begin) || !model.IsFiniteValue(end) || years <= 0 {
		return nil
	}
	if *begin <= 0 || *end <= 0 {
		return nil
	}
	r := (math.Pow(*end / *begin, 1/years) - 1) * 100
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return nil
	}
	return &r
}
