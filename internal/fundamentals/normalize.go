// Package fundamentals normalizes raw financial-statement periods into
// canonical series and builds the aggregates the rating engine reads.
package fundamentals

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/oakline-research/rating-cli/internal/model"
)

// Normalize converts raw period-like records into canonical quarterly and
// annual series: ascending by period end, one record per (type, end),
// non-finite values cleared, and safely inferable fields derived.
// Records without a period end or type are dropped.
func Normalize(records []model.FinancialPeriod) (model.QuarterlySeries, model.AnnualSeries) {
	var quarters, years []model.FinancialPeriod

	for _, rec := range records {
		if rec.PeriodEnd.IsZero() {
			continue
		}
		switch rec.PeriodType {
		case model.PeriodQuarter:
			quarters = append(quarters, rec)
		case model.PeriodYear:
			years = append(years, rec)
		default:
			zap.L().Debug("fundamentals: dropping record with unknown period type",
				zap.String("period_type", string(rec.PeriodType)),
			)
		}
	}

	return canonicalize(quarters), canonicalize(years)
}

// canonicalize sorts ascending, dedupes on period end keeping the richer
// record, clears non-finite values, and derives missing fields.
func canonicalize(periods []model.FinancialPeriod) []model.FinancialPeriod {
	if len(periods) == 0 {
		return nil
	}

	sort.SliceStable(periods, func(i, j int) bool {
		return periods[i].PeriodEnd.Before(periods[j].PeriodEnd)
	})

	out := make([]model.FinancialPeriod, 0, len(periods))
	for _, p := range periods {
		scrub(&p)
		derive(&p)
		n := len(out)
		if n > 0 && out[n-1].PeriodEnd.Equal(p.PeriodEnd) {
			if p.FieldCount() > out[n-1].FieldCount() {
				out[n-1] = p
			}
			continue
		}
		out = append(out, p)
	}
	return out
}

// scrub clears NaN/Inf values so "invalid" collapses into "missing" before
// any derivation runs.
func scrub(p *model.FinancialPeriod) {
	for _, f := range []**float64{
		&p.Revenue, &p.CostOfRevenue, &p.GrossProfit, &p.OperatingExpenses,
		&p.ResearchDevelopment, &p.SellingGeneralAdmin, &p.OperatingIncome,
		&p.InterestExpense, &p.PretaxIncome, &p.IncomeTax, &p.NetIncome,
		&p.EPSBasic, &p.EPSDiluted, &p.SharesBasic, &p.SharesDiluted,
		&p.CashAndEquivalents, &p.ShortTermInvestments, &p.AccountsReceivable,
		&p.Inventory, &p.TotalCurrentAssets, &p.PropertyPlantEquipment,
		&p.Goodwill, &p.TotalAssets, &p.AccountsPayable, &p.ShortTermDebt,
		&p.TotalCurrentLiabilities, &p.LongTermDebt, &p.TotalLiabilities,
		&p.StockholdersEquity, &p.RetainedEarnings, &p.OperatingCashFlow,
		&p.CapEx, &p.FreeCashFlow, &p.DividendsPaid, &p.StockRepurchased,
	} {
		if *f != nil && !model.IsFiniteValue(*f) {
			*f = nil
		}
	}
}

// derive fills fields that are safely inferable from what was reported.
func derive(p *model.FinancialPeriod) {
	// revenue = grossProfit + costOfRevenue
	if p.Revenue == nil && model.IsFiniteValue(p.GrossProfit) && model.IsFiniteValue(p.CostOfRevenue) {
		p.Revenue = model.Float(*p.GrossProfit + *p.CostOfRevenue)
	}

	// grossProfit = revenue - costOfRevenue
	if p.GrossProfit == nil && model.IsFiniteValue(p.Revenue) && model.IsFiniteValue(p.CostOfRevenue) {
		p.GrossProfit = model.Float(*p.Revenue - *p.CostOfRevenue)
	}

	// freeCashFlow = operatingCashFlow - |capex|. Capex is reported with
	// inconsistent sign across sources, so the magnitude is used.
	if p.FreeCashFlow == nil && model.IsFiniteValue(p.OperatingCashFlow) && model.IsFiniteValue(p.CapEx) {
		p.FreeCashFlow = model.Float(*p.OperatingCashFlow - math.Abs(*p.CapEx))
	}
}
