package fundamentals

import (
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/oakline-research/rating-cli/internal/model"
)

// effectiveTaxRate approximates after-tax operating return for ROIC when
// the actual tax line is unavailable.
const effectiveTaxRate = 0.21

// State is the normalized financial state the rating engine evaluates.
// Every metric pointer is nil when its inputs were unavailable; rules
// degrade to "missing" rather than guessing.
type State struct {
	Profile model.Profile

	Quarterly model.QuarterlySeries
	Annual    model.AnnualSeries
	TTM       *model.TtmSnapshot
	PriorTTM  *model.TtmSnapshot

	// Growth, as percentages.
	RevenueGrowthYoY *float64
	RevenueCAGR3Y    *float64
	OpexGrowthYoY    *float64

	// Margins, as percentages of TTM revenue.
	GrossMargin     *float64
	OperatingMargin *float64
	NetMargin       *float64
	FCFMargin       *float64
	CapexIntensity  *float64

	// Returns, as percentages.
	ROE  *float64
	ROIC *float64

	// Leverage and liquidity.
	DebtToEquity     *float64
	InterestCoverage *float64
	CurrentRatio     *float64
	CashRunwayQtrs   *float64

	// Ownership change evidence, for the dilution rule and split detector.
	ShareChangePct *float64
	ShareRatioYoY  *float64
	EPSRatioYoY    *float64
	IncomeRatioYoY *float64

	// Valuation and event-risk inputs.
	MarketCap       *float64
	PriceToSales    *float64
	PriceToEarnings *float64
	FiveDayReturn   *float64

	// GrowthBasis records which window the growth comparison used.
	GrowthBasis string
}

// BuildState normalizes raw records and computes every derived metric the
// rule catalog reads. It returns nil only when no usable periods exist at
// all; partial data produces a state with nil metrics.
func BuildState(profile model.Profile, records []model.FinancialPeriod, prices []model.PricePoint) *State {
	quarters, annuals := Normalize(records)
	if len(quarters) == 0 && len(annuals) == 0 {
		zap.L().Warn("fundamentals: no usable periods", zap.String("ticker", profile.Ticker))
		return nil
	}

	s := &State{
		Profile:   profile,
		Quarterly: quarters,
		Annual:    annuals,
		TTM:       BuildTTM(quarters, annuals),
		PriorTTM:  PriorTTM(quarters),
	}

	s.computeGrowth()
	s.computeMargins()
	s.computeReturns()
	s.computeBalance()
	s.computeOwnership()
	s.computePrices(prices)

	return s
}

func (s *State) computeGrowth() {
	// Preferred comparison: TTM against the prior TTM window.
	if s.TTM != nil && s.PriorTTM != nil {
		s.RevenueGrowthYoY = model.PctChange(s.TTM.Revenue, s.PriorTTM.Revenue)
		s.GrowthBasis = "ttm/prior-ttm"
	}

	// Fallback: latest quarter against its year-ago comparable.
	if s.RevenueGrowthYoY == nil && len(s.Quarterly) > 0 {
		latest := s.Quarterly[len(s.Quarterly)-1]
		if prior := YearAgo(s.Quarterly, latest.PeriodEnd); prior != nil {
			s.RevenueGrowthYoY = model.PctChange(latest.Revenue, prior.Revenue)
			s.GrowthBasis = "yoy q/" + latest.PeriodEnd.Format("2006-01-02")
		}
	}

	if len(s.Annual) > 0 {
		latest := s.Annual[len(s.Annual)-1]
		if base := periodYearsBefore(s.Annual, latest.PeriodEnd, 3); base != nil {
			years := latest.PeriodEnd.Sub(base.PeriodEnd).Hours() / 24 / 365
			s.RevenueCAGR3Y = CAGR(base.Revenue, latest.Revenue, years)
		}
	}

	// Operating-expense growth for the operating-leverage rule.
	if len(s.Quarterly) > 0 {
		latest := s.Quarterly[len(s.Quarterly)-1]
		if prior := YearAgo(s.Quarterly, latest.PeriodEnd); prior != nil {
			s.OpexGrowthYoY = model.PctChange(latest.OperatingExpenses, prior.OperatingExpenses)
		}
	}
}

func (s *State) computeMargins() {
	if s.TTM == nil {
		return
	}
	s.GrossMargin = pctOf(s.TTM.GrossProfit, s.TTM.Revenue)
	s.OperatingMargin = pctOf(s.TTM.OperatingIncome, s.TTM.Revenue)
	s.NetMargin = pctOf(s.TTM.NetIncome, s.TTM.Revenue)
	s.FCFMargin = pctOf(s.TTM.FreeCashFlow, s.TTM.Revenue)

	if model.IsFiniteValue(s.TTM.CapEx) && model.IsFiniteValue(s.TTM.Revenue) && *s.TTM.Revenue > 0 {
		s.CapexIntensity = model.Float(math.Abs(*s.TTM.CapEx) / *s.TTM.Revenue * 100)
	}
}

func (s *State) computeReturns() {
	if s.TTM == nil {
		return
	}
	if model.IsFiniteValue(s.TTM.StockholdersEquity) && *s.TTM.StockholdersEquity > 0 {
		s.ROE = pctOf(s.TTM.NetIncome, s.TTM.StockholdersEquity)
	}

	// ROIC approximated as NOPAT over invested capital (debt + equity).
	if model.IsFiniteValue(s.TTM.OperatingIncome) {
		equity := model.ValueOr(s.TTM.StockholdersEquity, 0)
		debt := model.ValueOr(s.TTM.TotalDebt, 0)
		invested := equity + debt
		if invested > 0 && model.IsFiniteValue(s.TTM.StockholdersEquity) {
			nopat := *s.TTM.OperatingIncome * (1 - effectiveTaxRate)
			s.ROIC = model.Float(nopat / invested * 100)
		}
	}

	if model.IsFiniteValue(s.TTM.InterestExpense) && *s.TTM.InterestExpense > 0 {
		s.InterestCoverage = model.Ratio(s.TTM.OperatingIncome, s.TTM.InterestExpense)
	}
}

func (s *State) computeBalance() {
	latest := s.latestWithBalance()
	if latest == nil {
		return
	}

	if debt := totalDebt(latest); debt != nil && model.IsFiniteValue(latest.StockholdersEquity) && *latest.StockholdersEquity > 0 {
		s.DebtToEquity = model.Ratio(debt, latest.StockholdersEquity)
	}

	s.CurrentRatio = model.Ratio(latest.TotalCurrentAssets, latest.TotalCurrentLiabilities)

	// Cash runway in quarters, only meaningful while burning cash.
	if s.TTM != nil && model.IsFiniteValue(s.TTM.FreeCashFlow) && *s.TTM.FreeCashFlow < 0 {
		cash := model.ValueOr(latest.CashAndEquivalents, 0) + model.ValueOr(latest.ShortTermInvestments, 0)
		quarterlyBurn := -*s.TTM.FreeCashFlow / 4
		if quarterlyBurn > 0 && cash > 0 {
			s.CashRunwayQtrs = model.Float(cash / quarterlyBurn)
		}
	}
}

func (s *State) computeOwnership() {
	if len(s.Quarterly) == 0 {
		return
	}
	latest := s.Quarterly[len(s.Quarterly)-1]
	prior := YearAgo(s.Quarterly, latest.PeriodEnd)
	if prior == nil {
		return
	}

	sharesNow := firstFinite(latest.SharesDiluted, latest.SharesBasic)
	sharesThen := firstFinite(prior.SharesDiluted, prior.SharesBasic)
	s.ShareChangePct = model.PctChange(sharesNow, sharesThen)
	s.ShareRatioYoY = model.Ratio(sharesNow, sharesThen)

	epsNow := firstFinite(latest.EPSDiluted, latest.EPSBasic)
	epsThen := firstFinite(prior.EPSDiluted, prior.EPSBasic)
	s.EPSRatioYoY = model.Ratio(epsNow, epsThen)

	s.IncomeRatioYoY = model.Ratio(latest.NetIncome, prior.NetIncome)
}

func (s *State) computePrices(prices []model.PricePoint) {
	if len(prices) == 0 {
		return
	}
	sort.SliceStable(prices, func(i, j int) bool { return prices[i].Date.Before(prices[j].Date) })

	latest := prices[len(prices)-1]
	if model.IsFiniteValue(latest.MarketCap) {
		s.MarketCap = latest.MarketCap
	}

	if s.MarketCap != nil && s.TTM != nil {
		if model.IsFiniteValue(s.TTM.Revenue) && *s.TTM.Revenue > 0 {
			s.PriceToSales = model.Ratio(s.MarketCap, s.TTM.Revenue)
		}
		if model.IsFiniteValue(s.TTM.NetIncome) && *s.TTM.NetIncome > 0 {
			s.PriceToEarnings = model.Ratio(s.MarketCap, s.TTM.NetIncome)
		}
	}

	// Five-trading-day return for the event-risk cap.
	if len(prices) >= 6 {
		base := prices[len(prices)-6].Close
		if base > 0 {
			s.FiveDayReturn = model.Float((latest.Close - base) / base * 100)
		}
	}
}

// latestWithBalance walks back from the newest period (quarterly first)
// looking for one that reports balance-sheet fields.
func (s *State) latestWithBalance() *model.FinancialPeriod {
	for i := len(s.Quarterly) - 1; i >= 0; i-- {
		p := &s.Quarterly[i]
		if model.IsFiniteValue(p.TotalAssets) || model.IsFiniteValue(p.StockholdersEquity) ||
			model.IsFiniteValue(p.TotalCurrentAssets) {
			return p
		}
	}
	for i := len(s.Annual) - 1; i >= 0; i-- {
		p := &s.Annual[i]
		if model.IsFiniteValue(p.TotalAssets) || model.IsFiniteValue(p.StockholdersEquity) {
			return p
		}
	}
	return nil
}

// TotalAssets reports the most recent known total assets, for cap-size
// classification.
func (s *State) TotalAssets() *float64 {
	if s.TTM != nil && model.IsFiniteValue(s.TTM.TotalAssets) {
		return s.TTM.TotalAssets
	}
	if p := s.latestWithBalance(); p != nil {
		return p.TotalAssets
	}
	return nil
}

// periodYearsBefore finds a period close to n years before target, with the
// usual 30-day tolerance and the same minimum-history rule as YearAgo.
func periodYearsBefore(periods []model.FinancialPeriod, target time.Time, years int) *model.FinancialPeriod {
	if len(periods) < years+1 {
		return nil
	}
	want := target.AddDate(-years, 0, 0)
	for i := range periods {
		if absDuration(periods[i].PeriodEnd.Sub(want)) <= yearTolerance {
			return &periods[i]
		}
	}
	return nil
}

func pctOf(num, den *float64) *float64 {
	if !model.IsFiniteValue(num) || !model.IsFiniteValue(den) || *den <= 0 {
		return nil
	}
	return model.Float(*num / *den * 100)
}
