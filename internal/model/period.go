package model

import "time"

// PeriodType distinguishes quarterly from annual records.
type PeriodType string

const (
	PeriodQuarter PeriodType = "quarter"
	PeriodYear    PeriodType = "year"
)

// FinancialPeriod is one normalized reporting period. Numeric fields are
// optional: a nil pointer means the field was not reported for the period.
// Once a period leaves the normalizer it is treated as immutable.
type FinancialPeriod struct {
	PeriodEnd  time.Time  `json:"period_end"`
	PeriodType PeriodType `json:"period_type"`

	// Income statement.
	Revenue             *float64 `json:"revenue,omitempty"`
	CostOfRevenue       *float64 `json:"cost_of_revenue,omitempty"`
	GrossProfit         *float64 `json:"gross_profit,omitempty"`
	OperatingExpenses   *float64 `json:"operating_expenses,omitempty"`
	ResearchDevelopment *float64 `json:"research_development,omitempty"`
	SellingGeneralAdmin *float64 `json:"selling_general_admin,omitempty"`
	OperatingIncome     *float64 `json:"operating_income,omitempty"`
	InterestExpense     *float64 `json:"interest_expense,omitempty"`
	PretaxIncome        *float64 `json:"pretax_income,omitempty"`
	IncomeTax           *float64 `json:"income_tax,omitempty"`
	NetIncome           *float64 `json:"net_income,omitempty"`
	EPSBasic            *float64 `json:"eps_basic,omitempty"`
	EPSDiluted          *float64 `json:"eps_diluted,omitempty"`
	SharesBasic         *float64 `json:"shares_basic,omitempty"`
	SharesDiluted       *float64 `json:"shares_diluted,omitempty"`

	// Balance sheet.
	CashAndEquivalents      *float64 `json:"cash_and_equivalents,omitempty"`
	ShortTermInvestments    *float64 `json:"short_term_investments,omitempty"`
	AccountsReceivable      *float64 `json:"accounts_receivable,omitempty"`
	Inventory               *float64 `json:"inventory,omitempty"`
	TotalCurrentAssets      *float64 `json:"total_current_assets,omitempty"`
	PropertyPlantEquipment  *float64 `json:"property_plant_equipment,omitempty"`
	Goodwill                *float64 `json:"goodwill,omitempty"`
	TotalAssets             *float64 `json:"total_assets,omitempty"`
	AccountsPayable         *float64 `json:"accounts_payable,omitempty"`
	ShortTermDebt           *float64 `json:"short_term_debt,omitempty"`
	TotalCurrentLiabilities *float64 `json:"total_current_liabilities,omitempty"`
	LongTermDebt            *float64 `json:"long_term_debt,omitempty"`
	TotalLiabilities        *float64 `json:"total_liabilities,omitempty"`
	StockholdersEquity      *float64 `json:"stockholders_equity,omitempty"`
	RetainedEarnings        *float64 `json:"retained_earnings,omitempty"`

	// Cash flow.
	OperatingCashFlow *float64 `json:"operating_cash_flow,omitempty"`
	CapEx             *float64 `json:"capex,omitempty"`
	FreeCashFlow      *float64 `json:"free_cash_flow,omitempty"`
	DividendsPaid     *float64 `json:"dividends_paid,omitempty"`
	StockRepurchased  *float64 `json:"stock_repurchased,omitempty"`
}

// FieldCount returns the number of reported (finite) numeric fields.
// Used by the normalizer to keep the richer record when two records share
// a period end.
func (p *FinancialPeriod) FieldCount() int {
	n := 0
	for _, v := range p.numericFields() {
		if IsFiniteValue(v) {
			n++
		}
	}
	return n
}

func (p *FinancialPeriod) numericFields() []*float64 {
	return []*float64{
		p.Revenue, p.CostOfRevenue, p.GrossProfit, p.OperatingExpenses,
		p.ResearchDevelopment, p.SellingGeneralAdmin, p.OperatingIncome,
		p.InterestExpense, p.PretaxIncome, p.IncomeTax, p.NetIncome,
		p.EPSBasic, p.EPSDiluted, p.SharesBasic, p.SharesDiluted,
		p.CashAndEquivalents, p.ShortTermInvestments, p.AccountsReceivable,
		p.Inventory, p.TotalCurrentAssets, p.PropertyPlantEquipment,
		p.Goodwill, p.TotalAssets, p.AccountsPayable, p.ShortTermDebt,
		p.TotalCurrentLiabilities, p.LongTermDebt, p.TotalLiabilities,
		p.StockholdersEquity, p.RetainedEarnings, p.OperatingCashFlow,
		p.CapEx, p.FreeCashFlow, p.DividendsPaid, p.StockRepurchased,
	}
}

// QuarterlySeries is an ascending sequence of quarterly periods.
type QuarterlySeries []FinancialPeriod

// AnnualSeries is an ascending sequence of annual periods.
type AnnualSeries []FinancialPeriod

// TtmBasis tags how a trailing-twelve-month snapshot was constructed.
type TtmBasis string

const (
	// BasisTTM means all 4 quarters reported both revenue and net income.
	BasisTTM TtmBasis = "ttm"
	// BasisDerived means a missing quarter was reconstructed from an
	// annual total minus the known quarters.
	BasisDerived TtmBasis = "derived"
	// BasisAnnual means the latest annual period was used directly.
	BasisAnnual TtmBasis = "annual"
)

// TtmSnapshot aggregates four consecutive quarters (or an annual fallback).
// Flow fields are sums over the window; point-in-time fields are taken from
// the latest contributing period.
type TtmSnapshot struct {
	Basis     TtmBasis  `json:"basis"`
	WindowEnd time.Time `json:"window_end"`

	Revenue           *float64 `json:"revenue,omitempty"`
	GrossProfit       *float64 `json:"gross_profit,omitempty"`
	OperatingIncome   *float64 `json:"operating_income,omitempty"`
	NetIncome         *float64 `json:"net_income,omitempty"`
	OperatingCashFlow *float64 `json:"operating_cash_flow,omitempty"`
	CapEx             *float64 `json:"capex,omitempty"`
	FreeCashFlow      *float64 `json:"free_cash_flow,omitempty"`
	InterestExpense   *float64 `json:"interest_expense,omitempty"`

	// Point-in-time, from the latest quarter in the window.
	SharesDiluted      *float64 `json:"shares_diluted,omitempty"`
	TotalAssets        *float64 `json:"total_assets,omitempty"`
	CashAndEquivalents *float64 `json:"cash_and_equivalents,omitempty"`
	TotalDebt          *float64 `json:"total_debt,omitempty"`
	StockholdersEquity *float64 `json:"stockholders_equity,omitempty"`
}

// PricePoint is one daily close, with market cap when the price source
// supplies it.
type PricePoint struct {
	Date      time.Time `json:"date"`
	Close     float64   `json:"close"`
	MarketCap *float64  `json:"market_cap,omitempty"`
}

// Profile describes the rated entity as supplied by the sector/SIC
// classifier collaborator.
type Profile struct {
	Ticker       string `json:"ticker"`
	Name         string `json:"name,omitempty"`
	CIK          string `json:"cik,omitempty"`
	Sector       string `json:"sector,omitempty"`
	ForeignFiler bool   `json:"foreign_filer,omitempty"`
}
