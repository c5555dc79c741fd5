package fetcher

import (
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/oakline-research/rating-cli/internal/model"
)

// periodColumns maps normalized spreadsheet headers to period fields. Header
// names follow the JSON field names, so an export of ReadPeriodsJSON input
// round-trips through a spreadsheet unchanged.
var periodColumns = map[string]func(p *model.FinancialPeriod, v float64){
	"revenue":                   func(p *model.FinancialPeriod, v float64) { p.Revenue = &v },
	"cost_of_revenue":           func(p *model.FinancialPeriod, v float64) { p.CostOfRevenue = &v },
	"gross_profit":              func(p *model.FinancialPeriod, v float64) { p.GrossProfit = &v },
	"operating_expenses":        func(p *model.FinancialPeriod, v float64) { p.OperatingExpenses = &v },
	"research_development":      func(p *model.FinancialPeriod, v float64) { p.ResearchDevelopment = &v },
	"selling_general_admin":     func(p *model.FinancialPeriod, v float64) { p.SellingGeneralAdmin = &v },
	"operating_income":          func(p *model.FinancialPeriod, v float64) { p.OperatingIncome = &v },
	"interest_expense":          func(p *model.FinancialPeriod, v float64) { p.InterestExpense = &v },
	"pretax_income":             func(p *model.FinancialPeriod, v float64) { p.PretaxIncome = &v },
	"income_tax":                func(p *model.FinancialPeriod, v float64) { p.IncomeTax = &v },
	"net_income":                func(p *model.FinancialPeriod, v float64) { p.NetIncome = &v },
	"eps_basic":                 func(p *model.FinancialPeriod, v float64) { p.EPSBasic = &v },
	"eps_diluted":               func(p *model.FinancialPeriod, v float64) { p.EPSDiluted = &v },
	"shares_basic":              func(p *model.FinancialPeriod, v float64) { p.SharesBasic = &v },
	"shares_diluted":            func(p *model.FinancialPeriod, v float64) { p.SharesDiluted = &v },
	"cash_and_equivalents":      func(p *model.FinancialPeriod, v float64) { p.CashAndEquivalents = &v },
	"short_term_investments":    func(p *model.FinancialPeriod, v float64) { p.ShortTermInvestments = &v },
	"accounts_receivable":       func(p *model.FinancialPeriod, v float64) { p.AccountsReceivable = &v },
	"inventory":                 func(p *model.FinancialPeriod, v float64) { p.Inventory = &v },
	"total_current_assets":      func(p *model.FinancialPeriod, v float64) { p.TotalCurrentAssets = &v },
	"property_plant_equipment":  func(p *model.FinancialPeriod, v float64) { p.PropertyPlantEquipment = &v },
	"goodwill":                  func(p *model.FinancialPeriod, v float64) { p.Goodwill = &v },
	"total_assets":              func(p *model.FinancialPeriod, v float64) { p.TotalAssets = &v },
	"accounts_payable":          func(p *model.FinancialPeriod, v float64) { p.AccountsPayable = &v },
	"short_term_debt":           func(p *model.FinancialPeriod, v float64) { p.ShortTermDebt = &v },
	"total_current_liabilities": func(p *model.FinancialPeriod, v float64) { p.TotalCurrentLiabilities = &v },
	"long_term_debt":            func(p *model.FinancialPeriod, v float64) { p.LongTermDebt = &v },
	"total_liabilities":         func(p *model.FinancialPeriod, v float64) { p.TotalLiabilities = &v },
	"stockholders_equity":       func(p *model.FinancialPeriod, v float64) { p.StockholdersEquity = &v },
	"retained_earnings":         func(p *model.FinancialPeriod, v float64) { p.RetainedEarnings = &v },
	"operating_cash_flow":       func(p *model.FinancialPeriod, v float64) { p.OperatingCashFlow = &v },
	"capex":                     func(p *model.FinancialPeriod, v float64) { p.CapEx = &v },
	"free_cash_flow":            func(p *model.FinancialPeriod, v float64) { p.FreeCashFlow = &v },
	"dividends_paid":            func(p *model.FinancialPeriod, v float64) { p.DividendsPaid = &v },
	"stock_repurchased":         func(p *model.FinancialPeriod, v float64) { p.StockRepurchased = &v },
}

// normalizeHeader folds "Net Income", "net-income", and "NET_INCOME" onto
// the same key.
func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.ReplaceAll(h, " ", "_")
	h = strings.ReplaceAll(h, "-", "_")
	return h
}

// parseFloatCell accepts plain numbers plus the thousands separators and
// parentheses-for-negative conventions common in exported spreadsheets.
func parseFloatCell(s string) (float64, error) {
	s = strings.TrimSpace(s)
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimPrefix(s, "$")

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "parse number %q", s)
	}
	if neg {
		v = -v
	}
	return v, nil
}

var dateLayouts = []string{"2006-01-02", time.RFC3339, "01/02/2006", "2006-01-02 15:04:05"}

func parseDateCell(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, eris.Errorf("parse date %q", s)
}
