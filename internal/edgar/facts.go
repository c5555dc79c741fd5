package edgar

import (
	"encoding/json"
	"io"
	"time"

	"github.com/rotisserie/eris"

	"github.com/oakline-research/rating-cli/internal/model"
)

// CompanyFacts represents the EDGAR company facts JSON structure.
type CompanyFacts struct {
	CIK        int               `json:"cik"`
	EntityName string            `json:"entityName"`
	Facts      map[string]FactNS `json:"facts"`
}

// FactNS groups facts by namespace (e.g., "us-gaap", "dei").
type FactNS map[string]Fact

// Fact is a single XBRL fact with its units and values.
type Fact struct {
	Label       string                 `json:"label"`
	Description string                 `json:"description"`
	Units       map[string][]FactValue `json:"units"`
}

// FactValue is a single data point for a fact. Duration facts carry both
// start and end; instant facts carry only end.
type FactValue struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end"`
	Val   any    `json:"val"`
	Accn  string `json:"accn"`
	FY    int    `json:"fy"`
	FP    string `json:"fp"`
	Form  string `json:"form"`
	Filed string `json:"filed"`
	Frame string `json:"frame,omitempty"`
}

// ParseCompanyFacts parses EDGAR company facts JSON from a reader.
func ParseCompanyFacts(r io.Reader) (*CompanyFacts, error) {
	var facts CompanyFacts
	if err := json.NewDecoder(r).Decode(&facts); err != nil {
		return nil, eris.Wrap(err, "edgar: parse company facts")
	}
	return &facts, nil
}

// fieldSetter writes one taxonomy value into a period record.
type fieldSetter func(p *model.FinancialPeriod, v float64)

// durationKind classifies how a fact's value spans time.
type durationKind int

const (
	kindInstant durationKind = iota // balance-sheet point in time
	kindFlow                        // income/cash-flow over the period
)

type taxonomyEntry struct {
	kind durationKind
	set  fieldSetter
}

// taxonomy maps US-GAAP fact names onto FinancialPeriod fields. Several
// tags map to the same field; issuers moved between them across ASC
// updates, so the later-filed value for a period wins.
var taxonomy = map[string]taxonomyEntry{
	"Revenues": {kindFlow, func(p *model.FinancialPeriod, v float64) { p.Revenue = &v }},
	"RevenueFromContractWithCustomerExcludingAssessedTax": {kindFlow, func(p *model.FinancialPeriod, v float64) { p.Revenue = &v }},
	"SalesRevenueNet":                                 {kindFlow, func(p *model.FinancialPeriod, v float64) { p.Revenue = &v }},
	"CostOfRevenue":                                   {kindFlow, func(p *model.FinancialPeriod, v float64) { p.CostOfRevenue = &v }},
	"CostOfGoodsAndServicesSold":                      {kindFlow, func(p *model.FinancialPeriod, v float64) { p.CostOfRevenue = &v }},
	"GrossProfit":                                     {kindFlow, func(p *model.FinancialPeriod, v float64) { p.GrossProfit = &v }},
	"OperatingExpenses":                               {kindFlow, func(p *model.FinancialPeriod, v float64) { p.OperatingExpenses = &v }},
	"ResearchAndDevelopmentExpense":                   {kindFlow, func(p *model.FinancialPeriod, v float64) { p.ResearchDevelopment = &v }},
	"SellingGeneralAndAdministrativeExpense":          {kindFlow, func(p *model.FinancialPeriod, v float64) { p.SellingGeneralAdmin = &v }},
	"OperatingIncomeLoss":                             {kindFlow, func(p *model.FinancialPeriod, v float64) { p.OperatingIncome = &v }},
	"InterestExpense":                                 {kindFlow, func(p *model.FinancialPeriod, v float64) { p.InterestExpense = &v }},
	"IncomeTaxExpenseBenefit":                         {kindFlow, func(p *model.FinancialPeriod, v float64) { p.IncomeTax = &v }},
	"NetIncomeLoss":                                   {kindFlow, func(p *model.FinancialPeriod, v float64) { p.NetIncome = &v }},
	"EarningsPerShareBasic":                           {kindFlow, func(p *model.FinancialPeriod, v float64) { p.EPSBasic = &v }},
	"EarningsPerShareDiluted":                         {kindFlow, func(p *model.FinancialPeriod, v float64) { p.EPSDiluted = &v }},
	"WeightedAverageNumberOfSharesOutstandingBasic":   {kindFlow, func(p *model.FinancialPeriod, v float64) { p.SharesBasic = &v }},
	"WeightedAverageNumberOfDilutedSharesOutstanding": {kindFlow, func(p *model.FinancialPeriod, v float64) { p.SharesDiluted = &v }},
	"CashAndCashEquivalentsAtCarryingValue":           {kindInstant, func(p *model.FinancialPeriod, v float64) { p.CashAndEquivalents = &v }},
	"ShortTermInvestments":                            {kindInstant, func(p *model.FinancialPeriod, v float64) { p.ShortTermInvestments = &v }},
	"AccountsReceivableNetCurrent":                    {kindInstant, func(p *model.FinancialPeriod, v float64) { p.AccountsReceivable = &v }},
	"InventoryNet":                                    {kindInstant, func(p *model.FinancialPeriod, v float64) { p.Inventory = &v }},
	"AssetsCurrent":                                   {kindInstant, func(p *model.FinancialPeriod, v float64) { p.TotalCurrentAssets = &v }},
	"PropertyPlantAndEquipmentNet":                    {kindInstant, func(p *model.FinancialPeriod, v float64) { p.PropertyPlantEquipment = &v }},
	"Goodwill":                                        {kindInstant, func(p *model.FinancialPeriod, v float64) { p.Goodwill = &v }},
	"Assets":                                          {kindInstant, func(p *model.FinancialPeriod, v float64) { p.TotalAssets = &v }},
	"AccountsPayableCurrent":                          {kindInstant, func(p *model.FinancialPeriod, v float64) { p.AccountsPayable = &v }},
	"DebtCurrent":                                     {kindInstant, func(p *model.FinancialPeriod, v float64) { p.ShortTermDebt = &v }},
	"LiabilitiesCurrent":                              {kindInstant, func(p *model.FinancialPeriod, v float64) { p.TotalCurrentLiabilities = &v }},
	"LongTermDebtNoncurrent":                          {kindInstant, func(p *model.FinancialPeriod, v float64) { p.LongTermDebt = &v }},
	"LongTermDebt":                                    {kindInstant, func(p *model.FinancialPeriod, v float64) { p.LongTermDebt = &v }},
	"Liabilities":                                     {kindInstant, func(p *model.FinancialPeriod, v float64) { p.TotalLiabilities = &v }},
	"StockholdersEquity":                              {kindInstant, func(p *model.FinancialPeriod, v float64) { p.StockholdersEquity = &v }},
	"RetainedEarningsAccumulatedDeficit":              {kindInstant, func(p *model.FinancialPeriod, v float64) { p.RetainedEarnings = &v }},
	"NetCashProvidedByUsedInOperatingActivities":      {kindFlow, func(p *model.FinancialPeriod, v float64) { p.OperatingCashFlow = &v }},
	"PaymentsToAcquirePropertyPlantAndEquipment":      {kindFlow, func(p *model.FinancialPeriod, v float64) { p.CapEx = &v }},
	"PaymentsOfDividends":                             {kindFlow, func(p *model.FinancialPeriod, v float64) { p.DividendsPaid = &v }},
	"PaymentsForRepurchaseOfCommonStock":              {kindFlow, func(p *model.FinancialPeriod, v float64) { p.StockRepurchased = &v }},
}

const (
	minQuarterDays = 75
	maxQuarterDays = 105
	minYearDays    = 350
	maxYearDays    = 380
)

// PeriodsFromFacts flattens XBRL company facts into raw period records.
// Duration facts define the periods: a ~90-day span is a quarter, a
// ~365-day span a year. Instant facts then attach to every period sharing
// their end date. Within one period and field, the later-filed value
// wins, so amended figures replace originals.
func PeriodsFromFacts(facts *CompanyFacts) []model.FinancialPeriod {
	if facts == nil || len(facts.Facts) == 0 {
		return nil
	}
	gaap, ok := facts.Facts["us-gaap"]
	if !ok {
		return nil
	}

	type periodKey struct {
		end time.Time
		typ model.PeriodType
	}
	periods := make(map[periodKey]*model.FinancialPeriod)
	filedAt := make(map[string]string)

	// First pass: duration facts establish the periods.
	for name, fact := range gaap {
		entry, ok := taxonomy[name]
		if !ok || entry.kind != kindFlow {
			continue
		}
		for _, values := range fact.Units {
			for _, v := range values {
				end, ok := parseDay(v.End)
				if !ok {
					continue
				}
				typ, ok := classifySpan(v.Start, end)
				if !ok {
					continue
				}
				key := periodKey{end, typ}
				p, ok := periods[key]
				if !ok {
					p = &model.FinancialPeriod{PeriodEnd: end, PeriodType: typ}
					periods[key] = p
				}
				applyValue(p, entry, name, v, filedAt, string(typ))
			}
		}
	}

	// Second pass: instant facts attach to existing periods by end date.
	for name, fact := range gaap {
		entry, ok := taxonomy[name]
		if !ok || entry.kind != kindInstant {
			continue
		}
		for _, values := range fact.Units {
			for _, v := range values {
				end, ok := parseDay(v.End)
				if !ok {
					continue
				}
				for _, typ := range []model.PeriodType{model.PeriodQuarter, model.PeriodYear} {
					if p, ok := periods[periodKey{end, typ}]; ok {
						applyValue(p, entry, name, v, filedAt, string(typ))
					}
				}
			}
		}
	}

	out := make([]model.FinancialPeriod, 0, len(periods))
	for _, p := range periods {
		out = append(out, *p)
	}
	return out
}

func applyValue(p *model.FinancialPeriod, entry taxonomyEntry, name string, v FactValue, filedAt map[string]string, typ string) {
	f, ok := toFloat(v.Val)
	if !ok {
		return
	}
	cell := typ + "|" + v.End + "|" + name
	if prev, seen := filedAt[cell]; seen && prev > v.Filed {
		return
	}
	filedAt[cell] = v.Filed
	entry.set(p, f)
}

// classifySpan decides whether a duration fact covers a quarter or a
// year. Anything else (six- or nine-month year-to-date spans) is dropped;
// the TTM aggregator derives what it needs from quarters and annuals.
func classifySpan(start string, end time.Time) (model.PeriodType, bool) {
	s, ok := parseDay(start)
	if !ok {
		return "", false
	}
	days := int(end.Sub(s).Hours() / 24)
	switch {
	case days >= minQuarterDays && days <= maxQuarterDays:
		return model.PeriodQuarter, true
	case days >= minYearDays && days <= maxYearDays:
		return model.PeriodYear, true
	default:
		return "", false
	}
}

func parseDay(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
