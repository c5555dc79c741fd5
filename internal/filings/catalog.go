// Package filings extracts qualitative risk and opportunity signals from
// regulatory filing text by phrase matching with contextual suppression.
package filings

import "github.com/oakline-research/rating-cli/internal/model"

// ScannerVersion stamps every scan result. Bumping it invalidates all
// cached signals; bump whenever the catalog or suppression heuristics
// change behavior.
const ScannerVersion = "3"

// SignalDef defines one phrase family: the phrases that trigger it, the
// score it contributes, and any resolution phrases that suppress it when
// they appear in the surrounding context.
type SignalDef struct {
	ID             string
	Title          string
	Score          int
	Severity       model.Severity
	Phrases        []string
	Resolutions    []string
	IncludeInScore bool
}

// conflictPairs maps a negative signal ID to its positive counterpart.
// When both appear in one scan the positive is dropped: the engine keeps
// the flagged risk rather than assuming an offsetting phrase resolved it.
var conflictPairs = map[string]string{
	"going_concern":     "going_concern_resolved",
	"material_weakness": "material_weakness_remediated",
	"covenant_breach":   "covenant_waiver",
	"delisting_notice":  "listing_compliance_regained",
}

// Catalog returns the static signal catalog, in evaluation order. The
// slice is rebuilt per call so callers can never mutate shared state.
func Catalog() []SignalDef {
	return []SignalDef{
		{
			ID:       "going_concern",
			Title:    "Going concern doubt",
			Score:    -12,
			Severity: model.SeverityCritical,
			Phrases: []string{
				"substantial doubt about its ability to continue as a going concern",
				"substantial doubt regarding its ability to continue as a going concern",
				"substantial doubt about the company's ability to continue as a going concern",
				"going concern",
			},
			Resolutions: []string{
				"alleviated the substantial doubt",
				"no longer a going concern",
			},
			IncludeInScore: true,
		},
		{
			ID:       "material_weakness",
			Title:    "Material weakness in internal controls",
			Score:    -8,
			Severity: model.SeverityHigh,
			Phrases: []string{
				"material weakness in our internal control",
				"material weakness in internal control",
				"material weaknesses in our internal control",
				"identified a material weakness",
			},
			IncludeInScore: true,
		},
		{
			ID:       "restatement",
			Title:    "Financial restatement",
			Score:    -9,
			Severity: model.SeverityHigh,
			Phrases: []string{
				"restatement of previously issued financial statements",
				"restate our previously issued",
				"should no longer be relied upon",
				"non-reliance on previously issued",
			},
			IncludeInScore: true,
		},
		{
			ID:       "sec_investigation",
			Title:    "SEC investigation or subpoena",
			Score:    -9,
			Severity: model.SeverityHigh,
			Phrases: []string{
				"received a subpoena from the securities and exchange commission",
				"sec investigation",
				"formal order of investigation",
				"wells notice",
			},
			IncludeInScore: true,
		},
		{
			ID:       "delisting_notice",
			Title:    "Exchange listing deficiency",
			Score:    -8,
			Severity: model.SeverityHigh,
			Phrases: []string{
				"notice of delisting",
				"deficiency letter from nasdaq",
				"deficiency letter from the nyse",
				"not in compliance with the continued listing",
				"minimum bid price requirement",
			},
			IncludeInScore: true,
		},
		{
			ID:       "covenant_breach",
			Title:    "Debt covenant breach",
			Score:    -7,
			Severity: model.SeverityHigh,
			Phrases: []string{
				"breached a covenant",
				"breach of covenant",
				"not in compliance with certain covenants",
				"event of default under",
				"failed to comply with the financial covenants",
			},
			IncludeInScore: true,
		},
		{
			ID:       "clinical_hold",
			Title:    "Clinical hold",
			Score:    -9,
			Severity: model.SeverityHigh,
			Phrases: []string{
				"clinical hold",
				"partial clinical hold",
			},
			Resolutions: []string{
				"lifted",
				"resumed enrollment",
				"resumption of enrollment",
			},
			IncludeInScore: true,
		},
		{
			ID:       "impairment_charge",
			Title:    "Goodwill or asset impairment",
			Score:    -5,
			Severity: model.SeverityMedium,
			Phrases: []string{
				"goodwill impairment charge",
				"recorded an impairment charge",
				"impairment of long-lived assets",
			},
			IncludeInScore: true,
		},
		{
			ID:       "late_filing",
			Title:    "Late periodic filing",
			Score:    -6,
			Severity: model.SeverityMedium,
			Phrases: []string{
				"unable to file its quarterly report",
				"unable to file its annual report",
				"notification of late filing",
				"form 12b-25",
			},
			IncludeInScore: true,
		},
		{
			ID:       "layoffs_restructuring",
			Title:    "Workforce reduction",
			Score:    -3,
			Severity: model.SeverityMedium,
			Phrases: []string{
				"reduction in force",
				"workforce reduction",
				"restructuring plan",
				"reduce its workforce by approximately",
			},
			IncludeInScore: true,
		},
		{
			ID:       "customer_concentration",
			Title:    "Customer concentration",
			Score:    -4,
			Severity: model.SeverityMedium,
			Phrases: []string{
				"one customer accounted for",
				"a single customer accounted for",
				"loss of this customer",
				"concentration of our revenue",
			},
			IncludeInScore: true,
		},
		{
			ID:       "dilutive_shelf",
			Title:    "Shelf registration or ATM program",
			Score:    -3,
			Severity: model.SeverityLow,
			Phrases: []string{
				"at-the-market offering",
				"at the market offering",
				"shelf registration statement",
				"equity distribution agreement",
			},
			IncludeInScore: true,
		},
		{
			ID:       "executive_departure",
			Title:    "Unplanned executive departure",
			Score:    -4,
			Severity: model.SeverityMedium,
			Phrases: []string{
				"resigned as chief executive officer",
				"resigned as chief financial officer",
				"departure of our chief executive officer",
				"terminated the employment of",
			},
			IncludeInScore: true,
		},
		{
			ID:       "cybersecurity_incident",
			Title:    "Cybersecurity incident",
			Score:    -4,
			Severity: model.SeverityMedium,
			Phrases: []string{
				"cybersecurity incident",
				"unauthorized access to our systems",
				"ransomware attack",
			},
			IncludeInScore: true,
		},
		{
			ID:       "shareholder_litigation",
			Title:    "Securities class action",
			Score:    -4,
			Severity: model.SeverityMedium,
			Phrases: []string{
				"securities class action",
				"putative class action",
				"shareholder derivative",
			},
			// Informational: class actions follow nearly every large drawdown
			// and add noise rather than signal to the score.
			IncludeInScore: false,
		},

		// Positive counterparts and opportunity signals.
		{
			ID:       "going_concern_resolved",
			Title:    "Going concern doubt removed",
			Score:    5,
			Severity: model.SeverityLow,
			Phrases: []string{
				"alleviated the substantial doubt",
				"substantial doubt has been alleviated",
				"no longer exists substantial doubt",
			},
			IncludeInScore: true,
		},
		{
			ID:       "material_weakness_remediated",
			Title:    "Material weakness remediated",
			Score:    4,
			Severity: model.SeverityLow,
			Phrases: []string{
				"material weakness has been remediated",
				"remediated the material weakness",
				"remediation of the material weakness",
			},
			IncludeInScore: true,
		},
		{
			ID:       "covenant_waiver",
			Title:    "Covenant waiver obtained",
			Score:    2,
			Severity: model.SeverityLow,
			Phrases: []string{
				"obtained a waiver",
				"waiver of the covenant",
				"amended the credit agreement to waive",
			},
			IncludeInScore: true,
		},
		{
			ID:       "listing_compliance_regained",
			Title:    "Listing compliance regained",
			Score:    3,
			Severity: model.SeverityLow,
			Phrases: []string{
				"regained compliance with",
				"confirmation of compliance from nasdaq",
			},
			IncludeInScore: true,
		},
		{
			ID:       "fda_approval",
			Title:    "FDA approval received",
			Score:    8,
			Severity: model.SeverityHigh,
			Phrases: []string{
				"received fda approval",
				"fda has approved",
				"marketing authorization from the fda",
				"received approval from the u.s. food and drug administration",
			},
			IncludeInScore: true,
		},
		{
			ID:       "major_contract",
			Title:    "Major contract or partnership",
			Score:    5,
			Severity: model.SeverityMedium,
			Phrases: []string{
				"entered into a definitive agreement with",
				"awarded a contract valued at",
				"strategic collaboration agreement",
			},
			IncludeInScore: true,
		},
		{
			ID:       "buyback_program",
			Title:    "Buyback authorization",
			Score:    3,
			Severity: model.SeverityLow,
			Phrases: []string{
				"share repurchase program",
				"authorized the repurchase of up to",
				"stock repurchase authorization",
			},
			IncludeInScore: true,
		},
	}
}
