package model

import "time"

// Filing is the metadata for one regulatory filing, as supplied by the
// filing-fetch collaborator.
type Filing struct {
	Form       string    `json:"form"`
	Filed      time.Time `json:"filed"`
	Accession  string    `json:"accession"`
	CIK        string    `json:"cik,omitempty"`
	PrimaryDoc string    `json:"primary_doc,omitempty"`
	DocURL     string    `json:"doc_url,omitempty"`
}

// Severity grades how serious a filing signal is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// FilingSignal is one qualitative risk or opportunity signal extracted from
// filing text. At most one live instance exists per ID per scan.
type FilingSignal struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Score          int       `json:"score"`
	Severity       Severity  `json:"severity"`
	Snippet        string    `json:"snippet,omitempty"`
	Form           string    `json:"form,omitempty"`
	Filed          time.Time `json:"filed,omitempty"`
	DocURL         string    `json:"doc_url,omitempty"`
	IncludeInScore bool      `json:"include_in_score"`
	Note           string    `json:"note,omitempty"`
}

// InsiderTransaction is one insider trade record from a Form 4 style filing.
// Code follows the SEC transaction coding: "P" purchase, "S" sale.
type InsiderTransaction struct {
	Date time.Time `json:"date"`
	Code string    `json:"code"`
}
