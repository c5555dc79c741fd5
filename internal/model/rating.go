package model

import "time"

// RuleOutcome records how one scoring rule evaluated, in catalog order.
type RuleOutcome struct {
	Name          string  `json:"name"`
	Score         float64 `json:"score"`
	Message       string  `json:"message"`
	Missing       bool    `json:"missing,omitempty"`
	NotApplicable bool    `json:"not_applicable,omitempty"`
	// Basis describes which window/fields the rule read, e.g. "ttm" or
	// "yoy q/2025-06-30".
	Basis string `json:"basis,omitempty"`
}

// Completeness tracks how many catalog rules could actually evaluate.
type Completeness struct {
	Total         int     `json:"total"`
	Applicable    int     `json:"applicable"`
	Missing       int     `json:"missing"`
	NotApplicable int     `json:"not_applicable"`
	Pct           float64 `json:"pct"`
}

// RatingResult is the composite output of the rating engine. It is a pure
// function of its inputs and is recomputed on every build, never persisted
// as authoritative state.
type RatingResult struct {
	Ticker          string         `json:"ticker"`
	RawScore        float64        `json:"raw_score"`
	NormalizedScore float64        `json:"normalized_score"`
	Tier            string         `json:"tier"`
	Reasons         []RuleOutcome  `json:"reasons"`
	Completeness    Completeness   `json:"completeness"`
	SignalScore     int            `json:"signal_score"`
	Signals         []FilingSignal `json:"signals,omitempty"`
	OverrideNotes   []string       `json:"override_notes,omitempty"`
	MissingNotes    []string       `json:"missing_notes,omitempty"`
	Narrative       string         `json:"narrative,omitempty"`
	RatedAt         time.Time      `json:"rated_at"`
}
