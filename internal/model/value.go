package model

import "math"

// IsFiniteValue reports whether v holds a usable finite number.
// It is the single discriminator for "missing" vs "zero" vs "invalid":
// nil means the field was never reported, NaN/Inf mean the upstream
// record was corrupt, and both are treated as absent.
func IsFiniteValue(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0)
}

// Float returns a pointer to v. Convenience for building records and fixtures.
func Float(v float64) *float64 { return &v }

// ValueOr returns the value of v, or def when v is missing or non-finite.
func ValueOr(v *float64, def float64) float64 {
	if !IsFiniteValue(v) {
		return def
	}
	return *v
}

// SumValues adds the given optional values. It returns nil unless every
// input is a finite value: partial sums are never presented as totals.
func SumValues(vals ...*float64) *float64 {
	total := 0.0
	for _, v := range vals {
		if !IsFiniteValue(v) {
			return nil
		}
		total += *v
	}
	return &total
}

// Ratio returns num/den as a new optional value, nil when either side is
// missing or den is zero.
func Ratio(num, den *float64) *float64 {
	if !IsFiniteValue(num) || !IsFiniteValue(den) || *den == 0 {
		return nil
	}
	r := *num / *den
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return nil
	}
	return &r
}

// PctChange returns the percentage change from prev to cur, nil when either
// is missing or prev is zero.
func PctChange(cur, prev *float64) *float64 {
	if !IsFiniteValue(cur) || !IsFiniteValue(prev) || *prev == 0 {
		return nil
	}
	p := (*cur - *prev) / math.Abs(*prev) * 100
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return nil
	}
	return &p
}
