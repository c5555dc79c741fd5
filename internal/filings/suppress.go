package filings

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// matchContext is the local text around one phrase occurrence.
type matchContext struct {
	// Before is up to narrowWindow characters preceding the match.
	Before string
	// Narrow is the match plus narrowWindow characters each side.
	Narrow string
	// Wide is the match plus wideWindow characters each side.
	Wide string
}

// suppressor is one independently testable suppression predicate. It
// returns a non-empty reason when the occurrence should be rejected.
type suppressor func(mc matchContext, def SignalDef) string

// suppressionChain is the ordered predicate chain applied to every match.
// Order matters only for which reason gets reported; any hit rejects.
var suppressionChain = []suppressor{
	suppressNegated,
	suppressBoilerplate,
	suppressHypothetical,
	suppressRetrospective,
	suppressResolved,
}

var negationTokens = []string{
	"no ", "not ", "without ", "neither ", "never ", "absence of ",
	"there is no ", "free of ",
}

// suppressNegated rejects a match directly preceded by a negation token,
// e.g. "no substantial doubt about going concern".
func suppressNegated(mc matchContext, _ SignalDef) string {
	for _, tok := range negationTokens {
		if strings.Contains(mc.Before, tok) {
			return "negated: " + strings.TrimSpace(tok)
		}
	}
	return ""
}

var boilerplateMarkers = []string{
	"forward-looking statements",
	"forward looking statements",
	"actual results could differ materially",
	"actual results could vary materially",
	"actual results may differ materially",
	"safe harbor",
	"risk factors",
	"risks and uncertainties that could cause",
}

var substantiveMarkers = []string{
	"management's discussion",
	"md&a",
	"liquidity and capital resources",
	"results of operations",
	"notes to the financial statements",
	"notes to financial statements",
	"notes to consolidated financial statements",
	"clinical results",
	"recent developments",
	"subsequent events",
}

// suppressBoilerplate rejects matches sitting inside legal boilerplate or
// forward-looking-statement sections, unless the wide context also shows
// an allow-listed substantive-section marker.
func suppressBoilerplate(mc matchContext, _ SignalDef) string {
	inBoilerplate := false
	for _, m := range boilerplateMarkers {
		if strings.Contains(mc.Wide, m) {
			inBoilerplate = true
			break
		}
	}
	if !inBoilerplate {
		return ""
	}
	for _, m := range substantiveMarkers {
		if strings.Contains(mc.Wide, m) {
			return ""
		}
	}
	return "boilerplate context"
}

var modalTokens = []string{"could ", "may ", "might ", "would "}

var concreteVerbs = []string{
	"received", "breached", "filed", "announced", "recorded", "identified",
	"issued", "entered into", "defaulted", "initiated", "completed",
	"commenced", "notified", "concluded", "disclosed", "resigned",
}

// suppressHypothetical rejects snippets dominated by modal language with
// no concrete verb: "we could experience a material weakness" is a risk
// disclosure, not an event.
func suppressHypothetical(mc matchContext, _ SignalDef) string {
	modals := 0
	for _, m := range modalTokens {
		modals += strings.Count(mc.Narrow, m)
	}
	if modals < 2 {
		return ""
	}
	for _, v := range concreteVerbs {
		if strings.Contains(mc.Narrow, v) {
			return ""
		}
	}
	return "hypothetical language"
}

var retrospectiveTokens = []string{
	"historically", "previously identified", "previously disclosed",
	"previously reported", "in prior years", "in prior periods",
	"was subsequently", "had been",
}

// suppressRetrospective rejects matches framed as resolved past events.
func suppressRetrospective(mc matchContext, _ SignalDef) string {
	for _, tok := range retrospectiveTokens {
		if strings.Contains(mc.Before, tok) || strings.Contains(mc.Narrow, tok) {
			return "retrospective framing"
		}
	}
	return ""
}

// suppressResolved applies signal-specific resolution phrases, e.g. a
// clinical-hold mention followed by "lifted" in the wide context.
func suppressResolved(mc matchContext, def SignalDef) string {
	for _, r := range def.Resolutions {
		if strings.Contains(mc.Wide, r) {
			return "resolution phrase: " + r
		}
	}
	return ""
}

// normalizeText prepares filing text for scanning: unicode NFKC so typographic
// variants collapse to ASCII forms, lowercase, whitespace runs collapsed.
func normalizeText(text string) string {
	text = norm.NFKC.String(text)
	text = strings.ToLower(text)

	var b strings.Builder
	b.Grow(len(text))
	space := false
	for _, r := range text {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == ' ' {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}
