package filings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeText(t *testing.T) {
	got := normalizeText("Substantial  Doubt\n\tAbout   GOING Concern")
	assert.Equal(t, "substantial doubt about going concern", got)
}

func TestSuppressNegated(t *testing.T) {
	mc := matchContext{Before: "the company believes there is no substantial doubt about "}
	assert.NotEmpty(t, suppressNegated(mc, SignalDef{}))

	mc = matchContext{Before: "management concluded that there is substantial doubt about "}
	assert.Empty(t, suppressNegated(mc, SignalDef{}))
}

func TestSuppressBoilerplate(t *testing.T) {
	boiler := matchContext{Wide: "this report contains forward-looking statements and actual results could differ materially from the risks described"}
	assert.NotEmpty(t, suppressBoilerplate(boiler, SignalDef{}))

	rescued := matchContext{Wide: "forward-looking statements ... see liquidity and capital resources where we recorded an impairment charge"}
	assert.Empty(t, suppressBoilerplate(rescued, SignalDef{}),
		"a substantive-section marker overrides the boilerplate rejection")

	clean := matchContext{Wide: "during the quarter we recorded an impairment charge of $40 million"}
	assert.Empty(t, suppressBoilerplate(clean, SignalDef{}))
}

func TestSuppressHypothetical(t *testing.T) {
	modal := matchContext{Narrow: "we may be subject to events that could result in a clinical hold and may delay trials"}
	assert.NotEmpty(t, suppressHypothetical(modal, SignalDef{}))

	concrete := matchContext{Narrow: "we received notice that the fda placed a clinical hold, which may delay and could impact trials"}
	assert.Empty(t, suppressHypothetical(concrete, SignalDef{}),
		"a concrete verb defeats the modal-density rejection")

	single := matchContext{Narrow: "the trial could face a clinical hold"}
	assert.Empty(t, suppressHypothetical(single, SignalDef{}), "one modal is not domination")
}

func TestSuppressRetrospective(t *testing.T) {
	mc := matchContext{Before: "historically, the company ", Narrow: "historically, the company identified a material weakness"}
	assert.NotEmpty(t, suppressRetrospective(mc, SignalDef{}))

	mc = matchContext{Before: "during the current quarter we ", Narrow: "we identified a material weakness"}
	assert.Empty(t, suppressRetrospective(mc, SignalDef{}))
}

func TestSuppressResolved(t *testing.T) {
	def := SignalDef{Resolutions: []string{"lifted", "resumed enrollment"}}

	mc := matchContext{Wide: "the fda placed a clinical hold in january; the hold was lifted in march"}
	assert.NotEmpty(t, suppressResolved(mc, def))

	mc = matchContext{Wide: "the fda placed a clinical hold in january and the trial remains paused"}
	assert.Empty(t, suppressResolved(mc, def))

	assert.Empty(t, suppressResolved(mc, SignalDef{}), "no resolutions defined")
}
