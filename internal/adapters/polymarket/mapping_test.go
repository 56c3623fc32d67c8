package polymarket

import (
	"errors"
	"testing"
	"time"

	"github.com/alejandrodnm/foliotrack/internal/domain"
	"github.com/stretchr/testify/assert"
)

// --- yesTokenID ---

func TestYesTokenID_ByOutcome(t *testing.T) {
	m := clobMarket{Tokens: []clobToken{
		{TokenID: "tok-no", Outcome: "No"},
		{TokenID: "tok-yes", Outcome: "Yes"},
	}}
	assert.Equal(t, "tok-yes", yesTokenID(m))
}

func TestYesTokenID_FallbackFirstToken(t *testing.T) {
	m := clobMarket{Tokens: []clobToken{
		{TokenID: "tok-a", Outcome: "Up"},
		{TokenID: "tok-b", Outcome: "Down"},
	}}
	assert.Equal(t, "tok-a", yesTokenID(m))
}

func TestYesTokenID_NoTokens(t *testing.T) {
	assert.Equal(t, "", yesTokenID(clobMarket{}))
}

// --- mapMidpoints ---

func TestMapMidpoints_ParsesAndFilters(t *testing.T) {
	mids := mapMidpoints(midpointsResponse{
		"tok-1": "0.62",
		"tok-2": "not-a-number",
		"tok-3": "0",   // fuera de (0,1)
		"tok-4": "1.0", // fuera de (0,1)
	})

	assert.Len(t, mids, 1)
	assert.InDelta(t, 0.62, mids["tok-1"], 1e-9)
}

// --- enrichFromGamma ---

func TestEnrichFromGamma_Metadata(t *testing.T) {
	m := domain.Market{ConditionID: "0xabc"}
	enrichFromGamma(&m, gammaMarket{
		Question:   "Will X happen?",
		Slug:       "will-x-happen",
		EndDateISO: "2026-12-31T00:00:00Z",
	})

	assert.Equal(t, "Will X happen?", m.Question)
	assert.Equal(t, "will-x-happen", m.Slug)
	assert.Equal(t, time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC), m.EndDate)
}

func TestEnrichFromGamma_DateOnlyFormat(t *testing.T) {
	m := domain.Market{}
	enrichFromGamma(&m, gammaMarket{EndDateISO: "2026-06-01"})
	assert.Equal(t, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), m.EndDate)
}

func TestEnrichFromGamma_BadDateIgnored(t *testing.T) {
	m := domain.Market{}
	enrichFromGamma(&m, gammaMarket{EndDateISO: "someday"})
	assert.True(t, m.EndDate.IsZero())
}

// --- isNotFound ---

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(errors.New("client error 404: not found")))
	assert.False(t, isNotFound(errors.New("client error 400: bad request")))
	assert.False(t, isNotFound(nil))
}
