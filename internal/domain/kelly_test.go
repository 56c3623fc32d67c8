package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// --- CalculateKelly: selección de lado ---

func TestCalculateKelly_YesEdge(t *testing.T) {
	res := CalculateKelly(0.6, 0.5, DefaultFractionMultiplier, DefaultMaxPositionSize)

	assert.Equal(t, SideYes, res.RecommendedSide)
	assert.True(t, res.HasPositiveEdge)
	assert.InDelta(t, 0.1, res.Edge, 1e-9)
	// raw = (0.6-0.5)/(1-0.5) = 0.2 → half-Kelly 0.1
	assert.InDelta(t, 0.1, res.RecommendedFraction, 1e-9)
	assert.InDelta(t, 20.0, res.EdgePercentage, 1e-9)
	assert.False(t, res.WasCapped)
}

func TestCalculateKelly_NoEdge(t *testing.T) {
	res := CalculateKelly(0.3, 0.5, DefaultFractionMultiplier, DefaultMaxPositionSize)

	assert.Equal(t, SideNo, res.RecommendedSide)
	assert.True(t, res.HasPositiveEdge)
	// noEdge = (1-0.3) - (1-0.5) = 0.2
	assert.InDelta(t, 0.2, res.Edge, 1e-9)
	// raw = (0.7-0.5)/(1-0.5) = 0.4 → half-Kelly 0.2
	assert.InDelta(t, 0.2, res.RecommendedFraction, 1e-9)
}

func TestCalculateKelly_NoEdgeEitherSide(t *testing.T) {
	// p == price → sin edge en ningún lado
	res := CalculateKelly(0.5, 0.5, DefaultFractionMultiplier, DefaultMaxPositionSize)

	assert.False(t, res.HasPositiveEdge)
	assert.Equal(t, SideNone, res.RecommendedSide)
	assert.Equal(t, 0.0, res.RecommendedFraction)
	assert.InDelta(t, 0.0, res.Edge, 1e-9)
}

func TestCalculateKelly_NegativeEdgeBothSides_ReturnsMaxEdge(t *testing.T) {
	// p ligeramente por debajo del precio: yesEdge < 0, noEdge = -yesEdge > 0 → NO gana.
	// Para que ambos lados sean <= 0 hace falta p == price exacto; cualquier
	// diferencia da edge positivo a un lado (identidad noEdge = -yesEdge).
	res := CalculateKelly(0.49, 0.5, DefaultFractionMultiplier, DefaultMaxPositionSize)
	assert.Equal(t, SideNo, res.RecommendedSide)
	assert.InDelta(t, 0.01, res.Edge, 1e-9)
}

// --- CalculateKelly: normalización y cap ---

func TestCalculateKelly_PercentagePriceNormalized(t *testing.T) {
	a := CalculateKelly(0.6, 50, DefaultFractionMultiplier, DefaultMaxPositionSize)
	b := CalculateKelly(0.6, 0.5, DefaultFractionMultiplier, DefaultMaxPositionSize)
	assert.Equal(t, b, a)
}

func TestCalculateKelly_Capped(t *testing.T) {
	// raw = (0.9-0.5)/0.5 = 0.8 → half 0.4 > cap 0.25
	res := CalculateKelly(0.9, 0.5, DefaultFractionMultiplier, DefaultMaxPositionSize)

	assert.True(t, res.WasCapped)
	assert.InDelta(t, DefaultMaxPositionSize, res.RecommendedFraction, 1e-9)
}

func TestCalculateKelly_UncappedEqualsRawTimesMultiplier(t *testing.T) {
	for _, tc := range []struct{ p, price float64 }{
		{0.55, 0.50},
		{0.62, 0.58},
		{0.35, 0.40},
	} {
		res := CalculateKelly(tc.p, tc.price, DefaultFractionMultiplier, DefaultMaxPositionSize)
		if !res.HasPositiveEdge || res.WasCapped {
			continue
		}
		effProb, effPrice := tc.p, tc.price
		if res.RecommendedSide == SideNo {
			effProb, effPrice = 1-tc.p, 1-tc.price
		}
		raw := (effProb - effPrice) / (1 - effPrice)
		assert.InDelta(t, raw*DefaultFractionMultiplier, res.RecommendedFraction, 1e-9)
		assert.LessOrEqual(t, res.RecommendedFraction, DefaultMaxPositionSize)
	}
}

// --- CalculateKelly: inputs degenerados ---

func TestCalculateKelly_DegenerateInputs(t *testing.T) {
	for name, res := range map[string]KellyResult{
		"prob cero":        CalculateKelly(0, 0.5, 0.5, 0.25),
		"prob uno":         CalculateKelly(1, 0.5, 0.5, 0.25),
		"prob fuera rango": CalculateKelly(1.2, 0.5, 0.5, 0.25),
		"precio cero":      CalculateKelly(0.6, 0, 0.5, 0.25),
		"precio uno":       CalculateKelly(0.6, 1, 0.5, 0.25),
		"precio 100pct":    CalculateKelly(0.6, 100, 0.5, 0.25), // normaliza a 1.0
	} {
		assert.Equal(t, SideNone, res.RecommendedSide, name)
		assert.False(t, res.HasPositiveEdge, name)
		assert.Equal(t, 0.0, res.RecommendedFraction, name)
	}
}

// --- NormalizePrice ---

func TestNormalizePrice(t *testing.T) {
	assert.Equal(t, 0.72, NormalizePrice(0.72))
	assert.Equal(t, 0.72, NormalizePrice(72))
	assert.Equal(t, 1.0, NormalizePrice(1.0))
}
