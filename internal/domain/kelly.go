package domain

// Side es el lado recomendado de una posición en un mercado binario.
type Side string

const (
	SideYes  Side = "YES"
	SideNo   Side = "NO"
	SideNone Side = "NONE"
)

// Parámetros por defecto del sizing. El multiplicador 0.5 (half-Kelly) reduce
// la varianza frente a errores en la probabilidad estimada.
const (
	DefaultFractionMultiplier = 0.5
	DefaultMaxPositionSize    = 0.25
)

// KellyResult es el resultado del cálculo de sizing para un mercado.
// Si HasPositiveEdge es false el resultado NO es accionable:
// RecommendedFraction es 0 y RecommendedSide es NONE.
type KellyResult struct {
	RecommendedFraction float64 // fracción del bankroll, siempre <= maxPositionSize
	Edge                float64 // probabilidad estimada - precio implícito (del lado elegido)
	EdgePercentage      float64 // edge / precio efectivo × 100
	HasPositiveEdge     bool
	ExpectedValue       float64 // EV por dólar apostado al lado elegido
	RecommendedSide     Side
	WasCapped           bool // true si el cap recortó la fracción ajustada
}

// NormalizePrice acepta precios en formato porcentual (0-100) o fraccional (0-1).
// Valores > 1 se interpretan como porcentaje y se dividen entre 100.
func NormalizePrice(price float64) float64 {
	if price > 1 {
		return price / 100
	}
	return price
}

// CalculateKelly calcula el sizing fraccional-Kelly para un mercado binario.
//
// Fórmula (lado elegido, precio efectivo q):
//
//	f* = (p - q) / (1 - q)
//	recomendada = min(f* × fractionMultiplier, maxPositionSize)
//
// El precio puede venir en 0-100 o 0-1 (se normaliza). La probabilidad debe
// venir ya en (0,1): fuera de rango, o con precio efectivo degenerado
// (<= 0 o >= 1, que haría dividir entre cero), devuelve el resultado NONE.
func CalculateKelly(estimatedProbability, marketPrice, fractionMultiplier, maxPositionSize float64) KellyResult {
	price := NormalizePrice(marketPrice)

	if estimatedProbability <= 0 || estimatedProbability >= 1 || price <= 0 || price >= 1 {
		return KellyResult{RecommendedSide: SideNone}
	}

	// noEdge es siempre -yesEdge (identidad algebraica del mercado binario:
	// (1-p) - (1-q) = q - p). Se mantienen las dos ramas porque el tie-break
	// observable depende de evaluar ambos lados explícitamente.
	yesEdge := estimatedProbability - price
	noPrice := 1 - price
	noEdge := (1 - estimatedProbability) - noPrice

	var side Side
	var effProb, effPrice, edge float64

	switch {
	case yesEdge > noEdge && yesEdge > 0:
		side = SideYes
		effProb = estimatedProbability
		effPrice = price
		edge = yesEdge
	case noEdge > 0:
		side = SideNo
		effProb = 1 - estimatedProbability
		effPrice = noPrice
		edge = noEdge
	default:
		// Sin edge positivo en ningún lado: resultado no accionable.
		return KellyResult{
			Edge:            maxEdge(yesEdge, noEdge),
			RecommendedSide: SideNone,
		}
	}

	rawKelly := (effProb - effPrice) / (1 - effPrice)
	adjusted := rawKelly * fractionMultiplier

	capped := adjusted > maxPositionSize
	if capped {
		adjusted = maxPositionSize
	}
	if adjusted < 0 {
		adjusted = 0 // no debería dispararse: la rama exige edge > 0
	}

	return KellyResult{
		RecommendedFraction: adjusted,
		Edge:                edge,
		EdgePercentage:      (edge / effPrice) * 100,
		HasPositiveEdge:     true,
		ExpectedValue:       edge / effPrice,
		RecommendedSide:     side,
		WasCapped:           capped,
	}
}

func maxEdge(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
