package domain

import (
	"sort"
	"time"
)

// MaxPortfolioAllocation es el cap agregado de bankroll asignable entre todas
// las posiciones recomendadas. Por encima se reescala proporcionalmente.
const MaxPortfolioAllocation = 0.8

// WatchedMarket es un mercado de la watchlist con la probabilidad estimada
// por el usuario. YesPrice puede venir en 0-100 o 0-1.
type WatchedMarket struct {
	MarketID             string
	Question             string
	YesPrice             float64
	EstimatedProbability float64
}

// PortfolioPosition es la recomendación de sizing para un mercado concreto.
type PortfolioPosition struct {
	MarketID         string
	Question         string
	Side             Side
	Edge             float64
	RawKellyFraction float64
	AdjustedFraction float64
	DollarAmount     float64
	WasCapped        bool
}

// PortfolioResult agrega las recomendaciones de toda la watchlist.
// Invariante: la suma de AdjustedFraction de las posiciones <= MaxPortfolioAllocation.
type PortfolioResult struct {
	Positions         []PortfolioPosition // ordenadas por edge descendente
	TotalAllocation   float64
	TotalDollarAmount float64
	WasScaled         bool
	ScaleFactor       float64 // 1.0 si no hubo reescalado
}

// Advice es un snapshot persistible de una ejecución del advisor.
type Advice struct {
	GeneratedAt time.Time
	Bankroll    float64
	Result      PortfolioResult
}

// CalculatePortfolioKelly ejecuta el sizing single-market sobre cada mercado y
// aplica el cap agregado del portfolio. Si la suma de fracciones ajustadas
// supera MaxPortfolioAllocation, cada posición se multiplica por
// MaxPortfolioAllocation/total — el reescalado preserva las proporciones
// relativas entre posiciones.
//
// Función pura y determinista: mismos inputs, mismo output.
func CalculatePortfolioKelly(markets []WatchedMarket, multiplier, bankroll, maxPositionSize float64) PortfolioResult {
	positions := make([]PortfolioPosition, 0, len(markets))

	for _, m := range markets {
		prob := NormalizePrice(m.EstimatedProbability) // misma regla >1 ⇒ /100
		res := CalculateKelly(prob, m.YesPrice, multiplier, maxPositionSize)

		if res.RecommendedSide == SideNone || res.RecommendedFraction <= 0 {
			continue
		}

		// Fracción Kelly completa (sin multiplicador ni cap), para mostrarla
		// junto a la ajustada.
		price := NormalizePrice(m.YesPrice)
		effProb, effPrice := prob, price
		if res.RecommendedSide == SideNo {
			effProb, effPrice = 1-prob, 1-price
		}
		rawKelly := (effProb - effPrice) / (1 - effPrice)

		positions = append(positions, PortfolioPosition{
			MarketID:         m.MarketID,
			Question:         m.Question,
			Side:             res.RecommendedSide,
			Edge:             res.Edge,
			RawKellyFraction: rawKelly,
			AdjustedFraction: res.RecommendedFraction,
			DollarAmount:     res.RecommendedFraction * bankroll,
			WasCapped:        res.WasCapped,
		})
	}

	total := 0.0
	for _, p := range positions {
		total += p.AdjustedFraction
	}

	scale := 1.0
	scaled := false
	if total > MaxPortfolioAllocation {
		scale = MaxPortfolioAllocation / total
		scaled = true
		for i := range positions {
			positions[i].AdjustedFraction *= scale
			positions[i].DollarAmount = positions[i].AdjustedFraction * bankroll
		}
		total = MaxPortfolioAllocation
	}

	// Mejores edges primero — orden de presentación
	sort.Slice(positions, func(i, j int) bool {
		return positions[i].Edge > positions[j].Edge
	})

	totalDollars := 0.0
	for _, p := range positions {
		totalDollars += p.DollarAmount
	}

	return PortfolioResult{
		Positions:         positions,
		TotalAllocation:   total,
		TotalDollarAmount: totalDollars,
		WasScaled:         scaled,
		ScaleFactor:       scale,
	}
}
