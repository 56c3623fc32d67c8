package ports

import (
	"context"

	"github.com/alejandrodnm/foliotrack/internal/domain"
)

// MarketProvider obtiene el estado actual de los mercados de la watchlist.
type MarketProvider interface {
	// FetchWatchedMarkets devuelve los mercados para los condition_ids dados,
	// con metadata de Gamma y midpoint YES actual del CLOB.
	// Los mercados que la API no conoce se omiten del resultado.
	FetchWatchedMarkets(ctx context.Context, conditionIDs []string) ([]domain.Market, error)
}
