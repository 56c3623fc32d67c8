package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/foliotrack/internal/domain"
)

// AdviceStore persiste los snapshots de advice del advisor.
type AdviceStore interface {
	// SaveAdvice persiste el resultado de una ejecución del advisor.
	SaveAdvice(ctx context.Context, advice domain.Advice) error

	// AdviceHistory devuelve los snapshots registrados en el rango dado,
	// más recientes primero.
	AdviceHistory(ctx context.Context, from, to time.Time) ([]domain.Advice, error)
}
