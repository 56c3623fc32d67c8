package ports

import (
	"context"

	"github.com/alejandrodnm/foliotrack/internal/domain"
)

// DataCounter cuenta los items de un usuario por tipo de dato.
// Alimenta la estimación de duración y el plan de borrado.
type DataCounter interface {
	CountUserData(ctx context.Context, userID string) (domain.DataCounts, error)
}
