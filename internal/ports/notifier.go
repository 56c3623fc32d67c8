package ports

import (
	"context"

	"github.com/alejandrodnm/foliotrack/internal/domain"
)

// Notifier presenta el advice del portfolio al usuario.
type Notifier interface {
	// Notify muestra el resultado del sizing. En la implementación de consola,
	// imprime una tabla formateada o una línea compacta.
	Notify(ctx context.Context, advice domain.Advice) error
}
