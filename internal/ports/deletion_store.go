package ports

import (
	"context"
	"errors"

	"github.com/alejandrodnm/foliotrack/internal/domain"
)

// ErrActiveRequestExists se devuelve al intentar crear una solicitud cuando
// el usuario ya tiene una activa (PENDING o IN_PROGRESS).
var ErrActiveRequestExists = errors.New("deletion request already pending or in progress")

// ErrRequestNotFound se devuelve cuando el id no existe.
var ErrRequestNotFound = errors.New("deletion request not found")

// DeletionStore persiste las solicitudes de borrado GDPR.
type DeletionStore interface {
	// CreateRequest inserta la solicitud. El check de "una activa por usuario"
	// se re-ejecuta DENTRO de la transacción de inserción — el
	// domain.CanCreateDeletionRequest del caller es solo consultivo.
	// Devuelve ErrActiveRequestExists si el usuario ya tiene una activa.
	CreateRequest(ctx context.Context, req domain.DeletionRequest) error

	// GetRequest devuelve la solicitud con el id dado, o ErrRequestNotFound.
	GetRequest(ctx context.Context, id string) (domain.DeletionRequest, error)

	// ListRequests devuelve todas las solicitudes del usuario, más recientes primero.
	ListRequests(ctx context.Context, userID string) ([]domain.DeletionRequest, error)

	// ClaimNextPending marca la solicitud PENDING más antigua como IN_PROGRESS
	// y la devuelve. Si no hay pendientes devuelve ErrRequestNotFound.
	ClaimNextPending(ctx context.Context) (domain.DeletionRequest, error)

	// SaveProgress persiste estado, timestamps y contadores de una solicitud en curso.
	SaveProgress(ctx context.Context, req domain.DeletionRequest) error
}
