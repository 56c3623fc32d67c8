package ports

import "context"

// AttestationSource lista y marca las attestations registradas de un usuario.
// kind filtra por tipo ("forecast", "identity"); vacío = todas.
type AttestationSource interface {
	ListAttestationUIDs(ctx context.Context, userID, kind string) ([]string, error)

	// MarkRevoked persiste la revocación confirmada de los UIDs dados.
	MarkRevoked(ctx context.Context, uids []string) error
}
