package ports

import "context"

// Revoker revoca attestations on-chain de un usuario.
// La revocación espera confirmación de transacción, así que es LENTA —
// las implementaciones deben autolimitarse (rate limiting) y respetar ctx.
type Revoker interface {
	// RevokeAttestations revoca las attestations con los uids dados.
	// Devuelve cuántas se revocaron antes del primer error.
	RevokeAttestations(ctx context.Context, uids []string) (int, error)
}
