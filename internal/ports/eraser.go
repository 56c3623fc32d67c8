package ports

import "context"

// Eraser ejecuta los pasos de borrado offchain sobre el storage local.
// Execute recibe el nombre del paso (domain.Step*) y devuelve cuántos items
// afectó. Los pasos opcionales pueden devolver (0, nil) si no aplican.
type Eraser interface {
	Execute(ctx context.Context, userID, step string) (int, error)
}
