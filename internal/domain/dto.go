package domain

import "time"

// iso8601Millis es el formato de fecha del API JSON: ISO-8601 con precisión
// de milisegundos y designador UTC.
const iso8601Millis = "2006-01-02T15:04:05.000Z"

// DeletionRequestDTO es la representación serializable de una solicitud.
// Es exactamente el shape JSON que expone el API HTTP: las fechas van como
// strings ISO-8601 en UTC y las fechas nulas se mantienen como null.
type DeletionRequestDTO struct {
	ID                  string  `json:"id"`
	UserID              string  `json:"userId"`
	RequestType         string  `json:"requestType"`
	Reason              string  `json:"reason,omitempty"`
	Status              string  `json:"status"`
	CreatedAt           string  `json:"createdAt"`
	ProcessedAt         *string `json:"processedAt"`
	CompletedAt         *string `json:"completedAt"`
	AttestationsRevoked int     `json:"attestationsRevoked"`
	OffchainDataDeleted bool    `json:"offchainDataDeleted"`
}

// FormatDeletionRequest produce el DTO serializable de una solicitud.
// Todos los campos no-fecha se copian tal cual.
func FormatDeletionRequest(r DeletionRequest) DeletionRequestDTO {
	return DeletionRequestDTO{
		ID:                  r.ID,
		UserID:              r.UserID,
		RequestType:         string(r.RequestType),
		Reason:              r.Reason,
		Status:              string(r.Status),
		CreatedAt:           formatUTCMillis(r.CreatedAt),
		ProcessedAt:         formatOptionalUTCMillis(r.ProcessedAt),
		CompletedAt:         formatOptionalUTCMillis(r.CompletedAt),
		AttestationsRevoked: r.AttestationsRevoked,
		OffchainDataDeleted: r.OffchainDataDeleted,
	}
}

func formatUTCMillis(t time.Time) string {
	return t.UTC().Format(iso8601Millis)
}

func formatOptionalUTCMillis(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatUTCMillis(*t)
	return &s
}
