package domain

import (
	"fmt"
	"time"
)

// DeletionRequestType es el alcance de una solicitud de borrado GDPR.
type DeletionRequestType string

const (
	DeletionFullAccount   DeletionRequestType = "FULL_ACCOUNT"
	DeletionForecastsOnly DeletionRequestType = "FORECASTS_ONLY"
	DeletionPIIOnly       DeletionRequestType = "PII_ONLY"
)

// DeletionStatus es el estado del ciclo de vida de una solicitud.
// PENDING → IN_PROGRESS → COMPLETED | FAILED. Los terminales son absorbentes.
type DeletionStatus string

const (
	StatusPending    DeletionStatus = "PENDING"
	StatusInProgress DeletionStatus = "IN_PROGRESS"
	StatusCompleted  DeletionStatus = "COMPLETED"
	StatusFailed     DeletionStatus = "FAILED"
)

// IsTerminal devuelve true para COMPLETED y FAILED.
func (s DeletionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// IsActive devuelve true para los estados que bloquean una nueva solicitud.
func (s DeletionStatus) IsActive() bool {
	return s == StatusPending || s == StatusInProgress
}

// DeletionRequest es una solicitud de borrado de datos de un usuario.
// Solo puede existir una solicitud activa (PENDING/IN_PROGRESS) por usuario.
type DeletionRequest struct {
	ID                  string
	UserID              string
	RequestType         DeletionRequestType
	Reason              string // vacío = sin motivo indicado
	Status              DeletionStatus
	CreatedAt           time.Time
	ProcessedAt         *time.Time
	CompletedAt         *time.Time
	AttestationsRevoked int
	OffchainDataDeleted bool
}

// DeletionStep es un paso del plan de borrado. Order es 1-based, denso y
// estrictamente creciente con la posición en la lista.
type DeletionStep struct {
	Name     string
	Order    int
	Required bool
}

// DataCounts son los conteos de items por tipo para un usuario, obtenidos
// de un colaborador externo (el storage en esta app).
type DataCounts struct {
	Forecasts    int
	Positions    int
	Transactions int
	Attestations int
	Wallets      int
}

// DeletionPlan compone los pasos estáticos con los conteos estimados.
type DeletionPlan struct {
	UserID         string
	RequestType    DeletionRequestType
	Steps          []DeletionStep
	EstimatedItems DataCounts
}

// Nombres de pasos. Las tablas son estáticas por tipo de solicitud.
const (
	StepRevokeAttestations         = "revoke_attestations"
	StepDeleteForecasts            = "delete_forecasts"
	StepDeletePositions            = "delete_positions"
	StepDeleteTransactions         = "delete_transactions"
	StepDeleteWallets              = "delete_wallets"
	StepAnonymizePII               = "anonymize_pii"
	StepDeleteOffchainData         = "delete_offchain_data"
	StepDeleteUser                 = "delete_user"
	StepRevokeForecastAttestations = "revoke_forecast_attestations"
	StepResetCalibration           = "reset_calibration"
	StepAnonymizeUser              = "anonymize_user"
	StepScrubWalletLinks           = "scrub_wallet_links"
	StepDeleteAvatar               = "delete_avatar"
)

// DeletionSteps devuelve el plan ordenado de pasos para el tipo dado.
// Tipos desconocidos devuelven nil.
func DeletionSteps(t DeletionRequestType) []DeletionStep {
	switch t {
	case DeletionFullAccount:
		return []DeletionStep{
			{Name: StepRevokeAttestations, Order: 1, Required: true},
			{Name: StepDeleteForecasts, Order: 2, Required: true},
			{Name: StepDeletePositions, Order: 3, Required: true},
			{Name: StepDeleteTransactions, Order: 4, Required: true},
			{Name: StepDeleteWallets, Order: 5, Required: true},
			{Name: StepAnonymizePII, Order: 6, Required: true},
			{Name: StepDeleteOffchainData, Order: 7, Required: true},
			{Name: StepDeleteUser, Order: 8, Required: true},
		}
	case DeletionForecastsOnly:
		return []DeletionStep{
			{Name: StepRevokeForecastAttestations, Order: 1, Required: true},
			{Name: StepDeleteForecasts, Order: 2, Required: true},
			{Name: StepResetCalibration, Order: 3, Required: true},
		}
	case DeletionPIIOnly:
		return []DeletionStep{
			{Name: StepAnonymizeUser, Order: 1, Required: true},
			{Name: StepScrubWalletLinks, Order: 2, Required: true},
			{Name: StepDeleteAvatar, Order: 3, Required: false},
		}
	default:
		return nil
	}
}

// NewDeletionPlan compone el plan para un usuario. No valida nada:
// la validación es responsabilidad de ValidateDeletionRequest.
func NewDeletionPlan(userID string, t DeletionRequestType, counts DataCounts) DeletionPlan {
	return DeletionPlan{
		UserID:         userID,
		RequestType:    t,
		Steps:          DeletionSteps(t),
		EstimatedItems: counts,
	}
}

// MaxReasonLength es el límite de caracteres del campo reason.
const MaxReasonLength = 1000

// DeletionRequestInput son los campos que el usuario aporta al crear una solicitud.
type DeletionRequestInput struct {
	UserID      string
	RequestType DeletionRequestType
	Reason      string
}

// ValidationResult acumula TODOS los errores aplicables — un formulario o un
// handler HTTP puede mostrarlos todos a la vez en lugar de uno por round-trip.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// ValidateDeletionRequest valida el input sin cortocircuitar.
func ValidateDeletionRequest(input DeletionRequestInput) ValidationResult {
	var errs []string

	if input.UserID == "" {
		errs = append(errs, "userId is required")
	}
	switch input.RequestType {
	case DeletionFullAccount, DeletionForecastsOnly, DeletionPIIOnly:
	default:
		errs = append(errs, "requestType must be FULL_ACCOUNT, FORECASTS_ONLY, or PII_ONLY")
	}
	if len(input.Reason) > MaxReasonLength {
		errs = append(errs, fmt.Sprintf("reason must be %d characters or less", MaxReasonLength))
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// ErrActiveRequestReason es el motivo devuelto cuando ya existe una solicitud activa.
const ErrActiveRequestReason = "A deletion request is already pending or in progress"

// CreateCheck es el resultado consultivo de CanCreateDeletionRequest.
type CreateCheck struct {
	Allowed bool
	Reason  string
}

// CanCreateDeletionRequest decide, sobre un snapshot de solicitudes existentes,
// si el usuario puede crear una nueva. COMPLETED y FAILED nunca bloquean.
//
// Es solo consultivo: el check definitivo lo hace el store dentro de una
// transacción para evitar la carrera check-then-insert.
func CanCreateDeletionRequest(existing []DeletionRequest) CreateCheck {
	for _, r := range existing {
		if r.Status.IsActive() {
			return CreateCheck{Allowed: false, Reason: ErrActiveRequestReason}
		}
	}
	return CreateCheck{Allowed: true}
}

// Pesos de la estimación de duración, en segundos por item. Las attestations
// dominan: la revocación on-chain espera confirmación de transacción.
const (
	secsPerForecast    = 0.5
	secsPerPosition    = 0.5
	secsPerTransaction = 0.2
	secsPerAttestation = 15.0
	secsPerWallet      = 1.0
)

// TimeEstimate es el rango estimado de duración del borrado.
type TimeEstimate struct {
	MinMinutes  int
	MaxMinutes  int
	Description string
}

// EstimateDeletionTime estima la duración del borrado en minutos.
// Monótona no-decreciente en cada conteo; el peso por attestation es un orden
// de magnitud mayor que el resto. El máximo asume el doble del tiempo base
// (congestión on-chain, reintentos).
func EstimateDeletionTime(counts DataCounts) TimeEstimate {
	seconds := float64(counts.Forecasts)*secsPerForecast +
		float64(counts.Positions)*secsPerPosition +
		float64(counts.Transactions)*secsPerTransaction +
		float64(counts.Attestations)*secsPerAttestation +
		float64(counts.Wallets)*secsPerWallet

	minMins := int(seconds / 60)
	maxMins := int(seconds*2/60 + 0.999) // ceil

	if maxMins < 1 {
		return TimeEstimate{Description: "Less than a minute"}
	}
	return TimeEstimate{
		MinMinutes:  minMins,
		MaxMinutes:  maxMins,
		Description: fmt.Sprintf("%d-%d minutes", minMins, maxMins),
	}
}

// NextStatus es la función de transición de estado, evaluada en este orden
// de precedencia:
//
//  1. hasError → FAILED, venga de donde venga (incluso con allStepsComplete).
//  2. PENDING → IN_PROGRESS.
//  3. IN_PROGRESS + completo → COMPLETED.
//  4. IN_PROGRESS + incompleto → IN_PROGRESS.
//  5. COMPLETED y FAILED son puntos fijos.
//
// Contrato del caller: no invocar sobre un registro ya terminal (COMPLETED o
// FAILED) — los terminales no se reprocesan y no deben moverse.
func NextStatus(current DeletionStatus, allStepsComplete, hasError bool) DeletionStatus {
	if hasError {
		return StatusFailed
	}

	switch current {
	case StatusPending:
		return StatusInProgress
	case StatusInProgress:
		if allStepsComplete {
			return StatusCompleted
		}
		return StatusInProgress
	case StatusCompleted:
		return StatusCompleted
	case StatusFailed:
		return StatusFailed
	default:
		return current
	}
}
