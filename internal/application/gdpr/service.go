// Package gdpr orquesta el ciclo de vida de las solicitudes de borrado:
// creación validada, estimación de duración y ejecución paso a paso del plan.
package gdpr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alejandrodnm/foliotrack/internal/domain"
	"github.com/alejandrodnm/foliotrack/internal/ports"
	"github.com/google/uuid"
)

// ErrInvalidRequest envuelve los errores de validación del input.
type ErrInvalidRequest struct {
	Errors []string
}

func (e *ErrInvalidRequest) Error() string {
	return "gdpr: invalid request: " + strings.Join(e.Errors, "; ")
}

// Service coordina las solicitudes de borrado contra el storage, el revoker
// on-chain y el eraser offchain.
type Service struct {
	store        ports.DeletionStore
	counter      ports.DataCounter
	eraser       ports.Eraser
	revoker      ports.Revoker
	attestations ports.AttestationSource
	now          func() time.Time
	newID        func() string
}

// New crea un Service con todas las dependencias inyectadas.
func New(
	store ports.DeletionStore,
	counter ports.DataCounter,
	eraser ports.Eraser,
	revoker ports.Revoker,
	attestations ports.AttestationSource,
) *Service {
	return &Service{
		store:        store,
		counter:      counter,
		eraser:       eraser,
		revoker:      revoker,
		attestations: attestations,
		now:          time.Now,
		newID:        uuid.NewString,
	}
}

// CreateRequest valida el input y registra una solicitud PENDING.
// Devuelve *ErrInvalidRequest si el input no valida y
// ports.ErrActiveRequestExists si el usuario ya tiene una solicitud activa.
func (s *Service) CreateRequest(ctx context.Context, input domain.DeletionRequestInput) (domain.DeletionRequest, error) {
	if v := domain.ValidateDeletionRequest(input); !v.Valid {
		return domain.DeletionRequest{}, &ErrInvalidRequest{Errors: v.Errors}
	}

	// Check consultivo sobre el historial; el definitivo lo hace el store
	// dentro de su transacción.
	existing, err := s.store.ListRequests(ctx, input.UserID)
	if err != nil {
		return domain.DeletionRequest{}, fmt.Errorf("gdpr.CreateRequest: list existing: %w", err)
	}
	if check := domain.CanCreateDeletionRequest(existing); !check.Allowed {
		return domain.DeletionRequest{}, ports.ErrActiveRequestExists
	}

	req := domain.DeletionRequest{
		ID:          s.newID(),
		UserID:      input.UserID,
		RequestType: input.RequestType,
		Reason:      input.Reason,
		Status:      domain.StatusPending,
		CreatedAt:   s.now().UTC(),
	}

	if err := s.store.CreateRequest(ctx, req); err != nil {
		return domain.DeletionRequest{}, err
	}

	slog.Info("deletion request created",
		"request_id", req.ID,
		"user_id", req.UserID,
		"type", req.RequestType,
	)
	return req, nil
}

// GetRequest devuelve una solicitud por id.
func (s *Service) GetRequest(ctx context.Context, id string) (domain.DeletionRequest, error) {
	return s.store.GetRequest(ctx, id)
}

// ListRequests devuelve el historial de solicitudes del usuario.
func (s *Service) ListRequests(ctx context.Context, userID string) ([]domain.DeletionRequest, error) {
	return s.store.ListRequests(ctx, userID)
}

// Estimate cuenta los datos del usuario y devuelve el plan con su estimación
// de duración.
func (s *Service) Estimate(ctx context.Context, userID string, t domain.DeletionRequestType) (domain.DeletionPlan, domain.TimeEstimate, error) {
	counts, err := s.counter.CountUserData(ctx, userID)
	if err != nil {
		return domain.DeletionPlan{}, domain.TimeEstimate{}, fmt.Errorf("gdpr.Estimate: count user data: %w", err)
	}

	plan := domain.NewDeletionPlan(userID, t, counts)
	return plan, domain.EstimateDeletionTime(counts), nil
}

// ProcessRequest ejecuta el plan completo de una solicitud IN_PROGRESS.
// Las transiciones de estado siguen domain.NextStatus: cualquier error de un
// paso requerido termina la solicitud en FAILED; un plan completo sin errores
// termina en COMPLETED.
func (s *Service) ProcessRequest(ctx context.Context, req domain.DeletionRequest) (domain.DeletionRequest, error) {
	if req.Status.IsTerminal() {
		return req, fmt.Errorf("gdpr.ProcessRequest: request %s already %s", req.ID, req.Status)
	}

	if req.Status == domain.StatusPending {
		req.Status = domain.NextStatus(req.Status, false, false)
		now := s.now().UTC()
		req.ProcessedAt = &now
		if err := s.store.SaveProgress(ctx, req); err != nil {
			return req, fmt.Errorf("gdpr.ProcessRequest: claim: %w", err)
		}
	}

	steps := domain.DeletionSteps(req.RequestType)
	stepErr := s.walkSteps(ctx, &req, steps)

	req.Status = domain.NextStatus(req.Status, stepErr == nil, stepErr != nil)
	if req.Status.IsTerminal() {
		now := s.now().UTC()
		req.CompletedAt = &now
	}

	if err := s.store.SaveProgress(ctx, req); err != nil {
		return req, fmt.Errorf("gdpr.ProcessRequest: save final state: %w", err)
	}

	if stepErr != nil {
		slog.Error("deletion request failed",
			"request_id", req.ID,
			"user_id", req.UserID,
			"err", stepErr,
		)
		return req, stepErr
	}

	slog.Info("deletion request completed",
		"request_id", req.ID,
		"user_id", req.UserID,
		"type", req.RequestType,
		"attestations_revoked", req.AttestationsRevoked,
	)
	return req, nil
}

// walkSteps ejecuta los pasos en orden, actualizando los contadores de la
// solicitud. Los pasos opcionales no abortan el plan si fallan.
func (s *Service) walkSteps(ctx context.Context, req *domain.DeletionRequest, steps []domain.DeletionStep) error {
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("step %s: %w", step.Name, err)
		}

		var err error
		switch step.Name {
		case domain.StepRevokeAttestations:
			err = s.revokeStep(ctx, req, "")
		case domain.StepRevokeForecastAttestations:
			err = s.revokeStep(ctx, req, "forecast")
		case domain.StepDeleteOffchainData:
			var n int
			n, err = s.eraser.Execute(ctx, req.UserID, step.Name)
			if err == nil && n >= 0 {
				req.OffchainDataDeleted = true
			}
		default:
			_, err = s.eraser.Execute(ctx, req.UserID, step.Name)
		}

		if err != nil {
			if !step.Required {
				slog.Warn("optional step failed, continuing",
					"request_id", req.ID, "step", step.Name, "err", err)
				continue
			}
			return fmt.Errorf("step %s: %w", step.Name, err)
		}

		slog.Debug("deletion step done", "request_id", req.ID, "step", step.Name)
	}
	return nil
}

// revokeStep lista las attestations del usuario, las revoca on-chain y marca
// las confirmadas en el storage. El conteo parcial se persiste aunque falle.
func (s *Service) revokeStep(ctx context.Context, req *domain.DeletionRequest, kind string) error {
	uids, err := s.attestations.ListAttestationUIDs(ctx, req.UserID, kind)
	if err != nil {
		return fmt.Errorf("list attestations: %w", err)
	}
	if len(uids) == 0 {
		return nil
	}

	revoked, revokeErr := s.revoker.RevokeAttestations(ctx, uids)
	req.AttestationsRevoked += revoked

	if revoked > 0 {
		if err := s.attestations.MarkRevoked(ctx, uids[:revoked]); err != nil {
			return fmt.Errorf("mark revoked: %w", err)
		}
	}
	if revokeErr != nil {
		return fmt.Errorf("revoke attestations: %w", revokeErr)
	}
	return nil
}

// ProcessPending ejecuta el worker: reclama y procesa solicitudes PENDING
// hasta que el contexto se cancele.
func (s *Service) ProcessPending(ctx context.Context, interval time.Duration) error {
	slog.Info("gdpr worker starting", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("gdpr worker stopped")
			return nil
		case <-ticker.C:
			s.drainPending(ctx)
		}
	}
}

// drainPending procesa todas las solicitudes PENDING disponibles ahora mismo.
func (s *Service) drainPending(ctx context.Context) {
	for {
		req, err := s.store.ClaimNextPending(ctx)
		if errors.Is(err, ports.ErrRequestNotFound) {
			return
		}
		if err != nil {
			slog.Error("claim pending failed", "err", err)
			return
		}

		if _, err := s.ProcessRequest(ctx, req); err != nil {
			slog.Error("process request failed", "request_id", req.ID, "err", err)
		}
	}
}
