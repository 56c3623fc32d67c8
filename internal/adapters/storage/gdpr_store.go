package storage

// gdpr_store.go — implementación de ports.DeletionStore sobre SQLite.
//
// La regla "una solicitud activa por usuario" se comprueba dentro de la
// transacción de inserción, además del índice único parcial del schema.

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alejandrodnm/foliotrack/internal/domain"
	"github.com/alejandrodnm/foliotrack/internal/ports"
)

// CreateRequest inserta una solicitud nueva. Re-comprueba dentro de la
// transacción que el usuario no tenga otra activa y devuelve
// ports.ErrActiveRequestExists si la tiene.
func (s *SQLiteStorage) CreateRequest(ctx context.Context, req domain.DeletionRequest) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.CreateRequest: begin tx: %w", err)
	}
	defer tx.Rollback()

	var active int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM deletion_requests
		WHERE user_id = ? AND status IN ('PENDING', 'IN_PROGRESS')`,
		req.UserID).Scan(&active)
	if err != nil {
		return fmt.Errorf("storage.CreateRequest: check active: %w", err)
	}
	if active > 0 {
		return ports.ErrActiveRequestExists
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO deletion_requests
			(id, user_id, request_type, reason, status, created_at,
			 processed_at, completed_at, attestations_revoked, offchain_deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		req.ID, req.UserID, string(req.RequestType), req.Reason,
		string(req.Status), req.CreatedAt.UTC(),
		optionalTime(req.ProcessedAt), optionalTime(req.CompletedAt),
		req.AttestationsRevoked, boolToInt(req.OffchainDataDeleted),
	)
	if err != nil {
		// Carrera perdida contra otra inserción: el índice parcial la detiene
		if strings.Contains(err.Error(), "ux_active_deletion") {
			return ports.ErrActiveRequestExists
		}
		return fmt.Errorf("storage.CreateRequest: insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.CreateRequest: commit: %w", err)
	}
	return nil
}

// GetRequest devuelve la solicitud con el id dado.
func (s *SQLiteStorage) GetRequest(ctx context.Context, id string) (domain.DeletionRequest, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, request_type, reason, status, created_at,
		       processed_at, completed_at, attestations_revoked, offchain_deleted
		FROM deletion_requests
		WHERE id = ?`, id)

	req, err := scanDeletionRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DeletionRequest{}, ports.ErrRequestNotFound
	}
	if err != nil {
		return domain.DeletionRequest{}, fmt.Errorf("storage.GetRequest: %w", err)
	}
	return req, nil
}

// ListRequests devuelve todas las solicitudes del usuario, más recientes primero.
func (s *SQLiteStorage) ListRequests(ctx context.Context, userID string) ([]domain.DeletionRequest, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, request_type, reason, status, created_at,
		       processed_at, completed_at, attestations_revoked, offchain_deleted
		FROM deletion_requests
		WHERE user_id = ?
		ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("storage.ListRequests: query: %w", err)
	}
	defer rows.Close()

	var out []domain.DeletionRequest
	for rows.Next() {
		req, err := scanDeletionRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("storage.ListRequests: scan: %w", err)
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// ClaimNextPending marca la PENDING más antigua como IN_PROGRESS y la devuelve.
func (s *SQLiteStorage) ClaimNextPending(ctx context.Context) (domain.DeletionRequest, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.DeletionRequest{}, fmt.Errorf("storage.ClaimNextPending: begin tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT id, user_id, request_type, reason, status, created_at,
		       processed_at, completed_at, attestations_revoked, offchain_deleted
		FROM deletion_requests
		WHERE status = 'PENDING'
		ORDER BY created_at, id
		LIMIT 1`)

	req, err := scanDeletionRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DeletionRequest{}, ports.ErrRequestNotFound
	}
	if err != nil {
		return domain.DeletionRequest{}, fmt.Errorf("storage.ClaimNextPending: scan: %w", err)
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
		UPDATE deletion_requests
		SET status = 'IN_PROGRESS', processed_at = ?
		WHERE id = ?`, now, req.ID); err != nil {
		return domain.DeletionRequest{}, fmt.Errorf("storage.ClaimNextPending: update: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.DeletionRequest{}, fmt.Errorf("storage.ClaimNextPending: commit: %w", err)
	}

	req.Status = domain.StatusInProgress
	req.ProcessedAt = &now
	return req, nil
}

// SaveProgress persiste estado, timestamps y contadores de la solicitud.
func (s *SQLiteStorage) SaveProgress(ctx context.Context, req domain.DeletionRequest) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE deletion_requests
		SET status = ?, processed_at = ?, completed_at = ?,
		    attestations_revoked = ?, offchain_deleted = ?
		WHERE id = ?`,
		string(req.Status),
		optionalTime(req.ProcessedAt), optionalTime(req.CompletedAt),
		req.AttestationsRevoked, boolToInt(req.OffchainDataDeleted),
		req.ID)
	if err != nil {
		return fmt.Errorf("storage.SaveProgress: update: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("storage.SaveProgress: rows affected: %w", err)
	}
	if n == 0 {
		return ports.ErrRequestNotFound
	}
	return nil
}

// rowScanner cubre sql.Row y sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDeletionRequest(row rowScanner) (domain.DeletionRequest, error) {
	var req domain.DeletionRequest
	var requestType, status, createdAt string
	var processedAt, completedAt sql.NullString
	var offchain int

	err := row.Scan(&req.ID, &req.UserID, &requestType, &req.Reason, &status,
		&createdAt, &processedAt, &completedAt,
		&req.AttestationsRevoked, &offchain)
	if err != nil {
		return domain.DeletionRequest{}, err
	}

	req.RequestType = domain.DeletionRequestType(requestType)
	req.Status = domain.DeletionStatus(status)
	req.CreatedAt = parseStoredTime(createdAt)
	req.ProcessedAt = parseOptionalTime(processedAt)
	req.CompletedAt = parseOptionalTime(completedAt)
	req.OffchainDataDeleted = offchain == 1
	return req, nil
}

func optionalTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func parseOptionalTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t := parseStoredTime(s.String)
	return &t
}
