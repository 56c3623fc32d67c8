package storage

// erase.go — lado destructivo del storage: conteos por usuario, ejecución de
// pasos de borrado offchain y consulta/marcado de attestations.

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/foliotrack/internal/domain"
)

// CountUserData cuenta los items del usuario por tipo de dato.
func (s *SQLiteStorage) CountUserData(ctx context.Context, userID string) (domain.DataCounts, error) {
	var counts domain.DataCounts

	queries := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM forecasts WHERE user_id = ?", &counts.Forecasts},
		{"SELECT COUNT(*) FROM positions WHERE user_id = ?", &counts.Positions},
		{"SELECT COUNT(*) FROM transactions WHERE user_id = ?", &counts.Transactions},
		{"SELECT COUNT(*) FROM attestations WHERE user_id = ? AND revoked = 0", &counts.Attestations},
		{"SELECT COUNT(*) FROM wallets WHERE user_id = ?", &counts.Wallets},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query, userID).Scan(q.dest); err != nil {
			return domain.DataCounts{}, fmt.Errorf("storage.CountUserData: %w", err)
		}
	}
	return counts, nil
}

// Execute ejecuta un paso de borrado offchain y devuelve cuántos items afectó.
// Los pasos de revocación on-chain NO pasan por aquí; los maneja el Revoker.
func (s *SQLiteStorage) Execute(ctx context.Context, userID, step string) (int, error) {
	var res sql.Result
	var err error

	switch step {
	case domain.StepDeleteForecasts:
		res, err = s.db.ExecContext(ctx, "DELETE FROM forecasts WHERE user_id = ?", userID)
	case domain.StepDeletePositions:
		res, err = s.db.ExecContext(ctx, "DELETE FROM positions WHERE user_id = ?", userID)
	case domain.StepDeleteTransactions:
		res, err = s.db.ExecContext(ctx, "DELETE FROM transactions WHERE user_id = ?", userID)
	case domain.StepDeleteWallets:
		res, err = s.db.ExecContext(ctx, "DELETE FROM wallets WHERE user_id = ?", userID)
	case domain.StepDeleteOffchainData:
		res, err = s.db.ExecContext(ctx, "DELETE FROM attestations WHERE user_id = ?", userID)
	case domain.StepDeleteUser:
		res, err = s.db.ExecContext(ctx, "DELETE FROM profiles WHERE user_id = ?", userID)
	case domain.StepAnonymizePII, domain.StepAnonymizeUser:
		res, err = s.db.ExecContext(ctx, `
			UPDATE profiles
			SET display_name = 'deleted-user', email = NULL, avatar_url = NULL, anonymized = 1
			WHERE user_id = ?`, userID)
	case domain.StepResetCalibration:
		res, err = s.db.ExecContext(ctx, `
			UPDATE profiles SET calibration_score = NULL WHERE user_id = ?`, userID)
	case domain.StepScrubWalletLinks:
		res, err = s.db.ExecContext(ctx, `
			UPDATE wallets SET user_id = NULL WHERE user_id = ?`, userID)
	case domain.StepDeleteAvatar:
		res, err = s.db.ExecContext(ctx, `
			UPDATE profiles SET avatar_url = NULL
			WHERE user_id = ? AND avatar_url IS NOT NULL`, userID)
	default:
		return 0, fmt.Errorf("storage.Execute: unknown step %q", step)
	}
	if err != nil {
		return 0, fmt.Errorf("storage.Execute: step %s: %w", step, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("storage.Execute: step %s: rows affected: %w", step, err)
	}

	slog.Debug("erase step executed", "user_id", userID, "step", step, "affected", n)
	return int(n), nil
}

// ListAttestationUIDs devuelve los UIDs sin revocar del usuario.
// kind filtra por tipo; vacío devuelve todas.
func (s *SQLiteStorage) ListAttestationUIDs(ctx context.Context, userID, kind string) ([]string, error) {
	query := "SELECT uid FROM attestations WHERE user_id = ? AND revoked = 0"
	args := []any{userID}
	if kind != "" {
		query += " AND kind = ?"
		args = append(args, kind)
	}
	query += " ORDER BY created_at, uid"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage.ListAttestationUIDs: query: %w", err)
	}
	defer rows.Close()

	var uids []string
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, fmt.Errorf("storage.ListAttestationUIDs: scan: %w", err)
		}
		uids = append(uids, uid)
	}
	return uids, rows.Err()
}

// MarkRevoked marca los UIDs dados como revocados tras confirmar la
// revocación on-chain.
func (s *SQLiteStorage) MarkRevoked(ctx context.Context, uids []string) error {
	if len(uids) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.MarkRevoked: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "UPDATE attestations SET revoked = 1 WHERE uid = ?")
	if err != nil {
		return fmt.Errorf("storage.MarkRevoked: prepare: %w", err)
	}
	defer stmt.Close()

	for _, uid := range uids {
		if _, err := stmt.ExecContext(ctx, uid); err != nil {
			return fmt.Errorf("storage.MarkRevoked: uid %s: %w", uid, err)
		}
	}
	return tx.Commit()
}
