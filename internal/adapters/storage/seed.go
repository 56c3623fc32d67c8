package storage

// seed.go — escrituras de datos de usuario. Las usan los handlers de ingesta
// y los tests para poblar el storage.

import (
	"context"
	"fmt"
	"time"

	"github.com/alejandrodnm/foliotrack/internal/domain"
)

// UpsertProfile crea o actualiza el perfil del usuario.
func (s *SQLiteStorage) UpsertProfile(ctx context.Context, userID, displayName, email, avatarURL string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, display_name, email, avatar_url, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			display_name = excluded.display_name,
			email        = excluded.email,
			avatar_url   = excluded.avatar_url`,
		userID, displayName, email, avatarURL, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("storage.UpsertProfile: %w", err)
	}
	return nil
}

// SetCalibrationScore fija el score de calibración del usuario.
func (s *SQLiteStorage) SetCalibrationScore(ctx context.Context, userID string, score float64) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE profiles SET calibration_score = ? WHERE user_id = ?", score, userID)
	if err != nil {
		return fmt.Errorf("storage.SetCalibrationScore: %w", err)
	}
	return nil
}

// AddForecast registra una predicción del usuario sobre un mercado.
func (s *SQLiteStorage) AddForecast(ctx context.Context, userID, conditionID string, probability float64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO forecasts (user_id, condition_id, estimated_probability, created_at)
		VALUES (?, ?, ?, ?)`,
		userID, conditionID, probability, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("storage.AddForecast: %w", err)
	}
	return nil
}

// AddPosition registra una posición tomada por el usuario.
func (s *SQLiteStorage) AddPosition(ctx context.Context, userID string, p domain.PortfolioPosition) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO positions (user_id, condition_id, side, fraction, dollar_amount, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		userID, p.MarketID, string(p.Side), p.AdjustedFraction, p.DollarAmount, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("storage.AddPosition: %w", err)
	}
	return nil
}

// AddTransaction registra un movimiento de fondos del usuario.
func (s *SQLiteStorage) AddTransaction(ctx context.Context, userID, kind string, amountUSDC float64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (user_id, kind, amount_usdc, created_at)
		VALUES (?, ?, ?, ?)`,
		userID, kind, amountUSDC, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("storage.AddTransaction: %w", err)
	}
	return nil
}

// AddAttestation registra una attestation on-chain del usuario.
func (s *SQLiteStorage) AddAttestation(ctx context.Context, uid, userID, kind string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attestations (uid, user_id, kind, created_at)
		VALUES (?, ?, ?, ?)`,
		uid, userID, kind, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("storage.AddAttestation: %w", err)
	}
	return nil
}

// AddWallet vincula una wallet al usuario.
func (s *SQLiteStorage) AddWallet(ctx context.Context, address, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO wallets (address, user_id, created_at)
		VALUES (?, ?, ?)`,
		address, userID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("storage.AddWallet: %w", err)
	}
	return nil
}
