package storage

// sqlite.go — almacenamiento local del tracker.
//
// Tablas:
//   - Datos de usuario (sujetos a borrado GDPR): profiles, forecasts, positions,
//     transactions, attestations, wallets.
//   - `advice` + `advice_positions`: histórico de recomendaciones del advisor.
//   - `deletion_requests`: ciclo de vida GDPR. El índice único parcial
//     ux_active_deletion garantiza a nivel de DB "una solicitud activa por
//     usuario" incluso si dos procesos compiten.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alejandrodnm/foliotrack/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
-- Perfil del usuario (PII)
CREATE TABLE IF NOT EXISTS profiles (
    user_id           TEXT PRIMARY KEY,
    display_name      TEXT,
    email             TEXT,
    avatar_url        TEXT,
    calibration_score REAL,
    anonymized        INTEGER NOT NULL DEFAULT 0,
    created_at        DATETIME NOT NULL
);

-- Predicciones del usuario sobre mercados
CREATE TABLE IF NOT EXISTS forecasts (
    id                    INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id               TEXT NOT NULL,
    condition_id          TEXT NOT NULL,
    estimated_probability REAL NOT NULL,
    created_at            DATETIME NOT NULL
);

-- Posiciones tomadas siguiendo el advice
CREATE TABLE IF NOT EXISTS positions (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id       TEXT NOT NULL,
    condition_id  TEXT NOT NULL,
    side          TEXT NOT NULL,
    fraction      REAL NOT NULL,
    dollar_amount REAL NOT NULL,
    created_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS transactions (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id     TEXT NOT NULL,
    kind        TEXT NOT NULL,
    amount_usdc REAL NOT NULL,
    created_at  DATETIME NOT NULL
);

-- Registro offchain de attestations on-chain del usuario
CREATE TABLE IF NOT EXISTS attestations (
    uid        TEXT PRIMARY KEY,
    user_id    TEXT NOT NULL,
    kind       TEXT NOT NULL, -- forecast | identity
    revoked    INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS wallets (
    address    TEXT PRIMARY KEY,
    user_id    TEXT,
    chain      TEXT NOT NULL DEFAULT 'polygon',
    created_at DATETIME NOT NULL
);

-- Histórico de advice del portfolio
CREATE TABLE IF NOT EXISTS advice (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    generated_at     DATETIME NOT NULL,
    bankroll         REAL NOT NULL,
    total_allocation REAL NOT NULL,
    total_dollars    REAL NOT NULL,
    was_scaled       INTEGER NOT NULL DEFAULT 0,
    scale_factor     REAL NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS advice_positions (
    advice_id         INTEGER NOT NULL REFERENCES advice(id) ON DELETE CASCADE,
    market_id         TEXT NOT NULL,
    question          TEXT,
    side              TEXT NOT NULL,
    edge              REAL NOT NULL,
    raw_fraction      REAL NOT NULL,
    adjusted_fraction REAL NOT NULL,
    dollar_amount     REAL NOT NULL,
    was_capped        INTEGER NOT NULL DEFAULT 0
);

-- Solicitudes de borrado GDPR
CREATE TABLE IF NOT EXISTS deletion_requests (
    id                   TEXT PRIMARY KEY,
    user_id              TEXT NOT NULL,
    request_type         TEXT NOT NULL,
    reason               TEXT NOT NULL DEFAULT '',
    status               TEXT NOT NULL,
    created_at           DATETIME NOT NULL,
    processed_at         DATETIME,
    completed_at         DATETIME,
    attestations_revoked INTEGER NOT NULL DEFAULT 0,
    offchain_deleted     INTEGER NOT NULL DEFAULT 0
);

-- Una solicitud activa por usuario, garantizado a nivel de DB
CREATE UNIQUE INDEX IF NOT EXISTS ux_active_deletion
    ON deletion_requests(user_id)
    WHERE status IN ('PENDING', 'IN_PROGRESS');

CREATE INDEX IF NOT EXISTS idx_forecasts_user  ON forecasts(user_id);
CREATE INDEX IF NOT EXISTS idx_positions_user  ON positions(user_id);
CREATE INDEX IF NOT EXISTS idx_tx_user         ON transactions(user_id);
CREATE INDEX IF NOT EXISTS idx_attest_user     ON attestations(user_id);
CREATE INDEX IF NOT EXISTS idx_deletion_user   ON deletion_requests(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_advice_at       ON advice(generated_at DESC);
`

// SQLiteStorage implementa ports.AdviceStore, ports.DeletionStore,
// ports.DataCounter, ports.Eraser y ports.AttestationSource usando SQLite
// (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada y aplica el schema.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// SaveAdvice persiste el snapshot del advisor: una fila de resumen y una fila
// por posición recomendada.
func (s *SQLiteStorage) SaveAdvice(ctx context.Context, advice domain.Advice) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveAdvice: begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO advice (generated_at, bankroll, total_allocation, total_dollars, was_scaled, scale_factor)
		VALUES (?, ?, ?, ?, ?, ?)`,
		advice.GeneratedAt.UTC(),
		advice.Bankroll,
		advice.Result.TotalAllocation,
		advice.Result.TotalDollarAmount,
		boolToInt(advice.Result.WasScaled),
		advice.Result.ScaleFactor,
	)
	if err != nil {
		return fmt.Errorf("storage.SaveAdvice: insert advice: %w", err)
	}

	adviceID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("storage.SaveAdvice: last insert id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO advice_positions
			(advice_id, market_id, question, side, edge, raw_fraction, adjusted_fraction, dollar_amount, was_capped)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("storage.SaveAdvice: prepare: %w", err)
	}
	defer stmt.Close()

	for _, p := range advice.Result.Positions {
		if _, err := stmt.ExecContext(ctx,
			adviceID, p.MarketID, p.Question, string(p.Side),
			p.Edge, p.RawKellyFraction, p.AdjustedFraction, p.DollarAmount,
			boolToInt(p.WasCapped),
		); err != nil {
			return fmt.Errorf("storage.SaveAdvice: insert position %s: %w", p.MarketID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveAdvice: commit: %w", err)
	}
	return nil
}

// AdviceHistory devuelve los snapshots del rango dado, más recientes primero.
func (s *SQLiteStorage) AdviceHistory(ctx context.Context, from, to time.Time) ([]domain.Advice, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, generated_at, bankroll, total_allocation, total_dollars, was_scaled, scale_factor
		FROM advice
		WHERE generated_at BETWEEN ? AND ?
		ORDER BY generated_at DESC`,
		from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("storage.AdviceHistory: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Advice
	var ids []int64
	for rows.Next() {
		var id int64
		var generatedAt string
		var a domain.Advice
		var scaled int
		if err := rows.Scan(&id, &generatedAt, &a.Bankroll,
			&a.Result.TotalAllocation, &a.Result.TotalDollarAmount,
			&scaled, &a.Result.ScaleFactor,
		); err != nil {
			return nil, fmt.Errorf("storage.AdviceHistory: scan row: %w", err)
		}
		a.GeneratedAt = parseStoredTime(generatedAt)
		a.Result.WasScaled = scaled == 1
		out = append(out, a)
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, id := range ids {
		positions, err := s.advicePositions(ctx, id)
		if err != nil {
			return nil, err
		}
		out[i].Result.Positions = positions
	}
	return out, nil
}

// advicePositions carga las posiciones de un snapshot, mejores edges primero.
func (s *SQLiteStorage) advicePositions(ctx context.Context, adviceID int64) ([]domain.PortfolioPosition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT market_id, question, side, edge, raw_fraction, adjusted_fraction, dollar_amount, was_capped
		FROM advice_positions
		WHERE advice_id = ?
		ORDER BY edge DESC`, adviceID)
	if err != nil {
		return nil, fmt.Errorf("storage.advicePositions: query: %w", err)
	}
	defer rows.Close()

	var out []domain.PortfolioPosition
	for rows.Next() {
		var p domain.PortfolioPosition
		var side string
		var capped int
		if err := rows.Scan(&p.MarketID, &p.Question, &side, &p.Edge,
			&p.RawKellyFraction, &p.AdjustedFraction, &p.DollarAmount, &capped,
		); err != nil {
			return nil, fmt.Errorf("storage.advicePositions: scan row: %w", err)
		}
		p.Side = domain.Side(side)
		p.WasCapped = capped == 1
		out = append(out, p)
	}
	return out, rows.Err()
}

// --- helpers internos ---

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// parseStoredTime intenta los formatos con los que el driver serializa DATETIME.
func parseStoredTime(s string) time.Time {
	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
