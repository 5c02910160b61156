package storage

// sqlite.go — histórico de ladders puntuados.
//
// Estrategia:
//   - `cycles`: resumen ligero por ciclo (mercados, niveles, ventanas degeneradas).
//   - `ladder_levels`: una fila por (ciclo, mercado, lado, nivel).
//     Probabilidad NULL = ventana degenerada (NaN en memoria).
//   - Tiempos en unix nanos (INTEGER) para comparar rangos sin parsear strings.
//   - Prune automático al arrancar: todo lo anterior a retention.

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/alejandrodnm/vegavis/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
-- Resumen ligero por ciclo
CREATE TABLE IF NOT EXISTS cycles (
    id          TEXT    PRIMARY KEY,
    scanned_at  INTEGER NOT NULL,
    markets     INTEGER NOT NULL DEFAULT 0,
    levels      INTEGER NOT NULL DEFAULT 0,
    degenerate  INTEGER NOT NULL DEFAULT 0
);

-- Un nivel del ladder por fila
CREATE TABLE IF NOT EXISTS ladder_levels (
    cycle_id    TEXT    NOT NULL REFERENCES cycles(id),
    market_id   TEXT    NOT NULL,
    label       TEXT,
    side        INTEGER NOT NULL,
    level       INTEGER NOT NULL,
    price       REAL    NOT NULL,
    probability REAL,
    best_bid    REAL    NOT NULL,
    best_ask    REAL    NOT NULL,
    scored_at   INTEGER NOT NULL,
    PRIMARY KEY (cycle_id, market_id, side, level)
);

CREATE INDEX IF NOT EXISTS idx_cycles_at     ON cycles(scanned_at DESC);
CREATE INDEX IF NOT EXISTS idx_levels_market ON ladder_levels(market_id, scored_at);
`

const retention = 14 * 24 * time.Hour

// SQLiteStorage implementa ports.Storage usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada,
// aplica el schema y limpia datos antiguos.
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

	s := &SQLiteStorage{db: db}
	s.pruneOld(context.Background())
	return s, nil
}

// SaveCycle persiste el resumen del ciclo y todos sus niveles en una transacción.
func (s *SQLiteStorage) SaveCycle(ctx context.Context, cycleID string, scores []domain.MarketScore) error {
	if len(scores) == 0 {
		return nil
	}

	levels, degenerate := cycleSummary(scores)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveCycle: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO cycles (id, scanned_at, markets, levels, degenerate) VALUES (?, ?, ?, ?, ?)`,
		cycleID, time.Now().UTC().UnixNano(), len(scores), levels, degenerate,
	); err != nil {
		return fmt.Errorf("storage.SaveCycle: insert cycle: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ladder_levels
			(cycle_id, market_id, label, side, level, price, probability,
			 best_bid, best_ask, scored_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("storage.SaveCycle: prepare: %w", err)
	}
	defer stmt.Close()

	for _, ms := range scores {
		scoredAt := ms.ScoredAt.UTC().UnixNano()
		for _, l := range ms.Levels {
			if _, err := stmt.ExecContext(ctx,
				cycleID,
				ms.Book.MarketID,
				ms.Book.Label,
				int(l.Side),
				l.Level,
				l.Price,
				nullProbability(l.Probability),
				ms.Book.BestBid,
				ms.Book.BestAsk,
				scoredAt,
			); err != nil {
				return fmt.Errorf("storage.SaveCycle: insert %s %s/%d: %w",
					ms.Book.MarketID, l.Side, l.Level, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveCycle: commit: %w", err)
	}
	return nil
}

// GetHistory devuelve los niveles del mercado con scored_at en [from, to],
// ordenados por tiempo, lado y nivel.
func (s *SQLiteStorage) GetHistory(ctx context.Context, marketID string, from, to time.Time) ([]domain.LevelScore, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT side, level, price, probability
		FROM ladder_levels
		WHERE market_id = ? AND scored_at BETWEEN ? AND ?
		ORDER BY scored_at, side, level
	`, marketID, from.UTC().UnixNano(), to.UTC().UnixNano())
	if err != nil {
		return nil, fmt.Errorf("storage.GetHistory: query: %w", err)
	}
	defer rows.Close()

	var levels []domain.LevelScore
	for rows.Next() {
		var (
			l    domain.LevelScore
			side int
			prob sql.NullFloat64
		)
		if err := rows.Scan(&side, &l.Level, &l.Price, &prob); err != nil {
			return nil, fmt.Errorf("storage.GetHistory: scan row: %w", err)
		}
		l.Side = domain.Side(side)
		l.Probability = math.NaN()
		if prob.Valid {
			l.Probability = prob.Float64
		}
		levels = append(levels, l)
	}

	return levels, rows.Err()
}

// CycleCount devuelve cuántos ciclos hay registrados.
func (s *SQLiteStorage) CycleCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cycles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("storage.CycleCount: %w", err)
	}
	return n, nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

// pruneOld elimina datos antiguos para mantener la DB ligera.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-retention).UnixNano()
	s.db.ExecContext(ctx, `DELETE FROM ladder_levels WHERE scored_at < ?`, cutoff)
	s.db.ExecContext(ctx, `DELETE FROM cycles WHERE scanned_at < ?`, cutoff)
}

// cycleSummary cuenta niveles totales y degenerados del ciclo.
func cycleSummary(scores []domain.MarketScore) (levels, degenerate int) {
	for _, ms := range scores {
		levels += len(ms.Levels)
		degenerate += ms.DegenerateCount()
	}
	return
}

// nullProbability guarda NaN como NULL: SQLite no tiene NaN.
func nullProbability(p float64) sql.NullFloat64 {
	if math.IsNaN(p) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: p, Valid: true}
}
