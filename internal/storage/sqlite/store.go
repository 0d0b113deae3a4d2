// Package sqlite persists portfolio holdings and analysis history in SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/newthinker/finsight/internal/core"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// DefaultHistoryLimit caps RecentHistory when the caller passes no limit.
const DefaultHistoryLimit = 50

// Store is a SQLite-backed portfolio and history store.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// PathFromURL converts a database URL such as sqlite:///finance.db into a
// file path. Three slashes mean a relative path, four an absolute one.
// Values without the sqlite:// scheme are returned unchanged.
func PathFromURL(url string) string {
	const scheme = "sqlite://"
	if !strings.HasPrefix(url, scheme) {
		return url
	}
	rest := strings.TrimPrefix(url, scheme)
	if rest == "" || rest == "/" {
		return ":memory:"
	}
	// sqlite:///finance.db -> finance.db, sqlite:////var/db.db -> /var/db.db
	return strings.TrimPrefix(rest, "/")
}

// Open opens (or creates) the database at path and runs migrations.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection serializes writers and keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("set WAL mode: %w", err)
		}
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("sqlite store opened", zap.String("path", path))
	return s, nil
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS portfolio (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			ticker   TEXT NOT NULL UNIQUE,
			quantity REAL NOT NULL CHECK (quantity > 0)
		)`,

		`CREATE TABLE IF NOT EXISTS analysis_history (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			ticker     TEXT NOT NULL,
			analysis   TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_history_created ON analysis_history(created_at)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Upsert adds quantity to the holding for ticker, creating it if needed,
// and returns the resulting holding. Callers validate input.
func (s *Store) Upsert(ctx context.Context, ticker string, quantity float64) (core.Holding, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Holding{}, core.WrapError(core.ErrStoreFailed, err)
	}
	defer tx.Rollback() //nolint:errcheck

	var total float64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO portfolio (ticker, quantity) VALUES (?, ?)
		 ON CONFLICT(ticker) DO UPDATE SET quantity = quantity + excluded.quantity
		 RETURNING quantity`,
		ticker, quantity,
	).Scan(&total)
	if err != nil {
		return core.Holding{}, core.WrapError(core.ErrStoreFailed, fmt.Errorf("upsert %s: %w", ticker, err))
	}
	// Rollback leaves the previous quantity in place.
	if math.IsInf(total, 0) || math.IsNaN(total) {
		return core.Holding{}, core.WrapError(core.ErrInvalidQuantity,
			fmt.Errorf("quantity for %s overflows", ticker))
	}

	if err := tx.Commit(); err != nil {
		return core.Holding{}, core.WrapError(core.ErrStoreFailed, err)
	}

	return core.Holding{Ticker: ticker, Quantity: total}, nil
}

// Delete removes the holding for ticker.
func (s *Store) Delete(ctx context.Context, ticker string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM portfolio WHERE ticker = ?`, ticker)
	if err != nil {
		return core.WrapError(core.ErrStoreFailed, fmt.Errorf("delete %s: %w", ticker, err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.WrapError(core.ErrStoreFailed, err)
	}
	if n == 0 {
		return core.ErrHoldingNotFound
	}
	return nil
}

// Get returns the holding for ticker.
func (s *Store) Get(ctx context.Context, ticker string) (core.Holding, error) {
	h := core.Holding{Ticker: ticker}
	err := s.db.QueryRowContext(ctx,
		`SELECT quantity FROM portfolio WHERE ticker = ?`, ticker,
	).Scan(&h.Quantity)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Holding{}, core.ErrHoldingNotFound
	}
	if err != nil {
		return core.Holding{}, core.WrapError(core.ErrStoreFailed, err)
	}
	return h, nil
}

// List returns all holdings ordered by ticker.
func (s *Store) List(ctx context.Context) ([]core.Holding, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT ticker, quantity FROM portfolio ORDER BY ticker`)
	if err != nil {
		return nil, core.WrapError(core.ErrStoreFailed, err)
	}
	defer rows.Close()

	holdings := []core.Holding{}
	for rows.Next() {
		var h core.Holding
		if err := rows.Scan(&h.Ticker, &h.Quantity); err != nil {
			return nil, core.WrapError(core.ErrStoreFailed, err)
		}
		holdings = append(holdings, h)
	}
	if err := rows.Err(); err != nil {
		return nil, core.WrapError(core.ErrStoreFailed, err)
	}
	return holdings, nil
}

// AppendHistory records a generated analysis.
func (s *Store) AppendHistory(ctx context.Context, ticker, analysis string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO analysis_history (ticker, analysis, created_at) VALUES (?, ?, ?)`,
		ticker, analysis, time.Now().UTC().UnixNano(),
	)
	if err != nil {
		return core.WrapError(core.ErrStoreFailed, fmt.Errorf("append history %s: %w", ticker, err))
	}
	return nil
}

// RecentHistory returns up to limit records, newest first.
func (s *Store) RecentHistory(ctx context.Context, limit int) ([]core.HistoryRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ticker, analysis, created_at FROM analysis_history
		 ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, core.WrapError(core.ErrStoreFailed, err)
	}
	defer rows.Close()

	records := []core.HistoryRecord{}
	for rows.Next() {
		var (
			r  core.HistoryRecord
			ts int64
		)
		if err := rows.Scan(&r.ID, &r.Ticker, &r.Analysis, &ts); err != nil {
			return nil, core.WrapError(core.ErrStoreFailed, err)
		}
		r.CreatedAt = time.Unix(0, ts).UTC()
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, core.WrapError(core.ErrStoreFailed, err)
	}
	return records, nil
}

func firstLine(stmt string) string {
	if i := strings.IndexByte(stmt, '\n'); i >= 0 {
		return stmt[:i]
	}
	return stmt
}
