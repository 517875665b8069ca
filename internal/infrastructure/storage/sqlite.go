package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vitos/overseas_trade_engine/internal/domain"
)

// SQLiteStore keeps the access token cache and the trade journal.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	// One writer at a time; runs are not concurrent.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS access_token (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			token TEXT NOT NULL,
			issued_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS trades (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			symbol TEXT NOT NULL,
			side TEXT NOT NULL,
			quantity INTEGER NOT NULL,
			price TEXT NOT NULL,
			venue TEXT NOT NULL,
			order_id TEXT NOT NULL DEFAULT '',
			reason TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_trades_run ON trades(run_id);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to exec query %s: %w", q, err)
		}
	}
	return nil
}

// TokenStore Implementation

func (s *SQLiteStore) LoadToken(ctx context.Context) (*domain.CachedToken, error) {
	row := s.db.QueryRowContext(ctx, `SELECT token, issued_at FROM access_token WHERE id = 1`)

	var t domain.CachedToken
	if err := row.Scan(&t.Token, &t.IssuedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (s *SQLiteStore) SaveToken(ctx context.Context, token domain.CachedToken) error {
	query := `INSERT INTO access_token (id, token, issued_at) VALUES (1, ?, ?)
			  ON CONFLICT(id) DO UPDATE SET token=excluded.token, issued_at=excluded.issued_at`
	_, err := s.db.ExecContext(ctx, query, token.Token, token.IssuedAt.UTC())
	return err
}

func (s *SQLiteStore) DeleteToken(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM access_token`)
	return err
}

// TradeRepository Implementation

func (s *SQLiteStore) SaveTrade(ctx context.Context, t *domain.TradeRecord) error {
	query := `INSERT INTO trades (run_id, symbol, side, quantity, price, venue, order_id, reason, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, query,
		t.RunID, t.Symbol, string(t.Side), t.Quantity, t.Price.String(), string(t.Venue), t.OrderID, t.Reason, t.CreatedAt.UTC())
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil {
		t.ID = id
	}
	return nil
}

func (s *SQLiteStore) ListTrades(ctx context.Context, limit int) ([]*domain.TradeRecord, error) {
	query := `SELECT id, run_id, symbol, side, quantity, price, venue, order_id, reason, created_at
			  FROM trades ORDER BY id DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []*domain.TradeRecord
	for rows.Next() {
		var (
			t     domain.TradeRecord
			side  string
			venue string
		)
		if err := rows.Scan(&t.ID, &t.RunID, &t.Symbol, &side, &t.Quantity, &t.Price, &venue, &t.OrderID, &t.Reason, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Side = domain.Side(side)
		t.Venue = domain.Venue(venue)
		trades = append(trades, &t)
	}
	return trades, rows.Err()
}
