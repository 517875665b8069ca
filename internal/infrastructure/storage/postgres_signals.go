package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vitos/overseas_trade_engine/internal/domain"
)

// PostgresSignalStore reads trade signals produced by the prediction job.
type PostgresSignalStore struct {
	pool *pgxpool.Pool
}

// NewPostgresPool opens a pool and verifies connectivity.
func NewPostgresPool(ctx context.Context, dsn string, maxConns int) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return pool, nil
}

func NewPostgresSignalStore(pool *pgxpool.Pool) *PostgresSignalStore {
	return &PostgresSignalStore{pool: pool}
}

func (s *PostgresSignalStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// GetLatestSignals returns every signal of the most recent signal date,
// whatever the predicted action. No rows at all yields an empty slice.
func (s *PostgresSignalStore) GetLatestSignals(ctx context.Context) ([]domain.Signal, error) {
	var latest *time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT MAX(expected_increase_date) FROM existing_actions_his`).Scan(&latest)
	if err != nil {
		return nil, fmt.Errorf("postgres: latest signal date: %w", err)
	}
	if latest == nil {
		return []domain.Signal{}, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT symbol, expected_increase_date, predicted_action
		   FROM existing_actions_his
		  WHERE expected_increase_date = $1
		  ORDER BY symbol`, *latest)
	if err != nil {
		return nil, fmt.Errorf("postgres: signals: %w", err)
	}

	signals, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Signal, error) {
		var sig domain.Signal
		err := row.Scan(&sig.Symbol, &sig.SignalDate, &sig.PredictedAction)
		return sig, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: scan signals: %w", err)
	}
	return signals, nil
}
