package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Needs a scratch database: SIGNALS_TEST_DATABASE_URL=postgres://... go test ./...
func TestPostgresSignalStore_GetLatestSignals(t *testing.T) {
	dsn := os.Getenv("SIGNALS_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("SIGNALS_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	pool, err := NewPostgresPool(ctx, dsn, 1)
	require.NoError(t, err)
	defer pool.Close()

	_, err = pool.Exec(ctx, `CREATE TEMP TABLE existing_actions_his (
		symbol TEXT NOT NULL,
		expected_increase_date DATE NOT NULL,
		predicted_action TEXT NOT NULL
	)`)
	require.NoError(t, err)

	store := NewPostgresSignalStore(pool)
	signals, err := store.GetLatestSignals(ctx)
	require.NoError(t, err)
	assert.Empty(t, signals)

	_, err = pool.Exec(ctx, `INSERT INTO existing_actions_his VALUES
		('OLD', '2026-03-13', 'BUY'),
		('MSFT', '2026-03-16', 'HOLD'),
		('AAPL', '2026-03-16', 'BUY')`)
	require.NoError(t, err)

	signals, err = store.GetLatestSignals(ctx)
	require.NoError(t, err)
	require.Len(t, signals, 2)
	assert.Equal(t, "AAPL", signals[0].Symbol)
	assert.Equal(t, "MSFT", signals[1].Symbol)
	assert.Equal(t, "HOLD", signals[1].PredictedAction)
	assert.True(t, signals[0].SignalDate.Equal(time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, store.Ping(ctx))
}
