package storage

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/overseas_trade_engine/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_TokenRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tok, err := store.LoadToken(ctx)
	require.NoError(t, err)
	assert.Nil(t, tok)

	issued := time.Date(2026, 3, 16, 8, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveToken(ctx, domain.CachedToken{Token: "one", IssuedAt: issued}))
	require.NoError(t, store.SaveToken(ctx, domain.CachedToken{Token: "two", IssuedAt: issued.Add(time.Hour)}))

	tok, err = store.LoadToken(ctx)
	require.NoError(t, err)
	require.NotNil(t, tok)
	assert.Equal(t, "two", tok.Token)
	assert.True(t, tok.IssuedAt.Equal(issued.Add(time.Hour)))

	require.NoError(t, store.DeleteToken(ctx))
	tok, err = store.LoadToken(ctx)
	require.NoError(t, err)
	assert.Nil(t, tok)
}

func TestSQLiteStore_Trades(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 16, 14, 30, 0, 0, time.UTC)

	first := &domain.TradeRecord{
		RunID: "run-1", Symbol: "AAPL", Side: domain.SideBuy, Quantity: 5,
		Price: decimal.RequireFromString("9.50"), Venue: domain.VenueNASDAQ, OrderID: "A1",
		Reason: "signal", CreatedAt: now,
	}
	second := &domain.TradeRecord{
		RunID: "run-1", Symbol: "MSFT", Side: domain.SideSell, Quantity: 2,
		Price: decimal.RequireFromString("401.25"), Venue: domain.VenueNYSE, OrderID: "B2",
		Reason: string(domain.StateStopSell), CreatedAt: now.Add(time.Minute),
	}
	require.NoError(t, store.SaveTrade(ctx, first))
	require.NoError(t, store.SaveTrade(ctx, second))
	assert.NotZero(t, first.ID)
	assert.Greater(t, second.ID, first.ID)

	trades, err := store.ListTrades(ctx, 10)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, "MSFT", trades[0].Symbol)
	assert.Equal(t, domain.SideSell, trades[0].Side)
	assert.Equal(t, domain.VenueNYSE, trades[0].Venue)
	assert.True(t, trades[0].Price.Equal(decimal.RequireFromString("401.25")))
	assert.True(t, trades[1].CreatedAt.Equal(now))

	limited, err := store.ListTrades(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
