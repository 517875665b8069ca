package domain

import (
	"context"
	"time"
)

// QuoteProvider fetches raw quotation data from one venue.
type QuoteProvider interface {
	FetchLastPrice(ctx context.Context, venue Venue, symbol string) (string, error)
	FetchAskDepth(ctx context.Context, venue Venue, symbol string) ([]RawAskLevel, error)
}

// OrderTransport delivers a signed order payload to the provider. A non-nil
// error means the order never got a provider answer (timeout, connection).
type OrderTransport interface {
	SendOrder(ctx context.Context, trID string, payload OrderPayload, hash string) (*VenueReply, error)
}

// IntegrityHasher computes the request-integrity hash required on orders.
type IntegrityHasher interface {
	IntegrityHash(ctx context.Context, payload OrderPayload) (string, error)
}

// Authenticator issues a fresh access token from fixed credentials.
type Authenticator interface {
	RequestNewToken(ctx context.Context) (string, error)
}

// TokenStore persists the single cached access token.
type TokenStore interface {
	LoadToken(ctx context.Context) (*CachedToken, error)
	SaveToken(ctx context.Context, token CachedToken) error
	DeleteToken(ctx context.Context) error
}

// AccountReader reads the brokerage account state.
type AccountReader interface {
	GetHoldings(ctx context.Context) ([]Position, error)
	GetMarginBalances(ctx context.Context) ([]CurrencyBalance, error)
}

// TradeHistory resolves when a held symbol was last bought.
type TradeHistory interface {
	LatestBuyDate(ctx context.Context, symbol string, today time.Time) (time.Time, error)
}

// Broker is the full brokerage surface used by the trading binaries.
type Broker interface {
	QuoteProvider
	OrderTransport
	AccountReader
	TradeHistory
}

// SignalSource returns the signals of the most recent signal date.
type SignalSource interface {
	GetLatestSignals(ctx context.Context) ([]Signal, error)
}

// Notifier delivers operator messages. Delivery is best-effort and never
// reports failure to the caller.
type Notifier interface {
	Notify(ctx context.Context, text string)
}

// TradeRepository journals successful orders.
type TradeRepository interface {
	SaveTrade(ctx context.Context, trade *TradeRecord) error
	ListTrades(ctx context.Context, limit int) ([]*TradeRecord, error)
}
