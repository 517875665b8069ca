package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vitos/overseas_trade_engine/internal/domain"
)

var errBoom = errors.New("boom")

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// fakeQuotes serves quote data per venue.
type fakeQuotes struct {
	prices    map[domain.Venue]string
	priceErrs map[domain.Venue]error
	depth     []domain.RawAskLevel
	depthErr  error

	priceCalls []domain.Venue
	depthCalls []domain.Venue
}

func (f *fakeQuotes) FetchLastPrice(ctx context.Context, venue domain.Venue, symbol string) (string, error) {
	f.priceCalls = append(f.priceCalls, venue)
	if err := f.priceErrs[venue]; err != nil {
		return "", err
	}
	return f.prices[venue], nil
}

func (f *fakeQuotes) FetchAskDepth(ctx context.Context, venue domain.Venue, symbol string) ([]domain.RawAskLevel, error) {
	f.depthCalls = append(f.depthCalls, venue)
	return f.depth, f.depthErr
}

type sentOrder struct {
	TrID    string
	Payload domain.OrderPayload
	Hash    string
}

// fakeTransport replays scripted replies in order.
type fakeTransport struct {
	replies []*domain.VenueReply
	errs    []error
	sent    []sentOrder
}

func (f *fakeTransport) SendOrder(ctx context.Context, trID string, payload domain.OrderPayload, hash string) (*domain.VenueReply, error) {
	i := len(f.sent)
	f.sent = append(f.sent, sentOrder{TrID: trID, Payload: payload, Hash: hash})
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	if err != nil {
		return nil, err
	}
	if i < len(f.replies) && f.replies[i] != nil {
		return f.replies[i], nil
	}
	return &domain.VenueReply{HTTPStatus: 200, ReturnCode: "0", OrderID: "ORD"}, nil
}

type fakeHasher struct {
	hash string
	err  error
}

func (f *fakeHasher) IntegrityHash(ctx context.Context, payload domain.OrderPayload) (string, error) {
	return f.hash, f.err
}

// fakeSubmitter records requests and answers from a script; requests past
// the script succeed.
type fakeSubmitter struct {
	results  []domain.OrderResult
	requests []domain.OrderRequest
}

func (f *fakeSubmitter) Submit(ctx context.Context, order domain.OrderRequest) domain.OrderResult {
	i := len(f.requests)
	f.requests = append(f.requests, order)
	if i < len(f.results) {
		return f.results[i]
	}
	return domain.OrderResult{
		Success:        true,
		FilledPrice:    order.LimitPrice,
		FilledQuantity: order.Quantity,
		VenueUsed:      domain.VenueNASDAQ,
	}
}

type fakeLadders struct {
	ladders map[string]domain.Ladder
	err     error
}

func (f *fakeLadders) GetAskLadder(ctx context.Context, symbol string, venue domain.Venue) (domain.Ladder, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.ladders[symbol], nil
}

type fakePrices map[string]decimal.Decimal

func (f fakePrices) GetLastPrice(ctx context.Context, symbol string) (decimal.Decimal, bool) {
	p, ok := f[symbol]
	return p, ok
}

type fakeHistory struct {
	dates map[string]time.Time
	err   error
}

func (f *fakeHistory) LatestBuyDate(ctx context.Context, symbol string, today time.Time) (time.Time, error) {
	if f.err != nil {
		return time.Time{}, f.err
	}
	d, ok := f.dates[symbol]
	if !ok {
		return time.Time{}, domain.ErrNotFound
	}
	return d, nil
}

type fakeTokenStore struct {
	token   *domain.CachedToken
	loadErr error
	saveErr error
	saved   []domain.CachedToken
	deletes int
}

func (f *fakeTokenStore) LoadToken(ctx context.Context) (*domain.CachedToken, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.token, nil
}

func (f *fakeTokenStore) SaveToken(ctx context.Context, token domain.CachedToken) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, token)
	t := token
	f.token = &t
	return nil
}

func (f *fakeTokenStore) DeleteToken(ctx context.Context) error {
	f.deletes++
	f.token = nil
	f.loadErr = nil
	return nil
}

type fakeAuth struct {
	tokens []string
	err    error
	calls  int
}

func (f *fakeAuth) RequestNewToken(ctx context.Context) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.tokens[(f.calls-1)%len(f.tokens)], nil
}

type fakeAccount struct {
	holdings    [][]domain.Position
	holdingsErr error
	balances    []domain.CurrencyBalance
	balancesErr error
	holdingCall int
}

func (f *fakeAccount) GetHoldings(ctx context.Context) ([]domain.Position, error) {
	if f.holdingsErr != nil {
		return nil, f.holdingsErr
	}
	i := min(f.holdingCall, len(f.holdings)-1)
	f.holdingCall++
	if i < 0 {
		return nil, nil
	}
	return f.holdings[i], nil
}

func (f *fakeAccount) GetMarginBalances(ctx context.Context) ([]domain.CurrencyBalance, error) {
	return f.balances, f.balancesErr
}

type fakeSignals struct {
	signals []domain.Signal
	err     error
}

func (f *fakeSignals) GetLatestSignals(ctx context.Context) ([]domain.Signal, error) {
	return f.signals, f.err
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakeNotifier) Notify(ctx context.Context, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, text)
}

type fakeJournal struct {
	trades []*domain.TradeRecord
}

func (f *fakeJournal) SaveTrade(ctx context.Context, t *domain.TradeRecord) error {
	t.ID = int64(len(f.trades) + 1)
	f.trades = append(f.trades, t)
	return nil
}

func (f *fakeJournal) ListTrades(ctx context.Context, limit int) ([]*domain.TradeRecord, error) {
	return f.trades, nil
}

// sleepRecorder replaces time.Sleep in tests.
type sleepRecorder struct {
	calls []time.Duration
}

func (s *sleepRecorder) sleep(d time.Duration) { s.calls = append(s.calls, d) }

func decFromInt64(n int64) decimal.Decimal { return decimal.NewFromInt(n) }
