package usecase

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/overseas_trade_engine/internal/domain"
	"go.uber.org/zap"
)

type cycleFixture struct {
	account  *fakeAccount
	signals  *fakeSignals
	orders   *fakeSubmitter
	journal  *fakeJournal
	notifier *fakeNotifier
	cycle    *TradingCycle
}

func newCycleFixture(ladders map[string]domain.Ladder, prices fakePrices, history map[string]time.Time) *cycleFixture {
	f := &cycleFixture{
		account: &fakeAccount{balances: []domain.CurrencyBalance{
			{Currency: "KRW", GeneralOrderable: dec("1000000")},
			{Currency: "USD", Deposit: dec("150"), GeneralOrderable: dec("100"), Orderable: dec("100"), RealizedPnL: dec("6")},
		}},
		signals:  &fakeSignals{},
		orders:   &fakeSubmitter{},
		journal:  &fakeJournal{},
		notifier: &fakeNotifier{},
	}
	nop := func(time.Duration) {}

	policy := NewLiquidationPolicy(&fakeHistory{dates: history}, prices, f.orders, DefaultStopLossHoldingDays, 0, zap.NewNop())
	policy.sleep = nop
	planner := NewAllocationPlanner(&fakeLadders{ladders: ladders}, f.orders, DefaultMinBuyAmount, 0, zap.NewNop())
	planner.sleep = nop

	f.cycle = NewTradingCycle(f.account, f.signals, policy, planner, f.journal, f.notifier, "USD", zap.NewNop())
	f.cycle.timeNow = func() time.Time { return policyToday }
	return f
}

func TestTradingCycle_Run_SellsThenBuys(t *testing.T) {
	f := newCycleFixture(
		map[string]domain.Ladder{"AAPL": {level("9.50", 5), level("9.60", 20)}},
		fakePrices{"WIN": dec("12")},
		map[string]time.Time{"WIN": policyToday.AddDate(0, 0, -2)},
	)
	f.account.holdings = [][]domain.Position{
		{position("WIN", "10", "12", 3)},
		{},
		{position("AAPL", "9.55", "9.55", 10)},
	}
	f.signals.signals = []domain.Signal{{Symbol: "AAPL", SignalDate: policyToday}}

	report, err := f.cycle.Run(context.Background())

	require.NoError(t, err)
	assert.NotEmpty(t, report.RunID)
	assert.True(t, report.Cash.Equal(dec("100")))
	assert.Equal(t, 1, report.SellOrderCount)
	assert.Equal(t, 2, report.BuyOrderCount)
	assert.Equal(t, 1, report.HoldingsAfter)
	assert.True(t, report.RealizedPnL.Equal(dec("6")))

	require.Len(t, f.orders.requests, 3)
	assert.Equal(t, domain.SideSell, f.orders.requests[0].Side)
	assert.Equal(t, domain.SideBuy, f.orders.requests[1].Side)

	require.Len(t, f.journal.trades, 3)
	assert.Equal(t, string(domain.StateProfitSell), f.journal.trades[0].Reason)
	for _, tr := range f.journal.trades {
		assert.Equal(t, report.RunID, tr.RunID)
	}
	assert.Contains(t, strings.Join(f.notifier.messages, "\n"), "Buy orders: 2")
}

func TestTradingCycle_Run_NoBalancesIsGraceful(t *testing.T) {
	f := newCycleFixture(nil, fakePrices{}, nil)
	f.account.balances = nil

	report, err := f.cycle.Run(context.Background())

	require.NoError(t, err)
	assert.Zero(t, report.SellOrderCount)
	assert.Empty(t, f.orders.requests)
}

func TestTradingCycle_Run_BalanceErrorIsFatal(t *testing.T) {
	f := newCycleFixture(nil, fakePrices{}, nil)
	f.account.balancesErr = errBoom

	_, err := f.cycle.Run(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)
}

func TestTradingCycle_Run_MissingCurrency(t *testing.T) {
	f := newCycleFixture(nil, fakePrices{}, nil)
	f.account.balances = []domain.CurrencyBalance{{Currency: "KRW"}}

	_, err := f.cycle.Run(context.Background())

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTradingCycle_Run_SignalErrorStopsBuying(t *testing.T) {
	f := newCycleFixture(nil, fakePrices{}, nil)
	f.signals.err = errBoom

	report, err := f.cycle.Run(context.Background())

	require.Error(t, err)
	require.NotNil(t, report)
	assert.Empty(t, f.orders.requests)
}

func TestTradingCycle_Run_HoldingsErrorSkipsSells(t *testing.T) {
	f := newCycleFixture(
		map[string]domain.Ladder{"AAPL": {level("10", 100)}},
		fakePrices{},
		nil,
	)
	f.account.holdingsErr = errBoom
	f.signals.signals = []domain.Signal{{Symbol: "AAPL"}}

	report, err := f.cycle.Run(context.Background())

	require.NoError(t, err)
	assert.Zero(t, report.SellOrderCount)
	assert.Equal(t, 1, report.BuyOrderCount)
}

func TestTradingCycle_SellAll(t *testing.T) {
	f := newCycleFixture(nil, fakePrices{"A": dec("5"), "B": dec("20")}, nil)
	f.account.holdings = [][]domain.Position{
		{position("A", "10", "5", 1), position("B", "10", "20", 2)},
		{},
	}

	report, err := f.cycle.SellAll(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, report.SellOrderCount)
	assert.Equal(t, 0, report.HoldingsAfter)
	assert.Len(t, f.journal.trades, 2)
}

func TestBatchMessages(t *testing.T) {
	msgs := []string{strings.Repeat("a", 900), strings.Repeat("b", 900), strings.Repeat("c", 900)}

	chunks := BatchMessages(msgs, MaxNotificationLength)

	require.Len(t, chunks, 2)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), MaxNotificationLength)
	}
	assert.True(t, strings.HasPrefix(chunks[1], "c"))
	assert.Empty(t, BatchMessages(nil, MaxNotificationLength))
}
