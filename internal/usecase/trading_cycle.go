package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vitos/overseas_trade_engine/internal/domain"
	"go.uber.org/zap"
)

// MaxNotificationLength is the longest message the operator channel accepts.
const MaxNotificationLength = 2000

// CycleReport summarizes one run of the trading cycle.
type CycleReport struct {
	RunID          string                   `json:"run_id"`
	StartedAt      time.Time                `json:"started_at"`
	Cash           decimal.Decimal          `json:"cash"`
	Sells          []domain.PositionOutcome `json:"sells"`
	Allocation     *AllocationResult        `json:"allocation,omitempty"`
	HoldingsAfter  int                      `json:"holdings_after"`
	RealizedPnL    decimal.Decimal          `json:"realized_pnl"`
	SellOrderCount int                      `json:"sell_order_count"`
	BuyOrderCount  int                      `json:"buy_order_count"`
}

// TradingCycle runs the daily sell phase followed by the buy phase.
type TradingCycle struct {
	account  domain.AccountReader
	signals  domain.SignalSource
	policy   *LiquidationPolicy
	planner  *AllocationPlanner
	journal  domain.TradeRepository
	notifier domain.Notifier
	currency string
	logger   *zap.Logger
	timeNow  func() time.Time
}

func NewTradingCycle(
	account domain.AccountReader,
	signals domain.SignalSource,
	policy *LiquidationPolicy,
	planner *AllocationPlanner,
	journal domain.TradeRepository,
	notifier domain.Notifier,
	currency string,
	logger *zap.Logger,
) *TradingCycle {
	if currency == "" {
		currency = "USD"
	}
	return &TradingCycle{
		account:  account,
		signals:  signals,
		policy:   policy,
		planner:  planner,
		journal:  journal,
		notifier: notifier,
		currency: currency,
		logger:   logger,
		timeNow:  time.Now,
	}
}

// Run executes one cycle. Only process-level failures are returned as errors.
func (c *TradingCycle) Run(ctx context.Context) (*CycleReport, error) {
	report := &CycleReport{RunID: uuid.NewString(), StartedAt: c.timeNow()}
	log := c.logger.With(zap.String("run_id", report.RunID))
	log.Info("Trading cycle started")

	balances, err := c.account.GetMarginBalances(ctx)
	if err != nil {
		c.notifier.Notify(ctx, fmt.Sprintf("Margin inquiry failed: %v", err))
		return nil, fmt.Errorf("read margin balances: %w", err)
	}
	if len(balances) == 0 {
		log.Info("No margin balances reported")
		c.notifier.Notify(ctx, "No margin balance information, nothing to do.")
		return report, nil
	}
	bal, ok := domain.FindCurrency(balances, c.currency)
	if !ok {
		c.notifier.Notify(ctx, fmt.Sprintf("No %s balance row.", c.currency))
		return nil, fmt.Errorf("no %s balance: %w", c.currency, domain.ErrNotFound)
	}
	report.Cash = bal.GeneralOrderable

	totals := fmt.Sprintf("Deposit: %s %s\nGeneral orderable: %s %s\nOrderable: %s %s",
		bal.Deposit.StringFixed(6), c.currency,
		bal.GeneralOrderable.StringFixed(2), c.currency,
		bal.Orderable.StringFixed(6), c.currency)
	log.Info("Balances", zap.String("currency", c.currency), zap.String("cash", report.Cash.String()))
	c.notifier.Notify(ctx, totals)

	c.sellPhase(ctx, log, report)

	if err := c.buyPhase(ctx, log, report); err != nil {
		return report, err
	}

	c.summarize(ctx, log, report)
	log.Info("Trading cycle finished")
	c.notifier.Notify(ctx, "Trading cycle finished.")
	return report, nil
}

// SellAll liquidates every held position.
func (c *TradingCycle) SellAll(ctx context.Context) (*CycleReport, error) {
	report := &CycleReport{RunID: uuid.NewString(), StartedAt: c.timeNow()}
	log := c.logger.With(zap.String("run_id", report.RunID))

	holdings, err := c.account.GetHoldings(ctx)
	if err != nil {
		c.notifier.Notify(ctx, fmt.Sprintf("Holdings inquiry failed: %v", err))
		return nil, fmt.Errorf("read holdings: %w", err)
	}
	if len(holdings) == 0 {
		log.Info("No holdings to sell")
		c.notifier.Notify(ctx, "No holdings, nothing to sell.")
		return report, nil
	}

	c.notifier.Notify(ctx, "Selling every holding")
	report.Sells = c.policy.LiquidateAll(ctx, holdings)
	c.journalSells(ctx, log, report.RunID, report.Sells)
	report.SellOrderCount = countSold(report.Sells)
	c.notifier.Notify(ctx, fmt.Sprintf("Sold positions: %d", report.SellOrderCount))

	c.refreshAccount(ctx, report)
	log.Info("Sell-all finished",
		zap.Int("sold", report.SellOrderCount),
		zap.Int("holdings_after", report.HoldingsAfter))
	c.notifier.Notify(ctx, fmt.Sprintf("Holdings after sell: %d\nRealized P&L: %s %s",
		report.HoldingsAfter, report.RealizedPnL.StringFixed(4), c.currency))
	return report, nil
}

func (c *TradingCycle) sellPhase(ctx context.Context, log *zap.Logger, report *CycleReport) {
	c.notifier.Notify(ctx, "Sell phase started")
	defer c.notifier.Notify(ctx, "Sell phase finished")

	holdings, err := c.account.GetHoldings(ctx)
	if err != nil {
		log.Error("Holdings inquiry failed, skipping sells", zap.Error(err))
		c.notifier.Notify(ctx, fmt.Sprintf("Holdings inquiry failed: %v", err))
		return
	}
	if len(holdings) == 0 {
		log.Info("No positions, skipping sells")
		c.notifier.Notify(ctx, "No positions, sell phase skipped.")
		return
	}

	today := c.timeNow()
	classes := c.policy.Classify(ctx, holdings, today)
	report.Sells = append(report.Sells, classes.Excluded...)

	taken := c.policy.TakeProfits(ctx, classes.ProfitTaking)
	report.Sells = append(report.Sells, taken...)
	c.journalSells(ctx, log, report.RunID, taken)

	if after, err := c.account.GetHoldings(ctx); err == nil {
		log.Info("Holdings after profit taking", zap.Int("count", len(after)))
	}

	c.notifier.Notify(ctx, "Checking holding period of flat and losing positions")
	stopped := c.policy.StopLosses(ctx, classes.StopLossCandidate, today)
	report.Sells = append(report.Sells, stopped...)
	c.journalSells(ctx, log, report.RunID, stopped)

	report.SellOrderCount = countSold(report.Sells)
}

func (c *TradingCycle) buyPhase(ctx context.Context, log *zap.Logger, report *CycleReport) error {
	c.notifier.Notify(ctx, "Buy phase started")

	signals, err := c.signals.GetLatestSignals(ctx)
	if err != nil {
		c.notifier.Notify(ctx, fmt.Sprintf("Signal query failed: %v", err))
		return fmt.Errorf("load signals: %w", err)
	}
	log.Info("Signals loaded", zap.Int("count", len(signals)))
	c.notifier.Notify(ctx, fmt.Sprintf("Buy signals: %d", len(signals)))

	if len(signals) == 0 {
		c.notifier.Notify(ctx, "No buy signals, nothing bought.")
		return nil
	}

	symbols := make([]string, 0, len(signals))
	for _, s := range signals {
		symbols = append(symbols, s.Symbol)
	}

	c.notifier.Notify(ctx, fmt.Sprintf("Cash: %s %s\nSymbols: %d, per symbol %s %s",
		report.Cash.StringFixed(6), c.currency, len(symbols),
		SplitBudget(report.Cash, len(symbols)).StringFixed(6), c.currency))

	result := c.planner.Plan(ctx, report.Cash, symbols)
	report.Allocation = result
	report.BuyOrderCount = result.OrderCount()

	for _, plan := range result.Plans {
		if !plan.Executed() {
			continue
		}
		c.journalFills(ctx, log, report.RunID, plan)
		c.notifier.Notify(ctx, describeFills(plan, c.currency))
	}
	c.notifier.Notify(ctx, "Buy phase finished")

	for _, chunk := range BatchMessages(result.Insufficient, MaxNotificationLength) {
		c.notifier.Notify(ctx, chunk)
	}
	return nil
}

func (c *TradingCycle) summarize(ctx context.Context, log *zap.Logger, report *CycleReport) {
	log.Info("Order counts",
		zap.Int("sell_orders", report.SellOrderCount),
		zap.Int("buy_orders", report.BuyOrderCount))
	c.notifier.Notify(ctx, fmt.Sprintf("Sell orders: %d\nBuy orders: %d", report.SellOrderCount, report.BuyOrderCount))

	if report.Allocation != nil {
		var b strings.Builder
		b.WriteString("Bought quantities:")
		for _, plan := range report.Allocation.Plans {
			fmt.Fprintf(&b, "\n%s: %d", plan.Symbol, plan.TotalFilled)
		}
		c.notifier.Notify(ctx, b.String())
	}

	c.refreshAccount(ctx, report)
	log.Info("Holdings after cycle", zap.Int("count", report.HoldingsAfter))
	c.notifier.Notify(ctx, fmt.Sprintf("Holdings now: %d", report.HoldingsAfter))
}

// refreshAccount re-reads holdings and realized P&L; failures leave zeros.
func (c *TradingCycle) refreshAccount(ctx context.Context, report *CycleReport) {
	if holdings, err := c.account.GetHoldings(ctx); err == nil {
		report.HoldingsAfter = len(holdings)
	}
	if balances, err := c.account.GetMarginBalances(ctx); err == nil {
		if bal, ok := domain.FindCurrency(balances, c.currency); ok {
			report.RealizedPnL = bal.RealizedPnL
		}
	}
}

func (c *TradingCycle) journalSells(ctx context.Context, log *zap.Logger, runID string, outcomes []domain.PositionOutcome) {
	for _, out := range outcomes {
		if !out.Sold() {
			continue
		}
		c.saveTrade(ctx, log, &domain.TradeRecord{
			RunID:     runID,
			Symbol:    out.Symbol,
			Side:      domain.SideSell,
			Quantity:  out.Order.FilledQuantity,
			Price:     out.Order.FilledPrice,
			Venue:     out.Order.VenueUsed,
			OrderID:   out.Order.ProviderOrderID,
			Reason:    string(out.State),
			CreatedAt: c.timeNow(),
		})
	}
}

func (c *TradingCycle) journalFills(ctx context.Context, log *zap.Logger, runID string, plan domain.AllocationPlan) {
	for _, f := range plan.Fills {
		c.saveTrade(ctx, log, &domain.TradeRecord{
			RunID:     runID,
			Symbol:    plan.Symbol,
			Side:      domain.SideBuy,
			Quantity:  f.Quantity,
			Price:     f.Price,
			Venue:     f.Venue,
			OrderID:   f.OrderID,
			Reason:    "signal",
			CreatedAt: c.timeNow(),
		})
	}
}

func (c *TradingCycle) saveTrade(ctx context.Context, log *zap.Logger, t *domain.TradeRecord) {
	if c.journal == nil {
		return
	}
	if err := c.journal.SaveTrade(ctx, t); err != nil {
		log.Error("Failed to journal trade", zap.String("symbol", t.Symbol), zap.Error(err))
	}
}

func countSold(outcomes []domain.PositionOutcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Sold() {
			n++
		}
	}
	return n
}

func describeFills(plan domain.AllocationPlan, currency string) string {
	parts := make([]string, 0, len(plan.Fills))
	for _, f := range plan.Fills {
		parts = append(parts, fmt.Sprintf("%d @ %s %s", f.Quantity, f.Price.String(), currency))
	}
	return fmt.Sprintf("%s: bought %d - %s", plan.Symbol, plan.TotalFilled, strings.Join(parts, ", "))
}

// BatchMessages joins messages with newlines into chunks no longer than
// maxLen. A single message longer than maxLen gets its own chunk.
func BatchMessages(messages []string, maxLen int) []string {
	var (
		chunks []string
		cur    strings.Builder
	)
	for _, msg := range messages {
		if cur.Len() > 0 && cur.Len()+len(msg)+1 > maxLen {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
		cur.WriteString(msg)
		cur.WriteByte('\n')
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}
