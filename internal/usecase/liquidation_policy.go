package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vitos/overseas_trade_engine/internal/domain"
	"go.uber.org/zap"
)

// DefaultStopLossHoldingDays is the minimum holding period before a losing
// position may be stopped out.
const DefaultStopLossHoldingDays = 5

var hundred = decimal.NewFromInt(100)

// ProfitPct returns (current - entry) / entry * 100, or zero when entry is zero.
func ProfitPct(entry, current decimal.Decimal) decimal.Decimal {
	if entry.IsZero() {
		return decimal.Zero
	}
	return current.Sub(entry).Div(entry).Mul(hundred)
}

// Classify buckets a position by the sign of its unrealized profit.
func Classify(entry, current decimal.Decimal) domain.Bucket {
	if ProfitPct(entry, current).IsPositive() {
		return domain.BucketProfitTaking
	}
	return domain.BucketStopLossCandidate
}

// Classification is the partition of held positions for one cycle.
type Classification struct {
	ProfitTaking      []domain.BucketedPosition
	StopLossCandidate []domain.BucketedPosition
	Excluded          []domain.PositionOutcome
}

// LiquidationPolicy decides which held positions to sell.
type LiquidationPolicy struct {
	history     domain.TradeHistory
	prices      PriceSource
	orders      OrderSubmitter
	holdingDays int
	orderDelay  time.Duration
	logger      *zap.Logger
	sleep       func(time.Duration)
}

func NewLiquidationPolicy(history domain.TradeHistory, prices PriceSource, orders OrderSubmitter, holdingDays int, orderDelay time.Duration, logger *zap.Logger) *LiquidationPolicy {
	if holdingDays <= 0 {
		holdingDays = DefaultStopLossHoldingDays
	}
	return &LiquidationPolicy{
		history:     history,
		prices:      prices,
		orders:      orders,
		holdingDays: holdingDays,
		orderDelay:  orderDelay,
		logger:      logger,
		sleep:       time.Sleep,
	}
}

// Classify resolves entry dates and partitions positions. Positions whose
// entry date is unknown or equal to today are excluded.
func (p *LiquidationPolicy) Classify(ctx context.Context, positions []domain.Position, today time.Time) Classification {
	var c Classification
	for _, pos := range positions {
		entryDate, err := p.history.LatestBuyDate(ctx, pos.Symbol, today)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				p.logger.Warn("Entry date lookup failed", zap.String("symbol", pos.Symbol), zap.Error(err))
			}
			c.Excluded = append(c.Excluded, domain.PositionOutcome{
				Symbol:   pos.Symbol,
				State:    domain.StateExcluded,
				Reason:   "entry date unresolved",
				Quantity: pos.Quantity,
			})
			continue
		}
		if domain.SameDay(entryDate, today) {
			p.logger.Info("Bought today, not evaluated", zap.String("symbol", pos.Symbol))
			c.Excluded = append(c.Excluded, domain.PositionOutcome{
				Symbol:   pos.Symbol,
				State:    domain.StateExcluded,
				Reason:   "bought today",
				Quantity: pos.Quantity,
			})
			continue
		}

		bp := domain.BucketedPosition{
			Holding:   domain.Holding{Position: pos, EntryDate: entryDate},
			Bucket:    Classify(pos.EntryPrice, pos.CurrentPrice),
			ProfitPct: ProfitPct(pos.EntryPrice, pos.CurrentPrice),
		}
		if bp.Bucket == domain.BucketProfitTaking {
			c.ProfitTaking = append(c.ProfitTaking, bp)
		} else {
			c.StopLossCandidate = append(c.StopLossCandidate, bp)
		}
	}
	return c
}

// TakeProfits sells each profit-taking position if it is still profitable at
// the live price.
func (p *LiquidationPolicy) TakeProfits(ctx context.Context, bucket []domain.BucketedPosition) []domain.PositionOutcome {
	outcomes := make([]domain.PositionOutcome, 0, len(bucket))
	for _, bp := range bucket {
		out := domain.PositionOutcome{Symbol: bp.Symbol, State: domain.StateRetained, Quantity: bp.Quantity}

		live, ok := p.prices.GetLastPrice(ctx, bp.Symbol)
		if !ok {
			p.logger.Warn("Live price unavailable, profit take skipped", zap.String("symbol", bp.Symbol))
			out.Reason = "live price unavailable"
			outcomes = append(outcomes, out)
			continue
		}
		out.LivePrice = live
		out.PnL = live.Sub(bp.EntryPrice).Mul(decimal.NewFromInt(bp.Quantity))

		if !ProfitPct(bp.EntryPrice, live).IsPositive() {
			out.Reason = "no longer profitable"
			outcomes = append(outcomes, out)
			continue
		}

		res := p.sell(ctx, bp.Symbol, bp.Quantity, live)
		out.Order = &res
		if res.Success {
			out.State = domain.StateProfitSell
			out.Reason = "profit taken"
		} else {
			out.Reason = res.ErrorReason
		}
		outcomes = append(outcomes, out)
	}
	return outcomes
}

// StopLosses sells losing positions held at least the configured number of
// days, provided the live price still shows no gain.
func (p *LiquidationPolicy) StopLosses(ctx context.Context, bucket []domain.BucketedPosition, today time.Time) []domain.PositionOutcome {
	outcomes := make([]domain.PositionOutcome, 0, len(bucket))
	for _, bp := range bucket {
		out := domain.PositionOutcome{Symbol: bp.Symbol, State: domain.StateRetained, Quantity: bp.Quantity}

		held := bp.HoldingPeriodDays(today)
		if held < p.holdingDays {
			p.logger.Debug("Holding period too short for stop loss",
				zap.String("symbol", bp.Symbol), zap.Int("days", held))
			out.Reason = "holding period too short"
			outcomes = append(outcomes, out)
			continue
		}

		live, ok := p.prices.GetLastPrice(ctx, bp.Symbol)
		if !ok {
			p.logger.Warn("Live price unavailable, stop loss skipped", zap.String("symbol", bp.Symbol))
			out.Reason = "live price unavailable"
			outcomes = append(outcomes, out)
			continue
		}
		out.LivePrice = live
		out.PnL = live.Sub(bp.EntryPrice).Mul(decimal.NewFromInt(bp.Quantity))

		if out.PnL.IsPositive() {
			p.logger.Info("Recovered above entry, stop loss skipped", zap.String("symbol", bp.Symbol))
			out.Reason = "recovered above entry"
			outcomes = append(outcomes, out)
			continue
		}

		p.logger.Info("Stop loss",
			zap.String("symbol", bp.Symbol),
			zap.Int("days", held),
			zap.String("pnl", out.PnL.StringFixed(2)))
		res := p.sell(ctx, bp.Symbol, bp.Quantity, live)
		out.Order = &res
		if res.Success {
			out.State = domain.StateStopSell
			out.Reason = "stop loss"
		} else {
			out.Reason = res.ErrorReason
		}
		outcomes = append(outcomes, out)
	}
	return outcomes
}

// LiquidateAll sells every position at its live price, regardless of profit
// or holding period.
func (p *LiquidationPolicy) LiquidateAll(ctx context.Context, positions []domain.Position) []domain.PositionOutcome {
	outcomes := make([]domain.PositionOutcome, 0, len(positions))
	for _, pos := range positions {
		out := domain.PositionOutcome{Symbol: pos.Symbol, State: domain.StateRetained, Quantity: pos.Quantity}

		live, ok := p.prices.GetLastPrice(ctx, pos.Symbol)
		if !ok {
			p.logger.Warn("Live price unavailable, sell skipped", zap.String("symbol", pos.Symbol))
			out.Reason = "live price unavailable"
			outcomes = append(outcomes, out)
			continue
		}
		out.LivePrice = live
		out.PnL = live.Sub(pos.EntryPrice).Mul(decimal.NewFromInt(pos.Quantity))

		res := p.sell(ctx, pos.Symbol, pos.Quantity, live)
		out.Order = &res
		if res.Success {
			out.State = domain.StateStopSell
			out.Reason = "liquidated"
		} else {
			out.Reason = res.ErrorReason
		}
		outcomes = append(outcomes, out)
	}
	return outcomes
}

func (p *LiquidationPolicy) sell(ctx context.Context, symbol string, qty int64, price decimal.Decimal) domain.OrderResult {
	res := p.orders.Submit(ctx, domain.OrderRequest{
		Symbol:     symbol,
		Side:       domain.SideSell,
		Quantity:   qty,
		LimitPrice: price,
	})
	p.sleep(p.orderDelay)
	return res
}
