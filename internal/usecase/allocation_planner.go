package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vitos/overseas_trade_engine/internal/domain"
	"go.uber.org/zap"
)

var (
	// DefaultMinBuyAmount is the smallest per-symbol budget worth walking.
	DefaultMinBuyAmount = decimal.RequireFromString("0.01")
	minBuyQuantity      = int64(1)
	one                 = decimal.NewFromInt(1)
)

// AllocationResult is the outcome of one buy cycle.
type AllocationResult struct {
	Cash            decimal.Decimal         `json:"cash"`
	PerSymbolBudget decimal.Decimal         `json:"per_symbol_budget"`
	Plans           []domain.AllocationPlan `json:"plans"`
	Insufficient    []string                `json:"insufficient"`
}

// OrderCount returns the number of accepted buy orders.
func (r *AllocationResult) OrderCount() int {
	n := 0
	for _, p := range r.Plans {
		n += len(p.Fills)
	}
	return n
}

// AllocationPlanner splits deployable cash equally across symbols and walks
// each symbol's ask ladder with limit orders.
type AllocationPlanner struct {
	ladders      LadderSource
	orders       OrderSubmitter
	minBuyAmount decimal.Decimal
	orderDelay   time.Duration
	logger       *zap.Logger
	sleep        func(time.Duration)
}

func NewAllocationPlanner(ladders LadderSource, orders OrderSubmitter, minBuyAmount decimal.Decimal, orderDelay time.Duration, logger *zap.Logger) *AllocationPlanner {
	if !minBuyAmount.IsPositive() {
		minBuyAmount = DefaultMinBuyAmount
	}
	return &AllocationPlanner{
		ladders:      ladders,
		orders:       orders,
		minBuyAmount: minBuyAmount,
		orderDelay:   orderDelay,
		logger:       logger,
		sleep:        time.Sleep,
	}
}

// SplitBudget divides cash equally across n symbols, floored to 6 places.
func SplitBudget(cash decimal.Decimal, n int) decimal.Decimal {
	if n <= 0 || !cash.IsPositive() {
		return decimal.Zero
	}
	return cash.Div(decimal.NewFromInt(int64(n))).RoundFloor(6)
}

// Plan runs the buy cycle for every symbol. Capital left unused by one
// symbol is never handed to another.
func (p *AllocationPlanner) Plan(ctx context.Context, cash decimal.Decimal, symbols []string) *AllocationResult {
	budget := SplitBudget(cash, len(symbols))
	result := &AllocationResult{
		Cash:            cash,
		PerSymbolBudget: budget,
		Plans:           make([]domain.AllocationPlan, 0, len(symbols)),
	}

	p.logger.Info("Allocating cash",
		zap.String("cash", cash.StringFixed(6)),
		zap.Int("symbols", len(symbols)),
		zap.String("per_symbol", budget.StringFixed(6)))

	for _, symbol := range symbols {
		plan := p.planSymbol(ctx, symbol, budget)
		if plan.Skipped || !plan.Executed() {
			msg := plan.SkipReason
			if msg == "" {
				msg = "no shares bought"
			}
			result.Insufficient = append(result.Insufficient, fmt.Sprintf("%s: %s", symbol, msg))
		}
		result.Plans = append(result.Plans, plan)
	}
	return result
}

func (p *AllocationPlanner) planSymbol(ctx context.Context, symbol string, budget decimal.Decimal) domain.AllocationPlan {
	plan := domain.AllocationPlan{Symbol: symbol, Budget: budget, RemainingBudget: budget}

	if budget.LessThan(p.minBuyAmount) {
		plan.Skipped = true
		plan.SkipReason = fmt.Sprintf("budget %s below minimum %s, skipped", budget.StringFixed(6), p.minBuyAmount.String())
		p.logger.Warn("Budget below minimum", zap.String("symbol", symbol), zap.String("budget", budget.String()))
		return plan
	}

	ladder, err := p.ladders.GetAskLadder(ctx, symbol, "")
	if err != nil {
		plan.Skipped = true
		plan.SkipReason = "ask ladder unavailable, skipped"
		p.logger.Warn("Ask ladder unavailable", zap.String("symbol", symbol), zap.Error(err))
		return plan
	}
	if len(ladder) == 0 {
		plan.Skipped = true
		plan.SkipReason = "no ask levels, skipped"
		p.logger.Warn("No ask levels", zap.String("symbol", symbol))
		return plan
	}

	return p.Walk(ctx, symbol, budget, ladder)
}

// Walk fills up to floor(budget / lowest ask) shares by buying level by
// level in ascending price order. The budget is never exceeded.
func (p *AllocationPlanner) Walk(ctx context.Context, symbol string, budget decimal.Decimal, ladder domain.Ladder) domain.AllocationPlan {
	plan := domain.AllocationPlan{Symbol: symbol, Budget: budget}

	minPrice, ok := ladder.MinPositivePrice()
	if !ok {
		minPrice = one
	}
	plan.DesiredQuantity = floorDiv(budget, minPrice)

	remaining := plan.DesiredQuantity
	left := budget

	for _, lvl := range ladder {
		if remaining <= 0 {
			break
		}
		if !lvl.Price.IsPositive() {
			continue
		}
		possible := floorDiv(left, lvl.Price)
		if possible <= 0 {
			continue
		}
		qty := min(lvl.Volume, possible, remaining)
		if qty < minBuyQuantity {
			continue
		}

		res := p.submit(ctx, &plan, symbol, qty, lvl.Price.Round(2))
		if !res.Success {
			p.logger.Warn("Buy rejected, retrying at integer price",
				zap.String("symbol", symbol),
				zap.String("price", lvl.Price.String()),
				zap.String("reason", res.ErrorReason))
			res = p.submit(ctx, &plan, symbol, qty, lvl.Price.Round(0))
		}
		if !res.Success {
			p.logger.Error("Buy failed at both prices, abandoning level",
				zap.String("symbol", symbol),
				zap.String("price", lvl.Price.String()))
			continue
		}

		plan.Fills = append(plan.Fills, domain.Fill{
			Price:    res.FilledPrice,
			Quantity: qty,
			Venue:    res.VenueUsed,
			OrderID:  res.ProviderOrderID,
		})
		plan.TotalFilled += qty
		remaining -= qty
		left = left.Sub(lvl.Price.Mul(decimal.NewFromInt(qty)))
	}

	plan.RemainingBudget = left
	if plan.Executed() {
		p.logger.Info("Symbol bought",
			zap.String("symbol", symbol),
			zap.Int64("total", plan.TotalFilled),
			zap.Int("fills", len(plan.Fills)),
			zap.String("remaining_budget", left.String()))
	} else {
		p.logger.Warn("No shares bought", zap.String("symbol", symbol))
	}
	return plan
}

func (p *AllocationPlanner) submit(ctx context.Context, plan *domain.AllocationPlan, symbol string, qty int64, price decimal.Decimal) domain.OrderResult {
	res := p.orders.Submit(ctx, domain.OrderRequest{
		Symbol:     symbol,
		Side:       domain.SideBuy,
		Quantity:   qty,
		LimitPrice: price,
	})
	plan.Submissions++
	p.sleep(p.orderDelay)
	return res
}

// floorDiv returns floor(a / b) for positive b.
func floorDiv(a, b decimal.Decimal) int64 {
	if !b.IsPositive() || !a.IsPositive() {
		return 0
	}
	q, _ := a.QuoRem(b, 0)
	return q.IntPart()
}
