package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is the broker's view of a held symbol.
type Position struct {
	Symbol       string          `json:"symbol"`
	EntryPrice   decimal.Decimal `json:"entry_price"`
	Quantity     int64           `json:"quantity"`
	CurrentPrice decimal.Decimal `json:"current_price"`
}

// Holding is a Position with its resolved entry date. It is an immutable
// snapshot for one liquidation pass.
type Holding struct {
	Position
	EntryDate time.Time `json:"entry_date"`
}

// HoldingPeriodDays returns whole calendar days between entry and today.
func (h Holding) HoldingPeriodDays(today time.Time) int {
	return DaysBetween(h.EntryDate, today)
}

// Bucket is the liquidation bucket a holding is classified into.
type Bucket string

const (
	BucketProfitTaking      Bucket = "profit_taking"
	BucketStopLossCandidate Bucket = "stop_loss_candidate"
)

// BucketedPosition is a Holding classified at a point in time.
type BucketedPosition struct {
	Holding
	Bucket    Bucket          `json:"bucket"`
	ProfitPct decimal.Decimal `json:"profit_pct"`
}

// PositionState is the terminal state of a position in one cycle.
type PositionState string

const (
	StateExcluded   PositionState = "EXCLUDED"
	StateProfitSell PositionState = "PROFIT_SELL"
	StateStopSell   PositionState = "STOP_SELL"
	StateRetained   PositionState = "RETAINED"
)

// PositionOutcome records what a liquidation pass did with a position.
type PositionOutcome struct {
	Symbol    string          `json:"symbol"`
	State     PositionState   `json:"state"`
	Reason    string          `json:"reason"`
	Quantity  int64           `json:"quantity"`
	LivePrice decimal.Decimal `json:"live_price"`
	PnL       decimal.Decimal `json:"pnl"`
	Order     *OrderResult    `json:"order,omitempty"`
}

// Sold reports whether a SELL order was accepted for the position.
func (o PositionOutcome) Sold() bool {
	return o.Order != nil && o.Order.Success
}

// DaysBetween counts calendar days from a to b, ignoring the time of day.
func DaysBetween(a, b time.Time) int {
	ad := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bd := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(bd.Sub(ad).Hours() / 24)
}

// SameDay reports whether a and b fall on the same calendar date.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
