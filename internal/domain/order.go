package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Failure reasons surfaced on OrderResult.ErrorReason.
const (
	ReasonConfiguration   = "CONFIGURATION_ERROR"
	ReasonHashFailure     = "HASH_FAILURE"
	ReasonVenuesExhausted = "all venues exhausted"
	ReasonInvalidOrder    = "invalid order"
)

// OrderRequest is a single limit order attempt.
type OrderRequest struct {
	Symbol     string
	Side       Side
	Quantity   int64
	LimitPrice decimal.Decimal
}

// OrderResult is produced once per OrderRequest.
type OrderResult struct {
	Success         bool            `json:"success"`
	FilledPrice     decimal.Decimal `json:"filled_price"`
	FilledQuantity  int64           `json:"filled_quantity"`
	VenueUsed       Venue           `json:"venue_used,omitempty"`
	ProviderOrderID string          `json:"provider_order_id,omitempty"`
	ErrorReason     string          `json:"error_reason,omitempty"`
}

// OrderPayload is the venue-specific order body. Field names follow the
// provider's wire format.
type OrderPayload struct {
	AccountNo       string `json:"CANO"`
	AccountProduct  string `json:"ACNT_PRDT_CD"`
	ExchangeCode    string `json:"OVRS_EXCG_CD"`
	Symbol          string `json:"PDNO"`
	Quantity        string `json:"ORD_QTY"`
	UnitPrice       string `json:"OVRS_ORD_UNPR"`
	ContactPhone    string `json:"CTAC_TLNO"`
	ManagerOrderNo  string `json:"MGCO_APTM_ODNO"`
	OrderServerCode string `json:"ORD_SVR_DVSN_CD"`
	OrderDivision   string `json:"ORD_DVSN"`
}

// VenueReply is the provider's answer to an order that reached it.
type VenueReply struct {
	HTTPStatus  int
	ReturnCode  string
	MessageCode string
	Message     string
	OrderID     string
	Body        string
}

// Fill is one executed slice of a larger desired order.
type Fill struct {
	Price    decimal.Decimal `json:"price"`
	Quantity int64           `json:"quantity"`
	Venue    Venue           `json:"venue"`
	OrderID  string          `json:"order_id,omitempty"`
}

// AllocationPlan is the outcome of one symbol's ladder walk.
type AllocationPlan struct {
	Symbol          string          `json:"symbol"`
	Budget          decimal.Decimal `json:"budget"`
	DesiredQuantity int64           `json:"desired_quantity"`
	Fills           []Fill          `json:"fills"`
	TotalFilled     int64           `json:"total_filled"`
	RemainingBudget decimal.Decimal `json:"remaining_budget"`
	Submissions     int             `json:"submissions"`
	// Skipped is set when the symbol was never walked (insufficient budget,
	// ladder unavailable or empty).
	Skipped    bool   `json:"skipped"`
	SkipReason string `json:"skip_reason,omitempty"`
}

// Executed reports whether at least one share was bought.
func (p *AllocationPlan) Executed() bool {
	return p.TotalFilled > 0
}

// TradeRecord is a journal entry for a successful order.
type TradeRecord struct {
	ID        int64           `json:"id"`
	RunID     string          `json:"run_id"`
	Symbol    string          `json:"symbol"`
	Side      Side            `json:"side"`
	Quantity  int64           `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Venue     Venue           `json:"venue"`
	OrderID   string          `json:"order_id"`
	Reason    string          `json:"reason"`
	CreatedAt time.Time       `json:"created_at"`
}
