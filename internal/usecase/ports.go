package usecase

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/vitos/overseas_trade_engine/internal/domain"
)

// PriceSource is satisfied by MarketGateway.
type PriceSource interface {
	GetLastPrice(ctx context.Context, symbol string) (decimal.Decimal, bool)
}

// LadderSource is satisfied by MarketGateway.
type LadderSource interface {
	GetAskLadder(ctx context.Context, symbol string, venue domain.Venue) (domain.Ladder, error)
}

// OrderSubmitter is satisfied by OrderRouter.
type OrderSubmitter interface {
	Submit(ctx context.Context, order domain.OrderRequest) domain.OrderResult
}
