package usecase

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/vitos/overseas_trade_engine/internal/domain"
	"go.uber.org/zap"
)

// MarketGateway reads last prices and ask ladders, hiding venue fallback
// from callers.
type MarketGateway struct {
	quotes      domain.QuoteProvider
	venues      []domain.Venue
	ladderVenue domain.Venue
	logger      *zap.Logger
}

func NewMarketGateway(quotes domain.QuoteProvider, logger *zap.Logger) *MarketGateway {
	return &MarketGateway{
		quotes:      quotes,
		venues:      domain.DefaultVenues,
		ladderVenue: domain.VenueNASDAQ,
		logger:      logger,
	}
}

// GetLastPrice tries every venue in priority order and returns the first
// well-formed positive price. ok is false once all venues failed; callers
// skip the symbol in that case.
func (g *MarketGateway) GetLastPrice(ctx context.Context, symbol string) (price decimal.Decimal, ok bool) {
	for _, venue := range g.venues {
		raw, err := g.quotes.FetchLastPrice(ctx, venue, symbol)
		if err != nil {
			g.logger.Warn("Last price request failed",
				zap.String("symbol", symbol),
				zap.String("venue", venue.QuoteCode()),
				zap.Error(err))
			continue
		}

		p, err := ParsePrice(raw)
		if err != nil {
			g.logger.Warn("Last price malformed",
				zap.String("symbol", symbol),
				zap.String("venue", venue.QuoteCode()),
				zap.String("raw", raw),
				zap.Error(err))
			continue
		}

		g.logger.Info("Last price",
			zap.String("symbol", symbol),
			zap.String("venue", venue.QuoteCode()),
			zap.String("price", p.String()))
		return p, true
	}

	g.logger.Error("Last price unavailable on every venue", zap.String("symbol", symbol))
	return decimal.Zero, false
}

// GetAskLadder fetches the ask side from a single venue (the primary one when
// venue is empty). An empty ladder with a nil error means no liquidity.
func (g *MarketGateway) GetAskLadder(ctx context.Context, symbol string, venue domain.Venue) (domain.Ladder, error) {
	if venue == "" {
		venue = g.ladderVenue
	}

	raw, err := g.quotes.FetchAskDepth(ctx, venue, strings.ToUpper(symbol))
	if err != nil {
		return nil, fmt.Errorf("ask ladder %s@%s: %w", symbol, venue.QuoteCode(), err)
	}

	ladder := ParseLadder(raw)
	if dropped := len(raw) - len(ladder); dropped > 0 {
		g.logger.Debug("Dropped invalid ask levels",
			zap.String("symbol", symbol),
			zap.Int("dropped", dropped))
	}
	return ladder, nil
}

// ParsePrice accepts only strictly positive decimal strings.
func ParsePrice(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, fmt.Errorf("empty price")
	}
	p, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, err
	}
	if !p.IsPositive() {
		return decimal.Zero, fmt.Errorf("non-positive price %s", raw)
	}
	return p, nil
}

// ParseLadder turns provider ask levels into a validated ladder sorted
// ascending by price. Levels with a non-positive price or a missing or
// malformed volume are dropped.
func ParseLadder(raw []domain.RawAskLevel) domain.Ladder {
	ladder := make(domain.Ladder, 0, len(raw))
	for i, r := range raw {
		if i >= domain.MaxLadderDepth {
			break
		}
		price, err := ParsePrice(r.Price)
		if err != nil {
			continue
		}
		vol := strings.TrimSpace(r.Volume)
		if vol == "" {
			continue
		}
		volume, err := strconv.ParseInt(vol, 10, 64)
		if err != nil || volume < 0 {
			continue
		}
		ladder = append(ladder, domain.AskLevel{Price: price, Volume: volume})
	}

	sort.SliceStable(ladder, func(i, j int) bool {
		return ladder[i].Price.LessThan(ladder[j].Price)
	})
	return ladder
}
