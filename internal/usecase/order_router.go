package usecase

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/vitos/overseas_trade_engine/internal/domain"
	"go.uber.org/zap"
)

const (
	rateLimitCode = "EGW00201"
	// Order division "00" is a limit order.
	limitOrderDivision = "00"
)

var providerErrors = map[string]string{
	"APBK0952":    "order amount exceeds orderable cash",
	"APBK0656":    "no such symbol",
	"IGW00009":    "provider failed to build the response",
	rateLimitCode: "per-second transaction limit exceeded",
}

// DescribeProviderError maps a provider message code to a readable reason.
func DescribeProviderError(msgCode, msg string) string {
	if reason, ok := providerErrors[msgCode]; ok {
		return reason
	}
	return "unknown error: " + msg
}

// Account identifies the brokerage account orders are booked to.
type Account struct {
	Number      string
	ProductCode string
}

// VenueSide keys transaction ids per venue and side.
type VenueSide struct {
	Venue domain.Venue
	Side  domain.Side
}

// TransactionIDs builds a mapping that uses the same id on every venue.
func TransactionIDs(venues []domain.Venue, bySide map[domain.Side]string) map[VenueSide]string {
	ids := make(map[VenueSide]string, len(venues)*len(bySide))
	for _, v := range venues {
		for side, id := range bySide {
			if id != "" {
				ids[VenueSide{Venue: v, Side: side}] = id
			}
		}
	}
	return ids
}

type venueStep int

const (
	stepSuccess venueStep = iota
	stepRetrySame
	stepNextVenue
)

// OrderRouter submits single orders, falling back across venues and retrying
// once on the same venue when the provider reports a rate limit.
type OrderRouter struct {
	transport domain.OrderTransport
	hasher    domain.IntegrityHasher
	account   Account
	trIDs     map[VenueSide]string
	venues    []domain.Venue
	backoff   time.Duration
	logger    *zap.Logger
	sleep     func(time.Duration)
}

func NewOrderRouter(
	transport domain.OrderTransport,
	hasher domain.IntegrityHasher,
	account Account,
	trIDs map[VenueSide]string,
	backoff time.Duration,
	logger *zap.Logger,
) *OrderRouter {
	return &OrderRouter{
		transport: transport,
		hasher:    hasher,
		account:   account,
		trIDs:     trIDs,
		venues:    domain.DefaultVenues,
		backoff:   backoff,
		logger:    logger,
		sleep:     time.Sleep,
	}
}

// Submit places the order. Every failure mode resolves to a result value.
func (r *OrderRouter) Submit(ctx context.Context, order domain.OrderRequest) domain.OrderResult {
	if order.Quantity <= 0 || (order.Side != domain.SideBuy && order.Side != domain.SideSell) {
		return domain.OrderResult{ErrorReason: domain.ReasonInvalidOrder}
	}

	symbol := strings.ToUpper(order.Symbol)
	log := r.logger.With(
		zap.String("symbol", symbol),
		zap.String("side", string(order.Side)),
		zap.Int64("qty", order.Quantity),
		zap.String("price", order.LimitPrice.StringFixed(2)))

	for _, venue := range r.venues {
		trID, ok := r.trIDs[VenueSide{Venue: venue, Side: order.Side}]
		if !ok {
			log.Error("No transaction id configured", zap.String("venue", venue.String()))
			return domain.OrderResult{ErrorReason: domain.ReasonConfiguration}
		}

		payload := r.buildPayload(venue, symbol, order)
		hash, err := r.hasher.IntegrityHash(ctx, payload)
		if err != nil || hash == "" {
			log.Error("Integrity hash unavailable, order aborted",
				zap.String("venue", venue.String()), zap.Error(err))
			return domain.OrderResult{ErrorReason: domain.ReasonHashFailure}
		}

		for attempt := 0; attempt < 2; attempt++ {
			reply, err := r.transport.SendOrder(ctx, trID, payload, hash)
			step := r.classify(log, venue, reply, err, attempt)
			if step == stepSuccess {
				log.Info("Order accepted",
					zap.String("venue", venue.String()),
					zap.String("order_id", reply.OrderID))
				return domain.OrderResult{
					Success:         true,
					FilledPrice:     order.LimitPrice,
					FilledQuantity:  order.Quantity,
					VenueUsed:       venue,
					ProviderOrderID: reply.OrderID,
				}
			}
			if step != stepRetrySame {
				break
			}
			r.sleep(r.backoff)
		}
	}

	log.Error("Order failed on every venue")
	return domain.OrderResult{ErrorReason: domain.ReasonVenuesExhausted}
}

func (r *OrderRouter) classify(log *zap.Logger, venue domain.Venue, reply *domain.VenueReply, err error, attempt int) venueStep {
	if err != nil {
		log.Warn("Order transport failure", zap.String("venue", venue.String()), zap.Error(err))
		return stepNextVenue
	}
	if reply.ReturnCode == "0" {
		return stepSuccess
	}
	if IsRateLimited(reply) {
		if attempt == 0 {
			log.Warn("Rate limit exceeded, retrying same venue",
				zap.String("venue", venue.String()))
			return stepRetrySame
		}
		log.Warn("Rate limit persisted, moving to next venue", zap.String("venue", venue.String()))
		return stepNextVenue
	}
	log.Warn("Order rejected",
		zap.String("venue", venue.String()),
		zap.String("msg_cd", reply.MessageCode),
		zap.String("reason", DescribeProviderError(reply.MessageCode, reply.Message)))
	return stepNextVenue
}

// IsRateLimited reports whether the provider throttled the request.
func IsRateLimited(reply *domain.VenueReply) bool {
	if reply == nil {
		return false
	}
	return reply.HTTPStatus == http.StatusTooManyRequests ||
		reply.MessageCode == rateLimitCode ||
		strings.Contains(reply.Body, rateLimitCode)
}

func (r *OrderRouter) buildPayload(venue domain.Venue, symbol string, order domain.OrderRequest) domain.OrderPayload {
	return domain.OrderPayload{
		AccountNo:       r.account.Number,
		AccountProduct:  r.account.ProductCode,
		ExchangeCode:    venue.String(),
		Symbol:          symbol,
		Quantity:        strconv.FormatInt(order.Quantity, 10),
		UnitPrice:       order.LimitPrice.StringFixed(2),
		OrderServerCode: "0",
		OrderDivision:   limitOrderDivision,
	}
}
