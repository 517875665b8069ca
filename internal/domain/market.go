package domain

import "github.com/shopspring/decimal"

// Venue is an execution destination. Order routing uses the order code
// (NASD/NYSE/AMEX), quote endpoints use the short quote code (NAS/NYS/AMS).
type Venue string

const (
	VenueNASDAQ Venue = "NASD"
	VenueNYSE   Venue = "NYSE"
	VenueAMEX   Venue = "AMEX"
)

// DefaultVenues is the fixed priority order used for quotes and orders.
var DefaultVenues = []Venue{VenueNASDAQ, VenueNYSE, VenueAMEX}

// QuoteCode returns the exchange code used by the quotation endpoints.
func (v Venue) QuoteCode() string {
	switch v {
	case VenueNASDAQ:
		return "NAS"
	case VenueNYSE:
		return "NYS"
	case VenueAMEX:
		return "AMS"
	}
	return string(v)
}

func (v Venue) String() string {
	return string(v)
}

// MaxLadderDepth is the number of ask levels the provider returns.
const MaxLadderDepth = 10

// RawAskLevel is an ask level as reported by the provider, before validation.
type RawAskLevel struct {
	Price  string
	Volume string
}

// AskLevel is a validated ask level: Price > 0, Volume >= 0.
type AskLevel struct {
	Price  decimal.Decimal `json:"price"`
	Volume int64           `json:"volume"`
}

// Ladder is a sequence of ask levels sorted ascending by price.
type Ladder []AskLevel

// MinPositivePrice returns the lowest positive price on the ladder.
func (l Ladder) MinPositivePrice() (decimal.Decimal, bool) {
	var (
		min   decimal.Decimal
		found bool
	)
	for _, lvl := range l {
		if !lvl.Price.IsPositive() {
			continue
		}
		if !found || lvl.Price.LessThan(min) {
			min = lvl.Price
			found = true
		}
	}
	return min, found
}
