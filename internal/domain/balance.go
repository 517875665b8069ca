package domain

import "github.com/shopspring/decimal"

// CurrencyBalance is one row of the foreign margin inquiry.
type CurrencyBalance struct {
	Nation           string          `json:"nation"`
	Currency         string          `json:"currency"`
	Deposit          decimal.Decimal `json:"deposit"`
	GeneralOrderable decimal.Decimal `json:"general_orderable"`
	Orderable        decimal.Decimal `json:"orderable"`
	IntegratedOrder  decimal.Decimal `json:"integrated_orderable"`
	ExchangeRate     decimal.Decimal `json:"exchange_rate"`
	RealizedPnL      decimal.Decimal `json:"realized_pnl"`
}

// FindCurrency returns the balance row for the given currency code.
func FindCurrency(balances []CurrencyBalance, currency string) (CurrencyBalance, bool) {
	for _, b := range balances {
		if b.Currency == currency {
			return b, true
		}
	}
	return CurrencyBalance{}, false
}
