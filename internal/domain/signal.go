package domain

import "time"

// Signal is a trade signal produced upstream for a symbol.
type Signal struct {
	Symbol          string    `json:"symbol"`
	SignalDate      time.Time `json:"signal_date"`
	PredictedAction string    `json:"predicted_action"`
}
