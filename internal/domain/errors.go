package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrRateLimited      = errors.New("rate limited")
	ErrTokenUnavailable = errors.New("access token unavailable")
	ErrHashUnavailable  = errors.New("integrity hash unavailable")
	ErrProvider         = errors.New("provider rejected request")
)
