package booking

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrSlotUnavailable = errors.New("slot no longer available")
	ErrQuotaExceeded   = errors.New("monthly booking limit reached")
)
