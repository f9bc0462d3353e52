package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrRateLimited        = errors.New("rate limited")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidOrder       = errors.New("invalid order parameters")
	ErrPriceUnavailable   = errors.New("price unavailable")
	ErrMissingCredentials = errors.New("missing exchange credentials")
	ErrAllocationInFlight = errors.New("allocation run already in flight")
	ErrLockHeld           = errors.New("lock already held")
	ErrWSDisconnect       = errors.New("websocket disconnected")
)
