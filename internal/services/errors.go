package services

import "errors"

// Engine error taxonomy. Handlers map these onto HTTP status codes with
// errors.Is, so services wrap them with context rather than replacing them.
var (
	ErrInvalidParameter     = errors.New("invalid parameter")
	ErrNotFound             = errors.New("not found")
	ErrInvalidState         = errors.New("invalid state")
	ErrTooEarly             = errors.New("too early to resolve")
	ErrAlreadyResolved      = errors.New("market already resolved")
	ErrAlreadyCancelled     = errors.New("market already cancelled")
	ErrPositionSideConflict = errors.New("position exists on the opposite side")
	ErrNotAWinner           = errors.New("position is not on the winning side")
	ErrAlreadyClaimed       = errors.New("position already claimed")
	ErrUnauthorized         = errors.New("caller is not an authorized operator")
	ErrPriceUnavailable     = errors.New("price unavailable")
	ErrInsufficientBalance  = errors.New("insufficient balance")
)
