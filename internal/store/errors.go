package store

import "errors"

// Domain-expected failures. Infrastructure errors (pool exhaustion, network)
// are returned as-is and are not part of this set.
var (
	// ErrNotFound covers both a missing row and a row the caller does not
	// own. The two are deliberately indistinguishable so callers cannot
	// probe for the existence of other tenants' entities.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidState means the transition is not permitted from the
	// entity's current state.
	ErrInvalidState = errors.New("invalid state for this transition")

	ErrJobNotOpen         = errors.New("job is not open to quote")
	ErrPendingQuotation   = errors.New("provider already has a pending quotation for this job")
	ErrInsufficientCredit = errors.New("insufficient credit balance")
	ErrInsufficientFunds  = errors.New("insufficient balance")
	ErrPromotionNotFound  = errors.New("promotion not found")
	ErrPromotionUsed      = errors.New("promotion already in use")
	ErrEmailTaken         = errors.New("email already registered")
)
