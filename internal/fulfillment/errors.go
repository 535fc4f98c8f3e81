package fulfillment

import "errors"

var (
	// ErrNotFound: the referenced payment, card or redemption does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict: a precondition failed, e.g. the request is no longer
	// pending or the card is not available. Nothing was mutated.
	ErrConflict = errors.New("conflict")
	// ErrUnauthorized: the caller could not be verified as an admin. Checked
	// before any ledger access.
	ErrUnauthorized = errors.New("unauthorized")
)
