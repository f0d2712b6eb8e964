package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, lockers and the ledger
// return these (optionally wrapped) so services can translate them into domain
// errors.
//
// - ErrNotFound: entity does not exist in store
// - ErrConflict: optimistic version mismatch or unique constraint hit
// - ErrExpired: a verification has passed its validity window
// - ErrInvalidState: entity in wrong state for requested operation
// - ErrUnavailable: dependency temporarily unavailable (provider, breaker open)
// - ErrLocked: another writer holds the case lock
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
	ErrLocked       = errors.New("locked")
)
