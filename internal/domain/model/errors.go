package model

import "errors"

// Failure taxonomy of the retrieval core. The coordinator absorbs whatever
// it can mask with stale data; only a hard miss with no usable stale entry
// surfaces one of these to the caller.
var (
	// ErrQuotaExhausted is the distinguished "store throttled us" failure.
	// It must trigger a stale-serve attempt before being surfaced.
	ErrQuotaExhausted = errors.New("point store quota exhausted")

	// ErrRateLimited is returned without contacting the store when the
	// per-region minimum fetch interval has not elapsed. Not retried
	// automatically; the caller may retry later.
	ErrRateLimited = errors.New("region fetch rate limited")

	// ErrUnavailable means the store failed and no stale data inside the
	// hard staleness ceiling exists. Distinct from an empty (successful)
	// region result.
	ErrUnavailable = errors.New("region currently unavailable")

	// ErrNotFound is returned for lookups of unknown record ids.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidInput marks a request rejected by validation before any
	// store or cache work happened.
	ErrInvalidInput = errors.New("invalid input")
)
