// Package service implements the application use-cases on top of the
// storage, ledger, cache and slip packages. Services are transport-agnostic;
// the api package maps their errors onto HTTP status codes.
package service

import "errors"

var (
	// ErrPermissionDenied is returned when the caller is not the party a
	// record belongs to (not the debtor of a share, not the creditor of a
	// payment, not a member of a trip).
	ErrPermissionDenied = errors.New("permission denied")

	// ErrSettlementInFlight is returned when a second approval or
	// rejection arrives while the first is still being applied.
	ErrSettlementInFlight = errors.New("settlement decision already in flight")

	// ErrSelfPayment is returned when a debtor attempts to settle a share
	// on a bill they paid themselves.
	ErrSelfPayment = errors.New("cannot settle a debt to yourself")

	// ErrInvalidInput is returned for empty or out-of-range request
	// fields.
	ErrInvalidInput = errors.New("invalid input")
)
