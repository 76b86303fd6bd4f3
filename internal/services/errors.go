// Package services defines the claim business logic.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import "errors"

var (
	// ErrInvalidInput is returned when a claim arrives without a requester id
	// or destination address. It is not retryable.
	ErrInvalidInput = errors.New("invalid claim input")

	// ErrStorage wraps any failure to read or write the cooldown store. An
	// evaluation that hits it never reports success.
	ErrStorage = errors.New("cooldown store failure")
)
