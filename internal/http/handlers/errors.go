// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are lowercase snake_case. Generic codes mirror HTTP status semantics;
// faucet-specific codes tell the front end why a claim did not go through.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "remote_ineligible",
//	  "message": "Cooldown/limit. Try again later."
//	}
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeRateLimited      = "rate_limited"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Faucet-specific:
	ErrCodeInvalidAddress   = "invalid_address"
	ErrCodeCooldownActive   = "cooldown_active"
	ErrCodeRemoteIneligible = "remote_ineligible"
	ErrCodeServiceIssue     = "service_issue"
)

// User-facing messages for the claim flow.
const (
	msgInvalidAddress = "Invalid EVM address."
	msgIneligible     = "Cooldown/limit. Try again later."
	msgServiceIssue   = "Service issue. Please try again later."
	msgMissingUser    = "missing requester identity"
	msgInternal       = "internal server error"
)
