// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are lowercase snake_case and stable; clients branch on them instead of
// the message text, which may be localized. Generic codes mirror HTTP status
// semantics. Domain codes name failures the status alone cannot convey.
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeRateLimited      = "rate_limited"
	ErrCodeInternal         = "internal_error"
	ErrCodeUnavailable      = "service_unavailable"

	// Domain-specific:
	ErrCodePhoneRegistered    = "phone_registered"
	ErrCodePhoneNotRegistered = "phone_not_registered"
	ErrCodeInvalidCode        = "invalid_code"
	ErrCodeInvalidPassword    = "invalid_password"
	ErrCodeSMSFailed          = "sms_failed"
	ErrCodeGatewayError       = "gateway_error"
	ErrCodeUpstreamError      = "upstream_error"
)
