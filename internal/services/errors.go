// Package services implements the application use-cases behind the HTTP API:
// phone checks, verification codes and password accounts, credit and history reads, task status
// polling, payment creation and fulfillment, and prompt enhancement.
//
// This file centralizes service-level error values so that they can be
// consistently returned by service methods and checked by callers.
// Translation into user-facing messages and HTTP status codes is performed at
// the handler layer.
package services

import (
	"errors"
	"fmt"

	"github.com/designai/studio-backend/internal/sms"
)

// Account errors.
var (
	// ErrPhoneRequired is returned when a request carries no phone number.
	ErrPhoneRequired = errors.New("phone is required")

	// ErrInvalidPhone is returned when the phone is not a plain digit string.
	ErrInvalidPhone = errors.New("phone must contain digits only")

	// ErrPhoneRegistered is returned by SendCode and Register when the phone
	// already has an account.
	ErrPhoneRegistered = errors.New("phone already registered")

	// ErrSendTooFrequent is returned when a code was issued to the phone
	// within the throttle interval.
	ErrSendTooFrequent = errors.New("verification code requested too frequently")

	// ErrSMSFailed is the sentinel wrapped by *SMSError.
	ErrSMSFailed = errors.New("sms send failed")

	// ErrPhoneNotRegistered is returned by Login, ResetPassword and reset
	// codes when the phone has no account.
	ErrPhoneNotRegistered = errors.New("phone not registered")

	// ErrInvalidPurpose is returned by SendCode for an unknown code purpose.
	ErrInvalidPurpose = errors.New("unknown verification code purpose")

	// ErrCredentialsRequired is returned when a code or password is missing.
	ErrCredentialsRequired = errors.New("code and password are required")

	// ErrInvalidPassword is returned for passwords outside 6 to 72 bytes.
	ErrInvalidPassword = errors.New("password must be 6 to 72 bytes")

	// ErrInvalidCode means no unused, unexpired code matches.
	ErrInvalidCode = errors.New("verification code invalid or expired")

	// ErrWrongPassword is returned by Login when the password does not match.
	ErrWrongPassword = errors.New("wrong password")

	// ErrAuthUnavailable means the auth admin client or the shadow password
	// salt is not configured.
	ErrAuthUnavailable = errors.New("phone sign-in is not configured")
)

// Generation errors.
var (
	// ErrTaskIDRequired is returned when a status poll has no task id.
	ErrTaskIDRequired = errors.New("task_id is required")

	// ErrTaskNotFound indicates the task does not exist or belongs to
	// another user.
	ErrTaskNotFound = errors.New("task not found")

	// ErrPromptRequired is returned when an enhance request has no prompt.
	ErrPromptRequired = errors.New("prompt is required")

	// ErrPromptTooLong is returned when an enhance request exceeds the
	// configured rune limit.
	ErrPromptTooLong = errors.New("prompt too long")

	// ErrLLMUnavailable means no chat-completion key is configured.
	ErrLLMUnavailable = errors.New("prompt enhancement is not configured")
)

// Payment errors.
var (
	// ErrInvalidOrder is returned when a payment request names an unknown
	// plan or an amount that is not one of the plan's prices.
	ErrInvalidOrder = errors.New("invalid order parameters")

	// ErrPaymentUnavailable means the gateway credentials are missing.
	ErrPaymentUnavailable = errors.New("payment system configuration missing")

	// ErrOrderNotFound is returned when a notification references an order
	// that does not exist.
	ErrOrderNotFound = errors.New("order not found")

	// ErrInvalidSignature is returned when a notification fails the
	// signature check.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrAmountMismatch is returned when a notification's total_fee differs
	// from the order amount.
	ErrAmountMismatch = errors.New("paid amount does not match order")
)

// SMSError carries the provider status of a failed send.
type SMSError struct {
	Status sms.Status
}

func (e *SMSError) Error() string {
	return fmt.Sprintf("sms send failed: %s (code %s)", e.Status.Message(), string(e.Status))
}

// Unwrap lets callers match the error with errors.Is(err, ErrSMSFailed).
func (e *SMSError) Unwrap() error { return ErrSMSFailed }
