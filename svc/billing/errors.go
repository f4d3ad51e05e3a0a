package billing

import "errors"

var (
	// ErrInvalidSignature means the webhook payload failed authenticity
	// checks. This is the only reconciler error the HTTP handler turns
	// into a 400; everything else is logged and acknowledged.
	ErrInvalidSignature = errors.New("billing: invalid webhook signature")

	ErrInvalidPayload = errors.New("billing: invalid webhook payload")
	ErrUnknownPrice   = errors.New("billing: unknown price id")
)
