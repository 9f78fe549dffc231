package payment

import "errors"

var (
	// ErrInvalidAmount means a zero or negative price reached order creation.
	// The flow controller routes free webinars away from payment, so this is
	// a data-integrity signal, not a user error.
	ErrInvalidAmount = errors.New("invalid payment amount")

	// ErrOrderCreation means the backend failed to create the payment order.
	// Terminal for the attempt; retrying could create duplicate orders.
	ErrOrderCreation = errors.New("order creation failed")

	// ErrVerificationRejected means the backend actively rejected the payment
	// proof. Money may have moved; enrollment is not confirmed.
	ErrVerificationRejected = errors.New("payment verification rejected")

	// ErrVerificationUnreachable means the verification call itself failed.
	// The charge outcome is unknown; the user must check status later rather
	// than pay again.
	ErrVerificationUnreachable = errors.New("payment verification unreachable")

	// ErrSessionExists means a checkout session is already open for the order.
	ErrSessionExists = errors.New("checkout session already open for order")
)
