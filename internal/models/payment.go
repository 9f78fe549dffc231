package models

import "time"

// Order is a payment order created on the backend plus the gateway key the
// hosted checkout needs to open a session for it.
type Order struct {
	OrderID    string `json:"order_id"`
	GatewayKey string `json:"gateway_key"`
}

// PaymentProof is the opaque completion data the hosted checkout hands back
// after a charge. It proves nothing by itself; only the backend's signature
// check makes it trustworthy.
type PaymentProof struct {
	PaymentID string `json:"payment_id"`
	OrderID   string `json:"order_id"`
	Signature string `json:"signature"`
}

// EnrollmentStatus is the backend's answer to "does this user already hold a
// confirmed enrollment for this webinar".
type EnrollmentStatus struct {
	AlreadyPaid bool `json:"already_paid"`
}

// EnrollmentRecord is the authoritative server-side enrollment state. The
// gateway never mutates it directly; it requests mutations through payment
// verification and re-reads through status checks.
type EnrollmentRecord struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	WebinarID  string     `json:"webinar_id"`
	Paid       bool       `json:"paid"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
}
