package enrollment

import (
	"github.com/google/uuid"

	"github.com/aura-webinar/client/internal/credentials"
	"github.com/aura-webinar/client/internal/models"
	"github.com/aura-webinar/client/internal/payment"
)

// State is the position of an enrollment attempt in the flow.
type State string

const (
	StateIdle            State = "idle"
	StateCheckingStatus  State = "checking_status"
	StateAlreadyEnrolled State = "already_enrolled"
	StateFree            State = "free"
	StateAwaitingPayment State = "awaiting_payment"
	StateVerifying       State = "verifying"
	StateEnrolled        State = "enrolled"
	StateFailed          State = "failed"
	StateCancelled       State = "cancelled"
)

// Terminal reports whether no further transition can occur.
func (s State) Terminal() bool {
	switch s {
	case StateAlreadyEnrolled, StateFree, StateEnrolled, StateFailed, StateCancelled:
		return true
	}
	return false
}

// Success reports whether the attempt ended with the user enrolled.
func (s State) Success() bool {
	return s == StateAlreadyEnrolled || s == StateFree || s == StateEnrolled
}

// String representation (for logging).
func (s State) String() string { return string(s) }

// FailureKind tags a terminal Failed state with the component-level cause, so
// the UI can pick messaging without parsing error strings.
type FailureKind string

const (
	FailureNone                    FailureKind = ""
	FailureUnauthenticated         FailureKind = "unauthenticated"
	FailureStatusCheck             FailureKind = "status_check_failed"
	FailureInvalidAmount           FailureKind = "invalid_amount"
	FailureOrderCreation           FailureKind = "order_creation_failed"
	FailureVerificationRejected    FailureKind = "verification_failed"
	FailureVerificationUnreachable FailureKind = "verification_unreachable"
)

// Attempt is one end-to-end execution of the enrollment flow for a
// (user, webinar) pair. It lives in memory for the duration of the flow and
// is never persisted; the authoritative enrollment state stays server-side.
// All fields are guarded by the controller's lock.
type Attempt struct {
	ID      string
	UserID  string
	Webinar models.Webinar

	State   State
	Failure FailureKind
	Detail  string

	OrderID string
	Session *payment.Session
	Proof   *models.PaymentProof

	cred credentials.Credential
	done chan struct{}
}

func newAttempt(cred credentials.Credential, userID string, webinar models.Webinar) *Attempt {
	return &Attempt{
		ID:      uuid.New().String(),
		UserID:  userID,
		Webinar: webinar,
		State:   StateIdle,
		cred:    cred,
		done:    make(chan struct{}),
	}
}

// Snapshot is an immutable copy of attempt state handed to HTTP and
// WebSocket callers.
type Snapshot struct {
	AttemptID string           `json:"attempt_id"`
	WebinarID string           `json:"webinar_id"`
	State     State            `json:"state"`
	Failure   FailureKind      `json:"failure,omitempty"`
	Detail    string           `json:"detail,omitempty"`
	OrderID   string           `json:"order_id,omitempty"`
	Checkout  *payment.Session `json:"checkout,omitempty"`
}

// snapshotLocked copies attempt state; callers hold the controller lock.
func (a *Attempt) snapshotLocked() Snapshot {
	snap := Snapshot{
		AttemptID: a.ID,
		WebinarID: a.Webinar.ID,
		State:     a.State,
		Failure:   a.Failure,
		Detail:    a.Detail,
		OrderID:   a.OrderID,
	}
	if a.Session != nil && a.State == StateAwaitingPayment {
		s := *a.Session
		snap.Checkout = &s
	}
	return snap
}
