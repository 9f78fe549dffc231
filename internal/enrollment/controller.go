// Package enrollment owns the enrollment flow: the status check, the branch
// between the free and paid paths, and the state machine that carries a paid
// attempt through checkout and verification. A user is never considered
// enrolled on client-reported success alone; only the backend's verification
// verdict finishes the paid path.
package enrollment

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aura-webinar/client/internal/credentials"
	"github.com/aura-webinar/client/internal/metrics"
	"github.com/aura-webinar/client/internal/models"
	"github.com/aura-webinar/client/internal/payment"
)

// attemptRetention keeps terminal attempts queryable for a while before they
// are dropped from memory. Nothing is ever persisted.
const attemptRetention = 10 * time.Minute

// Checker is the status-check step of the flow.
type Checker interface {
	Check(ctx context.Context, cred credentials.Credential, webinarID string) (bool, error)
}

// OrderCreator is the order-creation step of the flow.
type OrderCreator interface {
	CreateOrder(ctx context.Context, cred credentials.Credential, webinar models.Webinar) (models.Order, error)
}

// Verifier is the proof-verification step of the flow.
type Verifier interface {
	Verify(ctx context.Context, cred credentials.Credential, webinarID string, proof models.PaymentProof) error
}

// Notifier receives every attempt state transition (e.g. for WebSocket push).
type Notifier interface {
	AttemptChanged(snap Snapshot)
}

// CheckoutConfig carries the display and currency settings for hosted
// checkout sessions.
type CheckoutConfig struct {
	Currency    string
	Description string
}

type flowKey struct {
	userID    string
	webinarID string
}

// Controller orchestrates the enrollment flow. One attempt exists per
// invocation; re-enrolling while an attempt for the same (user, webinar) pair
// is still in flight coalesces into it, so a pair can never hold two open
// payment orders.
type Controller struct {
	checker  Checker
	orders   OrderCreator
	gateway  payment.Gateway
	verifier Verifier
	notifier Notifier
	checkout CheckoutConfig
	logger   *zap.Logger

	mu       sync.Mutex
	attempts map[string]*Attempt
	inflight map[flowKey]*Attempt
}

// NewController creates the flow controller. notifier may be nil.
func NewController(checker Checker, orders OrderCreator, gateway payment.Gateway, verifier Verifier, notifier Notifier, checkout CheckoutConfig, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if checkout.Currency == "" {
		checkout.Currency = "INR"
	}
	return &Controller{
		checker:  checker,
		orders:   orders,
		gateway:  gateway,
		verifier: verifier,
		notifier: notifier,
		checkout: checkout,
		logger:   logger,
		attempts: make(map[string]*Attempt),
		inflight: make(map[flowKey]*Attempt),
	}
}

// Enroll runs the flow for one (user, webinar) pair. The returned snapshot is
// either terminal (free path, already enrolled, or an early failure) or
// awaiting payment with the checkout session the browser needs. Every outcome
// is a state; Enroll never loses a failure.
func (c *Controller) Enroll(ctx context.Context, cred credentials.Credential, webinar models.Webinar) Snapshot {
	key := flowKey{userID: cred.Subject(), webinarID: webinar.ID}

	c.mu.Lock()
	if existing, ok := c.inflight[key]; ok && !existing.State.Terminal() {
		snap := existing.snapshotLocked()
		c.mu.Unlock()
		c.logger.Info("enroll coalesced into in-flight attempt",
			zap.String("attempt_id", snap.AttemptID),
			zap.String("webinar_id", webinar.ID),
			zap.String("state", snap.State.String()),
		)
		return snap
	}
	a := newAttempt(cred, key.userID, webinar)
	a.State = StateCheckingStatus
	c.attempts[a.ID] = a
	c.inflight[key] = a
	c.mu.Unlock()

	metrics.AttemptsStarted.Inc()
	c.notify(a)

	alreadyPaid, err := c.checker.Check(ctx, cred, webinar.ID)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnauthenticated):
			return c.fail(a, FailureUnauthenticated, err)
		default:
			return c.fail(a, FailureStatusCheck, err)
		}
	}
	if alreadyPaid {
		return c.finish(a, StateAlreadyEnrolled)
	}
	if webinar.Free() {
		return c.finish(a, StateFree)
	}

	order, err := c.orders.CreateOrder(ctx, cred, webinar)
	if err != nil {
		if errors.Is(err, payment.ErrInvalidAmount) {
			return c.fail(a, FailureInvalidAmount, err)
		}
		return c.fail(a, FailureOrderCreation, err)
	}
	metrics.OrdersCreated.Inc()

	// The one and only major->minor conversion point.
	session := payment.Session{
		OrderID:     order.OrderID,
		GatewayKey:  order.GatewayKey,
		AmountMinor: webinar.Price * payment.MinorUnitsPerMajor,
		Currency:    c.checkout.Currency,
		Name:        webinar.Title,
		Description: c.checkout.Description,
	}
	completion, err := c.gateway.Open(ctx, session)
	if err != nil {
		return c.fail(a, FailureOrderCreation, err)
	}

	c.mu.Lock()
	a.OrderID = order.OrderID
	a.Session = &session
	a.State = StateAwaitingPayment
	snap := a.snapshotLocked()
	c.mu.Unlock()
	c.notify(a)

	// The attempt's single outstanding asynchronous operation: waiting for
	// the checkout's terminal event.
	go c.await(a, completion)

	return snap
}

// await consumes the checkout completion and drives the attempt to a terminal
// state. The request context that started the flow is long gone by now.
func (c *Controller) await(a *Attempt, completion <-chan payment.Completion) {
	comp, ok := <-completion
	if !ok {
		// Session torn down without a terminal event.
		c.logger.Info("checkout abandoned", zap.String("attempt_id", a.ID), zap.String("order_id", a.OrderID))
		c.finish(a, StateCancelled)
		return
	}
	if comp.Cancelled {
		c.finish(a, StateCancelled)
		return
	}
	proof := comp.Proof

	c.mu.Lock()
	if a.State != StateAwaitingPayment {
		c.mu.Unlock()
		c.logger.Warn("completion for attempt not awaiting payment",
			zap.String("attempt_id", a.ID),
			zap.String("state", a.State.String()),
		)
		return
	}
	if proof == nil || proof.OrderID != a.OrderID {
		// Stale or cross-wired signal; never transitions the machine.
		c.mu.Unlock()
		c.logger.Warn("completion order mismatch, ignoring",
			zap.String("attempt_id", a.ID),
			zap.String("attempt_order_id", a.OrderID),
		)
		return
	}
	a.Proof = proof
	a.State = StateVerifying
	c.mu.Unlock()
	c.notify(a)

	start := time.Now()
	err := c.verifier.Verify(context.Background(), a.cred, a.Webinar.ID, *proof)
	metrics.VerificationTime.Observe(time.Since(start).Seconds())
	switch {
	case err == nil:
		c.finish(a, StateEnrolled)
	case errors.Is(err, payment.ErrVerificationRejected):
		c.fail(a, FailureVerificationRejected, err)
	default:
		c.fail(a, FailureVerificationUnreachable, err)
	}
}

// Attempt returns a snapshot of the attempt with the given ID.
func (c *Controller) Attempt(id string) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.attempts[id]
	if !ok {
		return Snapshot{}, false
	}
	return a.snapshotLocked(), true
}

// Done returns a channel closed when the attempt reaches a terminal state.
func (c *Controller) Done(id string) (<-chan struct{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.attempts[id]
	if !ok {
		return nil, false
	}
	return a.done, true
}

func (c *Controller) finish(a *Attempt, state State) Snapshot {
	return c.settle(a, state, FailureNone, nil)
}

func (c *Controller) fail(a *Attempt, kind FailureKind, err error) Snapshot {
	return c.settle(a, StateFailed, kind, err)
}

// settle moves an attempt to a terminal state exactly once.
func (c *Controller) settle(a *Attempt, state State, kind FailureKind, err error) Snapshot {
	c.mu.Lock()
	if a.State.Terminal() {
		snap := a.snapshotLocked()
		c.mu.Unlock()
		return snap
	}
	a.State = state
	a.Failure = kind
	if err != nil {
		a.Detail = err.Error()
	}
	delete(c.inflight, flowKey{userID: a.UserID, webinarID: a.Webinar.ID})
	snap := a.snapshotLocked()
	c.mu.Unlock()

	metrics.AttemptsFinished.WithLabelValues(string(state), string(kind)).Inc()
	if state == StateFailed {
		c.logger.Warn("attempt failed",
			zap.String("attempt_id", a.ID),
			zap.String("webinar_id", a.Webinar.ID),
			zap.String("failure", string(kind)),
			zap.String("detail", a.Detail),
		)
	} else {
		c.logger.Info("attempt finished",
			zap.String("attempt_id", a.ID),
			zap.String("webinar_id", a.Webinar.ID),
			zap.String("state", state.String()),
		)
	}
	c.notify(a)
	close(a.done)

	time.AfterFunc(attemptRetention, func() {
		c.mu.Lock()
		delete(c.attempts, a.ID)
		c.mu.Unlock()
	})
	return snap
}

func (c *Controller) notify(a *Attempt) {
	if c.notifier == nil {
		return
	}
	c.mu.Lock()
	snap := a.snapshotLocked()
	c.mu.Unlock()
	c.notifier.AttemptChanged(snap)
}
