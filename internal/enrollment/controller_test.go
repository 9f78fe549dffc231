package enrollment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aura-webinar/client/internal/credentials"
	"github.com/aura-webinar/client/internal/models"
	"github.com/aura-webinar/client/internal/payment"
)

type fakeChecker struct {
	mu          sync.Mutex
	alreadyPaid bool
	err         error
	calls       int
}

func (f *fakeChecker) Check(ctx context.Context, cred credentials.Credential, webinarID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.alreadyPaid, f.err
}

type fakeOrders struct {
	mu    sync.Mutex
	order models.Order
	err   error
	calls int
}

func (f *fakeOrders) CreateOrder(ctx context.Context, cred credentials.Credential, webinar models.Webinar) (models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.order, f.err
}

func (f *fakeOrders) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeGateway struct {
	mu      sync.Mutex
	opened  []payment.Session
	ch      chan payment.Completion
	openErr error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{ch: make(chan payment.Completion, 1)}
}

func (f *fakeGateway) Open(ctx context.Context, s payment.Session) (<-chan payment.Completion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.opened = append(f.opened, s)
	return f.ch, nil
}

func (f *fakeGateway) sessions() []payment.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]payment.Session(nil), f.opened...)
}

func (f *fakeGateway) complete(proof models.PaymentProof) {
	f.ch <- payment.Completion{Proof: &proof}
	close(f.ch)
}

func (f *fakeGateway) cancel() {
	f.ch <- payment.Completion{Cancelled: true}
	close(f.ch)
}

type fakeVerifier struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (f *fakeVerifier) Verify(ctx context.Context, cred credentials.Credential, webinarID string, proof models.PaymentProof) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

type fakeNotifier struct {
	mu     sync.Mutex
	states []State
}

func (f *fakeNotifier) AttemptChanged(snap Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, snap.State)
}

func (f *fakeNotifier) seen() []State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]State(nil), f.states...)
}

type flowFixture struct {
	checker  *fakeChecker
	orders   *fakeOrders
	gateway  *fakeGateway
	verifier *fakeVerifier
	notifier *fakeNotifier
	ctrl     *Controller
}

func newFlowFixture() *flowFixture {
	f := &flowFixture{
		checker:  &fakeChecker{},
		orders:   &fakeOrders{order: models.Order{OrderID: "o1", GatewayKey: "k1"}},
		gateway:  newFakeGateway(),
		verifier: &fakeVerifier{},
		notifier: &fakeNotifier{},
	}
	f.ctrl = NewController(f.checker, f.orders, f.gateway, f.verifier, f.notifier, CheckoutConfig{
		Currency:    "INR",
		Description: "Enrollment for Webinar",
	}, nil)
	return f
}

func waitTerminal(t *testing.T, ctrl *Controller, attemptID string) Snapshot {
	t.Helper()
	done, ok := ctrl.Done(attemptID)
	require.True(t, ok)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("attempt did not reach a terminal state")
	}
	snap, ok := ctrl.Attempt(attemptID)
	require.True(t, ok)
	return snap
}

func TestEnrollFreeWebinarNeverTouchesPayment(t *testing.T) {
	f := newFlowFixture()
	webinar := models.Webinar{ID: "w1", Title: "Intro", Price: 0}

	snap := f.ctrl.Enroll(context.Background(), "token", webinar)

	require.Equal(t, StateFree, snap.State)
	require.True(t, snap.State.Success())
	require.Equal(t, 0, f.orders.callCount())
	require.Empty(t, f.gateway.sessions())
}

func TestEnrollAlreadyPaidShortCircuitsRegardlessOfPrice(t *testing.T) {
	f := newFlowFixture()
	f.checker.alreadyPaid = true
	webinar := models.Webinar{ID: "w2", Title: "Advanced", Price: 499}

	snap := f.ctrl.Enroll(context.Background(), "token", webinar)

	require.Equal(t, StateAlreadyEnrolled, snap.State)
	require.Equal(t, 0, f.orders.callCount())
	require.Empty(t, f.gateway.sessions())
}

func TestEnrollPaidPathReachesEnrolled(t *testing.T) {
	f := newFlowFixture()
	webinar := models.Webinar{ID: "w2", Title: "Advanced", Price: 499}

	snap := f.ctrl.Enroll(context.Background(), "token", webinar)
	require.Equal(t, StateAwaitingPayment, snap.State)
	require.Equal(t, "o1", snap.OrderID)
	require.NotNil(t, snap.Checkout)
	require.Equal(t, "k1", snap.Checkout.GatewayKey)

	f.gateway.complete(models.PaymentProof{PaymentID: "p1", OrderID: "o1", Signature: "s1"})

	final := waitTerminal(t, f.ctrl, snap.AttemptID)
	require.Equal(t, StateEnrolled, final.State)
	require.Equal(t, []State{StateCheckingStatus, StateAwaitingPayment, StateVerifying, StateEnrolled}, f.notifier.seen())
}

func TestEnrollAmountConvertedToMinorUnitsExactlyOnce(t *testing.T) {
	f := newFlowFixture()
	webinar := models.Webinar{ID: "w2", Title: "Advanced", Price: 499}

	f.ctrl.Enroll(context.Background(), "token", webinar)

	sessions := f.gateway.sessions()
	require.Len(t, sessions, 1)
	require.Equal(t, int64(49900), sessions[0].AmountMinor)
	require.Equal(t, "INR", sessions[0].Currency)
	require.Equal(t, "Advanced", sessions[0].Name)
}

func TestEnrollVerificationRejectedNeverEnrolls(t *testing.T) {
	f := newFlowFixture()
	f.verifier.err = payment.ErrVerificationRejected
	webinar := models.Webinar{ID: "w2", Title: "Advanced", Price: 499}

	snap := f.ctrl.Enroll(context.Background(), "token", webinar)
	f.gateway.complete(models.PaymentProof{PaymentID: "p1", OrderID: "o1", Signature: "s1"})

	final := waitTerminal(t, f.ctrl, snap.AttemptID)
	require.Equal(t, StateFailed, final.State)
	require.Equal(t, FailureVerificationRejected, final.Failure)
	require.False(t, final.State.Success())
}

func TestEnrollVerificationUnreachableIsDistinctFromRejected(t *testing.T) {
	f := newFlowFixture()
	f.verifier.err = payment.ErrVerificationUnreachable
	webinar := models.Webinar{ID: "w2", Title: "Advanced", Price: 499}

	snap := f.ctrl.Enroll(context.Background(), "token", webinar)
	f.gateway.complete(models.PaymentProof{PaymentID: "p1", OrderID: "o1", Signature: "s1"})

	final := waitTerminal(t, f.ctrl, snap.AttemptID)
	require.Equal(t, StateFailed, final.State)
	require.Equal(t, FailureVerificationUnreachable, final.Failure)
}

func TestEnrollUserCancellationIsTerminalNotAnError(t *testing.T) {
	f := newFlowFixture()
	webinar := models.Webinar{ID: "w2", Title: "Advanced", Price: 499}

	snap := f.ctrl.Enroll(context.Background(), "token", webinar)
	f.gateway.cancel()

	final := waitTerminal(t, f.ctrl, snap.AttemptID)
	require.Equal(t, StateCancelled, final.State)
	require.Equal(t, FailureNone, final.Failure)
	require.Equal(t, 0, verifierCalls(f.verifier))
}

func TestEnrollAbandonedSessionSettlesAsCancelled(t *testing.T) {
	f := newFlowFixture()
	webinar := models.Webinar{ID: "w2", Title: "Advanced", Price: 499}

	snap := f.ctrl.Enroll(context.Background(), "token", webinar)
	close(f.gateway.ch) // session torn down without a terminal event

	final := waitTerminal(t, f.ctrl, snap.AttemptID)
	require.Equal(t, StateCancelled, final.State)
}

func TestEnrollReinvocationCoalescesIntoInflightAttempt(t *testing.T) {
	f := newFlowFixture()
	webinar := models.Webinar{ID: "w2", Title: "Advanced", Price: 499}

	first := f.ctrl.Enroll(context.Background(), "token", webinar)
	require.Equal(t, StateAwaitingPayment, first.State)

	second := f.ctrl.Enroll(context.Background(), "token", webinar)
	require.Equal(t, first.AttemptID, second.AttemptID)
	require.Equal(t, 1, f.orders.callCount())
	require.Len(t, f.gateway.sessions(), 1)
}

func TestEnrollAfterTerminalStartsFreshAttempt(t *testing.T) {
	f := newFlowFixture()
	webinar := models.Webinar{ID: "w2", Title: "Advanced", Price: 499}

	first := f.ctrl.Enroll(context.Background(), "token", webinar)
	f.gateway.cancel()
	waitTerminal(t, f.ctrl, first.AttemptID)

	f.gateway = newFakeGateway()
	f.ctrl.gateway = f.gateway
	second := f.ctrl.Enroll(context.Background(), "token", webinar)

	require.NotEqual(t, first.AttemptID, second.AttemptID)
	require.Equal(t, StateAwaitingPayment, second.State)
	require.Equal(t, 2, f.orders.callCount())
}

func TestEnrollStaleCompletionNeverTransitions(t *testing.T) {
	f := newFlowFixture()
	webinar := models.Webinar{ID: "w2", Title: "Advanced", Price: 499}

	snap := f.ctrl.Enroll(context.Background(), "token", webinar)
	require.Equal(t, StateAwaitingPayment, snap.State)

	// Proof from a prior, abandoned session: wrong order ID.
	f.gateway.complete(models.PaymentProof{PaymentID: "p0", OrderID: "stale-order", Signature: "s0"})

	time.Sleep(100 * time.Millisecond)
	current, ok := f.ctrl.Attempt(snap.AttemptID)
	require.True(t, ok)
	require.Equal(t, StateAwaitingPayment, current.State)
	require.Equal(t, 0, verifierCalls(f.verifier))
}

func TestEnrollStatusCheckFailureIsTerminal(t *testing.T) {
	f := newFlowFixture()
	f.checker.err = ErrStatusCheck
	webinar := models.Webinar{ID: "w2", Title: "Advanced", Price: 499}

	snap := f.ctrl.Enroll(context.Background(), "token", webinar)

	require.Equal(t, StateFailed, snap.State)
	require.Equal(t, FailureStatusCheck, snap.Failure)
	require.Equal(t, 0, f.orders.callCount())
}

func TestEnrollMissingCredentialFailsUnauthenticatedNotStatusCheck(t *testing.T) {
	// Wire the real status checker over a client that would fail with a
	// network error: with no credential stored, the flow must report
	// Unauthenticated, never StatusCheckFailed.
	f := newFlowFixture()
	checker := NewStatusChecker(failingStatusClient{}, nil)
	f.ctrl = NewController(checker, f.orders, f.gateway, f.verifier, f.notifier, CheckoutConfig{}, nil)
	webinar := models.Webinar{ID: "w2", Title: "Advanced", Price: 499}

	snap := f.ctrl.Enroll(context.Background(), "", webinar)

	require.Equal(t, StateFailed, snap.State)
	require.Equal(t, FailureUnauthenticated, snap.Failure)
}

func TestEnrollOrderCreationFailureIsTerminal(t *testing.T) {
	f := newFlowFixture()
	f.orders.err = payment.ErrOrderCreation
	webinar := models.Webinar{ID: "w2", Title: "Advanced", Price: 499}

	snap := f.ctrl.Enroll(context.Background(), "token", webinar)

	require.Equal(t, StateFailed, snap.State)
	require.Equal(t, FailureOrderCreation, snap.Failure)
	require.Empty(t, f.gateway.sessions())
	require.Equal(t, 1, f.orders.callCount())
}

func TestEnrollInvalidAmountIsItsOwnFailureKind(t *testing.T) {
	f := newFlowFixture()
	f.orders.err = payment.ErrInvalidAmount
	webinar := models.Webinar{ID: "w3", Title: "Broken", Price: 10}

	snap := f.ctrl.Enroll(context.Background(), "token", webinar)

	require.Equal(t, StateFailed, snap.State)
	require.Equal(t, FailureInvalidAmount, snap.Failure)
}

func TestSnapshotOmitsCheckoutAfterTerminalState(t *testing.T) {
	f := newFlowFixture()
	webinar := models.Webinar{ID: "w2", Title: "Advanced", Price: 499}

	snap := f.ctrl.Enroll(context.Background(), "token", webinar)
	require.NotNil(t, snap.Checkout)

	f.gateway.cancel()
	final := waitTerminal(t, f.ctrl, snap.AttemptID)
	require.Nil(t, final.Checkout)
}

func verifierCalls(v *fakeVerifier) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calls
}

type failingStatusClient struct{}

func (failingStatusClient) CheckEnrollmentStatus(ctx context.Context, cred credentials.Credential, webinarID string) (bool, error) {
	return false, errors.New("dial tcp: connection refused")
}
