package payment

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/aura-webinar/client/internal/models"
)

// MinorUnitsPerMajor converts major currency units (rupees) to the minor
// units (paise) the hosted checkout expects. Applied exactly once, when the
// session is built.
const MinorUnitsPerMajor = 100

// Session describes one hosted checkout session.
type Session struct {
	OrderID     string `json:"order_id"`
	GatewayKey  string `json:"gateway_key"`
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Completion is the single terminal event of a checkout session: either a
// payment proof or a user cancellation. A session torn down without either
// closes the completion channel with no value.
type Completion struct {
	Proof     *models.PaymentProof
	Cancelled bool
}

// Gateway is the boundary around the external hosted checkout. Open registers
// a single-shot session; the channel delivers at most one completion and is
// then closed.
type Gateway interface {
	Open(ctx context.Context, s Session) (<-chan Completion, error)
}

// HostedGateway tracks checkout sessions opened in the user's browser. The
// browser reports the checkout's terminal event back over HTTP; Resolve and
// Cancel feed it to the waiting flow.
type HostedGateway struct {
	mu      sync.Mutex
	pending map[string]chan Completion
	logger  *zap.Logger
}

// NewHostedGateway creates a gateway boundary.
func NewHostedGateway(logger *zap.Logger) *HostedGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HostedGateway{pending: make(map[string]chan Completion), logger: logger}
}

// Open registers a pending session keyed by order ID.
func (g *HostedGateway) Open(ctx context.Context, s Session) (<-chan Completion, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.pending[s.OrderID]; ok {
		return nil, ErrSessionExists
	}
	ch := make(chan Completion, 1)
	g.pending[s.OrderID] = ch
	g.logger.Info("checkout session opened",
		zap.String("order_id", s.OrderID),
		zap.Int64("amount_minor", s.AmountMinor),
		zap.String("currency", s.Currency),
	)
	return ch, nil
}

// Resolve delivers a payment proof for a pending session. It reports false
// for unknown or already-resolved order IDs, so stale or duplicate signals
// from abandoned sessions die at the boundary.
func (g *HostedGateway) Resolve(proof models.PaymentProof) bool {
	ch := g.take(proof.OrderID)
	if ch == nil {
		g.logger.Warn("completion for unknown checkout session", zap.String("order_id", proof.OrderID))
		return false
	}
	ch <- Completion{Proof: &proof}
	close(ch)
	return true
}

// Cancel reports a user-initiated cancellation for a pending session.
func (g *HostedGateway) Cancel(orderID string) bool {
	ch := g.take(orderID)
	if ch == nil {
		return false
	}
	ch <- Completion{Cancelled: true}
	close(ch)
	return true
}

// Abandon tears down a pending session without a terminal event (the hosting
// page is gone). The completion channel closes with no value.
func (g *HostedGateway) Abandon(orderID string) {
	ch := g.take(orderID)
	if ch == nil {
		return
	}
	close(ch)
	g.logger.Info("checkout session abandoned", zap.String("order_id", orderID))
}

func (g *HostedGateway) take(orderID string) chan Completion {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.pending[orderID]
	if !ok {
		return nil
	}
	delete(g.pending, orderID)
	return ch
}
