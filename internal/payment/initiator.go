// Package payment drives the paid half of the enrollment flow: order
// creation against the backend, the hosted checkout boundary, and
// authoritative proof verification.
package payment

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/aura-webinar/client/internal/credentials"
	"github.com/aura-webinar/client/internal/models"
)

// OrderClient is the slice of the backend client the initiator needs.
type OrderClient interface {
	CreateOrder(ctx context.Context, cred credentials.Credential, amount int64, receiptID string) (string, error)
	GetGatewayKey(ctx context.Context) (string, error)
}

// Initiator creates payment orders and obtains the gateway credentials needed
// to open a hosted checkout session.
type Initiator struct {
	client OrderClient
	logger *zap.Logger
}

// NewInitiator creates a payment session initiator.
func NewInitiator(client OrderClient, logger *zap.Logger) *Initiator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Initiator{client: client, logger: logger}
}

// CreateOrder creates exactly one order on the backend for the webinar's
// price (major units, webinar ID as receipt) and fetches the gateway key.
// Callers own the at-most-once guarantee per attempt; CreateOrder never
// retries internally.
func (i *Initiator) CreateOrder(ctx context.Context, cred credentials.Credential, webinar models.Webinar) (models.Order, error) {
	if webinar.Price <= 0 {
		i.logger.Error("non-positive price reached order creation",
			zap.String("webinar_id", webinar.ID),
			zap.Int64("price", webinar.Price),
		)
		return models.Order{}, ErrInvalidAmount
	}

	orderID, err := i.client.CreateOrder(ctx, cred, webinar.Price, webinar.ID)
	if err != nil {
		i.logger.Error("order creation failed", zap.Error(err), zap.String("webinar_id", webinar.ID))
		return models.Order{}, fmt.Errorf("%w: %v", ErrOrderCreation, err)
	}

	key, err := i.client.GetGatewayKey(ctx)
	if err != nil {
		// The order exists upstream but the checkout cannot open without the
		// key. Terminal; no order was charged.
		i.logger.Error("gateway key fetch failed", zap.Error(err), zap.String("order_id", orderID))
		return models.Order{}, fmt.Errorf("%w: %v", ErrOrderCreation, err)
	}

	i.logger.Info("payment order created",
		zap.String("webinar_id", webinar.ID),
		zap.String("order_id", orderID),
	)
	return models.Order{OrderID: orderID, GatewayKey: key}, nil
}
