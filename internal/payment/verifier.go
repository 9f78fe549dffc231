package payment

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/aura-webinar/client/internal/backend"
	"github.com/aura-webinar/client/internal/credentials"
	"github.com/aura-webinar/client/internal/models"
)

// VerifyClient is the slice of the backend client the verifier needs.
type VerifyClient interface {
	VerifyPayment(ctx context.Context, cred credentials.Credential, webinarID string, proof models.PaymentProof) (bool, error)
}

// Verifier submits payment proof to the backend for authoritative
// verification. The backend alone decides validity; the gateway's
// client-side completion signal is never trusted on its own.
type Verifier struct {
	client VerifyClient
	logger *zap.Logger
}

// NewVerifier creates a payment verifier.
func NewVerifier(client VerifyClient, logger *zap.Logger) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{client: client, logger: logger}
}

// Verify finalizes enrollment for the webinar against the given proof.
// ErrVerificationRejected and ErrVerificationUnreachable are distinct on
// purpose: rejected means the backend saw the proof and refused it,
// unreachable means the charge outcome is unknown and the user must check
// status later instead of paying again.
func (v *Verifier) Verify(ctx context.Context, cred credentials.Credential, webinarID string, proof models.PaymentProof) error {
	ok, err := v.client.VerifyPayment(ctx, cred, webinarID, proof)
	if err != nil {
		if errors.Is(err, backend.ErrUnauthorized) {
			// The backend saw the request and refused it; treat as a rejected
			// proof rather than a transport failure.
			v.logger.Error("verification rejected: credential refused",
				zap.String("webinar_id", webinarID),
				zap.String("order_id", proof.OrderID),
			)
			return ErrVerificationRejected
		}
		v.logger.Error("verification unreachable",
			zap.Error(err),
			zap.String("webinar_id", webinarID),
			zap.String("order_id", proof.OrderID),
		)
		return fmt.Errorf("%w: %v", ErrVerificationUnreachable, err)
	}
	if !ok {
		v.logger.Error("verification rejected by backend",
			zap.String("webinar_id", webinarID),
			zap.String("order_id", proof.OrderID),
			zap.String("payment_id", proof.PaymentID),
		)
		return ErrVerificationRejected
	}
	v.logger.Info("payment verified",
		zap.String("webinar_id", webinarID),
		zap.String("order_id", proof.OrderID),
	)
	return nil
}
