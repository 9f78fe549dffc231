package enrollment

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/aura-webinar/client/internal/backend"
	"github.com/aura-webinar/client/internal/credentials"
)

var (
	// ErrUnauthenticated means no usable credential backs the request. The
	// caller redirects to sign-in; it is not a transient failure.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrStatusCheck means the status check could not be completed. The UI
	// may offer a retry; the flow never retries on its own.
	ErrStatusCheck = errors.New("enrollment status check failed")
)

// StatusClient is the slice of the backend client the checker needs.
type StatusClient interface {
	CheckEnrollmentStatus(ctx context.Context, cred credentials.Credential, webinarID string) (bool, error)
}

// StatusChecker determines whether a user already holds a confirmed
// enrollment for a webinar.
type StatusChecker struct {
	client StatusClient
	logger *zap.Logger
}

// NewStatusChecker creates a status checker.
func NewStatusChecker(client StatusClient, logger *zap.Logger) *StatusChecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatusChecker{client: client, logger: logger}
}

// Check reports whether the user already paid for the webinar. A missing or
// locally-expired credential fails with ErrUnauthenticated before any network
// call is attempted; only real transport or backend failures map to
// ErrStatusCheck.
func (s *StatusChecker) Check(ctx context.Context, cred credentials.Credential, webinarID string) (bool, error) {
	if err := cred.Check(); err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	alreadyPaid, err := s.client.CheckEnrollmentStatus(ctx, cred, webinarID)
	if err != nil {
		if errors.Is(err, backend.ErrUnauthorized) {
			return false, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
		}
		s.logger.Error("status check failed", zap.Error(err), zap.String("webinar_id", webinarID))
		return false, fmt.Errorf("%w: %v", ErrStatusCheck, err)
	}
	return alreadyPaid, nil
}
