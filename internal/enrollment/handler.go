package enrollment

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aura-webinar/client/internal/credentials"
	"github.com/aura-webinar/client/internal/models"
	"github.com/aura-webinar/client/internal/payment"
	"github.com/aura-webinar/client/pkg/response"
)

// WebinarLister resolves enrollable webinars (the catalog).
type WebinarLister interface {
	List(ctx context.Context) ([]models.Webinar, error)
}

// CompleteRequest is the body for POST /attempts/:id/complete, carrying the
// hosted checkout's completion data verbatim.
type CompleteRequest struct {
	PaymentID string `json:"payment_id" binding:"required"`
	OrderID   string `json:"order_id" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

// Handler handles enrollment flow HTTP endpoints.
type Handler struct {
	controller   *Controller
	catalog      WebinarLister
	gateway      *payment.HostedGateway
	completeWait time.Duration
	logger       *zap.Logger
}

// NewHandler creates an enrollment handler.
func NewHandler(controller *Controller, catalog WebinarLister, gateway *payment.HostedGateway, completeWait time.Duration, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if completeWait <= 0 {
		completeWait = 10 * time.Second
	}
	return &Handler{
		controller:   controller,
		catalog:      catalog,
		gateway:      gateway,
		completeWait: completeWait,
		logger:       logger,
	}
}

// Enroll handles POST /webinars/:id/enroll. The credential travels with the
// request even when absent; a missing credential surfaces as the flow's own
// Unauthenticated failure, not a generic error.
func (h *Handler) Enroll(c *gin.Context) {
	webinarID := c.Param("id")
	if webinarID == "" {
		response.BadRequest(c, "webinar id required")
		return
	}
	webinar, ok := h.findWebinar(c, webinarID)
	if !ok {
		return
	}

	cred, _ := credentials.FromHeader(c.GetHeader("Authorization"))
	snap := h.controller.Enroll(c.Request.Context(), cred, webinar)
	h.respondSnapshot(c, snap)
}

// Get handles GET /attempts/:id.
func (h *Handler) Get(c *gin.Context) {
	snap, ok := h.controller.Attempt(c.Param("id"))
	if !ok {
		response.NotFound(c, "attempt not found")
		return
	}
	response.OK(c, snap)
}

// Complete handles POST /attempts/:id/complete: the hosted checkout finished
// and the browser reports the proof. The proof is fed to the gateway boundary
// keyed by order ID, so stale completions from prior sessions die here.
func (h *Handler) Complete(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.controller.Attempt(id); !ok {
		response.NotFound(c, "attempt not found")
		return
	}
	var req CompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	proof := models.PaymentProof{
		PaymentID: req.PaymentID,
		OrderID:   req.OrderID,
		Signature: req.Signature,
	}
	if !h.gateway.Resolve(proof) {
		response.Conflict(c, "no open checkout session for order")
		return
	}
	h.respondAfterWait(c, id)
}

// Cancel handles POST /attempts/:id/cancel. User-initiated abandonment is a
// first-class terminal state, not an error.
func (h *Handler) Cancel(c *gin.Context) {
	id := c.Param("id")
	snap, ok := h.controller.Attempt(id)
	if !ok {
		response.NotFound(c, "attempt not found")
		return
	}
	if snap.OrderID == "" || !h.gateway.Cancel(snap.OrderID) {
		response.Conflict(c, "no open checkout session to cancel")
		return
	}
	h.respondAfterWait(c, id)
}

func (h *Handler) findWebinar(c *gin.Context, webinarID string) (models.Webinar, bool) {
	webinars, err := h.catalog.List(c.Request.Context())
	if err != nil {
		response.ServiceUnavailable(c, "webinar catalog unavailable")
		return models.Webinar{}, false
	}
	for _, w := range webinars {
		if w.ID == webinarID {
			return w, true
		}
	}
	response.NotFound(c, "webinar not found")
	return models.Webinar{}, false
}

// respondAfterWait waits briefly for the attempt to settle so the caller
// usually sees the terminal state synchronously; otherwise answers 202 and
// the WebSocket push carries the rest.
func (h *Handler) respondAfterWait(c *gin.Context, id string) {
	done, ok := h.controller.Done(id)
	if ok {
		select {
		case <-done:
		case <-time.After(h.completeWait):
		case <-c.Request.Context().Done():
		}
	}
	snap, ok := h.controller.Attempt(id)
	if !ok {
		response.NotFound(c, "attempt not found")
		return
	}
	if !snap.State.Terminal() {
		c.JSON(http.StatusAccepted, response.Body{Success: true, Data: snap})
		return
	}
	h.respondSnapshot(c, snap)
}

func (h *Handler) respondSnapshot(c *gin.Context, snap Snapshot) {
	if snap.State == StateFailed {
		response.ErrorWithData(c, failureStatus(snap.Failure), string(snap.Failure), snap)
		return
	}
	response.OK(c, snap)
}

// failureStatus maps flow failure kinds 1:1 onto HTTP statuses so the UI can
// pick messaging per kind.
func failureStatus(kind FailureKind) int {
	switch kind {
	case FailureUnauthenticated:
		return http.StatusUnauthorized
	case FailureInvalidAmount:
		return http.StatusUnprocessableEntity
	case FailureVerificationRejected:
		return http.StatusConflict
	default:
		// Transient upstream failures: retry is the user's call, never ours.
		return http.StatusBadGateway
	}
}
