package catalog

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/aura-webinar/client/pkg/response"
)

// Handler handles catalog HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler creates a catalog handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// List handles GET /webinars.
func (h *Handler) List(c *gin.Context) {
	webinars, err := h.service.List(c.Request.Context())
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			response.ServiceUnavailable(c, "webinar catalog unavailable")
			return
		}
		response.Internal(c, "failed to list webinars")
		return
	}
	response.OK(c, gin.H{"webinars": webinars})
}
