package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/karthik-excrin/shootx-v2/internal/dispatch"
	"github.com/karthik-excrin/shootx-v2/internal/models"
	"github.com/karthik-excrin/shootx-v2/internal/services"
)

type TryOnHandler struct {
	service *services.TryOnService
	logger  *zap.Logger
}

func NewTryOnHandler(service *services.TryOnService, logger *zap.Logger) *TryOnHandler {
	return &TryOnHandler{
		service: service,
		logger:  logger,
	}
}

// Submit accepts a storefront try-on submission, creates the request record
// and returns its id immediately. Generation runs in the background; the
// widget polls the status endpoint for the outcome.
func (h *TryOnHandler) Submit(c *gin.Context) {
	var sub models.TryOnSubmission
	if err := c.ShouldBind(&sub); err != nil || !sub.Validate() {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Missing required fields"})
		return
	}

	request, err := h.service.Submit(c.Request.Context(), sub)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotEnabled):
			c.JSON(http.StatusForbidden, models.ErrorResponse{Error: "Try-on service not available"})
		case errors.Is(err, dispatch.ErrQueueFull):
			c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Error: "Service busy, please try again"})
		default:
			h.logger.Error("try-on submission failed", zap.String("shop", sub.Shop), zap.Error(err))
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error"})
		}
		return
	}

	c.JSON(http.StatusOK, models.SubmitResponse{
		Success:   true,
		RequestID: request.ID.String(),
		Message:   "Try-on request submitted successfully",
	})
}
