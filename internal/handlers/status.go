package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/karthik-excrin/shootx-v2/internal/database"
	"github.com/karthik-excrin/shootx-v2/internal/models"
	"github.com/karthik-excrin/shootx-v2/internal/services"
)

type StatusHandler struct {
	service *services.TryOnService
	logger  *zap.Logger
}

func NewStatusHandler(service *services.TryOnService, logger *zap.Logger) *StatusHandler {
	return &StatusHandler{
		service: service,
		logger:  logger,
	}
}

// GetStatus is the read side of the storefront polling loop. It never
// mutates; many clients may poll the same id concurrently.
func (h *StatusHandler) GetStatus(c *gin.Context) {
	requestID := c.Query("requestId")
	if requestID == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Request ID is required"})
		return
	}

	request, err := h.service.Status(c.Request.Context(), requestID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "Request not found"})
			return
		}
		h.logger.Error("status lookup failed", zap.String("request_id", requestID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, models.StatusResponse{
		Status:      request.Status,
		ResultImage: request.ResultImage,
		CreatedAt:   request.CreatedAt,
		UpdatedAt:   request.UpdatedAt,
	})
}
