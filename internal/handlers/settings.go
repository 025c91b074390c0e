package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/karthik-excrin/shootx-v2/internal/database"
	"github.com/karthik-excrin/shootx-v2/internal/models"
)

type SettingsStore interface {
	EnsureShop(ctx context.Context, domain string) (*models.Shop, error)
	UpdateShopSettings(ctx context.Context, domain string, req models.UpdateSettingsRequest) (*models.Shop, error)
}

type SettingsHandler struct {
	store  SettingsStore
	logger *zap.Logger
}

func NewSettingsHandler(store SettingsStore, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{
		store:  store,
		logger: logger,
	}
}

// GetSettings returns the widget settings for a shop, creating the shop row
// with defaults on first access.
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	domain := c.Query("shop")
	if domain == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "shop parameter is required"})
		return
	}

	shop, err := h.store.EnsureShop(c.Request.Context(), domain)
	if err != nil {
		h.logger.Error("failed to load shop settings", zap.String("shop", domain), zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, shop)
}

// UpdateSettings applies a partial update to a shop's widget settings.
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	domain := c.Query("shop")
	if domain == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "shop parameter is required"})
		return
	}

	var req models.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid request body",
			Message: err.Error(),
		})
		return
	}

	shop, err := h.store.UpdateShopSettings(c.Request.Context(), domain, req)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "shop not found"})
			return
		}
		h.logger.Error("failed to update shop settings", zap.String("shop", domain), zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, shop)
}
