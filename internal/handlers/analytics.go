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

const (
	recentRequestsLimit = 10
	topProductsLimit    = 5
)

type AnalyticsStore interface {
	GetShopByDomain(ctx context.Context, domain string) (*models.Shop, error)
	CountRequests(ctx context.Context, shopID, status string) (int64, error)
	RecentRequests(ctx context.Context, shopID string, limit int) ([]models.TryOnRequest, error)
	TopProducts(ctx context.Context, shopID string, limit int) ([]models.ProductCount, error)
}

type AnalyticsHandler struct {
	store  AnalyticsStore
	logger *zap.Logger
}

func NewAnalyticsHandler(store AnalyticsStore, logger *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		store:  store,
		logger: logger,
	}
}

// GetAnalytics reports try-on usage for a shop: totals by outcome, the most
// recent requests and the most tried-on products.
func (h *AnalyticsHandler) GetAnalytics(c *gin.Context) {
	domain := c.Query("shop")
	if domain == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "shop parameter is required"})
		return
	}

	ctx := c.Request.Context()

	shop, err := h.store.GetShopByDomain(ctx, domain)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "shop not found"})
			return
		}
		h.serverError(c, domain, err)
		return
	}

	total, err := h.store.CountRequests(ctx, shop.ShopID, "")
	if err != nil {
		h.serverError(c, domain, err)
		return
	}

	completed, err := h.store.CountRequests(ctx, shop.ShopID, models.StatusCompleted)
	if err != nil {
		h.serverError(c, domain, err)
		return
	}

	failed, err := h.store.CountRequests(ctx, shop.ShopID, models.StatusFailed)
	if err != nil {
		h.serverError(c, domain, err)
		return
	}

	recent, err := h.store.RecentRequests(ctx, shop.ShopID, recentRequestsLimit)
	if err != nil {
		h.serverError(c, domain, err)
		return
	}

	top, err := h.store.TopProducts(ctx, shop.ShopID, topProductsLimit)
	if err != nil {
		h.serverError(c, domain, err)
		return
	}

	successRate := 0.0
	if total > 0 {
		successRate = float64(completed) / float64(total) * 100
	}

	c.JSON(http.StatusOK, models.AnalyticsResponse{
		TotalRequests:     total,
		CompletedRequests: completed,
		FailedRequests:    failed,
		SuccessRate:       successRate,
		RecentRequests:    recent,
		TopProducts:       top,
	})
}

func (h *AnalyticsHandler) serverError(c *gin.Context, domain string, err error) {
	h.logger.Error("failed to load analytics", zap.String("shop", domain), zap.Error(err))
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error"})
}
