package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/karthik-excrin/shootx-v2/internal/models"
)

func HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{Status: "ok"})
}
