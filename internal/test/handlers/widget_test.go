package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/karthik-excrin/shootx-v2/internal/handlers"
)

func newWidgetRouter(store *memStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/widget.js", handlers.NewWidgetHandler(store, "https://tryon.example.com", zap.NewNop()).GetWidget)
	return router
}

func getWidget(router *gin.Engine, shop string) *httptest.ResponseRecorder {
	target := "/widget.js"
	if shop != "" {
		target += "?shop=" + shop
	}
	req, _ := http.NewRequest("GET", target, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGetWidget_EnabledShop(t *testing.T) {
	store := newMemStore()
	store.addShop("demo.myshopify.com", true)
	router := newWidgetRouter(store)

	w := getWidget(router, "demo.myshopify.com")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/javascript", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.Contains(t, body, `"demo.myshopify.com"`)
	assert.Contains(t, body, `"https://tryon.example.com"`)
	assert.Contains(t, body, "/api/tryon-status")
	assert.Contains(t, body, "maxPollAttempts: 60")
	assert.Contains(t, body, "pollInterval: 2000")
}

func TestGetWidget_DisabledShop(t *testing.T) {
	store := newMemStore()
	store.addShop("demo.myshopify.com", false)
	router := newWidgetRouter(store)

	w := getWidget(router, "demo.myshopify.com")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "widget disabled")
}

func TestGetWidget_UnknownShop(t *testing.T) {
	router := newWidgetRouter(newMemStore())

	w := getWidget(router, "nobody.myshopify.com")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "widget disabled")
}

func TestGetWidget_MissingShopParam(t *testing.T) {
	router := newWidgetRouter(newMemStore())

	w := getWidget(router, "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
