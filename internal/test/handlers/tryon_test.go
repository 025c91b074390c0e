package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/karthik-excrin/shootx-v2/internal/database"
	"github.com/karthik-excrin/shootx-v2/internal/dispatch"
	"github.com/karthik-excrin/shootx-v2/internal/handlers"
	"github.com/karthik-excrin/shootx-v2/internal/models"
	"github.com/karthik-excrin/shootx-v2/internal/services"
)

// memStore backs the handler tests in place of Postgres.
type memStore struct {
	mu       sync.Mutex
	shops    map[string]*models.Shop
	requests map[uuid.UUID]*models.TryOnRequest
}

func newMemStore() *memStore {
	return &memStore{
		shops:    make(map[string]*models.Shop),
		requests: make(map[uuid.UUID]*models.TryOnRequest),
	}
}

func (m *memStore) addShop(domain string, enabled bool) {
	m.shops[domain] = &models.Shop{
		ShopID:       database.ShopIDFromDomain(domain),
		ShopDomain:   domain,
		TryOnEnabled: enabled,
		ButtonText:   models.DefaultButtonText,
		ButtonColor:  models.DefaultButtonColor,
		PopupTitle:   models.DefaultPopupTitle,
		MaxFileSize:  models.DefaultMaxFileSize,
	}
}

func (m *memStore) GetShopByDomain(ctx context.Context, domain string) (*models.Shop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	shop, ok := m.shops[domain]
	if !ok {
		return nil, database.ErrNotFound
	}
	return shop, nil
}

func (m *memStore) CreateTryOnRequest(ctx context.Context, r *models.TryOnRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	r.CreatedAt = now
	r.UpdatedAt = now
	clone := *r
	m.requests[r.ID] = &clone
	return nil
}

func (m *memStore) GetTryOnRequest(ctx context.Context, id uuid.UUID) (*models.TryOnRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	clone := *r
	return &clone, nil
}

func (m *memStore) CompleteTryOnRequest(ctx context.Context, id uuid.UUID, resultImage string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok || r.Status != models.StatusProcessing {
		return false, nil
	}
	r.Status = models.StatusCompleted
	r.ResultImage = &resultImage
	r.UpdatedAt = time.Now()
	return true, nil
}

func (m *memStore) FailTryOnRequest(ctx context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok || r.Status != models.StatusProcessing {
		return false, nil
	}
	r.Status = models.StatusFailed
	r.UpdatedAt = time.Now()
	return true, nil
}

func (m *memStore) FailStaleProcessing(ctx context.Context, maxAge time.Duration) (int64, error) {
	return 0, nil
}

type memQueue struct {
	mu    sync.Mutex
	tasks []dispatch.Task
}

func (q *memQueue) Enqueue(task dispatch.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, task)
	return nil
}

func (q *memQueue) runAll() {
	q.mu.Lock()
	tasks := q.tasks
	q.tasks = nil
	q.mu.Unlock()
	for _, task := range tasks {
		task(context.Background())
	}
}

type stubGenerator struct {
	result string
	err    error
}

func (g *stubGenerator) Generate(ctx context.Context, customerImage, garmentImage string) (string, error) {
	return g.result, g.err
}

func newTestRouter(store *memStore, queue *memQueue, gen *stubGenerator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	svc := services.NewTryOnService(store, gen, queue, logger)

	router := gin.New()
	router.POST("/api/tryon", handlers.NewTryOnHandler(svc, logger).Submit)
	router.GET("/api/tryon-status", handlers.NewStatusHandler(svc, logger).GetStatus)
	return router
}

func submitForm(omit ...string) url.Values {
	form := url.Values{}
	form.Set("shop", "demo.myshopify.com")
	form.Set("productId", "1001")
	form.Set("productTitle", "Denim Jacket")
	form.Set("productImage", "https://cdn.example.com/jacket.png")
	form.Set("customerImage", "data:image/png;base64,AAAA")
	for _, field := range omit {
		form.Del(field)
	}
	return form
}

func postForm(router *gin.Engine, form url.Values) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("POST", "/api/tryon", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func getStatus(router *gin.Engine, requestID string) *httptest.ResponseRecorder {
	target := "/api/tryon-status"
	if requestID != "" {
		target += "?requestId=" + requestID
	}
	req, _ := http.NewRequest("GET", target, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSubmit_EndToEnd(t *testing.T) {
	store := newMemStore()
	store.addShop("demo.myshopify.com", true)
	queue := &memQueue{}
	resultURL := "https://gpu.example.com/view?filename=tryon_result_00001.png"
	router := newTestRouter(store, queue, &stubGenerator{result: resultURL})

	// Submit returns the id immediately
	w := postForm(router, submitForm())
	require.Equal(t, http.StatusOK, w.Code)

	var submitResp models.SubmitResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &submitResp))
	assert.True(t, submitResp.Success)
	require.NotEmpty(t, submitResp.RequestID)

	// Immediate read observes processing with no result
	w = getStatus(router, submitResp.RequestID)
	require.Equal(t, http.StatusOK, w.Code)

	var status models.StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, models.StatusProcessing, status.Status)
	assert.Nil(t, status.ResultImage)

	// Once the background generation lands, the status flips
	queue.runAll()

	w = getStatus(router, submitResp.RequestID)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, models.StatusCompleted, status.Status)
	require.NotNil(t, status.ResultImage)
	assert.Equal(t, resultURL, *status.ResultImage)
}

func TestSubmit_MissingField(t *testing.T) {
	store := newMemStore()
	store.addShop("demo.myshopify.com", true)
	router := newTestRouter(store, &memQueue{}, &stubGenerator{})

	w := postForm(router, submitForm("customerImage"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Missing required fields")
	assert.Empty(t, store.requests, "no record created on validation failure")
}

func TestSubmit_FeatureDisabled(t *testing.T) {
	store := newMemStore()
	store.addShop("demo.myshopify.com", false)
	router := newTestRouter(store, &memQueue{}, &stubGenerator{})

	w := postForm(router, submitForm())

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, store.requests)
}

func TestSubmit_UnknownShop(t *testing.T) {
	store := newMemStore()
	router := newTestRouter(store, &memQueue{}, &stubGenerator{})

	w := postForm(router, submitForm())

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGetStatus_MissingParam(t *testing.T) {
	router := newTestRouter(newMemStore(), &memQueue{}, &stubGenerator{})

	w := getStatus(router, "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetStatus_UnknownID(t *testing.T) {
	router := newTestRouter(newMemStore(), &memQueue{}, &stubGenerator{})

	w := getStatus(router, uuid.NewString())

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetStatus_FailedGeneration(t *testing.T) {
	store := newMemStore()
	store.addShop("demo.myshopify.com", true)
	queue := &memQueue{}
	router := newTestRouter(store, queue, &stubGenerator{err: assert.AnError})

	w := postForm(router, submitForm())
	require.Equal(t, http.StatusOK, w.Code)

	var submitResp models.SubmitResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &submitResp))

	queue.runAll()

	w = getStatus(router, submitResp.RequestID)
	require.Equal(t, http.StatusOK, w.Code)

	var status models.StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, models.StatusFailed, status.Status)
	assert.Nil(t, status.ResultImage)
}
