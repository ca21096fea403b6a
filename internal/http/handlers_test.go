package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/GriffinCanCode/FileDeck/backend/internal/shared/errs"
	"github.com/GriffinCanCode/FileDeck/backend/internal/testutil"
	"github.com/GriffinCanCode/FileDeck/backend/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newRouter(provider types.Provider) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandlers(provider, nil, nil)

	router := gin.New()
	router.GET("/health", h.Health)
	router.GET("/operations", h.Operations)
	router.POST("/api/execute", h.Execute)
	return router
}

func post(t *testing.T, router *gin.Engine, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/execute", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestExecuteFlatBody(t *testing.T) {
	provider := &testutil.MockProvider{}
	result := &types.Result{Success: true, Operation: "list", Timestamp: time.Now(), Data: map[string]interface{}{"count": 0}}
	provider.On("Execute", mock.Anything, "list", map[string]interface{}{"folderPath": "/data"},
		mock.MatchedBy(func(c *types.Context) bool { return c.RequestID == "req-1" })).
		Return(result, nil)

	w := post(t, newRouter(provider), `{"operation":"list","folderPath":"/data"}`, map[string]string{RequestIDHeader: "req-1"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-1", w.Header().Get(RequestIDHeader))

	var got types.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.True(t, got.Success)
	assert.Equal(t, "list", got.Operation)
	provider.AssertExpectations(t)
}

func TestExecuteGeneratesRequestID(t *testing.T) {
	provider := &testutil.MockProvider{}
	provider.On("Execute", mock.Anything, "shares", map[string]interface{}{}, mock.Anything).
		Return(&types.Result{Success: true, Operation: "shares"}, nil)

	w := post(t, newRouter(provider), `{"operation":"shares"}`, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestExecuteFailureStatus(t *testing.T) {
	msg := "not found: /missing"
	provider := &testutil.MockProvider{}
	provider.On("Execute", mock.Anything, "read", mock.Anything, mock.Anything).
		Return(&types.Result{Success: false, Operation: "read", Error: &msg, ErrorKind: string(errs.NotFound)}, nil)

	w := post(t, newRouter(provider), `{"operation":"read","filePath":"/missing"}`, nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)
	assert.Contains(t, w.Body.String(), msg)
}

func TestExecuteBadBodies(t *testing.T) {
	provider := &testutil.MockProvider{}
	router := newRouter(provider)

	for _, body := range []string{`not json`, `{"folderPath":"/x"}`, `{"operation":42}`} {
		w := post(t, router, body, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
	provider.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestExecuteProviderError(t *testing.T) {
	provider := &testutil.MockProvider{}
	provider.On("Execute", mock.Anything, "list", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))

	w := post(t, newRouter(provider), `{"operation":"list"}`, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestOperationsCatalog(t *testing.T) {
	provider := &testutil.MockProvider{}
	provider.On("Definition").Return(types.Service{
		ID:    "filesystem",
		Tools: []types.Tool{{ID: "filesystem.list", Name: "list"}},
	})

	w := httptest.NewRecorder()
	newRouter(provider).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/operations", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var svc types.Service
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &svc))
	assert.Equal(t, "filesystem", svc.ID)
	require.Len(t, svc.Tools, 1)
}

func TestHealth(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter(&testutil.MockProvider{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestStatusFor(t *testing.T) {
	failure := func(kind errs.Kind) *types.Result {
		return &types.Result{ErrorKind: string(kind)}
	}

	assert.Equal(t, http.StatusOK, StatusFor(&types.Result{Success: true}))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(nil))
	assert.Equal(t, http.StatusBadRequest, StatusFor(failure(errs.InvalidArgument)))
	assert.Equal(t, http.StatusBadRequest, StatusFor(failure(errs.NotADirectory)))
	assert.Equal(t, http.StatusNotFound, StatusFor(failure(errs.NotFound)))
	assert.Equal(t, http.StatusConflict, StatusFor(failure(errs.AlreadyExists)))
	assert.Equal(t, http.StatusForbidden, StatusFor(failure(errs.ReadOnly)))
	assert.Equal(t, http.StatusUnprocessableEntity, StatusFor(failure(errs.ArchiveCorrupt)))
	assert.Equal(t, StatusClientClosedRequest, StatusFor(failure(errs.Cancelled)))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(failure(errs.Unknown)))
}

func TestExecuteRejectsDeepBodies(t *testing.T) {
	provider := &testutil.MockProvider{}
	body := `{"operation":"zip","files":` + strings.Repeat("[", 12) + strings.Repeat("]", 12) + `}`

	w := post(t, newRouter(provider), body, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	provider.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
