package http

import (
	"net/http"

	"github.com/GriffinCanCode/FileDeck/backend/internal/monitoring"
	"github.com/GriffinCanCode/FileDeck/backend/internal/shared/errs"
	"github.com/GriffinCanCode/FileDeck/backend/internal/shared/id"
	"github.com/GriffinCanCode/FileDeck/backend/internal/shared/validate"
	"github.com/GriffinCanCode/FileDeck/backend/internal/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Version is reported by the root endpoint
const Version = "0.3.0"

// RequestIDHeader carries the caller's request id; one is generated when absent
const RequestIDHeader = "X-Request-ID"

// StatusClientClosedRequest is returned for operations cancelled mid-flight
const StatusClientClosedRequest = 499

// Handlers contains all HTTP handlers
type Handlers struct {
	provider types.Provider
	metrics  *monitoring.Metrics
	logger   *zap.Logger
}

// NewHandlers creates a new handler set. metrics may be nil.
func NewHandlers(provider types.Provider, metrics *monitoring.Metrics, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		provider: provider,
		metrics:  metrics,
		logger:   logger,
	}
}

// Root handles the liveness check
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "FileDeck",
		"version": Version,
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	resp := gin.H{"status": "healthy"}
	if h.metrics != nil {
		resp["metrics"] = h.metrics.GetSnapshot()
	}
	c.JSON(http.StatusOK, resp)
}

// Operations returns the operation catalog
func (h *Handlers) Operations(c *gin.Context) {
	c.JSON(http.StatusOK, h.provider.Definition())
}

// Execute runs one operation from a flat {operation, ...fields} body
func (h *Handlers) Execute(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, validate.MaxRequestSize)

	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validate.Depth(body, validate.MaxRequestDepth); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req, err := types.ParseRequest(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	requestID := c.GetHeader(RequestIDHeader)
	if requestID == "" {
		requestID = id.NewRequestID().String()
	}
	c.Header(RequestIDHeader, requestID)

	result, err := h.provider.Execute(c.Request.Context(), req.Operation, req.Params, &types.Context{
		RequestID: requestID,
		ClientID:  c.ClientIP(),
	})
	if err != nil {
		h.logger.Error("Execute failed",
			zap.String("operation", req.Operation),
			zap.String("request_id", requestID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(StatusFor(result), result)
}

// StatusFor maps an envelope to the HTTP status it is served with
func StatusFor(result *types.Result) int {
	if result == nil {
		return http.StatusInternalServerError
	}
	if result.Success {
		return http.StatusOK
	}

	switch errs.Kind(result.ErrorKind) {
	case errs.InvalidArgument, errs.NotADirectory, errs.NotAFile:
		return http.StatusBadRequest
	case errs.NotFound:
		return http.StatusNotFound
	case errs.AlreadyExists:
		return http.StatusConflict
	case errs.ReadOnly:
		return http.StatusForbidden
	case errs.ArchiveCorrupt:
		return http.StatusUnprocessableEntity
	case errs.Cancelled:
		return StatusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}
