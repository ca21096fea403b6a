package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/GriffinCanCode/FileDeck/backend/internal/shared/id"
	"github.com/GriffinCanCode/FileDeck/backend/internal/shared/validate"
	"github.com/GriffinCanCode/FileDeck/backend/internal/task"
	"github.com/GriffinCanCode/FileDeck/backend/internal/types"
	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 10 * time.Second

// Recorder receives connection and frame counts
type Recorder interface {
	IncWSConnections()
	DecWSConnections()
	RecordWSMessage(direction, msgType string)
}

type nopRecorder struct{}

func (nopRecorder) IncWSConnections()              {}
func (nopRecorder) DecWSConnections()              {}
func (nopRecorder) RecordWSMessage(string, string) {}

// Handler manages WebSocket connections
type Handler struct {
	provider types.Provider
	metrics  Recorder
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a new WebSocket handler. metrics may be nil.
func NewHandler(provider types.Provider, metrics Recorder, logger *zap.Logger) *Handler {
	if metrics == nil {
		metrics = nopRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		provider: provider,
		metrics:  metrics,
		logger:   logger,
		upgrader: websocket.Upgrader{
			// The server listens on loopback for a local UI
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// HandleConnection upgrades the request and serves frames until the client
// disconnects. Operations still running at that point are cancelled.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	h.metrics.IncWSConnections()
	defer h.metrics.DecWSConnections()

	s := &session{
		h:        h,
		conn:     conn,
		client:   c.ClientIP(),
		inflight: make(map[string]context.CancelFunc),
		logger:   h.logger.With(zap.String("client", c.ClientIP())),
	}
	s.logger.Debug("WebSocket connected")
	s.serve(c.Request.Context())
	s.logger.Debug("WebSocket disconnected")
}

// session is one connection. Requests run concurrently; writes are
// serialized because the connection supports a single writer.
type session struct {
	h      *Handler
	conn   *websocket.Conn
	client string
	logger *zap.Logger

	writeMu sync.Mutex

	mu       sync.Mutex
	inflight map[string]context.CancelFunc
	wg       sync.WaitGroup
}

func (s *session) serve(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	defer func() {
		cancel()
		s.wg.Wait()
		s.conn.Close()
	}()

	s.conn.SetReadLimit(validate.MaxRequestSize)

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("WebSocket read error", zap.Error(err))
			}
			return
		}

		var frame map[string]interface{}
		if err := sonic.Unmarshal(data, &frame); err != nil {
			s.h.metrics.RecordWSMessage("in", "malformed")
			s.sendError("", "malformed frame: "+err.Error())
			continue
		}

		frameType, _ := frame["type"].(string)
		if frameType == "" {
			frameType = types.FrameRequest
		}
		s.h.metrics.RecordWSMessage("in", frameType)

		switch frameType {
		case types.FrameRequest:
			s.dispatch(ctx, frame)
		case types.FrameCancel:
			reqID, _ := frame["id"].(string)
			if !s.cancel(reqID) {
				s.sendError(reqID, "no running request with this id")
			}
		case types.FramePing:
			s.send(types.FramePong, map[string]string{"type": types.FramePong})
		default:
			reqID, _ := frame["id"].(string)
			s.sendError(reqID, "unknown frame type: "+frameType)
		}
	}
}

// dispatch runs one request in the background and replies with its
// envelope. Progress frames for its task precede the reply.
func (s *session) dispatch(parent context.Context, frame map[string]interface{}) {
	req, err := types.ParseRequest(frame)
	if err == nil {
		err = validate.Depth(frame, validate.MaxRequestDepth)
	}
	if err != nil {
		reqID, _ := frame["id"].(string)
		s.sendError(reqID, err.Error())
		return
	}

	ctx, cancel := context.WithCancel(parent)
	if req.ID != "" {
		s.mu.Lock()
		if _, busy := s.inflight[req.ID]; busy {
			s.mu.Unlock()
			cancel()
			s.sendError(req.ID, "request id already in flight")
			return
		}
		s.inflight[req.ID] = cancel
		s.mu.Unlock()
	}

	ctx = task.WithListener(ctx, func(taskID id.TaskID, current, total int, label string) {
		s.send(types.FrameProgress, types.ProgressMessage{
			Type:    types.FrameProgress,
			ID:      req.ID,
			TaskID:  taskID.String(),
			Current: current,
			Total:   total,
			Label:   label,
		})
	})

	requestID := req.ID
	if requestID == "" {
		requestID = id.NewRequestID().String()
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.forget(req.ID)
		defer cancel()

		result, err := s.h.provider.Execute(ctx, req.Operation, req.Params, &types.Context{
			RequestID: requestID,
			ClientID:  s.client,
		})
		if err != nil {
			s.logger.Error("Execute failed",
				zap.String("operation", req.Operation),
				zap.String("request_id", requestID),
				zap.Error(err))
			s.sendError(req.ID, err.Error())
			return
		}

		s.send(types.FrameResponse, types.ResponseMessage{
			Type:   types.FrameResponse,
			ID:     req.ID,
			Result: result,
		})
	}()
}

func (s *session) cancel(reqID string) bool {
	s.mu.Lock()
	cancel, ok := s.inflight[reqID]
	s.mu.Unlock()

	if ok {
		cancel()
	}
	return ok
}

func (s *session) forget(reqID string) {
	if reqID == "" {
		return
	}
	s.mu.Lock()
	delete(s.inflight, reqID)
	s.mu.Unlock()
}

func (s *session) send(frameType string, v interface{}) {
	data, err := sonic.Marshal(v)
	if err != nil {
		s.logger.Error("Failed to encode frame", zap.String("type", frameType), zap.Error(err))
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.logger.Debug("WebSocket write failed", zap.String("type", frameType), zap.Error(err))
		return
	}
	s.h.metrics.RecordWSMessage("out", frameType)
}

func (s *session) sendError(reqID, msg string) {
	s.send(types.FrameError, types.ErrorMessage{
		Type:    types.FrameError,
		ID:      reqID,
		Message: msg,
	})
}
