package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/GriffinCanCode/FileDeck/backend/internal/shared/errs"
	"github.com/GriffinCanCode/FileDeck/backend/internal/task"
	"github.com/GriffinCanCode/FileDeck/backend/internal/testutil"
	"github.com/GriffinCanCode/FileDeck/backend/internal/types"
	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// funcProvider runs exec for every operation
type funcProvider struct {
	exec func(ctx context.Context, operation string, params map[string]interface{}) *types.Result
}

func (f funcProvider) Definition() types.Service { return types.Service{ID: "test"} }

func (f funcProvider) Execute(ctx context.Context, operation string, params map[string]interface{}, _ *types.Context) (*types.Result, error) {
	return f.exec(ctx, operation, params), nil
}

func dial(t *testing.T, provider types.Provider) *websocket.Conn {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.GET("/ipc", NewHandler(provider, nil, nil).HandleConnection)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ipc", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func write(t *testing.T, conn *websocket.Conn, frame map[string]interface{}) {
	t.Helper()
	data, err := sonic.Marshal(frame)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

func read(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var frame map[string]interface{}
	require.NoError(t, sonic.Unmarshal(data, &frame))
	return frame
}

func TestRequestResponse(t *testing.T) {
	provider := &testutil.MockProvider{}
	provider.On("Execute", mock.Anything, "list", map[string]interface{}{"folderPath": "/data"}, mock.Anything).
		Return(&types.Result{Success: true, Operation: "list", TaskID: "task_1", Data: map[string]interface{}{"count": 2}}, nil)

	conn := dial(t, provider)
	write(t, conn, map[string]interface{}{"id": "r1", "operation": "list", "folderPath": "/data"})

	frame := read(t, conn)
	assert.Equal(t, types.FrameResponse, frame["type"])
	assert.Equal(t, "r1", frame["id"])
	assert.Equal(t, "task_1", frame["taskId"])
	assert.Equal(t, true, frame["success"])
	assert.Equal(t, "list", frame["operation"])
	assert.Equal(t, map[string]interface{}{"count": float64(2)}, frame["data"])
}

func TestProgressPrecedesResponse(t *testing.T) {
	provider := funcProvider{exec: func(ctx context.Context, operation string, _ map[string]interface{}) *types.Result {
		reg := task.NewRegistry(0)
		h := reg.Start(ctx, operation, nil)
		defer reg.Finish(h)

		h.Report(1, 2, "a.txt")
		h.Report(2, 2, "b.txt")
		return &types.Result{Success: true, Operation: operation, TaskID: h.ID.String()}
	}}

	conn := dial(t, provider)
	write(t, conn, map[string]interface{}{"id": "c1", "operation": "copy"})

	first, second, last := read(t, conn), read(t, conn), read(t, conn)

	assert.Equal(t, types.FrameProgress, first["type"])
	assert.Equal(t, "c1", first["id"])
	assert.Equal(t, float64(1), first["current"])
	assert.Equal(t, float64(2), first["total"])
	assert.Equal(t, "a.txt", first["label"])
	assert.Equal(t, "b.txt", second["label"])

	assert.Equal(t, types.FrameResponse, last["type"])
	assert.Equal(t, first["taskId"], last["taskId"])
}

func TestCancelFrame(t *testing.T) {
	started := make(chan struct{})
	provider := funcProvider{exec: func(ctx context.Context, operation string, _ map[string]interface{}) *types.Result {
		close(started)
		<-ctx.Done()
		msg := "cancelled"
		return &types.Result{Operation: operation, Error: &msg, ErrorKind: string(errs.Cancelled)}
	}}

	conn := dial(t, provider)
	write(t, conn, map[string]interface{}{"id": "slow", "operation": "copy"})
	<-started
	write(t, conn, map[string]interface{}{"type": "cancel", "id": "slow"})

	frame := read(t, conn)
	assert.Equal(t, types.FrameResponse, frame["type"])
	assert.Equal(t, "slow", frame["id"])
	assert.Equal(t, false, frame["success"])
	assert.Equal(t, string(errs.Cancelled), frame["errorKind"])
}

func TestConcurrentRequests(t *testing.T) {
	release := make(chan struct{})
	provider := funcProvider{exec: func(ctx context.Context, operation string, _ map[string]interface{}) *types.Result {
		if operation == "copy" {
			<-release
		}
		return &types.Result{Success: true, Operation: operation}
	}}

	conn := dial(t, provider)
	write(t, conn, map[string]interface{}{"id": "a", "operation": "copy"})
	write(t, conn, map[string]interface{}{"id": "b", "operation": "list"})

	frame := read(t, conn)
	assert.Equal(t, "b", frame["id"], "a blocked request must not hold up the next one")

	close(release)
	frame = read(t, conn)
	assert.Equal(t, "a", frame["id"])
}

func TestControlAndBadFrames(t *testing.T) {
	conn := dial(t, &testutil.MockProvider{})

	write(t, conn, map[string]interface{}{"type": "ping"})
	assert.Equal(t, types.FramePong, read(t, conn)["type"])

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	assert.Equal(t, types.FrameError, read(t, conn)["type"])

	write(t, conn, map[string]interface{}{"id": "x", "folderPath": "/data"})
	frame := read(t, conn)
	assert.Equal(t, types.FrameError, frame["type"])
	assert.Equal(t, "x", frame["id"])

	write(t, conn, map[string]interface{}{"type": "cancel", "id": "nothing"})
	assert.Equal(t, types.FrameError, read(t, conn)["type"])

	write(t, conn, map[string]interface{}{"type": "subscribe"})
	assert.Equal(t, types.FrameError, read(t, conn)["type"])
}
