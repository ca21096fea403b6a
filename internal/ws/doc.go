// Package ws provides the WebSocket IPC transport of the FileDeck backend.
//
// Each text frame is a JSON object. Requests are flat: the operation name
// and its fields side by side, plus an optional client-chosen id used to
// correlate replies. Requests on one connection run concurrently, so a
// long copy never blocks a listing.
//
// Frames (Client → Server):
//   - request (default when "type" is absent): {id, operation, ...fields}
//   - cancel: {type, id} cancels the request with that id
//   - ping: keep-alive
//
// Frames (Server → Client):
//   - progress: {type, id, taskId, current, total, label}
//   - response: {type, id, ...envelope}
//   - pong
//   - error: a frame that could not be acted on
//
// Closing the connection cancels every request still running on it.
//
// Example Usage:
//
//	handler := ws.NewHandler(provider, metrics, logger)
//	router.GET("/ipc", handler.HandleConnection)
package ws
