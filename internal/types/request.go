package types

import (
	"errors"
	"fmt"
)

// Frame types exchanged over the websocket
const (
	FrameRequest  = "request"
	FrameResponse = "response"
	FrameProgress = "progress"
	FrameCancel   = "cancel"
	FramePing     = "ping"
	FramePong     = "pong"
	FrameError    = "error"
)

// Request is one operation call. On the wire it is flat:
// {operation, id?, ...operation fields}.
type Request struct {
	Operation string
	ID        string
	Params    map[string]interface{}
}

// ErrMissingOperation is returned for a request body without an operation
var ErrMissingOperation = errors.New("operation is required")

// ParseRequest splits a decoded request body into the envelope keys and the
// operation fields. The "type" key is consumed by the websocket transport.
func ParseRequest(body map[string]interface{}) (Request, error) {
	raw, ok := body["operation"]
	if !ok {
		return Request{}, ErrMissingOperation
	}
	op, ok := raw.(string)
	if !ok || op == "" {
		return Request{}, fmt.Errorf("operation must be a non-empty string, got %T", raw)
	}

	req := Request{Operation: op, Params: make(map[string]interface{}, len(body))}
	if s, ok := body["id"].(string); ok {
		req.ID = s
	}
	for k, v := range body {
		switch k {
		case "operation", "id", "type":
			continue
		}
		req.Params[k] = v
	}
	return req, nil
}

// ProgressMessage is a server-to-client progress frame
type ProgressMessage struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	TaskID  string `json:"taskId"`
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Label   string `json:"label"`
}

// ResponseMessage is a server-to-client operation result frame. The
// envelope fields are inlined.
type ResponseMessage struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
	*Result
}

// ErrorMessage reports a frame the server could not act on
type ErrorMessage struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message"`
}
