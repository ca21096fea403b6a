package types

import (
	"context"
	"time"
)

// Category represents service categories
type Category string

const (
	CategoryFilesystem Category = "filesystem"
	CategorySystem     Category = "system"
)

// Service represents a service definition
type Service struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Category     Category `json:"category"`
	Capabilities []string `json:"capabilities"`
	Tools        []Tool   `json:"tools"`
}

// Tool represents one dispatchable operation
type Tool struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  []Parameter `json:"parameters"`
	Returns     string      `json:"returns"`
}

// Parameter represents a tool parameter
type Parameter struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// Context carries transport-level information about the caller
type Context struct {
	RequestID string `json:"request_id,omitempty"`
	ClientID  string `json:"client_id,omitempty"`
}

// Result is the response envelope of every operation
type Result struct {
	Success   bool                   `json:"success"`
	Operation string                 `json:"operation"`
	Timestamp time.Time              `json:"timestamp"`
	TaskID    string                 `json:"taskId,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Error     *string                `json:"error,omitempty"`
	ErrorKind string                 `json:"errorKind,omitempty"`
}

// Provider is a dispatcher transports can execute operations against
type Provider interface {
	Definition() Service
	Execute(ctx context.Context, operation string, params map[string]interface{}, appCtx *Context) (*Result, error)
}
