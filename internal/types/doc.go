// Package types provides the data structures shared by the dispatcher and
// its transports.
//
// Core Types:
//   - Service, Tool, Parameter: operation catalog
//   - Provider: what transports dispatch to
//   - Context: caller information attached by a transport
//   - Result: response envelope of every operation
//
// Wire Types:
//   - Request, ParseRequest: flat {operation, id, ...fields} bodies
//   - ProgressMessage, ResponseMessage, ErrorMessage: websocket frames
package types
