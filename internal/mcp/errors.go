// Package mcp exposes the searcher as Model Context Protocol tools.
package mcp

import (
	"context"
	"errors"
	"fmt"

	sserrors "github.com/xkfz007/shardsearch/internal/errors"
)

// Custom MCP error codes for shardsearch.
const (
	// ErrCodeNothingToSearch indicates no shard holds searchable documents.
	ErrCodeNothingToSearch = -32001

	// ErrCodeFolderMissing indicates a registered index folder is gone.
	ErrCodeFolderMissing = -32002

	// ErrCodeTimeout indicates the request timed out or was canceled.
	ErrCodeTimeout = -32003

	// ErrCodeIndexFault indicates a background index update failed.
	ErrCodeIndexFault = -32004

	// ErrCodeResourceExhausted indicates the search hit the memory budget.
	ErrCodeResourceExhausted = -32005

	// ErrCodeUnavailable indicates the searcher has been shut down.
	ErrCodeUnavailable = -32006

	// Standard JSON-RPC error codes.
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// MCPError represents an MCP protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts internal errors to MCP errors.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var mcpErr *MCPError
	if errors.As(err, &mcpErr) {
		return mcpErr
	}
	if se, ok := sserrors.As(err); ok {
		return mapSearchError(se)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{
			Code:    ErrCodeTimeout,
			Message: "Request timed out.",
		}
	case errors.Is(err, context.Canceled):
		return &MCPError{
			Code:    ErrCodeTimeout,
			Message: "Request was canceled.",
		}
	default:
		return &MCPError{
			Code:    ErrCodeInternalError,
			Message: "Internal server error.",
		}
	}
}

// NewInvalidParamsError creates an error for invalid parameters with a custom message.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{
		Code:    ErrCodeInvalidParams,
		Message: msg,
	}
}

// NewMethodNotFoundError creates an error for unknown tools.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{
		Code:    ErrCodeMethodNotFound,
		Message: fmt.Sprintf("Tool '%s' not found.", name),
	}
}

func mapSearchError(se *sserrors.Error) *MCPError {
	message := se.Message
	if se.Suggestion != "" {
		message = fmt.Sprintf("%s. %s.", se.Message, se.Suggestion)
	}

	code := ErrCodeInternalError
	switch se.Code {
	case sserrors.ErrCodeNothingToSearch:
		code = ErrCodeNothingToSearch
	case sserrors.ErrCodeFolderMissing:
		code = ErrCodeFolderMissing
	case sserrors.ErrCodeIOFault, sserrors.ErrCodeCorruptShard:
		code = ErrCodeIndexFault
	case sserrors.ErrCodeInvalidQuery, sserrors.ErrCodeInvalidInput:
		code = ErrCodeInvalidParams
	case sserrors.ErrCodeResourceExhausted:
		code = ErrCodeResourceExhausted
	case sserrors.ErrCodeShutDown:
		code = ErrCodeUnavailable
	}
	return &MCPError{Code: code, Message: message}
}
