// Package mcp implements the Model Context Protocol (MCP) tool layer for
// Riptide. It exposes the hybrid search engine and tenant partitions to AI
// clients over stdio JSON-RPC.
package mcp

import (
	"context"
	"errors"
	"fmt"

	rterrors "github.com/riptide-search/riptide/internal/errors"
)

// Custom MCP error codes for Riptide.
const (
	// ErrCodeTenantNotFound indicates the tenant has no partition.
	ErrCodeTenantNotFound = -32001

	// ErrCodePartitionBusy indicates another process holds the partition.
	ErrCodePartitionBusy = -32002

	// ErrCodeTimeout indicates the request timed out or was canceled.
	ErrCodeTimeout = -32003

	// ErrCodeCorruptIndex indicates a partition's on-disk index is unreadable.
	ErrCodeCorruptIndex = -32004

	// Standard JSON-RPC error codes.
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// Sentinel errors for internal use.
var (
	// ErrToolNotFound indicates the requested tool does not exist.
	ErrToolNotFound = errors.New("tool not found")

	// ErrInvalidParams indicates invalid parameters were provided.
	ErrInvalidParams = errors.New("invalid parameters")
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

// MapError converts internal errors to MCP errors. Typed Riptide errors map
// by category; validation failures become invalid-params so clients can fix
// the call, everything unexpected becomes an internal error.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var rerr *rterrors.RiptideError
	if errors.As(err, &rerr) {
		return mapRiptideError(rerr)
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
	case errors.Is(err, ErrToolNotFound):
		return &MCPError{
			Code:    ErrCodeMethodNotFound,
			Message: "Tool not found.",
		}
	case errors.Is(err, ErrInvalidParams):
		return &MCPError{
			Code:    ErrCodeInvalidParams,
			Message: "Invalid parameters.",
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

// NewMethodNotFoundError creates an error for unknown methods/tools.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{
		Code:    ErrCodeMethodNotFound,
		Message: fmt.Sprintf("Tool '%s' not found.", name),
	}
}

// mapRiptideError converts a RiptideError to an MCPError.
func mapRiptideError(re *rterrors.RiptideError) *MCPError {
	// Carry the suggestion into the message; it is the actionable part.
	message := re.Message
	if re.Suggestion != "" {
		message = fmt.Sprintf("%s %s", re.Message, re.Suggestion)
	}

	switch re.Category {
	case rterrors.CategoryValidation:
		return &MCPError{
			Code:    ErrCodeInvalidParams,
			Message: message,
		}
	case rterrors.CategoryStorage:
		switch re.Code {
		case rterrors.ErrCodeTenantNotFound:
			return &MCPError{
				Code:    ErrCodeTenantNotFound,
				Message: message,
			}
		case rterrors.ErrCodePartitionLocked:
			return &MCPError{
				Code:    ErrCodePartitionBusy,
				Message: message,
			}
		case rterrors.ErrCodeCorruptIndex:
			return &MCPError{
				Code:    ErrCodeCorruptIndex,
				Message: message,
			}
		default:
			return &MCPError{
				Code:    ErrCodeInternalError,
				Message: message,
			}
		}
	case rterrors.CategoryNetwork:
		return &MCPError{
			Code:    ErrCodeTimeout,
			Message: message,
		}
	default: // CategoryConfig, CategoryInternal, and unknown
		return &MCPError{
			Code:    ErrCodeInternalError,
			Message: message,
		}
	}
}
