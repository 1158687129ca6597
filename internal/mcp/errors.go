// Package mcp exposes vault search over the Model Context Protocol.
package mcp

import (
	"context"
	"errors"
	"fmt"

	oerrors "github.com/Aman-CERP/orag/internal/errors"
)

// Custom MCP error codes.
const (
	// ErrCodeIndexNotFound indicates the vault has not been indexed.
	ErrCodeIndexNotFound = -32001

	// ErrCodeEmbeddingFailed indicates the embedding or storage backend failed.
	ErrCodeEmbeddingFailed = -32002

	// ErrCodeTimeout indicates the request timed out or was canceled.
	ErrCodeTimeout = -32003

	// Standard JSON-RPC error codes.
	ErrCodeInvalidParams = -32602
	ErrCodeInternalError = -32603
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

	var oerr *oerrors.OragError
	if errors.As(err, &oerr) {
		return mapOragError(oerr)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request timed out."}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request was canceled."}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: "Internal server error."}
	}
}

// NewInvalidParamsError creates an error for invalid parameters.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

func mapOragError(oe *oerrors.OragError) *MCPError {
	message := oe.Message
	if oe.Suggestion != "" {
		message = fmt.Sprintf("%s. Hint: %s", oe.Message, oe.Suggestion)
	}

	switch oe.Code {
	case oerrors.ErrCodeCollectionNotFound:
		return &MCPError{Code: ErrCodeIndexNotFound, Message: message}
	case oerrors.ErrCodeInvalidInput:
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	case oerrors.ErrCodeBackend:
		return &MCPError{Code: ErrCodeEmbeddingFailed, Message: message}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: message}
	}
}
