package jsonrpc

import (
	"errors"
	"fmt"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
)

// Code is a JSON-RPC error code.
type Code = jsonrpc2.Code

// JSON-RPC 2.0 error codes
const (
	ParseError     = jsonrpc2.ParseError
	InvalidRequest = jsonrpc2.InvalidRequest
	MethodNotFound = jsonrpc2.MethodNotFound
	InvalidParams  = jsonrpc2.InvalidParams
	InternalError  = jsonrpc2.InternalError

	// LSP-specific errors
	ServerNotInitialized = jsonrpc2.ServerNotInitialized
	RequestCancelled     = protocol.CodeRequestCancelled
	ContentModified      = protocol.CodeContentModified
)

// Framing errors returned by Reader.
var (
	// ErrMissingContentLength indicates a header block ended without a
	// Content-Length header. The stream cannot be resynchronized after this.
	ErrMissingContentLength = errors.New("missing Content-Length header")

	// ErrInvalidContentLength indicates a Content-Length value that is not a
	// non-negative decimal integer.
	ErrInvalidContentLength = errors.New("invalid Content-Length header")

	// ErrParse indicates a frame body that is not a JSON-RPC object.
	ErrParse = errors.New("parse error")
)

// Error represents a JSON-RPC 2.0 error object.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// NewError creates an Error with the given code and message.
func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf creates an Error with a formatted message.
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("jsonrpc error %d: %s (data: %v)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// IsFraming reports whether err is a framing error after which the byte
// stream can no longer be trusted.
func IsFraming(err error) bool {
	return errors.Is(err, ErrMissingContentLength) || errors.Is(err, ErrInvalidContentLength)
}
