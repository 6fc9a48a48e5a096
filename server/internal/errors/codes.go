// Package errors defines structured error codes for the ingestion and
// retrieval pipeline.
package errors

import (
	"fmt"
)

// ErrorCode represents a specific error type for pipeline operations.
type ErrorCode string

const (
	// ErrCodeInvalidArgument indicates invalid input parameters.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeDecodeUnavailable indicates the document bytes could not
	// be decoded into text blocks.
	ErrCodeDecodeUnavailable ErrorCode = "DECODE_UNAVAILABLE"
	// ErrCodeEmbeddingFailed indicates the embedding provider call failed.
	ErrCodeEmbeddingFailed ErrorCode = "EMBEDDING_SERVICE_ERROR"
	// ErrCodeStoreUnavailable indicates the vector store rejected the operation.
	ErrCodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	// ErrCodeMalformedResponse indicates an external service returned
	// a response that could not be parsed.
	ErrCodeMalformedResponse ErrorCode = "MALFORMED_EXTERNAL_RESPONSE"
	// ErrCodeDocumentExists indicates the document identity is already published.
	ErrCodeDocumentExists ErrorCode = "DOCUMENT_EXISTS"
	// ErrCodeContextCanceled indicates the operation was canceled.
	ErrCodeContextCanceled ErrorCode = "CONTEXT_CANCELED"
	// ErrCodeTimeout indicates the operation timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
)

// PipelineError represents a structured error for pipeline operations.
type PipelineError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error.
func (e *PipelineError) WithContext(key string, value interface{}) *PipelineError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// GetCode returns the error code.
func (e *PipelineError) GetCode() ErrorCode {
	return e.Code
}

// Convenience constructors for common error types.

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string) *PipelineError {
	return &PipelineError{Code: ErrCodeInvalidArgument, Message: msg}
}

// DecodeUnavailable creates a decode unavailable error.
func DecodeUnavailable(msg string, cause error) *PipelineError {
	return &PipelineError{Code: ErrCodeDecodeUnavailable, Message: msg, Cause: cause}
}

// EmbeddingFailed creates an embedding service error.
func EmbeddingFailed(msg string, cause error) *PipelineError {
	return &PipelineError{Code: ErrCodeEmbeddingFailed, Message: msg, Cause: cause}
}

// StoreUnavailable creates a store unavailable error.
func StoreUnavailable(msg string, cause error) *PipelineError {
	return &PipelineError{Code: ErrCodeStoreUnavailable, Message: msg, Cause: cause}
}

// MalformedResponse creates a malformed external response error.
func MalformedResponse(msg string, cause error) *PipelineError {
	return &PipelineError{Code: ErrCodeMalformedResponse, Message: msg, Cause: cause}
}

// DocumentExists creates a document exists error.
func DocumentExists(documentID string) *PipelineError {
	return &PipelineError{
		Code:    ErrCodeDocumentExists,
		Message: fmt.Sprintf("document already published: %s", documentID),
	}
}

// ContextCanceled creates a context canceled error.
func ContextCanceled(cause error) *PipelineError {
	return &PipelineError{Code: ErrCodeContextCanceled, Message: "operation canceled", Cause: cause}
}

// Timeout creates a timeout error.
func Timeout(msg string) *PipelineError {
	return &PipelineError{Code: ErrCodeTimeout, Message: msg}
}

// Wrap wraps an existing error with additional context.
func Wrap(cause error, code ErrorCode, msg string) *PipelineError {
	return &PipelineError{Code: code, Message: msg, Cause: cause}
}

// IsCode checks if an error is of a specific code.
func IsCode(err error, code ErrorCode) bool {
	if pErr, ok := err.(*PipelineError); ok {
		return pErr.Code == code
	}
	return false
}

// GetCodeFromError extracts the error code from any error.
func GetCodeFromError(err error) ErrorCode {
	if pErr, ok := err.(*PipelineError); ok {
		return pErr.Code
	}
	return ErrCodeInvalidArgument
}
