package models

import (
	"errors"
	"fmt"
)

// Error codes used in API responses and internal error handling.
const (
	ErrCodeInvalidInput     = "INVALID_INPUT"
	ErrCodeFetchFailed      = "FETCH_FAILED"
	ErrCodeUnknownProcessor = "UNKNOWN_PROCESSOR"
	ErrCodeRateLimited      = "RATE_LIMITED"
	ErrCodeInternal         = "INTERNAL_ERROR"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrTransport        = errors.New("transport failure")
	ErrUnknownProcessor = errors.New("unknown processor")
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CrawlError carries a classification code alongside the wrapped cause.
type CrawlError struct {
	Code    string
	Message string
	Err     error
}

func (e *CrawlError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CrawlError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match a CrawlError against the sentinel for its code
// even when the wrapped cause is something else.
func (e *CrawlError) Is(target error) bool {
	switch e.Code {
	case ErrCodeInvalidInput:
		return target == ErrInvalidInput
	case ErrCodeFetchFailed:
		return target == ErrTransport
	case ErrCodeUnknownProcessor:
		return target == ErrUnknownProcessor
	}
	return false
}

func (e *CrawlError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}

func NewCrawlError(code, message string, err error) *CrawlError {
	return &CrawlError{Code: code, Message: message, Err: err}
}

// AsCrawlError classifies any error, defaulting to INTERNAL_ERROR.
func AsCrawlError(err error) *CrawlError {
	var ce *CrawlError
	if errors.As(err, &ce) {
		return ce
	}
	return NewCrawlError(ErrCodeInternal, err.Error(), err)
}
