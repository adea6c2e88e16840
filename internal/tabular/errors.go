package tabular

// errors.go defines the parse error taxonomy.
//
// Parser failures are non-recoverable for the call: the caller receives a
// typed *ParseError and no partial table. Row-level anomalies never become
// errors; they are recorded in Table.Warnings instead, so the two channels
// stay distinct.

import (
	"errors"
	"fmt"
)

// ErrorCode is a stable machine-readable identifier for a parse failure.
// Codes are part of the API surface; callers and the web layer match on them.
type ErrorCode string

const (
	CodeEmptyFile         ErrorCode = "EMPTY_FILE"
	CodeEmptySheet        ErrorCode = "EMPTY_SHEET"
	CodeEmptyRange        ErrorCode = "EMPTY_RANGE"
	CodeInvalidRange      ErrorCode = "INVALID_RANGE"
	CodeNoColumns         ErrorCode = "NO_COLUMNS"
	CodeNoSheets          ErrorCode = "NO_SHEETS"
	CodeSheetNotFound     ErrorCode = "SHEET_NOT_FOUND"
	CodeInvalidSheetIndex ErrorCode = "INVALID_SHEET_INDEX"
	CodeReadError         ErrorCode = "READ_ERROR"
	CodeUnsupportedType   ErrorCode = "UNSUPPORTED_TYPE"
	CodeParseError        ErrorCode = "PARSE_ERROR"
)

// ParseError is the typed error returned by the parsers. Message is safe to
// show to users; Cause preserves the underlying failure for logs.
type ParseError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// newError builds a ParseError with a formatted message.
func newError(code ErrorCode, format string, args ...any) *ParseError {
	return &ParseError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// wrapError attaches an underlying cause to a ParseError.
func wrapError(code ErrorCode, cause error, format string, args ...any) *ParseError {
	return &ParseError{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// AsParseError unwraps err to a *ParseError if one is in the chain.
func AsParseError(err error) (*ParseError, bool) {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
