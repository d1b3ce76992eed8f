package errors

import (
	"fmt"
)

// Error is the structured error type for shardsearch.
// Every failure that crosses the search façade is an *Error.
type Error struct {
	// Code is the unique error code (e.g., "ERR_201_NOTHING_TO_SEARCH").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Storage, Validation, Internal).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches by code, so errors.Is(err, ErrNothingToSearch) holds for any
// error carrying that code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestion = suggestion
	return e
}

// New creates a new Error with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Category:   categoryFromCode(code),
		Severity:   severityFromCode(code),
		Cause:      cause,
		Retryable:  isRetryableCode(code),
		Suggestion: suggestions[code],
	}
}

// Newf creates an Error whose message is the catalog message for code
// followed by a formatted detail.
func Newf(code string, cause error, format string, args ...any) *Error {
	msg := Message(code)
	if format != "" {
		msg += ": " + fmt.Sprintf(format, args...)
	}
	return New(code, msg, cause)
}

// Wrap creates an Error from an existing error.
// The error's message becomes the Error message.
func Wrap(code string, err error) *Error {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// Sentinels for errors.Is checks. They carry only a code; matching is by code.
var (
	ErrNothingToSearch   = &Error{Code: ErrCodeNothingToSearch}
	ErrFolderMissing     = &Error{Code: ErrCodeFolderMissing}
	ErrCorruptShard      = &Error{Code: ErrCodeCorruptShard}
	ErrIOFault           = &Error{Code: ErrCodeIOFault}
	ErrRegistryLocked    = &Error{Code: ErrCodeRegistryLocked}
	ErrInvalidQuery      = &Error{Code: ErrCodeInvalidQuery}
	ErrInvalidInput      = &Error{Code: ErrCodeInvalidInput}
	ErrResourceExhausted = &Error{Code: ErrCodeResourceExhausted}
	ErrSearchFailed      = &Error{Code: ErrCodeSearchFailed}
	ErrShutDown          = &Error{Code: ErrCodeShutDown}
	ErrConfigInvalid     = &Error{Code: ErrCodeConfigInvalid}
)

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := As(err); ok {
		return e.Retryable
	}
	return false
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}

// GetCode extracts the error code from an Error anywhere in the chain.
// Returns empty string if there is none.
func GetCode(err error) string {
	if e, ok := As(err); ok {
		return e.Code
	}
	return ""
}
