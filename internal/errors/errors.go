package errors

import (
	stderrors "errors"
	"fmt"
)

// OragError is the structured error type for orag.
type OragError struct {
	// Code is the unique error code (e.g., "ERR_201_COLLECTION_NOT_FOUND").
	Code string

	// Message is the human-readable error message.
	Message string

	Category Category
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Suggestion is an actionable hint for the operator.
	Suggestion string
}

// Error implements the error interface.
func (e *OragError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *OragError) Unwrap() error {
	return e.Cause
}

// Is matches by code so errors.Is works against sentinel values.
func (e *OragError) Is(target error) bool {
	if t, ok := target.(*OragError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *OragError) WithDetail(key, value string) *OragError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *OragError) WithSuggestion(suggestion string) *OragError {
	e.Suggestion = suggestion
	return e
}

// New creates a new OragError with the given code and message.
// Category and severity are derived from the code.
func New(code string, message string, cause error) *OragError {
	return &OragError{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Severity: severityFromCode(code),
		Cause:    cause,
	}
}

// Wrap creates an OragError from an existing error.
// The error's message becomes the OragError message.
func Wrap(code string, err error) *OragError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigNotFound reports that no vault config could be discovered.
func ConfigNotFound(message string) *OragError {
	return New(ErrCodeConfigNotFound, message, nil).
		WithSuggestion("run `orag init` in your vault root")
}

// ConfigInvalid reports a malformed vault config.
func ConfigInvalid(message string, cause error) *OragError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// CollectionNotFound reports a query against a vault that was never indexed.
func CollectionNotFound(name string, cause error) *OragError {
	return New(ErrCodeCollectionNotFound, fmt.Sprintf("no index found for vault %q", name), cause).
		WithDetail("collection", name).
		WithSuggestion("run `orag index` first")
}

// BackendFailure wraps an embedding or storage failure.
func BackendFailure(message string, cause error) *OragError {
	return New(ErrCodeBackend, message, cause)
}

// ValidationError creates an input validation error.
func ValidationError(message string) *OragError {
	return New(ErrCodeInvalidInput, message, nil)
}

// IsCode reports whether any error in err's chain carries the given code.
func IsCode(err error, code string) bool {
	var oe *OragError
	for err != nil {
		if !stderrors.As(err, &oe) {
			return false
		}
		if oe.Code == code {
			return true
		}
		err = oe.Cause
	}
	return false
}

// IsFatal checks if an error has fatal severity.
func IsFatal(err error) bool {
	var oe *OragError
	if stderrors.As(err, &oe) {
		return oe.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the outermost error code from err's chain.
// Returns empty string if there is none.
func GetCode(err error) string {
	var oe *OragError
	if stderrors.As(err, &oe) {
		return oe.Code
	}
	return ""
}

// GetCategory extracts the category from err's chain.
func GetCategory(err error) Category {
	var oe *OragError
	if stderrors.As(err, &oe) {
		return oe.Category
	}
	return ""
}
