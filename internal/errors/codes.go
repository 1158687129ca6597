// Package errors provides structured error handling for orag.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Index and storage state errors
//   - 4XX: Validation errors
//   - 5XX: Backend and internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIndex indicates errors about the state of the vault index.
	CategoryIndex Category = "INDEX"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryBackend indicates embedding, storage and unexpected internal errors.
	CategoryBackend Category = "BACKEND"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates the calling operation must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates the current call failed.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Index state errors (200-299)
	ErrCodeCollectionNotFound = "ERR_201_COLLECTION_NOT_FOUND"
	ErrCodeNoDocuments        = "ERR_202_NO_DOCUMENTS"
	ErrCodePartialLoad        = "ERR_203_PARTIAL_LOAD"
	ErrCodeIndexLocked        = "ERR_204_INDEX_LOCKED"

	// Validation errors (400-499)
	ErrCodeInvalidInput      = "ERR_401_INVALID_INPUT"
	ErrCodeDimensionMismatch = "ERR_402_DIMENSION_MISMATCH"

	// Backend errors (500-599)
	ErrCodeBackend  = "ERR_501_BACKEND_FAILURE"
	ErrCodeInternal = "ERR_502_INTERNAL"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryBackend
	}

	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIndex
	case '4':
		return CategoryValidation
	default:
		return CategoryBackend
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeConfigNotFound, ErrCodeConfigInvalid:
		return SeverityFatal
	case ErrCodePartialLoad:
		return SeverityWarning
	default:
		return SeverityError
	}
}
