// Package errors provides the structured error vocabulary of shardsearch.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Shard storage and registry errors
//   - 4XX: Query and input validation errors
//   - 5XX: Engine and internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryStorage indicates shard storage and registry errors.
	CategoryStorage Category = "STORAGE"
	// CategoryValidation indicates query and input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates engine and unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigInvalid  = "ERR_101_CONFIG_INVALID"
	ErrCodeConfigNotFound = "ERR_102_CONFIG_NOT_FOUND"

	// Storage errors (200-299)
	ErrCodeNothingToSearch = "ERR_201_NOTHING_TO_SEARCH"
	ErrCodeFolderMissing   = "ERR_202_FOLDER_MISSING"
	ErrCodeCorruptShard    = "ERR_203_CORRUPT_SHARD"
	ErrCodeIOFault         = "ERR_204_IO_FAULT"
	ErrCodeRegistryLocked  = "ERR_205_REGISTRY_LOCKED"

	// Validation errors (400-499)
	ErrCodeInvalidQuery = "ERR_401_INVALID_QUERY"
	ErrCodeInvalidInput = "ERR_402_INVALID_INPUT"

	// Internal errors (500-599)
	ErrCodeInternal          = "ERR_501_INTERNAL"
	ErrCodeResourceExhausted = "ERR_502_RESOURCE_EXHAUSTED"
	ErrCodeSearchFailed      = "ERR_503_SEARCH_FAILED"
	ErrCodeShutDown          = "ERR_504_SHUT_DOWN"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryStorage
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeShutDown:
		return SeverityFatal
	case ErrCodeCorruptShard:
		// A corrupted shard is reported but the remaining shards stay searchable.
		return SeverityWarning
	}
	if isRetryableCode(code) {
		return SeverityWarning
	}
	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeRegistryLocked, ErrCodeIOFault:
		return true
	default:
		return false
	}
}
