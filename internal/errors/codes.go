// Package errors provides structured error handling for Riptide.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Storage errors (partitions, indexes, disk)
//   - 3XX: Network errors
//   - 4XX: Validation errors
//   - 5XX: Internal and search errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryStorage indicates partition, index, and disk errors.
	CategoryStorage Category = "STORAGE"
	// CategoryNetwork indicates network-related errors.
	CategoryNetwork Category = "NETWORK"
	// CategoryValidation indicates request validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
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
	// SeverityInfo indicates informational only.
	SeverityInfo Severity = "INFO"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound   = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid    = "ERR_102_CONFIG_INVALID"
	ErrCodeConfigPermission = "ERR_103_CONFIG_PERMISSION"

	// Storage errors (200-299)
	ErrCodeTenantNotFound  = "ERR_201_TENANT_NOT_FOUND"
	ErrCodePartitionLocked = "ERR_202_PARTITION_LOCKED"
	ErrCodeDiskFull        = "ERR_203_DISK_FULL"
	ErrCodeCorruptIndex    = "ERR_204_CORRUPT_INDEX"
	ErrCodeIndexClosed     = "ERR_205_INDEX_CLOSED"
	ErrCodeEmptyIndex      = "ERR_206_EMPTY_INDEX"

	// Network errors (300-399)
	ErrCodeNetworkTimeout   = "ERR_301_NETWORK_TIMEOUT"
	ErrCodeSourceUnreachable = "ERR_302_SOURCE_UNREACHABLE"
	ErrCodeEmbedderOffline  = "ERR_303_EMBEDDER_OFFLINE"

	// Validation errors (400-499)
	ErrCodeInvalidInput      = "ERR_401_INVALID_INPUT"
	ErrCodeDimensionMismatch = "ERR_402_DIMENSION_MISMATCH"
	ErrCodeInvalidFilter     = "ERR_403_INVALID_FILTER"
	ErrCodeQueryEmpty        = "ERR_404_QUERY_EMPTY"
	ErrCodeTopKInvalid       = "ERR_405_TOPK_INVALID"
	ErrCodeTenantInvalid     = "ERR_406_TENANT_INVALID"
	ErrCodeQueryTooLong      = "ERR_407_QUERY_TOO_LONG"

	// Internal and search errors (500-599)
	ErrCodeInternal          = "ERR_501_INTERNAL"
	ErrCodeSourceFailed      = "ERR_502_SOURCE_FAILED"
	ErrCodeEngineUnavailable = "ERR_503_ENGINE_UNAVAILABLE"
	ErrCodeSourceTimeout     = "ERR_504_SOURCE_TIMEOUT"
	ErrCodeEmbeddingFailed   = "ERR_505_EMBEDDING_FAILED"
	ErrCodeIngestFailed      = "ERR_506_INGEST_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract numeric portion (e.g., "201" from "ERR_201_TENANT_NOT_FOUND")
	numStr := code[4:7]
	if len(numStr) < 1 {
		return CategoryInternal
	}

	switch numStr[0] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryStorage
	case '3':
		return CategoryNetwork
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	// Fatal errors
	switch code {
	case ErrCodeCorruptIndex, ErrCodeDiskFull:
		return SeverityFatal
	}

	// Retryable errors get warning severity
	if isRetryableCode(code) {
		return SeverityWarning
	}

	// Default to error severity
	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
// Source timeouts are retryable: the next request may land inside the deadline.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeNetworkTimeout, ErrCodeSourceUnreachable, ErrCodeEmbedderOffline, ErrCodeSourceTimeout:
		return true
	default:
		return false
	}
}
