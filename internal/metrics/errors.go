package metrics

import "codeberg.org/mutker/cpufreqctl/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrInvalidDBPath = errors.ErrorCode("metrics_invalid_db_path")
	ErrDisabled      = errors.ErrorCode("metrics_disabled")

	// Schema Errors
	ErrSchemaInitFailed       = errors.ErrorCode("metrics_schema_init_failed")
	ErrSchemaValidationFailed = errors.ErrorCode("metrics_schema_validation_failed")
	ErrSchemaMigrationFailed  = errors.ErrorCode("metrics_schema_migration_failed")
	ErrTransactionFailed      = errors.ErrorCode("metrics_transaction_failed")

	// Storage Errors
	ErrStorageQuery = errors.ErrorCode("metrics_storage_query_failed")
	ErrStorageInit  = errors.ErrInitFailed
	ErrStorageClose = errors.ErrShutdownFailed

	// Collection Errors
	ErrCollection     = errors.ErrorCode("metrics_collection_failed")
	ErrInvalidSample  = errors.ErrorCode("metrics_invalid_sample")
	ErrOperationAbort = errors.ErrTimeout
)
