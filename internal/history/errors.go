package history

import "codeberg.org/mutker/metrics-exporter/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrorCode("history_invalid_config")
	ErrInvalidDBPath = errors.ErrorCode("history_invalid_db_path")

	// Storage Errors
	ErrStorageAccess          = errors.ErrorCode("history_storage_access_failed")
	ErrStorageInit            = errors.ErrorCode("history_storage_init_failed")
	ErrStorageClose           = errors.ErrorCode("history_storage_close_failed")
	ErrSchemaInitFailed       = errors.ErrorCode("history_schema_init_failed")
	ErrSchemaValidationFailed = errors.ErrorCode("history_schema_validation_failed")
	ErrSchemaMigrationFailed  = errors.ErrorCode("history_schema_migration_failed")

	// Operation Errors
	ErrInvalidRun       = errors.ErrorCode("history_invalid_run")
	ErrOperationTimeout = errors.ErrorCode("history_operation_timeout")
)
