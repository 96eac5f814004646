package errors

// Convenience constructors for common error patterns.

// ValidationError creates a new validation error (400 Bad Request).
func ValidationError(message string) *FlowError {
	return New(CategoryValidation, SeverityWarning, message)
}

// AuthError creates a new authentication error (401 Unauthorized).
func AuthError(message string) *FlowError {
	return New(CategoryAuth, SeverityWarning, message)
}

// NotFoundError creates a new not-found error (404).
func NotFoundError(message string) *FlowError {
	return New(CategoryNotFound, SeverityWarning, message)
}

// StorageError wraps a persistence failure (500, logged).
func StorageError(message string, cause error) *FlowError {
	return Wrap(cause, CategoryStorage, SeverityError, message)
}

// LaunchError wraps a worker launch failure. Never surfaced over HTTP; it is
// recorded on the job as a launch_failed event.
func LaunchError(message string, cause error) *FlowError {
	return Wrap(cause, CategoryLaunch, SeverityError, message)
}

// NotifyError wraps a downstream fanout failure. Always swallowed and logged.
func NotifyError(message string, cause error) *FlowError {
	return Wrap(cause, CategoryNotify, SeverityWarning, message)
}

// ConfigRequired reports a missing required configuration key.
func ConfigRequired(key string) *FlowError {
	return New(CategoryConfig, SeverityFatal, "required configuration missing").
		WithContext("key", key)
}

// InternalError wraps an unexpected failure.
func InternalError(message string, cause error) *FlowError {
	return Wrap(cause, CategoryInternal, SeverityError, message)
}
