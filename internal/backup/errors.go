package backup

import (
	"errors"
	"fmt"
	"strings"
)

// BackupError represents errors that occur during backup operations
type BackupError struct {
	Type    BackupErrorType        `json:"type"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *BackupError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause error
func (e *BackupError) Unwrap() error {
	return e.Cause
}

// BackupErrorType partitions failures by where in the pipeline they occur.
type BackupErrorType string

const (
	// BackupErrorTypeSourceNotFound - the declared path or connection does
	// not exist or is unreachable.
	BackupErrorTypeSourceNotFound BackupErrorType = "SOURCE_NOT_FOUND"
	// BackupErrorTypeRead - an individual file could not be read. Non-fatal,
	// the file is skipped.
	BackupErrorTypeRead BackupErrorType = "READ_FAILURE"
	// BackupErrorTypeWrite - the destination stream could not be opened or
	// written. Fatal to the target.
	BackupErrorTypeWrite BackupErrorType = "WRITE_FAILURE"
	// BackupErrorTypeUnsupportedKind - the configuration names a kind with
	// no registered adapter.
	BackupErrorTypeUnsupportedKind BackupErrorType = "UNSUPPORTED_KIND"
	// BackupErrorTypeCleanup - the retention pass could not stat or delete.
	// Logged, never propagated.
	BackupErrorTypeCleanup BackupErrorType = "CLEANUP_FAILURE"
	// BackupErrorTypeDatabase - a database adapter failed while dumping.
	BackupErrorTypeDatabase BackupErrorType = "DATABASE_ERROR"
)

// NewBackupError creates a new BackupError
func NewBackupError(errorType BackupErrorType, message string, cause error) *BackupError {
	return &BackupError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// WithContext adds context information to the error
func (e *BackupError) WithContext(key string, value interface{}) *BackupError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Common error constructors
func NewSourceNotFoundError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeSourceNotFound, message, cause)
}

func NewReadError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeRead, message, cause)
}

func NewWriteError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeWrite, message, cause)
}

func NewUnsupportedKindError(kind TargetKind) *BackupError {
	return NewBackupError(BackupErrorTypeUnsupportedKind, fmt.Sprintf("no adapter registered for kind %q", kind), nil)
}

func NewCleanupError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeCleanup, message, cause)
}

func NewDatabaseError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeDatabase, message, cause)
}

// IsErrorType reports whether err (or anything it wraps) is a BackupError of
// the given type.
func IsErrorType(err error, errorType BackupErrorType) bool {
	var backupErr *BackupError
	if errors.As(err, &backupErr) {
		return backupErr.Type == errorType
	}
	return false
}

// ValidationError reports one problem found while validating a Config.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError for a config field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ValidationErrors collects every problem found in one validation pass so
// the caller can report them all at once.
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d configuration errors:", len(e))
	for _, err := range e {
		b.WriteString("\n  - ")
		b.WriteString(err.Error())
	}
	return b.String()
}
