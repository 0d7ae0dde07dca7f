package errors

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a failure class. Codes are stable so callers and
// tests can branch on them instead of on message text.
type ErrorCode string

const (
	ErrUnknown       ErrorCode = "UNKNOWN"
	ErrInternal      ErrorCode = "INTERNAL"
	ErrInvalidInput  ErrorCode = "INVALID_INPUT"
	ErrNotFound      ErrorCode = "NOT_FOUND"
	ErrAlreadyExists ErrorCode = "ALREADY_EXISTS"
	ErrFileAccess    ErrorCode = "FILE_ACCESS"

	// Configuration
	ErrConfigLoad  ErrorCode = "CONFIG_LOAD"
	ErrConfigParse ErrorCode = "CONFIG_PARSE"
	ErrConfigValid ErrorCode = "CONFIG_INVALID"

	// Targets and adapters
	ErrTargetNotFound ErrorCode = "TARGET_NOT_FOUND"
	ErrAdapterFailed  ErrorCode = "ADAPTER_FAILED"

	// Sync gates
	ErrSecretsDetected ErrorCode = "SECRETS_DETECTED"
	ErrLockHeld        ErrorCode = "LOCK_HELD"
	ErrLockAcquire     ErrorCode = "LOCK_ACQUIRE"

	// Backups
	ErrBackupRoot      ErrorCode = "BACKUP_ROOT"
	ErrBackupCreate    ErrorCode = "BACKUP_CREATE"
	ErrRollbackPartial ErrorCode = "ROLLBACK_PARTIAL"

	// State file
	ErrStateLoad ErrorCode = "STATE_LOAD"
	ErrStateSave ErrorCode = "STATE_SAVE"
)

// HarnessError carries a code, a message, optional structured details and
// the error it wraps. Two HarnessErrors match under errors.Is when their
// codes match.
type HarnessError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

func build(code ErrorCode, msg string, wrapped error) *HarnessError {
	return &HarnessError{Code: code, Message: msg, Details: map[string]interface{}{}, Wrapped: wrapped}
}

func New(code ErrorCode, message string) *HarnessError {
	return build(code, message, nil)
}

func Newf(code ErrorCode, format string, args ...interface{}) *HarnessError {
	return build(code, fmt.Sprintf(format, args...), nil)
}

// Wrap returns nil for a nil err so it can wrap a call's result directly.
func Wrap(err error, code ErrorCode, message string) *HarnessError {
	if err == nil {
		return nil
	}
	return build(code, message, err)
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *HarnessError {
	if err == nil {
		return nil
	}
	return build(code, fmt.Sprintf(format, args...), err)
}

func (e *HarnessError) Error() string {
	if e.Wrapped == nil {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
}

func (e *HarnessError) Unwrap() error { return e.Wrapped }

func (e *HarnessError) Is(target error) bool {
	var other *HarnessError
	return errors.As(target, &other) && other.Code == e.Code
}

// WithDetail records key=value and returns e for chaining.
func (e *HarnessError) WithDetail(key string, value interface{}) *HarnessError {
	return e.WithDetails(map[string]interface{}{key: value})
}

func (e *HarnessError) WithDetails(details map[string]interface{}) *HarnessError {
	if e.Details == nil {
		e.Details = make(map[string]interface{}, len(details))
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// find returns the outermost HarnessError in err's chain.
func find(err error) (*HarnessError, bool) {
	var he *HarnessError
	ok := errors.As(err, &he)
	return he, ok
}

// IsErrorCode reports whether the outermost HarnessError in err's chain
// has code.
func IsErrorCode(err error, code ErrorCode) bool {
	he, ok := find(err)
	return ok && he.Code == code
}

// GetErrorCode returns ErrUnknown for errors that are not HarnessErrors.
func GetErrorCode(err error) ErrorCode {
	if he, ok := find(err); ok {
		return he.Code
	}
	return ErrUnknown
}

func GetErrorDetails(err error) map[string]interface{} {
	if he, ok := find(err); ok {
		return he.Details
	}
	return nil
}
