package domain

import (
	"errors"
	"fmt"

	"github.com/kailas-cloud/ccdarank/internal/domain/document"
)

var (
	// ErrParse signals a document that could not be parsed.
	ErrParse = errors.New("parse error")
	// ErrResourceLimit signals a document exceeding a size or time bound.
	ErrResourceLimit = errors.New("resource limit exceeded")
	// ErrConfig signals an invalid configuration value.
	ErrConfig = errors.New("invalid configuration")
	// ErrFatalConfig signals a run-level condition that aborts before any batch work.
	ErrFatalConfig = errors.New("fatal configuration error")
	// ErrCheckpointCorrupt signals a checkpoint that failed integrity validation.
	ErrCheckpointCorrupt = errors.New("checkpoint corrupt")
	// ErrNoResults signals that no ranked result set is available.
	ErrNoResults = errors.New("no results available")
	// ErrResultNotFound signals a document absent from the ranked result set.
	ErrResultNotFound = errors.New("result not found")
	// ErrInvalidRequest signals bad selection parameters.
	ErrInvalidRequest = errors.New("invalid request")
)

// ParseError reports one unreadable document. Recovered by callers: the document scores 0.
type ParseError struct {
	Handle document.Handle
	Cause  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrParse.Error(), e.Handle.ID, e.Cause)
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *ParseError) Unwrap() []error { return []error{ErrParse, e.Cause} }

// NewParseError creates a ParseError.
func NewParseError(h document.Handle, cause error) error {
	return &ParseError{Handle: h, Cause: cause}
}

// ResourceLimitError reports a document over the size limit or the per-file timeout.
type ResourceLimitError struct {
	Handle document.Handle
	Limit  string
	Cause  error
}

func (e *ResourceLimitError) Error() string {
	msg := fmt.Sprintf("%s: %s: %s", ErrResourceLimit.Error(), e.Handle.ID, e.Limit)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *ResourceLimitError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrResourceLimit}
	}
	return []error{ErrResourceLimit, e.Cause}
}

// NewResourceLimitError creates a ResourceLimitError.
func NewResourceLimitError(h document.Handle, limit string, cause error) error {
	return &ResourceLimitError{Handle: h, Limit: limit, Cause: cause}
}

// ConfigError reports an out-of-range configuration value.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrConfig.Error(), e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrConfig }

// NewConfigError creates a ConfigError.
func NewConfigError(field, reason string) error {
	return &ConfigError{Field: field, Reason: reason}
}

// FatalConfigError aborts a run: unwritable checkpoint directory, corrupt or stale weight table.
type FatalConfigError struct {
	Reason string
	Cause  error
}

func (e *FatalConfigError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", ErrFatalConfig.Error(), e.Reason)
	}
	return fmt.Sprintf("%s: %s: %v", ErrFatalConfig.Error(), e.Reason, e.Cause)
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *FatalConfigError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrFatalConfig}
	}
	return []error{ErrFatalConfig, e.Cause}
}

// NewFatalConfigError creates a FatalConfigError.
func NewFatalConfigError(reason string, cause error) error {
	return &FatalConfigError{Reason: reason, Cause: cause}
}

// CheckpointCorruptionError reports a checkpoint file that must be discarded and recomputed.
type CheckpointCorruptionError struct {
	Path   string
	Reason string
}

func (e *CheckpointCorruptionError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrCheckpointCorrupt.Error(), e.Path, e.Reason)
}

func (e *CheckpointCorruptionError) Unwrap() error { return ErrCheckpointCorrupt }

// NewCheckpointCorruption creates a CheckpointCorruptionError.
func NewCheckpointCorruption(path, reason string) error {
	return &CheckpointCorruptionError{Path: path, Reason: reason}
}

// FailureReason maps a per-document error to the short reason recorded in score records.
func FailureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrResourceLimit):
		return "resource_limit"
	case errors.Is(err, ErrParse):
		return "parse"
	default:
		return "unknown"
	}
}

// IsDocumentError reports whether err is recoverable at document granularity.
func IsDocumentError(err error) bool {
	return errors.Is(err, ErrParse) || errors.Is(err, ErrResourceLimit)
}
