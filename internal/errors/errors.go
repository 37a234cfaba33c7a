package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// InvalidWorkspace indicates the workspace or scratch directories are unusable at startup
	InvalidWorkspace ErrorCode = "INVALID_WORKSPACE"
	// InvalidArgument indicates a malformed request, such as bad ranges or conflicting edits
	InvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ResourceFailure indicates a filesystem fault while preparing a rebuild
	ResourceFailure ErrorCode = "RESOURCE_FAILURE"
	// IndexMissing indicates no persisted snapshot exists yet
	IndexMissing ErrorCode = "INDEX_MISSING"
	// WorkspaceLocked indicates another process holds the workspace lock
	WorkspaceLocked ErrorCode = "WORKSPACE_LOCKED"
	// WorkspaceClosed indicates a request arrived after shutdown
	WorkspaceClosed ErrorCode = "WORKSPACE_CLOSED"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// OpenDocs suggests opening documentation
	OpenDocs FixActionType = "open-docs"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
	URL         string        `json:"url,omitempty"`
}

// LangidxError represents an error with a stable code, message, and suggestions
type LangidxError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// New creates a new LangidxError
func New(code ErrorCode, message string, cause error, suggestedFixes []FixAction) *LangidxError {
	return &LangidxError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: suggestedFixes,
	}
}

// Newf creates a LangidxError without a cause from a format string
func Newf(code ErrorCode, format string, args ...interface{}) *LangidxError {
	return New(code, fmt.Sprintf(format, args...), nil, nil)
}

// Error implements the error interface
func (e *LangidxError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *LangidxError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *LangidxError) WithDetails(details interface{}) *LangidxError {
	e.Details = details
	return e
}

// CodeOf returns the code of the first LangidxError in err's chain, or "" if there is none.
func CodeOf(err error) ErrorCode {
	var le *LangidxError
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}

// IsCode reports whether err carries the given code anywhere in its chain.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	IndexMissing: {
		{
			Type:        RunCommand,
			Command:     "langidx index",
			Safe:        true,
			Description: "Compile the workspace and persist a snapshot",
		},
	},
	WorkspaceLocked: {
		{
			Type:        RunCommand,
			Command:     "langidx status",
			Safe:        true,
			Description: "Check which process holds the workspace lock",
		},
	},
	ResourceFailure: {
		{
			Type:        RunCommand,
			Command:     "ls -ld .langidx/target",
			Safe:        true,
			Description: "Check permissions on the scratch directory",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
