package errors

import (
	"context"
	"fmt"
)

// Convenience functions for common error patterns

// Input errors

func BadInput(field, reason string) *AgentError {
	return New(CategoryValidation, SeverityFatal, "invalid input").
		WithContext("field", field).
		WithContext("reason", reason)
}

func MalformedURL(raw string, cause error) *AgentError {
	return Wrap(cause, CategoryValidation, SeverityFatal, "malformed repository URL").
		WithContext("url", raw)
}

// Requirement errors

func RequirementNotMet(requirement, actual string) *AgentError {
	return New(CategoryRequirement, SeverityFatal, "minimum requirement not met").
		WithContext("requirement", requirement).
		WithContext("actual", actual)
}

// Git errors

func GitExitError(operation string, exitCode int) *AgentError {
	return New(CategoryGit, SeverityFatal, fmt.Sprintf("git %s exited with code %d", operation, exitCode)).
		WithContext("operation", operation).
		WithContext("exit_code", exitCode)
}

func GitStartError(operation string, cause error) *AgentError {
	return Wrap(cause, CategoryGit, SeverityFatal, "git could not be started").
		WithContext("operation", operation)
}

func AuthSchemeUnsupported(scheme string) *AgentError {
	return New(CategoryAuth, SeverityWarning, "authentication scheme not supported").
		WithContext("scheme", scheme)
}

// Filesystem errors

func FileSystemError(operation string, cause error) *AgentError {
	return Wrap(cause, CategoryFileSystem, SeverityFatal, "filesystem operation failed").
		WithContext("operation", operation)
}

// Cancellation

func Canceled(cause error) *AgentError {
	if cause == nil {
		cause = context.Canceled
	}
	return Wrap(cause, CategoryCanceled, SeverityError, "operation canceled")
}

// Dispatch errors

func SessionError(cause error) *AgentError {
	return Wrap(cause, CategoryDispatch, SeverityFatal, "dispatcher session failed")
}

func DispatchTransient(operation string, cause error) *AgentError {
	return WrapRetryable(cause, CategoryDispatch, SeverityWarning, "transient dispatcher failure").
		WithContext("operation", operation)
}
