// Package tool implements the capability subsystem: named, schema validated
// operations (network and host probes) that agents may invoke while forming
// a reply. Capabilities are allow-listed per agent through a Registry and
// handed to agents as an immutable Toolset.
package tool

import (
	"context"
	"errors"
	"fmt"
)

// Error codes carried by *ToolError.
const (
	CodeValidation  = "VALIDATION_ERROR"
	CodeExecution   = "EXECUTION_ERROR"
	CodeNotAllowed  = "NOT_ALLOWED"
	CodeRateLimited = "RATE_LIMITED"
	CodePanic       = "PANIC"
	CodeTimeout     = "TIMEOUT"
)

// Tool defines a capability an agent can invoke during its reply.
//
// Implementations should:
//   - Provide a snake_case name and a description written for the model
//   - Define a JSON schema for the accepted arguments
//   - Report probe failures through sentinel results, not errors
//   - Be safe for concurrent use
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description shown to the model.
	Description() string

	// Parameters returns a JSON schema describing the expected input format.
	Parameters() map[string]any

	// Call executes the tool with already decoded arguments.
	Call(ctx context.Context, args map[string]any) (any, error)
}

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}

// ErrorCode extracts the code of a *ToolError in err's chain, or "".
func ErrorCode(err error) string {
	var te *ToolError
	if errors.As(err, &te) {
		return te.Code
	}
	return ""
}
