// In file: internal/tools/executor.go
package tools

import "context"

// ToolExecutor defines the standard interface for any capability that can be
// executed by the reasoning agent.
type ToolExecutor interface {
	// Definition returns the tool's name and description, which are rendered
	// into the agent prompt so the model knows the tool exists.
	Definition() Tool

	// Execute runs the tool with the raw action input written by the model.
	// The returned string is fed back to the model as the observation.
	Execute(ctx context.Context, input string) (string, error)
}
