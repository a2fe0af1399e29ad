// In file: internal/tools/manager.go
package tools

import (
	"context"
	"sort"

	"github.com/m-mizutani/goerr/v2"
)

// ErrToolNotFound is returned by Execute when no tool is registered under the name.
var ErrToolNotFound = goerr.New("tool not found")

// ToolManager holds a registry of all available tools.
type ToolManager struct {
	tools map[string]ToolExecutor
}

func NewToolManager() *ToolManager {
	return &ToolManager{
		tools: make(map[string]ToolExecutor),
	}
}

// Register adds a new tool to the manager's registry.
func (tm *ToolManager) Register(tool ToolExecutor) {
	tm.tools[tool.Definition().Name] = tool
}

// GetDefinitions returns all registered tool definitions ordered by name, so
// the rendered prompt is stable between requests.
func (tm *ToolManager) GetDefinitions() []Tool {
	defs := make([]Tool, 0, len(tm.tools))
	for _, tool := range tm.tools {
		defs = append(defs, tool.Definition())
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Names returns the registered tool names ordered alphabetically.
func (tm *ToolManager) Names() []string {
	defs := tm.GetDefinitions()
	names := make([]string, len(defs))
	for i, def := range defs {
		names[i] = def.Name
	}
	return names
}

// Execute runs a tool by name with the given input.
func (tm *ToolManager) Execute(ctx context.Context, name, input string) (string, error) {
	tool, ok := tm.tools[name]
	if !ok {
		return "", goerr.Wrap(ErrToolNotFound, "cannot execute tool", goerr.V("name", name))
	}
	return tool.Execute(ctx, input)
}

// ToolCount returns the number of registered tools.
func (tm *ToolManager) ToolCount() int {
	return len(tm.tools)
}
