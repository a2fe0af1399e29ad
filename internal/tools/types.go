// In file: internal/tools/types.go

// Package tools defines the capabilities the reasoning agent can invoke.
// A capability is described to the model by name and description only: the
// agent speaks a plain-text Action / Action Input protocol, so the input is
// a single free-text string rather than a JSON argument object.
package tools

// Tool describes a capability to the language model.
type Tool struct {
	// Name is what the model writes after "Action:" (e.g., "get_weather").
	Name string `json:"name"`
	// Description tells the model when to use the tool and what input it expects.
	Description string `json:"description"`
}

// NewTool is a small helper that keeps tool definitions uniform.
func NewTool(name, description string) Tool {
	return Tool{
		Name:        name,
		Description: description,
	}
}
