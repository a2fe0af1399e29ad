// In file: internal/llm/client.go
package llm

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
)

// =================================================================================
// Core Data Structures
// =================================================================================

// Role represents the originator of a message in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ErrTagProvider marks failures talking to the hosted completion model.
var ErrTagProvider = goerr.NewTag("llm_provider")

// Message represents a single message sent to the model.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Usage reports token accounting for one completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add accumulates another call's usage into u.
func (u *Usage) Add(other Usage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}

// GenerationConfig holds the parameters that control one completion.
type GenerationConfig struct {
	// The model to use (e.g., "mistralai/mistral-7b-instruct", "gemini-1.5-flash").
	Model string
	// Controls randomness. A nil pointer leaves the provider default in place.
	Temperature *float32
	// The maximum number of tokens to generate in the response.
	MaxTokens int
	// Stop sequences end generation as soon as the model emits one of them.
	// The agent uses this to keep the model from inventing its own observations.
	Stop []string
}

// GenerationResult holds the complete output from an LLM call.
type GenerationResult struct {
	Content string
	Usage   Usage
}

// =================================================================================
// LLM Client Interface
// =================================================================================

// LLMClient is the interface every completion backend implements.
type LLMClient interface {
	// Generate performs a blocking completion request over the given messages.
	Generate(ctx context.Context, messages []Message, config *GenerationConfig) (*GenerationResult, error)
}
