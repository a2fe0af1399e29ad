// In file: internal/llm/constants.go
package llm

import "time"

// This file centralizes constants shared across the clients in the llm package.
const (
	defaultTimeout   = 60 * time.Second
	defaultMaxTokens = 1024

	// DefaultOpenRouterURL is the OpenAI-compatible endpoint used unless configured otherwise.
	DefaultOpenRouterURL = "https://openrouter.ai/api/v1"
)
