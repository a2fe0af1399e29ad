// In file: internal/llm/openai_client.go
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// openAIRequest defines the top-level structure of a chat completions call.
type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature *float32        `json:"temperature,omitempty"`
	Stop        []string        `json:"stop,omitempty"`
}

// openAIMessage represents a single message in a conversation.
type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// openAIResponse is the structure of a successful response from the API.
type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
}

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint.
// The default base URL is OpenRouter, which fronts many hosted models.
type OpenAIClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Statically verify that OpenAIClient implements the LLMClient interface.
var _ LLMClient = (*OpenAIClient)(nil)

// NewOpenAIClient creates a client for the OpenAI-compatible API at baseURL.
// An empty baseURL selects OpenRouter.
func NewOpenAIClient(apiKey, baseURL string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, goerr.New("completion API key cannot be empty")
	}
	if baseURL == "" {
		baseURL = DefaultOpenRouterURL
	}
	return &OpenAIClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}, nil
}

// Generate performs a single, blocking completion request. It does not retry:
// the agent loop is the only place where work is repeated.
func (c *OpenAIClient) Generate(ctx context.Context, messages []Message, config *GenerationConfig) (*GenerationResult, error) {
	payload, err := c.buildRequestPayload(messages, config)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", payload)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create completion request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-Title", "Weather Assistant")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "completion request failed", goerr.T(ErrTagProvider))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read completion response", goerr.T(ErrTagProvider))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, goerr.New("completion API error",
			goerr.V("status", resp.StatusCode),
			goerr.V("body", string(body)),
			goerr.T(ErrTagProvider))
	}

	return parseOpenAIResponse(body)
}

// buildRequestPayload constructs the JSON body for the API call.
func (c *OpenAIClient) buildRequestPayload(messages []Message, config *GenerationConfig) (*bytes.Buffer, error) {
	if config == nil {
		config = &GenerationConfig{}
	}

	req := openAIRequest{
		Model:       config.Model,
		Messages:    toOpenAIMessages(messages),
		Temperature: config.Temperature,
		Stop:        config.Stop,
		MaxTokens:   defaultMaxTokens,
	}
	if config.MaxTokens > 0 {
		req.MaxTokens = config.MaxTokens
	}

	payloadBytes, err := json.Marshal(req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal completion request")
	}
	return bytes.NewBuffer(payloadBytes), nil
}

func toOpenAIMessages(messages []Message) []openAIMessage {
	out := make([]openAIMessage, 0, len(messages))
	for _, msg := range messages {
		out = append(out, openAIMessage{Role: string(msg.Role), Content: msg.Content})
	}
	return out
}

// parseOpenAIResponse converts the API response to our internal GenerationResult.
func parseOpenAIResponse(body []byte) (*GenerationResult, error) {
	var openAIResp openAIResponse
	if err := json.Unmarshal(body, &openAIResp); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal completion response", goerr.T(ErrTagProvider))
	}
	if len(openAIResp.Choices) == 0 {
		return nil, goerr.New("no choices returned from completion API", goerr.T(ErrTagProvider))
	}

	return &GenerationResult{
		Content: openAIResp.Choices[0].Message.Content,
		Usage:   openAIResp.Usage,
	}, nil
}
