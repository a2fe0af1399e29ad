// In file: internal/llm/anthropic_client.go
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

const (
	// DefaultAnthropicURL is the Messages API root.
	DefaultAnthropicURL = "https://api.anthropic.com/v1"
	anthropicVersion    = "2023-06-01"
)

// --- API Data Structures ---

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type anthropicRequest struct {
	Model         string             `json:"model"`
	Messages      []anthropicMessage `json:"messages"`
	System        string             `json:"system,omitempty"`
	MaxTokens     int                `json:"max_tokens"`
	Temperature   *float32           `json:"temperature,omitempty"`
	StopSequences []string           `json:"stop_sequences,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type anthropicResponse struct {
	Content []anthropicContentBlock `json:"content"`
	Usage   anthropicUsage          `json:"usage"`
}

// --- Main Client ---

// AnthropicClient talks to the Anthropic Messages API.
type AnthropicClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

var _ LLMClient = (*AnthropicClient)(nil)

// NewAnthropicClient creates a client for the Messages API at baseURL.
// An empty baseURL selects the public endpoint.
func NewAnthropicClient(apiKey, baseURL string) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, goerr.New("anthropic API key cannot be empty")
	}
	if baseURL == "" {
		baseURL = DefaultAnthropicURL
	}
	return &AnthropicClient{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}, nil
}

func (c *AnthropicClient) Generate(ctx context.Context, messages []Message, config *GenerationConfig) (*GenerationResult, error) {
	payload, err := c.buildRequestPayload(messages, config)
	if err != nil {
		return nil, err
	}
	respBody, err := c.doRequest(ctx, payload)
	if err != nil {
		return nil, err
	}
	return parseAnthropicResponse(respBody)
}

// --- Helper Functions ---

func (c *AnthropicClient) buildRequestPayload(messages []Message, config *GenerationConfig) (*bytes.Buffer, error) {
	if config == nil {
		config = &GenerationConfig{}
	}
	system, turns := toAnthropicMessages(messages)

	req := anthropicRequest{
		Model:         config.Model,
		Messages:      turns,
		System:        system,
		MaxTokens:     defaultMaxTokens,
		Temperature:   config.Temperature,
		StopSequences: anthropicStopSequences(config.Stop),
	}
	if config.MaxTokens > 0 {
		req.MaxTokens = config.MaxTokens
	}

	payloadBytes, err := json.Marshal(req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal anthropic request")
	}
	return bytes.NewBuffer(payloadBytes), nil
}

// toAnthropicMessages lifts system messages into the separate system field.
func toAnthropicMessages(messages []Message) (string, []anthropicMessage) {
	var system []string
	turns := make([]anthropicMessage, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == RoleSystem {
			system = append(system, msg.Content)
			continue
		}
		turns = append(turns, anthropicMessage{Role: string(msg.Role), Content: msg.Content})
	}
	return strings.Join(system, "\n\n"), turns
}

// anthropicStopSequences drops sequences that are only whitespace, which the
// API rejects. "\nObservation:" is kept as is.
func anthropicStopSequences(stop []string) []string {
	var out []string
	for _, s := range stop {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

func parseAnthropicResponse(body []byte) (*GenerationResult, error) {
	var anthropicResp anthropicResponse
	if err := json.Unmarshal(body, &anthropicResp); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal anthropic response", goerr.T(ErrTagProvider))
	}
	if len(anthropicResp.Content) == 0 {
		return nil, goerr.New("no content returned from Anthropic", goerr.T(ErrTagProvider))
	}

	var contentBuilder strings.Builder
	for _, block := range anthropicResp.Content {
		if block.Type == "text" {
			contentBuilder.WriteString(block.Text)
		}
	}

	return &GenerationResult{
		Content: contentBuilder.String(),
		Usage: Usage{
			PromptTokens:     anthropicResp.Usage.InputTokens,
			CompletionTokens: anthropicResp.Usage.OutputTokens,
			TotalTokens:      anthropicResp.Usage.InputTokens + anthropicResp.Usage.OutputTokens,
		},
	}, nil
}

// doRequest sends one request. Like the other clients it never retries.
func (c *AnthropicClient) doRequest(ctx context.Context, payload *bytes.Buffer) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", payload)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create anthropic request")
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	req.Header.Set("content-type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "anthropic request failed", goerr.T(ErrTagProvider))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read anthropic response", goerr.T(ErrTagProvider))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, goerr.New("anthropic API error",
			goerr.V("status", resp.StatusCode),
			goerr.V("body", string(body)),
			goerr.T(ErrTagProvider))
	}
	return body, nil
}
