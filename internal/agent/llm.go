// Package agent runs a tool-calling conversation between an LLM and the
// marketplace tools. Both provider adapters speak plain JSON over net/http.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lukman83/mercari-shopper/config"
	"github.com/lukman83/mercari-shopper/internal/httputil"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"

	DefaultMaxSteps = 3

	temperature = 0.3
	llmTimeout  = 120 * time.Second
)

// ErrNotConfigured is returned by NewLLM when the selected provider has no API key.
var ErrNotConfigured = errors.New("llm provider is not configured")

// Message is one conversation turn in provider-neutral form. Tool turns carry
// the id of the call they answer.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Tool describes a callable tool with a JSON schema for its arguments.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Dispatcher executes a tool call and returns the JSON text handed back to the model.
type Dispatcher func(ctx context.Context, name string, args json.RawMessage) string

// LLM drives the request → tool calls → tool results loop for one provider.
type LLM interface {
	Name() string
	// RunLoop appends assistant and tool turns to conv until the model answers
	// without tool calls or maxSteps round trips have been made.
	RunLoop(ctx context.Context, conv []Message, tools []Tool, dispatch Dispatcher, maxSteps int) ([]Message, error)
}

// NewLLM returns the adapter selected by cfg.LLMProvider.
func NewLLM(cfg *config.Config) (LLM, error) {
	client := httputil.NewHTTPClient(nil, llmTimeout)
	switch cfg.LLMProvider {
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("%w: ANTHROPIC_API_KEY is not set", ErrNotConfigured)
		}
		return NewAnthropic(client, cfg.AnthropicBaseURL, cfg.AnthropicAPIKey, cfg.AnthropicModel), nil
	case "openai", "":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("%w: OPENAI_API_KEY is not set", ErrNotConfigured)
		}
		return NewOpenAI(client, cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
	}
}

// APIError is a non-2xx answer from a provider.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s error (status %d): %s", e.Provider, e.StatusCode, e.Body)
}

func postJSON(ctx context.Context, client *http.Client, provider, url string, headers http.Header, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header = httputil.JSONHeaders()
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Provider: provider, StatusCode: resp.StatusCode, Body: string(body)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func stepsOrDefault(n int) int {
	if n < 1 {
		return DefaultMaxSteps
	}
	return n
}

func argsOrEmpty(raw json.RawMessage) json.RawMessage {
	if len(bytes.TrimSpace(raw)) == 0 {
		return json.RawMessage("{}")
	}
	return raw
}
