package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	defaultAnthropicModel   = "claude-3-5-sonnet-20240620"
	anthropicVersion        = "2023-06-01"
	anthropicMaxTokens      = 800
)

// Anthropic runs the loop against the /v1/messages API. System turns are
// lifted into the system field and tool results travel as user turns.
type Anthropic struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

func NewAnthropic(client *http.Client, baseURL, apiKey, model string) *Anthropic {
	if baseURL == "" {
		baseURL = defaultAnthropicBaseURL
	}
	if model == "" {
		model = defaultAnthropicModel
	}
	return &Anthropic{client: client, baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, model: model}
}

func (a *Anthropic) Name() string { return "anthropic" }

type antRequest struct {
	Model       string       `json:"model"`
	MaxTokens   int          `json:"max_tokens"`
	Temperature float64      `json:"temperature"`
	System      string       `json:"system,omitempty"`
	Messages    []antMessage `json:"messages"`
	Tools       []antTool    `json:"tools,omitempty"`
}

type antMessage struct {
	Role    string     `json:"role"`
	Content []antBlock `json:"content"`
}

type antBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
}

type antTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

type antResponse struct {
	Content    []antBlock `json:"content"`
	StopReason string     `json:"stop_reason"`
}

func (a *Anthropic) RunLoop(ctx context.Context, conv []Message, tools []Tool, dispatch Dispatcher, maxSteps int) ([]Message, error) {
	defs := make([]antTool, len(tools))
	for i, t := range tools {
		defs[i] = antTool{Name: t.Name, Description: t.Description, InputSchema: t.Parameters}
	}
	headers := http.Header{
		"X-Api-Key":         {a.apiKey},
		"Anthropic-Version": {anthropicVersion},
	}

	for range stepsOrDefault(maxSteps) {
		system, msgs := toAnthropicMessages(conv)
		req := antRequest{
			Model:       a.model,
			MaxTokens:   anthropicMaxTokens,
			Temperature: temperature,
			System:      system,
			Messages:    msgs,
			Tools:       defs,
		}
		var resp antResponse
		if err := postJSON(ctx, a.client, a.Name(), a.baseURL+"/v1/messages", headers, req, &resp); err != nil {
			return conv, err
		}

		var texts []string
		turn := Message{Role: RoleAssistant}
		for _, b := range resp.Content {
			switch b.Type {
			case "text":
				texts = append(texts, b.Text)
			case "tool_use":
				turn.ToolCalls = append(turn.ToolCalls, ToolCall{ID: b.ID, Name: b.Name, Arguments: argsOrEmpty(b.Input)})
			}
		}
		turn.Content = strings.TrimSpace(strings.Join(texts, "\n"))
		conv = append(conv, turn)
		if len(turn.ToolCalls) == 0 {
			break
		}

		for _, tc := range turn.ToolCalls {
			conv = append(conv, Message{
				Role:       RoleTool,
				Content:    dispatch(ctx, tc.Name, tc.Arguments),
				ToolCallID: tc.ID,
				Name:       tc.Name,
			})
		}
	}
	return conv, nil
}

// toAnthropicMessages splits out the system prompt and folds consecutive tool
// results into a single user turn so roles keep alternating.
func toAnthropicMessages(conv []Message) (string, []antMessage) {
	var system []string
	out := make([]antMessage, 0, len(conv))
	for _, m := range conv {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleUser:
			out = append(out, antMessage{Role: RoleUser, Content: []antBlock{{Type: "text", Text: m.Content}}})
		case RoleAssistant:
			var blocks []antBlock
			if m.Content != "" {
				blocks = append(blocks, antBlock{Type: "text", Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				blocks = append(blocks, antBlock{Type: "tool_use", ID: tc.ID, Name: tc.Name, Input: argsOrEmpty(tc.Arguments)})
			}
			if len(blocks) > 0 {
				out = append(out, antMessage{Role: RoleAssistant, Content: blocks})
			}
		case RoleTool:
			block := antBlock{Type: "tool_result", ToolUseID: m.ToolCallID, Content: m.Content}
			if n := len(out); n > 0 && out[n-1].Role == RoleUser && out[n-1].Content[0].Type == "tool_result" {
				out[n-1].Content = append(out[n-1].Content, block)
				continue
			}
			out = append(out, antMessage{Role: RoleUser, Content: []antBlock{block}})
		}
	}
	return strings.Join(system, "\n"), out
}
