package agent

import (
	"context"
	"net/http"
	"strings"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIModel   = "gpt-4o-mini"
)

// OpenAI runs the loop against a /chat/completions compatible API.
type OpenAI struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

func NewOpenAI(client *http.Client, baseURL, apiKey, model string) *OpenAI {
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAI{client: client, baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, model: model}
}

func (o *OpenAI) Name() string { return "openai" }

type oaiRequest struct {
	Model       string       `json:"model"`
	Messages    []oaiMessage `json:"messages"`
	Tools       []oaiTool    `json:"tools,omitempty"`
	ToolChoice  string       `json:"tool_choice,omitempty"`
	Temperature float64      `json:"temperature"`
}

type oaiMessage struct {
	Role       string        `json:"role"`
	Content    string        `json:"content"`
	ToolCalls  []oaiToolCall `json:"tool_calls,omitempty"`
	ToolCallID string        `json:"tool_call_id,omitempty"`
	Name       string        `json:"name,omitempty"`
}

type oaiToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type oaiTool struct {
	Type     string `json:"type"`
	Function Tool   `json:"function"`
}

type oaiResponse struct {
	Choices []struct {
		Message struct {
			Content   string        `json:"content"`
			ToolCalls []oaiToolCall `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
}

func (o *OpenAI) RunLoop(ctx context.Context, conv []Message, tools []Tool, dispatch Dispatcher, maxSteps int) ([]Message, error) {
	defs := make([]oaiTool, len(tools))
	for i, t := range tools {
		defs[i] = oaiTool{Type: "function", Function: t}
	}
	headers := http.Header{"Authorization": {"Bearer " + o.apiKey}}

	for range stepsOrDefault(maxSteps) {
		req := oaiRequest{
			Model:       o.model,
			Messages:    toOpenAIMessages(conv),
			Tools:       defs,
			ToolChoice:  "auto",
			Temperature: temperature,
		}
		var resp oaiResponse
		if err := postJSON(ctx, o.client, o.Name(), o.baseURL+"/chat/completions", headers, req, &resp); err != nil {
			return conv, err
		}
		if len(resp.Choices) == 0 {
			break
		}

		msg := resp.Choices[0].Message
		turn := Message{Role: RoleAssistant, Content: msg.Content}
		for _, tc := range msg.ToolCalls {
			turn.ToolCalls = append(turn.ToolCalls, ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: argsOrEmpty([]byte(tc.Function.Arguments)),
			})
		}
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

func toOpenAIMessages(conv []Message) []oaiMessage {
	out := make([]oaiMessage, 0, len(conv))
	for _, m := range conv {
		om := oaiMessage{Role: m.Role, Content: m.Content, ToolCallID: m.ToolCallID, Name: m.Name}
		for _, tc := range m.ToolCalls {
			call := oaiToolCall{ID: tc.ID, Type: "function"}
			call.Function.Name = tc.Name
			call.Function.Arguments = string(argsOrEmpty(tc.Arguments))
			om.ToolCalls = append(om.ToolCalls, call)
		}
		out = append(out, om)
	}
	return out
}
