package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/lukman83/mercari-shopper/internal/logger"
)

const systemPrompt = `You are an AI shopping assistant for Mercari Japan.
- Understand user requests (ko/en/ja) and normalize them to concise **Japanese** keywords where possible.
- Always use tools to search listings and (optionally) fetch details before recommending.
- Summarize top 3 options with short, clear reasons that reference price, condition, brand/color match, and budget fit.
- If user gives a raw sentence, infer filters (budget, condition) conservatively.
- Output should be concise and structured.
`

const userPromptTemplate = `User request:
%s

Steps:
1) Extract keywords (Japanese preferred), and optional filters (budget_min/max, condition[], brand[], color[], category).
2) Call ` + "`search_mercari`" + ` tool with best-effort parameters.
3) If needed, call ` + "`fetch_listing_detail`" + ` for promising items.
4) Produce top 3 recommendations with reasons.
Return final answer in Korean if user input was Korean; otherwise in the input language.
`

// Agent answers free-text shopping requests by letting the model call the
// marketplace tools.
type Agent struct {
	llm   LLM
	tools *Toolbox
}

func New(llm LLM, tools *Toolbox) *Agent {
	return &Agent{llm: llm, tools: tools}
}

// Prompt returns the opening system and user turns for rawText.
func Prompt(rawText string) []Message {
	return []Message{
		{Role: RoleSystem, Content: systemPrompt},
		{Role: RoleUser, Content: fmt.Sprintf(userPromptTemplate, rawText)},
	}
}

// Run executes the tool loop for rawText and returns the whole conversation.
func (a *Agent) Run(ctx context.Context, rawText string, maxSteps int) ([]Message, error) {
	rawText = strings.TrimSpace(rawText)
	if rawText == "" {
		return nil, fmt.Errorf("request text is empty")
	}

	logger.Debug("agent: %s, max %d steps", a.llm.Name(), stepsOrDefault(maxSteps))
	conv, err := a.llm.RunLoop(ctx, Prompt(rawText), a.tools.Definitions(), a.tools.Dispatch, maxSteps)
	if err != nil {
		return conv, fmt.Errorf("%s: %w", a.llm.Name(), err)
	}
	return conv, nil
}

// FinalAnswer returns the text of the last assistant turn that carried any.
func FinalAnswer(conv []Message) string {
	for i := len(conv) - 1; i >= 0; i-- {
		if conv[i].Role == RoleAssistant && conv[i].Content != "" {
			return conv[i].Content
		}
	}
	return ""
}
