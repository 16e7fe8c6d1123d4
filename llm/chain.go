package llm

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
)

// Chain forces the model to answer through a single tool call whose arguments
// unmarshal into TOutput. Every collaborator response is untrusted input:
// missing tool calls or unparseable arguments surface as errors so callers can
// fall back deterministically.
type Chain[TOutput any] struct {
	agentTag string
	toolInfo *schema.ToolInfo
}

// NewChain derives the tool schema from TOutput's struct tags.
func NewChain[TOutput any](agentTag, toolName, toolDesc string) (*Chain[TOutput], error) {
	toolInfo, err := utils.GoStruct2ToolInfo[TOutput](toolName, toolDesc)
	if err != nil {
		return nil, fmt.Errorf("convert tool info failed: %w", err)
	}
	return &Chain[TOutput]{agentTag: agentTag, toolInfo: toolInfo}, nil
}

// Invoke sends the prompt through the session with the tool choice forced and
// parses the structured result.
func (c *Chain[TOutput]) Invoke(ctx context.Context, sess *Session, prompt, systemPrompt string, includeHistory bool) (*TOutput, error) {
	resp, err := sess.Generate(ctx, prompt, Options{
		AgentTag:       c.agentTag,
		SystemPrompt:   systemPrompt,
		IncludeHistory: includeHistory,
		ModelOptions: []model.Option{
			model.WithTools([]*schema.ToolInfo{c.toolInfo}),
			model.WithToolChoice(schema.ToolChoiceForced, c.toolInfo.Name),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("call model failed: %w", err)
	}
	if len(resp.ToolCalls) == 0 {
		return nil, fmt.Errorf("no ToolCall found in model response: %s", resp.Content)
	}

	var result TOutput
	if err := sonic.UnmarshalString(resp.ToolCalls[0].Function.Arguments, &result); err != nil {
		return nil, fmt.Errorf("parse ToolCall arguments failed: %w", err)
	}
	return &result, nil
}

// ToolInfo exposes the derived tool schema.
func (c *Chain[TOutput]) ToolInfo() *schema.ToolInfo {
	return c.toolInfo
}
