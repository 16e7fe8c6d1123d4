package decision

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/dbhatt90/StudyBotAgent/llm"
	"github.com/dbhatt90/StudyBotAgent/types"
)

type fakeChatModel struct {
	responses []*schema.Message
}

func (m *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	if len(m.responses) == 0 {
		return nil, errors.New("no scripted response")
	}
	resp := m.responses[0]
	m.responses = m.responses[1:]
	return resp, nil
}

func (m *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported")
}

func (m *fakeChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

func decisionToolCall(args string) *schema.Message {
	return schema.AssistantMessage("", []schema.ToolCall{
		{Function: schema.FunctionCall{Name: decideToolName, Arguments: args}},
	})
}

func emptyState() *AgentState {
	return &AgentState{
		FilledFields: map[string]string{},
		EmptyFields:  []string{"Client", "Problem"},
	}
}

func TestLocalEngineAlwaysClarifies(t *testing.T) {
	d, err := LocalEngine{}.Decide(context.Background(), "anything", emptyState())
	if err != nil {
		t.Fatalf("LocalEngine must never fail: %v", err)
	}
	if d.Action != types.ActionClarify {
		t.Errorf("action = %v, want clarify", d.Action)
	}
	if d.Confidence != 0.3 {
		t.Errorf("confidence = %v, want 0.3", d.Confidence)
	}
	if !d.RequiresInput {
		t.Error("clarify fallback must require user input")
	}
	if d.MessageToUser == "" {
		t.Error("fallback needs a user-facing message")
	}
}

func TestToolBasedEngineParsesDecision(t *testing.T) {
	chat := &fakeChatModel{responses: []*schema.Message{
		decisionToolCall(`{
			"action": "update_field",
			"reasoning": "user stated the client name",
			"field_name": "Client",
			"field_value": "Alice",
			"message_to_user": "Got it, Client is Alice.",
			"confidence": 0.9
		}`),
	}}
	sess := llm.NewSession("s1", chat)
	engine, err := NewToolBasedEngine(sess)
	if err != nil {
		t.Fatal(err)
	}

	d, err := engine.Decide(context.Background(), "my name is Alice", emptyState())
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.Action != types.ActionUpdateField || d.FieldName != "Client" || d.FieldValue != "Alice" {
		t.Errorf("decision = %+v", d)
	}
}

func TestToolBasedEngineRejectsUnknownAction(t *testing.T) {
	chat := &fakeChatModel{responses: []*schema.Message{
		decisionToolCall(`{"action":"launch_rocket","reasoning":"x","message_to_user":"y"}`),
	}}
	sess := llm.NewSession("s1", chat)
	engine, err := NewToolBasedEngine(sess)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := engine.Decide(context.Background(), "hi", emptyState()); err == nil {
		t.Error("unknown action must be rejected")
	}
}

func TestToolBasedEngineRejectsEmptyMessage(t *testing.T) {
	chat := &fakeChatModel{responses: []*schema.Message{
		decisionToolCall(`{"action":"clarify","reasoning":"x","message_to_user":""}`),
	}}
	sess := llm.NewSession("s1", chat)
	engine, err := NewToolBasedEngine(sess)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := engine.Decide(context.Background(), "hi", emptyState()); err == nil {
		t.Error("decision without a user-facing message must be rejected")
	}
}

func TestToolBasedEngineClampsConfidence(t *testing.T) {
	chat := &fakeChatModel{responses: []*schema.Message{
		decisionToolCall(`{"action":"generic_response","reasoning":"x","message_to_user":"hello","confidence":3.5}`),
	}}
	sess := llm.NewSession("s1", chat)
	engine, err := NewToolBasedEngine(sess)
	if err != nil {
		t.Fatal(err)
	}

	d, err := engine.Decide(context.Background(), "hi", emptyState())
	if err != nil {
		t.Fatal(err)
	}
	if d.Confidence != 1 {
		t.Errorf("confidence = %v, want clamped to 1", d.Confidence)
	}
}

func TestFailbackEngineFallsThrough(t *testing.T) {
	// Model speaks plain text, so the tool engine fails and the local
	// engine answers.
	chat := &fakeChatModel{responses: []*schema.Message{schema.AssistantMessage("no tool call", nil)}}
	sess := llm.NewSession("s1", chat)
	toolEngine, err := NewToolBasedEngine(sess)
	if err != nil {
		t.Fatal(err)
	}

	engine := NewFailbackEngine(toolEngine, LocalEngine{})
	d, err := engine.Decide(context.Background(), "hi", emptyState())
	if err != nil {
		t.Fatalf("failback chain ending in LocalEngine must not fail: %v", err)
	}
	if d.Action != types.ActionClarify {
		t.Errorf("action = %v, want fallback clarify", d.Action)
	}
}

func TestFailbackEnginePrefersFirstSuccess(t *testing.T) {
	chat := &fakeChatModel{responses: []*schema.Message{
		decisionToolCall(`{"action":"submit_form","reasoning":"complete","message_to_user":"Submitting now."}`),
	}}
	sess := llm.NewSession("s1", chat)
	toolEngine, err := NewToolBasedEngine(sess)
	if err != nil {
		t.Fatal(err)
	}

	engine := NewFailbackEngine(toolEngine, LocalEngine{})
	d, err := engine.Decide(context.Background(), "submit it", emptyState())
	if err != nil {
		t.Fatal(err)
	}
	if d.Action != types.ActionSubmitForm {
		t.Errorf("action = %v, want submit_form from the tool engine", d.Action)
	}
}
