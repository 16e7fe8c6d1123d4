package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// fakeChatModel replays scripted responses and records the prompts it saw.
type fakeChatModel struct {
	responses []*schema.Message
	calls     [][]*schema.Message
}

func (m *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.calls = append(m.calls, input)
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

func toolCallMessage(name, args string) *schema.Message {
	return schema.AssistantMessage("", []schema.ToolCall{
		{Function: schema.FunctionCall{Name: name, Arguments: args}},
	})
}

func TestSessionCallRecordsHistory(t *testing.T) {
	chat := &fakeChatModel{responses: []*schema.Message{schema.AssistantMessage("hi there", nil)}}
	sess := NewSession("s1", chat)

	got, err := sess.Call(context.Background(), "hello", "tester", "be nice", true)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got != "hi there" {
		t.Errorf("Call = %q", got)
	}

	hist := sess.History()
	if len(hist) != 2 {
		t.Fatalf("history has %d entries, want 2", len(hist))
	}
	if hist[0].Sender != "user" || hist[0].Content != "hello" {
		t.Errorf("user entry = %+v", hist[0])
	}
	if hist[1].Sender != "assistant" || hist[1].Content != "hi there" {
		t.Errorf("assistant entry = %+v", hist[1])
	}
	if hist[1].Metadata["agent"] != "tester" {
		t.Errorf("agent tag lost: %v", hist[1].Metadata)
	}
}

func TestSessionBeansInjectedButNotRecorded(t *testing.T) {
	chat := &fakeChatModel{responses: []*schema.Message{schema.AssistantMessage("ok", nil)}}
	sess := NewSession("s1", chat)

	sess.AttachBean("agent_state", map[string]any{"progress_pct": 50})
	if _, err := sess.Call(context.Background(), "what next?", "tester", "", false); err != nil {
		t.Fatal(err)
	}
	sess.ClearBeans()

	sent := chat.calls[0]
	last := sent[len(sent)-1]
	if !strings.Contains(last.Content, "Current Context") || !strings.Contains(last.Content, "progress_pct") {
		t.Errorf("beans not injected into prompt: %q", last.Content)
	}

	// History keeps the bare prompt so checkpoints never carry ephemeral context.
	hist := sess.History()
	if hist[0].Content != "what next?" {
		t.Errorf("recorded prompt = %q, want bare prompt", hist[0].Content)
	}

	state := sess.Snapshot()
	for _, e := range state.History {
		if strings.Contains(e.Content, "Current Context") {
			t.Errorf("beans leaked into snapshot: %q", e.Content)
		}
	}
}

func TestSessionSystemPromptAndHistoryFlags(t *testing.T) {
	chat := &fakeChatModel{responses: []*schema.Message{
		schema.AssistantMessage("first", nil),
		schema.AssistantMessage("second", nil),
	}}
	sess := NewSession("s1", chat)

	if _, err := sess.Call(context.Background(), "one", "a", "SYSTEM", true); err != nil {
		t.Fatal(err)
	}
	if chat.calls[0][0].Role != schema.System {
		t.Errorf("first message role = %v, want system", chat.calls[0][0].Role)
	}

	if _, err := sess.Call(context.Background(), "two", "a", "", false); err != nil {
		t.Fatal(err)
	}
	if len(chat.calls[1]) != 1 {
		t.Errorf("history excluded call sent %d messages, want 1", len(chat.calls[1]))
	}
}

func TestSessionSnapshotRestore(t *testing.T) {
	chat := &fakeChatModel{responses: []*schema.Message{schema.AssistantMessage("reply", nil)}}
	sess := NewSession("s1", chat)
	sess.AddMessage("assistant", "greeting", map[string]any{"action": "greeting"})
	if _, err := sess.Call(context.Background(), "hello", "tester", "", true); err != nil {
		t.Fatal(err)
	}

	state := sess.Snapshot()
	restored := Restore(state, chat)

	got := restored.History()
	if len(got) != 3 {
		t.Fatalf("restored history has %d entries, want 3", len(got))
	}
	if got[0].Content != "greeting" {
		t.Errorf("restored history order wrong: %v", got)
	}
}

func TestSessionGenerateWithoutModel(t *testing.T) {
	sess := NewSession("s1", nil)
	if _, err := sess.Generate(context.Background(), "x", Options{}); err == nil {
		t.Error("Generate with nil model should fail")
	}
}

func TestChainInvokeParsesToolArguments(t *testing.T) {
	type result struct {
		Answer string `json:"answer" jsonschema:"required,description=The answer"`
	}

	chain, err := NewChain[result]("tester", "give_answer", "Answer the question.")
	if err != nil {
		t.Fatalf("NewChain: %v", err)
	}

	chat := &fakeChatModel{responses: []*schema.Message{
		toolCallMessage("give_answer", `{"answer":"42"}`),
	}}
	sess := NewSession("s1", chat)

	got, err := chain.Invoke(context.Background(), sess, "question", "", false)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if got.Answer != "42" {
		t.Errorf("Answer = %q", got.Answer)
	}

	// Tool arguments become the recorded assistant content.
	hist := sess.History()
	if hist[1].Content != `{"answer":"42"}` {
		t.Errorf("recorded tool args = %q", hist[1].Content)
	}
	if hist[1].Metadata["tool"] != "give_answer" {
		t.Errorf("tool name lost: %v", hist[1].Metadata)
	}
}

func TestChainInvokeFailsWithoutToolCall(t *testing.T) {
	type result struct {
		Answer string `json:"answer"`
	}
	chain, err := NewChain[result]("tester", "give_answer", "Answer.")
	if err != nil {
		t.Fatal(err)
	}

	chat := &fakeChatModel{responses: []*schema.Message{schema.AssistantMessage("just text", nil)}}
	sess := NewSession("s1", chat)

	if _, err := chain.Invoke(context.Background(), sess, "question", "", false); err == nil {
		t.Error("Invoke without a tool call should fail")
	}
}

func TestChainInvokeFailsOnBadArguments(t *testing.T) {
	type result struct {
		Answer string `json:"answer"`
	}
	chain, err := NewChain[result]("tester", "give_answer", "Answer.")
	if err != nil {
		t.Fatal(err)
	}

	chat := &fakeChatModel{responses: []*schema.Message{
		toolCallMessage("give_answer", `{broken`),
	}}
	sess := NewSession("s1", chat)

	if _, err := chain.Invoke(context.Background(), sess, "question", "", false); err == nil {
		t.Error("Invoke with unparseable arguments should fail")
	}
}
