// Package llm wraps the chat model behind a per-session collaborator that
// owns prompting history, ephemeral request context, and checkpoint
// round-tripping of its own state.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// DefaultKeepLast bounds how many history entries are replayed into a prompt.
const DefaultKeepLast = 50

// Entry is one recorded exchange with the model.
type Entry struct {
	Sender    string         `json:"sender"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// SessionMetadata tracks bookkeeping persisted with the history.
type SessionMetadata struct {
	CreatedAt   time.Time `json:"created_at"`
	LastUpdated time.Time `json:"last_updated"`
	TurnCount   int       `json:"turn_count"`
}

// State is the checkpointable slice of a session. Beans are deliberately
// excluded; they are request-scoped and never persisted.
type State struct {
	SessionID string          `json:"session_id"`
	History   []Entry         `json:"history"`
	Metadata  SessionMetadata `json:"metadata"`
}

// Options configures a single Generate call.
type Options struct {
	AgentTag       string
	SystemPrompt   string
	IncludeHistory bool
	ModelOptions   []model.Option
}

// Session is the model collaborator for one conversation. It is not safe for
// concurrent use; the orchestrator serializes turns per session.
type Session struct {
	id      string
	chat    model.ToolCallingChatModel
	history []Entry
	meta    SessionMetadata
	beans   map[string]any
	keep    int
}

// NewSession creates a fresh session. chat may not be nil.
func NewSession(id string, chat model.ToolCallingChatModel) *Session {
	now := time.Now()
	return &Session{
		id:   id,
		chat: chat,
		meta: SessionMetadata{CreatedAt: now, LastUpdated: now},
		keep: DefaultKeepLast,
	}
}

// Restore rebuilds a session from checkpointed state.
func Restore(state *State, chat model.ToolCallingChatModel) *Session {
	s := NewSession(state.SessionID, chat)
	s.history = append(s.history, state.History...)
	s.meta = state.Metadata
	return s
}

// AttachBean attaches ephemeral context injected into the next call only.
// Beans are never checkpointed and must be cleared after the call completes.
func (s *Session) AttachBean(name string, data any) {
	if s.beans == nil {
		s.beans = map[string]any{}
	}
	s.beans[name] = data
}

// ClearBeans drops all attached ephemeral context.
func (s *Session) ClearBeans() {
	s.beans = nil
}

// AddMessage records an exchange that happened outside a Generate call, such
// as the session greeting.
func (s *Session) AddMessage(sender, content string, metadata map[string]any) {
	s.history = append(s.history, Entry{
		Sender:    sender,
		Content:   content,
		Metadata:  metadata,
		Timestamp: time.Now(),
	})
	s.meta.LastUpdated = time.Now()
	s.meta.TurnCount++
}

// Call sends a prompt and returns the model's free-text reply. The prompt and
// reply are recorded in the session history.
func (s *Session) Call(ctx context.Context, prompt, agentTag, systemPrompt string, includeHistory bool) (string, error) {
	resp, err := s.Generate(ctx, prompt, Options{
		AgentTag:       agentTag,
		SystemPrompt:   systemPrompt,
		IncludeHistory: includeHistory,
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// Generate sends a prompt with full option control and returns the raw model
// message, which may carry tool calls.
func (s *Session) Generate(ctx context.Context, prompt string, opts Options) (*schema.Message, error) {
	if s.chat == nil {
		return nil, fmt.Errorf("no chat model configured")
	}

	userText := prompt
	if len(s.beans) > 0 {
		beansJSON, err := sonic.MarshalIndent(s.beans, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal attached context: %w", err)
		}
		userText += "\n\nCurrent Context:\n" + string(beansJSON)
	}

	var messages []*schema.Message
	if opts.SystemPrompt != "" {
		messages = append(messages, schema.SystemMessage(opts.SystemPrompt))
	}
	if opts.IncludeHistory {
		messages = append(messages, s.historyMessages()...)
	}
	messages = append(messages, schema.UserMessage(userText))

	s.AddMessage("user", prompt, nil)

	resp, err := s.chat.Generate(ctx, messages, opts.ModelOptions...)
	if err != nil {
		return nil, fmt.Errorf("LLM call failed: %w", err)
	}

	content := resp.Content
	meta := map[string]any{"agent": opts.AgentTag}
	if len(resp.ToolCalls) > 0 {
		content = resp.ToolCalls[0].Function.Arguments
		meta["tool"] = resp.ToolCalls[0].Function.Name
	}
	s.AddMessage("assistant", content, meta)

	return resp, nil
}

// historyMessages converts the newest retained entries into prompt messages.
func (s *Session) historyMessages() []*schema.Message {
	entries := s.history
	if s.keep > 0 && len(entries) > s.keep {
		entries = entries[len(entries)-s.keep:]
	}
	out := make([]*schema.Message, 0, len(entries))
	for _, e := range entries {
		if e.Sender == "user" {
			out = append(out, schema.UserMessage(e.Content))
		} else {
			out = append(out, schema.AssistantMessage(e.Content, nil))
		}
	}
	return out
}

// History returns a copy of the recorded exchanges.
func (s *Session) History() []Entry {
	out := make([]Entry, len(s.history))
	copy(out, s.history)
	return out
}

// Snapshot exports checkpointable state, excluding beans.
func (s *Session) Snapshot() *State {
	hist := make([]Entry, len(s.history))
	copy(hist, s.history)
	return &State{SessionID: s.id, History: hist, Metadata: s.meta}
}
