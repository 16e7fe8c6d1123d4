// Package decision classifies what the agent should do with a
// non-confirmation message.
package decision

import (
	"context"
	"fmt"

	"github.com/dbhatt90/StudyBotAgent/types"
)

// AgentState is the aggregate snapshot the engine decides against.
type AgentState struct {
	ProgressPct           float64           `json:"progress_pct"`
	FilledFields          map[string]string `json:"filled_fields"`
	EmptyFields           []string          `json:"empty_fields"`
	AwaitingConfirmation  bool              `json:"awaiting_confirmation"`
	PendingSuggestions    map[string]string `json:"pending_suggestions,omitempty"`
	RAGSearchPerformed    bool              `json:"rag_search_performed"`
	InitialExtractionDone bool              `json:"initial_extraction_done"`
}

// Engine decides the next action for a user message.
type Engine interface {
	Decide(ctx context.Context, userMessage string, state *AgentState) (*types.Decision, error)
}

// LocalEngine is the deterministic last-resort engine. It always asks the
// user to rephrase and never fails, so a failback chain ending here always
// produces a valid decision.
type LocalEngine struct{}

func (LocalEngine) Decide(ctx context.Context, userMessage string, state *AgentState) (*types.Decision, error) {
	return &types.Decision{
		Action:        types.ActionClarify,
		Reasoning:     "Error processing request",
		MessageToUser: "I'm having trouble understanding. Could you rephrase that?",
		RequiresInput: true,
		Confidence:    0.3,
	}, nil
}

// FailbackEngine tries each engine in order and returns the first success.
type FailbackEngine struct {
	engines []Engine
}

func NewFailbackEngine(engines ...Engine) *FailbackEngine {
	return &FailbackEngine{engines: engines}
}

func (e *FailbackEngine) Decide(ctx context.Context, userMessage string, state *AgentState) (*types.Decision, error) {
	var lastErr error
	for _, engine := range e.engines {
		decision, err := engine.Decide(ctx, userMessage, state)
		if err == nil {
			return decision, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("all decision engines failed: %w", lastErr)
}
