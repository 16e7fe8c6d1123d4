package decision

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dbhatt90/StudyBotAgent/llm"
	"github.com/dbhatt90/StudyBotAgent/types"
)

const (
	decideToolName = "decide_next_action"
	decideToolDesc = "Choose the agent's next action for the user's message and extract its parameters."
)

// ToolBasedEngine asks the model for a structured decision through a forced
// tool call against the shared session.
type ToolBasedEngine struct {
	sess  *llm.Session
	chain *llm.Chain[types.Decision]
}

func NewToolBasedEngine(sess *llm.Session) (*ToolBasedEngine, error) {
	chain, err := llm.NewChain[types.Decision]("decision_maker", decideToolName, decideToolDesc)
	if err != nil {
		return nil, fmt.Errorf("create decision chain: %w", err)
	}
	return &ToolBasedEngine{sess: sess, chain: chain}, nil
}

func (e *ToolBasedEngine) Decide(ctx context.Context, userMessage string, state *AgentState) (*types.Decision, error) {
	e.sess.AttachBean("agent_state", state)
	defer e.sess.ClearBeans()

	prompt := buildDecisionPrompt(userMessage, state)
	decision, err := e.chain.Invoke(ctx, e.sess, prompt, decisionSystemPrompt, true)
	if err != nil {
		return nil, err
	}
	if err := validate(decision); err != nil {
		slog.Warn("model returned invalid decision", "error", err)
		return nil, err
	}
	return decision, nil
}

// validate rejects decisions outside the closed action set so the dispatcher
// never sees untrusted variants.
func validate(d *types.Decision) error {
	if !d.Action.Valid() {
		return fmt.Errorf("unknown action %q", d.Action)
	}
	if d.MessageToUser == "" {
		return fmt.Errorf("decision has no user-facing message")
	}
	if d.Confidence < 0 {
		d.Confidence = 0
	}
	if d.Confidence > 1 {
		d.Confidence = 1
	}
	return nil
}
