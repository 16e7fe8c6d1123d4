package confirm

import (
	"context"
	"fmt"
	"strings"

	"github.com/dbhatt90/StudyBotAgent/llm"
	"github.com/dbhatt90/StudyBotAgent/types"
)

const (
	detectToolName = "detect_confirmation"
	detectToolDesc = "Classify the user's reply to pending field suggestions as confirmation, rejection, or modification."

	detectSystemPrompt = "You detect user confirmations accurately. Always call the '" + detectToolName + "' tool with the result."
)

// ToolBasedClassifier asks the model for a structured classification through
// a forced tool call. Confirmation prompts never include history; the pending
// suggestions are the only context that matters.
type ToolBasedClassifier struct {
	sess  *llm.Session
	chain *llm.Chain[types.ConfirmationResult]
}

func NewToolBasedClassifier(sess *llm.Session) (*ToolBasedClassifier, error) {
	chain, err := llm.NewChain[types.ConfirmationResult]("confirmation_detector", detectToolName, detectToolDesc)
	if err != nil {
		return nil, fmt.Errorf("create confirmation chain: %w", err)
	}
	return &ToolBasedClassifier{sess: sess, chain: chain}, nil
}

func (c *ToolBasedClassifier) Classify(ctx context.Context, userMessage string, pending map[string]string) (*types.ConfirmationResult, error) {
	c.sess.AttachBean("confirmation_context", map[string]any{
		"pending_suggestions": pending,
	})
	defer c.sess.ClearBeans()

	prompt := buildConfirmationPrompt(userMessage, pending)
	result, err := c.chain.Invoke(ctx, c.sess, prompt, detectSystemPrompt, false)
	if err != nil {
		return nil, err
	}
	if result.Confidence < 0 {
		result.Confidence = 0
	}
	if result.Confidence > 1 {
		result.Confidence = 1
	}
	return result, nil
}

func buildConfirmationPrompt(userMessage string, pending map[string]string) string {
	sections := []string{
		types.FormatFieldsTable("I suggested these field values", pending),
		fmt.Sprintf("User responded: %q", userMessage),
		`Classify as:
1. CONFIRMATION (yes/ok/looks good/apply/correct)
2. REJECTION (no/wrong/don't apply)
3. MODIFICATION (change X to Y; fill extracted_modifications)`,
	}
	return strings.Join(sections, "\n\n")
}
