package decision

import (
	"fmt"
	"strings"

	"github.com/dbhatt90/StudyBotAgent/types"
)

// decisionSystemPrompt fixes the priority policy. The ordering resolves
// ambiguity when several criteria match, so it must stay stable.
const decisionSystemPrompt = `You are an intelligent assistant helping users fill study ticket forms efficiently.

Your role:
1. FIRST: Extract any explicit field values from user input
2. THEN: Search previous studies to auto-fill remaining fields
3. Handle confirmations and modifications
4. Guide users proactively through form completion
5. Handle casual conversation politely

DECISION PRIORITY:
1. suggest_fields - Extract ANY explicit field values
2. update_field - Single clear field update
3. search_rag - When user describes problem but no explicit fields
4. submit_form - User confirms submission AND form is 100% complete
5. generic_response - Casual conversation
6. clarify - Unclear input

Be conversational, proactive, and helpful. Always call the '` + decideToolName + `' tool with the result.`

func buildDecisionPrompt(userMessage string, state *AgentState) string {
	sections := []string{
		fmt.Sprintf("# Current form state:\nProgress: %.1f%%", state.ProgressPct),
	}
	if s := types.FormatFieldsTable("Filled fields", state.FilledFields); s != "" {
		sections = append(sections, s)
	}
	if s := types.FormatFieldList("Empty fields", state.EmptyFields); s != "" {
		sections = append(sections, s)
	}
	sections = append(sections, fmt.Sprintf("# User message:\n%q", userMessage))
	sections = append(sections, `DECISION LOGIC:

STEP 1: Check if message is GENERIC (not about the study ticket)
Is it: greeting, thanks, or unrelated chat?
-> action: generic_response

STEP 2: Check for EXPLICIT field values
Does the message contain field values?
-> action: suggest_fields (fill suggested_fields)

STEP 3: Check if it describes a problem or need (no explicit fields)
-> action: search_rag (fill search_query)

STEP 4: Single clear update
-> action: update_field (fill field_name and field_value)

STEP 5: Submit request AND 100% complete
-> action: submit_form

OTHERWISE:
-> action: clarify`)
	return strings.Join(sections, "\n\n")
}
