package types

import "time"

// ActionType is the closed set of actions the decision engine may choose.
type ActionType string

const (
	ActionSuggestFields    ActionType = "suggest_fields"
	ActionUpdateField      ActionType = "update_field"
	ActionSearchRAG        ActionType = "search_rag"
	ActionApplySuggestions ActionType = "apply_suggestions"
	ActionSubmitForm       ActionType = "submit_form"
	ActionClarify          ActionType = "clarify"
	ActionGenericResponse  ActionType = "generic_response"
)

// Valid reports whether a is a known action. Model output carrying anything
// else is treated as a failed call, never dispatched.
func (a ActionType) Valid() bool {
	switch a {
	case ActionSuggestFields, ActionUpdateField, ActionSearchRAG,
		ActionApplySuggestions, ActionSubmitForm, ActionClarify, ActionGenericResponse:
		return true
	}
	return false
}

// Decision is the classified next action for a non-confirmation turn.
type Decision struct {
	Action          ActionType        `json:"action" jsonschema:"required,enum=suggest_fields,enum=update_field,enum=search_rag,enum=submit_form,enum=clarify,enum=generic_response,description=The next action to take"`
	Reasoning       string            `json:"reasoning" jsonschema:"required,description=Short explanation of why this action was chosen"`
	FieldName       string            `json:"field_name,omitempty" jsonschema:"description=Field name for update_field"`
	FieldValue      string            `json:"field_value,omitempty" jsonschema:"description=Field value for update_field"`
	SearchQuery     string            `json:"search_query,omitempty" jsonschema:"description=Query for search_rag"`
	SuggestedFields map[string]string `json:"suggested_fields,omitempty" jsonschema:"description=Extracted field values for suggest_fields"`
	MessageToUser   string            `json:"message_to_user" jsonschema:"required,description=Conversational message shown to the user"`
	RequiresInput   bool              `json:"requires_user_input" jsonschema:"description=Whether the user must respond before progress can continue"`
	Confidence      float64           `json:"confidence" jsonschema:"description=Confidence between 0 and 1"`
}

// ConfirmationResult classifies a message received while suggestions are
// pending. is_confirmation and is_rejection are not mutually exclusive at this
// layer; the orchestrator resolves conflicting signals.
type ConfirmationResult struct {
	IsConfirmation         bool              `json:"is_confirmation" jsonschema:"required,description=User accepts the pending suggestions"`
	IsRejection            bool              `json:"is_rejection" jsonschema:"required,description=User rejects the pending suggestions"`
	IsModificationRequest  bool              `json:"is_modification_request" jsonschema:"required,description=User wants different values"`
	Confidence             float64           `json:"confidence" jsonschema:"description=Confidence between 0 and 1"`
	Reasoning              string            `json:"reasoning" jsonschema:"description=Short explanation"`
	ExtractedModifications map[string]string `json:"extracted_modifications,omitempty" jsonschema:"description=Replacement field values when modifying"`
}

// ConversationEntry is one turn of the user-visible transcript. Entries are
// immutable once appended.
type ConversationEntry struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action,omitempty"`
}

// UIMessage is the structured event pushed to the frontend. ConversationHistory
// is populated only on session join, never on regular turns.
type UIMessage struct {
	Type                 string              `json:"type"`
	Message              string              `json:"message"`
	ProgressPct          float64             `json:"progress_pct"`
	FilledFields         map[string]string   `json:"filled_fields"`
	EmptyFields          []string            `json:"empty_fields"`
	Suggestions          map[string]string   `json:"suggestions,omitempty"`
	AwaitingConfirmation bool                `json:"awaiting_confirmation"`
	Metadata             map[string]any      `json:"metadata,omitempty"`
	ConversationHistory  []ConversationEntry `json:"conversation_history,omitempty"`
}

// SearchResult is the retrieval collaborator's answer for one query.
type SearchResult struct {
	FoundFields    map[string]string `json:"found_fields"`
	NumResults     int               `json:"num_results"`
	SimilarStudies []string          `json:"similar_studies,omitempty"`
}
