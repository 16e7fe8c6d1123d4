// Package checkpoint persists per-session snapshots so a conversation can
// resume after process restart.
package checkpoint

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dbhatt90/StudyBotAgent/form"
	"github.com/dbhatt90/StudyBotAgent/types"
)

// Version identifies the persisted record layout. Bump only with a migration
// path; restore compatibility depends on it.
const Version = "2.0"

// Metadata describes when and for whom a record was written.
type Metadata struct {
	SavedAt   time.Time `json:"saved_at"`
	SessionID string    `json:"session_id"`
	Version   string    `json:"version"`
}

// AgentState is the orchestrator-owned slice of a record: session flags,
// field values, and the user-visible transcript.
type AgentState struct {
	SessionID             string                    `json:"session_id"`
	CreatedAt             time.Time                 `json:"created_at"`
	ProgressPct           float64                   `json:"progress_pct"`
	PendingSuggestions    map[string]string         `json:"pending_suggestions,omitempty"`
	AwaitingConfirmation  bool                      `json:"awaiting_confirmation"`
	RAGSearchPerformed    bool                      `json:"rag_search_performed"`
	InitialExtractionDone bool                      `json:"initial_extraction_done"`
	LastAction            string                    `json:"last_action,omitempty"`
	Fields                map[string]string         `json:"fields"`
	ConversationHistory   []types.ConversationEntry `json:"conversation_history"`
}

// Record is one persisted snapshot. LLMState is opaque to this package; it is
// round-tripped exactly as written so the model collaborator can restore its
// own history and metadata.
type Record struct {
	Metadata   Metadata        `json:"checkpoint_metadata"`
	SessionID  string          `json:"session_id"`
	AgentState AgentState      `json:"agent_state"`
	LLMState   json.RawMessage `json:"llm_state,omitempty"`
	Schema     []form.Field    `json:"schema"`
}

// Store is durable key-value persistence keyed by session identifier.
//
// Save replaces any prior record atomically. Load returns (nil, nil) when no
// usable record exists; a malformed record is treated as absent, trading
// silent data loss for availability. Delete is idempotent. None of the
// methods panic past their boundary.
type Store interface {
	Save(ctx context.Context, id string, rec *Record) error
	Load(ctx context.Context, id string) (*Record, error)
	Delete(ctx context.Context, id string) error
	Exists(ctx context.Context, id string) bool
	List(ctx context.Context) ([]string, error)
}
