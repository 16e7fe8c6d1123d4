// Package session orchestrates one conversation per session: it owns the turn
// state machine and ties the form tracker, transcript, model collaborators,
// retrieval, and checkpointing together.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/components/model"

	"github.com/dbhatt90/StudyBotAgent/checkpoint"
	"github.com/dbhatt90/StudyBotAgent/confirm"
	"github.com/dbhatt90/StudyBotAgent/conversation"
	"github.com/dbhatt90/StudyBotAgent/decision"
	"github.com/dbhatt90/StudyBotAgent/dispatch"
	"github.com/dbhatt90/StudyBotAgent/form"
	"github.com/dbhatt90/StudyBotAgent/llm"
	"github.com/dbhatt90/StudyBotAgent/retrieval"
	"github.com/dbhatt90/StudyBotAgent/types"
)

// confirmThreshold is the minimum classifier confidence to apply pending
// suggestions.
const confirmThreshold = 0.6

const greeting = `Hello! I'll help you create a study ticket.

Tell me about your request, including details like:
- Your name
- What analysis you need
- How urgent it is
- Any other relevant information`

// Deps carries the collaborators an orchestrator is built from. Chat may be
// nil, in which case only the deterministic local engines run.
type Deps struct {
	Schema        *form.Schema
	Store         checkpoint.Store
	Chat          model.ToolCallingChatModel
	Searcher      retrieval.Searcher
	Emitter       dispatch.Emitter
	HistoryCap    int
	InitialFields map[string]string
}

// Status is the introspection snapshot of one session.
type Status struct {
	SessionID             string            `json:"session_id"`
	ProgressPct           float64           `json:"progress_pct"`
	FilledFields          map[string]string `json:"filled_fields"`
	EmptyFields           []string          `json:"empty_fields"`
	AwaitingConfirmation  bool              `json:"awaiting_confirmation"`
	ConversationTurns     int               `json:"conversation_turns"`
	LastAction            string            `json:"last_action,omitempty"`
	RAGSearchPerformed    bool              `json:"rag_search_performed"`
	InitialExtractionDone bool              `json:"initial_extraction_done"`
}

// Orchestrator runs the per-message state machine for one session. The mutex
// is held for the whole turn, including the checkpoint write, so a turn's
// result is always durable before the next turn starts.
type Orchestrator struct {
	mu sync.Mutex

	id       string
	tracker  *form.Tracker
	log      *conversation.Log
	sess     *llm.Session
	engine   decision.Engine
	classify confirm.Classifier
	dispatch *dispatch.Dispatcher
	store    checkpoint.Store
	searcher retrieval.Searcher
	emitter  dispatch.Emitter

	createdAt             time.Time
	pending               map[string]string
	awaitingConfirmation  bool
	ragSearchPerformed    bool
	initialExtractionDone bool
	lastAction            string
	restored              bool
}

// New builds an orchestrator for id, restoring from a checkpoint when one
// exists. A fresh session gets the greeting turn and any prefilled fields.
func New(ctx context.Context, id string, deps Deps) (*Orchestrator, error) {
	if deps.Schema == nil {
		return nil, fmt.Errorf("nil schema")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("nil checkpoint store")
	}
	if deps.Searcher == nil {
		deps.Searcher = retrieval.NoopSearcher{}
	}

	o := &Orchestrator{
		id:        id,
		tracker:   form.NewTracker(deps.Schema),
		log:       conversation.NewLog(deps.HistoryCap),
		store:     deps.Store,
		searcher:  deps.Searcher,
		emitter:   deps.Emitter,
		createdAt: time.Now(),
	}
	o.dispatch = dispatch.NewDispatcher(id, o.tracker, deps.Searcher, deps.Emitter)

	rec, err := deps.Store.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	if rec != nil {
		o.restoreFrom(rec, deps.Chat)
		slog.Info("session restored", "session_id", id, "progress_pct", o.tracker.Progress())
	} else {
		o.initFresh(deps)
		slog.Info("session created", "session_id", id)
	}

	if err := o.buildEngines(deps.Chat); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *Orchestrator) initFresh(deps Deps) {
	if len(deps.InitialFields) > 0 {
		if err := o.tracker.Prefill(deps.InitialFields); err != nil {
			slog.Warn("prefill failed", "session_id", o.id, "error", err)
		}
	}
	if deps.Chat != nil {
		o.sess = llm.NewSession(o.id, deps.Chat)
		o.sess.AddMessage("assistant", greeting, map[string]any{"action": "greeting"})
	}
	o.log.Append("assistant", greeting, "greeting")
}

func (o *Orchestrator) restoreFrom(rec *checkpoint.Record, chat model.ToolCallingChatModel) {
	state := rec.AgentState
	o.tracker.Restore(state.Fields)
	o.log.Restore(state.ConversationHistory)
	o.pending = state.PendingSuggestions
	o.awaitingConfirmation = state.AwaitingConfirmation
	o.ragSearchPerformed = state.RAGSearchPerformed
	o.initialExtractionDone = state.InitialExtractionDone
	o.lastAction = state.LastAction
	if !state.CreatedAt.IsZero() {
		o.createdAt = state.CreatedAt
	}
	o.restored = true

	if chat != nil {
		var llmState llm.State
		if len(rec.LLMState) > 0 && sonic.Unmarshal(rec.LLMState, &llmState) == nil {
			o.sess = llm.Restore(&llmState, chat)
		} else {
			o.sess = llm.NewSession(o.id, chat)
		}
	}
}

func (o *Orchestrator) buildEngines(chat model.ToolCallingChatModel) error {
	if o.sess == nil {
		o.engine = decision.LocalEngine{}
		o.classify = confirm.NewLocalClassifier()
		return nil
	}
	toolEngine, err := decision.NewToolBasedEngine(o.sess)
	if err != nil {
		return fmt.Errorf("build decision engine: %w", err)
	}
	toolClassifier, err := confirm.NewToolBasedClassifier(o.sess)
	if err != nil {
		return fmt.Errorf("build confirmation classifier: %w", err)
	}
	o.engine = decision.NewFailbackEngine(toolEngine, decision.LocalEngine{})
	o.classify = confirm.NewFailbackClassifier(toolClassifier, confirm.NewLocalClassifier())
	return nil
}

// Restored reports whether this orchestrator was rebuilt from a checkpoint.
func (o *Orchestrator) Restored() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.restored
}

// History returns the retained transcript, oldest first.
func (o *Orchestrator) History() []types.ConversationEntry {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.log.All()
}

// Status returns the current session snapshot.
func (o *Orchestrator) Status() *Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.statusLocked()
}

func (o *Orchestrator) statusLocked() *Status {
	return &Status{
		SessionID:             o.id,
		ProgressPct:           o.tracker.Progress(),
		FilledFields:          o.tracker.Filled(),
		EmptyFields:           o.tracker.Empty(),
		AwaitingConfirmation:  o.awaitingConfirmation,
		ConversationTurns:     o.log.Len(),
		LastAction:            o.lastAction,
		RAGSearchPerformed:    o.ragSearchPerformed,
		InitialExtractionDone: o.initialExtractionDone,
	}
}

// HandleMessage runs one full turn. The returned response is always usable;
// collaborator failures degrade to the local engines and persistence failures
// are logged, never surfaced.
func (o *Orchestrator) HandleMessage(ctx context.Context, message string) (*dispatch.Response, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if strings.TrimSpace(message) == "" {
		return &dispatch.Response{Type: "error", Message: "Empty message"}, nil
	}

	o.log.Append("user", message, "")

	var resp *dispatch.Response
	if o.awaitingConfirmation && len(o.pending) > 0 {
		resp = o.handleConfirmation(ctx, message)
	} else {
		resp = o.handleRegular(ctx, message)
	}

	o.log.Append("assistant", resp.Message, o.lastAction)
	o.saveCheckpoint(ctx)

	return resp, nil
}

func (o *Orchestrator) handleRegular(ctx context.Context, message string) *dispatch.Response {
	d, err := o.engine.Decide(ctx, message, o.agentState())
	if err != nil {
		// The failback chain ends in an engine that cannot fail; this
		// path only triggers when no local engine was configured.
		slog.Error("decision failed", "session_id", o.id, "error", err)
		d = &types.Decision{
			Action:        types.ActionClarify,
			MessageToUser: "I'm having trouble understanding. Could you rephrase that?",
		}
	}
	o.lastAction = string(d.Action)
	slog.Debug("decision", "session_id", o.id, "action", d.Action, "reasoning", d.Reasoning)

	resp := o.dispatch.Execute(ctx, d)

	if resp.Type == "suggestion_pending" && len(resp.Suggestions) > 0 {
		o.setPending(resp.Suggestions)
		if !o.initialExtractionDone {
			o.initialExtractionDone = true
		}
	}
	return resp
}

func (o *Orchestrator) handleConfirmation(ctx context.Context, message string) *dispatch.Response {
	result, err := o.classify.Classify(ctx, message, o.pending)
	if err != nil {
		slog.Error("confirmation classification failed", "session_id", o.id, "error", err)
		result = &types.ConfirmationResult{}
	}

	switch {
	case result.IsModificationRequest && len(result.ExtractedModifications) > 0:
		return o.applyModification(result.ExtractedModifications)
	case result.IsRejection:
		return o.rejectPending()
	case result.IsConfirmation && result.Confidence > confirmThreshold:
		return o.applyPending(ctx)
	default:
		return o.unclearConfirmation()
	}
}

func (o *Orchestrator) applyPending(ctx context.Context) *dispatch.Response {
	o.tracker.Update(o.pending)
	o.clearPending()
	o.lastAction = string(types.ActionApplySuggestions)

	var sb strings.Builder
	sb.WriteString("Applied!\n\n")
	writeFilled(&sb, o.tracker)
	fmt.Fprintf(&sb, "\nProgress: %.1f%%", o.tracker.Progress())
	message := sb.String()

	o.emit(&types.UIMessage{Type: "confirmation", Message: message})

	resp := &dispatch.Response{
		Type:        string(types.ActionApplySuggestions),
		Message:     message,
		ProgressPct: o.tracker.Progress(),
	}

	if !o.ragSearchPerformed && !o.tracker.IsComplete() {
		if ragMsg := o.autoTriggerRAG(ctx); ragMsg != "" {
			resp.Message += "\n\n" + ragMsg
			resp.Suggestions = o.pending
		}
	}
	return resp
}

func (o *Orchestrator) applyModification(mods map[string]string) *dispatch.Response {
	o.tracker.Update(mods)
	o.clearPending()
	o.lastAction = "modification"

	var sb strings.Builder
	sb.WriteString("Updated!\n\n")
	writeFilled(&sb, o.tracker)
	message := sb.String()

	o.emit(&types.UIMessage{Type: "modification", Message: message})

	return &dispatch.Response{
		Type:        "modification",
		Message:     message,
		ProgressPct: o.tracker.Progress(),
	}
}

func (o *Orchestrator) rejectPending() *dispatch.Response {
	o.clearPending()
	o.lastAction = "rejection"

	message := "No problem! What would you like to do instead?"
	o.emit(&types.UIMessage{Type: "rejection", Message: message})

	return &dispatch.Response{Type: "rejection", Message: message}
}

func (o *Orchestrator) unclearConfirmation() *dispatch.Response {
	// Pending suggestions stay live; the next message gets another chance.
	o.lastAction = "unclear_confirmation"

	message := "I'm not sure. Say 'yes' to apply, 'no' to cancel, or tell me what to change."
	o.emit(&types.UIMessage{Type: "clarification", Message: message, AwaitingConfirmation: true})

	return &dispatch.Response{Type: "unclear_confirmation", Message: message}
}

// autoTriggerRAG runs the one automatic retrieval pass per session. It marks
// the pass performed whether or not anything was found, so a fruitless search
// is never retried. Returns the follow-up message, or "" when nothing new
// turned up.
func (o *Orchestrator) autoTriggerRAG(ctx context.Context) string {
	o.ragSearchPerformed = true

	query := "study request"
	if problem, ok := o.tracker.Get("Problem"); ok {
		query = problem
	}

	result, err := o.searcher.Search(ctx, query)
	if err != nil {
		slog.Warn("auto retrieval failed", "session_id", o.id, "error", err)
		return ""
	}
	if result == nil || result.NumResults == 0 || len(result.FoundFields) == 0 {
		return ""
	}

	newSuggestions := make(map[string]string)
	for name, value := range result.FoundFields {
		if _, filled := o.tracker.Get(name); !filled {
			newSuggestions[name] = value
		}
	}
	if len(newSuggestions) == 0 {
		return ""
	}

	o.setPending(newSuggestions)

	message := dispatch.FormatSearchMessage(&types.SearchResult{
		FoundFields:    newSuggestions,
		NumResults:     result.NumResults,
		SimilarStudies: result.SimilarStudies,
	})
	o.emit(&types.UIMessage{
		Type:                 "suggestion",
		Message:              message,
		Suggestions:          newSuggestions,
		AwaitingConfirmation: true,
	})
	return message
}

func (o *Orchestrator) setPending(suggestions map[string]string) {
	pending := make(map[string]string, len(suggestions))
	for name, value := range suggestions {
		pending[name] = value
	}
	o.pending = pending
	o.awaitingConfirmation = true
}

func (o *Orchestrator) clearPending() {
	o.pending = nil
	o.awaitingConfirmation = false
}

func (o *Orchestrator) agentState() *decision.AgentState {
	return &decision.AgentState{
		ProgressPct:           o.tracker.Progress(),
		FilledFields:          o.tracker.Filled(),
		EmptyFields:           o.tracker.Empty(),
		AwaitingConfirmation:  o.awaitingConfirmation,
		PendingSuggestions:    o.pending,
		RAGSearchPerformed:    o.ragSearchPerformed,
		InitialExtractionDone: o.initialExtractionDone,
	}
}

// saveCheckpoint persists the turn's outcome. Failures are logged and
// swallowed; losing a checkpoint must never lose the turn.
func (o *Orchestrator) saveCheckpoint(ctx context.Context) {
	rec := &checkpoint.Record{
		SessionID: o.id,
		AgentState: checkpoint.AgentState{
			SessionID:             o.id,
			CreatedAt:             o.createdAt,
			ProgressPct:           o.tracker.Progress(),
			PendingSuggestions:    o.pending,
			AwaitingConfirmation:  o.awaitingConfirmation,
			RAGSearchPerformed:    o.ragSearchPerformed,
			InitialExtractionDone: o.initialExtractionDone,
			LastAction:            o.lastAction,
			Fields:                o.tracker.Snapshot(),
			ConversationHistory:   o.log.Snapshot(),
		},
		Schema: o.tracker.Schema().Fields(),
	}
	if o.sess != nil {
		if llmState, err := sonic.Marshal(o.sess.Snapshot()); err == nil {
			rec.LLMState = llmState
		} else {
			slog.Warn("marshal model state failed", "session_id", o.id, "error", err)
		}
	}
	if err := o.store.Save(ctx, o.id, rec); err != nil {
		slog.Warn("checkpoint save failed", "session_id", o.id, "error", err)
	}
}

func (o *Orchestrator) emit(msg *types.UIMessage) {
	if o.emitter == nil {
		return
	}
	msg.ProgressPct = o.tracker.Progress()
	msg.FilledFields = o.tracker.Filled()
	msg.EmptyFields = o.tracker.Empty()
	o.emitter.Emit(o.id, msg)
}

func writeFilled(sb *strings.Builder, tracker *form.Tracker) {
	filled := tracker.Filled()
	for _, name := range tracker.Schema().Names() {
		if value, ok := filled[name]; ok {
			fmt.Fprintf(sb, "- %s: %s\n", name, value)
		}
	}
}
