// Package dispatch maps classified decisions to their side effects and
// response payloads.
package dispatch

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dbhatt90/StudyBotAgent/form"
	"github.com/dbhatt90/StudyBotAgent/retrieval"
	"github.com/dbhatt90/StudyBotAgent/types"
)

// TicketPrefix heads every generated ticket identifier.
const TicketPrefix = "STUDY"

// Emitter pushes structured UI events to whoever is watching the session.
type Emitter interface {
	Emit(sessionID string, msg *types.UIMessage)
}

// Response is the typed result of one dispatched action. Degraded outcomes
// (missing extraction, incomplete form, no results) are response variants,
// never errors.
type Response struct {
	Type        string            `json:"type"`
	Message     string            `json:"message"`
	Suggestions map[string]string `json:"suggestions,omitempty"`
	ProgressPct float64           `json:"progress_pct,omitempty"`
	TicketID    string            `json:"ticket_id,omitempty"`
	TicketData  map[string]string `json:"ticket_data,omitempty"`
}

// Dispatcher executes one session's actions. State transitions stay with the
// orchestrator: a suggestion_pending response requests awaiting-confirmation,
// the dispatcher never sets the flag itself.
type Dispatcher struct {
	sessionID string
	tracker   *form.Tracker
	searcher  retrieval.Searcher
	emitter   Emitter
	now       func() time.Time
}

func NewDispatcher(sessionID string, tracker *form.Tracker, searcher retrieval.Searcher, emitter Emitter) *Dispatcher {
	return &Dispatcher{
		sessionID: sessionID,
		tracker:   tracker,
		searcher:  searcher,
		emitter:   emitter,
		now:       time.Now,
	}
}

// Execute runs the decision's action. Unknown actions degrade to a generic
// error response rather than propagating.
func (d *Dispatcher) Execute(ctx context.Context, decision *types.Decision) *Response {
	switch decision.Action {
	case types.ActionSuggestFields:
		return d.suggestFields(decision)
	case types.ActionUpdateField:
		return d.updateField(decision)
	case types.ActionSearchRAG:
		return d.searchRAG(ctx, decision)
	case types.ActionSubmitForm:
		return d.submitForm(decision)
	case types.ActionClarify:
		return d.clarify(decision)
	case types.ActionGenericResponse:
		return d.genericResponse(decision)
	default:
		return &Response{Type: "error", Message: fmt.Sprintf("Unknown action: %s", decision.Action)}
	}
}

func (d *Dispatcher) suggestFields(decision *types.Decision) *Response {
	if len(decision.SuggestedFields) == 0 {
		return &Response{
			Type:    "error",
			Message: "No fields extracted. Could you provide them one at a time?",
		}
	}

	var sb strings.Builder
	sb.WriteString("I found these values:\n\n")
	writeFieldLines(&sb, decision.SuggestedFields)
	sb.WriteString("\nSay 'yes' to apply, or tell me what to change.")

	d.emit(&types.UIMessage{
		Type:                 "suggestion",
		Message:              sb.String(),
		Suggestions:          decision.SuggestedFields,
		AwaitingConfirmation: true,
	})

	return &Response{
		Type:        "suggestion_pending",
		Message:     sb.String(),
		Suggestions: decision.SuggestedFields,
	}
}

func (d *Dispatcher) updateField(decision *types.Decision) *Response {
	if decision.FieldName == "" || decision.FieldValue == "" {
		return &Response{Type: "error", Message: "Couldn't extract field and value"}
	}

	d.tracker.Update(map[string]string{decision.FieldName: decision.FieldValue})
	progress := d.tracker.Progress()

	var sb strings.Builder
	fmt.Fprintf(&sb, "Updated %s: %s\n\nProgress: %.1f%%", decision.FieldName, decision.FieldValue, progress)
	if !d.tracker.IsComplete() {
		empty := d.tracker.Empty()
		if len(empty) > 3 {
			empty = empty[:3]
		}
		fmt.Fprintf(&sb, "\n\nStill need: %s", strings.Join(empty, ", "))
	}

	d.emit(&types.UIMessage{Type: "field_updated", Message: sb.String()})

	return &Response{Type: "field_updated", Message: sb.String(), ProgressPct: progress}
}

func (d *Dispatcher) searchRAG(ctx context.Context, decision *types.Decision) *Response {
	query := decision.SearchQuery
	if query == "" {
		if problem, ok := d.tracker.Get("Problem"); ok {
			query = problem
		} else {
			query = "study request"
		}
	}

	result, err := d.searcher.Search(ctx, query)
	if err != nil || result == nil || result.NumResults == 0 || len(result.FoundFields) == 0 {
		return &Response{
			Type:    "no_results",
			Message: "No similar studies found. Please provide field values.",
		}
	}

	message := FormatSearchMessage(result)

	d.emit(&types.UIMessage{
		Type:                 "suggestion",
		Message:              message,
		Suggestions:          result.FoundFields,
		AwaitingConfirmation: true,
	})

	return &Response{
		Type:        "suggestion_pending",
		Message:     message,
		Suggestions: result.FoundFields,
	}
}

func (d *Dispatcher) submitForm(decision *types.Decision) *Response {
	if !d.tracker.IsComplete() {
		return &Response{
			Type:    "incomplete",
			Message: fmt.Sprintf("Form incomplete. Missing: %s", strings.Join(d.tracker.Empty(), ", ")),
		}
	}

	// Submission is a read, not a reset: the tracker keeps its values.
	ticketID := fmt.Sprintf("%s-%s", TicketPrefix, d.now().Format("20060102-150405"))
	ticketData := d.tracker.Filled()

	var sb strings.Builder
	fmt.Fprintf(&sb, "Study ticket created!\n\nTicket ID: %s\n\n", ticketID)
	writeFieldLines(&sb, ticketData)

	d.emit(&types.UIMessage{
		Type:     "submitted",
		Message:  sb.String(),
		Metadata: map[string]any{"ticket_id": ticketID},
	})

	return &Response{
		Type:       "submitted",
		Message:    sb.String(),
		TicketID:   ticketID,
		TicketData: ticketData,
	}
}

func (d *Dispatcher) clarify(decision *types.Decision) *Response {
	d.emit(&types.UIMessage{Type: "clarify", Message: decision.MessageToUser})
	return &Response{Type: "clarify", Message: decision.MessageToUser}
}

func (d *Dispatcher) genericResponse(decision *types.Decision) *Response {
	message := decision.MessageToUser
	if message == "" {
		message = "I'm here to help you create study tickets!"
	}
	d.emit(&types.UIMessage{Type: "generic_response", Message: message})
	return &Response{Type: "generic_response", Message: message}
}

// emit fills in the live form snapshot every UI event carries.
func (d *Dispatcher) emit(msg *types.UIMessage) {
	if d.emitter == nil {
		return
	}
	msg.ProgressPct = d.tracker.Progress()
	msg.FilledFields = d.tracker.Filled()
	msg.EmptyFields = d.tracker.Empty()
	d.emitter.Emit(d.sessionID, msg)
}

// FormatSearchMessage renders retrieval results for the user, including up to
// two reference studies.
func FormatSearchMessage(result *types.SearchResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d similar studies!\n\n", result.NumResults)
	writeFieldLines(&sb, result.FoundFields)
	if len(result.SimilarStudies) > 0 {
		sb.WriteString("\nReferences:\n")
		refs := result.SimilarStudies
		if len(refs) > 2 {
			refs = refs[:2]
		}
		for _, study := range refs {
			sb.WriteString("- " + study + "\n")
		}
	}
	sb.WriteString("\nSay 'yes' to apply these values.")
	return sb.String()
}

func writeFieldLines(sb *strings.Builder, fields map[string]string) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(sb, "- %s: %s\n", name, fields[name])
	}
}
