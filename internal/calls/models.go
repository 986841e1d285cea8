package calls

import (
	"time"

	"setter-platform/internal/leads"
)

// CallSession tracks one outbound call attempt from open to a terminal state.
//
// Ownership invariant: the session manager is the only writer. Provider
// adapters and the dialogue engine see copies, never the live struct.
//
// Turns are append-only; no turn is ever edited or removed.
type CallSession struct {
	CallID string `json:"call_id"`
	LeadID string `json:"lead_id"`
	Phone  string `json:"phone"`

	// Lead carries the identity fields used for prompt substitution.
	Lead leads.Lead `json:"lead"`

	// ProviderCallID is assigned once dialing begins and may arrive after
	// the session is created. It is immutable once set.
	ProviderCallID string `json:"provider_call_id,omitempty"`

	State CallState `json:"state"`

	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`

	Turns []Turn `json:"turns"`

	// Outcome is derived on terminal transition, never beforehand.
	Outcome *OutcomeResult `json:"outcome,omitempty"`

	// RecordingSID references the provider-side recording, if any.
	RecordingSID string `json:"recording_sid,omitempty"`
}

// DurationSeconds is the wall-clock span of the call, 0 while still open.
func (s CallSession) DurationSeconds() int {
	if s.EndedAt == nil {
		return 0
	}
	return int(s.EndedAt.Sub(s.StartedAt) / time.Second)
}

// Turn is one utterance in the conversation. Immutable once appended.
type Turn struct {
	// Speaker is the configured agent name for agent turns, or
	// CallerSpeaker for caller turns.
	Speaker   string    `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// CallerSpeaker identifies the human side of a turn.
const CallerSpeaker = "Caller"

// OutcomeResult is the terminal classification of a conversation.
type OutcomeResult struct {
	Category OutcomeCategory `json:"category"`

	// MeetingTime is the extracted meeting time, empty when absent.
	MeetingTime string `json:"meeting_time,omitempty"`
}

type OutcomeCategory string

const (
	OutcomePositiveMeeting OutcomeCategory = "positive_meeting"
	OutcomePositive        OutcomeCategory = "positive"
	OutcomeNegative        OutcomeCategory = "negative"
	OutcomeNeutral         OutcomeCategory = "neutral"
	OutcomeUnknown         OutcomeCategory = "unknown"
)

type CallState string

const (
	StatePending   CallState = "pending"
	StateDialing   CallState = "dialing"
	StateRinging   CallState = "ringing"
	StateActive    CallState = "active"
	StateCompleted CallState = "completed"
	StateFailed    CallState = "failed"
	StateBusy      CallState = "busy"
	StateNoAnswer  CallState = "no_answer"
	StateCanceled  CallState = "canceled"
)

// stateRank orders the live states so that transitions only ever move
// forward. Terminal states share a rank and are absorbing.
var stateRank = map[CallState]int{
	StatePending:   0,
	StateDialing:   1,
	StateRinging:   2,
	StateActive:    3,
	StateCompleted: 4,
	StateFailed:    4,
	StateBusy:      4,
	StateNoAnswer:  4,
	StateCanceled:  4,
}

// IsTerminal reports whether the state is absorbing.
func (s CallState) IsTerminal() bool {
	return stateRank[s] == 4
}

// canTransition applies the forward-only rule: a terminal state never
// changes, and a target at or below the current rank is a no-op. This is
// what makes event application idempotent and tolerant of provider-side
// reordering or redelivery.
func canTransition(from, to CallState) bool {
	if from.IsTerminal() {
		return false
	}
	return stateRank[to] > stateRank[from]
}

// StateForEvent maps a provider lifecycle event kind to the internal state.
// Unknown kinds return ok=false and must be dropped by the caller.
func StateForEvent(kind string) (CallState, bool) {
	switch kind {
	case "initiated":
		return StateDialing, true
	case "ringing":
		return StateRinging, true
	case "answered", "in-progress":
		return StateActive, true
	case "completed":
		return StateCompleted, true
	case "busy":
		return StateBusy, true
	case "failed":
		return StateFailed, true
	case "no-answer":
		return StateNoAnswer, true
	case "canceled":
		return StateCanceled, true
	default:
		return "", false
	}
}
