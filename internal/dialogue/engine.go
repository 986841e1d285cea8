// Package dialogue turns a call session's transcript into the agent's next
// utterance. The engine derives the conversation stage from the transcript
// length, builds a stage-specific system prompt around the configured persona,
// and delegates text generation to a pluggable Generator.
package dialogue

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"setter-platform/internal/calls"
	"setter-platform/internal/config"
)

// Stage identifies which phase of the sales conversation the agent is in.
type Stage string

const (
	StageOpening       Stage = "opening"
	StageQualification Stage = "qualification"
	StageScheduling    Stage = "scheduling"
)

// StageForTurnCount maps the number of recorded turns to a conversation
// stage. A fresh session with no turns gets the opening, the first couple of
// exchanges stay in qualification, everything after moves to scheduling.
func StageForTurnCount(n int) Stage {
	switch {
	case n == 0:
		return StageOpening
	case n <= 2:
		return StageQualification
	default:
		return StageScheduling
	}
}

// ApologyUtterance is spoken in place of a generated reply whenever the
// generator fails or returns empty text, so the caller never hears silence.
const ApologyUtterance = "I apologize, but I'm having trouble processing that right now. Could you please repeat?"

// Message is a single entry in the generation request, already mapped to the
// chat roles the provider understands.
type Message struct {
	Role    string
	Content string
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// CompletionRequest carries the system prompt and the bounded transcript
// window handed to a Generator.
type CompletionRequest struct {
	SystemPrompt string
	Messages     []Message
}

// Generator produces the agent's next utterance from a completion request.
// Implementations must be safe for concurrent use; the engine is shared
// across live calls.
type Generator interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Engine implements calls.Responder on top of a Generator and the configured
// agent persona.
type Engine struct {
	gen     Generator
	persona config.AgentConfig
	log     *slog.Logger
}

func NewEngine(gen Generator, persona config.AgentConfig, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{gen: gen, persona: persona, log: log}
}

// Reply generates the agent's next utterance for the given session snapshot.
// It never returns an empty string: generation failures degrade to the
// apology fallback so the call keeps moving.
func (e *Engine) Reply(ctx context.Context, rc calls.ReplyContext) string {
	stage := StageForTurnCount(len(rc.Turns))
	req := CompletionRequest{
		SystemPrompt: e.systemPrompt(stage, rc.Lead.FullName()),
		Messages:     e.window(rc.Turns),
	}

	out, err := e.gen.Complete(ctx, req)
	if err != nil {
		e.log.Error("utterance generation failed", "call_id", rc.CallID, "stage", string(stage), "error", err)
		return ApologyUtterance
	}
	out = strings.TrimSpace(out)
	if out == "" {
		e.log.Warn("generator returned empty utterance", "call_id", rc.CallID, "stage", string(stage))
		return ApologyUtterance
	}
	return out
}

// window maps the most recent turns to chat messages. The slice is bounded to
// MemoryTurns exchanges (two turns each) so long calls keep a fixed prompt
// size.
func (e *Engine) window(turns []calls.Turn) []Message {
	limit := e.persona.MemoryTurns * 2
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	msgs := make([]Message, 0, len(turns))
	for _, t := range turns {
		role := RoleUser
		if t.Speaker == e.persona.Name {
			role = RoleAssistant
		}
		msgs = append(msgs, Message{Role: role, Content: t.Text})
	}
	return msgs
}

func (e *Engine) systemPrompt(stage Stage, leadName string) string {
	p := e.persona
	switch stage {
	case StageOpening:
		return fmt.Sprintf(`You are %s, calling on behalf of %s from %s.

Start with a brief, warm introduction: "Hi %s, this is %s calling on behalf of %s from %s."
Then ask if they have a quick moment to discuss business financing.

Keep it short and natural - like a real person talking.
Don't give long speeches. Just introduce yourself and ask for their time.
Speak quickly and efficiently - no gaps or delays.
Respond immediately without hesitation.`,
			p.Name, p.ContactPerson, p.CompanyName,
			leadName, p.Name, p.ContactPerson, p.CompanyName)

	case StageQualification:
		return fmt.Sprintf(`You are %s from %s. Keep responses short and conversational.

Ask ONE question at a time:
- "What type of financing are you looking for?"
- "What's the purpose of the loan?"
- "What amount are you considering?"

Listen to their response and ask follow-up questions naturally.
If they ask about %s, give brief, helpful answers:
- "We offer business loans from $5K to $500K"
- "Rates start at 8%%"
- "Approval in 24-48 hours"

Be conversational, not scripted. Speak quickly and efficiently.
Respond immediately without delays.`,
			p.Name, p.CompanyName, p.CompanyName)

	default:
		return fmt.Sprintf(`You are %s from %s. %s is interested.

Move to scheduling naturally:
- "When would be a good time for %s to call you?"
- Don't ask for email - use the email from their lead profile
- Schedule the meeting and say %s will send calendar invite

Keep it simple and direct.
Don't over-explain.
Speak quickly and efficiently.
Respond immediately without delays.`,
			p.Name, p.CompanyName, leadName,
			p.ContactPerson, p.ContactPerson)
	}
}
