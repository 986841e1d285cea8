package dialogue

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"setter-platform/internal/calls"
	"setter-platform/internal/config"
	"setter-platform/internal/leads"
)

type fakeGenerator struct {
	reply string
	err   error
	last  CompletionRequest
}

func (f *fakeGenerator) Complete(_ context.Context, req CompletionRequest) (string, error) {
	f.last = req
	return f.reply, f.err
}

func testPersona() config.AgentConfig {
	return config.AgentConfig{
		Name:          "Maayaa",
		CompanyName:   "LoanCater",
		ContactPerson: "Ryan",
		ContactEmail:  "ryan@loancater.com",
		MemoryTurns:   5,
	}
}

func turn(speaker, text string) calls.Turn {
	return calls.Turn{Speaker: speaker, Text: text, Timestamp: time.Now()}
}

func TestStageForTurnCount(t *testing.T) {
	cases := []struct {
		turns int
		want  Stage
	}{
		{0, StageOpening},
		{1, StageQualification},
		{2, StageQualification},
		{3, StageScheduling},
		{10, StageScheduling},
	}
	for _, tc := range cases {
		if got := StageForTurnCount(tc.turns); got != tc.want {
			t.Errorf("StageForTurnCount(%d) = %q, want %q", tc.turns, got, tc.want)
		}
	}
}

func TestReplyOpeningPromptIncludesLeadName(t *testing.T) {
	gen := &fakeGenerator{reply: "Hi John, this is Maayaa."}
	eng := NewEngine(gen, testPersona(), nil)

	rc := calls.ReplyContext{
		CallID: "c1",
		Lead:   leads.Lead{FirstName: "John", LastName: "Smith"},
	}
	out := eng.Reply(context.Background(), rc)
	if out != "Hi John, this is Maayaa." {
		t.Fatalf("unexpected reply %q", out)
	}
	if !strings.Contains(gen.last.SystemPrompt, "Hi John Smith, this is Maayaa calling on behalf of Ryan from LoanCater.") {
		t.Errorf("opening prompt missing introduction line:\n%s", gen.last.SystemPrompt)
	}
	if len(gen.last.Messages) != 0 {
		t.Errorf("opening request should carry no history, got %d messages", len(gen.last.Messages))
	}
}

func TestReplyStageFollowsTranscriptLength(t *testing.T) {
	gen := &fakeGenerator{reply: "ok"}
	eng := NewEngine(gen, testPersona(), nil)

	rc := calls.ReplyContext{
		CallID: "c1",
		Lead:   leads.Lead{FirstName: "Jane"},
		Turns:  []calls.Turn{turn("Maayaa", "Hi Jane")},
	}
	eng.Reply(context.Background(), rc)
	if !strings.Contains(gen.last.SystemPrompt, "What type of financing") {
		t.Errorf("one turn should select qualification, got:\n%s", gen.last.SystemPrompt)
	}

	rc.Turns = []calls.Turn{
		turn("Maayaa", "Hi Jane"),
		turn("Caller", "Sure, I have a minute"),
		turn("Maayaa", "What type of financing are you looking for?"),
	}
	eng.Reply(context.Background(), rc)
	if !strings.Contains(gen.last.SystemPrompt, "When would be a good time for Ryan") {
		t.Errorf("three turns should select scheduling, got:\n%s", gen.last.SystemPrompt)
	}
}

func TestReplyMapsSpeakersToRoles(t *testing.T) {
	gen := &fakeGenerator{reply: "ok"}
	eng := NewEngine(gen, testPersona(), nil)

	rc := calls.ReplyContext{
		CallID: "c1",
		Lead:   leads.Lead{FirstName: "Jane"},
		Turns: []calls.Turn{
			turn("Maayaa", "Hi Jane"),
			turn("Caller", "Who is this?"),
		},
	}
	eng.Reply(context.Background(), rc)

	if len(gen.last.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(gen.last.Messages))
	}
	if gen.last.Messages[0].Role != RoleAssistant {
		t.Errorf("agent turn mapped to role %q, want %q", gen.last.Messages[0].Role, RoleAssistant)
	}
	if gen.last.Messages[1].Role != RoleUser {
		t.Errorf("caller turn mapped to role %q, want %q", gen.last.Messages[1].Role, RoleUser)
	}
}

func TestReplyWindowIsBounded(t *testing.T) {
	persona := testPersona()
	persona.MemoryTurns = 2
	gen := &fakeGenerator{reply: "ok"}
	eng := NewEngine(gen, persona, nil)

	var turns []calls.Turn
	for i := 0; i < 10; i++ {
		speaker := "Caller"
		if i%2 == 0 {
			speaker = "Maayaa"
		}
		turns = append(turns, turn(speaker, "turn"))
	}
	turns = append(turns, turn("Caller", "most recent"))

	eng.Reply(context.Background(), calls.ReplyContext{CallID: "c1", Turns: turns})

	if len(gen.last.Messages) != 4 {
		t.Fatalf("expected window of 4 messages, got %d", len(gen.last.Messages))
	}
	last := gen.last.Messages[len(gen.last.Messages)-1]
	if last.Content != "most recent" {
		t.Errorf("window dropped the most recent turn, last = %q", last.Content)
	}
}

func TestReplyFallsBackOnGeneratorError(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("rate limited")}
	eng := NewEngine(gen, testPersona(), nil)

	out := eng.Reply(context.Background(), calls.ReplyContext{CallID: "c1"})
	if out != ApologyUtterance {
		t.Fatalf("expected apology fallback, got %q", out)
	}
}

func TestReplyFallsBackOnEmptyUtterance(t *testing.T) {
	gen := &fakeGenerator{reply: "   "}
	eng := NewEngine(gen, testPersona(), nil)

	out := eng.Reply(context.Background(), calls.ReplyContext{CallID: "c1"})
	if out != ApologyUtterance {
		t.Fatalf("expected apology fallback, got %q", out)
	}
}
