package outcome

import (
	"testing"

	"setter-platform/internal/calls"
)

const agent = "Maayaa"

func caller(text string) calls.Turn {
	return calls.Turn{Speaker: calls.CallerSpeaker, Text: text}
}

func agentTurn(text string) calls.Turn {
	return calls.Turn{Speaker: agent, Text: text}
}

func TestClassifyEmptyTranscript(t *testing.T) {
	res := Classify(nil, agent)
	if res.Category != calls.OutcomeUnknown {
		t.Fatalf("empty transcript classified as %q, want %q", res.Category, calls.OutcomeUnknown)
	}
}

func TestClassifyScheduledMeetingKeepsCallerPhrase(t *testing.T) {
	turns := []calls.Turn{
		caller("I need equipment financing"),
		caller("around $50,000 for kitchen equipment"),
		caller("tomorrow at 3 PM would work"),
		agentTurn("I've scheduled your meeting with Ryan for 3 p.m. tomorrow"),
	}
	res := Classify(turns, agent)
	if res.Category != calls.OutcomePositiveMeeting {
		t.Fatalf("category = %q, want %q", res.Category, calls.OutcomePositiveMeeting)
	}
	if res.MeetingTime != "tomorrow at 3 PM would work" {
		t.Fatalf("meeting time = %q, want the caller's own phrase", res.MeetingTime)
	}
}

func TestClassifyPositiveWithoutMeeting(t *testing.T) {
	turns := []calls.Turn{
		agentTurn("Do you have a quick moment?"),
		caller("Sure, sounds good"),
	}
	res := Classify(turns, agent)
	if res.Category != calls.OutcomePositive {
		t.Fatalf("category = %q, want %q", res.Category, calls.OutcomePositive)
	}
	if res.MeetingTime != "" {
		t.Errorf("unexpected meeting time %q", res.MeetingTime)
	}
}

func TestClassifyNegative(t *testing.T) {
	turns := []calls.Turn{
		agentTurn("Do you have a quick moment?"),
		caller("Not interested, stop calling"),
	}
	res := Classify(turns, agent)
	if res.Category != calls.OutcomeNegative {
		t.Fatalf("category = %q, want %q", res.Category, calls.OutcomeNegative)
	}
}

func TestClassifyNeutralWhenNoSignal(t *testing.T) {
	turns := []calls.Turn{
		agentTurn("Do you have a quick moment?"),
		caller("Who gave you this number?"),
	}
	res := Classify(turns, agent)
	if res.Category != calls.OutcomeNeutral {
		t.Fatalf("category = %q, want %q", res.Category, calls.OutcomeNeutral)
	}
}

func TestClassifyAgentPitchDoesNotCountAsCallerInterest(t *testing.T) {
	// The agent mentioning scheduling must not flip sentiment on its own.
	turns := []calls.Turn{
		agentTurn("Would you like to schedule a meeting tomorrow?"),
		caller("I have to go"),
	}
	res := Classify(turns, agent)
	if res.Category != calls.OutcomeNeutral {
		t.Fatalf("category = %q, want %q", res.Category, calls.OutcomeNeutral)
	}
}

func TestExtractMeetingTimeFallsBackToAgentConfirmation(t *testing.T) {
	turns := []calls.Turn{
		caller("Yes, that works for me"),
		agentTurn("Great, I'll schedule you for 3 p.m. then"),
	}
	res := Classify(turns, agent)
	if res.Category != calls.OutcomePositiveMeeting {
		t.Fatalf("category = %q, want %q", res.Category, calls.OutcomePositiveMeeting)
	}
	if res.MeetingTime != "3:00 PM MST" {
		t.Fatalf("meeting time = %q, want canonical agent confirmation", res.MeetingTime)
	}
}

func TestExtractMeetingTimeAgentTomorrow(t *testing.T) {
	turns := []calls.Turn{
		caller("Yes, definitely"),
		agentTurn("Perfect, Ryan will call you tomorrow"),
	}
	res := Classify(turns, agent)
	if res.MeetingTime != "Tomorrow (Time TBD)" {
		t.Fatalf("meeting time = %q, want tomorrow placeholder", res.MeetingTime)
	}
}

func TestTimeTokenDoesNotFireInsideWords(t *testing.T) {
	turns := []calls.Turn{
		caller("I need equipment financing"),
	}
	res := Classify(turns, agent)
	if res.MeetingTime != "" {
		t.Fatalf("meeting time = %q, want none for a turn with no time reference", res.MeetingTime)
	}
}
