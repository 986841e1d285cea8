// Package outcome classifies a finished call's transcript into a disposition
// category and extracts a mentioned meeting time. Classification is keyword
// based and runs synchronously when a call reaches a terminal state.
package outcome

import (
	"strings"
	"unicode"

	"setter-platform/internal/calls"
)

var positiveKeywords = []string{
	"interested", "yes", "sure", "okay", "good", "great", "perfect",
	"meeting", "schedule", "tomorrow", "call back", "definitely",
	"absolutely", "of course", "sounds good", "that works",
}

var negativeKeywords = []string{
	"not interested", "no thanks", "busy", "not now", "later",
	"not available", "don't call", "stop calling",
	"no time", "too busy", "maybe later",
}

var meetingKeywords = []string{
	"meeting", "schedule", "tomorrow", "3 p.m.", "3 pm", "appointment",
	"call back", "follow up", "set up", "book",
}

// Time references in caller speech. Phrases are matched as substrings; the
// short words are matched on word boundaries so that "pm" never fires inside
// "equipment".
var (
	callerTimePhrases = []string{"3 p.m.", "3 pm", "3:00", "o'clock"}
	callerTimeWords   = map[string]bool{
		"pm": true, "am": true, "hour": true,
		"tomorrow": true, "today": true, "week": true,
	}
)

// Classify inspects the transcript and returns the call's disposition.
// Caller turns drive sentiment; agent turns drive meeting detection, so a
// scripted agent never marks its own pitch as caller interest. An empty
// transcript yields the unknown category.
func Classify(turns []calls.Turn, agentName string) calls.OutcomeResult {
	if len(turns) == 0 {
		return calls.OutcomeResult{Category: calls.OutcomeUnknown}
	}

	var positive, negative, meeting bool
	for _, t := range turns {
		text := strings.ToLower(t.Text)
		if t.Speaker == calls.CallerSpeaker {
			if !positive && containsAny(text, positiveKeywords) {
				positive = true
			}
			if !negative && containsAny(text, negativeKeywords) {
				negative = true
			}
		}
		if t.Speaker == agentName && !meeting && containsAny(text, meetingKeywords) {
			meeting = true
		}
	}

	res := calls.OutcomeResult{MeetingTime: extractMeetingTime(turns, agentName)}
	switch {
	case positive && meeting:
		res.Category = calls.OutcomePositiveMeeting
	case positive:
		res.Category = calls.OutcomePositive
	case negative:
		res.Category = calls.OutcomeNegative
	default:
		res.Category = calls.OutcomeNeutral
	}
	return res
}

// extractMeetingTime prefers the caller's own phrasing of the time. The
// agent's confirmation is only consulted when no caller turn mentioned a
// time, and then the value is canonical rather than verbatim.
func extractMeetingTime(turns []calls.Turn, agentName string) string {
	for _, t := range turns {
		if t.Speaker != calls.CallerSpeaker {
			continue
		}
		if mentionsTime(strings.ToLower(t.Text)) {
			return t.Text
		}
	}

	for _, t := range turns {
		if t.Speaker != agentName {
			continue
		}
		text := strings.ToLower(t.Text)
		switch {
		case strings.Contains(text, "3 p.m.") || strings.Contains(text, "3 pm"):
			return "3:00 PM MST"
		case strings.Contains(text, "tomorrow"):
			return "Tomorrow (Time TBD)"
		}
	}
	return ""
}

func mentionsTime(text string) bool {
	for _, p := range callerTimePhrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	for _, w := range strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}) {
		if callerTimeWords[w] {
			return true
		}
	}
	return false
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
