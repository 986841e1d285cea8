package telephony

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Webhook parsing for Twilio callbacks. Twilio sends
// application/x-www-form-urlencoded bodies; our own identifiers ride on the
// callback URL query string.
//
// Keep this adapter-only: no state decisions are made here.

// ParseStatusCallback normalizes a Twilio status callback into a StatusEvent.
func ParseStatusCallback(r *http.Request) (StatusEvent, error) {
	if err := r.ParseForm(); err != nil {
		return StatusEvent{}, err
	}

	ev := StatusEvent{
		CallID:         r.URL.Query().Get("call_id"),
		ProviderCallID: r.PostFormValue("CallSid"),
		Kind:           strings.TrimSpace(r.PostFormValue("CallStatus")),
		RecordingSID:   r.PostFormValue("RecordingSid"),
	}

	// Recording callbacks carry a URL rather than a bare SID.
	if ev.RecordingSID == "" {
		if u := r.PostFormValue("RecordingUrl"); u != "" {
			ev.RecordingSID = recordingSIDFromURL(u)
		}
	}

	raw, _ := json.Marshal(r.PostForm)
	ev.RawPayload = string(raw)
	return ev, nil
}

// SpeechEvent is a recognized caller utterance. Text may be empty when the
// caller spoke but nothing was transcribed.
type SpeechEvent struct {
	CallID         string `json:"call_id"`
	ProviderCallID string `json:"provider_call_id,omitempty"`
	Text           string `json:"text"`
}

// ParseSpeechResult extracts the recognized speech from a gather callback.
func ParseSpeechResult(r *http.Request) (SpeechEvent, error) {
	if err := r.ParseForm(); err != nil {
		return SpeechEvent{}, err
	}
	return SpeechEvent{
		CallID:         r.URL.Query().Get("call_id"),
		ProviderCallID: r.PostFormValue("CallSid"),
		Text:           strings.TrimSpace(r.PostFormValue("SpeechResult")),
	}, nil
}

func recordingSIDFromURL(u string) string {
	const marker = "/Recordings/"
	i := strings.Index(u, marker)
	if i < 0 {
		return ""
	}
	rest := u[i+len(marker):]
	if j := strings.IndexByte(rest, '/'); j >= 0 {
		rest = rest[:j]
	}
	return rest
}
