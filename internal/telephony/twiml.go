package telephony

import (
	"bytes"
	"encoding/xml"
	"errors"
)

// TwiML is a minimal Twilio Markup Language response builder.
// It intentionally avoids any provider SDK dependency.
//
// Only include primitives we need at the adapter boundary: speaking an
// utterance, gathering caller speech, and hanging up.

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any    `xml:",any"`
}

type twimlSay struct {
	XMLName xml.Name `xml:"Say"`
	Voice   string   `xml:"voice,attr,omitempty"`
	Text    string   `xml:",chardata"`
}

type twimlGather struct {
	XMLName       xml.Name `xml:"Gather"`
	Input         string   `xml:"input,attr"`
	Action        string   `xml:"action,attr"`
	Method        string   `xml:"method,attr,omitempty"`
	Timeout       int      `xml:"timeout,attr,omitempty"`
	SpeechTimeout string   `xml:"speechTimeout,attr,omitempty"`
	Language      string   `xml:"language,attr,omitempty"`
	SpeechModel   string   `xml:"speechModel,attr,omitempty"`
	Say           *twimlSay
}

type twimlHangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

// VoicePrompt describes one agent utterance plus the gather that collects the
// caller's reply.
type VoicePrompt struct {
	// Text is spoken to the caller.
	Text string
	// ActionURL receives the recognized speech (our speech webhook).
	ActionURL string

	Voice         string
	GatherTimeout int
	SpeechTimeout string
	Language      string
}

func (p VoicePrompt) withDefaults() VoicePrompt {
	out := p
	if out.Voice == "" {
		out.Voice = "alice"
	}
	if out.GatherTimeout <= 0 {
		out.GatherTimeout = 5
	}
	if out.SpeechTimeout == "" {
		out.SpeechTimeout = "auto"
	}
	if out.Language == "" {
		out.Language = "en-US"
	}
	return out
}

// goodbyeText is spoken when the gather times out or the session is gone.
const goodbyeText = "Thank you for your time. We'll follow up with you soon."

// RenderVoicePrompt speaks the utterance and gathers the caller's reply,
// falling through to a goodbye if nothing is said.
func RenderVoicePrompt(p VoicePrompt) (string, error) {
	p = p.withDefaults()
	if p.Text == "" {
		return "", errors.New("telephony: prompt text required")
	}
	if p.ActionURL == "" {
		return "", errors.New("telephony: gather action url required")
	}

	var r twimlResponse
	r.Verbs = append(r.Verbs, twimlGather{
		Input:         "speech",
		Action:        p.ActionURL,
		Method:        "POST",
		Timeout:       p.GatherTimeout,
		SpeechTimeout: p.SpeechTimeout,
		Language:      p.Language,
		SpeechModel:   "phone_call",
		Say:           &twimlSay{Voice: p.Voice, Text: p.Text},
	})
	r.Verbs = append(r.Verbs, twimlSay{Voice: p.Voice, Text: goodbyeText})

	return encodeTwiML(r)
}

// RenderGoodbye speaks a closing line and hangs up. Used when an event
// arrives for a session that is already terminal or unknown.
func RenderGoodbye() (string, error) {
	var r twimlResponse
	r.Verbs = append(r.Verbs, twimlSay{Voice: "alice", Text: goodbyeText})
	r.Verbs = append(r.Verbs, twimlHangup{})
	return encodeTwiML(r)
}

func encodeTwiML(r twimlResponse) (string, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
