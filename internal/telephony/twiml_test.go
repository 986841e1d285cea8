package telephony

import (
	"strings"
	"testing"
)

func TestRenderVoicePrompt(t *testing.T) {
	out, err := RenderVoicePrompt(VoicePrompt{
		Text:      "Hi John, do you have a quick moment?",
		ActionURL: "https://example.com/webhooks/twilio/speech?call_id=c1",
	})
	if err != nil {
		t.Fatalf("RenderVoicePrompt: %v", err)
	}
	for _, want := range []string{
		`<Gather input="speech"`,
		`action="https://example.com/webhooks/twilio/speech?call_id=c1"`,
		`speechModel="phone_call"`,
		`voice="alice"`,
		"Hi John, do you have a quick moment?",
		goodbyeText,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered TwiML missing %q:\n%s", want, out)
		}
	}
	if !strings.HasPrefix(out, "<?xml") {
		t.Errorf("missing xml header:\n%s", out)
	}
}

func TestRenderVoicePromptRequiresTextAndAction(t *testing.T) {
	if _, err := RenderVoicePrompt(VoicePrompt{ActionURL: "https://x"}); err == nil {
		t.Error("empty text must be rejected")
	}
	if _, err := RenderVoicePrompt(VoicePrompt{Text: "hi"}); err == nil {
		t.Error("empty action url must be rejected")
	}
}

func TestRenderGoodbye(t *testing.T) {
	out, err := RenderGoodbye()
	if err != nil {
		t.Fatalf("RenderGoodbye: %v", err)
	}
	if !strings.Contains(out, "<Hangup") {
		t.Errorf("goodbye must hang up:\n%s", out)
	}
	if !strings.Contains(out, goodbyeText) {
		t.Errorf("goodbye must speak the closing line:\n%s", out)
	}
}
