package telephony

import (
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestParseStatusCallback(t *testing.T) {
	form := url.Values{}
	form.Set("CallSid", "CA123")
	form.Set("CallStatus", "ringing")

	req := httptest.NewRequest("POST", "/webhooks/twilio/status?call_id=c1", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	ev, err := ParseStatusCallback(req)
	if err != nil {
		t.Fatalf("ParseStatusCallback: %v", err)
	}
	if ev.CallID != "c1" || ev.ProviderCallID != "CA123" || ev.Kind != "ringing" {
		t.Fatalf("event = %+v", ev)
	}
	if !strings.Contains(ev.RawPayload, "CA123") {
		t.Errorf("raw payload missing form data: %s", ev.RawPayload)
	}
}

func TestParseStatusCallbackRecordingURL(t *testing.T) {
	form := url.Values{}
	form.Set("CallSid", "CA123")
	form.Set("RecordingUrl", "https://api.twilio.com/2010-04-01/Accounts/AC1/Recordings/RE42")

	req := httptest.NewRequest("POST", "/webhooks/twilio/status?call_id=c1", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	ev, err := ParseStatusCallback(req)
	if err != nil {
		t.Fatalf("ParseStatusCallback: %v", err)
	}
	if ev.RecordingSID != "RE42" {
		t.Fatalf("recording sid = %q, want RE42", ev.RecordingSID)
	}
}

func TestParseSpeechResult(t *testing.T) {
	form := url.Values{}
	form.Set("CallSid", "CA123")
	form.Set("SpeechResult", "  tomorrow at 3 PM would work  ")

	req := httptest.NewRequest("POST", "/webhooks/twilio/speech?call_id=c1", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	ev, err := ParseSpeechResult(req)
	if err != nil {
		t.Fatalf("ParseSpeechResult: %v", err)
	}
	if ev.CallID != "c1" || ev.Text != "tomorrow at 3 PM would work" {
		t.Fatalf("event = %+v", ev)
	}
}

func TestParseSpeechResultEmptyTranscription(t *testing.T) {
	form := url.Values{}
	form.Set("CallSid", "CA123")

	req := httptest.NewRequest("POST", "/webhooks/twilio/speech?call_id=c1", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	ev, err := ParseSpeechResult(req)
	if err != nil {
		t.Fatalf("ParseSpeechResult: %v", err)
	}
	if ev.Text != "" {
		t.Fatalf("text = %q, want empty", ev.Text)
	}
}

func TestRecordingSIDFromURL(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"https://api.twilio.com/2010-04-01/Accounts/AC1/Recordings/RE42", "RE42"},
		{"https://api.twilio.com/2010-04-01/Accounts/AC1/Recordings/RE42/Media", "RE42"},
		{"https://api.twilio.com/other", ""},
	}
	for _, tc := range cases {
		if got := recordingSIDFromURL(tc.in); got != tc.want {
			t.Errorf("recordingSIDFromURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"5551234567", "+15551234567"},
		{"+447700900123", "+447700900123"},
		{" 5551234567 ", "+15551234567"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := normalizePhone(tc.in); got != tc.want {
			t.Errorf("normalizePhone(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
