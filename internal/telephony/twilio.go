package telephony

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"setter-platform/internal/config"
)

// TwilioDialer places outbound calls through the Twilio REST API.
//
// Webhook contract:
// - Url        -> POST {base}/webhooks/twilio/voice?call_id=...&lead_id=...
// - StatusCallback -> POST {base}/webhooks/twilio/status?call_id=...
//   with StatusCallbackEvent for initiated/ringing/answered/completed.
// The remaining terminal kinds (busy, failed, no-answer, canceled) arrive on
// the same status callback without needing to be listed.
type TwilioDialer struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string

	httpClient *http.Client
}

const twilioAPIBase = "https://api.twilio.com/2010-04-01"

func NewTwilioDialer(cfg config.TwilioConfig) *TwilioDialer {
	return &TwilioDialer{
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		from:       cfg.FromNumber,
		baseURL:    cfg.WebhookBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (d *TwilioDialer) Name() string { return "twilio" }

func (d *TwilioDialer) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/Accounts/%s.json", twilioAPIBase, d.accountSID), nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(d.accountSID, d.authToken)
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telephony: twilio account fetch returned %d", resp.StatusCode)
	}
	return nil
}

func (d *TwilioDialer) PlaceCall(ctx context.Context, req DialRequest) (DialResult, error) {
	if req.CallID == "" || req.To == "" {
		return DialResult{}, errors.New("telephony: call_id and to are required")
	}

	voiceURL := fmt.Sprintf("%s/webhooks/twilio/voice?call_id=%s&lead_id=%s",
		d.baseURL, url.QueryEscape(req.CallID), url.QueryEscape(req.LeadID))
	statusURL := fmt.Sprintf("%s/webhooks/twilio/status?call_id=%s",
		d.baseURL, url.QueryEscape(req.CallID))

	form := url.Values{}
	form.Set("To", normalizePhone(req.To))
	form.Set("From", d.from)
	form.Set("Url", voiceURL)
	form.Set("StatusCallback", statusURL)
	for _, ev := range []string{"initiated", "ringing", "answered", "completed"} {
		form.Add("StatusCallbackEvent", ev)
	}
	form.Set("Record", "true")
	form.Set("RecordingStatusCallback", statusURL)
	form.Set("Timeout", "30")

	endpoint := fmt.Sprintf("%s/Accounts/%s/Calls.json", twilioAPIBase, d.accountSID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return DialResult{}, err
	}
	httpReq.SetBasicAuth(d.accountSID, d.authToken)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		return DialResult{}, fmt.Errorf("telephony: twilio call create failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return DialResult{}, fmt.Errorf("telephony: twilio call create returned %d", resp.StatusCode)
	}

	var body struct {
		Sid string `json:"sid"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return DialResult{}, fmt.Errorf("telephony: twilio response decode failed: %w", err)
	}
	if body.Sid == "" {
		return DialResult{}, errors.New("telephony: twilio response missing sid")
	}
	return DialResult{ProviderCallID: body.Sid}, nil
}

// RecordingMediaURL builds the authenticated-fetch URL for a recording.
func (d *TwilioDialer) RecordingMediaURL(recordingSID string) string {
	return fmt.Sprintf("%s/Accounts/%s/Recordings/%s/Media", twilioAPIBase, d.accountSID, recordingSID)
}

// normalizePhone applies the provider's expected E.164-ish shape.
// CRM numbers frequently arrive as bare 10-digit US numbers.
func normalizePhone(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "+") {
		return s
	}
	return "+1" + s
}
