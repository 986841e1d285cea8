package telephony

import (
	"context"
)

// Dialer defines the provider-agnostic outbound calling interface used by the
// call core.
//
// Rules:
// - No provider SDK calls outside telephony adapters.
// - Keep request/response types provider-agnostic; webhook payload quirks are
//   translated here, never in business logic.
// - Retry/backoff policy against the provider belongs to the adapter, not to
//   the session manager.
type Dialer interface {
	Name() string
	HealthCheck(ctx context.Context) error

	PlaceCall(ctx context.Context, req DialRequest) (DialResult, error)
}

// DialRequest asks the provider to place one outbound call.
type DialRequest struct {
	// CallID is the internal session identifier; it is propagated to the
	// provider's webhook URLs so events can be correlated back.
	CallID string `json:"call_id"`
	LeadID string `json:"lead_id"`

	// To is the destination number, E.164 where possible.
	To string `json:"to"`
}

// DialResult reports what the provider assigned to the call.
type DialResult struct {
	// ProviderCallID is the provider's unique identifier for this call
	// (Twilio CallSid). Recorded on the session once available.
	ProviderCallID string `json:"provider_call_id"`
}

// StatusEvent is a normalized lifecycle webhook event.
//
// Either CallID (from our own callback URL) or ProviderCallID (always sent by
// the provider) identifies the session; the core resolves in that order.
type StatusEvent struct {
	CallID         string `json:"call_id,omitempty"`
	ProviderCallID string `json:"provider_call_id"`

	// Kind is the provider lifecycle kind: initiated, ringing, answered,
	// in-progress, completed, busy, failed, no-answer, canceled.
	Kind string `json:"kind"`

	// RecordingSID references a call recording when the event carries one.
	RecordingSID string `json:"recording_sid,omitempty"`

	// RawPayload is optional for debugging/audit; store as JSON string.
	RawPayload string `json:"raw_payload,omitempty"`
}
