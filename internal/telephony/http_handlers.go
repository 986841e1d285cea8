package telephony

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"setter-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// CallCore is the slice of the session manager the webhook surface needs.
// Defined here so the adapter never depends on core internals.
//
// Greet and HandleSpeech return ok=false when no live session matches the
// identifier; the handler then plays a goodbye instead of failing the call.
type CallCore interface {
	ApplyEvent(ctx context.Context, ev StatusEvent)
	Greet(ctx context.Context, identifier string) (utterance string, ok bool)
	HandleSpeech(ctx context.Context, identifier, text string) (utterance string, ok bool)
}

// WebhookHandler converts Twilio callbacks to internal calls and writes TwiML.
//
// No business logic here: state decisions live in the session manager, and a
// malformed or unroutable event never returns an error status that would make
// the provider retry indefinitely.
type WebhookHandler struct {
	Core CallCore

	// BaseURL is the public webhook base used for gather action URLs.
	BaseURL string
}

func (h WebhookHandler) speechActionURL(callID string) string {
	return fmt.Sprintf("%s/webhooks/twilio/speech?call_id=%s", h.BaseURL, url.QueryEscape(callID))
}

// HandleVoice answers the call: the session manager produces the opening
// utterance and the response gathers the caller's first reply.
func (h WebhookHandler) HandleVoice(c *gin.Context) {
	log := logger.FromGin(c)

	identifier := c.Query("call_id")
	if identifier == "" {
		identifier = c.PostForm("CallSid")
	}
	if identifier == "" {
		log.Warn("voice webhook without identifier")
		h.writeGoodbye(c)
		return
	}

	utterance, ok := h.Core.Greet(c.Request.Context(), identifier)
	if !ok {
		log.Warn("voice webhook for unknown or finished session", "identifier", identifier)
		h.writeGoodbye(c)
		return
	}

	h.writePrompt(c, identifier, utterance)
}

// HandleSpeech feeds the recognized caller utterance to the dialogue engine
// and speaks the reply.
func (h WebhookHandler) HandleSpeech(c *gin.Context) {
	log := logger.FromGin(c)

	ev, err := ParseSpeechResult(c.Request)
	if err != nil {
		log.Warn("speech webhook parse failed", "err", err)
		h.writeGoodbye(c)
		return
	}
	identifier := ev.CallID
	if identifier == "" {
		identifier = ev.ProviderCallID
	}
	if identifier == "" {
		log.Warn("speech webhook without identifier")
		h.writeGoodbye(c)
		return
	}

	utterance, ok := h.Core.HandleSpeech(c.Request.Context(), identifier, ev.Text)
	if !ok {
		log.Warn("speech webhook for unknown or finished session", "identifier", identifier)
		h.writeGoodbye(c)
		return
	}

	h.writePrompt(c, identifier, utterance)
}

// HandleStatus translates a lifecycle callback into a state transition.
// Always 200: Twilio retries non-2xx responses and redelivery is already
// handled by the core's idempotent transitions.
func (h WebhookHandler) HandleStatus(c *gin.Context) {
	log := logger.FromGin(c)

	ev, err := ParseStatusCallback(c.Request)
	if err != nil {
		log.Warn("status webhook parse failed", "err", err)
		c.JSON(http.StatusOK, gin.H{"success": false})
		return
	}

	h.Core.ApplyEvent(c.Request.Context(), ev)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h WebhookHandler) writePrompt(c *gin.Context, callID, utterance string) {
	log := logger.FromGin(c)

	twiml, err := RenderVoicePrompt(VoicePrompt{
		Text:      utterance,
		ActionURL: h.speechActionURL(callID),
	})
	if err != nil {
		log.Error("twiml render failed", "err", err)
		h.writeGoodbye(c)
		return
	}
	c.Header("Content-Type", "application/xml")
	c.String(http.StatusOK, twiml)
}

func (h WebhookHandler) writeGoodbye(c *gin.Context) {
	twiml, err := RenderGoodbye()
	if err != nil {
		c.String(http.StatusOK, "")
		return
	}
	c.Header("Content-Type", "application/xml")
	c.String(http.StatusOK, twiml)
}
