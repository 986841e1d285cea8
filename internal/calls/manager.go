package calls

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"setter-platform/internal/leads"
	"setter-platform/internal/telephony"

	"github.com/google/uuid"
)

// Responder produces the next agent utterance for a session. It must never
// fail: generation faults degrade to a fixed apology inside the implementation.
type Responder interface {
	Reply(ctx context.Context, rc ReplyContext) string
}

// ReplyContext is the copied-out session state handed to the dialogue engine.
// It is a snapshot: the engine never sees the live session. The pending
// caller turn, if any, is already the last element of Turns.
type ReplyContext struct {
	CallID string
	Lead   leads.Lead
	Turns  []Turn
}

// SnapshotRepo durably stores session snapshots. Saves are full-session
// upserts; records are never deleted.
type SnapshotRepo interface {
	Save(ctx context.Context, s CallSession) error
	FindByCallID(ctx context.Context, callID string) (CallSession, bool, error)
	FindByProviderCallID(ctx context.Context, providerCallID string) (CallSession, bool, error)
}

// Auditor records internal call events, best-effort.
type Auditor interface {
	LogCallEvent(ctx context.Context, eventType, callID, leadID, message string) error
}

// ClassifyFunc derives the terminal outcome from the turn history.
type ClassifyFunc func(turns []Turn, agentName string) OutcomeResult

// LeadStatusWriter pushes the finished call's state and outcome back onto the
// lead's CRM record. Write-back is best-effort and never blocks the call flow.
type LeadStatusWriter interface {
	UpdateStatus(ctx context.Context, leadID, status, outcome string) error
}

var ErrInvalidArgument = errors.New("calls: invalid argument")

// placeholderSpeech stands in for a caller utterance that produced no
// transcription. The turn is kept rather than dropped.
const placeholderSpeech = "User spoke but no text was captured"

type entry struct {
	mu      sync.Mutex
	s       *CallSession
	evictAt time.Time
}

// Manager is the authoritative state machine over active call sessions.
//
// Locking discipline:
// - mu guards the lookup tables only.
// - each entry has its own mutex; events for different calls never block
//   each other, events for the same call are strictly serialized.
// - slow collaborator calls (dial, generation) run outside every lock:
//   copy state out, call, re-acquire, apply the result.
type Manager struct {
	dialer     telephony.Dialer
	responder  Responder
	classify   ClassifyFunc
	snapshots  SnapshotRepo
	audit      Auditor
	leadStatus LeadStatusWriter
	log        *slog.Logger

	agentName     string
	evictionGrace time.Duration
	clock         func() time.Time

	mu         sync.RWMutex
	byCall     map[string]*entry
	byProvider map[string]string
	openLeads  map[string]string
}

type ManagerOptions struct {
	AgentName     string
	EvictionGrace time.Duration
	// LeadStatus, when set, receives the terminal state and outcome of every
	// finished call.
	LeadStatus LeadStatusWriter
}

func NewManager(dialer telephony.Dialer, responder Responder, classify ClassifyFunc, snapshots SnapshotRepo, audit Auditor, log *slog.Logger, opts ManagerOptions) *Manager {
	if log == nil {
		log = slog.Default()
	}
	if opts.AgentName == "" {
		opts.AgentName = "Agent"
	}
	if opts.EvictionGrace <= 0 {
		opts.EvictionGrace = 10 * time.Minute
	}
	return &Manager{
		dialer:        dialer,
		responder:     responder,
		classify:      classify,
		snapshots:     snapshots,
		audit:         audit,
		leadStatus:    opts.LeadStatus,
		log:           log,
		agentName:     opts.AgentName,
		evictionGrace: opts.EvictionGrace,
		clock:         time.Now,
		byCall:        map[string]*entry{},
		byProvider:    map[string]string{},
		openLeads:     map[string]string{},
	}
}

// Open creates a PENDING session for the lead and asks the provider to dial.
//
// Provider failures are not propagated: the session transitions to FAILED and
// the returned copy reflects that. At most one open session may exist per
// lead; a second Open for the same lead returns the live session unchanged.
func (m *Manager) Open(ctx context.Context, lead leads.Lead) (CallSession, error) {
	if lead.ID == "" || lead.Phone == "" {
		return CallSession{}, ErrInvalidArgument
	}
	now := m.clock().UTC()

	m.mu.Lock()
	if existingID, ok := m.openLeads[lead.ID]; ok {
		e := m.byCall[existingID]
		m.mu.Unlock()
		m.log.Warn("open requested for lead with live session", "lead_id", lead.ID, "call_id", existingID)
		e.mu.Lock()
		out := cloneSession(e.s)
		e.mu.Unlock()
		return out, nil
	}
	s := &CallSession{
		CallID:    uuid.NewString(),
		LeadID:    lead.ID,
		Phone:     lead.Phone,
		Lead:      lead,
		State:     StatePending,
		StartedAt: now,
	}
	e := &entry{s: s}
	m.byCall[s.CallID] = e
	m.openLeads[lead.ID] = s.CallID
	m.mu.Unlock()

	// Slow provider call; no locks held.
	res, err := m.dialer.PlaceCall(ctx, telephony.DialRequest{CallID: s.CallID, LeadID: lead.ID, To: lead.Phone})
	if err != nil {
		m.log.Error("dial failed", "call_id", s.CallID, "lead_id", lead.ID, "err", err)
		m.transition(ctx, e, StateFailed, telephony.StatusEvent{})
		e.mu.Lock()
		out := cloneSession(e.s)
		e.mu.Unlock()
		return out, nil
	}

	e.mu.Lock()
	if e.s.ProviderCallID == "" {
		e.s.ProviderCallID = res.ProviderCallID
	}
	out := cloneSession(e.s)
	e.mu.Unlock()

	m.mu.Lock()
	m.byProvider[res.ProviderCallID] = s.CallID
	m.mu.Unlock()

	m.persist(ctx, out)
	m.auditEvent(ctx, "call_dialed", s.CallID, lead.ID, "outbound call placed")
	m.log.Info("call dialed", "call_id", s.CallID, "lead_id", lead.ID, "provider_call_id", res.ProviderCallID)
	return out, nil
}

// ApplyEvent routes a lifecycle event to its session and applies the mapped
// transition. Unknown identifiers are correlated against persisted records
// and otherwise dropped with a warning; this path is never fatal.
func (m *Manager) ApplyEvent(ctx context.Context, ev telephony.StatusEvent) {
	e, ok := m.resolve(ev.CallID, ev.ProviderCallID)
	if !ok {
		m.correlateDropped(ctx, ev)
		return
	}

	target, known := StateForEvent(ev.Kind)
	if !known {
		// Recording callbacks arrive without a lifecycle kind; attach the
		// reference without touching state.
		if ev.RecordingSID != "" {
			e.mu.Lock()
			if e.s.RecordingSID == "" {
				e.s.RecordingSID = ev.RecordingSID
			}
			e.mu.Unlock()
			return
		}
		m.log.Warn("unknown event kind dropped", "kind", ev.Kind, "call_id", ev.CallID, "provider_call_id", ev.ProviderCallID)
		return
	}

	m.transition(ctx, e, target, ev)
}

// transition applies the forward-only rule under the session lock and runs
// the terminal side effects (outcome, snapshot, eviction marking) on the
// first terminal transition only.
func (m *Manager) transition(ctx context.Context, e *entry, target CallState, ev telephony.StatusEvent) {
	e.mu.Lock()
	s := e.s

	if ev.RecordingSID != "" && s.RecordingSID == "" {
		s.RecordingSID = ev.RecordingSID
	}
	var newProvider string
	if s.ProviderCallID == "" && ev.ProviderCallID != "" {
		s.ProviderCallID = ev.ProviderCallID
		newProvider = ev.ProviderCallID
	}

	if !canTransition(s.State, target) {
		// Duplicate or late event: keep the first-recorded terminal state
		// and its ended_at untouched.
		m.log.Debug("transition ignored", "call_id", s.CallID, "from", s.State, "to", target)
		out := cloneSession(s)
		e.mu.Unlock()
		m.registerProvider(newProvider, out.CallID)
		return
	}

	s.State = target
	becameTerminal := target.IsTerminal()
	if becameTerminal {
		now := m.clock().UTC()
		s.EndedAt = &now
		if m.classify != nil {
			out := m.classify(append([]Turn(nil), s.Turns...), m.agentName)
			s.Outcome = &out
		}
		e.evictAt = now.Add(m.evictionGrace)
	}
	out := cloneSession(s)
	e.mu.Unlock()

	m.registerProvider(newProvider, out.CallID)

	if becameTerminal {
		m.mu.Lock()
		delete(m.openLeads, out.LeadID)
		m.mu.Unlock()

		m.persist(ctx, out)
		outcome := ""
		if out.Outcome != nil {
			outcome = string(out.Outcome.Category)
		}
		m.auditEvent(ctx, "call_finished", out.CallID, out.LeadID, "terminal state "+string(out.State)+" outcome "+outcome)
		if m.leadStatus != nil {
			if err := m.leadStatus.UpdateStatus(ctx, out.LeadID, string(out.State), outcome); err != nil {
				m.log.Warn("lead status write-back failed", "call_id", out.CallID, "lead_id", out.LeadID, "err", err)
			}
		}
		m.log.Info("call finished", "call_id", out.CallID, "state", out.State, "outcome", outcome, "duration_s", out.DurationSeconds())
		return
	}

	m.persist(ctx, out)
	m.log.Info("call state changed", "call_id", out.CallID, "state", out.State)
}

// Greet produces the opening utterance when the provider connects the call.
// No caller turn is appended; the agent speaks first.
func (m *Manager) Greet(ctx context.Context, identifier string) (string, bool) {
	return m.respond(ctx, identifier, "", false)
}

// HandleSpeech appends the recognized caller utterance (or a placeholder when
// nothing was transcribed) and produces the agent's reply.
func (m *Manager) HandleSpeech(ctx context.Context, identifier, text string) (string, bool) {
	return m.respond(ctx, identifier, text, true)
}

func (m *Manager) respond(ctx context.Context, identifier, incoming string, callerSpoke bool) (string, bool) {
	e, ok := m.resolve(identifier, identifier)
	if !ok {
		return "", false
	}

	e.mu.Lock()
	if e.s.State.IsTerminal() {
		e.mu.Unlock()
		return "", false
	}
	// A voice/speech callback means the call was answered, even when the
	// answered status event is still in flight.
	if canTransition(e.s.State, StateActive) {
		e.s.State = StateActive
	}
	if callerSpoke {
		text := incoming
		if text == "" {
			text = placeholderSpeech
		}
		e.s.Turns = append(e.s.Turns, Turn{Speaker: CallerSpeaker, Text: text, Timestamp: m.clock().UTC()})
	}
	rc := ReplyContext{
		CallID: e.s.CallID,
		Lead:   e.s.Lead,
		Turns:  append([]Turn(nil), e.s.Turns...),
	}
	e.mu.Unlock()

	// Generation runs outside the session lock so a slow provider never
	// delays terminal events for this or any other call.
	utterance := m.responder.Reply(ctx, rc)

	e.mu.Lock()
	e.s.Turns = append(e.s.Turns, Turn{Speaker: m.agentName, Text: utterance, Timestamp: m.clock().UTC()})
	e.mu.Unlock()

	return utterance, true
}

// ActiveCount reports the number of non-terminal sessions in memory.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, e := range m.byCall {
		e.mu.Lock()
		if !e.s.State.IsTerminal() {
			n++
		}
		e.mu.Unlock()
	}
	return n
}

// EvictExpired removes terminal sessions whose grace period has passed.
// Durable snapshots remain; only the in-memory table shrinks.
func (m *Manager) EvictExpired(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, e := range m.byCall {
		e.mu.Lock()
		expired := e.s.State.IsTerminal() && !e.evictAt.IsZero() && now.After(e.evictAt)
		provider := e.s.ProviderCallID
		e.mu.Unlock()
		if !expired {
			continue
		}
		delete(m.byCall, id)
		if provider != "" {
			delete(m.byProvider, provider)
		}
		n++
	}
	return n
}

// RunEviction sweeps expired sessions until the context is canceled.
func (m *Manager) RunEviction(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := m.EvictExpired(now.UTC()); n > 0 {
				m.log.Info("sessions evicted", "count", n)
			}
		}
	}
}

func (m *Manager) resolve(callID, providerCallID string) (*entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if callID != "" {
		if e, ok := m.byCall[callID]; ok {
			return e, true
		}
	}
	if providerCallID != "" {
		if id, ok := m.byProvider[providerCallID]; ok {
			if e, ok := m.byCall[id]; ok {
				return e, true
			}
		}
	}
	return nil, false
}

func (m *Manager) registerProvider(providerCallID, callID string) {
	if providerCallID == "" {
		return
	}
	m.mu.Lock()
	m.byProvider[providerCallID] = callID
	m.mu.Unlock()
}

// correlateDropped handles an event whose session is not in memory: a session
// evicted after its terminal state may still receive stray redeliveries. Its
// persisted record is looked up to confirm the attribution, then the event is
// ignored. Terminal history is never reopened.
func (m *Manager) correlateDropped(ctx context.Context, ev telephony.StatusEvent) {
	if m.snapshots != nil {
		if ev.CallID != "" {
			if snap, ok, err := m.snapshots.FindByCallID(ctx, ev.CallID); err == nil && ok {
				m.log.Info("event correlated to persisted session, ignored", "call_id", snap.CallID, "state", snap.State, "kind", ev.Kind)
				return
			}
		}
		if ev.ProviderCallID != "" {
			if snap, ok, err := m.snapshots.FindByProviderCallID(ctx, ev.ProviderCallID); err == nil && ok {
				m.log.Info("event correlated to persisted session, ignored", "call_id", snap.CallID, "state", snap.State, "kind", ev.Kind)
				return
			}
		}
	}
	m.log.Warn("event for unknown call dropped", "call_id", ev.CallID, "provider_call_id", ev.ProviderCallID, "kind", ev.Kind)
}

func (m *Manager) persist(ctx context.Context, s CallSession) {
	if m.snapshots == nil {
		return
	}
	if err := m.snapshots.Save(ctx, s); err != nil {
		// In-memory state stays authoritative; the next successful write
		// re-persists the full session.
		m.log.Error("session snapshot failed", "call_id", s.CallID, "err", err)
	}
}

func (m *Manager) auditEvent(ctx context.Context, eventType, callID, leadID, message string) {
	if m.audit == nil {
		return
	}
	if err := m.audit.LogCallEvent(ctx, eventType, callID, leadID, message); err != nil {
		m.log.Warn("audit append failed", "type", eventType, "call_id", callID, "err", err)
	}
}

func cloneSession(s *CallSession) CallSession {
	out := *s
	out.Turns = append([]Turn(nil), s.Turns...)
	if s.EndedAt != nil {
		t := *s.EndedAt
		out.EndedAt = &t
	}
	if s.Outcome != nil {
		o := *s.Outcome
		out.Outcome = &o
	}
	return out
}
