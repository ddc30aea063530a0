package translator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/lukasbauer/calltranslator/internal/eventlog"
	"github.com/lukasbauer/calltranslator/internal/jambonz"
)

// Registry owns every live CallSession and routes call events to them.
// It also supports graceful draining: once draining, new calls are
// rejected while in-flight calls finish naturally.
//
// The mu mutex makes the draining check, the duplicate check and wg.Add
// atomic in Open.
type Registry struct {
	ctx      context.Context
	settings Settings
	deps     Deps

	mu       sync.Mutex
	draining bool
	sessions map[string]*CallSession
	wg       sync.WaitGroup
	count    atomic.Int64
}

// NewRegistry creates a new Registry. ctx bounds the translations started
// by its sessions.
func NewRegistry(ctx context.Context, settings Settings, deps Deps) *Registry {
	return &Registry{
		ctx:      ctx,
		settings: settings,
		deps:     deps,
		sessions: make(map[string]*CallSession),
	}
}

// Open creates the session for a new inbound call and starts it. A call
// identifier that is already live is rejected with ErrDuplicateSession.
func (r *Registry) Open(info jambonz.CallInfo, control CallControl, msgID string) (*CallSession, error) {
	if info.CallSid == "" {
		return nil, fmt.Errorf("%w: empty call_sid", ErrUnknownSession)
	}

	r.mu.Lock()
	if r.draining {
		r.mu.Unlock()
		r.record(info.CallSid, "draining")
		return nil, fmt.Errorf("%w: call %s", ErrDraining, info.CallSid)
	}
	if _, ok := r.sessions[info.CallSid]; ok {
		r.mu.Unlock()
		r.record(info.CallSid, "duplicate")
		return nil, fmt.Errorf("%w: call %s", ErrDuplicateSession, info.CallSid)
	}
	s := newCallSession(r.ctx, info, control, r.settings, r.deps)
	r.sessions[info.CallSid] = s
	r.wg.Add(1)
	r.count.Add(1)
	r.mu.Unlock()

	if err := s.Start(msgID); err != nil {
		s.closed.Store(true)
		s.setState(StateClosed)
		r.release(s)
		return nil, fmt.Errorf("start call %s: %w", info.CallSid, err)
	}
	return s, nil
}

func (r *Registry) record(callSid, reason string) {
	r.deps.Logger.Printf("translator: rejecting session:new for %s: %s", callSid, reason)
	if r.deps.Events != nil {
		r.deps.Events.LogAsync(callSid, eventlog.EventCallRejected, map[string]any{"reason": reason})
	}
}

// Lookup returns the live session for callSid.
func (r *Registry) Lookup(callSid string) (*CallSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[callSid]
	return s, ok
}

// Dispatch routes ev to the session for callSid. A close event releases
// the session after it has been handled.
func (r *Registry) Dispatch(callSid string, ev Event) error {
	s, ok := r.Lookup(callSid)
	if !ok {
		return fmt.Errorf("%w: %s for call %s", ErrUnknownSession, ev.Kind, callSid)
	}
	err := s.Handle(ev)
	if ev.Kind == EventClose {
		r.release(s)
	}
	return err
}

// release forgets s. The registry's wait group is held until the
// session's outstanding translations have finished.
func (r *Registry) release(s *CallSession) {
	r.mu.Lock()
	if r.sessions[s.id] != s {
		r.mu.Unlock()
		return
	}
	delete(r.sessions, s.id)
	r.mu.Unlock()

	r.count.Add(-1)
	go func() {
		s.Wait()
		r.wg.Done()
	}()
}

// StartDraining makes future Open calls fail with ErrDraining.
func (r *Registry) StartDraining() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.draining = true
}

// IsDraining reports whether the registry is in draining mode.
func (r *Registry) IsDraining() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.draining
}

// ActiveCount returns the number of live calls.
func (r *Registry) ActiveCount() int64 {
	return r.count.Load()
}

// Wait blocks until every call has closed and its translations have finished.
func (r *Registry) Wait() {
	r.wg.Wait()
}

// Snapshots returns a view of every live call, oldest first.
func (r *Registry) Snapshots() []Snapshot {
	r.mu.Lock()
	sessions := make([]*CallSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	out := make([]Snapshot, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}

// HandleSessionNew implements jambonz.Handler.
func (r *Registry) HandleSessionNew(s *jambonz.Session, msg jambonz.Message) error {
	_, err := r.Open(s.Info, s, msg.MsgID)
	return err
}

// HandleMessage implements jambonz.Handler.
func (r *Registry) HandleMessage(s *jambonz.Session, msg jambonz.Message) error {
	ev, ok, err := eventFromMessage(msg)
	if err != nil && !ok {
		return err
	}
	if !ok {
		if msg.Type == jambonz.TypeVerbStatus {
			r.deps.Logger.Printf("translator: call %s: verb status %s", s.CallSid, msg.Data)
		}
		return nil
	}
	if err != nil {
		r.deps.Logger.Printf("translator: call %s: bad %s payload: %v", s.CallSid, msg.Type, err)
	}
	return r.Dispatch(s.CallSid, ev)
}

// HandleError implements jambonz.Handler.
func (r *Registry) HandleError(s *jambonz.Session, err error) {
	if derr := r.Dispatch(s.CallSid, Event{Kind: EventError, Err: err}); derr != nil && !errors.Is(derr, ErrSessionClosed) {
		r.deps.Logger.Printf("translator: call %s: %v", s.CallSid, derr)
	}
}

// HandleClose implements jambonz.Handler.
func (r *Registry) HandleClose(s *jambonz.Session, code int, reason string) {
	if err := r.Dispatch(s.CallSid, Event{Kind: EventClose, Code: code, Reason: reason}); err != nil {
		r.deps.Logger.Printf("translator: call %s: %v", s.CallSid, err)
	}
}
