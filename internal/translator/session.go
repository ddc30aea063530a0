package translator

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lukasbauer/calltranslator/internal/eventlog"
	"github.com/lukasbauer/calltranslator/internal/jambonz"
	"github.com/lukasbauer/calltranslator/internal/language"
	"github.com/lukasbauer/calltranslator/internal/notifications"
	"github.com/lukasbauer/calltranslator/internal/translate"
)

// Dub tracks carrying translated speech. Track "a" is heard on leg A,
// track "b" on leg B.
const (
	TrackA = "a"
	TrackB = "b"
)

// CallControl is the part of the call-control engine a session drives.
// Verbs are queued and flushed by Reply or Send; InjectCommand is
// delivered immediately. *jambonz.Session implements it.
type CallControl interface {
	Answer()
	Gather(g jambonz.Gather)
	Config(c jambonz.Config)
	Dub(d jambonz.Dub)
	Dial(d jambonz.Dial)
	Hangup()
	Reply(msgID string) error
	Send() error
	InjectCommand(kind string, payload any, callSid string) error
}

// Notifier receives every translated utterance.
type Notifier interface {
	NotifyTranscript(ctx context.Context, t notifications.Transcript)
}

// EventLog records call events.
type EventLog interface {
	LogAsync(callID string, eventType eventlog.EventType, data map[string]any)
}

// Settings are the per-deployment call parameters.
type Settings struct {
	Target           jambonz.Target
	BoostAudioSignal string
	LanguageMenu     bool
	MenuPrompt       string
	MenuTimeout      int // seconds
	RecognizerA      jambonz.Recognizer
	RecognizerB      jambonz.Recognizer
	SynthesizerA     jambonz.Synthesizer
	SynthesizerB     jambonz.Synthesizer
}

// Deps are the collaborators shared by all sessions. None of them hold
// per-call state.
type Deps struct {
	Translator translate.Translator
	Notifier   Notifier
	Events     EventLog
	Logger     *log.Logger
}

// CallSession is the state of one translated call. Events are handled one
// at a time; translations run concurrently and are the only work that
// touches the session from other goroutines.
type CallSession struct {
	id       string
	info     jambonz.CallInfo
	control  CallControl
	settings Settings
	deps     Deps
	ctx      context.Context

	mu           sync.Mutex
	state        State
	legB         string
	recognizerA  jambonz.Recognizer
	recognizerB  jambonz.Recognizer
	synthesizerA jambonz.Synthesizer
	synthesizerB jambonz.Synthesizer
	startedAt    time.Time

	closed   atomic.Bool
	inflight sync.WaitGroup
}

func newCallSession(ctx context.Context, info jambonz.CallInfo, control CallControl, settings Settings, deps Deps) *CallSession {
	return &CallSession{
		id:           info.CallSid,
		info:         info,
		control:      control,
		settings:     settings,
		deps:         deps,
		ctx:          ctx,
		state:        StateNew,
		recognizerA:  settings.RecognizerA,
		recognizerB:  settings.RecognizerB,
		synthesizerA: settings.SynthesizerA,
		synthesizerB: settings.SynthesizerB,
		startedAt:    time.Now().UTC(),
	}
}

func (s *CallSession) logf(format string, args ...any) {
	s.deps.Logger.Printf("translator: call %s: "+format, append([]any{s.id}, args...)...)
}

func (s *CallSession) record(eventType eventlog.EventType, data map[string]any) {
	if s.deps.Events != nil {
		s.deps.Events.LogAsync(s.id, eventType, data)
	}
}

// ID returns the leg A call identifier.
func (s *CallSession) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *CallSession) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LegB returns the leg B call identifier, or "" while the outdial has not
// been correlated yet.
func (s *CallSession) LegB() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.legB
}

func (s *CallSession) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// live reports whether commands may still be issued for this call.
func (s *CallSession) live() bool {
	return !s.closed.Load()
}

// Wait blocks until every translation started by this session has finished.
func (s *CallSession) Wait() {
	s.inflight.Wait()
}

// Snapshot is a point-in-time view of a session.
type Snapshot struct {
	CallSid   string    `json:"call_sid"`
	LegB      string    `json:"call_sid_b,omitempty"`
	From      string    `json:"from,omitempty"`
	To        string    `json:"to,omitempty"`
	State     State     `json:"state"`
	LanguageA string    `json:"language_a"`
	LanguageB string    `json:"language_b"`
	VoiceA    string    `json:"voice_a"`
	VoiceB    string    `json:"voice_b"`
	StartedAt time.Time `json:"started_at"`
}

// Snapshot returns the current view of the session.
func (s *CallSession) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		CallSid:   s.id,
		LegB:      s.legB,
		From:      s.info.From,
		To:        s.info.To,
		State:     s.state,
		LanguageA: s.recognizerA.Language,
		LanguageB: s.recognizerB.Language,
		VoiceA:    s.synthesizerA.Voice,
		VoiceB:    s.synthesizerB.Voice,
		StartedAt: s.startedAt,
	}
}

// Start answers the call and either offers the language menu or bridges
// straight away. msgID is the session:new message being acknowledged.
func (s *CallSession) Start(msgID string) error {
	s.logf("new incoming call from %s to %s", s.info.From, s.info.To)
	s.record(eventlog.EventCallStarted, map[string]any{
		"from":      s.info.From,
		"to":        s.info.To,
		"direction": s.info.Direction,
	})

	s.control.Answer()
	s.setState(StateAnswered)

	if !s.settings.LanguageMenu {
		return s.bridge(msgID)
	}

	prompt := s.settings.MenuPrompt
	if prompt == "" {
		prompt = language.Prompt
	}
	synth := s.synthesizerA
	s.control.Gather(jambonz.Gather{
		Input:       []string{"digits"},
		NumDigits:   1,
		Timeout:     s.settings.MenuTimeout,
		DTMFBargein: false,
		ActionHook:  HookSelectLanguage,
		Say:         &jambonz.Say{Text: prompt, Synthesizer: &synth},
	})
	s.setState(StateAwaitingLanguage)
	return s.flush(msgID)
}

// Handle applies one event to the session.
func (s *CallSession) Handle(ev Event) error {
	if !s.live() && ev.Kind != EventClose {
		return fmt.Errorf("%w: %s on call %s", ErrSessionClosed, ev.Kind, s.id)
	}

	switch ev.Kind {
	case EventCallStatus:
		s.handleCallStatus(ev.Status)
		return nil
	case EventTranscriptionA, EventTranscriptionB:
		return s.handleTranscription(ev)
	case EventSelectLanguage:
		return s.handleSelectLanguage(ev)
	case EventError:
		s.handleError(ev.Err)
		return nil
	case EventRemoteError:
		s.record(eventlog.EventCallError, map[string]any{"error": ev.Err.Error(), "remote": true})
		return ev.Err
	case EventClose:
		s.handleClose(ev.Code, ev.Reason)
		return nil
	default:
		return fmt.Errorf("%w: %s on call %s", ErrUnexpectedEvent, ev.Kind, s.id)
	}
}

func (s *CallSession) handleSelectLanguage(ev Event) error {
	if st := s.State(); st != StateAwaitingLanguage {
		return fmt.Errorf("%w: %s in state %s on call %s", ErrUnexpectedEvent, ev.Kind, st, s.id)
	}

	choice := language.Select(ev.Gather.Digits)
	s.logf("language menu: digits=%q reason=%q -> %s (%s)", ev.Gather.Digits, ev.Gather.Reason, choice.Language, choice.Voice)

	s.mu.Lock()
	s.recognizerA.Language = choice.Language
	s.synthesizerA.Language = choice.Language
	s.synthesizerA.Voice = choice.Voice
	s.mu.Unlock()

	s.record(eventlog.EventLanguageSelected, map[string]any{
		"digits":   ev.Gather.Digits,
		"reason":   ev.Gather.Reason,
		"language": choice.Language,
		"voice":    choice.Voice,
	})
	return s.bridge(ev.MsgID)
}

// bridge issues config, dub, dial and hangup for the rest of the call.
// recognizerA and synthesizerA are fixed from here on.
func (s *CallSession) bridge(msgID string) error {
	s.setState(StateBridging)

	s.mu.Lock()
	recA, recB := s.recognizerA, s.recognizerB
	s.mu.Unlock()

	s.control.Config(jambonz.Config{
		BoostAudioSignal: s.settings.BoostAudioSignal,
		Recognizer:       &recA,
		Transcribe: &jambonz.Transcribe{
			Enable:            true,
			TranscriptionHook: HookTranscriptionA,
		},
	})
	s.control.Dub(jambonz.Dub{Action: jambonz.DubAddTrack, Track: TrackA})
	s.control.Dial(jambonz.Dial{
		Target:           []jambonz.Target{s.settings.Target},
		BoostAudioSignal: s.settings.BoostAudioSignal,
		Transcribe: &jambonz.Transcribe{
			TranscriptionHook: HookTranscriptionB,
			Channel:           2,
			Recognizer:        &recB,
		},
		Dub: []jambonz.Dub{{Action: jambonz.DubAddTrack, Track: TrackB}},
	})
	// hang up when the dial fails or completes
	s.control.Hangup()

	err := s.flush(msgID)
	s.setState(StateActive)
	s.record(eventlog.EventBridgeStarted, map[string]any{
		"language_a": recA.Language,
		"language_b": recB.Language,
		"target":     s.settings.Target.Name + s.settings.Target.Number,
	})
	return err
}

func (s *CallSession) flush(msgID string) error {
	if msgID != "" {
		return s.control.Reply(msgID)
	}
	return s.control.Send()
}

func (s *CallSession) handleCallStatus(st jambonz.CallInfo) {
	s.logf("call status: call_sid=%s direction=%s status=%s", st.CallSid, st.Direction, st.CallStatus)
	if st.Direction != jambonz.DirectionOutbound || st.CallSid == "" || st.CallSid == s.id {
		return
	}

	s.mu.Lock()
	current := s.legB
	if current == "" {
		s.legB = st.CallSid
	}
	s.mu.Unlock()

	if current != "" {
		if current != st.CallSid {
			s.logf("ignoring outbound status for %s, b leg is already %s", st.CallSid, current)
		}
		return
	}
	s.logf("call_sid for b leg is %s", st.CallSid)
	s.record(eventlog.EventLegBConnected, map[string]any{"call_sid_b": st.CallSid})
}

func (s *CallSession) handleTranscription(ev Event) error {
	channel := 1
	if ev.Kind == EventTranscriptionB {
		channel = 2
	}
	text := ev.Speech.Transcript()
	s.logf("transcription received for channel %d: %q (final=%t)", channel, text, ev.Speech.IsFinal)

	// Acknowledge first so translation latency never holds up the hook.
	if ev.MsgID != "" {
		if err := s.control.Reply(ev.MsgID); err != nil {
			s.logf("error: ack %s: %v", ev.Kind, err)
		}
	}

	if !ev.Speech.IsFinal {
		s.record(eventlog.EventProtocolViolation, map[string]any{"hook": ev.Kind.String(), "transcript": text})
		return fmt.Errorf("%w: %s on call %s", ErrNotFinal, ev.Kind, s.id)
	}
	if st := s.State(); st != StateActive {
		return fmt.Errorf("%w: %s in state %s on call %s", ErrUnexpectedEvent, ev.Kind, st, s.id)
	}

	s.record(eventlog.EventTranscriptReceived, map[string]any{
		"channel":    channel,
		"transcript": text,
		"confidence": ev.Speech.Confidence(),
	})

	s.mu.Lock()
	legB := s.legB
	recA, recB := s.recognizerA, s.recognizerB
	synthA, synthB := s.synthesizerA, s.synthesizerB
	s.mu.Unlock()

	if channel == 1 {
		if legB == "" {
			s.logf("no call_sid for b leg yet, not sending dub command")
			s.record(eventlog.EventTranscriptDropped, map[string]any{"transcript": text})
			return nil
		}
		s.dispatch(translate.NewRequest(text, recA.Language, recB.Language), channel, TrackB, legB, synthB)
		return nil
	}

	// Leg B always speaks to leg A, which is this session's own call.
	s.dispatch(translate.NewRequest(text, recB.Language, recA.Language), channel, TrackA, "", synthA)
	return nil
}

// dispatch translates req in the background and, if the call is still up,
// speaks the result on track. target is the call the command is sent to;
// "" means leg A.
func (s *CallSession) dispatch(req translate.Request, channel int, track, target string, synth jambonz.Synthesizer) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()

		res := s.deps.Translator.Translate(s.ctx, req)

		if !s.live() {
			s.logf("call ended before translation %s finished, discarding", req.ID)
			s.record(eventlog.EventTranslationDiscarded, map[string]any{"request_id": req.ID})
			return
		}
		if res.Err != nil {
			s.record(eventlog.EventTranslationFailed, map[string]any{
				"request_id": req.ID,
				"error":      res.Err.Error(),
			})
			return
		}
		if res.Translation == "" {
			s.logf("no translation for %q, nothing to say", req.Text)
			return
		}
		s.record(eventlog.EventTranslationCompleted, map[string]any{
			"request_id":  req.ID,
			"from":        req.From,
			"to":          req.To,
			"translation": res.Translation,
			"latency_ms":  res.Duration.Milliseconds(),
		})

		s.logf("translated text, sending dub command on track %s: %s", track, res.Translation)
		cmd := jambonz.Dub{
			Action: jambonz.DubSayOnTrack,
			Track:  track,
			Say:    &jambonz.Say{Text: res.Translation, Synthesizer: &synth},
		}
		if err := s.control.InjectCommand(jambonz.CommandDub, cmd, target); err != nil {
			s.logf("error: sending dub command: %v", err)
			return
		}
		s.record(eventlog.EventSpeechInjected, map[string]any{"request_id": req.ID, "track": track})

		if s.deps.Notifier != nil {
			s.deps.Notifier.NotifyTranscript(s.ctx, notifications.Transcript{
				CallSid:    s.id,
				Channel:    channel,
				Original:   req.Text,
				Translated: res.Translation,
			})
		}
	}()
}

func (s *CallSession) handleError(err error) {
	s.logf("received error: %v", err)
	s.closed.Store(true)
	s.setState(StateTerminating)
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	s.record(eventlog.EventCallError, map[string]any{"error": msg})
}

func (s *CallSession) handleClose(code int, reason string) {
	s.logf("session closed (code %d): %s", code, reason)
	s.closed.Store(true)
	s.setState(StateClosed)
	s.record(eventlog.EventCallEnded, map[string]any{
		"code":       code,
		"reason":     reason,
		"duration_s": int(time.Since(s.startedAt).Seconds()),
	})
}
