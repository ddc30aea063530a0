package translator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lukasbauer/calltranslator/internal/jambonz"
)

// Webhook paths configured on the call.
const (
	HookTranscriptionA = "/transcription-a"
	HookTranscriptionB = "/transcription-b"
	HookSelectLanguage = "/selectLanguage"
)

// EventKind identifies a call event.
type EventKind int

const (
	EventCallStatus EventKind = iota + 1
	EventTranscriptionA
	EventTranscriptionB
	EventSelectLanguage
	EventClose
	EventError
	EventRemoteError
)

func (k EventKind) String() string {
	switch k {
	case EventCallStatus:
		return "call:status"
	case EventTranscriptionA:
		return "transcription-a"
	case EventTranscriptionB:
		return "transcription-b"
	case EventSelectLanguage:
		return "selectLanguage"
	case EventClose:
		return "close"
	case EventError:
		return "error"
	case EventRemoteError:
		return "jambonz:error"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// Event is a call event routed to a CallSession. Which fields are set
// depends on Kind.
type Event struct {
	Kind  EventKind
	MsgID string // set for webhook-style events that expect a reply

	Status jambonz.CallInfo      // EventCallStatus
	Speech jambonz.Speech        // EventTranscriptionA, EventTranscriptionB
	Gather jambonz.GatherPayload // EventSelectLanguage
	Code   int                   // EventClose
	Reason string                // EventClose
	Err    error                 // EventError, EventRemoteError
}

var (
	// ErrNotFinal is returned when a transcription hook receives an interim
	// result. The hooks are configured for final results only, so this
	// points at a misconfigured recognizer.
	ErrNotFinal = errors.New("translator: non-final transcription delivered to final-only hook")

	// ErrDuplicateSession is returned for a second session:new on a known call.
	ErrDuplicateSession = errors.New("translator: session already exists")

	// ErrUnknownSession is returned when an event names no live session.
	ErrUnknownSession = errors.New("translator: unknown session")

	// ErrSessionClosed is returned for events arriving after close or error.
	ErrSessionClosed = errors.New("translator: session closed")

	// ErrDraining is returned for new calls during shutdown.
	ErrDraining = errors.New("translator: not accepting new calls")

	// ErrRemote wraps errors the call engine reports with jambonz:error.
	// The call stays up.
	ErrRemote = errors.New("jambonz")

	// ErrUnexpectedEvent is returned for events that do not fit the current state.
	ErrUnexpectedEvent = errors.New("translator: unexpected event")
)

// eventFromMessage converts a jambonz frame into an Event. ok is false for
// frames that carry nothing for the session (e.g. verb:status).
func eventFromMessage(msg jambonz.Message) (ev Event, ok bool, err error) {
	ev.MsgID = msg.MsgID

	switch msg.Type {
	case jambonz.TypeCallStatus:
		ev.Kind = EventCallStatus
		err = msg.Decode(&ev.Status)
		if ev.Status.CallSid == "" {
			ev.Status.CallSid = msg.CallSid
		}
		return ev, true, err

	case jambonz.TypeVerbHook:
		switch "/" + strings.TrimPrefix(msg.Hook, "/") {
		case HookTranscriptionA:
			ev.Kind = EventTranscriptionA
		case HookTranscriptionB:
			ev.Kind = EventTranscriptionB
		case HookSelectLanguage:
			ev.Kind = EventSelectLanguage
			err = msg.Decode(&ev.Gather)
			return ev, true, err
		default:
			return ev, false, fmt.Errorf("%w: hook %q", ErrUnexpectedEvent, msg.Hook)
		}
		var p jambonz.TranscriptionPayload
		err = msg.Decode(&p)
		ev.Speech = p.Speech
		return ev, true, err

	case jambonz.TypeError:
		var p jambonz.ErrorPayload
		_ = msg.Decode(&p)
		if p.Error == "" {
			p.Error = "unspecified error"
		}
		ev.Kind = EventRemoteError
		ev.Err = fmt.Errorf("%w: %s", ErrRemote, p.Error)
		return ev, true, nil

	case jambonz.TypeSessionRedirect:
		return ev, false, fmt.Errorf("%w: %s for call %s", ErrDuplicateSession, msg.Type, msg.CallSid)

	default:
		return ev, false, nil
	}
}
