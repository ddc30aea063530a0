package jambonz

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// ErrClosed is returned when writing to a session whose socket has gone away.
var ErrClosed = errors.New("jambonz: session closed")

const writeTimeout = 5 * time.Second

// frameWriter is the subset of *websocket.Conn used for output.
type frameWriter interface {
	WriteJSON(v any) error
	SetWriteDeadline(t time.Time) error
}

// Session is one call's connection to jambonz. Verbs are queued with
// Answer, Gather, Config, Dub, Dial and Hangup and flushed by Reply or Send.
// All writes go through a single mutex, so frames leave in the order they
// were issued.
type Session struct {
	CallSid string
	Info    CallInfo

	conn   frameWriter
	connMu sync.Mutex

	mu    sync.Mutex
	verbs []any

	logger *log.Logger
	closed atomic.Bool
}

func newSession(conn frameWriter, info CallInfo, logger *log.Logger) *Session {
	return &Session{
		CallSid: info.CallSid,
		Info:    info,
		conn:    conn,
		logger:  logger,
	}
}

func (s *Session) queue(v any) {
	s.mu.Lock()
	s.verbs = append(s.verbs, v)
	s.mu.Unlock()
}

func (s *Session) drain() []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.verbs
	s.verbs = nil
	return v
}

// Answer queues the answer verb.
func (s *Session) Answer() { s.queue(simpleVerb{Verb: "answer"}) }

// Hangup queues the hangup verb.
func (s *Session) Hangup() { s.queue(simpleVerb{Verb: "hangup"}) }

// Gather queues a gather verb.
func (s *Session) Gather(g Gather) {
	g.Verb = "gather"
	if len(g.Input) == 0 {
		g.Input = []string{"digits"}
	}
	s.queue(g)
}

// Config queues a config verb.
func (s *Session) Config(c Config) {
	c.Verb = "config"
	s.queue(c)
}

// Dub queues a dub verb.
func (s *Session) Dub(d Dub) {
	d.Verb = "dub"
	s.queue(d)
}

// Dial queues a dial verb.
func (s *Session) Dial(d Dial) {
	d.Verb = "dial"
	s.queue(d)
}

// Reply acknowledges msgID with the queued verbs (possibly none).
func (s *Session) Reply(msgID string) error {
	if msgID == "" {
		return fmt.Errorf("jambonz: reply without msgid for call %s", s.CallSid)
	}
	return s.write(ack{Type: TypeAck, MsgID: msgID, Data: s.drain()})
}

// Send replaces the current application with the queued verbs. It is used
// when there is no hook waiting for a reply.
func (s *Session) Send() error {
	return s.write(command{
		Type:    TypeCommand,
		Command: CommandRedirect,
		Data:    s.drain(),
	})
}

// InjectCommand sends a live command. When callSid is empty the command
// applies to this session's own call.
func (s *Session) InjectCommand(kind string, payload any, callSid string) error {
	return s.write(command{
		Type:    TypeCommand,
		Command: kind,
		CallSid: callSid,
		Data:    payload,
	})
}

func (s *Session) markClosed() {
	s.closed.Store(true)
}

func (s *Session) write(v any) error {
	if s.closed.Load() {
		return ErrClosed
	}
	s.connMu.Lock()
	defer s.connMu.Unlock()
	_ = s.conn.SetWriteDeadline(deadline())
	if err := s.conn.WriteJSON(v); err != nil {
		return fmt.Errorf("jambonz: write to call %s: %w", s.CallSid, err)
	}
	return nil
}

func deadline() time.Time { return time.Now().Add(writeTimeout) }
