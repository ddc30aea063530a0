package jambonz

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/gorilla/websocket"
)

// ErrSessionExists is reported for a session:new on a socket that already
// carries a call.
var ErrSessionExists = errors.New("jambonz: socket already carries a session")

// Handler receives call events for sessions opened on an Endpoint.
// Calls for a single session are never concurrent.
type Handler interface {
	// HandleSessionNew is called for session:new. Returning an error
	// rejects the call and closes the socket.
	HandleSessionNew(s *Session, msg Message) error

	// HandleMessage is called for every later message on the socket.
	HandleMessage(s *Session, msg Message) error

	// HandleError is called when the socket fails.
	HandleError(s *Session, err error)

	// HandleClose is called exactly once when the socket goes away.
	HandleClose(s *Session, code int, reason string)
}

// Endpoint is the http.Handler jambonz connects to.
type Endpoint struct {
	handler  Handler
	logger   *log.Logger
	upgrader websocket.Upgrader
	verbose  bool
}

// NewEndpoint creates a new Endpoint. With verbose set, every inbound
// frame is logged.
func NewEndpoint(handler Handler, logger *log.Logger, verbose bool) *Endpoint {
	return &Endpoint{
		handler: handler,
		logger:  logger,
		verbose: verbose,
		upgrader: websocket.Upgrader{
			Subprotocols: []string{Subprotocol},
			CheckOrigin:  func(r *http.Request) bool { return true },
		},
	}
}

func (e *Endpoint) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	conn, err := e.upgrader.Upgrade(w, req, nil)
	if err != nil {
		e.logger.Printf("jambonz: upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	if conn.Subprotocol() != Subprotocol {
		e.logger.Printf("jambonz: client did not negotiate %s (got %q)", Subprotocol, conn.Subprotocol())
	}

	var sess *Session
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			e.finish(sess, err)
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			e.logger.Printf("jambonz: failed to parse message: %v", err)
			continue
		}
		if e.verbose {
			e.logger.Printf("jambonz: <- %s", data)
		}

		switch msg.Type {
		case TypeSessionNew:
			if sess != nil {
				e.report(sess.CallSid, fmt.Errorf("%w: ignoring session:new for call %s", ErrSessionExists, msg.CallSid))
				continue
			}
			var info CallInfo
			if err := msg.Decode(&info); err != nil {
				e.logger.Printf("jambonz: bad session:new payload: %v", err)
			}
			if info.CallSid == "" {
				info.CallSid = msg.CallSid
			}
			s := newSession(conn, info, e.logger)
			if err := e.handler.HandleSessionNew(s, msg); err != nil {
				e.report(s.CallSid, err)
				s.markClosed()
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()), deadline())
				return
			}
			sess = s

		case TypeSessionReconnect:
			e.logger.Printf("jambonz: call %s reconnected", msg.CallSid)

		default:
			if sess == nil {
				e.logger.Printf("jambonz: %s for call %s before session:new, ignoring", msg.Type, msg.CallSid)
				continue
			}
			if err := e.handler.HandleMessage(sess, msg); err != nil {
				e.report(sess.CallSid, err)
			}
		}
	}
}

func (e *Endpoint) finish(sess *Session, err error) {
	if sess == nil {
		e.logger.Printf("jambonz: connection closed before session:new: %v", err)
		return
	}
	sess.markClosed()

	// A peer that vanishes without a close frame surfaces as 1006.
	var ce *websocket.CloseError
	if errors.As(err, &ce) && ce.Code != websocket.CloseAbnormalClosure {
		e.handler.HandleClose(sess, ce.Code, ce.Text)
		return
	}
	e.handler.HandleError(sess, err)
	e.handler.HandleClose(sess, websocket.CloseAbnormalClosure, err.Error())
}

// report logs a handler failure and forwards it to Sentry.
func (e *Endpoint) report(callSid string, err error) {
	e.logger.Printf("jambonz: error: call %s: %v", callSid, err)
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("call_sid", callSid)
		sentry.CaptureException(err)
	})
}
