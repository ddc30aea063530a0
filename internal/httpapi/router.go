package httpapi

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/lukasbauer/calltranslator/internal/eventlog"
	"github.com/lukasbauer/calltranslator/internal/translator"
)

type RouterConfig struct {
	// HS256 secret for operator tokens; empty disables /calls
	AdminJWTSecret string
}

// CallRegistry is the view of live calls the router needs.
type CallRegistry interface {
	Snapshots() []translator.Snapshot
	Lookup(callSid string) (*translator.CallSession, bool)
	ActiveCount() int64
	IsDraining() bool
}

// EventStore reads back recorded call events.
type EventStore interface {
	Enabled() bool
	List(ctx context.Context, callID string, limit int) ([]eventlog.Event, error)
}

type Router struct {
	cfg      RouterConfig
	logger   *log.Logger
	jambonz  http.Handler
	calls    CallRegistry
	eventLog EventStore
	mux      *http.ServeMux
}

// NewRouter serves the jambonz WebSocket endpoint alongside health and
// operator endpoints.
func NewRouter(cfg RouterConfig, logger *log.Logger, jambonz http.Handler, calls CallRegistry, eventLog EventStore) http.Handler {
	r := &Router{
		cfg:      cfg,
		logger:   logger,
		jambonz:  jambonz,
		calls:    calls,
		eventLog: eventLog,
		mux:      http.NewServeMux(),
	}

	r.routes()
	return withSentryRecovery(r.mux)
}

func (r *Router) routes() {
	r.mux.HandleFunc("GET /healthz", r.handleHealthz)

	// jambonz application socket (ws.jambonz.org)
	r.mux.Handle("GET /translator", r.jambonz)

	// Operator endpoints
	r.mux.HandleFunc("GET /calls", r.withOperator(r.handleListCalls))
	r.mux.HandleFunc("GET /calls/{callSid}", r.withOperator(r.handleGetCall))
	r.mux.HandleFunc("GET /calls/{callSid}/events", r.withOperator(r.handleGetCallEvents))
}

func (r *Router) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	status := http.StatusOK
	state := "ok"
	if r.calls.IsDraining() {
		// lets the load balancer stop sending new calls
		status = http.StatusServiceUnavailable
		state = "draining"
	}
	writeJSON(w, status, map[string]any{
		"status":       state,
		"active_calls": r.calls.ActiveCount(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func withSentryRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				hub := sentry.CurrentHub().Clone()
				hub.Scope().SetRequest(req)
				hub.RecoverWithContext(req.Context(), err)
				hub.Flush(2 * time.Second)
				http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, req)
	})
}

// captureError sends an error to Sentry with request context
func captureError(req *http.Request, err error, msg string) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetRequest(req)
		scope.SetExtra("message", msg)
		sentry.CaptureException(err)
	})
}
