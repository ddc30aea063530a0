package httpapi

import (
	"net/http"
	"strconv"
)

func (r *Router) handleListCalls(w http.ResponseWriter, req *http.Request) {
	calls := r.calls.Snapshots()
	writeJSON(w, http.StatusOK, map[string]any{
		"calls":    calls,
		"draining": r.calls.IsDraining(),
	})
}

func (r *Router) handleGetCall(w http.ResponseWriter, req *http.Request) {
	callSid := req.PathValue("callSid")
	s, ok := r.calls.Lookup(callSid)
	if !ok {
		http.Error(w, `{"error": "not found"}`, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// handleGetCallEvents returns the recorded events for a call, live or not.
func (r *Router) handleGetCallEvents(w http.ResponseWriter, req *http.Request) {
	if r.eventLog == nil || !r.eventLog.Enabled() {
		http.Error(w, `{"error": "event log not configured"}`, http.StatusServiceUnavailable)
		return
	}

	callSid := req.PathValue("callSid")
	limit := 200
	if v := req.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, `{"error": "invalid limit"}`, http.StatusBadRequest)
			return
		}
		limit = n
	}

	events, err := r.eventLog.List(req.Context(), callSid, limit)
	if err != nil {
		r.logger.Printf("operator %s: failed to list events for %s: %v", operatorName(req.Context()), callSid, err)
		captureError(req, err, "list call events")
		http.Error(w, `{"error": "database error"}`, http.StatusInternalServerError)
		return
	}
	if len(events) == 0 {
		http.Error(w, `{"error": "not found"}`, http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"call_sid": callSid,
		"events":   events,
	})
}
