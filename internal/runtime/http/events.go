package http

import (
	"encoding/json"
	"net/http"

	"github.com/courseloop/runtimegw/internal/runtime/domain"
	"github.com/courseloop/runtimegw/internal/runtime/service"
	"github.com/courseloop/runtimegw/pkg/httpx"
)

// maxEventPayloadBytes bounds the opaque payload an event may carry.
const maxEventPayloadBytes = 8 * 1024

// EventsHandler records generic runtime events. The scope required depends
// on the event type.
type EventsHandler struct {
	Guard     *service.Guard
	Telemetry *service.TelemetryService
	policy    writePolicy
}

type eventRequest struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// The required scope depends on the event type, so the guard runs in
	// two passes: token and audience up front, the scope once the type is
	// known.
	claims, gerr := h.Guard.Authorize(r.Header.Get("Authorization"), r.Header.Get("Origin"),
		service.ScopeRequirement{})
	if gerr != nil {
		httpx.Error(w, r, gerr.Status, gerr.Code, gerr.Message)
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, r, http.StatusBadRequest, httpx.CodeBadRequest, "Invalid JSON body")
		return
	}

	scope := domain.ScopeForEvent(req.Type)
	if scope == "" {
		httpx.Error(w, r, http.StatusBadRequest, httpx.CodeBadRequest, "Unknown event type")
		return
	}
	if len(req.Payload) > maxEventPayloadBytes {
		httpx.Error(w, r, http.StatusBadRequest, httpx.CodeBadRequest, "Event payload too large")
		return
	}
	if !claims.HasScope(scope) {
		httpx.Error(w, r, http.StatusForbidden, httpx.CodeForbidden, "Missing scope "+scope)
		return
	}

	if h.policy.apply(w, r, claims.CourseID, claims.Alias) {
		return
	}

	h.Telemetry.Record(r.Context(), claims.CourseID, claims.Alias, req.Type, req.Payload)

	h.policy.commit(r, claims.CourseID, claims.Alias)
	writeOK(w, r, http.StatusCreated)
}
