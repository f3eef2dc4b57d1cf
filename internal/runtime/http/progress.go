package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/courseloop/runtimegw/internal/runtime/domain"
	"github.com/courseloop/runtimegw/internal/runtime/service"
	"github.com/courseloop/runtimegw/pkg/httpx"
)

// ProgressHandler records course progress reported by an external runtime.
type ProgressHandler struct {
	Guard     *service.Guard
	Telemetry *service.TelemetryService
	policy    writePolicy
}

type progressRequest struct {
	Pct *float64 `json:"pct"`
}

func (h *ProgressHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims, gerr := h.Guard.Authorize(r.Header.Get("Authorization"), r.Header.Get("Origin"),
		service.ScopeRequirement{All: []string{domain.ScopeProgressWrite}})
	if gerr != nil {
		httpx.Error(w, r, gerr.Status, gerr.Code, gerr.Message)
		return
	}

	var req progressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, r, http.StatusBadRequest, httpx.CodeBadRequest, "Invalid JSON body")
		return
	}
	if req.Pct == nil || *req.Pct < 0 || *req.Pct > 100 {
		httpx.Error(w, r, http.StatusBadRequest, httpx.CodeBadRequest, "pct must be between 0 and 100")
		return
	}

	if h.policy.apply(w, r, claims.CourseID, claims.Alias) {
		return
	}

	payload := fmt.Appendf(nil, `{"pct":%g}`, *req.Pct)
	h.Telemetry.Record(r.Context(), claims.CourseID, claims.Alias, domain.EventProgress, payload)

	h.policy.commit(r, claims.CourseID, claims.Alias)
	writeOK(w, r, http.StatusCreated)
}
