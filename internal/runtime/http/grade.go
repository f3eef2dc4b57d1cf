package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/courseloop/runtimegw/internal/runtime/domain"
	"github.com/courseloop/runtimegw/internal/runtime/service"
	"github.com/courseloop/runtimegw/pkg/httpx"
)

// GradeHandler records a completed attempt's score.
type GradeHandler struct {
	Guard     *service.Guard
	Telemetry *service.TelemetryService
	policy    writePolicy
}

type gradeRequest struct {
	Score    *float64 `json:"score"`
	MaxScore float64  `json:"maxScore,omitempty"`
}

func (h *GradeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims, gerr := h.Guard.Authorize(r.Header.Get("Authorization"), r.Header.Get("Origin"),
		service.ScopeRequirement{All: []string{domain.ScopeAttemptsWrite}})
	if gerr != nil {
		httpx.Error(w, r, gerr.Status, gerr.Code, gerr.Message)
		return
	}

	var req gradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, r, http.StatusBadRequest, httpx.CodeBadRequest, "Invalid JSON body")
		return
	}
	if req.Score == nil || *req.Score < 0 {
		httpx.Error(w, r, http.StatusBadRequest, httpx.CodeBadRequest, "score must be a non-negative number")
		return
	}
	if req.MaxScore != 0 && *req.Score > req.MaxScore {
		httpx.Error(w, r, http.StatusBadRequest, httpx.CodeBadRequest, "score must not exceed maxScore")
		return
	}

	if h.policy.apply(w, r, claims.CourseID, claims.Alias) {
		return
	}

	payload := fmt.Appendf(nil, `{"score":%g,"maxScore":%g}`, *req.Score, req.MaxScore)
	h.Telemetry.Record(r.Context(), claims.CourseID, claims.Alias, domain.EventAttemptCompleted, payload)

	h.policy.commit(r, claims.CourseID, claims.Alias)
	writeOK(w, r, http.StatusCreated)
}
