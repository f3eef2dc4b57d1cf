package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/courseloop/runtimegw/internal/runtime/service"
	"github.com/courseloop/runtimegw/pkg/httpx"
	"github.com/courseloop/runtimegw/pkg/jwtx"
	"github.com/courseloop/runtimegw/pkg/slogx"
)

// LaunchTokenHandler issues one-time launch tokens to platform-session
// authenticated callers.
type LaunchTokenHandler struct {
	LaunchService   *service.LaunchService
	SessionVerifier *jwtx.Verifier
}

type launchTokenRequest struct {
	EnrollmentID string   `json:"enrollmentId"`
	Scopes       []string `json:"scopes,omitempty"`
}

type launchTokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
	RequestID string `json:"requestId"`
}

func (h *LaunchTokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	session, ok := h.authenticate(r)
	if !ok {
		httpx.Error(w, r, http.StatusUnauthorized, httpx.CodeUnauthenticated, "Platform session required")
		return
	}

	var req launchTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, r, http.StatusBadRequest, httpx.CodeBadRequest, "Invalid JSON body")
		return
	}
	if req.EnrollmentID == "" {
		httpx.Error(w, r, http.StatusBadRequest, httpx.CodeBadRequest, "enrollmentId is required")
		return
	}

	resp, err := h.LaunchService.IssueLaunchToken(ctx, service.LaunchRequest{
		EnrollmentID: req.EnrollmentID,
		CallerID:     session.Subject,
		Scopes:       req.Scopes,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEnrollmentNotFound):
			httpx.Error(w, r, http.StatusNotFound, httpx.CodeNotFound, "Enrollment not found")
		case errors.Is(err, service.ErrNotEntitled):
			httpx.Error(w, r, http.StatusForbidden, httpx.CodeForbidden, "Not entitled to launch this course")
		default:
			log.Error("failed to issue launch token", "err", err)
			httpx.Error(w, r, http.StatusInternalServerError, httpx.CodeInternal, "Failed to issue launch token")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, launchTokenResponse{
		Token:     resp.Token,
		ExpiresAt: resp.ExpiresAt.Unix(),
		RequestID: slogx.RequestID(ctx),
	})
}

func (h *LaunchTokenHandler) authenticate(r *http.Request) (jwtx.SessionClaims, bool) {
	token, ok := httpx.BearerToken(r.Header.Get("Authorization"))
	if !ok {
		return jwtx.SessionClaims{}, false
	}
	claims, err := h.SessionVerifier.VerifySession(token)
	if err != nil {
		return jwtx.SessionClaims{}, false
	}
	return claims, true
}
