package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/courseloop/runtimegw/internal/runtime/service"
	"github.com/courseloop/runtimegw/pkg/httpx"
	"github.com/courseloop/runtimegw/pkg/slogx"
)

// ExchangeHandler turns launch tokens into runtime tokens.
type ExchangeHandler struct {
	ExchangeService *service.ExchangeService
}

type exchangeRequest struct {
	Token string `json:"token"`
}

type exchangeResponse struct {
	RuntimeToken string `json:"runtimeToken"`
	ExpiresAt    int64  `json:"expiresAt"`
	RequestID    string `json:"requestId"`
}

func (h *ExchangeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req exchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, r, http.StatusBadRequest, httpx.CodeBadRequest, "Invalid JSON body")
		return
	}
	if req.Token == "" {
		httpx.Error(w, r, http.StatusBadRequest, httpx.CodeBadRequest, "token is required")
		return
	}

	resp, err := h.ExchangeService.Exchange(ctx, service.ExchangeRequest{
		LaunchToken: req.Token,
		Origin:      r.Header.Get("Origin"),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMalformedClaims):
			httpx.Error(w, r, http.StatusBadRequest, httpx.CodeBadRequest, "Malformed launch token claims")
		case errors.Is(err, service.ErrAudienceMismatch):
			httpx.Error(w, r, http.StatusForbidden, httpx.CodeForbidden, "Audience mismatch")
		case errors.Is(err, service.ErrInvalidLaunchToken):
			httpx.Error(w, r, http.StatusForbidden, httpx.CodeForbidden, "Invalid token")
		case errors.Is(err, service.ErrSignFailed):
			log.Error("exchange failed", "err", err)
			httpx.Error(w, r, http.StatusInternalServerError, httpx.CodeInternal, "Exchange failed")
		default:
			log.Error("exchange failed", "err", err)
			httpx.Error(w, r, http.StatusInternalServerError, httpx.CodeDBError, "Exchange failed")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, exchangeResponse{
		RuntimeToken: resp.RuntimeToken,
		ExpiresAt:    resp.ExpiresAt.Unix(),
		RequestID:    slogx.RequestID(ctx),
	})
}
