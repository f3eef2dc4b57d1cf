package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/courseloop/runtimegw/internal/runtime/domain"
	"github.com/courseloop/runtimegw/internal/runtime/service"
	"github.com/courseloop/runtimegw/pkg/httpx"
	"github.com/courseloop/runtimegw/pkg/presign"
	"github.com/courseloop/runtimegw/pkg/slogx"
)

// AssetSignHandler mints presigned upload descriptors.
type AssetSignHandler struct {
	Guard  *service.Guard
	Assets *service.AssetService
	policy writePolicy
}

type assetSignRequest struct {
	ContentType string `json:"contentType"`
}

type assetSignResponse struct {
	presign.UploadDescriptor

	RequestID string `json:"requestId"`
}

func (h *AssetSignHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	claims, gerr := h.Guard.Authorize(r.Header.Get("Authorization"), r.Header.Get("Origin"),
		service.ScopeRequirement{All: []string{domain.ScopeFilesWrite}})
	if gerr != nil {
		httpx.Error(w, r, gerr.Status, gerr.Code, gerr.Message)
		return
	}

	var req assetSignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, r, http.StatusBadRequest, httpx.CodeBadRequest, "Invalid JSON body")
		return
	}
	if req.ContentType == "" {
		httpx.Error(w, r, http.StatusBadRequest, httpx.CodeBadRequest, "contentType is required")
		return
	}

	if h.policy.apply(w, r, claims.CourseID, claims.Alias) {
		return
	}

	desc, err := h.Assets.SignUploadURL(ctx, claims.CourseID, claims.Alias, req.ContentType)
	if err != nil {
		if errors.Is(err, service.ErrUnsupportedContentType) {
			httpx.Error(w, r, http.StatusBadRequest, httpx.CodeBadRequest, "Unsupported content type")
			return
		}
		log.Error("asset sign-url failed", "err", err)
		httpx.Error(w, r, http.StatusInternalServerError, httpx.CodeInternal, "Failed to sign upload url")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, assetSignResponse{
		UploadDescriptor: desc,
		RequestID:        slogx.RequestID(ctx),
	})
}
