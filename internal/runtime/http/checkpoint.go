package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/courseloop/runtimegw/internal/runtime/domain"
	"github.com/courseloop/runtimegw/internal/runtime/service"
	"github.com/courseloop/runtimegw/pkg/httpx"
	"github.com/courseloop/runtimegw/pkg/slogx"
)

// CheckpointHandler saves and loads bounded runtime state blobs.
type CheckpointHandler struct {
	Guard       *service.Guard
	Checkpoints *service.CheckpointService
	policy      writePolicy
}

type checkpointSaveRequest struct {
	Key   string          `json:"key"`
	State json.RawMessage `json:"state"`
}

type checkpointLoadResponse struct {
	Key       string          `json:"key"`
	State     json.RawMessage `json:"state"`
	RequestID string          `json:"requestId"`
}

func (h *CheckpointHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	claims, gerr := h.Guard.Authorize(r.Header.Get("Authorization"), r.Header.Get("Origin"),
		service.ScopeRequirement{All: []string{domain.ScopeProgressWrite}})
	if gerr != nil {
		httpx.Error(w, r, gerr.Status, gerr.Code, gerr.Message)
		return
	}

	var req checkpointSaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, r, http.StatusBadRequest, httpx.CodeBadRequest, "Invalid JSON body")
		return
	}

	if h.policy.apply(w, r, claims.CourseID, claims.Alias) {
		return
	}

	err := h.Checkpoints.Save(ctx, claims.CourseID, claims.Alias, req.Key, req.State)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCheckpointKeyRequired):
			httpx.Error(w, r, http.StatusBadRequest, httpx.CodeBadRequest, "key is required")
		case errors.Is(err, service.ErrCheckpointStateRequired):
			httpx.Error(w, r, http.StatusBadRequest, httpx.CodeBadRequest, "state is required")
		case errors.Is(err, service.ErrCheckpointTooLarge):
			httpx.Error(w, r, http.StatusBadRequest, httpx.CodeBadRequest, "Checkpoint state too large")
		default:
			log.Error("checkpoint save failed", "err", err)
			httpx.Error(w, r, http.StatusInternalServerError, httpx.CodeDBError, "Checkpoint save failed")
		}
		return
	}

	h.policy.commit(r, claims.CourseID, claims.Alias)
	writeOK(w, r, http.StatusCreated)
}

func (h *CheckpointHandler) HandleLoad(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	claims, gerr := h.Guard.Authorize(r.Header.Get("Authorization"), r.Header.Get("Origin"),
		service.ScopeRequirement{Any: []string{domain.ScopeProgressRead, domain.ScopeAttemptsRead}})
	if gerr != nil {
		httpx.Error(w, r, gerr.Status, gerr.Code, gerr.Message)
		return
	}

	key := r.URL.Query().Get("key")

	state, err := h.Checkpoints.Load(ctx, claims.CourseID, claims.Alias, key)
	if err != nil {
		if errors.Is(err, service.ErrCheckpointKeyRequired) {
			httpx.Error(w, r, http.StatusBadRequest, httpx.CodeBadRequest, "key is required")
			return
		}
		log.Error("checkpoint load failed", "err", err)
		httpx.Error(w, r, http.StatusInternalServerError, httpx.CodeDBError, "Checkpoint load failed")
		return
	}

	// A missing checkpoint is not an error; state is null.
	httpx.WriteJSON(w, http.StatusOK, checkpointLoadResponse{
		Key:       key,
		State:     state,
		RequestID: slogx.RequestID(ctx),
	})
}
