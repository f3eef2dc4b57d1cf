package http

import (
	"errors"
	"net/http"

	"github.com/courseloop/runtimegw/internal/runtime/domain"
	"github.com/courseloop/runtimegw/internal/runtime/service"
	"github.com/courseloop/runtimegw/internal/runtime/store"
	"github.com/courseloop/runtimegw/pkg/httpx"
	"github.com/courseloop/runtimegw/pkg/slogx"
)

// ContextHandler tells an external runtime who it is talking to, in
// pseudonymous terms.
type ContextHandler struct {
	Guard *service.Guard
	Store store.Store
}

type contextResponse struct {
	Alias        string   `json:"alias"`
	Role         string   `json:"role"`
	CourseID     string   `json:"courseId"`
	AssignmentID string   `json:"assignmentId,omitempty"`
	Scopes       []string `json:"scopes"`
	RequestID    string   `json:"requestId"`
}

func (h *ContextHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	claims, gerr := h.Guard.Authorize(r.Header.Get("Authorization"), r.Header.Get("Origin"), service.ScopeRequirement{})
	if gerr != nil {
		httpx.Error(w, r, gerr.Status, gerr.Code, gerr.Message)
		return
	}

	// Ownership presence stands in for full membership resolution: a course
	// with an owning teacher reports "teacher" launches as such.
	role := domain.RoleStudent
	course, err := h.Store.Courses().GetCourseByID(ctx, claims.CourseID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Error("context: course lookup failed", "err", err)
			httpx.Error(w, r, http.StatusInternalServerError, httpx.CodeDBError, "Course lookup failed")
			return
		}
	} else if course.TeacherID != "" {
		role = domain.RoleTeacher
	}

	httpx.WriteJSON(w, http.StatusOK, contextResponse{
		Alias:        claims.Alias,
		Role:         role,
		CourseID:     claims.CourseID,
		AssignmentID: h.assignmentID(r, claims.Alias, claims.CourseID),
		Scopes:       claims.Scopes,
		RequestID:    slogx.RequestID(ctx),
	})
}

// assignmentID reverse-resolves the alias to the enrollment's assignment.
// Aliases without a persisted mapping (no provider) simply have none.
func (h *ContextHandler) assignmentID(r *http.Request, alias, courseID string) string {
	ctx := r.Context()

	mapping, err := h.Store.Aliases().GetAliasByValue(ctx, alias)
	if err != nil {
		return ""
	}
	enrollment, err := h.Store.Enrollments().GetEnrollment(ctx, courseID, mapping.UserID)
	if err != nil {
		return ""
	}
	return enrollment.AssignmentID
}
