package service

import (
	"context"
	"time"

	"github.com/courseloop/runtimegw/internal/runtime/domain"
	"github.com/courseloop/runtimegw/internal/runtime/store"
	"github.com/courseloop/runtimegw/pkg/idx"
	"github.com/courseloop/runtimegw/pkg/slogx"
)

// TelemetryService records runtime-side writes (progress, grades, generic
// events) as append-only records. Every write is fire-and-forget with a
// logged failure: telemetry must never fail the capability call that
// produced it.
type TelemetryService struct {
	Store store.Store
}

// Record appends one event. Failures are logged, never returned.
func (s *TelemetryService) Record(ctx context.Context, courseID, alias, kind string, payload []byte) {
	log := slogx.FromContext(ctx)

	if len(payload) == 0 {
		payload = []byte("{}")
	}

	event := domain.RuntimeEvent{
		ID:        idx.New().String(),
		CourseID:  courseID,
		Alias:     alias,
		Kind:      kind,
		Payload:   payload,
		CreatedAt: time.Now(),
	}
	if err := s.Store.Events().CreateEvent(ctx, event); err != nil {
		log.Warn("telemetry write dropped", "kind", kind, "course_id", courseID, "error", err)
	}
}
