package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/courseloop/runtimegw/internal/runtime/domain"
	"github.com/courseloop/runtimegw/internal/runtime/store"
	"github.com/courseloop/runtimegw/pkg/idx"
)

// ErrCheckpointTooLarge means the serialized state exceeds the configured
// size bound.
var ErrCheckpointTooLarge = errors.New("checkpoint state too large")

// ErrCheckpointKeyRequired means the save or load named no key.
var ErrCheckpointKeyRequired = errors.New("checkpoint key required")

// ErrCheckpointStateRequired means the save carried no state at all.
var ErrCheckpointStateRequired = errors.New("checkpoint state required")

// CheckpointService stores bounded runtime state blobs keyed by
// (course, alias, key).
type CheckpointService struct {
	Store store.Store

	// MaxBytes caps the serialized state size; defaults to
	// domain.DefaultCheckpointMaxBytes when zero.
	MaxBytes int
}

// Save upserts the state blob for (courseID, alias, key).
func (s *CheckpointService) Save(ctx context.Context, courseID, alias, key string, state []byte) error {
	if key == "" {
		return ErrCheckpointKeyRequired
	}
	// An absent or literal-null state is a client mistake, not an empty
	// checkpoint; rejecting it here keeps it off the NOT NULL column.
	if len(state) == 0 || string(state) == "null" {
		return ErrCheckpointStateRequired
	}

	max := s.MaxBytes
	if max <= 0 {
		max = domain.DefaultCheckpointMaxBytes
	}
	if len(state) > max {
		return fmt.Errorf("%w: %d bytes over the %d byte limit", ErrCheckpointTooLarge, len(state), max)
	}

	now := time.Now()
	return s.Store.Checkpoints().UpsertCheckpoint(ctx, domain.Checkpoint{
		ID:        idx.New().String(),
		CourseID:  courseID,
		Alias:     alias,
		Key:       key,
		State:     state,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// Load returns the state for (courseID, alias, key). A missing row is not an
// error; the state is nil.
func (s *CheckpointService) Load(ctx context.Context, courseID, alias, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrCheckpointKeyRequired
	}

	ckpt, err := s.Store.Checkpoints().GetCheckpoint(ctx, courseID, alias, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return ckpt.State, nil
}
