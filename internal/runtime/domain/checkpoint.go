package domain

import "time"

// Checkpoint is a bounded blob of runtime state keyed by
// (course, alias, key). Saves upsert; loads of absent rows are not errors.
type Checkpoint struct {
	ID        string
	CourseID  string
	Alias     string
	Key       string
	State     []byte // JSON, size-capped at write time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DefaultCheckpointMaxBytes caps the serialized state size on save.
const DefaultCheckpointMaxBytes = 32 * 1024
