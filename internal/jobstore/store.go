// Package jobstore persists job records. The durable implementation is a
// JSON-file-per-job directory tree with atomic replace semantics; an
// in-memory implementation backs tests and embedded use.
package jobstore

import (
	"context"

	"stencil/internal/domain"
)

// Filter narrows List results. Zero value lists everything.
type Filter struct {
	Status domain.JobStatus
}

// ReleaseFunc relinquishes ownership of a claimed job. It must be called
// once the job reaches a terminal state.
type ReleaseFunc func()

// Store is the durable record of job state. At most one writer per job id
// is allowed at any time; Claim enforces that ownership. Readers may run
// concurrently with the writer and always observe a complete record.
type Store interface {
	// Create persists a new queued job. When job.ID is empty an id is
	// assigned; a caller-supplied colliding id yields domain.ErrDuplicateID.
	Create(ctx context.Context, job *domain.Job) (*domain.Job, error)

	// Save atomically overwrites the record for job.ID and bumps UpdatedAt.
	Save(ctx context.Context, job *domain.Job) error

	// Get returns the record for id or domain.ErrNotFound.
	Get(ctx context.Context, id string) (*domain.Job, error)

	// List returns records matching the filter, newest first. Operational
	// visibility only.
	List(ctx context.Context, filter Filter) ([]*domain.Job, error)

	// Claim takes exclusive ownership of the oldest queued job. It returns
	// domain.ErrNoJobAvailable when nothing is queued.
	Claim(ctx context.Context) (*domain.Job, ReleaseFunc, error)
}
