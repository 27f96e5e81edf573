package jobstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"stencil/internal/domain"
)

// MemStore is an in-memory Store for tests and embedded use. Records are
// deep-copied on the way in and out so callers never share mutable state
// with the store.
type MemStore struct {
	mu      sync.RWMutex
	jobs    map[string]*domain.Job
	claimed map[string]bool
}

// NewMemStore initializes an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		jobs:    make(map[string]*domain.Job),
		claimed: make(map[string]bool),
	}
}

func copyJob(job *domain.Job) *domain.Job {
	dup := *job
	if job.RenderSizeHint != nil {
		v := *job.RenderSizeHint
		dup.RenderSizeHint = &v
	}
	if job.RetryAfter != nil {
		v := *job.RetryAfter
		dup.RetryAfter = &v
	}
	if job.Component != nil {
		c := *job.Component
		dup.Component = &c
	}
	return &dup
}

// Create persists a new queued job.
func (s *MemStore) Create(ctx context.Context, job *domain.Job) (*domain.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if job.ID == "" {
		job.ID = uuid.NewString()
	} else if _, exists := s.jobs[job.ID]; exists {
		return nil, fmt.Errorf("jobstore: job %s: %w", job.ID, domain.ErrDuplicateID)
	}

	now := time.Now().UTC()
	job.Status = domain.JobStatusQueued
	job.Stage = domain.StageInitialized
	job.CreatedAt = now
	job.UpdatedAt = now

	s.jobs[job.ID] = copyJob(job)
	return job, nil
}

// Save overwrites the record for job.ID.
func (s *MemStore) Save(ctx context.Context, job *domain.Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; !exists {
		return fmt.Errorf("jobstore: job %s: %w", job.ID, domain.ErrNotFound)
	}
	job.UpdatedAt = time.Now().UTC()
	s.jobs[job.ID] = copyJob(job)
	return nil
}

// Get returns the record for id or domain.ErrNotFound.
func (s *MemStore) Get(ctx context.Context, id string) (*domain.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[id]
	if !exists {
		return nil, fmt.Errorf("jobstore: job %s: %w", id, domain.ErrNotFound)
	}
	return copyJob(job), nil
}

// List returns records matching the filter, newest first.
func (s *MemStore) List(ctx context.Context, filter Filter) ([]*domain.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var jobs []*domain.Job
	for _, job := range s.jobs {
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		jobs = append(jobs, copyJob(job))
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.After(jobs[j].CreatedAt) })
	return jobs, nil
}

// Claim takes exclusive ownership of the oldest queued unclaimed job.
func (s *MemStore) Claim(ctx context.Context) (*domain.Job, ReleaseFunc, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var oldest *domain.Job
	for _, job := range s.jobs {
		if job.Status != domain.JobStatusQueued || s.claimed[job.ID] {
			continue
		}
		if oldest == nil || job.CreatedAt.Before(oldest.CreatedAt) {
			oldest = job
		}
	}
	if oldest == nil {
		return nil, nil, domain.ErrNoJobAvailable
	}

	id := oldest.ID
	s.claimed[id] = true
	release := func() {
		s.mu.Lock()
		delete(s.claimed, id)
		s.mu.Unlock()
	}
	return copyJob(oldest), release, nil
}

var _ Store = (*MemStore)(nil)
