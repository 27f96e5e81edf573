package jobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"stencil/internal/domain"
)

const (
	jobFileName   = "job.json"
	claimFileName = "claim.lock"

	// Per-job artifact areas. Workspace holds intermediate generation
	// passes, outputs the final deliverables, trace the append-only event
	// log. Three independent classes, never overwritten once written.
	workspaceDirName = "workspace"
	outputsDirName   = "outputs"
	traceDirName     = "trace"
)

// FileStore persists one directory per job under a base path. Records are
// written to a temporary file and atomically renamed into place so a reader
// never observes a partially written record.
type FileStore struct {
	baseDir string
}

// NewFileStore initializes a FileStore rooted at baseDir.
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		return nil, errors.New("jobstore: base dir is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("jobstore: ensure base dir: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

// JobDir returns the directory holding all artifacts for a job.
func (s *FileStore) JobDir(id string) string { return filepath.Join(s.baseDir, id) }

// WorkspaceDir returns the intermediate-pass area for a job.
func (s *FileStore) WorkspaceDir(id string) string {
	return filepath.Join(s.JobDir(id), workspaceDirName)
}

// OutputsDir returns the final-output area for a job.
func (s *FileStore) OutputsDir(id string) string {
	return filepath.Join(s.JobDir(id), outputsDirName)
}

// TraceDir returns the trace-log area for a job.
func (s *FileStore) TraceDir(id string) string {
	return filepath.Join(s.JobDir(id), traceDirName)
}

func (s *FileStore) jobFile(id string) string {
	return filepath.Join(s.JobDir(id), jobFileName)
}

// Create persists a new queued job and prepares its artifact areas.
func (s *FileStore) Create(ctx context.Context, job *domain.Job) (*domain.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	} else if _, err := os.Stat(s.jobFile(job.ID)); err == nil {
		return nil, fmt.Errorf("jobstore: job %s: %w", job.ID, domain.ErrDuplicateID)
	}

	now := time.Now().UTC()
	job.Status = domain.JobStatusQueued
	job.Stage = domain.StageInitialized
	job.CreatedAt = now
	job.UpdatedAt = now

	for _, dir := range []string{
		s.JobDir(job.ID),
		s.WorkspaceDir(job.ID),
		s.OutputsDir(job.ID),
		s.TraceDir(job.ID),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("jobstore: ensure job dirs: %w", err)
		}
	}

	if err := s.write(job); err != nil {
		return nil, err
	}
	return job, nil
}

// Save atomically overwrites the record for job.ID.
func (s *FileStore) Save(ctx context.Context, job *domain.Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if job.ID == "" {
		return errors.New("jobstore: job id is required")
	}
	if _, err := os.Stat(s.JobDir(job.ID)); err != nil {
		return fmt.Errorf("jobstore: job %s: %w", job.ID, domain.ErrNotFound)
	}
	job.UpdatedAt = time.Now().UTC()
	return s.write(job)
}

func (s *FileStore) write(job *domain.Job) error {
	data, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return fmt.Errorf("jobstore: encode job %s: %w", job.ID, err)
	}

	dir := s.JobDir(job.ID)
	tmp, err := os.CreateTemp(dir, jobFileName+".*")
	if err != nil {
		return fmt.Errorf("jobstore: temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("jobstore: write job %s: %w", job.ID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("jobstore: close temp: %w", err)
	}
	if err := os.Rename(tmpName, s.jobFile(job.ID)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("jobstore: commit job %s: %w", job.ID, err)
	}
	return nil
}

// Get returns the record for id or domain.ErrNotFound.
func (s *FileStore) Get(ctx context.Context, id string) (*domain.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.jobFile(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("jobstore: job %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("jobstore: read job %s: %w", id, err)
	}
	var job domain.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("jobstore: decode job %s: %w", id, err)
	}
	return &job, nil
}

// List returns all records matching the filter, newest first.
func (s *FileStore) List(ctx context.Context, filter Filter) ([]*domain.Job, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("jobstore: list: %w", err)
	}
	var jobs []*domain.Job
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.IsDir() {
			continue
		}
		job, err := s.Get(ctx, entry.Name())
		if err != nil {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.After(jobs[j].CreatedAt) })
	return jobs, nil
}

// Claim takes exclusive ownership of the oldest queued job. Ownership is
// an OS-level file lock so a second worker process can never claim the
// same job while the first holds it.
func (s *FileStore) Claim(ctx context.Context) (*domain.Job, ReleaseFunc, error) {
	jobs, err := s.List(ctx, Filter{Status: domain.JobStatusQueued})
	if err != nil {
		return nil, nil, err
	}
	// Oldest first.
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.Before(jobs[j].CreatedAt) })

	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		lock := flock.New(filepath.Join(s.JobDir(job.ID), claimFileName))
		locked, err := lock.TryLock()
		if err != nil || !locked {
			continue
		}
		// Re-read under the lock: another owner may have advanced it
		// before we acquired the lock.
		fresh, err := s.Get(ctx, job.ID)
		if err != nil || fresh.Status != domain.JobStatusQueued {
			lock.Unlock()
			continue
		}
		release := func() { lock.Unlock() }
		return fresh, release, nil
	}
	return nil, nil, domain.ErrNoJobAvailable
}

var _ Store = (*FileStore)(nil)
