package jobstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"stencil/internal/domain"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	return store
}

func TestFileStoreCreateAndGet(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, &domain.Job{
		Prompt:    "ornate gold frame",
		AssetType: domain.AssetTypeContainer,
		Name:      "gold_frame",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.ID == "" {
		t.Fatalf("Create() did not assign an id")
	}
	if created.Status != domain.JobStatusQueued {
		t.Fatalf("Create() status = %v, want queued", created.Status)
	}
	if created.Stage != domain.StageInitialized {
		t.Fatalf("Create() stage = %v, want initialized", created.Stage)
	}

	for _, dir := range []string{
		store.WorkspaceDir(created.ID),
		store.OutputsDir(created.ID),
		store.TraceDir(created.ID),
	} {
		if _, err := os.Stat(dir); err != nil {
			t.Fatalf("artifact dir %s not created: %v", dir, err)
		}
	}

	got, err := store.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Prompt != created.Prompt || got.Name != created.Name || got.AssetType != created.AssetType {
		t.Fatalf("Get() = %+v, want fields from %+v", got, created)
	}
}

func TestFileStoreDuplicateID(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	if _, err := store.Create(ctx, &domain.Job{ID: "job-1", Prompt: "a"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	_, err := store.Create(ctx, &domain.Job{ID: "job-1", Prompt: "b"})
	if !errors.Is(err, domain.ErrDuplicateID) {
		t.Fatalf("Create() duplicate error = %v, want ErrDuplicateID", err)
	}
}

func TestFileStoreGetNotFound(t *testing.T) {
	store := newTestFileStore(t)
	if _, err := store.Get(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestFileStoreSaveNotFound(t *testing.T) {
	store := newTestFileStore(t)
	err := store.Save(context.Background(), &domain.Job{ID: "missing"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Save() error = %v, want ErrNotFound", err)
	}
}

func TestFileStoreSaveAndListByStatus(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	a, err := store.Create(ctx, &domain.Job{Prompt: "first"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := store.Create(ctx, &domain.Job{Prompt: "second"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	a.Fail(domain.ErrCodeGenerationFailed, "provider down", 0)
	if err := store.Save(ctx, a); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	failed, err := store.List(ctx, Filter{Status: domain.JobStatusFailed})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(failed) != 1 || failed[0].ID != a.ID {
		t.Fatalf("List(failed) = %d jobs, want exactly the failed one", len(failed))
	}

	all, err := store.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("List() = %d jobs, want 2", len(all))
	}
}

func TestFileStoreRecordIsCompleteJSON(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	job, err := store.Create(ctx, &domain.Job{Prompt: "atomic"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// The record file must exist and no temp leftovers may remain: writes
	// go through a rename, never a partial write in place.
	entries, err := os.ReadDir(store.JobDir(job.ID))
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if e.Name() != jobFileName {
			t.Fatalf("unexpected file %q in job dir", e.Name())
		}
	}
	if _, err := os.Stat(filepath.Join(store.JobDir(job.ID), jobFileName)); err != nil {
		t.Fatalf("job record missing: %v", err)
	}
}

func TestFileStoreClaimExclusive(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	first, err := store.Create(ctx, &domain.Job{Prompt: "first"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	time.Sleep(5 * time.Millisecond) // keep creation order unambiguous
	second, err := store.Create(ctx, &domain.Job{Prompt: "second"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	claimedA, releaseA, err := store.Claim(ctx)
	if err != nil {
		t.Fatalf("Claim() error = %v", err)
	}
	defer releaseA()
	if claimedA.ID != first.ID {
		t.Fatalf("Claim() = %s, want oldest job %s", claimedA.ID, first.ID)
	}

	claimedB, releaseB, err := store.Claim(ctx)
	if err != nil {
		t.Fatalf("second Claim() error = %v", err)
	}
	defer releaseB()
	if claimedB.ID != second.ID {
		t.Fatalf("second Claim() = %s, want %s", claimedB.ID, second.ID)
	}

	if _, _, err := store.Claim(ctx); !errors.Is(err, domain.ErrNoJobAvailable) {
		t.Fatalf("third Claim() error = %v, want ErrNoJobAvailable", err)
	}
}

func TestFileStoreClaimSkipsTerminalJobs(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	job, err := store.Create(ctx, &domain.Job{Prompt: "done already"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	job.Fail(domain.ErrCodeNoOpaqueContent, "nothing there", 0)
	if err := store.Save(ctx, job); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if _, _, err := store.Claim(ctx); !errors.Is(err, domain.ErrNoJobAvailable) {
		t.Fatalf("Claim() error = %v, want ErrNoJobAvailable", err)
	}
}
