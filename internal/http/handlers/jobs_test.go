package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"stencil/internal/domain"
	"stencil/internal/http/handlers"
	"stencil/internal/http/httpapi"
	"stencil/internal/infra"
	"stencil/internal/jobstore"
)

func newTestServer(t *testing.T) (http.Handler, *jobstore.MemStore) {
	t.Helper()
	store := jobstore.NewMemStore()
	app := handlers.NewApp(store, infra.Logger(zerolog.New(io.Discard)))
	return httpapi.NewRouter(app), store
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestCreateJobAccepted(t *testing.T) {
	handler, store := newTestServer(t)

	rec := postJSON(t, handler, "/v1/jobs", map[string]any{
		"prompt":     "ornate gold frame",
		"asset_type": "container",
		"name":       "gold_frame",
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d; body = %s", rec.Code, http.StatusAccepted, rec.Body)
	}

	var job domain.Job
	if err := json.Unmarshal(rec.Body.Bytes(), &job); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if job.ID == "" || job.Status != domain.JobStatusQueued {
		t.Fatalf("response job = %+v, want assigned id and queued status", job)
	}
	if job.AssetType != domain.AssetTypeContainer {
		t.Fatalf("AssetType = %v, want container", job.AssetType)
	}

	stored, err := store.Get(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("job not persisted: %v", err)
	}
	if stored.Name != "gold_frame" {
		t.Fatalf("stored name = %q, want gold_frame", stored.Name)
	}
}

func TestCreateJobInfersTypeAndName(t *testing.T) {
	handler, _ := newTestServer(t)

	rec := postJSON(t, handler, "/v1/jobs", map[string]any{
		"prompt": "sparkling magic effect burst",
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d; body = %s", rec.Code, http.StatusAccepted, rec.Body)
	}
	var job domain.Job
	if err := json.Unmarshal(rec.Body.Bytes(), &job); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if job.AssetType != domain.AssetTypeEffect {
		t.Fatalf("AssetType = %v, want inferred effect", job.AssetType)
	}
	if !strings.HasPrefix(job.Name, "asset_") {
		t.Fatalf("Name = %q, want default asset_ prefix", job.Name)
	}
	if job.LayoutIntent != domain.DefaultLayoutIntent {
		t.Fatalf("LayoutIntent = %q, want %q", job.LayoutIntent, domain.DefaultLayoutIntent)
	}
}

func TestCreateJobRejectsOverlongPrompt(t *testing.T) {
	handler, store := newTestServer(t)

	rec := postJSON(t, handler, "/v1/jobs", map[string]any{
		"prompt": strings.Repeat("x", domain.MaxPromptLength+1),
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}

	// Synchronous rejection: no record may exist.
	jobs, err := store.List(context.Background(), jobstore.Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("rejected request left %d job records", len(jobs))
	}
}

func TestCreateJobRejectsUnknownAssetType(t *testing.T) {
	handler, _ := newTestServer(t)

	rec := postJSON(t, handler, "/v1/jobs", map[string]any{
		"prompt":     "a thing",
		"asset_type": "hologram",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
}

func TestGetJob(t *testing.T) {
	handler, store := newTestServer(t)

	created, err := store.Create(context.Background(), &domain.Job{Prompt: "vine divider", Name: "vine"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/jobs/"+created.ID, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var job domain.Job
	if err := json.Unmarshal(rec.Body.Bytes(), &job); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if job.ID != created.ID || job.Prompt != "vine divider" {
		t.Fatalf("GetJob = %+v, want the created record", job)
	}
}

func TestGetJobNotFound(t *testing.T) {
	handler, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/jobs/nope", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestListJobsFilterByStatus(t *testing.T) {
	handler, store := newTestServer(t)
	ctx := context.Background()

	a, err := store.Create(ctx, &domain.Job{Prompt: "one"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := store.Create(ctx, &domain.Job{Prompt: "two"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	a.Fail(domain.ErrCodeGenerationFailed, "boom", 0)
	if err := store.Save(ctx, a); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/jobs?status=failed", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp struct {
		Jobs  []domain.Job `json:"jobs"`
		Count int          `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 1 || len(resp.Jobs) != 1 || resp.Jobs[0].ID != a.ID {
		t.Fatalf("filtered list = %+v, want only the failed job", resp)
	}
}

func TestHealth(t *testing.T) {
	handler, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}
