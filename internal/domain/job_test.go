package domain

import (
	"testing"
)

func TestJobStatusTerminal(t *testing.T) {
	cases := []struct {
		status JobStatus
		want   bool
	}{
		{JobStatusQueued, false},
		{JobStatusRunning, false},
		{JobStatusSucceeded, true},
		{JobStatusFailed, true},
	}
	for _, tc := range cases {
		if got := tc.status.Terminal(); got != tc.want {
			t.Fatalf("%s.Terminal() = %v, want %v", tc.status, got, tc.want)
		}
	}
}

func TestJobStatusCanTransition(t *testing.T) {
	if !JobStatusQueued.CanTransition(JobStatusRunning) {
		t.Fatalf("queued -> running must be allowed")
	}
	if !JobStatusRunning.CanTransition(JobStatusSucceeded) {
		t.Fatalf("running -> succeeded must be allowed")
	}
	if !JobStatusRunning.CanTransition(JobStatusFailed) {
		t.Fatalf("running -> failed must be allowed")
	}
	if JobStatusRunning.CanTransition(JobStatusQueued) {
		t.Fatalf("running -> queued must be rejected: status never regresses")
	}
	if JobStatusSucceeded.CanTransition(JobStatusFailed) {
		t.Fatalf("terminal states admit no transitions")
	}
	if JobStatusFailed.CanTransition(JobStatusRunning) {
		t.Fatalf("terminal states admit no transitions")
	}
}

func TestJobFailSetsExclusiveError(t *testing.T) {
	job := &Job{ID: "j1", Status: JobStatusRunning, Component: &ComponentManifest{}}
	job.Fail(ErrCodeGenerationFailed, "rate limited past budget", 30)

	if job.Status != JobStatusFailed || job.Stage != StageError {
		t.Fatalf("Fail() = %v/%v, want failed/error", job.Status, job.Stage)
	}
	if job.Component != nil {
		t.Fatalf("Fail() left a component on a failed job")
	}
	if job.RetryAfter == nil || *job.RetryAfter != 30 {
		t.Fatalf("RetryAfter = %v, want 30", job.RetryAfter)
	}
	if err := job.Consistent(); err != nil {
		t.Fatalf("Consistent() error = %v", err)
	}
}

func TestJobFailWithoutRetryHint(t *testing.T) {
	job := &Job{ID: "j1", Status: JobStatusRunning}
	job.Fail(ErrCodeDimensionMismatch, "sizes differ", 0)
	if job.RetryAfter != nil {
		t.Fatalf("RetryAfter = %v, want nil for non-retryable failure", *job.RetryAfter)
	}
}

func TestJobSucceedSetsExclusiveComponent(t *testing.T) {
	job := &Job{ID: "j1", Status: JobStatusRunning, ErrorCode: "stale", ErrorMessage: "old"}
	job.Succeed(&ComponentManifest{Version: ManifestVersion, ID: "asset"})

	if job.Status != JobStatusSucceeded || job.Stage != StageCompleted {
		t.Fatalf("Succeed() = %v/%v, want succeeded/completed", job.Status, job.Stage)
	}
	if job.ErrorCode != "" || job.ErrorMessage != "" || job.RetryAfter != nil {
		t.Fatalf("Succeed() left error fields populated")
	}
	if err := job.Consistent(); err != nil {
		t.Fatalf("Consistent() error = %v", err)
	}
}

func TestJobConsistentRejectsMixedResults(t *testing.T) {
	job := &Job{ID: "j1", Status: JobStatusSucceeded, Component: &ComponentManifest{}, ErrorCode: "oops"}
	if err := job.Consistent(); err == nil {
		t.Fatalf("Consistent() accepted a job with both component and error")
	}

	job = &Job{ID: "j2", Status: JobStatusFailed}
	if err := job.Consistent(); err == nil {
		t.Fatalf("Consistent() accepted a failed job without an error code")
	}

	job = &Job{ID: "j3", Status: JobStatusQueued, Component: &ComponentManifest{}}
	if err := job.Consistent(); err == nil {
		t.Fatalf("Consistent() accepted a queued job carrying a result")
	}
}
