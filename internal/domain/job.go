package domain

import (
	"fmt"
	"time"
)

// AssetType enumerates supported asset categories.
type AssetType string

const (
	AssetTypeContainer  AssetType = "container"
	AssetTypeIcon       AssetType = "icon"
	AssetTypeTexture    AssetType = "texture"
	AssetTypeEffect     AssetType = "effect"
	AssetTypeImage      AssetType = "image"
	AssetTypeDecoration AssetType = "decoration"
)

// AllowedAssetTypes is the canonical set accepted at job creation.
var AllowedAssetTypes = map[AssetType]bool{
	AssetTypeContainer:  true,
	AssetTypeIcon:       true,
	AssetTypeTexture:    true,
	AssetTypeEffect:     true,
	AssetTypeImage:      true,
	AssetTypeDecoration: true,
}

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed
}

// statusRank orders statuses along the state machine's partial order.
// Transitions must never decrease rank.
var statusRank = map[JobStatus]int{
	JobStatusQueued:    0,
	JobStatusRunning:   1,
	JobStatusSucceeded: 2,
	JobStatusFailed:    2,
}

// CanTransition reports whether moving from s to next respects the
// one-directional lifecycle.
func (s JobStatus) CanTransition(next JobStatus) bool {
	if s.Terminal() {
		return false
	}
	return statusRank[next] >= statusRank[s]
}

// JobStage is a fine-grained progress marker. It is informational; control
// flow is driven by JobStatus and typed stage outcomes, never by Stage.
type JobStage string

const (
	StageInitialized     JobStage = "initialized"
	StageGeneratingWhite JobStage = "generating_white"
	StageGeneratingBlack JobStage = "generating_black"
	StageProcessingMatte JobStage = "processing_matte"
	StageAnalyzingLayout JobStage = "analyzing_layout"
	StageVerifying       JobStage = "verifying"
	StageCompleted       JobStage = "completed"
	StageError           JobStage = "error"
)

// Job encapsulates the lifecycle of one asset production run.
//
// Creation-time inputs (Prompt through Name) are immutable after Create.
// Component and ErrorCode are mutually exclusive: Component is set iff the
// job succeeded, ErrorCode iff it failed.
type Job struct {
	ID             string             `json:"id"`
	Status         JobStatus          `json:"status"`
	Stage          JobStage           `json:"stage"`
	Prompt         string             `json:"prompt"`
	StyleContext   string             `json:"style_context,omitempty"`
	LayoutIntent   string             `json:"layout_intent"`
	RenderSizeHint *int               `json:"render_size_hint,omitempty"`
	AssetType      AssetType          `json:"asset_type"`
	Name           string             `json:"name"`
	Component      *ComponentManifest `json:"component,omitempty"`
	ErrorCode      string             `json:"error,omitempty"`
	ErrorMessage   string             `json:"error_message,omitempty"`
	RetryAfter     *int               `json:"retry_after,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// Fail marks the job failed with a structured error. RetryAfter is in
// seconds; zero means the failure is not retryable as-is.
func (j *Job) Fail(code, message string, retryAfter int) {
	j.Status = JobStatusFailed
	j.Stage = StageError
	j.ErrorCode = code
	j.ErrorMessage = message
	j.Component = nil
	if retryAfter > 0 {
		j.RetryAfter = &retryAfter
	} else {
		j.RetryAfter = nil
	}
}

// Succeed marks the job succeeded with its deliverable manifest.
func (j *Job) Succeed(component *ComponentManifest) {
	j.Status = JobStatusSucceeded
	j.Stage = StageCompleted
	j.Component = component
	j.ErrorCode = ""
	j.ErrorMessage = ""
	j.RetryAfter = nil
}

// Consistent validates the component/error exclusivity invariant.
func (j *Job) Consistent() error {
	switch j.Status {
	case JobStatusSucceeded:
		if j.Component == nil || j.ErrorCode != "" {
			return fmt.Errorf("job %s: succeeded without exclusive component", j.ID)
		}
	case JobStatusFailed:
		if j.ErrorCode == "" || j.Component != nil {
			return fmt.Errorf("job %s: failed without exclusive error", j.ID)
		}
	default:
		if j.Component != nil || j.ErrorCode != "" {
			return fmt.Errorf("job %s: non-terminal job carries a result", j.ID)
		}
	}
	return nil
}
