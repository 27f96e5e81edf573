// Package orchestrator drives a job through generation, matting, and
// analysis. It is the only writer of job state: the matte engine and
// layout analyzer are pure functions invoked with pixel buffers, and every
// transition is persisted before the next stage begins.
package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net"
	"path"
	"path/filepath"
	"time"

	"stencil/internal/domain"
	"stencil/internal/generator"
	"stencil/internal/infra"
	"stencil/internal/jobstore"
	"stencil/internal/layout"
	"stencil/internal/matte"
	"stencil/internal/mirror"
	"stencil/internal/storage"
	"stencil/internal/trace"
)

// Generation retry policy. Backoff grows exponentially between attempts;
// no lock is held while waiting.
const (
	maxGenerateAttempts = 5
	initialBackoff      = 2 * time.Second
	maxBackoff          = 32 * time.Second
	backoffMultiplier   = 2
)

// Orchestrator owns job mutation for the jobs it runs.
type Orchestrator struct {
	store     jobstore.Store
	artifacts *storage.ArtifactStore
	gen       generator.Generator
	mirror    *mirror.Mirror
	logger    infra.Logger

	// sleep is swapped in tests to avoid real backoff waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// New constructs an orchestrator. The artifact store must be rooted at the
// same directory as the job store so per-job artifact areas line up.
func New(store jobstore.Store, artifacts *storage.ArtifactStore, gen generator.Generator, m *mirror.Mirror, logger infra.Logger) *Orchestrator {
	return &Orchestrator{
		store:     store,
		artifacts: artifacts,
		gen:       gen,
		mirror:    m,
		logger:    logger,
		sleep:     sleepCtx,
	}
}

// Run executes the full pipeline for one claimed job. The job reaches a
// terminal state before Run returns; failures never escape unconverted.
func (o *Orchestrator) Run(ctx context.Context, job *domain.Job) {
	logger := o.logger.With().Str("job_id", job.ID).Logger()

	tracer, err := trace.Open(o.traceDir(job.ID))
	if err != nil {
		logger.Error().Err(err).Msg("orchestrator: trace log unavailable")
		tracer = nil
	}
	defer tracer.Close()

	tracer.Record(trace.EventInput, map[string]any{
		"prompt":        job.Prompt,
		"asset_type":    job.AssetType,
		"style_context": job.StyleContext,
		"layout_intent": job.LayoutIntent,
		"name":          job.Name,
	})

	job.Status = domain.JobStatusRunning
	o.transition(ctx, job, domain.StageGeneratingWhite, tracer)

	whitePNG, failure := o.generateWithRetry(ctx, tracer, "white_pass", func() ([]byte, error) {
		return o.gen.Generate(ctx, generator.GenerateRequest{
			Prompt:         generator.BuildWhitePassPrompt(job.Prompt, job.StyleContext, job.AssetType),
			AspectRatio:    generator.AspectRatioFor(job.AssetType),
			RenderSizeHint: hintValue(job.RenderSizeHint),
			RequestID:      job.ID,
		})
	})
	if failure != nil {
		o.fail(ctx, job, tracer, failure)
		return
	}
	o.storeArtifact(ctx, tracer, job.ID, workspaceKey(job, "white"), whitePNG)

	o.transition(ctx, job, domain.StageGeneratingBlack, tracer)

	blackPNG, failure := o.generateWithRetry(ctx, tracer, "black_pass", func() ([]byte, error) {
		return o.gen.Edit(ctx, generator.EditRequest{
			Image:       whitePNG,
			Instruction: generator.BlackPassInstruction,
			RequestID:   job.ID,
		})
	})
	if failure != nil {
		o.fail(ctx, job, tracer, failure)
		return
	}
	o.storeArtifact(ctx, tracer, job.ID, workspaceKey(job, "black"), blackPNG)

	o.transition(ctx, job, domain.StageProcessingMatte, tracer)

	rgba, failure := o.runMatte(whitePNG, blackPNG)
	if failure != nil {
		o.fail(ctx, job, tracer, failure)
		return
	}
	rgba = layout.AutoCrop(rgba)

	o.transition(ctx, job, domain.StageAnalyzingLayout, tracer)

	meta, err := layout.Analyze(rgba)
	if err != nil {
		o.fail(ctx, job, tracer, domain.StructuralFailure(
			domain.ErrCodeNoOpaqueContent, "matted image has no opaque content", err))
		return
	}

	if job.AssetType == domain.AssetTypeContainer {
		o.transition(ctx, job, domain.StageVerifying, tracer)
		ratio, ok := layout.VerifyHollowCenter(rgba)
		tracer.Record(trace.EventStage, map[string]any{
			"stage":               "verify_hollow_center",
			"center_transparency": ratio,
			"passed":              ok,
		})
		if !ok {
			o.fail(ctx, job, tracer, domain.PolicyFailure(
				domain.ErrCodeHollowCenterMissing,
				fmt.Sprintf("center transparency %.1f%% below required %.0f%%; the asset has no usable hollow center",
					ratio*100, layout.HollowMinTransparency*100)))
			return
		}
	}

	manifest, failure := o.publish(ctx, job, rgba, meta, tracer)
	if failure != nil {
		o.fail(ctx, job, tracer, failure)
		return
	}

	job.Succeed(manifest)
	if err := o.store.Save(ctx, job); err != nil {
		logger.Error().Err(err).Msg("orchestrator: persist succeeded job failed")
	}
	o.mirror.SyncJob(ctx, job)
	tracer.Record(trace.EventOutput, map[string]any{
		"status":    job.Status,
		"component": manifest.ID,
	})
	logger.Info().Str("stage", string(job.Stage)).Msg("orchestrator: job succeeded")
}

// transition records and persists a stage change.
func (o *Orchestrator) transition(ctx context.Context, job *domain.Job, stage domain.JobStage, tracer *trace.Tracer) {
	job.Stage = stage
	if err := o.store.Save(ctx, job); err != nil {
		o.logger.Error().Err(err).Str("job_id", job.ID).Str("stage", string(stage)).
			Msg("orchestrator: persist transition failed")
	}
	o.mirror.SyncJob(ctx, job)
	tracer.Record(trace.EventStage, map[string]any{"stage": stage})
}

// fail converts a pipeline failure into a terminal job record.
func (o *Orchestrator) fail(ctx context.Context, job *domain.Job, tracer *trace.Tracer, failure *domain.Failure) {
	job.Fail(failure.Code, failure.Message, failure.RetryAfterSeconds())
	if err := o.store.Save(ctx, job); err != nil {
		o.logger.Error().Err(err).Str("job_id", job.ID).Msg("orchestrator: persist failed job failed")
	}
	o.mirror.SyncJob(ctx, job)
	tracer.Record(trace.EventError, map[string]any{
		"code":    failure.Code,
		"kind":    failure.Kind,
		"message": failure.Message,
	})
	o.logger.Warn().
		Str("job_id", job.ID).
		Str("code", failure.Code).
		Str("kind", string(failure.Kind)).
		Msg("orchestrator: job failed")
}

// generateWithRetry runs one external generation call with bounded
// exponential backoff on rate limits and timeouts. Every attempt is
// traced with its duration and outcome.
func (o *Orchestrator) generateWithRetry(ctx context.Context, tracer *trace.Tracer, operation string, call func() ([]byte, error)) ([]byte, *domain.Failure) {
	backoff := initialBackoff
	var lastRetryAfter time.Duration

	for attempt := 1; attempt <= maxGenerateAttempts; attempt++ {
		started := time.Now()
		data, err := call()
		outcome := "success"
		if err != nil {
			outcome = err.Error()
		}
		tracer.Record(trace.EventAttempt, map[string]any{
			"operation":   operation,
			"attempt":     attempt,
			"duration_ms": time.Since(started).Milliseconds(),
			"outcome":     outcome,
		})
		if err == nil {
			return data, nil
		}

		retryable, hint := transientHint(err)
		if !retryable {
			return nil, domain.StructuralFailure(domain.ErrCodeGenerationFailed,
				fmt.Sprintf("%s: %v", operation, err), err)
		}
		lastRetryAfter = hint

		if attempt == maxGenerateAttempts {
			tracer.Record(trace.EventRetryExhausted, map[string]any{
				"operation": operation,
				"attempts":  attempt,
			})
			break
		}

		tracer.Record(trace.EventRetry, map[string]any{
			"operation":       operation,
			"attempt":         attempt,
			"backoff_seconds": backoff.Seconds(),
		})
		if err := o.sleep(ctx, backoff); err != nil {
			return nil, domain.StructuralFailure(domain.ErrCodeInternal, "canceled while waiting to retry", err)
		}
		backoff *= backoffMultiplier
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}

	if lastRetryAfter <= 0 {
		lastRetryAfter = time.Minute
	}
	return nil, domain.TransientFailure(domain.ErrCodeGenerationFailed,
		operation+": provider rate limited past the attempt budget", lastRetryAfter, nil)
}

// transientHint classifies a provider error and extracts its retry hint.
func transientHint(err error) (bool, time.Duration) {
	var rl *generator.RateLimitError
	if errors.As(err, &rl) {
		return true, rl.RetryAfter
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true, 0
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true, 0
	}
	return false, 0
}

// runMatte decodes both passes and recovers the RGBA image, mapping
// engine errors to structural failures.
func (o *Orchestrator) runMatte(whitePNG, blackPNG []byte) (*image.NRGBA, *domain.Failure) {
	white, err := png.Decode(bytes.NewReader(whitePNG))
	if err != nil {
		return nil, domain.StructuralFailure(domain.ErrCodeGenerationFailed, "white pass is not a decodable image", err)
	}
	black, err := png.Decode(bytes.NewReader(blackPNG))
	if err != nil {
		return nil, domain.StructuralFailure(domain.ErrCodeGenerationFailed, "black pass is not a decodable image", err)
	}

	rgba, err := matte.Extract(white, black)
	switch {
	case err == nil:
		return rgba, nil
	case errors.Is(err, matte.ErrDimensionMismatch):
		return nil, domain.StructuralFailure(domain.ErrCodeDimensionMismatch, err.Error(), err)
	case errors.Is(err, matte.ErrBlackPassAlignment):
		return nil, domain.StructuralFailure(domain.ErrCodeBlackPassAlignment,
			"black pass background is not solid black; the edit was not honored", err)
	default:
		return nil, domain.StructuralFailure(domain.ErrCodeInternal, err.Error(), err)
	}
}

// storeArtifact writes an intermediate pass; losing one is logged but not
// fatal, since the pipeline holds the bytes in memory.
func (o *Orchestrator) storeArtifact(ctx context.Context, tracer *trace.Tracer, jobID, key string, data []byte) {
	if _, err := o.artifacts.Write(ctx, key, data); err != nil {
		o.logger.Warn().Err(err).Str("job_id", jobID).Str("key", key).
			Msg("orchestrator: workspace artifact write failed")
		return
	}
	tracer.Record(trace.EventProviderResponse, map[string]any{"artifact": key, "bytes": len(data)})
}

func (o *Orchestrator) traceDir(jobID string) string {
	return filepath.Join(o.artifacts.BasePath(), jobID, "trace")
}

func workspaceKey(job *domain.Job, pass string) string {
	return path.Join(job.ID, "workspace", fmt.Sprintf("%s_%s.png", job.Name, pass))
}

func outputKey(job *domain.Job, suffix string) string {
	return path.Join(job.ID, "outputs", job.Name+suffix)
}

func hintValue(hint *int) int {
	if hint == nil {
		return 0
	}
	return *hint
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
