// Package mirror pushes job records and asset references to a Postgres
// metadata mirror. The mirror is a fire-and-forget sync target: failures
// are logged and traced but never fail the job.
package mirror

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"stencil/internal/domain"
	"stencil/internal/infra"
)

// Mirror writes to the metadata mirror. A nil Mirror is disabled and all
// methods are no-ops, so callers can sync unconditionally.
type Mirror struct {
	pool   *pgxpool.Pool
	logger infra.Logger
}

// New creates a mirror backed by the given pool.
func New(pool *pgxpool.Pool, logger infra.Logger) *Mirror {
	return &Mirror{pool: pool, logger: logger}
}

// Enabled reports whether the mirror has a backing connection.
func (m *Mirror) Enabled() bool { return m != nil && m.pool != nil }

// UpsertJob mirrors the current job record.
func (m *Mirror) UpsertJob(ctx context.Context, job *domain.Job) error {
	if !m.Enabled() {
		return nil
	}
	var componentJSON []byte
	if job.Component != nil {
		var err error
		componentJSON, err = json.Marshal(job.Component)
		if err != nil {
			return fmt.Errorf("mirror: encode component: %w", err)
		}
	}
	query := `
INSERT INTO jobs (id, status, stage, prompt, style_context, layout_intent, asset_type, name, component_json, error_code, error_message, retry_after, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT (id) DO UPDATE SET
    status = EXCLUDED.status,
    stage = EXCLUDED.stage,
    component_json = EXCLUDED.component_json,
    error_code = EXCLUDED.error_code,
    error_message = EXCLUDED.error_message,
    retry_after = EXCLUDED.retry_after,
    updated_at = EXCLUDED.updated_at;
`
	_, err := m.pool.Exec(ctx, query,
		job.ID,
		job.Status,
		job.Stage,
		job.Prompt,
		job.StyleContext,
		job.LayoutIntent,
		job.AssetType,
		job.Name,
		nullableBytes(componentJSON),
		nullableString(job.ErrorCode),
		nullableString(job.ErrorMessage),
		job.RetryAfter,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("mirror: upsert job %s: %w", job.ID, err)
	}
	return nil
}

// SaveAsset mirrors one asset reference for a job.
func (m *Mirror) SaveAsset(ctx context.Context, jobID, role, storageRef string) error {
	if !m.Enabled() {
		return nil
	}
	query := `
INSERT INTO job_assets (job_id, role, storage_ref)
VALUES ($1, $2, $3)
ON CONFLICT (job_id, role) DO UPDATE SET storage_ref = EXCLUDED.storage_ref;
`
	if _, err := m.pool.Exec(ctx, query, jobID, role, storageRef); err != nil {
		return fmt.Errorf("mirror: save asset %s/%s: %w", jobID, role, err)
	}
	return nil
}

// SyncJob is UpsertJob with failures demoted to warnings, for callers on
// the hot path.
func (m *Mirror) SyncJob(ctx context.Context, job *domain.Job) {
	if !m.Enabled() {
		return
	}
	if err := m.UpsertJob(ctx, job); err != nil {
		m.logger.Warn().Err(err).Str("job_id", job.ID).Msg("mirror: job sync failed")
	}
}

func nullableBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
