package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"stencil/internal/domain"
	"stencil/internal/infra"
	"stencil/internal/jobstore"
)

// Pool runs a fixed number of workers that claim queued jobs from the
// store and hand them to the orchestrator. Claims are exclusive, so
// multiple pools across processes never run the same job concurrently.
type Pool struct {
	store        jobstore.Store
	orch         *Orchestrator
	logger       infra.Logger
	workers      int
	pollInterval time.Duration
}

// NewPool constructs a worker pool. workers and pollInterval fall back to
// safe defaults when non-positive.
func NewPool(store jobstore.Store, orch *Orchestrator, logger infra.Logger, workers int, pollInterval time.Duration) *Pool {
	if workers <= 0 {
		workers = 2
	}
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &Pool{
		store:        store,
		orch:         orch,
		logger:       logger,
		workers:      workers,
		pollInterval: pollInterval,
	}
}

// Run blocks until the context is canceled and all workers drain. A worker
// never abandons a job mid-run; cancellation is honored between jobs and
// inside provider calls via the context.
func (p *Pool) Run(ctx context.Context) error {
	p.logger.Info().Int("workers", p.workers).Dur("poll_interval", p.pollInterval).Msg("worker pool starting")

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.work(ctx, id)
		}(i)
	}
	wg.Wait()

	p.logger.Info().Msg("worker pool stopped")
	return ctx.Err()
}

func (p *Pool) work(ctx context.Context, id int) {
	logger := p.logger.With().Int("worker", id).Logger()
	for {
		if ctx.Err() != nil {
			return
		}

		job, release, err := p.store.Claim(ctx)
		if err != nil {
			if !errors.Is(err, domain.ErrNoJobAvailable) && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("claim failed")
			}
			if err := sleepCtx(ctx, p.pollInterval); err != nil {
				return
			}
			continue
		}

		logger.Info().Str("job_id", job.ID).Msg("job claimed")
		p.orch.Run(ctx, job)
		release()
	}
}
