package ingest

import (
	"context"
	"log/slog"
	"sync"

	"github.com/corpora-dev/corpora/domain/settings"
	"github.com/corpora-dev/corpora/internal/config"
	"github.com/corpora-dev/corpora/internal/jobs"
	"github.com/corpora-dev/corpora/pkg/logger"
)

// Pool drains the job queue with a fixed set of workers. Each job runs
// under its own cancellable context registered with the queue, so
// cancellation by document id reaches in-flight work.
type Pool struct {
	queue    *jobs.Queue
	pipeline *Pipeline
	settings *settings.Service
	cfg      *config.Config
	log      *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPool creates the ingestion worker pool
func NewPool(queue *jobs.Queue, pipeline *Pipeline, settingsSvc *settings.Service, cfg *config.Config, log *slog.Logger) *Pool {
	return &Pool{
		queue:    queue,
		pipeline: pipeline,
		settings: settingsSvc,
		cfg:      cfg,
		log:      log.With(logger.Scope("ingest.pool")),
	}
}

// workerCount prefers the live setting over the static config
func (p *Pool) workerCount() int {
	if n := p.settings.Snapshot().Upload.ParallelWorkers; n > 0 {
		return n
	}
	if p.cfg.Ingest.Workers > 0 {
		return p.cfg.Ingest.Workers
	}
	return 4
}

// Start launches the workers
func (p *Pool) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	n := p.workerCount()
	p.log.Info("starting ingestion workers", slog.Int("workers", n))

	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			p.run(ctx, id)
		}(i)
	}
}

// Stop cancels the workers and waits for in-flight jobs to settle
func (p *Pool) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	p.log.Info("ingestion workers stopped")
}

// run is one worker's dequeue loop. It never exits on job failure, only
// on shutdown.
func (p *Pool) run(ctx context.Context, id int) {
	for {
		job, ok := p.queue.Dequeue(ctx)
		if !ok {
			return
		}
		p.process(ctx, job)
	}
}

// process executes one job. The per-document lock guarantees at most one
// concurrent ingestion per document.
func (p *Pool) process(ctx context.Context, job jobs.Job) {
	if err := p.queue.AcquireDocument(ctx, job.DocumentID, job.JobID); err != nil {
		p.queue.Update(job.JobID, jobs.StateFailed, "", -1, jobs.CancelledMessage)
		return
	}
	defer p.queue.ReleaseDocument(job.DocumentID, job.JobID)

	jobCtx, cancelJob := context.WithCancel(ctx)
	defer cancelJob()
	p.queue.RegisterCancel(job.JobID, cancelJob)
	defer p.queue.UnregisterCancel(job.JobID)

	result, err := p.pipeline.Run(jobCtx, job)
	if err != nil {
		p.log.Warn("ingestion job failed",
			slog.String("job_id", job.JobID),
			slog.String("document_id", job.DocumentID),
			logger.Error(err))
		p.queue.Update(job.JobID, jobs.StateFailed, "", -1, err.Error())
		return
	}

	if len(result.Warnings) > 0 {
		p.log.Info("ingestion job completed with warnings",
			slog.String("job_id", job.JobID),
			slog.Any("warnings", result.Warnings))
	}
	p.queue.Update(job.JobID, jobs.StateCompleted, jobs.PhaseComplete, 100, "")
}
