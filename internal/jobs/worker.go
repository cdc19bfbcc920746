package jobs

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/qazbilim/training-backend/internal/config"
	"github.com/qazbilim/training-backend/internal/logger"
	"github.com/qazbilim/training-backend/internal/observability"
	"github.com/qazbilim/training-backend/internal/repos"
)

type Worker struct {
	db       *gorm.DB
	log      *logger.Logger
	repo     repos.JobRunRepo
	registry *Registry
	cfg      config.WorkerConfig
}

func NewWorker(db *gorm.DB, baseLog *logger.Logger, repo repos.JobRunRepo, registry *Registry, cfg config.WorkerConfig) *Worker {
	return &Worker{
		db:       db,
		log:      baseLog.With("component", "JobWorker"),
		repo:     repo,
		registry: registry,
		cfg:      cfg,
	}
}

func (w *Worker) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(time.Duration(w.cfg.PollSeconds) * time.Second)
		defer ticker.Stop()
		maxAttempts := w.cfg.MaxAttempts
		retryDelay := time.Duration(w.cfg.RetryDelaySeconds) * time.Second
		staleRunning := time.Duration(w.cfg.StaleRunningSeconds) * time.Second
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				job, err := w.repo.ClaimNextRunnable(ctx, w.db, maxAttempts, retryDelay, staleRunning)
				if err != nil {
					w.log.Warn("ClaimNextRunnable failed", "error", err)
					continue
				}
				if job == nil {
					continue
				}
				h, ok := w.registry.Get(job.JobType)
				if !ok {
					w.log.Warn("No handler registered for job_type", "job_type", job.JobType, "job_id", job.ID)
					jc := NewContext(ctx, w.db, job, w.repo)
					jc.Fail("dispatch", &missingHandlerError{JobType: job.JobType})
					continue
				}
				runCtx, span := observability.Tracer("jobs").Start(ctx, "job."+job.JobType)
				span.SetAttributes(
					attribute.String("job.id", job.ID.String()),
					attribute.String("job.type", job.JobType),
					attribute.Int("job.attempts", job.Attempts),
				)
				jc := NewContext(runCtx, w.db, job, w.repo)
				// If the handler panics, mark the run failed.
				func() {
					defer span.End()
					defer func() {
						if r := recover(); r != nil {
							w.log.Error("Job handler panic", "job_id", job.ID, "job_type", job.JobType, "panic", r)
							jc.Fail("panic", &panicError{})
						}
					}()

					h.Run(jc)
				}()
			}
		}
	}()
}

type missingHandlerError struct{ JobType string }

func (e *missingHandlerError) Error() string { return "no handler registered for job_type=" + e.JobType }

type panicError struct{}

func (e *panicError) Error() string { return "panic: unexpected error" }
