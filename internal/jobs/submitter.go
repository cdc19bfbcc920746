package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/qazbilim/training-backend/internal/logger"
	"github.com/qazbilim/training-backend/internal/repos"
	"github.com/qazbilim/training-backend/internal/types"
)

// Submitter enqueues background jobs as JobRun rows. Delivery is
// at-least-once: the worker may retry, so handlers must be idempotent.
type Submitter struct {
	db   *gorm.DB
	log  *logger.Logger
	repo repos.JobRunRepo
}

func NewSubmitter(db *gorm.DB, baseLog *logger.Logger, repo repos.JobRunRepo) *Submitter {
	return &Submitter{
		db:   db,
		log:  baseLog.With("component", "JobSubmitter"),
		repo: repo,
	}
}

// Enqueue creates one queued job row. Callers treat it as fire-and-forget;
// nothing observes the job's result through this path.
func (s *Submitter) Enqueue(ctx context.Context, jobType string, payload any) error {
	if jobType == "" {
		return fmt.Errorf("job type required")
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", jobType, err)
	}
	_, err = s.repo.Create(ctx, s.db, []*types.JobRun{{
		JobType: jobType,
		Payload: datatypes.JSON(raw),
		Status:  types.JobStatusQueued,
	}})
	if err != nil {
		s.log.Warn("job enqueue failed", "job_type", jobType, "error", err)
		return err
	}
	return nil
}
