package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/qazbilim/training-backend/internal/cache"
	"github.com/qazbilim/training-backend/internal/config"
	"github.com/qazbilim/training-backend/internal/jobs"
	"github.com/qazbilim/training-backend/internal/logger"
	"github.com/qazbilim/training-backend/internal/services"
)

type Services struct {
	OpenAI      services.OpenAIClient
	Levels      services.LevelService
	CloneGen    services.CloneGenService
	Grading     services.GradingService
	Progression services.ProgressionService
	Rollups     services.RollupService
	Progress    services.ProgressService
	Submitter   *jobs.Submitter
	Registry    *jobs.Registry
	JobWorker   *jobs.Worker
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg *config.Config, c cache.Cache, r Repos) (Services, error) {
	log.Info("Wiring services...")

	openaiClient, err := services.NewOpenAIClient(log)
	if err != nil {
		return Services{}, fmt.Errorf("init openai client: %w", err)
	}

	levels := services.NewLevelService(db, log, r.SubjectLevel)
	cloneGen := services.NewCloneGenService(db, log, cfg, r.Test, r.Question, r.QuestionClone, openaiClient)
	grading := services.NewGradingService(db, log, cfg, r.Test, r.Topic, r.Question, r.QuestionClone, openaiClient)
	submitter := jobs.NewSubmitter(db, log, r.JobRun)
	progression := services.NewProgressionService(
		db, log, c,
		r.Quarter, r.Test, r.Question, r.QuestionClone, r.Attempt,
		levels, cloneGen, submitter,
	)
	rollups := services.NewRollupService(
		db, log, c,
		r.Quarter, r.Section, r.Topic, r.Test, r.Question, r.Stat,
		levels,
	)
	progress := services.NewProgressService(db, log, r.Question, r.Attempt)

	registry := jobs.NewRegistry()
	jobs.RegisterCloneJobs(registry, log, cloneGen)

	return Services{
		OpenAI:      openaiClient,
		Levels:      levels,
		CloneGen:    cloneGen,
		Grading:     grading,
		Progression: progression,
		Rollups:     rollups,
		Progress:    progress,
		Submitter:   submitter,
		Registry:    registry,
		JobWorker:   jobs.NewWorker(db, log, r.JobRun, registry, cfg.Worker),
	}, nil
}
