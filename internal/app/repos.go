package app

import (
	"gorm.io/gorm"

	"github.com/qazbilim/training-backend/internal/cache"
	"github.com/qazbilim/training-backend/internal/logger"
	"github.com/qazbilim/training-backend/internal/repos"
)

type Repos struct {
	Quarter       repos.QuarterRepo
	SubjectLevel  repos.SubjectLevelRepo
	Section       repos.SectionRepo
	Topic         repos.TopicRepo
	Test          repos.TestRepo
	Question      repos.QuestionRepo
	QuestionClone repos.QuestionCloneRepo
	Attempt       repos.AttemptRecordRepo
	Stat          repos.TrainingStatRepo
	JobRun        repos.JobRunRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger, c cache.Cache) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Quarter:       repos.NewQuarterRepo(db, log),
		SubjectLevel:  repos.NewSubjectLevelRepo(db, log),
		Section:       repos.NewSectionRepo(db, log),
		Topic:         repos.NewTopicRepo(db, log),
		Test:          repos.NewTestRepo(db, log),
		Question:      repos.NewQuestionRepo(db, log),
		QuestionClone: repos.NewQuestionCloneRepo(db, log),
		Attempt:       repos.NewAttemptRecordRepo(db, log, c),
		Stat:          repos.NewTrainingStatRepo(db, log),
		JobRun:        repos.NewJobRunRepo(db, log),
	}
}
