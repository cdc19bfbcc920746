package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/qazbilim/training-backend/internal/logger"
	"github.com/qazbilim/training-backend/internal/repos"
	"github.com/qazbilim/training-backend/internal/types"
)

// LevelService resolves the student's assigned difficulty for a subject
// and quarter. Absence of an assignment is a normal state, not an error.
type LevelService interface {
	CurrentLevel(ctx context.Context, studentID, subjectID, quarterID uuid.UUID) (types.Difficulty, bool, error)
	AssignLevel(ctx context.Context, studentID, subjectID, quarterID uuid.UUID, level types.Difficulty) error
}

type levelService struct {
	db   *gorm.DB
	log  *logger.Logger
	repo repos.SubjectLevelRepo
}

func NewLevelService(db *gorm.DB, baseLog *logger.Logger, repo repos.SubjectLevelRepo) LevelService {
	return &levelService{
		db:   db,
		log:  baseLog.With("service", "LevelService"),
		repo: repo,
	}
}

func (s *levelService) CurrentLevel(ctx context.Context, studentID, subjectID, quarterID uuid.UUID) (types.Difficulty, bool, error) {
	row, err := s.repo.Get(ctx, nil, studentID, subjectID, quarterID)
	if err != nil {
		return "", false, err
	}
	if row == nil {
		return "", false, nil
	}
	if !row.Level.Valid() {
		s.log.Warn("Stored subject level is invalid", "student_id", studentID, "subject_id", subjectID, "level", row.Level)
		return "", false, nil
	}
	return row.Level, true, nil
}

func (s *levelService) AssignLevel(ctx context.Context, studentID, subjectID, quarterID uuid.UUID, level types.Difficulty) error {
	if _, err := types.ParseDifficulty(string(level)); err != nil {
		return err
	}
	return s.repo.Upsert(ctx, nil, &types.SubjectLevel{
		StudentID: studentID,
		SubjectID: subjectID,
		QuarterID: quarterID,
		Level:     level,
	})
}
