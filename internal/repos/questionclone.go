package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/qazbilim/training-backend/internal/logger"
	"github.com/qazbilim/training-backend/internal/types"
)

// QuestionCloneRepo is the clone repository: AI-generated variants keyed
// by their origin question.
type QuestionCloneRepo interface {
	Create(ctx context.Context, tx *gorm.DB, clones []*types.QuestionClone) ([]*types.QuestionClone, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.QuestionClone, error)
	GetByQuestionID(ctx context.Context, tx *gorm.DB, questionID uuid.UUID) ([]*types.QuestionClone, error)
	// ExistsForTest reports whether any clone exists for any question of the
	// test; false triggers bulk pre-generation.
	ExistsForTest(ctx context.Context, tx *gorm.DB, testID uuid.UUID) (bool, error)
}

type questionCloneRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuestionCloneRepo(db *gorm.DB, baseLog *logger.Logger) QuestionCloneRepo {
	return &questionCloneRepo{db: db, log: baseLog.With("repo", "QuestionCloneRepo")}
}

func (r *questionCloneRepo) Create(ctx context.Context, tx *gorm.DB, clones []*types.QuestionClone) ([]*types.QuestionClone, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(clones) == 0 {
		return []*types.QuestionClone{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&clones).Error; err != nil {
		return nil, err
	}
	return clones, nil
}

func (r *questionCloneRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.QuestionClone, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var clone types.QuestionClone
	err := transaction.WithContext(ctx).Where("id = ?", id).First(&clone).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &clone, nil
}

func (r *questionCloneRepo) GetByQuestionID(ctx context.Context, tx *gorm.DB, questionID uuid.UUID) ([]*types.QuestionClone, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.QuestionClone
	if questionID == uuid.Nil {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("question_id = ?", questionID).
		Order("id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *questionCloneRepo) ExistsForTest(ctx context.Context, tx *gorm.DB, testID uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if testID == uuid.Nil {
		return false, nil
	}
	var count int64
	err := transaction.WithContext(ctx).
		Model(&types.QuestionClone{}).
		Joins("JOIN question ON question.id = question_clone.question_id").
		Where("question.test_id = ?", testID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
