package repos

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/qazbilim/training-backend/internal/cache"
	"github.com/qazbilim/training-backend/internal/logger"
	"github.com/qazbilim/training-backend/internal/types"
)

// AttemptRecordRepo is the progress store. It owns the attempt-record
// lifecycle exclusively: records are created and deleted here, and both
// operations invalidate the per-(student,test) current-question cache key.
// That invalidation is a correctness contract with the progression engine,
// not an optimization.
type AttemptRecordRepo interface {
	Create(ctx context.Context, tx *gorm.DB, record *types.AttemptRecord) (*types.AttemptRecord, error)
	GetByStudentAndQuestionIDs(ctx context.Context, tx *gorm.DB, studentID uuid.UUID, questionIDs []uuid.UUID) ([]*types.AttemptRecord, error)
	GetByStudentAndTestID(ctx context.Context, tx *gorm.DB, studentID, testID uuid.UUID) ([]*types.AttemptRecord, error)
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type attemptRecordRepo struct {
	db    *gorm.DB
	log   *logger.Logger
	cache cache.Cache
}

func NewAttemptRecordRepo(db *gorm.DB, baseLog *logger.Logger, c cache.Cache) AttemptRecordRepo {
	return &attemptRecordRepo{db: db, log: baseLog.With("repo", "AttemptRecordRepo"), cache: c}
}

func (r *attemptRecordRepo) Create(ctx context.Context, tx *gorm.DB, record *types.AttemptRecord) (*types.AttemptRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if record == nil {
		return nil, fmt.Errorf("attempt record required")
	}

	var question types.Question
	if err := transaction.WithContext(ctx).Where("id = ?", record.QuestionID).First(&question).Error; err != nil {
		return nil, fmt.Errorf("attempt record question lookup: %w", err)
	}
	if len(record.StudentResponse) > 0 {
		if err := types.ValidateResponse(question.QuestionType, []byte(record.StudentResponse)); err != nil {
			return nil, err
		}
	}

	if err := transaction.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}

	r.invalidateCurrentQuestion(ctx, record.StudentID, question.TestID)
	return record, nil
}

func (r *attemptRecordRepo) GetByStudentAndQuestionIDs(ctx context.Context, tx *gorm.DB, studentID uuid.UUID, questionIDs []uuid.UUID) ([]*types.AttemptRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.AttemptRecord
	if studentID == uuid.Nil || len(questionIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("student_id = ? AND question_id IN ?", studentID, questionIDs).
		Order("created_at ASC, id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *attemptRecordRepo) GetByStudentAndTestID(ctx context.Context, tx *gorm.DB, studentID, testID uuid.UUID) ([]*types.AttemptRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.AttemptRecord
	if studentID == uuid.Nil || testID == uuid.Nil {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Joins("JOIN question ON question.id = attempt_record.question_id").
		Where("attempt_record.student_id = ? AND question.test_id = ?", studentID, testID).
		Order("attempt_record.created_at ASC, attempt_record.id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *attemptRecordRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}

	var record types.AttemptRecord
	err := transaction.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	var question types.Question
	if err := transaction.WithContext(ctx).Where("id = ?", record.QuestionID).First(&question).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	if err := transaction.WithContext(ctx).Delete(&types.AttemptRecord{}, "id = ?", id).Error; err != nil {
		return err
	}

	if question.TestID != uuid.Nil {
		r.invalidateCurrentQuestion(ctx, record.StudentID, question.TestID)
	}
	return nil
}

func (r *attemptRecordRepo) invalidateCurrentQuestion(ctx context.Context, studentID, testID uuid.UUID) {
	if r.cache == nil {
		return
	}
	key := cache.CurrentQuestionKey(studentID, testID)
	if err := r.cache.Delete(ctx, key); err != nil {
		r.log.Warn("current question cache invalidation failed", "key", key, "error", err)
	}
}
