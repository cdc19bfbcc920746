package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/qazbilim/training-backend/internal/logger"
	"github.com/qazbilim/training-backend/internal/types"
)

type SubjectLevelRepo interface {
	// Get returns the student's level row for the subject/quarter, or nil
	// when the student is unleveled.
	Get(ctx context.Context, tx *gorm.DB, studentID, subjectID, quarterID uuid.UUID) (*types.SubjectLevel, error)
	Upsert(ctx context.Context, tx *gorm.DB, row *types.SubjectLevel) error
}

type subjectLevelRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSubjectLevelRepo(db *gorm.DB, baseLog *logger.Logger) SubjectLevelRepo {
	return &subjectLevelRepo{db: db, log: baseLog.With("repo", "SubjectLevelRepo")}
}

func (r *subjectLevelRepo) Get(ctx context.Context, tx *gorm.DB, studentID, subjectID, quarterID uuid.UUID) (*types.SubjectLevel, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if studentID == uuid.Nil || subjectID == uuid.Nil || quarterID == uuid.Nil {
		return nil, nil
	}
	var row types.SubjectLevel
	err := transaction.WithContext(ctx).
		Where("student_id = ? AND subject_id = ? AND quarter_id = ?", studentID, subjectID, quarterID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *subjectLevelRepo) Upsert(ctx context.Context, tx *gorm.DB, row *types.SubjectLevel) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if row == nil {
		return nil
	}
	existing, err := r.Get(ctx, transaction, row.StudentID, row.SubjectID, row.QuarterID)
	if err != nil {
		return err
	}
	if existing == nil {
		return transaction.WithContext(ctx).Create(row).Error
	}
	return transaction.WithContext(ctx).
		Model(&types.SubjectLevel{}).
		Where("id = ?", existing.ID).
		Update("level", row.Level).Error
}
