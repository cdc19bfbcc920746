package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/qazbilim/training-backend/internal/logger"
	"github.com/qazbilim/training-backend/internal/types"
)

type SectionRepo interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Section, error)
	GetBySubjectID(ctx context.Context, tx *gorm.DB, subjectID uuid.UUID) ([]*types.Section, error)
}

type sectionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSectionRepo(db *gorm.DB, baseLog *logger.Logger) SectionRepo {
	return &sectionRepo{db: db, log: baseLog.With("repo", "SectionRepo")}
}

func (r *sectionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Section, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var section types.Section
	err := transaction.WithContext(ctx).Preload("Subject").Where("id = ?", id).First(&section).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &section, nil
}

func (r *sectionRepo) GetBySubjectID(ctx context.Context, tx *gorm.DB, subjectID uuid.UUID) ([]*types.Section, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Section
	if subjectID == uuid.Nil {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Order("position ASC, id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
