package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/qazbilim/training-backend/internal/logger"
	"github.com/qazbilim/training-backend/internal/types"
)

type TopicRepo interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Topic, error)
	GetBySectionID(ctx context.Context, tx *gorm.DB, sectionID uuid.UUID) ([]*types.Topic, error)
	GetHandbook(ctx context.Context, tx *gorm.DB, topicID uuid.UUID) (*types.TopicHandbook, error)
}

type topicRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTopicRepo(db *gorm.DB, baseLog *logger.Logger) TopicRepo {
	return &topicRepo{db: db, log: baseLog.With("repo", "TopicRepo")}
}

func (r *topicRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Topic, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var topic types.Topic
	err := transaction.WithContext(ctx).Preload("Section").Preload("Section.Subject").Where("id = ?", id).First(&topic).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &topic, nil
}

func (r *topicRepo) GetBySectionID(ctx context.Context, tx *gorm.DB, sectionID uuid.UUID) ([]*types.Topic, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Topic
	if sectionID == uuid.Nil {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("section_id = ?", sectionID).
		Order("id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *topicRepo) GetHandbook(ctx context.Context, tx *gorm.DB, topicID uuid.UUID) (*types.TopicHandbook, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if topicID == uuid.Nil {
		return nil, nil
	}
	var handbook types.TopicHandbook
	err := transaction.WithContext(ctx).Where("topic_id = ?", topicID).First(&handbook).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &handbook, nil
}
