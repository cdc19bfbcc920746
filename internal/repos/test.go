package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/qazbilim/training-backend/internal/logger"
	"github.com/qazbilim/training-backend/internal/types"
)

type TestRepo interface {
	// GetByIDWithChain loads the test with its topic -> section -> subject
	// chain preloaded; the engine and grading both need the full chain.
	GetByIDWithChain(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Test, error)
	GetByTopicID(ctx context.Context, tx *gorm.DB, topicID uuid.UUID) ([]*types.Test, error)
}

type testRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTestRepo(db *gorm.DB, baseLog *logger.Logger) TestRepo {
	return &testRepo{db: db, log: baseLog.With("repo", "TestRepo")}
}

func (r *testRepo) GetByIDWithChain(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Test, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var test types.Test
	err := transaction.WithContext(ctx).
		Preload("Topic").
		Preload("Topic.Section").
		Preload("Topic.Section.Subject").
		Where("id = ?", id).
		First(&test).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &test, nil
}

func (r *testRepo) GetByTopicID(ctx context.Context, tx *gorm.DB, topicID uuid.UUID) ([]*types.Test, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Test
	if topicID == uuid.Nil {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("topic_id = ?", topicID).
		Order("position ASC, id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
