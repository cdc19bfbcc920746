package repos

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/qazbilim/training-backend/internal/logger"
	"github.com/qazbilim/training-backend/internal/types"
)

type QuarterRepo interface {
	// GetCurrent returns the quarter whose date range covers now, or nil
	// during vacation gaps.
	GetCurrent(ctx context.Context, tx *gorm.DB, now time.Time) (*types.Quarter, error)
}

type quarterRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuarterRepo(db *gorm.DB, baseLog *logger.Logger) QuarterRepo {
	return &quarterRepo{db: db, log: baseLog.With("repo", "QuarterRepo")}
}

func (r *quarterRepo) GetCurrent(ctx context.Context, tx *gorm.DB, now time.Time) (*types.Quarter, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row types.Quarter
	err := transaction.WithContext(ctx).
		Where("start_date <= ? AND end_date >= ?", now, now).
		Order("start_date ASC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}
