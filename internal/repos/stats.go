package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/qazbilim/training-backend/internal/logger"
	"github.com/qazbilim/training-backend/internal/types"
)

type TrainingStatRepo interface {
	GetTopicStat(ctx context.Context, tx *gorm.DB, studentID, topicID uuid.UUID, level types.Difficulty) (*types.TopicTrainingStat, error)
	// EnsureTopicStat returns the stat row, lazily creating a zeroed one on
	// first touch.
	EnsureTopicStat(ctx context.Context, tx *gorm.DB, studentID, topicID uuid.UUID, level types.Difficulty) (*types.TopicTrainingStat, error)
	UpdateTopicStatCounts(ctx context.Context, tx *gorm.DB, id uuid.UUID, testsCount, finishedTestsCount int) error

	GetSectionStats(ctx context.Context, tx *gorm.DB, studentID uuid.UUID) ([]*types.SectionTrainingStat, error)
	EnsureSectionStat(ctx context.Context, tx *gorm.DB, studentID, sectionID uuid.UUID) (*types.SectionTrainingStat, error)

	CountFinishedTests(ctx context.Context, tx *gorm.DB, studentID uuid.UUID, testIDs []uuid.UUID) (int, error)
	MarkTestFinished(ctx context.Context, tx *gorm.DB, studentID, testID uuid.UUID) error
}

type trainingStatRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTrainingStatRepo(db *gorm.DB, baseLog *logger.Logger) TrainingStatRepo {
	return &trainingStatRepo{db: db, log: baseLog.With("repo", "TrainingStatRepo")}
}

func (r *trainingStatRepo) GetTopicStat(ctx context.Context, tx *gorm.DB, studentID, topicID uuid.UUID, level types.Difficulty) (*types.TopicTrainingStat, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if studentID == uuid.Nil || topicID == uuid.Nil {
		return nil, nil
	}
	var stat types.TopicTrainingStat
	err := transaction.WithContext(ctx).
		Where("student_id = ? AND topic_id = ? AND level = ?", studentID, topicID, level).
		First(&stat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &stat, nil
}

func (r *trainingStatRepo) EnsureTopicStat(ctx context.Context, tx *gorm.DB, studentID, topicID uuid.UUID, level types.Difficulty) (*types.TopicTrainingStat, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	existing, err := r.GetTopicStat(ctx, transaction, studentID, topicID, level)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	stat := &types.TopicTrainingStat{
		StudentID: studentID,
		TopicID:   topicID,
		Level:     level,
	}
	if err := transaction.WithContext(ctx).Create(stat).Error; err != nil {
		return nil, err
	}
	return stat, nil
}

func (r *trainingStatRepo) UpdateTopicStatCounts(ctx context.Context, tx *gorm.DB, id uuid.UUID, testsCount, finishedTestsCount int) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.TopicTrainingStat{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"tests_count":          testsCount,
			"finished_tests_count": finishedTestsCount,
		}).Error
}

func (r *trainingStatRepo) GetSectionStats(ctx context.Context, tx *gorm.DB, studentID uuid.UUID) ([]*types.SectionTrainingStat, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.SectionTrainingStat
	if studentID == uuid.Nil {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("created_at ASC, id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *trainingStatRepo) EnsureSectionStat(ctx context.Context, tx *gorm.DB, studentID, sectionID uuid.UUID) (*types.SectionTrainingStat, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if studentID == uuid.Nil || sectionID == uuid.Nil {
		return nil, nil
	}
	var stat types.SectionTrainingStat
	err := transaction.WithContext(ctx).
		Where("student_id = ? AND section_id = ?", studentID, sectionID).
		First(&stat).Error
	if err == nil {
		return &stat, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	created := &types.SectionTrainingStat{StudentID: studentID, SectionID: sectionID}
	if err := transaction.WithContext(ctx).Create(created).Error; err != nil {
		return nil, err
	}
	return created, nil
}

func (r *trainingStatRepo) CountFinishedTests(ctx context.Context, tx *gorm.DB, studentID uuid.UUID, testIDs []uuid.UUID) (int, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if studentID == uuid.Nil || len(testIDs) == 0 {
		return 0, nil
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.TestTrainingStat{}).
		Where("student_id = ? AND test_id IN ?", studentID, testIDs).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *trainingStatRepo) MarkTestFinished(ctx context.Context, tx *gorm.DB, studentID, testID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if studentID == uuid.Nil || testID == uuid.Nil {
		return nil
	}
	var existing types.TestTrainingStat
	err := transaction.WithContext(ctx).
		Where("student_id = ? AND test_id = ?", studentID, testID).
		First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return transaction.WithContext(ctx).Create(&types.TestTrainingStat{StudentID: studentID, TestID: testID}).Error
}
