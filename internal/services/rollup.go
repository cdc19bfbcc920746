package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/qazbilim/training-backend/internal/apperr"
	"github.com/qazbilim/training-backend/internal/cache"
	"github.com/qazbilim/training-backend/internal/locale"
	"github.com/qazbilim/training-backend/internal/logger"
	"github.com/qazbilim/training-backend/internal/repos"
	"github.com/qazbilim/training-backend/internal/types"
)

const rollupCacheTTL = 5 * time.Minute

// TopicStatusView is the per-topic rollup row shown on a section page.
type TopicStatusView struct {
	ID             uuid.UUID            `json:"id"`
	Name           string               `json:"name"`
	Status         types.TrainingStatus `json:"status"`
	TestsCount     int                  `json:"tests_count"`
	TestsFinished  int                  `json:"tests_finished"`
	CurrentTestID  *uuid.UUID           `json:"current_test_id"`
	QuestionsCount int                  `json:"questions_count"`
}

// SectionStatusView is the per-section rollup row shown on a subject page.
type SectionStatusView struct {
	ID          uuid.UUID            `json:"id"`
	Name        string               `json:"name"`
	TopicsCount int                  `json:"topics_count"`
	Status      types.TrainingStatus `json:"status"`
}

// RollupService derives training completion views. Status is computed from
// counts, never read back from a mutating getter; persistence of the
// counters is an explicit separate step.
type RollupService interface {
	TopicStatuses(ctx context.Context, sectionID, studentID uuid.UUID) ([]*TopicStatusView, error)
	SectionStatuses(ctx context.Context, subjectID, studentID uuid.UUID) ([]*SectionStatusView, error)
}

type rollupService struct {
	db       *gorm.DB
	log      *logger.Logger
	cache    cache.Cache
	quarters repos.QuarterRepo
	sections repos.SectionRepo
	topics   repos.TopicRepo
	tests    repos.TestRepo
	question repos.QuestionRepo
	stats    repos.TrainingStatRepo
	levels   LevelService

	now func() time.Time
}

func NewRollupService(
	db *gorm.DB,
	baseLog *logger.Logger,
	c cache.Cache,
	quarters repos.QuarterRepo,
	sections repos.SectionRepo,
	topics repos.TopicRepo,
	tests repos.TestRepo,
	question repos.QuestionRepo,
	stats repos.TrainingStatRepo,
	levels LevelService,
) RollupService {
	return &rollupService{
		db:       db,
		log:      baseLog.With("service", "RollupService"),
		cache:    c,
		quarters: quarters,
		sections: sections,
		topics:   topics,
		tests:    tests,
		question: question,
		stats:    stats,
		levels:   levels,
		now:      time.Now,
	}
}

// DeriveStatus is the single completion rule: finished when every unit is
// finished and there is at least one unit, otherwise in progress. The
// legacy not_available state is never produced for display.
func DeriveStatus(finished, count int) types.TrainingStatus {
	if count > 0 && finished >= count {
		return types.StatusFinished
	}
	return types.StatusInProgress
}

// CurrentTestIndex picks which test the student should be working on.
// When everything is finished the index clamps to the last test instead
// of walking off the slice.
func CurrentTestIndex(finished, count int) int {
	if count == 0 {
		return 0
	}
	if finished >= count {
		return count - 1
	}
	return finished
}

func (s *rollupService) TopicStatuses(ctx context.Context, sectionID, studentID uuid.UUID) ([]*TopicStatusView, error) {
	cacheKey := cache.SectionTopicsKey(sectionID, studentID)
	if raw, found, err := s.cache.Get(ctx, cacheKey); err == nil && found {
		var views []*TopicStatusView
		if uErr := json.Unmarshal(raw, &views); uErr == nil {
			return views, nil
		}
	}

	quarter, err := s.quarters.GetCurrent(ctx, nil, s.now())
	if err != nil {
		return nil, err
	}
	if quarter == nil {
		return nil, apperr.NotFound(locale.MsgNoCurrentQuarter, locale.Message(locale.Russian, locale.MsgNoCurrentQuarter))
	}

	section, err := s.sections.GetByID(ctx, nil, sectionID)
	if err != nil {
		return nil, err
	}
	if section == nil || section.Subject == nil {
		return nil, apperr.NotFound(locale.MsgSectionNotFound, locale.Message(locale.Russian, locale.MsgSectionNotFound))
	}
	lang := locale.DetectBySubject(section.Subject.Name)

	level, ok, err := s.levels.CurrentLevel(ctx, studentID, section.SubjectID, quarter.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound(locale.MsgLevelNotFound, locale.Message(lang, locale.MsgLevelNotFound))
	}

	allTopics, err := s.topics.GetBySectionID(ctx, nil, sectionID)
	if err != nil {
		return nil, err
	}
	topics := make([]*types.Topic, 0, len(allTopics))
	for _, t := range allTopics {
		if t.HasLevel(level) {
			topics = append(topics, t)
		}
	}
	if len(topics) == 0 {
		return nil, apperr.NotFound(locale.MsgTopicNotFound, locale.Message(lang, locale.MsgTopicNotFound))
	}

	views := make([]*TopicStatusView, 0, len(topics))
	for _, topic := range topics {
		view, err := s.topicView(ctx, studentID, topic, level)
		if err != nil {
			return nil, err
		}
		if view != nil {
			views = append(views, view)
		}
	}

	if encoded, err := json.Marshal(views); err == nil {
		if cErr := s.cache.Set(ctx, cacheKey, encoded, rollupCacheTTL); cErr != nil {
			s.log.Warn("Failed to cache topic statuses", "key", cacheKey, "error", cErr)
		}
	}
	return views, nil
}

// topicView computes one topic row, or nil when the topic has nothing to
// serve and is not finished.
func (s *rollupService) topicView(ctx context.Context, studentID uuid.UUID, topic *types.Topic, level types.Difficulty) (*TopicStatusView, error) {
	tests, err := s.tests.GetByTopicID(ctx, nil, topic.ID)
	if err != nil {
		return nil, err
	}

	// Only tests with questions at the student's level count toward the
	// topic's progress.
	type testWithCount struct {
		test      *types.Test
		questions int
	}
	withQuestions := make([]testWithCount, 0, len(tests))
	testIDs := make([]uuid.UUID, 0, len(tests))
	for _, t := range tests {
		questions, err := s.question.GetByTestID(ctx, nil, t.ID)
		if err != nil {
			return nil, err
		}
		eligible := 0
		for _, q := range questions {
			if q.EligibleFor(level) {
				eligible++
			}
		}
		if eligible > 0 {
			withQuestions = append(withQuestions, testWithCount{test: t, questions: eligible})
			testIDs = append(testIDs, t.ID)
		}
	}

	stat, err := s.stats.EnsureTopicStat(ctx, nil, studentID, topic.ID, level)
	if err != nil {
		return nil, err
	}

	testsCount := len(withQuestions)
	testsFinished, err := s.stats.CountFinishedTests(ctx, nil, studentID, testIDs)
	if err != nil {
		return nil, err
	}

	if stat.TestsCount != testsCount || stat.FinishedTestsCount != testsFinished {
		if uErr := s.stats.UpdateTopicStatCounts(ctx, nil, stat.ID, testsCount, testsFinished); uErr != nil {
			s.log.Warn("Failed to persist topic counters", "topic_id", topic.ID, "error", uErr)
		}
	}

	status := DeriveStatus(testsFinished, testsCount)

	var currentTestID *uuid.UUID
	questionsCount := 0
	if testsCount > 0 {
		current := withQuestions[CurrentTestIndex(testsFinished, testsCount)]
		id := current.test.ID
		currentTestID = &id
		questionsCount = current.questions
	}

	if (questionsCount == 0 || currentTestID == nil) && status != types.StatusFinished {
		return nil, nil
	}
	return &TopicStatusView{
		ID:             topic.ID,
		Name:           topic.Name,
		Status:         status,
		TestsCount:     testsCount,
		TestsFinished:  testsFinished,
		CurrentTestID:  currentTestID,
		QuestionsCount: questionsCount,
	}, nil
}

func (s *rollupService) SectionStatuses(ctx context.Context, subjectID, studentID uuid.UUID) ([]*SectionStatusView, error) {
	cacheKey := cache.SubjectSectionsKey(subjectID, studentID)
	if raw, found, err := s.cache.Get(ctx, cacheKey); err == nil && found {
		var views []*SectionStatusView
		if uErr := json.Unmarshal(raw, &views); uErr == nil {
			return views, nil
		}
	}

	quarter, err := s.quarters.GetCurrent(ctx, nil, s.now())
	if err != nil {
		return nil, err
	}
	if quarter == nil {
		return nil, apperr.NotFound(locale.MsgNoCurrentQuarter, locale.Message(locale.Russian, locale.MsgNoCurrentQuarter))
	}

	level, ok, err := s.levels.CurrentLevel(ctx, studentID, subjectID, quarter.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound(locale.MsgLevelNotFound, locale.Message(locale.Russian, locale.MsgLevelNotFound))
	}

	sections, err := s.sections.GetBySubjectID(ctx, nil, subjectID)
	if err != nil {
		return nil, err
	}

	type sectionWithTopics struct {
		section *types.Section
		topics  int
	}
	withTopics := make([]sectionWithTopics, 0, len(sections))
	for _, section := range sections {
		count, err := s.countEligibleTopics(ctx, section.ID, level)
		if err != nil {
			return nil, err
		}
		if count > 0 {
			withTopics = append(withTopics, sectionWithTopics{section: section, topics: count})
		}
	}
	if len(withTopics) == 0 {
		return nil, apperr.NotFound(locale.MsgSectionNotFound, locale.Message(locale.Russian, locale.MsgSectionNotFound))
	}

	sectionStats, err := s.stats.GetSectionStats(ctx, nil, studentID)
	if err != nil {
		return nil, err
	}
	var lastStat *types.SectionTrainingStat
	if len(sectionStats) > 0 {
		lastStat = sectionStats[len(sectionStats)-1]
	}

	// Sections before the one the student last worked in are finished, the
	// current one carries its own derived status, everything after is open.
	lastIdx := -1
	if lastStat != nil {
		for i, st := range withTopics {
			if st.section.ID == lastStat.SectionID {
				lastIdx = i
				break
			}
		}
	}

	views := make([]*SectionStatusView, 0, len(withTopics))
	for i, st := range withTopics {
		status := types.StatusInProgress
		if lastIdx >= 0 {
			switch {
			case i < lastIdx:
				status = types.StatusFinished
			case i == lastIdx:
				status = DeriveStatus(lastStat.FinishedTopicsCount, lastStat.TopicsCount)
			}
		}
		views = append(views, &SectionStatusView{
			ID:          st.section.ID,
			Name:        st.section.Name,
			TopicsCount: st.topics,
			Status:      status,
		})
	}

	if encoded, err := json.Marshal(views); err == nil {
		if cErr := s.cache.Set(ctx, cacheKey, encoded, rollupCacheTTL); cErr != nil {
			s.log.Warn("Failed to cache section statuses", "key", cacheKey, "error", cErr)
		}
	}
	return views, nil
}

// countEligibleTopics counts topics of the section taught at the level
// that have at least one test with eligible questions.
func (s *rollupService) countEligibleTopics(ctx context.Context, sectionID uuid.UUID, level types.Difficulty) (int, error) {
	topics, err := s.topics.GetBySectionID(ctx, nil, sectionID)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, topic := range topics {
		if !topic.HasLevel(level) {
			continue
		}
		tests, err := s.tests.GetByTopicID(ctx, nil, topic.ID)
		if err != nil {
			return 0, err
		}
		for _, t := range tests {
			questions, err := s.question.GetByTestID(ctx, nil, t.ID)
			if err != nil {
				return 0, err
			}
			eligible := false
			for _, q := range questions {
				if q.EligibleFor(level) {
					eligible = true
					break
				}
			}
			if eligible {
				count++
				break
			}
		}
	}
	return count, nil
}
