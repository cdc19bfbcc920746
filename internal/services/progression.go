package services

import (
	"context"
	"encoding/json"
	"math/rand"
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

// JobSubmitter enqueues background work. Satisfied by jobs.Submitter;
// declared here so services never import the jobs package.
type JobSubmitter interface {
	Enqueue(ctx context.Context, jobType string, payload any) error
}

// QuestionView is the served item: an original question or one of its
// clones, tagged with progression metadata and the response to prefill.
type QuestionView struct {
	ID              uuid.UUID          `json:"id"`
	QuestionID      uuid.UUID          `json:"question_id"`
	TestID          uuid.UUID          `json:"test_id"`
	Text            string             `json:"text"`
	Context         string             `json:"context,omitempty"`
	QuestionType    types.QuestionType `json:"question_type"`
	Difficulty      types.Difficulty   `json:"difficulty"`
	Payload         json.RawMessage    `json:"payload"`
	Order           int                `json:"order"`
	IsClone         bool               `json:"is_clone"`
	StudentResponse json.RawMessage    `json:"student_response"`
}

// ProgressionService picks the next item a student should see for a test.
type ProgressionService interface {
	NextItem(ctx context.Context, testID, studentID uuid.UUID) (*QuestionView, error)
}

type progressionService struct {
	db       *gorm.DB
	log      *logger.Logger
	cache    cache.Cache
	quarters repos.QuarterRepo
	tests    repos.TestRepo
	question repos.QuestionRepo
	clone    repos.QuestionCloneRepo
	attempts repos.AttemptRecordRepo
	levels   LevelService
	cloneGen CloneGenService
	jobs     JobSubmitter

	// selection source, swapped in tests for determinism
	randIntn func(n int) int
	now      func() time.Time
}

func NewProgressionService(
	db *gorm.DB,
	baseLog *logger.Logger,
	c cache.Cache,
	quarters repos.QuarterRepo,
	tests repos.TestRepo,
	question repos.QuestionRepo,
	clone repos.QuestionCloneRepo,
	attempts repos.AttemptRecordRepo,
	levels LevelService,
	cloneGen CloneGenService,
	jobs JobSubmitter,
) ProgressionService {
	return &progressionService{
		db:       db,
		log:      baseLog.With("service", "ProgressionService"),
		cache:    c,
		quarters: quarters,
		tests:    tests,
		question: question,
		clone:    clone,
		attempts: attempts,
		levels:   levels,
		cloneGen: cloneGen,
		jobs:     jobs,
		randIntn: rand.Intn,
		now:      time.Now,
	}
}

const nextItemLockTTL = 10 * time.Second

func (s *progressionService) NextItem(ctx context.Context, testID, studentID uuid.UUID) (*QuestionView, error) {
	cacheKey := cache.CurrentQuestionKey(studentID, testID)
	lockKey := cache.CurrentQuestionLockKey(studentID, testID)

	acquired, err := s.cache.SetNX(ctx, lockKey, []byte("1"), nextItemLockTTL)
	if err != nil {
		s.log.Warn("Lock acquire failed, proceeding without it", "error", err)
	}
	if acquired {
		defer func() {
			if dErr := s.cache.Delete(ctx, lockKey); dErr != nil {
				s.log.Warn("Lock release failed", "key", lockKey, "error", dErr)
			}
		}()
	} else if err == nil {
		// Another call for the same student and test is mid-selection.
		// Wait briefly for it to publish its pick, then fall through and
		// compute our own if it never does.
		for i := 0; i < 5; i++ {
			time.Sleep(100 * time.Millisecond)
			if raw, found, gErr := s.cache.Get(ctx, cacheKey); gErr == nil && found {
				return decodeCachedView(raw)
			}
		}
	}

	if raw, found, err := s.cache.Get(ctx, cacheKey); err == nil && found {
		return decodeCachedView(raw)
	} else if err != nil {
		s.log.Warn("Cache lookup failed", "key", cacheKey, "error", err)
	}

	quarter, err := s.quarters.GetCurrent(ctx, nil, s.now())
	if err != nil {
		return nil, err
	}
	if quarter == nil {
		return nil, apperr.NotFound(locale.MsgNoCurrentQuarter, locale.Message(locale.Russian, locale.MsgNoCurrentQuarter))
	}

	test, err := s.tests.GetByIDWithChain(ctx, nil, testID)
	if err != nil {
		return nil, err
	}
	if test == nil || test.Topic == nil || test.Topic.Section == nil || test.Topic.Section.Subject == nil {
		return nil, apperr.NotFound(locale.MsgTestNotFound, locale.Message(locale.Russian, locale.MsgTestNotFound))
	}
	subject := test.Topic.Section.Subject
	lang := locale.DetectBySubject(subject.Name)

	level, ok, err := s.levels.CurrentLevel(ctx, studentID, subject.ID, quarter.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound(locale.MsgLevelNotFound, locale.Message(lang, locale.MsgLevelNotFound))
	}

	all, err := s.question.GetByTestID(ctx, nil, testID)
	if err != nil {
		return nil, err
	}
	eligible := make([]*types.Question, 0, len(all))
	for _, q := range all {
		if q.EligibleFor(level) {
			eligible = append(eligible, q)
		}
	}
	if len(eligible) == 0 {
		return nil, apperr.NotFound(locale.MsgNoQuestions, locale.Message(lang, locale.MsgNoQuestions))
	}

	eligibleIDs := make([]uuid.UUID, len(eligible))
	for i, q := range eligible {
		eligibleIDs[i] = q.ID
	}
	records, err := s.attempts.GetByStudentAndQuestionIDs(ctx, nil, studentID, eligibleIDs)
	if err != nil {
		return nil, err
	}

	// Kick off bulk pre-generation the first time the test is ever served.
	hasClones, err := s.clone.ExistsForTest(ctx, nil, testID)
	if err != nil {
		s.log.Warn("Clone existence check failed", "test_id", testID, "error", err)
	} else if !hasClones {
		if eErr := s.jobs.Enqueue(ctx, types.JobTypeTestPregenerate, types.TestPregenerateJob{TestID: testID}); eErr != nil {
			s.log.Warn("Failed to enqueue test pre-generation", "test_id", testID, "error", eErr)
		}
	}

	attemptedQuestions := make(map[uuid.UUID]bool, len(records))
	attemptedClones := make(map[uuid.UUID]bool)
	for _, rec := range records {
		attemptedQuestions[rec.QuestionID] = true
		if rec.IsCloneAttempt() {
			attemptedClones[*rec.QuestionCloneID] = true
		}
	}
	distinctAttempted := len(attemptedQuestions)

	var lastRecord *types.AttemptRecord
	var lastQuestionID uuid.UUID
	allowed := true
	if len(records) > 0 {
		lastRecord = records[len(records)-1]
		lastQuestionID = lastRecord.QuestionID
		// Only an explicit positive outcome advances; unknown means the
		// attempt was not graded in the student's favor yet.
		allowed = lastRecord.AllowedToProceed.IsPositive()
	} else {
		// Bootstrap: no attempts yet, start from the first eligible question.
		lastQuestionID = eligible[0].ID
	}

	var view *QuestionView
	if allowed {
		view, err = s.nextOriginal(ctx, lang, eligible, attemptedQuestions, distinctAttempted, lastRecord)
	} else {
		view, err = s.nextClone(ctx, lang, lastQuestionID, attemptedClones, distinctAttempted)
	}
	if err != nil {
		return nil, err
	}
	view.TestID = testID

	encoded, err := json.Marshal(view)
	if err != nil {
		return nil, err
	}
	if cErr := s.cache.Set(ctx, cacheKey, encoded, 0); cErr != nil {
		s.log.Warn("Failed to cache served item", "key", cacheKey, "error", cErr)
	}
	return view, nil
}

// nextOriginal picks an unattempted original question, or re-serves the
// last answered item when the test is exhausted.
func (s *progressionService) nextOriginal(
	ctx context.Context,
	lang locale.Lang,
	eligible []*types.Question,
	attempted map[uuid.UUID]bool,
	distinctAttempted int,
	lastRecord *types.AttemptRecord,
) (*QuestionView, error) {
	remaining := make([]*types.Question, 0, len(eligible))
	for _, q := range eligible {
		if !attempted[q.ID] {
			remaining = append(remaining, q)
		}
	}

	if len(remaining) > 0 {
		picked := remaining[s.randIntn(len(remaining))]
		skeleton, err := types.EmptyResponse(picked.QuestionType)
		if err != nil {
			return nil, apperr.Validation(locale.MsgInvalidQuestionType, locale.Message(lang, locale.MsgInvalidQuestionType))
		}
		return questionToView(picked, distinctAttempted+1, skeleton), nil
	}

	if distinctAttempted < len(eligible) || lastRecord == nil {
		return nil, apperr.Inconsistent(locale.MsgNoQuestions, locale.Message(lang, locale.MsgNoQuestions))
	}

	// Terminal re-serve: every question answered and the last one passed.
	// Show the last answered item with the recorded response for review.
	if types.ResponseIsEmpty(json.RawMessage(lastRecord.StudentResponse)) {
		return nil, apperr.NotFound(locale.MsgNoQuestions, locale.Message(lang, locale.MsgNoQuestions))
	}
	if lastRecord.IsCloneAttempt() {
		cl, err := s.clone.GetByID(ctx, nil, *lastRecord.QuestionCloneID)
		if err != nil {
			return nil, err
		}
		if cl == nil {
			return nil, apperr.NotFound(locale.MsgQuestionNotFound, locale.Message(lang, locale.MsgQuestionNotFound))
		}
		return cloneToView(cl, distinctAttempted, json.RawMessage(lastRecord.StudentResponse)), nil
	}
	q, err := s.question.GetByID(ctx, nil, lastRecord.QuestionID)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, apperr.NotFound(locale.MsgQuestionNotFound, locale.Message(lang, locale.MsgQuestionNotFound))
	}
	return questionToView(q, distinctAttempted, json.RawMessage(lastRecord.StudentResponse)), nil
}

// nextClone serves an unattempted clone of the blocked question, topping
// up the pool in the background and generating synchronously when empty.
func (s *progressionService) nextClone(
	ctx context.Context,
	lang locale.Lang,
	questionID uuid.UUID,
	attemptedClones map[uuid.UUID]bool,
	distinctAttempted int,
) (*QuestionView, error) {
	clones, err := s.clone.GetByQuestionID(ctx, nil, questionID)
	if err != nil {
		return nil, err
	}
	pool := make([]*types.QuestionClone, 0, len(clones))
	for _, cl := range clones {
		if !attemptedClones[cl.ID] {
			pool = append(pool, cl)
		}
	}

	var picked *types.QuestionClone
	if len(pool) > 0 {
		picked = pool[s.randIntn(len(pool))]
		if len(pool) == 1 {
			// The pick drains the pool; replenish before the next miss.
			if eErr := s.jobs.Enqueue(ctx, types.JobTypeCloneGenerate, types.CloneGenerateJob{QuestionID: questionID, Count: 3}); eErr != nil {
				s.log.Warn("Failed to enqueue clone top-up", "question_id", questionID, "error", eErr)
			}
		}
	} else {
		if eErr := s.jobs.Enqueue(ctx, types.JobTypeCloneGenerate, types.CloneGenerateJob{QuestionID: questionID, Count: 3}); eErr != nil {
			s.log.Warn("Failed to enqueue clone generation", "question_id", questionID, "error", eErr)
		}
		picked, err = s.cloneGen.GenerateClone(ctx, questionID)
		if err != nil {
			return nil, apperr.Upstream(locale.MsgGenerationFailed, locale.Message(lang, locale.MsgGenerationFailed), err)
		}
	}

	skeleton, err := types.EmptyResponse(picked.QuestionType)
	if err != nil {
		return nil, apperr.Validation(locale.MsgInvalidQuestionType, locale.Message(lang, locale.MsgInvalidQuestionType))
	}
	return cloneToView(picked, distinctAttempted, skeleton), nil
}

func questionToView(q *types.Question, order int, response json.RawMessage) *QuestionView {
	return &QuestionView{
		ID:              q.ID,
		QuestionID:      q.ID,
		TestID:          q.TestID,
		Text:            q.Text,
		Context:         q.Context,
		QuestionType:    q.QuestionType,
		Difficulty:      q.Difficulty,
		Payload:         json.RawMessage(q.Payload),
		Order:           order,
		IsClone:         false,
		StudentResponse: response,
	}
}

func cloneToView(cl *types.QuestionClone, order int, response json.RawMessage) *QuestionView {
	return &QuestionView{
		ID:              cl.ID,
		QuestionID:      cl.QuestionID,
		Text:            cl.Text,
		Context:         cl.Context,
		QuestionType:    cl.QuestionType,
		Difficulty:      cl.Difficulty,
		Payload:         json.RawMessage(cl.Payload),
		Order:           order,
		IsClone:         true,
		StudentResponse: response,
	}
}

func decodeCachedView(raw []byte) (*QuestionView, error) {
	var view QuestionView
	if err := json.Unmarshal(raw, &view); err != nil {
		return nil, err
	}
	return &view, nil
}
