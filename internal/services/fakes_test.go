package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/qazbilim/training-backend/internal/logger"
	"github.com/qazbilim/training-backend/internal/types"
)

func testLogger() *logger.Logger {
	log, err := logger.New("production")
	if err != nil {
		panic(err)
	}
	return log
}

type fakeQuarterRepo struct {
	quarter *types.Quarter
	err     error
}

func (f *fakeQuarterRepo) GetCurrent(ctx context.Context, tx *gorm.DB, now time.Time) (*types.Quarter, error) {
	return f.quarter, f.err
}

type fakeTestRepo struct {
	tests map[uuid.UUID]*types.Test
	// byTopic preserves insertion order, the order GetByTopicID returns
	byTopic map[uuid.UUID][]*types.Test
}

func newFakeTestRepo() *fakeTestRepo {
	return &fakeTestRepo{tests: map[uuid.UUID]*types.Test{}, byTopic: map[uuid.UUID][]*types.Test{}}
}

func (f *fakeTestRepo) add(t *types.Test) {
	f.tests[t.ID] = t
	f.byTopic[t.TopicID] = append(f.byTopic[t.TopicID], t)
}

func (f *fakeTestRepo) GetByIDWithChain(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Test, error) {
	return f.tests[id], nil
}

func (f *fakeTestRepo) GetByTopicID(ctx context.Context, tx *gorm.DB, topicID uuid.UUID) ([]*types.Test, error) {
	return f.byTopic[topicID], nil
}

type fakeQuestionRepo struct {
	byTest map[uuid.UUID][]*types.Question
	byID   map[uuid.UUID]*types.Question
}

func newFakeQuestionRepo() *fakeQuestionRepo {
	return &fakeQuestionRepo{byTest: map[uuid.UUID][]*types.Question{}, byID: map[uuid.UUID]*types.Question{}}
}

func (f *fakeQuestionRepo) add(q *types.Question) {
	f.byTest[q.TestID] = append(f.byTest[q.TestID], q)
	f.byID[q.ID] = q
}

func (f *fakeQuestionRepo) Create(ctx context.Context, tx *gorm.DB, questions []*types.Question) ([]*types.Question, error) {
	for _, q := range questions {
		if q.ID == uuid.Nil {
			q.ID = uuid.New()
		}
		f.add(q)
	}
	return questions, nil
}

func (f *fakeQuestionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Question, error) {
	return f.byID[id], nil
}

func (f *fakeQuestionRepo) GetByTestID(ctx context.Context, tx *gorm.DB, testID uuid.UUID) ([]*types.Question, error) {
	return f.byTest[testID], nil
}

func (f *fakeQuestionRepo) CountByTestID(ctx context.Context, tx *gorm.DB, testID uuid.UUID) (int64, error) {
	return int64(len(f.byTest[testID])), nil
}

type fakeCloneRepo struct {
	questions  *fakeQuestionRepo
	byQuestion map[uuid.UUID][]*types.QuestionClone
	byID       map[uuid.UUID]*types.QuestionClone
}

func newFakeCloneRepo(questions *fakeQuestionRepo) *fakeCloneRepo {
	return &fakeCloneRepo{
		questions:  questions,
		byQuestion: map[uuid.UUID][]*types.QuestionClone{},
		byID:       map[uuid.UUID]*types.QuestionClone{},
	}
}

func (f *fakeCloneRepo) add(cl *types.QuestionClone) {
	if cl.ID == uuid.Nil {
		cl.ID = uuid.New()
	}
	f.byQuestion[cl.QuestionID] = append(f.byQuestion[cl.QuestionID], cl)
	f.byID[cl.ID] = cl
}

func (f *fakeCloneRepo) Create(ctx context.Context, tx *gorm.DB, clones []*types.QuestionClone) ([]*types.QuestionClone, error) {
	for _, cl := range clones {
		f.add(cl)
	}
	return clones, nil
}

func (f *fakeCloneRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.QuestionClone, error) {
	return f.byID[id], nil
}

func (f *fakeCloneRepo) GetByQuestionID(ctx context.Context, tx *gorm.DB, questionID uuid.UUID) ([]*types.QuestionClone, error) {
	return f.byQuestion[questionID], nil
}

func (f *fakeCloneRepo) ExistsForTest(ctx context.Context, tx *gorm.DB, testID uuid.UUID) (bool, error) {
	for questionID, clones := range f.byQuestion {
		if len(clones) == 0 {
			continue
		}
		if q := f.questions.byID[questionID]; q != nil && q.TestID == testID {
			return true, nil
		}
	}
	return false, nil
}

type fakeAttemptRepo struct {
	questions *fakeQuestionRepo
	records   []*types.AttemptRecord
}

func newFakeAttemptRepo(questions *fakeQuestionRepo) *fakeAttemptRepo {
	return &fakeAttemptRepo{questions: questions}
}

func (f *fakeAttemptRepo) add(rec *types.AttemptRecord) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	f.records = append(f.records, rec)
}

func (f *fakeAttemptRepo) Create(ctx context.Context, tx *gorm.DB, record *types.AttemptRecord) (*types.AttemptRecord, error) {
	f.add(record)
	return record, nil
}

func (f *fakeAttemptRepo) GetByStudentAndQuestionIDs(ctx context.Context, tx *gorm.DB, studentID uuid.UUID, questionIDs []uuid.UUID) ([]*types.AttemptRecord, error) {
	wanted := map[uuid.UUID]bool{}
	for _, id := range questionIDs {
		wanted[id] = true
	}
	var out []*types.AttemptRecord
	for _, rec := range f.records {
		if rec.StudentID == studentID && wanted[rec.QuestionID] {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeAttemptRepo) GetByStudentAndTestID(ctx context.Context, tx *gorm.DB, studentID, testID uuid.UUID) ([]*types.AttemptRecord, error) {
	var out []*types.AttemptRecord
	for _, rec := range f.records {
		q := f.questions.byID[rec.QuestionID]
		if rec.StudentID == studentID && q != nil && q.TestID == testID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeAttemptRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	out := f.records[:0]
	for _, rec := range f.records {
		if rec.ID != id {
			out = append(out, rec)
		}
	}
	f.records = out
	return nil
}

type fakeLevelService struct {
	level types.Difficulty
	ok    bool
	err   error
}

func (f *fakeLevelService) CurrentLevel(ctx context.Context, studentID, subjectID, quarterID uuid.UUID) (types.Difficulty, bool, error) {
	return f.level, f.ok, f.err
}

func (f *fakeLevelService) AssignLevel(ctx context.Context, studentID, subjectID, quarterID uuid.UUID, level types.Difficulty) error {
	return nil
}

type fakeCloneGen struct {
	clones *fakeCloneRepo
	tmpl   *types.QuestionClone
	err    error
	calls  int
}

func (f *fakeCloneGen) GenerateClone(ctx context.Context, questionID uuid.UUID) (*types.QuestionClone, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	cl := *f.tmpl
	cl.ID = uuid.Nil
	cl.QuestionID = questionID
	out := &cl
	f.clones.add(out)
	return out, nil
}

func (f *fakeCloneGen) GenerateClones(ctx context.Context, questionID uuid.UUID, n int) int {
	created := 0
	for i := 0; i < n; i++ {
		if _, err := f.GenerateClone(ctx, questionID); err == nil {
			created++
		}
	}
	return created
}

func (f *fakeCloneGen) PregenerateTest(ctx context.Context, testID uuid.UUID) error {
	return nil
}

type enqueuedJob struct {
	jobType string
	payload any
}

type fakeSubmitter struct {
	jobs []enqueuedJob
	err  error
}

func (f *fakeSubmitter) Enqueue(ctx context.Context, jobType string, payload any) error {
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, enqueuedJob{jobType: jobType, payload: payload})
	return nil
}

func (f *fakeSubmitter) countByType(jobType string) int {
	n := 0
	for _, j := range f.jobs {
		if j.jobType == jobType {
			n++
		}
	}
	return n
}

type aiCall struct {
	model    string
	messages []ChatMessage
	fn       FunctionDef
}

type fakeAI struct {
	calls []aiCall
	args  map[string]any
	err   error
	// argsFn, when set, computes the reply per call
	argsFn func(call aiCall) (map[string]any, error)
}

func (f *fakeAI) CallFunction(ctx context.Context, model string, messages []ChatMessage, fn FunctionDef) (map[string]any, error) {
	call := aiCall{model: model, messages: messages, fn: fn}
	f.calls = append(f.calls, call)
	if f.argsFn != nil {
		return f.argsFn(call)
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.args == nil {
		return nil, fmt.Errorf("no stubbed reply")
	}
	return f.args, nil
}

type fakeSectionRepo struct {
	byID      map[uuid.UUID]*types.Section
	bySubject map[uuid.UUID][]*types.Section
}

func newFakeSectionRepo() *fakeSectionRepo {
	return &fakeSectionRepo{byID: map[uuid.UUID]*types.Section{}, bySubject: map[uuid.UUID][]*types.Section{}}
}

func (f *fakeSectionRepo) add(s *types.Section) {
	f.byID[s.ID] = s
	f.bySubject[s.SubjectID] = append(f.bySubject[s.SubjectID], s)
}

func (f *fakeSectionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Section, error) {
	return f.byID[id], nil
}

func (f *fakeSectionRepo) GetBySubjectID(ctx context.Context, tx *gorm.DB, subjectID uuid.UUID) ([]*types.Section, error) {
	return f.bySubject[subjectID], nil
}

type fakeTopicRepo struct {
	byID      map[uuid.UUID]*types.Topic
	bySection map[uuid.UUID][]*types.Topic
	handbooks map[uuid.UUID]*types.TopicHandbook
}

func newFakeTopicRepo() *fakeTopicRepo {
	return &fakeTopicRepo{
		byID:      map[uuid.UUID]*types.Topic{},
		bySection: map[uuid.UUID][]*types.Topic{},
		handbooks: map[uuid.UUID]*types.TopicHandbook{},
	}
}

func (f *fakeTopicRepo) add(t *types.Topic) {
	f.byID[t.ID] = t
	f.bySection[t.SectionID] = append(f.bySection[t.SectionID], t)
}

func (f *fakeTopicRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Topic, error) {
	return f.byID[id], nil
}

func (f *fakeTopicRepo) GetBySectionID(ctx context.Context, tx *gorm.DB, sectionID uuid.UUID) ([]*types.Topic, error) {
	return f.bySection[sectionID], nil
}

func (f *fakeTopicRepo) GetHandbook(ctx context.Context, tx *gorm.DB, topicID uuid.UUID) (*types.TopicHandbook, error) {
	return f.handbooks[topicID], nil
}

type topicStatKey struct {
	student uuid.UUID
	topic   uuid.UUID
	level   types.Difficulty
}

type fakeStatRepo struct {
	topicStats    map[topicStatKey]*types.TopicTrainingStat
	sectionStats  []*types.SectionTrainingStat
	finishedTests map[uuid.UUID]map[uuid.UUID]bool // student -> test set
}

func newFakeStatRepo() *fakeStatRepo {
	return &fakeStatRepo{
		topicStats:    map[topicStatKey]*types.TopicTrainingStat{},
		finishedTests: map[uuid.UUID]map[uuid.UUID]bool{},
	}
}

func (f *fakeStatRepo) GetTopicStat(ctx context.Context, tx *gorm.DB, studentID, topicID uuid.UUID, level types.Difficulty) (*types.TopicTrainingStat, error) {
	return f.topicStats[topicStatKey{studentID, topicID, level}], nil
}

func (f *fakeStatRepo) EnsureTopicStat(ctx context.Context, tx *gorm.DB, studentID, topicID uuid.UUID, level types.Difficulty) (*types.TopicTrainingStat, error) {
	key := topicStatKey{studentID, topicID, level}
	if stat, ok := f.topicStats[key]; ok {
		return stat, nil
	}
	stat := &types.TopicTrainingStat{ID: uuid.New(), StudentID: studentID, TopicID: topicID, Level: level}
	f.topicStats[key] = stat
	return stat, nil
}

func (f *fakeStatRepo) UpdateTopicStatCounts(ctx context.Context, tx *gorm.DB, id uuid.UUID, testsCount, finishedTestsCount int) error {
	for _, stat := range f.topicStats {
		if stat.ID == id {
			stat.TestsCount = testsCount
			stat.FinishedTestsCount = finishedTestsCount
		}
	}
	return nil
}

func (f *fakeStatRepo) GetSectionStats(ctx context.Context, tx *gorm.DB, studentID uuid.UUID) ([]*types.SectionTrainingStat, error) {
	var out []*types.SectionTrainingStat
	for _, stat := range f.sectionStats {
		if stat.StudentID == studentID {
			out = append(out, stat)
		}
	}
	return out, nil
}

func (f *fakeStatRepo) EnsureSectionStat(ctx context.Context, tx *gorm.DB, studentID, sectionID uuid.UUID) (*types.SectionTrainingStat, error) {
	for _, stat := range f.sectionStats {
		if stat.StudentID == studentID && stat.SectionID == sectionID {
			return stat, nil
		}
	}
	stat := &types.SectionTrainingStat{ID: uuid.New(), StudentID: studentID, SectionID: sectionID}
	f.sectionStats = append(f.sectionStats, stat)
	return stat, nil
}

func (f *fakeStatRepo) CountFinishedTests(ctx context.Context, tx *gorm.DB, studentID uuid.UUID, testIDs []uuid.UUID) (int, error) {
	finished := f.finishedTests[studentID]
	n := 0
	for _, id := range testIDs {
		if finished[id] {
			n++
		}
	}
	return n, nil
}

func (f *fakeStatRepo) MarkTestFinished(ctx context.Context, tx *gorm.DB, studentID, testID uuid.UUID) error {
	if f.finishedTests[studentID] == nil {
		f.finishedTests[studentID] = map[uuid.UUID]bool{}
	}
	f.finishedTests[studentID][testID] = true
	return nil
}
