package jobs

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/qazbilim/training-backend/internal/logger"
	"github.com/qazbilim/training-backend/internal/types"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("production")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

type fakeJobRunRepo struct {
	created    []*types.JobRun
	updates    map[uuid.UUID]map[string]interface{}
	heartbeats int
}

func newFakeJobRunRepo() *fakeJobRunRepo {
	return &fakeJobRunRepo{updates: map[uuid.UUID]map[string]interface{}{}}
}

func (f *fakeJobRunRepo) Create(ctx context.Context, tx *gorm.DB, jobs []*types.JobRun) ([]*types.JobRun, error) {
	for _, j := range jobs {
		if j.ID == uuid.Nil {
			j.ID = uuid.New()
		}
		f.created = append(f.created, j)
	}
	return jobs, nil
}

func (f *fakeJobRunRepo) ClaimNextRunnable(ctx context.Context, tx *gorm.DB, maxAttempts int, retryDelay, staleRunning time.Duration) (*types.JobRun, error) {
	return nil, nil
}

func (f *fakeJobRunRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	merged := f.updates[id]
	if merged == nil {
		merged = map[string]interface{}{}
		f.updates[id] = merged
	}
	for k, v := range updates {
		merged[k] = v
	}
	return nil
}

func (f *fakeJobRunRepo) Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	f.heartbeats++
	return nil
}

func (f *fakeJobRunRepo) statusOf(id uuid.UUID) string {
	if u, ok := f.updates[id]; ok {
		if s, ok := u["status"].(string); ok {
			return s
		}
	}
	return ""
}

type cloneGenCall struct {
	questionID uuid.UUID
	count      int
}

type fakeCloneGen struct {
	batches       []cloneGenCall
	pregenerated  []uuid.UUID
	pregenerating error
}

func (f *fakeCloneGen) GenerateClone(ctx context.Context, questionID uuid.UUID) (*types.QuestionClone, error) {
	return nil, nil
}

func (f *fakeCloneGen) GenerateClones(ctx context.Context, questionID uuid.UUID, n int) int {
	f.batches = append(f.batches, cloneGenCall{questionID: questionID, count: n})
	return n
}

func (f *fakeCloneGen) PregenerateTest(ctx context.Context, testID uuid.UUID) error {
	f.pregenerated = append(f.pregenerated, testID)
	return f.pregenerating
}

func TestSubmitterEnqueue(t *testing.T) {
	repo := newFakeJobRunRepo()
	sub := NewSubmitter(nil, testLogger(t), repo)

	questionID := uuid.New()
	err := sub.Enqueue(context.Background(), types.JobTypeCloneGenerate, types.CloneGenerateJob{QuestionID: questionID, Count: 3})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if len(repo.created) != 1 {
		t.Fatalf("created = %d rows, want 1", len(repo.created))
	}
	row := repo.created[0]
	if row.JobType != types.JobTypeCloneGenerate || row.Status != types.JobStatusQueued {
		t.Errorf("row = %s/%s, want clone_generate/queued", row.JobType, row.Status)
	}
	var payload types.CloneGenerateJob
	if err := json.Unmarshal(row.Payload, &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload.QuestionID != questionID || payload.Count != 3 {
		t.Errorf("payload = %+v", payload)
	}
}

func TestSubmitterRejectsEmptyJobType(t *testing.T) {
	sub := NewSubmitter(nil, testLogger(t), newFakeJobRunRepo())
	if err := sub.Enqueue(context.Background(), "", nil); err == nil {
		t.Fatal("empty job type accepted")
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	if _, ok := reg.Get("anything"); ok {
		t.Fatal("empty registry returned a handler")
	}
	reg.Register("x", HandlerFunc(func(jc *Context) {}))
	if _, ok := reg.Get("x"); !ok {
		t.Fatal("registered handler not found")
	}
}

func runJob(t *testing.T, reg *Registry, repo *fakeJobRunRepo, jobType string, payload any) *types.JobRun {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	job := &types.JobRun{
		ID:      uuid.New(),
		JobType: jobType,
		Payload: datatypes.JSON(raw),
		Status:  types.JobStatusRunning,
	}
	h, ok := reg.Get(jobType)
	if !ok {
		t.Fatalf("no handler for %s", jobType)
	}
	h.Run(NewContext(context.Background(), nil, job, repo))
	return job
}

func TestCloneGenerateHandler(t *testing.T) {
	reg := NewRegistry()
	repo := newFakeJobRunRepo()
	gen := &fakeCloneGen{}
	RegisterCloneJobs(reg, testLogger(t), gen)

	questionID := uuid.New()
	job := runJob(t, reg, repo, types.JobTypeCloneGenerate, types.CloneGenerateJob{QuestionID: questionID, Count: 5})

	if len(gen.batches) != 1 || gen.batches[0].questionID != questionID || gen.batches[0].count != 5 {
		t.Fatalf("batches = %+v, want one batch of 5", gen.batches)
	}
	if got := repo.statusOf(job.ID); got != types.JobStatusSucceeded {
		t.Errorf("status = %q, want succeeded", got)
	}
	if repo.heartbeats != 1 {
		t.Errorf("heartbeats = %d, want 1", repo.heartbeats)
	}
}

func TestCloneGenerateHandlerDefaultsCount(t *testing.T) {
	reg := NewRegistry()
	repo := newFakeJobRunRepo()
	gen := &fakeCloneGen{}
	RegisterCloneJobs(reg, testLogger(t), gen)

	runJob(t, reg, repo, types.JobTypeCloneGenerate, types.CloneGenerateJob{QuestionID: uuid.New()})
	if len(gen.batches) != 1 || gen.batches[0].count != 3 {
		t.Fatalf("batches = %+v, want the default batch of 3", gen.batches)
	}
}

func TestCloneGenerateHandlerBadPayload(t *testing.T) {
	reg := NewRegistry()
	repo := newFakeJobRunRepo()
	gen := &fakeCloneGen{}
	RegisterCloneJobs(reg, testLogger(t), gen)

	job := &types.JobRun{
		ID:      uuid.New(),
		JobType: types.JobTypeCloneGenerate,
		Payload: datatypes.JSON(`{"question_id":42}`),
		Status:  types.JobStatusRunning,
	}
	h, _ := reg.Get(types.JobTypeCloneGenerate)
	h.Run(NewContext(context.Background(), nil, job, repo))

	if got := repo.statusOf(job.ID); got != types.JobStatusFailed {
		t.Errorf("status = %q, want failed", got)
	}
	if len(gen.batches) != 0 {
		t.Errorf("generation ran on a bad payload: %+v", gen.batches)
	}
}

func TestTestPregenerateHandler(t *testing.T) {
	reg := NewRegistry()
	repo := newFakeJobRunRepo()
	gen := &fakeCloneGen{}
	RegisterCloneJobs(reg, testLogger(t), gen)

	testID := uuid.New()
	job := runJob(t, reg, repo, types.JobTypeTestPregenerate, types.TestPregenerateJob{TestID: testID})

	if len(gen.pregenerated) != 1 || gen.pregenerated[0] != testID {
		t.Fatalf("pregenerated = %v, want %s", gen.pregenerated, testID)
	}
	if got := repo.statusOf(job.ID); got != types.JobStatusSucceeded {
		t.Errorf("status = %q, want succeeded", got)
	}
}

func TestTestPregenerateHandlerFailure(t *testing.T) {
	reg := NewRegistry()
	repo := newFakeJobRunRepo()
	gen := &fakeCloneGen{pregenerating: context.DeadlineExceeded}
	RegisterCloneJobs(reg, testLogger(t), gen)

	job := runJob(t, reg, repo, types.JobTypeTestPregenerate, types.TestPregenerateJob{TestID: uuid.New()})
	if got := repo.statusOf(job.ID); got != types.JobStatusFailed {
		t.Errorf("status = %q, want failed", got)
	}
}
