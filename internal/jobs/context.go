package jobs

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"github.com/qazbilim/training-backend/internal/repos"
	"github.com/qazbilim/training-backend/internal/types"
)

// Context carries one claimed job through its handler.
type Context struct {
	ctx  context.Context
	db   *gorm.DB
	job  *types.JobRun
	repo repos.JobRunRepo
}

func NewContext(ctx context.Context, db *gorm.DB, job *types.JobRun, repo repos.JobRunRepo) *Context {
	return &Context{ctx: ctx, db: db, job: job, repo: repo}
}

func (jc *Context) Ctx() context.Context { return jc.ctx }

func (jc *Context) Job() *types.JobRun { return jc.job }

// DecodePayload unmarshals the job payload into out.
func (jc *Context) DecodePayload(out any) error {
	return json.Unmarshal([]byte(jc.job.Payload), out)
}

func (jc *Context) Heartbeat() {
	_ = jc.repo.Heartbeat(jc.ctx, jc.db, jc.job.ID)
}

func (jc *Context) Complete() {
	_ = jc.repo.UpdateFields(jc.ctx, jc.db, jc.job.ID, map[string]interface{}{
		"status":     types.JobStatusSucceeded,
		"updated_at": time.Now(),
	})
}

func (jc *Context) Fail(stage string, err error) {
	msg := stage
	if err != nil {
		msg = stage + ": " + err.Error()
	}
	now := time.Now()
	_ = jc.repo.UpdateFields(jc.ctx, jc.db, jc.job.ID, map[string]interface{}{
		"status":        types.JobStatusFailed,
		"last_error":    msg,
		"last_error_at": now,
		"updated_at":    now,
	})
}
