package jobs

import (
	"github.com/qazbilim/training-backend/internal/logger"
	"github.com/qazbilim/training-backend/internal/services"
	"github.com/qazbilim/training-backend/internal/types"
)

// RegisterCloneJobs wires the clone generation handlers. Both are
// idempotent: regenerating for a question only adds to its pool, and test
// pre-generation skips questions that already have clones.
func RegisterCloneJobs(reg *Registry, baseLog *logger.Logger, cloneGen services.CloneGenService) {
	log := baseLog.With("component", "CloneJobs")

	reg.Register(types.JobTypeCloneGenerate, HandlerFunc(func(jc *Context) {
		var payload types.CloneGenerateJob
		if err := jc.DecodePayload(&payload); err != nil {
			jc.Fail("decode", err)
			return
		}
		n := payload.Count
		if n <= 0 {
			n = 3
		}
		jc.Heartbeat()
		created := cloneGen.GenerateClones(jc.Ctx(), payload.QuestionID, n)
		log.Info("Clone generation job done", "question_id", payload.QuestionID, "requested", n, "created", created)
		jc.Complete()
	}))

	reg.Register(types.JobTypeTestPregenerate, HandlerFunc(func(jc *Context) {
		var payload types.TestPregenerateJob
		if err := jc.DecodePayload(&payload); err != nil {
			jc.Fail("decode", err)
			return
		}
		jc.Heartbeat()
		if err := cloneGen.PregenerateTest(jc.Ctx(), payload.TestID); err != nil {
			jc.Fail("pregenerate", err)
			return
		}
		log.Info("Test pre-generation job done", "test_id", payload.TestID)
		jc.Complete()
	}))
}
