package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/qazbilim/training-backend/internal/apperr"
	"github.com/qazbilim/training-backend/internal/config"
	"github.com/qazbilim/training-backend/internal/locale"
	"github.com/qazbilim/training-backend/internal/logger"
	"github.com/qazbilim/training-backend/internal/repos"
	"github.com/qazbilim/training-backend/internal/types"
)

const cloneGenerateAttempts = 2

// CloneGenService authors AI paraphrase clones of original questions.
type CloneGenService interface {
	// GenerateClone authors and persists one clone. The returned payload is
	// validated against the question's type before anything is stored.
	GenerateClone(ctx context.Context, questionID uuid.UUID) (*types.QuestionClone, error)
	// GenerateClones is best-effort: it returns how many clones were
	// persisted and logs individual failures instead of propagating them.
	GenerateClones(ctx context.Context, questionID uuid.UUID, n int) int
	// PregenerateTest tops up every cloneable question of the test to a
	// starting pool. Questions that already have clones are skipped, which
	// makes redundant invocations safe.
	PregenerateTest(ctx context.Context, testID uuid.UUID) error
}

type cloneGenService struct {
	db       *gorm.DB
	log      *logger.Logger
	tests    repos.TestRepo
	question repos.QuestionRepo
	clone    repos.QuestionCloneRepo
	ai       OpenAIClient

	models   config.ModelsConfig
	perBatch int
	parallel int
}

func NewCloneGenService(
	db *gorm.DB,
	baseLog *logger.Logger,
	cfg *config.Config,
	tests repos.TestRepo,
	question repos.QuestionRepo,
	clone repos.QuestionCloneRepo,
	ai OpenAIClient,
) CloneGenService {
	return &cloneGenService{
		db:       db,
		log:      baseLog.With("service", "CloneGenService"),
		tests:    tests,
		question: question,
		clone:    clone,
		ai:       ai,
		models:   cfg.Models,
		perBatch: cfg.Clones.PerBatch,
		parallel: cfg.Clones.PregenerateParallel,
	}
}

// clonePrompt is the original question as the model sees it.
type clonePrompt struct {
	Text         string             `json:"text"`
	Context      string             `json:"context,omitempty"`
	QuestionType types.QuestionType `json:"question_type"`
	Payload      json.RawMessage    `json:"payload"`
}

func (s *cloneGenService) GenerateClone(ctx context.Context, questionID uuid.UUID) (*types.QuestionClone, error) {
	q, err := s.question.GetByID(ctx, nil, questionID)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, apperr.NotFound(locale.MsgQuestionNotFound, locale.Message(locale.Russian, locale.MsgQuestionNotFound))
	}
	if !q.QuestionType.Cloneable() {
		return nil, apperr.Validation(locale.MsgInvalidQuestionType, fmt.Sprintf("question type %q cannot be cloned", q.QuestionType))
	}

	test, err := s.tests.GetByIDWithChain(ctx, nil, q.TestID)
	if err != nil {
		return nil, err
	}
	if test == nil || test.Topic == nil || test.Topic.Section == nil || test.Topic.Section.Subject == nil {
		return nil, apperr.NotFound(locale.MsgTestNotFound, locale.Message(locale.Russian, locale.MsgTestNotFound))
	}
	subject := test.Topic.Section.Subject
	lang := locale.DetectBySubject(subject.Name)

	promptJSON, err := json.Marshal(clonePrompt{
		Text:         q.Text,
		Context:      q.Context,
		QuestionType: q.QuestionType,
		Payload:      json.RawMessage(q.Payload),
	})
	if err != nil {
		return nil, err
	}

	messages := cloneMessages(subject.Name, test.Topic.Name, string(q.Difficulty), string(promptJSON))
	model := pickModel(s.models, subject.Name)

	var lastErr error
	for attempt := 1; attempt <= cloneGenerateAttempts; attempt++ {
		args, callErr := s.ai.CallFunction(ctx, model, messages, cloneFunction())
		if callErr != nil {
			lastErr = callErr
			s.log.Warn("Clone authoring call failed", "question_id", questionID, "attempt", attempt, "error", callErr)
			continue
		}

		clone, buildErr := s.buildClone(q, args)
		if buildErr != nil {
			lastErr = buildErr
			s.log.Warn("Clone payload rejected", "question_id", questionID, "attempt", attempt, "error", buildErr)
			continue
		}

		created, createErr := s.clone.Create(ctx, nil, []*types.QuestionClone{clone})
		if createErr != nil {
			return nil, createErr
		}
		return created[0], nil
	}

	return nil, apperr.Upstream(locale.MsgGenerationFailed, locale.Message(lang, locale.MsgGenerationFailed), lastErr)
}

// buildClone converts function-call arguments into a persistable clone,
// enforcing the type/payload invariant before anything touches the DB.
func (s *cloneGenService) buildClone(q *types.Question, args map[string]any) (*types.QuestionClone, error) {
	text, _ := args["text"].(string)
	if text == "" {
		return nil, fmt.Errorf("clone is missing text")
	}
	cloneContext, _ := args["context"].(string)

	rawPayload, ok := args["payload"]
	if !ok {
		return nil, fmt.Errorf("clone is missing payload")
	}
	payloadJSON, err := json.Marshal(rawPayload)
	if err != nil {
		return nil, err
	}
	if _, err := types.DecodePayload(q.QuestionType, payloadJSON); err != nil {
		return nil, err
	}

	return &types.QuestionClone{
		QuestionID:   q.ID,
		Text:         text,
		Context:      cloneContext,
		QuestionType: q.QuestionType,
		Difficulty:   q.Difficulty,
		Payload:      datatypes.JSON(payloadJSON),
	}, nil
}

func (s *cloneGenService) GenerateClones(ctx context.Context, questionID uuid.UUID, n int) int {
	created := 0
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		if _, err := s.GenerateClone(ctx, questionID); err != nil {
			s.log.Warn("Clone generation failed", "question_id", questionID, "index", i, "error", err)
			continue
		}
		created++
	}
	s.log.Info("Clone batch done", "question_id", questionID, "requested", n, "created", created)
	return created
}

func (s *cloneGenService) PregenerateTest(ctx context.Context, testID uuid.UUID) error {
	questions, err := s.question.GetByTestID(ctx, nil, testID)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallel)
	for _, q := range questions {
		if !q.QuestionType.Cloneable() {
			continue
		}
		q := q
		g.Go(func() error {
			existing, err := s.clone.GetByQuestionID(gctx, nil, q.ID)
			if err != nil {
				s.log.Warn("Clone lookup failed during pre-generation", "question_id", q.ID, "error", err)
				return nil
			}
			if len(existing) > 0 {
				return nil
			}
			s.GenerateClones(gctx, q.ID, s.perBatch)
			return nil
		})
	}
	return g.Wait()
}
