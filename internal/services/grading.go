package services

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/qazbilim/training-backend/internal/apperr"
	"github.com/qazbilim/training-backend/internal/config"
	"github.com/qazbilim/training-backend/internal/locale"
	"github.com/qazbilim/training-backend/internal/logger"
	"github.com/qazbilim/training-backend/internal/repos"
	"github.com/qazbilim/training-backend/internal/types"
)

const maxResponseLength = 1000

// markup-like characters stripped from student input before it reaches
// the model
var sanitizePattern = regexp.MustCompile("[<>/{}\\[\\]`~]")

// Verdict is the grading result for one student response.
type Verdict struct {
	Points         float64 `json:"points"`
	Rationale      string  `json:"rationale"`
	ModerationFlag bool    `json:"moderation_flag"`
}

// GradingService scores a free-form student response against the question
// it answers, via a rubric-driven model call.
type GradingService interface {
	Grade(ctx context.Context, id uuid.UUID, isClone bool, studentResponse string) (*Verdict, error)
}

type gradingService struct {
	db       *gorm.DB
	log      *logger.Logger
	tests    repos.TestRepo
	topics   repos.TopicRepo
	question repos.QuestionRepo
	clone    repos.QuestionCloneRepo
	ai       OpenAIClient
	models   config.ModelsConfig
}

func NewGradingService(
	db *gorm.DB,
	baseLog *logger.Logger,
	cfg *config.Config,
	tests repos.TestRepo,
	topics repos.TopicRepo,
	question repos.QuestionRepo,
	clone repos.QuestionCloneRepo,
	ai OpenAIClient,
) GradingService {
	return &gradingService{
		db:       db,
		log:      baseLog.With("service", "GradingService"),
		tests:    tests,
		topics:   topics,
		question: question,
		clone:    clone,
		ai:       ai,
		models:   cfg.Models,
	}
}

// SanitizeResponse strips markup-like characters and trims whitespace.
// Exposed because the submission flow stores the sanitized form.
func SanitizeResponse(studentResponse string) string {
	return strings.TrimSpace(sanitizePattern.ReplaceAllString(studentResponse, ""))
}

// gradedItem is what grading needs from either an original question or a
// clone.
type gradedItem struct {
	testID       uuid.UUID
	difficulty   types.Difficulty
	questionType types.QuestionType
	text         string
	context      string
	payload      json.RawMessage
}

func (s *gradingService) Grade(ctx context.Context, id uuid.UUID, isClone bool, studentResponse string) (*Verdict, error) {
	item, err := s.resolveItem(ctx, id, isClone)
	if err != nil {
		return nil, err
	}

	test, err := s.tests.GetByIDWithChain(ctx, nil, item.testID)
	if err != nil {
		return nil, err
	}
	if test == nil || test.Topic == nil || test.Topic.Section == nil || test.Topic.Section.Subject == nil {
		return nil, apperr.NotFound(locale.MsgTestNotFound, locale.Message(locale.Russian, locale.MsgTestNotFound))
	}
	topic := test.Topic
	subject := topic.Section.Subject
	lang := locale.DetectBySubject(subject.Name)

	handbook, err := s.topics.GetHandbook(ctx, nil, topic.ID)
	if err != nil {
		return nil, err
	}
	if handbook == nil {
		return nil, apperr.NotFound(locale.MsgGoalNotFound, locale.Message(lang, locale.MsgGoalNotFound))
	}
	goal, ok := handbook.GoalFor(item.difficulty)
	if !ok {
		return nil, apperr.NotFound(locale.MsgGoalNotFound, locale.Message(lang, locale.MsgGoalNotFound))
	}

	// The rubric only applies to open questions; everything else is graded
	// against the question itself.
	criteria := ""
	if item.questionType == types.QTOpen {
		if p, decodeErr := types.DecodePayload(item.questionType, item.payload); decodeErr == nil {
			criteria = types.CriteriaOf(p)
		}
	}

	sanitized := SanitizeResponse(studentResponse)
	if utf8.RuneCountInString(sanitized) > maxResponseLength {
		return nil, apperr.Validation(locale.MsgResponseTooLong, locale.Message(lang, locale.MsgResponseTooLong))
	}

	details, err := json.Marshal(map[string]any{
		"text":          item.text,
		"context":       item.context,
		"question_type": item.questionType,
		"payload":       item.payload,
	})
	if err != nil {
		return nil, err
	}

	model := pickModel(s.models, subject.Name)
	messages := evaluateMessages(lang, subject.Name, topic.Name, goal, string(details), sanitized, criteria)
	fn := evaluateFunction(lang, criteria)

	args, err := s.ai.CallFunction(ctx, model, messages, fn)
	if err != nil {
		return nil, apperr.Upstream(locale.MsgServerFault, locale.Message(lang, locale.MsgServerFault), err)
	}

	verdict, err := parseVerdict(args)
	if err != nil {
		return nil, apperr.Upstream(locale.MsgServerFault, locale.Message(lang, locale.MsgServerFault), err)
	}
	return verdict, nil
}

func (s *gradingService) resolveItem(ctx context.Context, id uuid.UUID, isClone bool) (*gradedItem, error) {
	if isClone {
		cl, err := s.clone.GetByID(ctx, nil, id)
		if err != nil {
			return nil, err
		}
		if cl == nil {
			return nil, apperr.NotFound(locale.MsgQuestionNotFound, locale.Message(locale.Russian, locale.MsgQuestionNotFound))
		}
		q, err := s.question.GetByID(ctx, nil, cl.QuestionID)
		if err != nil {
			return nil, err
		}
		if q == nil {
			return nil, apperr.NotFound(locale.MsgQuestionNotFound, locale.Message(locale.Russian, locale.MsgQuestionNotFound))
		}
		return &gradedItem{
			testID:       q.TestID,
			difficulty:   cl.Difficulty,
			questionType: cl.QuestionType,
			text:         cl.Text,
			context:      cl.Context,
			payload:      json.RawMessage(cl.Payload),
		}, nil
	}

	q, err := s.question.GetByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, apperr.NotFound(locale.MsgQuestionNotFound, locale.Message(locale.Russian, locale.MsgQuestionNotFound))
	}
	return &gradedItem{
		testID:       q.TestID,
		difficulty:   q.Difficulty,
		questionType: q.QuestionType,
		text:         q.Text,
		context:      q.Context,
		payload:      json.RawMessage(q.Payload),
	}, nil
}

// parseVerdict extracts the evaluate_answer arguments. A moderation hit
// always zeroes the points no matter what the model scored.
func parseVerdict(args map[string]any) (*Verdict, error) {
	points, ok := args["points"].(float64)
	if !ok {
		return nil, fmt.Errorf("missing or non-numeric points in model output")
	}
	rationale, ok := args["criteria_evaluation"].(string)
	if !ok || rationale == "" {
		return nil, fmt.Errorf("missing criteria_evaluation in model output")
	}
	moderation, _ := args["moderation_flag"].(bool)
	if moderation {
		points = 0
	}
	return &Verdict{
		Points:         points,
		Rationale:      rationale,
		ModerationFlag: moderation,
	}, nil
}
