package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/qazbilim/training-backend/internal/logger"
	"github.com/qazbilim/training-backend/internal/repos"
	"github.com/qazbilim/training-backend/internal/types"
)

// QuestionProgress is one slot of a student's test timeline. Correctness is
// a tri-state: nil means the attempt was never graded.
type QuestionProgress struct {
	QuestionCorrect *bool   `json:"question_correct"`
	ClonesCorrect   []*bool `json:"clones_correct"`
	Order           int     `json:"order,omitempty"`
}

// ProgressService builds the per-test attempt timeline students see.
type ProgressService interface {
	TestProgress(ctx context.Context, testID, studentID uuid.UUID) ([]*QuestionProgress, error)
}

type progressService struct {
	db       *gorm.DB
	log      *logger.Logger
	question repos.QuestionRepo
	attempts repos.AttemptRecordRepo
}

func NewProgressService(db *gorm.DB, baseLog *logger.Logger, question repos.QuestionRepo, attempts repos.AttemptRecordRepo) ProgressService {
	return &progressService{
		db:       db,
		log:      baseLog.With("service", "ProgressService"),
		question: question,
		attempts: attempts,
	}
}

func (s *progressService) TestProgress(ctx context.Context, testID, studentID uuid.UUID) ([]*QuestionProgress, error) {
	records, err := s.attempts.GetByStudentAndTestID(ctx, nil, studentID, testID)
	if err != nil {
		return nil, err
	}

	// Group attempts per question in first-seen order. Clone attempts
	// accumulate next to the original they rehearse.
	byQuestion := make(map[uuid.UUID]*QuestionProgress)
	var sequence []*QuestionProgress
	order := 0
	for _, rec := range records {
		slot, ok := byQuestion[rec.QuestionID]
		if !ok {
			slot = &QuestionProgress{ClonesCorrect: []*bool{}}
			byQuestion[rec.QuestionID] = slot
			sequence = append(sequence, slot)
		}
		if rec.IsCloneAttempt() {
			slot.ClonesCorrect = append(slot.ClonesCorrect, outcomeToBool(rec.IsCorrect))
		} else {
			order++
			slot.Order = order
			slot.QuestionCorrect = outcomeToBool(rec.IsCorrect)
		}
	}

	questionsCount, err := s.question.CountByTestID(ctx, nil, testID)
	if err != nil {
		return nil, err
	}

	// Append the upcoming empty slot when the student may advance: nothing
	// attempted yet, the last original passed, or the last three clone
	// rehearsals all passed.
	if order < int(questionsCount) && mayAdvance(sequence) {
		order++
		sequence = append(sequence, &QuestionProgress{
			ClonesCorrect: []*bool{},
			Order:         order,
		})
	}
	if sequence == nil {
		sequence = []*QuestionProgress{}
	}
	return sequence, nil
}

func mayAdvance(sequence []*QuestionProgress) bool {
	if len(sequence) == 0 {
		return true
	}
	last := sequence[len(sequence)-1]
	if last.QuestionCorrect != nil && *last.QuestionCorrect {
		return true
	}
	clones := last.ClonesCorrect
	if len(clones) < 3 {
		return false
	}
	for _, c := range clones[len(clones)-3:] {
		if c == nil || !*c {
			return false
		}
	}
	return true
}

func outcomeToBool(o types.Outcome) *bool {
	if !o.Known() {
		return nil
	}
	v := o.IsPositive()
	return &v
}
