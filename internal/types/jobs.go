package types

import "github.com/google/uuid"

// Background job types handled by the worker.
const (
	JobTypeCloneGenerate   = "clone_generate"
	JobTypeTestPregenerate = "test_pregenerate"
)

// CloneGenerateJob asks for count clones of one question.
type CloneGenerateJob struct {
	QuestionID uuid.UUID `json:"question_id"`
	Count      int       `json:"count"`
}

// TestPregenerateJob asks for clone pre-generation across a whole test.
type TestPregenerateJob struct {
	TestID uuid.UUID `json:"test_id"`
}
