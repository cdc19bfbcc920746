package types

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Subject struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name      string    `gorm:"column:name;not null;index" json:"name"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Subject) TableName() string { return "subject" }

// Quarter is an academic quarter. A date gap between quarters is vacation
// time, during which level resolution fails.
type Quarter struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Number    int       `gorm:"column:number;not null" json:"number"`
	StartDate time.Time `gorm:"column:start_date;not null;index" json:"start_date"`
	EndDate   time.Time `gorm:"column:end_date;not null;index" json:"end_date"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Quarter) TableName() string { return "quarter" }

type Section struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SubjectID uuid.UUID `gorm:"type:uuid;not null;index" json:"subject_id"`
	Subject   *Subject  `gorm:"constraint:OnDelete:CASCADE;foreignKey:SubjectID;references:ID" json:"subject,omitempty"`
	Name      string    `gorm:"column:name;not null;index" json:"name"`
	Position  int       `gorm:"column:position;not null;default:1" json:"position"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Section) TableName() string { return "section" }

type Topic struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SectionID uuid.UUID      `gorm:"type:uuid;not null;index" json:"section_id"`
	Section   *Section       `gorm:"constraint:OnDelete:CASCADE;foreignKey:SectionID;references:ID" json:"section,omitempty"`
	Name      string         `gorm:"column:name;not null;index" json:"name"`
	Levels    datatypes.JSON `gorm:"column:levels;type:jsonb" json:"levels"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Topic) TableName() string { return "topic" }

// HasLevel reports whether the topic is taught at the given level.
func (t *Topic) HasLevel(level Difficulty) bool {
	return jsonLevelsContain(t.Levels, level)
}

// TopicHandbook carries the per-difficulty instructional goals the grading
// pipeline embeds into its prompts.
type TopicHandbook struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TopicID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"topic_id"`
	Topic     *Topic         `gorm:"constraint:OnDelete:CASCADE;foreignKey:TopicID;references:ID" json:"topic,omitempty"`
	Text      string         `gorm:"column:text;not null" json:"text"`
	Goals     datatypes.JSON `gorm:"column:goals;type:jsonb" json:"goals"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (TopicHandbook) TableName() string { return "topic_handbook" }

// GoalFor returns the instructional goal for a difficulty, if present.
func (h *TopicHandbook) GoalFor(level Difficulty) (string, bool) {
	if len(h.Goals) == 0 {
		return "", false
	}
	var goals map[string]string
	if err := json.Unmarshal(h.Goals, &goals); err != nil {
		return "", false
	}
	goal, ok := goals[string(level)]
	return goal, ok && goal != ""
}

type Test struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TopicID   uuid.UUID `gorm:"type:uuid;not null;index" json:"topic_id"`
	Topic     *Topic    `gorm:"constraint:OnDelete:CASCADE;foreignKey:TopicID;references:ID" json:"topic,omitempty"`
	Order     int       `gorm:"column:position;not null;default:1" json:"order"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Test) TableName() string { return "training_test" }

type Question struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TestID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"test_id"`
	Test         *Test          `gorm:"constraint:OnDelete:CASCADE;foreignKey:TestID;references:ID" json:"test,omitempty"`
	Difficulty   Difficulty     `gorm:"column:difficulty;not null;index" json:"difficulty"`
	TestLevels   datatypes.JSON `gorm:"column:test_levels;type:jsonb" json:"test_levels"`
	Text         string         `gorm:"column:text;not null" json:"text"`
	Context      string         `gorm:"column:context" json:"context"`
	QuestionType QuestionType   `gorm:"column:question_type;not null;index" json:"question_type"`
	Payload      datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload"`
	CreatedAt    time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Question) TableName() string { return "question" }

// BeforeSave enforces the payload/type invariant and recomputes the eligible
// level set from the question's difficulty. Saving always overwrites
// test_levels with the inclusive upward range.
func (q *Question) BeforeSave(tx *gorm.DB) error {
	if _, err := DecodePayload(q.QuestionType, q.Payload); err != nil {
		return err
	}
	return q.ApplyTestLevels()
}

// ApplyTestLevels recomputes test_levels = {difficulty, ..., c_level}.
func (q *Question) ApplyTestLevels() error {
	levels, err := LevelsFrom(q.Difficulty)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(levels)
	if err != nil {
		return err
	}
	q.TestLevels = datatypes.JSON(raw)
	return nil
}

// EligibleFor reports whether the question is served at the given test level.
func (q *Question) EligibleFor(level Difficulty) bool {
	return jsonLevelsContain(q.TestLevels, level)
}

// QuestionClone is an AI-generated paraphrase of exactly one original
// question. Clones are never derived from other clones.
type QuestionClone struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	QuestionID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"question_id"`
	Question     *Question      `gorm:"constraint:OnDelete:CASCADE;foreignKey:QuestionID;references:ID" json:"question,omitempty"`
	Text         string         `gorm:"column:text;not null" json:"text"`
	Context      string         `gorm:"column:context" json:"context"`
	QuestionType QuestionType   `gorm:"column:question_type;not null;index" json:"question_type"`
	Difficulty   Difficulty     `gorm:"column:difficulty;not null" json:"difficulty"`
	Payload      datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload"`
	CreatedAt    time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (QuestionClone) TableName() string { return "question_clone" }

func (c *QuestionClone) BeforeSave(tx *gorm.DB) error {
	if !c.QuestionType.Cloneable() {
		return fmt.Errorf("question type %q cannot be cloned", c.QuestionType)
	}
	_, err := DecodePayload(c.QuestionType, c.Payload)
	return err
}

// AttemptRecord is one student interaction with a question or one of its
// clones. Rows are append-only: later attempts supersede, never mutate.
type AttemptRecord struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	QuestionID      uuid.UUID      `gorm:"type:uuid;not null;index:idx_attempt_question_student" json:"question_id"`
	Question        *Question      `gorm:"constraint:OnDelete:CASCADE;foreignKey:QuestionID;references:ID" json:"question,omitempty"`
	QuestionCloneID *uuid.UUID     `gorm:"type:uuid;index" json:"question_clone_id,omitempty"`
	QuestionClone   *QuestionClone `gorm:"constraint:OnDelete:CASCADE;foreignKey:QuestionCloneID;references:ID" json:"question_clone,omitempty"`
	StudentID       uuid.UUID      `gorm:"type:uuid;not null;index:idx_attempt_question_student" json:"student_id"`
	StudentResponse datatypes.JSON `gorm:"column:student_response;type:jsonb" json:"student_response"`

	Points    float64 `gorm:"column:points;not null;default:0" json:"points"`
	MaxPoints float64 `gorm:"column:max_points;not null;default:1" json:"max_points"`

	IsCorrect        Outcome `gorm:"column:is_correct;not null;default:'unknown'" json:"is_correct"`
	AllowedToProceed Outcome `gorm:"column:allowed_to_proceed;not null;default:'unknown'" json:"allowed_to_proceed"`
	NonRelevant      Outcome `gorm:"column:non_relevant;not null;default:'unknown'" json:"non_relevant"`

	AIResponse     string     `gorm:"column:ai_response" json:"ai_response"`
	TeacherRemarks string     `gorm:"column:teacher_remarks" json:"teacher_remarks"`
	AnsweredAt     *time.Time `gorm:"column:answered_at" json:"answered_at,omitempty"`
	CreatedAt      time.Time  `gorm:"not null;default:now()" json:"created_at"`
}

func (AttemptRecord) TableName() string { return "attempt_record" }

// IsCloneAttempt reports whether the record targets a clone rather than the
// original question.
func (r *AttemptRecord) IsCloneAttempt() bool {
	return r.QuestionCloneID != nil && *r.QuestionCloneID != uuid.Nil
}

// SubjectLevel maps (student, subject, quarter) to at most one difficulty.
// Absence of a row means the student is unleveled, which is distinct from
// any explicit level.
type SubjectLevel struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	StudentID uuid.UUID  `gorm:"type:uuid;not null;index:idx_subject_level,unique" json:"student_id"`
	SubjectID uuid.UUID  `gorm:"type:uuid;not null;index:idx_subject_level,unique" json:"subject_id"`
	Subject   *Subject   `gorm:"constraint:OnDelete:CASCADE;foreignKey:SubjectID;references:ID" json:"subject,omitempty"`
	QuarterID uuid.UUID  `gorm:"type:uuid;not null;index:idx_subject_level,unique" json:"quarter_id"`
	Quarter   *Quarter   `gorm:"constraint:OnDelete:CASCADE;foreignKey:QuarterID;references:ID" json:"quarter,omitempty"`
	Level     Difficulty `gorm:"column:level;not null" json:"level"`
	CreatedAt time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (SubjectLevel) TableName() string { return "subject_level" }

// TrainingStatus is the rollup completion state shown to students.
type TrainingStatus string

const (
	StatusFinished     TrainingStatus = "finished"
	StatusInProgress   TrainingStatus = "in_progress"
	StatusNotAvailable TrainingStatus = "not_available"
)

type TopicTrainingStat struct {
	ID                 uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	StudentID          uuid.UUID  `gorm:"type:uuid;not null;index:idx_topic_stat,unique" json:"student_id"`
	TopicID            uuid.UUID  `gorm:"type:uuid;not null;index:idx_topic_stat,unique" json:"topic_id"`
	Topic              *Topic     `gorm:"constraint:OnDelete:CASCADE;foreignKey:TopicID;references:ID" json:"topic,omitempty"`
	Level              Difficulty `gorm:"column:level;not null;index:idx_topic_stat,unique" json:"level"`
	TestsCount         int        `gorm:"column:tests_count;not null;default:0" json:"tests_count"`
	FinishedTestsCount int        `gorm:"column:finished_tests_count;not null;default:0" json:"finished_tests_count"`
	CreatedAt          time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (TopicTrainingStat) TableName() string { return "topic_training_stat" }

type SectionTrainingStat struct {
	ID                  uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	StudentID           uuid.UUID `gorm:"type:uuid;not null;index:idx_section_stat,unique" json:"student_id"`
	SectionID           uuid.UUID `gorm:"type:uuid;not null;index:idx_section_stat,unique" json:"section_id"`
	Section             *Section  `gorm:"constraint:OnDelete:CASCADE;foreignKey:SectionID;references:ID" json:"section,omitempty"`
	TopicsCount         int       `gorm:"column:topics_count;not null;default:0" json:"topics_count"`
	FinishedTopicsCount int       `gorm:"column:finished_topics_count;not null;default:0" json:"finished_topics_count"`
	CreatedAt           time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt           time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (SectionTrainingStat) TableName() string { return "section_training_stat" }

// TestTrainingStat marks one finished test per student; its existence is
// the "finished" signal the topic rollup counts.
type TestTrainingStat struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	StudentID uuid.UUID `gorm:"type:uuid;not null;index:idx_test_stat,unique" json:"student_id"`
	TestID    uuid.UUID `gorm:"type:uuid;not null;index:idx_test_stat,unique" json:"test_id"`
	Test      *Test     `gorm:"constraint:OnDelete:CASCADE;foreignKey:TestID;references:ID" json:"test,omitempty"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (TestTrainingStat) TableName() string { return "test_training_stat" }

// JobRun is one background job row for the DB-backed queue.
type JobRun struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	JobType     string         `gorm:"column:job_type;not null;index" json:"job_type"`
	Payload     datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload"`
	Status      string         `gorm:"column:status;not null;default:'queued';index" json:"status"`
	Attempts    int            `gorm:"column:attempts;not null;default:0" json:"attempts"`
	LockedAt    *time.Time     `gorm:"column:locked_at" json:"locked_at,omitempty"`
	HeartbeatAt *time.Time     `gorm:"column:heartbeat_at" json:"heartbeat_at,omitempty"`
	LastError   string         `gorm:"column:last_error" json:"last_error"`
	LastErrorAt *time.Time     `gorm:"column:last_error_at" json:"last_error_at,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (JobRun) TableName() string { return "job_run" }

const (
	JobStatusQueued    = "queued"
	JobStatusRunning   = "running"
	JobStatusSucceeded = "succeeded"
	JobStatusFailed    = "failed"
)

func jsonLevelsContain(raw datatypes.JSON, level Difficulty) bool {
	if len(raw) == 0 {
		return false
	}
	var levels []Difficulty
	if err := json.Unmarshal(raw, &levels); err != nil {
		return false
	}
	for _, l := range levels {
		if l == level {
			return true
		}
	}
	return false
}
