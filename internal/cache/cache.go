package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Cache is the key-value collaborator the progression engine and rollups
// rely on. TTL zero means no expiry; the main flow depends on explicit
// invalidation, not expiry, for correctness.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// SetNX sets the key only if absent; used for short-lived per-student
	// locks around next-question selection.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
}

// Deterministic key builders. These shapes are a contract with the
// submission flow, which deletes the current-question key whenever an
// attempt record for the test is written or removed.

func CurrentQuestionKey(studentID, testID uuid.UUID) string {
	return fmt.Sprintf("student_%s_test_%s_current_question", studentID, testID)
}

func CurrentQuestionLockKey(studentID, testID uuid.UUID) string {
	return CurrentQuestionKey(studentID, testID) + "_lock"
}

func SectionTopicsKey(sectionID, studentID uuid.UUID) string {
	return fmt.Sprintf("topics_section_%s_student_%s", sectionID, studentID)
}

func SubjectSectionsKey(subjectID, studentID uuid.UUID) string {
	return fmt.Sprintf("sections_subject_%s_student_%s", subjectID, studentID)
}
