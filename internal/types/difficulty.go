package types

import "fmt"

// Difficulty is the ordered level ladder a student climbs within a subject.
type Difficulty string

const (
	DifficultyBase     Difficulty = "base"
	DifficultyMedium   Difficulty = "medium"
	DifficultyAdvanced Difficulty = "advanced"
	DifficultyCLevel   Difficulty = "c_level"
)

// difficultyOrder is the canonical ladder, lowest first.
var difficultyOrder = []Difficulty{DifficultyBase, DifficultyMedium, DifficultyAdvanced, DifficultyCLevel}

func AllDifficulties() []Difficulty {
	out := make([]Difficulty, len(difficultyOrder))
	copy(out, difficultyOrder)
	return out
}

func ParseDifficulty(s string) (Difficulty, error) {
	for _, d := range difficultyOrder {
		if string(d) == s {
			return d, nil
		}
	}
	return "", fmt.Errorf("invalid difficulty level: %q", s)
}

func (d Difficulty) Valid() bool {
	for _, known := range difficultyOrder {
		if d == known {
			return true
		}
	}
	return false
}

func (d Difficulty) index() int {
	for i, known := range difficultyOrder {
		if d == known {
			return i
		}
	}
	return -1
}

// LevelsFrom returns the inclusive upward range {d, ..., c_level}. A question
// of difficulty d is eligible for every test level in that range.
func LevelsFrom(d Difficulty) ([]Difficulty, error) {
	i := d.index()
	if i < 0 {
		return nil, fmt.Errorf("invalid difficulty level: %q", d)
	}
	out := make([]Difficulty, len(difficultyOrder)-i)
	copy(out, difficultyOrder[i:])
	return out, nil
}
