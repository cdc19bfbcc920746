package types

import (
	"reflect"
	"testing"
)

func TestLevelsFrom_WidensUpward(t *testing.T) {
	cases := []struct {
		name string
		in   Difficulty
		want []Difficulty
	}{
		{"base covers everything", DifficultyBase, []Difficulty{DifficultyBase, DifficultyMedium, DifficultyAdvanced, DifficultyCLevel}},
		{"medium widens up", DifficultyMedium, []Difficulty{DifficultyMedium, DifficultyAdvanced, DifficultyCLevel}},
		{"advanced widens up", DifficultyAdvanced, []Difficulty{DifficultyAdvanced, DifficultyCLevel}},
		{"c_level is terminal", DifficultyCLevel, []Difficulty{DifficultyCLevel}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := LevelsFrom(tc.in)
			if err != nil {
				t.Fatalf("LevelsFrom(%q): %v", tc.in, err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("LevelsFrom(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestLevelsFrom_RejectsUnknown(t *testing.T) {
	if _, err := LevelsFrom(Difficulty("expert")); err == nil {
		t.Fatal("expected error for unknown difficulty")
	}
}

func TestParseDifficulty(t *testing.T) {
	for _, d := range AllDifficulties() {
		got, err := ParseDifficulty(string(d))
		if err != nil {
			t.Fatalf("ParseDifficulty(%q): %v", d, err)
		}
		if got != d {
			t.Fatalf("ParseDifficulty(%q) = %q", d, got)
		}
	}
	if _, err := ParseDifficulty(""); err == nil {
		t.Fatal("expected error for empty difficulty")
	}
	if _, err := ParseDifficulty("Base"); err == nil {
		t.Fatal("expected error for wrong case")
	}
}
