package types

import (
	"encoding/json"
	"testing"
)

func TestResponseShape(t *testing.T) {
	cases := []struct {
		qt   QuestionType
		want ResponseShape
	}{
		{QTSingleChoice, ShapeString},
		{QTOpen, ShapeString},
		{QTEssay, ShapeString},
		{QTSentenceCreation, ShapeString},
		{QTTextAnalysis, ShapeString},
		{QTDialog, ShapeString},
		{QTAudio, ShapeString},
		{QTVideo, ShapeString},
		{QTMultipleChoice, ShapeList},
		{QTBlank, ShapeList},
		{QTOrder, ShapeList},
		{QTMatching, ShapeMapping},
		{QTValueForKeys, ShapeMapping},
	}
	for _, tc := range cases {
		got, err := tc.qt.ResponseShape()
		if err != nil {
			t.Fatalf("ResponseShape(%q): %v", tc.qt, err)
		}
		if got != tc.want {
			t.Fatalf("ResponseShape(%q) = %v, want %v", tc.qt, got, tc.want)
		}
	}
}

func TestResponseShape_RejectsUnknownType(t *testing.T) {
	if _, err := QuestionType("crossword").ResponseShape(); err == nil {
		t.Fatal("expected error for unknown question type")
	}
}

func TestCloneable_MediaTypesExcluded(t *testing.T) {
	if QTAudio.Cloneable() {
		t.Fatal("audio must not be cloneable")
	}
	if QTVideo.Cloneable() {
		t.Fatal("video must not be cloneable")
	}
	if !QTSingleChoice.Cloneable() || !QTOpen.Cloneable() || !QTMatching.Cloneable() {
		t.Fatal("text-backed types must be cloneable")
	}
	if QuestionType("crossword").Cloneable() {
		t.Fatal("unknown type must not be cloneable")
	}
}

func TestEmptyResponse_SkeletonMatchesShape(t *testing.T) {
	cases := []struct {
		qt   QuestionType
		want string
	}{
		{QTOpen, `""`},
		{QTOrder, `[]`},
		{QTMatching, `{}`},
	}
	for _, tc := range cases {
		got, err := EmptyResponse(tc.qt)
		if err != nil {
			t.Fatalf("EmptyResponse(%q): %v", tc.qt, err)
		}
		if string(got) != tc.want {
			t.Fatalf("EmptyResponse(%q) = %s, want %s", tc.qt, got, tc.want)
		}
	}
	if _, err := EmptyResponse(QuestionType("crossword")); err == nil {
		t.Fatal("expected error for unknown question type")
	}
}

func TestValidateResponse(t *testing.T) {
	cases := []struct {
		name    string
		qt      QuestionType
		raw     string
		wantErr bool
	}{
		{"string for open", QTOpen, `"answer"`, false},
		{"list for order", QTOrder, `["a","b"]`, false},
		{"mapping for matching", QTMatching, `{"a":"b"}`, false},
		{"list rejected for open", QTOpen, `["a"]`, true},
		{"string rejected for order", QTOrder, `"a"`, true},
		{"list rejected for matching", QTMatching, `["a"]`, true},
		{"unknown type rejected", QuestionType("crossword"), `"a"`, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateResponse(tc.qt, json.RawMessage(tc.raw))
			if tc.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestResponseIsEmpty(t *testing.T) {
	for _, raw := range []string{"", "null", `""`, "[]", "{}"} {
		if !ResponseIsEmpty(json.RawMessage(raw)) {
			t.Fatalf("expected %q to be empty", raw)
		}
	}
	for _, raw := range []string{`"x"`, `["a"]`, `{"a":"b"}`} {
		if ResponseIsEmpty(json.RawMessage(raw)) {
			t.Fatalf("expected %q to be non-empty", raw)
		}
	}
}

func TestDecodePayload(t *testing.T) {
	cases := []struct {
		name    string
		qt      QuestionType
		raw     string
		wantErr bool
	}{
		{
			"valid single_choice",
			QTSingleChoice,
			`{"options":["a","b","c"],"correct_option":"b"}`,
			false,
		},
		{
			"single_choice answer outside options",
			QTSingleChoice,
			`{"options":["a","b"],"correct_option":"z"}`,
			true,
		},
		{
			"single_choice too few options",
			QTSingleChoice,
			`{"options":["a"],"correct_option":"a"}`,
			true,
		},
		{
			"valid multiple_choice",
			QTMultipleChoice,
			`{"options":["a","b","c"],"correct_options":["a","c"]}`,
			false,
		},
		{
			"multiple_choice stray correct option",
			QTMultipleChoice,
			`{"options":["a","b"],"correct_options":["z"]}`,
			true,
		},
		{
			"valid matching",
			QTMatching,
			`{"left_items":["a"],"right_items":["1"],"correct_pairs":{"a":"1"}}`,
			false,
		},
		{
			"matching without pairs",
			QTMatching,
			`{"left_items":["a"],"right_items":["1"],"correct_pairs":{}}`,
			true,
		},
		{
			"valid order",
			QTOrder,
			`{"items":["a","b"],"correct_order":["b","a"]}`,
			false,
		},
		{
			"order not a permutation",
			QTOrder,
			`{"items":["a","b"],"correct_order":["b"]}`,
			true,
		},
		{
			"valid blank",
			QTBlank,
			`{"text_with_blanks":"a _ c","correct_answers":["b"]}`,
			false,
		},
		{
			"valid open with criteria",
			QTOpen,
			`{"answer":"x","criteria":"[completeness + 5]"}`,
			false,
		},
		{
			"unknown type tag",
			QuestionType("crossword"),
			`{}`,
			true,
		},
		{
			"malformed json",
			QTOpen,
			`{"answer":`,
			true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := DecodePayload(tc.qt, []byte(tc.raw))
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.QuestionType() != tc.qt {
				t.Fatalf("decoded payload reports type %q, want %q", p.QuestionType(), tc.qt)
			}
		})
	}
}

func TestCriteriaOf(t *testing.T) {
	p, err := DecodePayload(QTOpen, []byte(`{"answer":"x","criteria":"[depth + 3]"}`))
	if err != nil {
		t.Fatal(err)
	}
	if got := CriteriaOf(p); got != "[depth + 3]" {
		t.Fatalf("CriteriaOf = %q", got)
	}
	sc, err := DecodePayload(QTSingleChoice, []byte(`{"options":["a","b"],"correct_option":"a"}`))
	if err != nil {
		t.Fatal(err)
	}
	if got := CriteriaOf(sc); got != "" {
		t.Fatalf("expected empty criteria for single_choice, got %q", got)
	}
}
