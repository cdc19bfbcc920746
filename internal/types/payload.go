package types

import (
	"encoding/json"
	"fmt"
)

// QuestionType is the closed set of supported question kinds. The concrete
// payload shape of a question must match its type tag.
type QuestionType string

const (
	QTSingleChoice     QuestionType = "single_choice"
	QTMultipleChoice   QuestionType = "multiple_choice"
	QTOpen             QuestionType = "open"
	QTMatching         QuestionType = "matching"
	QTValueForKeys     QuestionType = "value_for_keys"
	QTEssay            QuestionType = "essay"
	QTSentenceCreation QuestionType = "sentence_creation"
	QTBlank            QuestionType = "blank"
	QTTextAnalysis     QuestionType = "text_analysis"
	QTOrder            QuestionType = "order"
	QTDialog           QuestionType = "dialog"
	QTAudio            QuestionType = "audio"
	QTVideo            QuestionType = "video"
)

// ResponseShape classifies the wire shape of a student response.
type ResponseShape int

const (
	ShapeString ResponseShape = iota
	ShapeList
	ShapeMapping
)

// ResponseShape returns the student-response shape for the question type.
// Unknown types are rejected rather than defaulted.
func (qt QuestionType) ResponseShape() (ResponseShape, error) {
	switch qt {
	case QTSingleChoice, QTOpen, QTEssay, QTSentenceCreation, QTTextAnalysis, QTDialog, QTAudio, QTVideo:
		return ShapeString, nil
	case QTMultipleChoice, QTBlank, QTOrder:
		return ShapeList, nil
	case QTMatching, QTValueForKeys:
		return ShapeMapping, nil
	default:
		return 0, fmt.Errorf("invalid question type: %q", qt)
	}
}

// Cloneable reports whether AI paraphrase clones may be generated for the
// type. Media-backed questions cannot be rephrased into a valid variant.
func (qt QuestionType) Cloneable() bool {
	switch qt {
	case QTAudio, QTVideo:
		return false
	default:
		_, err := qt.ResponseShape()
		return err == nil
	}
}

// EmptyResponse returns the empty response skeleton matching the type:
// "" for string shapes, [] for list shapes, {} for mapping shapes.
func EmptyResponse(qt QuestionType) (json.RawMessage, error) {
	shape, err := qt.ResponseShape()
	if err != nil {
		return nil, err
	}
	switch shape {
	case ShapeString:
		return json.RawMessage(`""`), nil
	case ShapeList:
		return json.RawMessage(`[]`), nil
	default:
		return json.RawMessage(`{}`), nil
	}
}

// ValidateResponse checks that a raw student response has the wire shape
// the question type demands.
func ValidateResponse(qt QuestionType, raw json.RawMessage) error {
	shape, err := qt.ResponseShape()
	if err != nil {
		return err
	}
	switch shape {
	case ShapeString:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return fmt.Errorf("response for %q must be a string", qt)
		}
	case ShapeList:
		var l []json.RawMessage
		if err := json.Unmarshal(raw, &l); err != nil {
			return fmt.Errorf("response for %q must be a list", qt)
		}
	case ShapeMapping:
		var m map[string]json.RawMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			return fmt.Errorf("response for %q must be a mapping", qt)
		}
	}
	return nil
}

// ResponseIsEmpty reports whether a stored response is the empty skeleton
// (or absent entirely).
func ResponseIsEmpty(raw json.RawMessage) bool {
	switch string(raw) {
	case "", "null", `""`, "[]", "{}":
		return true
	}
	return false
}

// Payload is the tagged-union interface over the closed set of question
// payload variants.
type Payload interface {
	QuestionType() QuestionType
	Validate() error
}

type SingleChoicePayload struct {
	Options       []string `json:"options"`
	CorrectOption string   `json:"correct_option"`
}

func (SingleChoicePayload) QuestionType() QuestionType { return QTSingleChoice }

func (p SingleChoicePayload) Validate() error {
	if len(p.Options) < 2 {
		return fmt.Errorf("single_choice payload needs at least 2 options")
	}
	if !containsString(p.Options, p.CorrectOption) {
		return fmt.Errorf("single_choice correct_option must be one of the options")
	}
	return nil
}

type MultipleChoicePayload struct {
	Options        []string `json:"options"`
	CorrectOptions []string `json:"correct_options"`
}

func (MultipleChoicePayload) QuestionType() QuestionType { return QTMultipleChoice }

func (p MultipleChoicePayload) Validate() error {
	if len(p.Options) < 2 {
		return fmt.Errorf("multiple_choice payload needs at least 2 options")
	}
	if len(p.CorrectOptions) == 0 {
		return fmt.Errorf("multiple_choice payload needs at least 1 correct option")
	}
	for _, c := range p.CorrectOptions {
		if !containsString(p.Options, c) {
			return fmt.Errorf("multiple_choice correct option %q is not among the options", c)
		}
	}
	return nil
}

type OpenPayload struct {
	Answer string `json:"answer"`
	// Criteria is the teacher-supplied rubric ([criterion + max points ...])
	// used verbatim by the grading pipeline.
	Criteria string `json:"criteria"`
}

func (OpenPayload) QuestionType() QuestionType { return QTOpen }

func (p OpenPayload) Validate() error { return nil }

type MatchingPayload struct {
	LeftItems    []string          `json:"left_items"`
	RightItems   []string          `json:"right_items"`
	CorrectPairs map[string]string `json:"correct_pairs"`
}

func (MatchingPayload) QuestionType() QuestionType { return QTMatching }

func (p MatchingPayload) Validate() error {
	if len(p.LeftItems) == 0 || len(p.RightItems) == 0 {
		return fmt.Errorf("matching payload needs items on both sides")
	}
	if len(p.CorrectPairs) == 0 {
		return fmt.Errorf("matching payload needs correct pairs")
	}
	return nil
}

type ValueForKeysPayload struct {
	Keys           []string          `json:"keys"`
	Values         []string          `json:"values"`
	CorrectMapping map[string]string `json:"correct_mapping"`
}

func (ValueForKeysPayload) QuestionType() QuestionType { return QTValueForKeys }

func (p ValueForKeysPayload) Validate() error {
	if len(p.Keys) == 0 {
		return fmt.Errorf("value_for_keys payload needs keys")
	}
	if len(p.CorrectMapping) == 0 {
		return fmt.Errorf("value_for_keys payload needs a correct mapping")
	}
	return nil
}

type EssayPayload struct {
	Criteria string `json:"criteria"`
}

func (EssayPayload) QuestionType() QuestionType { return QTEssay }

func (p EssayPayload) Validate() error { return nil }

type SentenceCreationPayload struct {
	Words           []string `json:"words"`
	CorrectSentence string   `json:"correct_sentence"`
}

func (SentenceCreationPayload) QuestionType() QuestionType { return QTSentenceCreation }

func (p SentenceCreationPayload) Validate() error {
	if len(p.Words) == 0 {
		return fmt.Errorf("sentence_creation payload needs words")
	}
	return nil
}

type BlankPayload struct {
	TextWithBlanks string   `json:"text_with_blanks"`
	CorrectAnswers []string `json:"correct_answers"`
}

func (BlankPayload) QuestionType() QuestionType { return QTBlank }

func (p BlankPayload) Validate() error {
	if p.TextWithBlanks == "" {
		return fmt.Errorf("blank payload needs text with blanks")
	}
	if len(p.CorrectAnswers) == 0 {
		return fmt.Errorf("blank payload needs correct answers")
	}
	return nil
}

type TextAnalysisPayload struct {
	SourceText string `json:"source_text"`
	Criteria   string `json:"criteria"`
}

func (TextAnalysisPayload) QuestionType() QuestionType { return QTTextAnalysis }

func (p TextAnalysisPayload) Validate() error {
	if p.SourceText == "" {
		return fmt.Errorf("text_analysis payload needs a source text")
	}
	return nil
}

type OrderPayload struct {
	Items        []string `json:"items"`
	CorrectOrder []string `json:"correct_order"`
}

func (OrderPayload) QuestionType() QuestionType { return QTOrder }

func (p OrderPayload) Validate() error {
	if len(p.Items) < 2 {
		return fmt.Errorf("order payload needs at least 2 items")
	}
	if len(p.CorrectOrder) != len(p.Items) {
		return fmt.Errorf("order payload correct_order must permute the items")
	}
	return nil
}

type DialogPayload struct {
	Replicas []string `json:"replicas"`
	Scenario string   `json:"scenario"`
}

func (DialogPayload) QuestionType() QuestionType { return QTDialog }

func (p DialogPayload) Validate() error {
	if p.Scenario == "" && len(p.Replicas) == 0 {
		return fmt.Errorf("dialog payload needs a scenario or replicas")
	}
	return nil
}

type AudioPayload struct {
	AudioURL   string `json:"audio_url"`
	Transcript string `json:"transcript"`
}

func (AudioPayload) QuestionType() QuestionType { return QTAudio }

func (p AudioPayload) Validate() error {
	if p.AudioURL == "" {
		return fmt.Errorf("audio payload needs an audio url")
	}
	return nil
}

type VideoPayload struct {
	VideoURL string `json:"video_url"`
}

func (VideoPayload) QuestionType() QuestionType { return QTVideo }

func (p VideoPayload) Validate() error {
	if p.VideoURL == "" {
		return fmt.Errorf("video payload needs a video url")
	}
	return nil
}

// DecodePayload decodes and validates raw payload JSON against the variant
// the type tag names. The switch is exhaustive over the closed set; an
// unrecognized tag is an error, not a fallthrough.
func DecodePayload(qt QuestionType, raw []byte) (Payload, error) {
	var p Payload
	switch qt {
	case QTSingleChoice:
		p = &SingleChoicePayload{}
	case QTMultipleChoice:
		p = &MultipleChoicePayload{}
	case QTOpen:
		p = &OpenPayload{}
	case QTMatching:
		p = &MatchingPayload{}
	case QTValueForKeys:
		p = &ValueForKeysPayload{}
	case QTEssay:
		p = &EssayPayload{}
	case QTSentenceCreation:
		p = &SentenceCreationPayload{}
	case QTBlank:
		p = &BlankPayload{}
	case QTTextAnalysis:
		p = &TextAnalysisPayload{}
	case QTOrder:
		p = &OrderPayload{}
	case QTDialog:
		p = &DialogPayload{}
	case QTAudio:
		p = &AudioPayload{}
	case QTVideo:
		p = &VideoPayload{}
	default:
		return nil, fmt.Errorf("invalid question type: %q", qt)
	}
	if err := json.Unmarshal(raw, p); err != nil {
		return nil, fmt.Errorf("payload for %q: %w", qt, err)
	}
	if err := derefValidate(p); err != nil {
		return nil, err
	}
	return p, nil
}

func derefValidate(p Payload) error { return p.Validate() }

// CriteriaOf extracts the teacher rubric from payload variants that carry
// one. Only meaningful for open-type questions in the grading pipeline.
func CriteriaOf(p Payload) string {
	switch v := p.(type) {
	case *OpenPayload:
		return v.Criteria
	case *EssayPayload:
		return v.Criteria
	case *TextAnalysisPayload:
		return v.Criteria
	default:
		return ""
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
