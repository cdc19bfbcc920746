package services

import (
	"strings"
	"testing"

	"github.com/qazbilim/training-backend/internal/config"
	"github.com/qazbilim/training-backend/internal/locale"
)

func TestPickModel(t *testing.T) {
	models := config.ModelsConfig{Premium: "gpt-4o", Default: "gpt-4o-mini"}
	cases := []struct {
		subject string
		want    string
	}{
		{"Қазақ тілі", "gpt-4o"},
		{"Казахский язык", "gpt-4o"},
		{"История", "gpt-4o-mini"},
		{"Английский язык", "gpt-4o-mini"},
		{"Биология", "gpt-4o-mini"},
	}
	for _, tc := range cases {
		if got := pickModel(models, tc.subject); got != tc.want {
			t.Errorf("pickModel(%q) = %q, want %q", tc.subject, got, tc.want)
		}
	}
}

func TestEvaluateFunctionSchema(t *testing.T) {
	for _, lang := range []locale.Lang{locale.Kazakh, locale.Russian, locale.English} {
		fn := evaluateFunction(lang, "")
		if fn.Name != "evaluate_answer" {
			t.Fatalf("name = %q", fn.Name)
		}
		props, ok := fn.Parameters["properties"].(map[string]any)
		if !ok {
			t.Fatalf("%s: parameters carry no properties", lang)
		}
		for _, field := range []string{"points", "criteria_evaluation", "moderation_flag"} {
			if _, ok := props[field]; !ok {
				t.Errorf("%s: schema missing %q", lang, field)
			}
		}
		required, ok := fn.Parameters["required"].([]string)
		if !ok || len(required) != 3 {
			t.Errorf("%s: required = %v, want all three fields", lang, fn.Parameters["required"])
		}
	}
}

func TestEvaluateFunctionCriteriaChangesHint(t *testing.T) {
	hint := func(criteria string) string {
		fn := evaluateFunction(locale.Russian, criteria)
		props := fn.Parameters["properties"].(map[string]any)
		eval := props["criteria_evaluation"].(map[string]any)
		desc, _ := eval["description"].(string)
		return desc
	}
	with := hint("[completeness + 5][accuracy + 5]")
	without := hint("")
	if with == without {
		t.Error("rubric-driven and free evaluation share the same hint")
	}
	if !strings.Contains(without, "10") {
		t.Errorf("free evaluation hint does not state the 10-point scale: %q", without)
	}
}

func TestEvaluateMessagesEmbedCriteria(t *testing.T) {
	criteria := "[completeness + 5][accuracy + 5]"
	messages := evaluateMessages(locale.Russian, "История", "тема", "цель", `{}`, "ответ", criteria)
	if !strings.Contains(messages[0].Content, criteria) {
		t.Error("criteria missing from the system prompt")
	}
}

func TestEvaluateMessages(t *testing.T) {
	messages := evaluateMessages(locale.Russian, "История", "Великая степь", "понимать кочевую экономику",
		`{"text":"вопрос"}`, "ответ студента", "")
	if len(messages) != 2 {
		t.Fatalf("messages = %d, want system plus user", len(messages))
	}
	if messages[0].Role != "system" || messages[1].Role != "user" {
		t.Errorf("roles = %s/%s", messages[0].Role, messages[1].Role)
	}
	if !strings.Contains(messages[0].Content, "понимать кочевую экономику") {
		t.Error("course objective missing from the system prompt")
	}
	if !strings.Contains(messages[1].Content, "ответ студента") {
		t.Error("student response missing from the user prompt")
	}
}

func TestCloneMessagesCarryQuestion(t *testing.T) {
	messages := cloneMessages("История", "Великая степь", "medium", `{"text":"оригинал"}`)
	var sawOriginal bool
	for _, m := range messages {
		if strings.Contains(m.Content, "оригинал") {
			sawOriginal = true
		}
	}
	if !sawOriginal {
		t.Error("original question missing from the clone prompt")
	}
	if fn := cloneFunction(); fn.Name != "create_question_clone" {
		t.Errorf("function = %q", fn.Name)
	}
}
