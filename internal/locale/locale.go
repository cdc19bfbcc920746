package locale

import "strings"

// Lang is the student-facing locale of a subject.
type Lang string

const (
	Kazakh  Lang = "kaz"
	Russian Lang = "rus"
	English Lang = "eng"
)

// DetectBySubject senses the teaching language from the subject name.
// Kazakh markers win over everything else, then English, then Russian
// as the platform default.
func DetectBySubject(subjectName string) Lang {
	name := strings.ToLower(subjectName)
	switch {
	case strings.Contains(name, "казах") || strings.Contains(name, "қазақ"):
		return Kazakh
	case strings.Contains(name, "англ") || strings.Contains(name, "eng") || strings.Contains(name, "ағылшын"):
		return English
	default:
		return Russian
	}
}

// Message keys for user-facing failures.
const (
	MsgQuestionNotFound    = "question_not_found"
	MsgTestNotFound        = "test_not_found"
	MsgTopicNotFound       = "topic_not_found"
	MsgSectionNotFound     = "section_not_found"
	MsgGoalNotFound        = "goal_not_found"
	MsgLevelNotFound       = "level_not_found"
	MsgNoCurrentQuarter    = "no_current_quarter"
	MsgNoQuestions         = "no_questions"
	MsgResponseTooLong     = "response_too_long"
	MsgGenerationFailed    = "generation_failed"
	MsgServerFault         = "server_fault"
	MsgInvalidQuestionType = "invalid_question_type"
)

var messages = map[string]map[Lang]string{
	MsgQuestionNotFound: {
		Kazakh:  "Сұрақ табылмады",
		Russian: "Вопрос не найден",
		English: "Question not found",
	},
	MsgTestNotFound: {
		Kazakh:  "Тест табылмады",
		Russian: "Тест не найден",
		English: "Test not found",
	},
	MsgTopicNotFound: {
		Kazakh:  "Тақырып табылмады",
		Russian: "Тема не найдена",
		English: "Topic not found",
	},
	MsgSectionNotFound: {
		Kazakh:  "Бөлім табылмады",
		Russian: "Раздел не найден",
		English: "Section not found",
	},
	MsgGoalNotFound: {
		Kazakh:  "Пән, тақырып немесе мақсат табылмады",
		Russian: "Предмет, тема или цель не найдены",
		English: "Subject, topic or goal not found",
	},
	MsgLevelNotFound: {
		Kazakh:  "Оқушының пән мен тоқсанға деңгейі табылмады",
		Russian: "Уровень ученика на предмет и четверть не найден",
		English: "Student level for this subject and quarter not found",
	},
	MsgNoCurrentQuarter: {
		Kazakh:  "Ағымдағы тоқсан жоқ немесе каникул",
		Russian: "Нет текущей четверти или каникулы",
		English: "No current quarter or vacation time",
	},
	MsgNoQuestions: {
		Kazakh:  "Бұл тестке сұрақтар жоқ",
		Russian: "Нет вопросов для этого теста",
		English: "No questions for this test",
	},
	MsgResponseTooLong: {
		Kazakh:  "Сіздің жауабыңыз тым ұзын",
		Russian: "Ваш ответ слишком длинный",
		English: "Your answer is too long",
	},
	MsgGenerationFailed: {
		Kazakh:  "Сұрақты генерациялау мүмкін болмады",
		Russian: "Не удалось сгенерировать вопрос",
		English: "Failed to generate a question",
	},
	MsgServerFault: {
		Kazakh:  "Сервер қатесі",
		Russian: "Ошибка сервера",
		English: "Server error",
	},
	MsgInvalidQuestionType: {
		Kazakh:  "Сұрақ түрі қате",
		Russian: "Неверный тип вопроса",
		English: "Invalid question type",
	},
}

// Message returns the localized user-facing text for key, falling back to
// Russian, then to the key itself for unknown keys.
func Message(lang Lang, key string) string {
	byLang, ok := messages[key]
	if !ok {
		return key
	}
	if msg, ok := byLang[lang]; ok {
		return msg
	}
	return byLang[Russian]
}
