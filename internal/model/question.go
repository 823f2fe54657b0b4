package model

// QuestionType enumerates the supported question kinds.
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "multiple-choice"
	QuestionTypeTrueFalse      QuestionType = "true-false"
	QuestionTypeShortAnswer    QuestionType = "short-answer"
	QuestionTypeEssay          QuestionType = "essay"
)

// Option is a multiple-choice option. IsCorrect is only present for authors.
type Option struct {
	Text      string `json:"text"`
	IsCorrect *bool  `json:"isCorrect,omitempty"`
}

// QuestionView is a question as displayed to a student taking a test.
type QuestionView struct {
	ID      string       `json:"_id"`
	Title   string       `json:"title,omitempty"`
	Content string       `json:"content"`
	Type    QuestionType `json:"type"`
	Options []Option     `json:"options,omitempty"`
	Points  float64      `json:"points"`
}
