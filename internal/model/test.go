package model

import (
	"bytes"
	"encoding/json"
	"time"
)

// TestSettings toggles per-test behaviour configured by the author.
type TestSettings struct {
	ShuffleQuestions bool `json:"shuffleQuestions"`
	ShuffleOptions   bool `json:"shuffleOptions"`
	ShowResults      bool `json:"showResults"`
	AllowReview      bool `json:"allowReview"`
	RequirePassword  bool `json:"requirePassword"`
}

// TestQuestionSlot is a test's reference to a question plus its point value and display order.
type TestQuestionSlot struct {
	Question SlotQuestion `json:"question"`
	Points   float64      `json:"points"`
	Order    int          `json:"order"`
}

// QuestionID returns the id of the slot's question regardless of whether it was populated.
func (s TestQuestionSlot) QuestionID() string {
	return s.Question.ID()
}

// SlotQuestion holds either a populated QuestionView or a bare question id,
// matching the two shapes the API returns for test.questions[].question.
type SlotQuestion struct {
	RefID string
	View  *QuestionView
}

// ID returns the referenced question id.
func (q SlotQuestion) ID() string {
	if q.View != nil {
		return q.View.ID
	}
	return q.RefID
}

// UnmarshalJSON accepts a JSON string or a question object.
func (q *SlotQuestion) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		q.View = nil
		return json.Unmarshal(data, &q.RefID)
	}
	var view QuestionView
	if err := json.Unmarshal(data, &view); err != nil {
		return err
	}
	q.View = &view
	q.RefID = view.ID
	return nil
}

// MarshalJSON writes the populated view when present, the bare id otherwise.
func (q SlotQuestion) MarshalJSON() ([]byte, error) {
	if q.View != nil {
		return json.Marshal(q.View)
	}
	return json.Marshal(q.RefID)
}

// TestDefinition is the read-only test document fetched from the Test Service.
type TestDefinition struct {
	ID               string             `json:"_id"`
	Title            string             `json:"title"`
	Description      string             `json:"description,omitempty"`
	Subject          string             `json:"subject"`
	Grade            string             `json:"grade"`
	Questions        []TestQuestionSlot `json:"questions"`
	TotalPoints      float64            `json:"totalPoints"`
	TimeLimitMinutes int                `json:"timeLimit"`
	MaxAttempts      int                `json:"attempts"`
	StartDate        *time.Time         `json:"startDate,omitempty"`
	EndDate          *time.Time         `json:"endDate,omitempty"`
	Settings         TestSettings       `json:"settings"`
}

// ActiveAt reports whether t falls within [StartDate, EndDate]. Unset bounds are open.
func (d *TestDefinition) ActiveAt(t time.Time) bool {
	if d.StartDate != nil && t.Before(*d.StartDate) {
		return false
	}
	if d.EndDate != nil && t.After(*d.EndDate) {
		return false
	}
	return true
}

// QuestionIDs returns the slot question ids in slot order.
func (d *TestDefinition) QuestionIDs() []string {
	ids := make([]string, len(d.Questions))
	for i, slot := range d.Questions {
		ids[i] = slot.QuestionID()
	}
	return ids
}

// StartedAttempt is the Test Service's answer to a successful start.
type StartedAttempt struct {
	SubmissionID     string    `json:"id"`
	StartTime        time.Time `json:"startTime"`
	TimeLimitMinutes int       `json:"timeLimit"`
}
