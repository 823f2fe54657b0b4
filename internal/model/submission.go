package model

import "time"

// SubmitAnswer is one entry of the ordered submission payload.
type SubmitAnswer struct {
	QuestionID string `json:"question"`
	Answer     any    `json:"answer"`
	TimeSpent  int    `json:"timeSpent"`
}

// AnswerOutcome is the graded view of one submitted answer.
type AnswerOutcome struct {
	QuestionID      string  `json:"question"`
	SubmittedAnswer any     `json:"answer"`
	IsCorrect       bool    `json:"isCorrect"`
	PointsAwarded   float64 `json:"points"`
}

// SubmissionResult is produced once per successful submission and never mutated.
type SubmissionResult struct {
	Score            float64         `json:"score"`
	TotalPoints      float64         `json:"totalPoints"`
	TimeSpentSeconds int             `json:"timeSpent"`
	Answers          []AnswerOutcome `json:"answers,omitempty"`
}

// Percentage is derived from Score and TotalPoints; 0 when TotalPoints is 0.
func (r *SubmissionResult) Percentage() float64 {
	if r.TotalPoints == 0 {
		return 0
	}
	return 100 * r.Score / r.TotalPoints
}

// SubmissionStatus mirrors the server-side submission states.
type SubmissionStatus string

const (
	SubmissionStarted    SubmissionStatus = "started"
	SubmissionInProgress SubmissionStatus = "in-progress"
	SubmissionCompleted  SubmissionStatus = "completed"
	SubmissionAbandoned  SubmissionStatus = "abandoned"
)

// SubmissionStudent is the populated student reference on a stored submission.
type SubmissionStudent struct {
	ID        string `json:"_id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// StoredSubmission is one past attempt as returned by the results endpoint.
type StoredSubmission struct {
	ID        string            `json:"_id"`
	Student   SubmissionStudent `json:"student"`
	Answers   []AnswerOutcome   `json:"answers"`
	StartTime time.Time         `json:"startTime"`
	EndTime   *time.Time        `json:"endTime,omitempty"`
	TimeSpent int               `json:"timeSpent"`
	Score     float64           `json:"score"`
	Status    SubmissionStatus  `json:"status"`
	Attempt   int               `json:"attempt"`
}

// TestResults is the payload of GET /tests/:id/results.
type TestResults struct {
	Test struct {
		ID          string  `json:"id"`
		Title       string  `json:"title"`
		TotalPoints float64 `json:"totalPoints"`
	} `json:"test"`
	Results []StoredSubmission `json:"results"`
}
