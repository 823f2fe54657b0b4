package grading

import (
	"time"

	"github.com/stemsi/edutest/internal/model"
)

// AttemptView is one past submission as shown in the attempts list.
type AttemptView struct {
	SubmissionID string    `json:"submission_id"`
	StudentID    string    `json:"student_id"`
	StudentName  string    `json:"student_name"`
	Attempt      int       `json:"attempt"`
	FinishedAt   time.Time `json:"finished_at"`
	ResultView
}

// History projects stored submissions. When onlyStudentID is non-empty the
// list is restricted to that student's own attempts; order is preserved.
func History(res *model.TestResults, settings model.TestSettings, onlyStudentID string) []AttemptView {
	out := make([]AttemptView, 0, len(res.Results))
	for _, sub := range res.Results {
		if onlyStudentID != "" && sub.Student.ID != onlyStudentID {
			continue
		}
		finished := sub.StartTime
		if sub.EndTime != nil {
			finished = *sub.EndTime
		}
		result := &model.SubmissionResult{
			Score:            sub.Score,
			TotalPoints:      res.Test.TotalPoints,
			TimeSpentSeconds: sub.TimeSpent,
			Answers:          sub.Answers,
		}
		out = append(out, AttemptView{
			SubmissionID: sub.ID,
			StudentID:    sub.Student.ID,
			StudentName:  sub.Student.FirstName + " " + sub.Student.LastName,
			Attempt:      sub.Attempt,
			FinishedAt:   finished,
			ResultView:   Project(result, settings),
		})
	}
	return out
}
