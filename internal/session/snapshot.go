package session

import (
	"time"

	"github.com/stemsi/edutest/internal/grading"
)

// SlotState is one cell of the question navigation grid.
type SlotState struct {
	Index      int     `json:"index"`
	QuestionID string  `json:"question_id"`
	Points     float64 `json:"points"`
	Answered   bool    `json:"answered"`
	Current    bool    `json:"current"`
}

// Snapshot is a read-only copy of the engine state for the UI.
type Snapshot struct {
	TestID       string              `json:"test_id"`
	Title        string              `json:"title"`
	Status       Status              `json:"status"`
	SubmissionID string              `json:"submission_id,omitempty"`
	CurrentIndex int                 `json:"current_index"`
	Total        int                 `json:"total"`
	Remaining    Remaining           `json:"remaining"`
	EndTime      *time.Time          `json:"end_time,omitempty"`
	Unanswered   int                 `json:"unanswered"`
	Slots        []SlotState         `json:"slots"`
	ShowResults  bool                `json:"show_results"`
	Result       *grading.ResultView `json:"result,omitempty"`
	Error        string              `json:"error,omitempty"`
}

// Snapshot captures the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	snap := Snapshot{
		TestID:       e.def.ID,
		Title:        e.def.Title,
		Status:       e.status,
		SubmissionID: e.submissionID,
		CurrentIndex: e.cursor,
		Total:        len(e.ids),
		Remaining:    e.remainingLocked(now),
		Unanswered:   e.answers.UnansweredCount(e.ids),
		Slots:        make([]SlotState, len(e.ids)),
		ShowResults:  e.def.Settings.ShowResults,
	}
	if !e.endTime.IsZero() {
		end := e.endTime
		snap.EndTime = &end
	}
	for i, id := range e.ids {
		snap.Slots[i] = SlotState{
			Index:      i,
			QuestionID: id,
			Points:     e.def.Questions[i].Points,
			Answered:   e.answers.Has(id),
			Current:    i == e.cursor,
		}
	}
	if e.result != nil {
		view := grading.Project(e.result, e.def.Settings)
		snap.Result = &view
	}
	if e.lastErr != nil {
		switch err := e.lastErr.(type) {
		case *StartError:
			snap.Error = err.Message
		case *SubmitError:
			snap.Error = err.Message
		default:
			snap.Error = err.Error()
		}
	}
	return snap
}
