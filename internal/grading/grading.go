// Package grading projects a raw submission score into the views shown to students.
package grading

import (
	"fmt"

	"github.com/stemsi/edutest/internal/model"
)

// Grade is a letter grade.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// Band classifies a percentage for presentation. It shares LetterGrade's boundaries.
type Band string

const (
	BandExcellent Band = "excellent"
	BandGood      Band = "good"
	BandFair      Band = "fair"
	BandPass      Band = "pass"
	BandFail      Band = "fail"
)

// Color is the display colour the web UI uses for the band.
func (b Band) Color() string {
	switch b {
	case BandExcellent:
		return "green"
	case BandGood:
		return "blue"
	case BandFair:
		return "yellow"
	case BandPass:
		return "orange"
	default:
		return "red"
	}
}

// Percentage returns 100*score/total, or 0 when total is 0.
func Percentage(score, total float64) float64 {
	if total == 0 {
		return 0
	}
	return 100 * score / total
}

// bucket maps a percentage to 0..4, lower bounds inclusive.
func bucket(pct float64) int {
	switch {
	case pct >= 90:
		return 0
	case pct >= 80:
		return 1
	case pct >= 70:
		return 2
	case pct >= 60:
		return 3
	default:
		return 4
	}
}

var (
	grades = [...]Grade{GradeA, GradeB, GradeC, GradeD, GradeF}
	bands  = [...]Band{BandExcellent, BandGood, BandFair, BandPass, BandFail}
)

// LetterGrade maps ≥90→A, ≥80→B, ≥70→C, ≥60→D, else F.
func LetterGrade(pct float64) Grade {
	return grades[bucket(pct)]
}

// ScoreBand maps a percentage onto the five presentation bands.
func ScoreBand(pct float64) Band {
	return bands[bucket(pct)]
}

// Duration is a whole-minute/second split of a number of seconds.
type Duration struct {
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// SplitDuration truncates seconds into whole minutes and the remaining seconds.
// Negative input is treated as zero.
func SplitDuration(seconds int) Duration {
	if seconds < 0 {
		seconds = 0
	}
	return Duration{Minutes: seconds / 60, Seconds: seconds % 60}
}

func (d Duration) String() string {
	return fmt.Sprintf("%dm %ds", d.Minutes, d.Seconds)
}

// Clock renders the duration as MM:SS.
func (d Duration) Clock() string {
	return fmt.Sprintf("%02d:%02d", d.Minutes, d.Seconds)
}

// ResultView is the projected, display-ready form of a submission result.
type ResultView struct {
	Score       float64               `json:"score"`
	TotalPoints float64               `json:"total_points"`
	Percentage  float64               `json:"percentage"`
	Grade       Grade                 `json:"grade"`
	Band        Band                  `json:"band"`
	Color       string                `json:"color"`
	TimeSpent   Duration              `json:"time_spent"`
	Outcomes    []model.AnswerOutcome `json:"outcomes,omitempty"`
}

// Project builds the ResultView. Per-question outcomes are only carried
// when the test's settings allow showing results.
func Project(r *model.SubmissionResult, settings model.TestSettings) ResultView {
	pct := r.Percentage()
	view := ResultView{
		Score:       r.Score,
		TotalPoints: r.TotalPoints,
		Percentage:  pct,
		Grade:       LetterGrade(pct),
		Band:        ScoreBand(pct),
		TimeSpent:   SplitDuration(r.TimeSpentSeconds),
	}
	view.Color = view.Band.Color()
	if settings.ShowResults && len(r.Answers) > 0 {
		view.Outcomes = append([]model.AnswerOutcome(nil), r.Answers...)
	}
	return view
}
