package session

import (
	"time"

	"github.com/stemsi/edutest/internal/grading"
)

// lowTimeThreshold is when the countdown is shown as urgent.
const lowTimeThreshold = 5 * time.Minute

// Remaining is the countdown shown to the student.
type Remaining struct {
	Minutes int  `json:"minutes"`
	Seconds int  `json:"seconds"`
	Expired bool `json:"expired"`
	Low     bool `json:"low"`
}

// Clock renders MM:SS.
func (r Remaining) Clock() string {
	return grading.Duration{Minutes: r.Minutes, Seconds: r.Seconds}.Clock()
}

func remaining(end, now time.Time) Remaining {
	d := end.Sub(now)
	if d <= 0 {
		return Remaining{Expired: true, Low: true}
	}
	split := grading.SplitDuration(int(d / time.Second))
	return Remaining{
		Minutes: split.Minutes,
		Seconds: split.Seconds,
		Low:     d < lowTimeThreshold,
	}
}

// remainingLocked reports the countdown for any status. Before start it is the full limit.
func (e *Engine) remainingLocked(now time.Time) Remaining {
	switch e.status {
	case StatusNotStarted:
		full := time.Duration(e.def.TimeLimitMinutes) * time.Minute
		return remaining(now.Add(full), now)
	case StatusInProgress:
		return remaining(e.endTime, now)
	default:
		if e.endTime.IsZero() {
			return Remaining{Expired: true, Low: true}
		}
		return remaining(e.endTime, now)
	}
}
