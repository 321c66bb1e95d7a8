package stats

import (
	"github.com/verte-zerg/studylog/internal/calendar"
	"github.com/verte-zerg/studylog/internal/model"
)

// DeriveStreak replays the whole log into a streak state. It is the reference
// the cached state is audited against.
func DeriveStreak(log []model.Interval) model.StreakState {
	days := StudyDays(log)
	if len(days) == 0 {
		return model.StreakState{}
	}
	state := model.StreakState{TotalStudyDays: len(days)}
	run := 0
	prev := ""
	for _, d := range days {
		if prev != "" && calendar.AddDays(prev, 1) == d {
			run++
		} else {
			run = 1
		}
		state.LongestLength = max(state.LongestLength, run)
		prev = d
	}
	state.CurrentLength = run
	state.LastStudyDate = prev
	return state
}

// ActiveStreak returns the current length if the streak is still alive on
// today, that is the last study day is today or yesterday.
func ActiveStreak(state model.StreakState, today string) int {
	if state.LastStudyDate == "" {
		return 0
	}
	gap, err := calendar.DaysBetween(state.LastStudyDate, today)
	if err != nil || gap > 1 {
		return 0
	}
	return state.CurrentLength
}
