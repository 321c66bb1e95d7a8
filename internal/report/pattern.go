package report

import (
	"math"
	"sort"

	"github.com/verte-zerg/studylog/internal/calendar"
	"github.com/verte-zerg/studylog/internal/model"
	"github.com/verte-zerg/studylog/internal/stats"
)

// Pace grades subject hours against the subject target.
type Pace string

const (
	PaceFarAhead Pace = "far-ahead"
	PaceReached  Pace = "reached"
	PaceSteady   Pace = "steady"
	PaceBehind   Pace = "behind"
	PaceSlow     Pace = "slow"
)

// PaceFor classifies the ratio of actual hours to target hours.
func PaceFor(actual, target float64) Pace {
	if target <= 0 {
		target = stats.DefaultTargetHours
	}
	progress := actual / target * 100
	switch {
	case progress > 120:
		return PaceFarAhead
	case progress > 100:
		return PaceReached
	case progress > 80:
		return PaceSteady
	case progress > 60:
		return PaceBehind
	default:
		return PaceSlow
	}
}

// slowAfterDays marks a subject whose estimated completion is further out
// than this as slow.
const slowAfterDays = 100

// restFactor spreads the remaining study days over calendar days, assuming
// a subject is studied every other day or so.
const restFactor = 1.5

// Pattern describes how a subject has been studied.
type Pattern struct {
	Subject             string
	Sessions            int
	AverageSessionHours float64
	StudyDays           int
	LastStudy           string
	// DaysSince is -1 when the subject was never studied.
	DaysSince        int
	SessionsThisWeek int
	ProgressPercent  float64
	Pace             Pace
	// EstimatedDays is 0 when complete and -1 when there is no pace to
	// extrapolate from.
	EstimatedDays int
}

// Complete reports whether the subject reached its target.
func (p Pattern) Complete() bool {
	return p.ProgressPercent >= 100
}

// SlowPaced reports whether the subject is unlikely to finish soon.
func (p Pattern) SlowPaced() bool {
	if p.Complete() {
		return false
	}
	return p.EstimatedDays < 0 || p.EstimatedDays > slowAfterDays
}

// SubjectPatterns derives a pattern for each subject from its completed
// intervals. Sessions in the last seven days up to today count as this
// week. The result is ordered by estimated completion, unknown last.
func SubjectPatterns(log []model.Interval, subjects []stats.SubjectProgress, today string) []Pattern {
	weekAgo := calendar.AddDays(today, -7)
	out := make([]Pattern, 0, len(subjects))
	for _, s := range subjects {
		p := Pattern{
			Subject:         s.Name,
			DaysSince:       -1,
			ProgressPercent: s.ProgressPercent,
			Pace:            PaceFor(s.ActualHours, s.TargetHours),
		}
		days := map[string]struct{}{}
		var hours float64
		for _, iv := range log {
			if iv.Subject != s.Name || !iv.Completed {
				continue
			}
			p.Sessions++
			hours += iv.DurationHours
			days[iv.Date] = struct{}{}
			if iv.Date > p.LastStudy {
				p.LastStudy = iv.Date
			}
			if iv.Date > weekAgo && iv.Date <= today {
				p.SessionsThisWeek++
			}
		}
		p.StudyDays = len(days)
		if p.Sessions > 0 {
			p.AverageSessionHours = hours / float64(p.Sessions)
		}
		p.DaysSince = DaysSince(p.LastStudy, today)
		p.EstimatedDays = estimateDays(s, p.StudyDays)
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].EstimatedDays, out[j].EstimatedDays
		if (a < 0) != (b < 0) {
			return b < 0
		}
		return a < b
	})
	return out
}

func estimateDays(s stats.SubjectProgress, studyDays int) int {
	if s.ProgressPercent >= 100 {
		return 0
	}
	if studyDays == 0 || s.ActualHours <= 0 {
		return -1
	}
	perDay := s.ActualHours / float64(studyDays)
	remaining := s.TargetHours - s.ActualHours
	return int(math.Ceil(remaining / perDay * restFactor))
}
