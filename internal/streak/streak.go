// Package streak keeps the cached streak state consistent with the interval
// log after every mutation.
package streak

import (
	"log/slog"

	"github.com/verte-zerg/studylog/internal/calendar"
	"github.com/verte-zerg/studylog/internal/model"
)

// DefaultScanDays bounds every backward walk over the calendar.
const DefaultScanDays = 365

// Source answers study questions from the interval log.
type Source interface {
	HasStudied(day string) bool
	StudyDayCount() int
}

// Reconciler updates a streak state in place.
type Reconciler struct {
	state    *model.StreakState
	source   Source
	scanDays int
	logger   *slog.Logger
}

// NewReconciler binds a reconciler to state and source. scanDays <= 0 uses
// DefaultScanDays.
func NewReconciler(state *model.StreakState, source Source, scanDays int, logger *slog.Logger) *Reconciler {
	if scanDays <= 0 {
		scanDays = DefaultScanDays
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{state: state, source: source, scanDays: scanDays, logger: logger}
}

// RecordStudy advances the streak after day gained a completed interval.
// It returns true when the state changed.
func (r *Reconciler) RecordStudy(day string) bool {
	if !calendar.Valid(day) || !r.source.HasStudied(day) {
		return false
	}
	s := r.state
	if s.LastStudyDate == day {
		return false
	}
	before := *s
	if s.LastStudyDate == "" {
		s.CurrentLength = 1
		s.LastStudyDate = day
	} else {
		gap, err := calendar.DaysBetween(s.LastStudyDate, day)
		if err != nil {
			r.logger.Warn("streak has unreadable last study date; starting over",
				slog.String("lastStudyDate", s.LastStudyDate), slog.Any("error", err))
			gap = 2
		}
		switch {
		case gap == 1:
			s.CurrentLength++
			s.LastStudyDate = day
		case gap > 1:
			s.CurrentLength = 1
			s.LastStudyDate = day
		default:
			// A past day was filled in. It may lengthen the run ending at
			// the last study day, or join an older run into a new record.
			s.CurrentLength = r.runEndingAt(s.LastStudyDate)
			s.LongestLength = max(s.LongestLength, r.runThrough(day))
		}
	}
	s.LongestLength = max(s.LongestLength, s.CurrentLength)
	s.TotalStudyDays = r.source.StudyDayCount()
	changed := *s != before
	if changed {
		r.logger.Debug("streak advanced", slog.String("day", day),
			slog.Int("current", s.CurrentLength), slog.Int("longest", s.LongestLength))
	}
	return changed
}

// ReconcileAfterRemoval repairs the state after a day may have lost its last
// completed interval. Longest is re-derived from the scan window ending at
// the last study day, never below the current run. It returns true when the
// state changed.
func (r *Reconciler) ReconcileAfterRemoval() bool {
	s := r.state
	if s.LastStudyDate == "" {
		return false
	}
	before := *s
	if !r.source.HasStudied(s.LastStudyDate) {
		found := r.latestStudyBefore(s.LastStudyDate)
		if found == "" {
			r.logger.Info("no study found within scan window; streak reset",
				slog.String("lastStudyDate", s.LastStudyDate), slog.Int("scanDays", r.scanDays))
			*s = model.StreakState{}
			return true
		}
		s.LastStudyDate = found
	} else if r.source.StudyDayCount() == s.TotalStudyDays {
		return false
	}
	s.CurrentLength = r.runEndingAt(s.LastStudyDate)
	s.TotalStudyDays = r.source.StudyDayCount()
	s.LongestLength = max(s.CurrentLength, r.longestRunInWindow(s.LastStudyDate))
	changed := *s != before
	if changed {
		r.logger.Debug("streak reconciled after removal", slog.String("lastStudyDate", s.LastStudyDate),
			slog.Int("current", s.CurrentLength), slog.Int("longest", s.LongestLength))
	}
	return changed
}

// latestStudyBefore checks the previous day first, then walks back at most
// scanDays days.
func (r *Reconciler) latestStudyBefore(day string) string {
	prev := calendar.AddDays(day, -1)
	if r.source.HasStudied(prev) {
		return prev
	}
	for i := 2; i <= r.scanDays; i++ {
		d := calendar.AddDays(day, -i)
		if r.source.HasStudied(d) {
			return d
		}
	}
	return ""
}

// runEndingAt counts consecutive study days ending at day, bounded by scanDays.
func (r *Reconciler) runEndingAt(day string) int {
	n := 0
	for d := day; n < r.scanDays && r.source.HasStudied(d); d = calendar.AddDays(d, -1) {
		n++
	}
	return n
}

// runThrough counts the consecutive study days around day, walking at most
// scanDays days in each direction.
func (r *Reconciler) runThrough(day string) int {
	n := r.runEndingAt(day)
	if n == 0 {
		return 0
	}
	for i := 1; i <= r.scanDays && r.source.HasStudied(calendar.AddDays(day, i)); i++ {
		n++
	}
	return n
}

// longestRunInWindow returns the longest run within scanDays days ending at day.
func (r *Reconciler) longestRunInWindow(day string) int {
	longest, run := 0, 0
	for i := 0; i < r.scanDays; i++ {
		if r.source.HasStudied(calendar.AddDays(day, -i)) {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}
	return longest
}

