package repository

import (
	"fmt"
	"sort"

	"github.com/verte-zerg/studylog/internal/model"
	"github.com/verte-zerg/studylog/internal/stats"
)

// WarningKind classifies an integrity warning.
type WarningKind string

const (
	WarnInvalidRecord  WarningKind = "invalid-record"
	WarnDuplicateID    WarningKind = "duplicate-id"
	WarnOrphanScore    WarningKind = "orphan-score"
	WarnOrphanTracker  WarningKind = "orphan-tracker"
	WarnStreakMismatch WarningKind = "streak-mismatch"
	WarnOverlap        WarningKind = "overlap"
)

// IntegrityWarning is a non-fatal inconsistency in the document.
type IntegrityWarning struct {
	Kind    WarningKind
	Ref     string
	Message string
}

func (w IntegrityWarning) String() string {
	if w.Ref == "" {
		return fmt.Sprintf("%s: %s", w.Kind, w.Message)
	}
	return fmt.Sprintf("%s [%s]: %s", w.Kind, w.Ref, w.Message)
}

// Audit checks a document for inconsistencies that validation cannot see.
// plan lists the configured subjects; scores and trackers for subjects
// absent from both the plan and the log are reported as orphans.
func Audit(doc Document, plan []string) []IntegrityWarning {
	var out []IntegrityWarning

	known := map[string]bool{}
	for _, s := range plan {
		known[s] = true
	}
	for _, s := range stats.Subjects(doc.Intervals) {
		known[s] = true
	}

	ids := map[string]int{}
	for _, iv := range doc.Intervals {
		ids[iv.ID]++
	}
	for _, s := range doc.ScoreRecords {
		ids[s.ID]++
	}
	dupIDs := make([]string, 0)
	for id, n := range ids {
		if n > 1 {
			dupIDs = append(dupIDs, id)
		}
	}
	sort.Strings(dupIDs)
	for _, id := range dupIDs {
		out = append(out, IntegrityWarning{
			Kind:    WarnDuplicateID,
			Ref:     id,
			Message: fmt.Sprintf("id used by %d records", ids[id]),
		})
	}

	for _, s := range doc.ScoreRecords {
		if !known[s.Subject] {
			out = append(out, IntegrityWarning{
				Kind:    WarnOrphanScore,
				Ref:     s.ID,
				Message: fmt.Sprintf("score for unknown subject %q", s.Subject),
			})
		}
	}

	subjects := make([]string, 0, len(doc.RotationTrackers))
	for name := range doc.RotationTrackers {
		subjects = append(subjects, name)
	}
	sort.Strings(subjects)
	for _, name := range subjects {
		if !known[name] {
			out = append(out, IntegrityWarning{
				Kind:    WarnOrphanTracker,
				Ref:     name,
				Message: "rotation tracker for unknown subject",
			})
		}
	}

	out = append(out, overlaps(doc.Intervals)...)

	derived := stats.DeriveStreak(doc.Intervals)
	cached := doc.Streak
	if cached.LastStudyDate != derived.LastStudyDate ||
		cached.CurrentLength != derived.CurrentLength ||
		cached.LongestLength != derived.LongestLength ||
		cached.TotalStudyDays != derived.TotalStudyDays {
		out = append(out, IntegrityWarning{
			Kind: WarnStreakMismatch,
			Message: fmt.Sprintf("cached current=%d longest=%d last=%q total=%d, log gives current=%d longest=%d last=%q total=%d",
				cached.CurrentLength, cached.LongestLength, cached.LastStudyDate, cached.TotalStudyDays,
				derived.CurrentLength, derived.LongestLength, derived.LastStudyDate, derived.TotalStudyDays),
		})
	}
	return out
}

// overlaps reports completed intervals on the same day whose clock ranges
// intersect.
func overlaps(log []model.Interval) []IntegrityWarning {
	type span struct {
		id         string
		start, end int
	}
	byDay := map[string][]span{}
	for _, iv := range log {
		if !iv.Completed {
			continue
		}
		start, err := model.ParseClock(iv.StartTime)
		if err != nil {
			continue
		}
		end, err := model.ParseClock(iv.EndTime)
		if err != nil {
			continue
		}
		byDay[iv.Date] = append(byDay[iv.Date], span{id: iv.ID, start: start, end: end})
	}
	days := make([]string, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Strings(days)

	var out []IntegrityWarning
	for _, d := range days {
		spans := byDay[d]
		sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
		for i := 1; i < len(spans); i++ {
			if spans[i].start < spans[i-1].end {
				out = append(out, IntegrityWarning{
					Kind:    WarnOverlap,
					Ref:     spans[i].id,
					Message: fmt.Sprintf("overlaps %s on %s", spans[i-1].id, d),
				})
			}
		}
	}
	return out
}
