package stats

import (
	"sort"

	"github.com/verte-zerg/studylog/internal/model"
)

// DefaultTargetHours is the subject target when a profile names none.
const DefaultTargetHours = 100.0

// Trend classifies the direction of recent scores.
type Trend string

// Trend values.
const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// SubjectProgress is the derived state of one subject.
type SubjectProgress struct {
	Name               string
	PlannedHours       float64
	ActualHours        float64
	Efficiency         float64
	TargetHours        float64
	ProgressPercent    float64
	AverageScore       float64
	RecentScore        float64
	ScoreCount         int
	Trend              Trend
	RotationsCompleted int
	RotationTotal      int
	RotationProgress   float64
	NextRotation       int
}

// ClassifyTrend compares the mean of the last three values to the first of
// that window, with a five point dead band.
func ClassifyTrend(values []float64) Trend {
	if len(values) < 2 {
		return TrendStable
	}
	window := values
	if len(window) > 3 {
		window = window[len(window)-3:]
	}
	var sum float64
	for _, v := range window {
		sum += v
	}
	mean := sum / float64(len(window))
	switch {
	case mean > window[0]+5:
		return TrendUp
	case mean < window[0]-5:
		return TrendDown
	default:
		return TrendStable
	}
}

// SortScores orders scores by date, keeping insertion order within a day.
func SortScores(scores []model.Score) []model.Score {
	out := append([]model.Score(nil), scores...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date < out[j].Date
	})
	return out
}

// SubjectProgressFor derives the progress of one subject. tracker may be nil.
func SubjectProgressFor(name string, log []model.Interval, scores []model.Score, tracker *model.RotationTracker, targetHours float64) SubjectProgress {
	if targetHours <= 0 {
		targetHours = DefaultTargetHours
	}
	p := SubjectProgress{Name: name, TargetHours: targetHours, Trend: TrendStable}
	for _, iv := range log {
		if iv.Subject != name {
			continue
		}
		p.PlannedHours += iv.DurationHours
		if iv.Completed {
			p.ActualHours += iv.DurationHours
		}
	}
	p.Efficiency = Efficiency(p.ActualHours, p.PlannedHours)
	p.ProgressPercent = min(100, p.ActualHours/targetHours*100)

	var percents []float64
	for _, s := range SortScores(scores) {
		if s.Subject == name {
			percents = append(percents, s.Percent())
		}
	}
	if len(percents) > 0 {
		var sum float64
		for _, v := range percents {
			sum += v
		}
		p.ScoreCount = len(percents)
		p.AverageScore = sum / float64(len(percents))
		p.RecentScore = percents[len(percents)-1]
		p.Trend = ClassifyTrend(percents)
	}

	if tracker != nil {
		p.RotationsCompleted = tracker.CompletedCount()
		p.RotationTotal = len(tracker.Slots)
		p.RotationProgress = tracker.ProgressPercent()
		p.NextRotation = tracker.NextRotation()
	} else {
		p.NextRotation = 1
	}
	return p
}

// SubjectNames merges the plan order with every subject seen in the data.
// Plan subjects come first; the rest follow alphabetically.
func SubjectNames(plan []string, log []model.Interval, scores []model.Score, trackers map[string]model.RotationTracker) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(plan))
	for _, s := range plan {
		if _, ok := seen[s]; ok || s == "" {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	var extra []string
	add := func(s string) {
		if _, ok := seen[s]; ok || s == "" {
			return
		}
		seen[s] = struct{}{}
		extra = append(extra, s)
	}
	for _, iv := range log {
		add(iv.Subject)
	}
	for _, s := range scores {
		add(s.Subject)
	}
	for name := range trackers {
		add(name)
	}
	sort.Strings(extra)
	return append(out, extra...)
}

// AllSubjectProgress derives progress for every known subject.
func AllSubjectProgress(plan []string, log []model.Interval, scores []model.Score, trackers map[string]model.RotationTracker, targets map[string]float64) []SubjectProgress {
	names := SubjectNames(plan, log, scores, trackers)
	out := make([]SubjectProgress, 0, len(names))
	for _, name := range names {
		var tracker *model.RotationTracker
		if t, ok := trackers[name]; ok {
			tracker = &t
		}
		out = append(out, SubjectProgressFor(name, log, scores, tracker, targets[name]))
	}
	return out
}
