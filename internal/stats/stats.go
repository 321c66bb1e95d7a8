// Package stats derives every study figure from the interval log. Nothing
// here caches; each function is a pure function of its inputs.
package stats

import (
	"math"
	"sort"
	"strings"

	"github.com/verte-zerg/studylog/internal/calendar"
	"github.com/verte-zerg/studylog/internal/model"
)

const sparkChars = " .:-=+*#%@"

// SessionSummary is the derived view of one calendar day.
type SessionSummary struct {
	Date                string
	IntervalCount       int
	CompletedCount      int
	TotalPlannedHours   float64
	TotalCompletedHours float64
	HasStudied          bool
	SubjectHours        map[string]float64
}

// Efficiency returns completed over planned hours for the day.
func (s SessionSummary) Efficiency() float64 {
	return Efficiency(s.TotalCompletedHours, s.TotalPlannedHours)
}

// SessionFor summarizes the intervals logged on day.
func SessionFor(log []model.Interval, day string) SessionSummary {
	var records []model.Interval
	for _, iv := range log {
		if iv.Date == day {
			records = append(records, iv)
		}
	}
	return summarize(day, records)
}

func summarize(day string, records []model.Interval) SessionSummary {
	s := SessionSummary{Date: day, SubjectHours: map[string]float64{}}
	for _, iv := range records {
		s.IntervalCount++
		s.TotalPlannedHours += iv.DurationHours
		if !iv.Completed {
			continue
		}
		s.CompletedCount++
		s.TotalCompletedHours += iv.DurationHours
		s.SubjectHours[iv.Subject] += iv.DurationHours
	}
	s.HasStudied = s.CompletedCount > 0
	return s
}

func groupByDate(log []model.Interval) map[string][]model.Interval {
	byDate := make(map[string][]model.Interval)
	for _, iv := range log {
		byDate[iv.Date] = append(byDate[iv.Date], iv)
	}
	return byDate
}

// Efficiency returns actual/planned*100, or 0 without a plan. The ratio is
// not clamped.
func Efficiency(actual, planned float64) float64 {
	if planned <= 0 {
		return 0
	}
	return actual / planned * 100
}

// HasStudied reports whether day has at least one completed interval.
func HasStudied(log []model.Interval, day string) bool {
	for _, iv := range log {
		if iv.Date == day && iv.Completed {
			return true
		}
	}
	return false
}

// StudyDays returns the sorted distinct days with completed study.
func StudyDays(log []model.Interval) []string {
	seen := map[string]struct{}{}
	for _, iv := range log {
		if iv.Completed {
			seen[iv.Date] = struct{}{}
		}
	}
	days := make([]string, 0, len(seen))
	for d := range seen {
		days = append(days, d)
	}
	sort.Strings(days)
	return days
}

// TotalCompletedHours sums completed hours across the log.
func TotalCompletedHours(log []model.Interval) float64 {
	var total float64
	for _, iv := range log {
		if iv.Completed {
			total += iv.DurationHours
		}
	}
	return total
}

// AverageDailyHours divides completed hours by distinct study days.
func AverageDailyHours(log []model.Interval) float64 {
	days := len(StudyDays(log))
	if days == 0 {
		return 0
	}
	return TotalCompletedHours(log) / float64(days)
}

// DayHours is one point of a daily series.
type DayHours struct {
	Date    string
	Planned float64
	Done    float64
}

// DailyHours returns one point per day from first to last inclusive.
func DailyHours(log []model.Interval, first, last string) ([]DayHours, error) {
	days, err := calendar.Range(first, last)
	if err != nil {
		return nil, err
	}
	byDate := groupByDate(log)
	out := make([]DayHours, len(days))
	for i, d := range days {
		s := summarize(d, byDate[d])
		out[i] = DayHours{Date: d, Planned: s.TotalPlannedHours, Done: s.TotalCompletedHours}
	}
	return out, nil
}

// Subjects returns the distinct subjects seen in the log, sorted.
func Subjects(log []model.Interval) []string {
	seen := map[string]struct{}{}
	for _, iv := range log {
		seen[iv.Subject] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 1 {
		copy(out, values)
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		den := float64(i + 1)
		if i >= window {
			sum -= values[i-window]
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal, maxVal := values[0], values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	last := len(sparkChars) - 1
	for _, v := range values {
		idx := int(math.Round((v - minVal) / (maxVal - minVal) * float64(last)))
		idx = max(0, min(idx, last))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}
