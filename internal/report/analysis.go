package report

import (
	"sort"

	"github.com/verte-zerg/studylog/internal/calendar"
	"github.com/verte-zerg/studylog/internal/model"
	"github.com/verte-zerg/studylog/internal/stats"
)

// Status grades one day against its plan.
type Status string

const (
	StatusNotStarted   Status = "not-started"
	StatusExceeded     Status = "exceeded"
	StatusGood         Status = "good"
	StatusFair         Status = "fair"
	StatusInsufficient Status = "insufficient"
)

// StatusFor classifies a day by its efficiency. A day without completed
// hours has not started.
func StatusFor(s stats.SessionSummary) Status {
	if s.TotalCompletedHours <= 0 {
		return StatusNotStarted
	}
	eff := s.Efficiency()
	switch {
	case eff >= 100:
		return StatusExceeded
	case eff >= 80:
		return StatusGood
	case eff >= 60:
		return StatusFair
	default:
		return StatusInsufficient
	}
}

// Advice is the one-line suggestion for a day status.
func Advice(status Status) string {
	switch status {
	case StatusExceeded:
		return "Plan exceeded. Well done today."
	case StatusGood:
		return "You followed the plan well. Keep this pace."
	case StatusFair:
		return "A little short of the plan. Set aside more time tomorrow."
	case StatusInsufficient:
		return "Study time was well below the plan. Focus harder tomorrow."
	default:
		return "No study recorded yet today. Start now."
	}
}

// Comparison measures actual hours against a benchmark target.
type Comparison struct {
	Period string
	Target float64
	Actual float64
	Ratio  float64
	Met    bool
}

// Compare builds a comparison. Ratio is actual/target*100.
func Compare(period string, target, actual float64) Comparison {
	c := Comparison{Period: period, Target: target, Actual: actual}
	if target > 0 {
		c.Ratio = actual / target * 100
	}
	c.Met = target > 0 && c.Ratio >= 100
	return c
}

// TodayReport analyses one day.
type TodayReport struct {
	Session   stats.SessionSummary
	Status    Status
	Advice    string
	Benchmark Comparison
}

// Today analyses day against the daily benchmark.
func Today(log []model.Interval, day string, b Benchmark) TodayReport {
	s := stats.SessionFor(log, day)
	status := StatusFor(s)
	return TodayReport{
		Session:   s,
		Status:    status,
		Advice:    Advice(status),
		Benchmark: Compare("daily", b.DailyHours, s.TotalCompletedHours),
	}
}

// SubjectHours is one subject's share of a period.
type SubjectHours struct {
	Name      string
	Hours     float64
	Intervals int
}

// PeriodReport analyses a week or month.
type PeriodReport struct {
	Summary   stats.PeriodSummary
	Benchmark Comparison
	Subjects  []SubjectHours
	// AverageScore is the mean score percent of mocks taken in the period.
	AverageScore float64
}

// Week analyses the Monday-start week containing day against seven daily
// targets.
func Week(log []model.Interval, scores []model.Score, day string, b Benchmark) (PeriodReport, error) {
	p, err := stats.WeekSummary(log, day)
	if err != nil {
		return PeriodReport{}, err
	}
	return periodReport(p, log, scores, Compare("weekly", b.DailyHours*7, p.TotalCompletedHours)), nil
}

// Month analyses a YYYY-MM month against thirty daily targets.
func Month(log []model.Interval, scores []model.Score, month string, b Benchmark) (PeriodReport, error) {
	p, err := stats.MonthSummary(log, month)
	if err != nil {
		return PeriodReport{}, err
	}
	return periodReport(p, log, scores, Compare("monthly", b.DailyHours*30, p.TotalCompletedHours)), nil
}

func periodReport(p stats.PeriodSummary, log []model.Interval, scores []model.Score, c Comparison) PeriodReport {
	r := PeriodReport{Summary: p, Benchmark: c}
	bySubject := map[string]*SubjectHours{}
	for _, iv := range log {
		if !iv.Completed || iv.Date < p.From || iv.Date > p.To {
			continue
		}
		sh, ok := bySubject[iv.Subject]
		if !ok {
			sh = &SubjectHours{Name: iv.Subject}
			bySubject[iv.Subject] = sh
		}
		sh.Hours += iv.DurationHours
		sh.Intervals++
	}
	for _, sh := range bySubject {
		r.Subjects = append(r.Subjects, *sh)
	}
	sort.Slice(r.Subjects, func(i, j int) bool {
		if r.Subjects[i].Hours != r.Subjects[j].Hours {
			return r.Subjects[i].Hours > r.Subjects[j].Hours
		}
		return r.Subjects[i].Name < r.Subjects[j].Name
	})

	var sum float64
	var n int
	for _, s := range scores {
		if s.Date >= p.From && s.Date <= p.To {
			sum += s.Percent()
			n++
		}
	}
	if n > 0 {
		r.AverageScore = sum / float64(n)
	}
	return r
}

// DaysSince returns whole days from day to today, or -1 when day is empty or
// unreadable.
func DaysSince(day, today string) int {
	if day == "" {
		return -1
	}
	n, err := calendar.DaysBetween(day, today)
	if err != nil {
		return -1
	}
	return n
}
