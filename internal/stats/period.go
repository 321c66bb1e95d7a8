package stats

import (
	"github.com/verte-zerg/studylog/internal/calendar"
	"github.com/verte-zerg/studylog/internal/model"
)

// PeriodSummary reduces the per-day summaries of a date range.
type PeriodSummary struct {
	From                string
	To                  string
	Days                []SessionSummary
	TotalPlannedHours   float64
	TotalCompletedHours float64
	StudyDays           int
	// Efficiency is total completed over total planned hours.
	Efficiency float64
	// AverageEfficiency is the mean daily efficiency over days with a plan.
	AverageEfficiency float64
	BestDay           string
	BestDayHours      float64
}

// AverageStudyDayHours divides completed hours by the days studied.
func (p PeriodSummary) AverageStudyDayHours() float64 {
	if p.StudyDays == 0 {
		return 0
	}
	return p.TotalCompletedHours / float64(p.StudyDays)
}

// RangeSummary summarizes every day from first to last inclusive.
func RangeSummary(log []model.Interval, first, last string) (PeriodSummary, error) {
	days, err := calendar.Range(first, last)
	if err != nil {
		return PeriodSummary{}, err
	}
	byDate := groupByDate(log)
	p := PeriodSummary{From: first, To: last, Days: make([]SessionSummary, 0, len(days))}
	var effSum float64
	var effDays int
	for _, d := range days {
		s := summarize(d, byDate[d])
		p.Days = append(p.Days, s)
		p.TotalPlannedHours += s.TotalPlannedHours
		p.TotalCompletedHours += s.TotalCompletedHours
		if s.HasStudied {
			p.StudyDays++
		}
		if s.TotalPlannedHours > 0 {
			effSum += s.Efficiency()
			effDays++
		}
		if s.TotalCompletedHours > p.BestDayHours {
			p.BestDay = d
			p.BestDayHours = s.TotalCompletedHours
		}
	}
	p.Efficiency = Efficiency(p.TotalCompletedHours, p.TotalPlannedHours)
	if effDays > 0 {
		p.AverageEfficiency = effSum / float64(effDays)
	}
	return p, nil
}

// WeekSummary summarizes the Monday-start week containing day.
func WeekSummary(log []model.Interval, day string) (PeriodSummary, error) {
	start, err := calendar.WeekStart(day)
	if err != nil {
		return PeriodSummary{}, err
	}
	return RangeSummary(log, start, calendar.AddDays(start, 6))
}

// MonthSummary summarizes a YYYY-MM month.
func MonthSummary(log []model.Interval, month string) (PeriodSummary, error) {
	first, last, err := calendar.MonthRange(month)
	if err != nil {
		return PeriodSummary{}, err
	}
	return RangeSummary(log, first, last)
}
