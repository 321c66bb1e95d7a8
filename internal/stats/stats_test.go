package stats

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/verte-zerg/studylog/internal/model"
)

func interval(t *testing.T, date, subject, start, end string, completed bool) model.Interval {
	t.Helper()
	iv, err := model.NewInterval(model.IntervalInput{
		Date:      date,
		Subject:   subject,
		StartTime: start,
		EndTime:   end,
		Completed: completed,
	})
	if err != nil {
		t.Fatalf("NewInterval: %v", err)
	}
	return iv
}

func TestSessionForSingleInterval(t *testing.T) {
	log := []model.Interval{interval(t, "2025-01-01", "Law", "09:00", "11:00", true)}
	s := SessionFor(log, "2025-01-01")
	if s.TotalCompletedHours != 2 || s.TotalPlannedHours != 2 || !s.HasStudied {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if other := SessionFor(log, "2025-01-02"); other.HasStudied || other.TotalPlannedHours != 0 {
		t.Fatalf("expected empty summary for other day: %+v", other)
	}
}

func TestSessionForSumsExactly(t *testing.T) {
	var log []model.Interval
	var want float64
	durations := []float64{0.25, 1.1, 2.7, 0.3333, 4.05, 0.1}
	for i, h := range durations {
		iv := interval(t, "2025-01-01", "Law", "08:00", "09:00", i%2 == 0)
		iv.DurationHours = h
		log = append(log, iv)
		if iv.Completed {
			want += h
		}
	}
	log = append(log, interval(t, "2025-01-02", "Law", "08:00", "09:00", true))
	s := SessionFor(log, "2025-01-01")
	if math.Abs(s.TotalCompletedHours-want) > 1e-12 {
		t.Fatalf("completed hours %v, want %v", s.TotalCompletedHours, want)
	}
	if s.CompletedCount != 3 || s.IntervalCount != 6 {
		t.Fatalf("unexpected counts: %+v", s)
	}
}

func TestCompletedMayExceedPlanEfficiency(t *testing.T) {
	if got := Efficiency(6, 4); got != 150 {
		t.Fatalf("expected unclamped 150, got %v", got)
	}
	if got := Efficiency(3, 0); got != 0 {
		t.Fatalf("expected 0 without plan, got %v", got)
	}
}

func TestWeekSummaryMondayStart(t *testing.T) {
	log := []model.Interval{
		interval(t, "2025-01-05", "Law", "09:00", "10:00", true), // Sunday, previous week
		interval(t, "2025-01-06", "Law", "09:00", "11:00", true), // Monday
		interval(t, "2025-01-06", "Tax", "13:00", "14:00", false),
		interval(t, "2025-01-08", "Tax", "09:00", "12:00", true),
		interval(t, "2025-01-12", "Law", "09:00", "10:00", true), // Sunday
		interval(t, "2025-01-13", "Law", "09:00", "10:00", true), // next Monday
	}
	w, err := WeekSummary(log, "2025-01-09")
	if err != nil {
		t.Fatalf("WeekSummary: %v", err)
	}
	if w.From != "2025-01-06" || w.To != "2025-01-12" || len(w.Days) != 7 {
		t.Fatalf("unexpected range: %s..%s (%d days)", w.From, w.To, len(w.Days))
	}
	if w.TotalCompletedHours != 6 || w.TotalPlannedHours != 7 || w.StudyDays != 3 {
		t.Fatalf("unexpected totals: %+v", w)
	}
	if w.BestDay != "2025-01-08" || w.BestDayHours != 3 {
		t.Fatalf("unexpected best day %s %.1f", w.BestDay, w.BestDayHours)
	}
	wantAvg := (200.0/3 + 100 + 100) / 3
	if math.Abs(w.AverageEfficiency-wantAvg) > 1e-9 {
		t.Fatalf("average efficiency %v, want %v", w.AverageEfficiency, wantAvg)
	}
	if w.AverageStudyDayHours() != 2 {
		t.Fatalf("unexpected average study-day hours %v", w.AverageStudyDayHours())
	}
}

func TestMonthSummaryAndTotals(t *testing.T) {
	log := []model.Interval{
		interval(t, "2025-01-31", "Law", "09:00", "10:00", true),
		interval(t, "2025-02-01", "Law", "09:00", "12:00", true),
		interval(t, "2025-02-28", "Law", "09:00", "10:00", true),
		interval(t, "2025-02-28", "Law", "11:00", "12:00", true),
	}
	m, err := MonthSummary(log, "2025-02")
	if err != nil {
		t.Fatalf("MonthSummary: %v", err)
	}
	if len(m.Days) != 28 || m.TotalCompletedHours != 5 || m.StudyDays != 2 {
		t.Fatalf("unexpected month: days=%d hours=%.1f studyDays=%d", len(m.Days), m.TotalCompletedHours, m.StudyDays)
	}
	if TotalCompletedHours(log) != 6 || AverageDailyHours(log) != 2 {
		t.Fatalf("unexpected totals %.1f %.1f", TotalCompletedHours(log), AverageDailyHours(log))
	}
	if _, err := MonthSummary(log, "2025-13"); err == nil {
		t.Fatalf("expected invalid month error")
	}
}

func TestDailyHoursAndChart(t *testing.T) {
	log := []model.Interval{
		interval(t, "2025-01-01", "Law", "09:00", "11:00", true),
		interval(t, "2025-01-02", "Law", "09:00", "13:00", false),
	}
	days, err := DailyHours(log, "2025-01-01", "2025-01-03")
	if err != nil {
		t.Fatalf("DailyHours: %v", err)
	}
	if len(days) != 3 || days[0].Done != 2 || days[1].Planned != 4 || days[2].Planned != 0 {
		t.Fatalf("unexpected series: %+v", days)
	}
	var buf bytes.Buffer
	if err := RenderDailyBars(&buf, "Daily hours", days, 40, false); err != nil {
		t.Fatalf("RenderDailyBars: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 || lines[0] != "Daily hours" {
		t.Fatalf("unexpected chart: %q", buf.String())
	}
	if !strings.Contains(lines[1], barFull) || strings.Contains(lines[1], "\x1b[") {
		t.Fatalf("expected uncolored solid bar: %q", lines[1])
	}
	if !strings.Contains(lines[2], barPlanned) || strings.Contains(lines[2], barFull) {
		t.Fatalf("expected planned-only bar: %q", lines[2])
	}
}

func TestMovingAverageAndSparkline(t *testing.T) {
	got := MovingAverage([]float64{2, 4, 6, 8}, 2)
	want := []float64{2, 3, 5, 7}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("MovingAverage[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if s := Sparkline([]float64{0, 9}); s != " @" {
		t.Fatalf("unexpected sparkline %q", s)
	}
	if s := Sparkline([]float64{3, 3, 3}); len(s) != 3 {
		t.Fatalf("unexpected flat sparkline %q", s)
	}
}
