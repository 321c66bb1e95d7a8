package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/verte-zerg/studylog/internal/model"
	"github.com/verte-zerg/studylog/internal/stats"
)

func interval(t *testing.T, date, subject, start, end string, completed bool) model.Interval {
	t.Helper()
	iv, err := model.NewInterval(model.IntervalInput{
		Date: date, Subject: subject, StartTime: start, EndTime: end, Completed: completed,
	})
	if err != nil {
		t.Fatalf("interval: %v", err)
	}
	return iv
}

func first(t *testing.T) Benchmark {
	t.Helper()
	b, err := Lookup(DefaultBenchmarks(), "first")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	return b
}

func TestLookupUnknownProfile(t *testing.T) {
	if _, err := Lookup(DefaultBenchmarks(), "third"); err == nil {
		t.Fatalf("expected unknown profile error")
	}
	b := first(t)
	if b.TargetFor("민법") != 180 || b.TargetFor("Economics") != stats.DefaultTargetHours {
		t.Fatalf("unexpected subject targets")
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		name    string
		planned float64
		done    float64
		want    Status
	}{
		{"exceeded", 5, 5, StatusExceeded},
		{"good", 5, 4, StatusGood},
		{"fair", 5, 3, StatusFair},
		{"insufficient", 5, 2, StatusInsufficient},
		{"planned only", 5, 0, StatusNotStarted},
		{"empty", 0, 0, StatusNotStarted},
	}
	for _, tc := range cases {
		s := stats.SessionSummary{TotalPlannedHours: tc.planned, TotalCompletedHours: tc.done}
		if got := StatusFor(s); got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}

func TestTodayAgainstDailyBenchmark(t *testing.T) {
	log := []model.Interval{
		interval(t, "2025-01-01", "민법", "09:00", "11:00", true),
		interval(t, "2025-01-01", "헌법", "13:00", "14:00", false),
	}
	r := Today(log, "2025-01-01", first(t))
	if r.Status != StatusFair {
		t.Fatalf("expected fair for 2 of 3 hours, got %s", r.Status)
	}
	if r.Benchmark.Target != 5 || r.Benchmark.Actual != 2 || r.Benchmark.Met {
		t.Fatalf("unexpected comparison %+v", r.Benchmark)
	}
	if r.Advice == "" {
		t.Fatalf("expected advice")
	}
}

func TestWeekAndMonthBenchmarks(t *testing.T) {
	log := []model.Interval{
		interval(t, "2025-01-06", "민법", "09:00", "14:00", true),
		interval(t, "2025-01-07", "헌법", "09:00", "12:00", true),
		interval(t, "2025-01-07", "민법", "13:00", "14:00", true),
		interval(t, "2025-01-20", "민법", "09:00", "10:00", true),
	}
	scores := []model.Score{
		{ID: "a", Date: "2025-01-08", Subject: "민법", Score: 50, MaxScore: 100},
		{ID: "b", Date: "2025-01-21", Subject: "민법", Score: 70, MaxScore: 100},
	}
	b := first(t)
	week, err := Week(log, scores, "2025-01-09", b)
	if err != nil {
		t.Fatalf("week: %v", err)
	}
	if week.Benchmark.Target != 35 || week.Benchmark.Actual != 9 {
		t.Fatalf("unexpected weekly comparison %+v", week.Benchmark)
	}
	if len(week.Subjects) != 2 || week.Subjects[0].Name != "민법" || week.Subjects[0].Hours != 6 {
		t.Fatalf("unexpected weekly subjects %+v", week.Subjects)
	}
	if week.AverageScore != 50 {
		t.Fatalf("expected weekly score 50, got %.1f", week.AverageScore)
	}

	month, err := Month(log, scores, "2025-01", b)
	if err != nil {
		t.Fatalf("month: %v", err)
	}
	if month.Benchmark.Target != 150 || month.Benchmark.Actual != 10 || month.AverageScore != 60 {
		t.Fatalf("unexpected month %+v avg %.1f", month.Benchmark, month.AverageScore)
	}
	if _, err := Month(log, scores, "2025-13", b); err == nil {
		t.Fatalf("expected invalid month to fail")
	}
}

func TestNextMilestone(t *testing.T) {
	b := first(t)
	m := NextMilestone(240, 5, b)
	if m.Target != 250 || m.Remaining != 10 || m.DaysNeeded != 2 || m.Reached {
		t.Fatalf("unexpected milestone %+v", m)
	}
	if m := NextMilestone(1000, 0, b); m.Target != 1200 || m.DaysNeeded != 0 {
		t.Fatalf("expected 1200 after exactly 1000, got %+v", m)
	}
	if m := NextMilestone(1300, 5, b); !m.Reached || m.Target != 1200 {
		t.Fatalf("expected target reached, got %+v", m)
	}
}

func TestImprovementPlan(t *testing.T) {
	b := first(t)
	policy := stats.DefaultWeakPolicy()
	weak := stats.SubjectProgress{
		Name:               "민법",
		ActualHours:        10,
		Efficiency:         50,
		AverageScore:       45,
		ScoreCount:         2,
		Trend:              stats.TrendDown,
		RotationsCompleted: 1,
	}
	actions := ImprovementPlan(weak, policy, b)
	titles := make([]string, len(actions))
	for i, a := range actions {
		titles[i] = a.Title
	}
	want := []string{"Rebuild fundamentals", "Increase study time", "Change approach", "Complete 2 more passes", "Improve efficiency"}
	if strings.Join(titles, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected actions %v", titles)
	}
	if !strings.Contains(actions[1].Detail, "170.0h more") || actions[3].Expected != "+14 to 20 points" {
		t.Fatalf("unexpected action details %+v %+v", actions[1], actions[3])
	}

	healthy := stats.SubjectProgress{Name: "헌법", ActualHours: 120, Efficiency: 90, AverageScore: 80, ScoreCount: 1, Trend: stats.TrendUp, RotationsCompleted: 3}
	if actions := ImprovementPlan(healthy, policy, b); len(actions) != 1 || actions[0].Priority != PriorityLow {
		t.Fatalf("expected a single keep-going action, got %+v", actions)
	}
}

func TestSubjectPatterns(t *testing.T) {
	log := []model.Interval{
		interval(t, "2025-01-01", "Law", "09:00", "11:00", true),
		interval(t, "2025-01-02", "Law", "09:00", "11:00", true),
		interval(t, "2025-01-10", "Law", "09:00", "11:00", true),
		interval(t, "2025-01-10", "Law", "12:00", "13:00", false),
	}
	subjects := stats.AllSubjectProgress([]string{"Law", "Tax"}, log, nil, nil, nil)
	patterns := SubjectPatterns(log, subjects, "2025-01-10")
	if len(patterns) != 2 || patterns[0].Subject != "Law" {
		t.Fatalf("unexpected pattern order %+v", patterns)
	}
	law := patterns[0]
	if law.Sessions != 3 || law.AverageSessionHours != 2 || law.StudyDays != 3 {
		t.Fatalf("unexpected session figures %+v", law)
	}
	if law.LastStudy != "2025-01-10" || law.DaysSince != 0 || law.SessionsThisWeek != 1 {
		t.Fatalf("unexpected recency %+v", law)
	}
	if law.EstimatedDays != 71 || law.Pace != PaceSlow || !law.SlowPaced() {
		t.Fatalf("unexpected estimate %+v", law)
	}
	tax := patterns[1]
	if tax.Sessions != 0 || tax.DaysSince != -1 || tax.EstimatedDays != -1 || !tax.SlowPaced() {
		t.Fatalf("unexpected pattern for unstudied subject %+v", tax)
	}
}

func TestRecommendationsPriorityOrder(t *testing.T) {
	weak := []stats.WeakSubject{{
		Subject:  stats.SubjectProgress{Name: "민법"},
		Issues:   []stats.Issue{{Message: "recent scores are declining", Severity: stats.SeverityHigh}},
		Severity: stats.SeverityHigh,
	}}
	patterns := []Pattern{{Subject: "헌법", EstimatedDays: -1}, {Subject: "상법", EstimatedDays: 20}}
	recs := Recommendations(stats.EfficiencyScore{Overall: 42}, weak, patterns, stats.PeriodSummary{StudyDays: 2})
	if len(recs) != 4 {
		t.Fatalf("expected 4 recommendations, got %+v", recs)
	}
	for i, r := range recs {
		if r.Priority != i+1 {
			t.Fatalf("unexpected priority order %+v", recs)
		}
	}
	if len(recs[2].Actions) != 1 || !strings.HasPrefix(recs[2].Actions[0], "헌법") {
		t.Fatalf("expected only the unstudied subject as slow, got %+v", recs[2])
	}
	if recs[1].Detail != "1 issues across 1 subjects (1 high, 0 medium)." {
		t.Fatalf("unexpected weak summary %q", recs[1].Detail)
	}

	calm := Recommendations(stats.EfficiencyScore{Overall: 80}, nil, patterns[1:], stats.PeriodSummary{StudyDays: 5})
	if len(calm) != 0 {
		t.Fatalf("expected no recommendations, got %+v", calm)
	}
}

func TestBuildAndRender(t *testing.T) {
	log := []model.Interval{
		interval(t, "2025-01-01", "민법", "09:00", "11:00", true),
		interval(t, "2025-01-02", "민법", "09:00", "12:00", true),
		interval(t, "2025-01-02", "헌법", "13:00", "14:00", false),
	}
	scores := []model.Score{{ID: "s", Date: "2025-01-02", Subject: "민법", Score: 45, MaxScore: 100}}
	data := Data{
		Intervals: log,
		Scores:    scores,
		Streak:    stats.DeriveStreak(log),
		Plan:      []string{"민법", "헌법"},
	}
	r, err := Build(data, "2025-01-02", Options{
		Benchmark: first(t),
		Policy:    stats.DefaultWeakPolicy(),
		Weights:   stats.DefaultWeights(),
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if r.ActiveStreak != 2 || r.Today.Status != StatusFair {
		t.Fatalf("unexpected streak %d or status %s", r.ActiveStreak, r.Today.Status)
	}
	if len(r.Subjects) != 2 || len(r.Weak) != 2 || len(r.Plans["민법"]) == 0 {
		t.Fatalf("unexpected subjects %d weak %d plans %v", len(r.Subjects), len(r.Weak), r.Plans)
	}
	if r.Milestone.Target != 250 || r.Milestone.Remaining != 245 {
		t.Fatalf("unexpected milestone %+v", r.Milestone)
	}
	if r.Grade != stats.Grade(r.Efficiency.Overall) {
		t.Fatalf("grade does not match score")
	}

	var buf bytes.Buffer
	if err := Render(&buf, r); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Efficiency score:", "Today 2025-01-02: fair", "Recommendations", "Next milestone: 250h"} {
		if !strings.Contains(out, want) {
			t.Fatalf("rendered report missing %q:\n%s", want, out)
		}
	}
}
