package statsui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/studylog/internal/model"
	"github.com/verte-zerg/studylog/internal/report"
	"github.com/verte-zerg/studylog/internal/repository"
	"github.com/verte-zerg/studylog/internal/stats"
)

type stubSource struct {
	doc   repository.Document
	today string
}

func (s stubSource) Snapshot() repository.Document { return s.doc }
func (s stubSource) Plan() []string                { return []string{"민법"} }
func (s stubSource) Today() string                 { return s.today }

func newTestModel(t *testing.T) *Model {
	t.Helper()
	src := stubSource{
		today: "2025-01-03",
		doc: repository.Document{
			Intervals: []model.Interval{
				{ID: "a", Date: "2025-01-02", Subject: "민법", StartTime: "09:00", EndTime: "11:00", DurationHours: 2, Completed: true},
				{ID: "b", Date: "2025-01-03", Subject: "헌법", StartTime: "09:00", EndTime: "10:00", DurationHours: 1, Completed: true},
			},
			Streak: model.StreakState{CurrentLength: 2, LongestLength: 2, LastStudyDate: "2025-01-03", TotalStudyDays: 2},
		},
	}
	m := NewModel(src, Config{
		Benchmarks: report.DefaultBenchmarks(),
		Profile:    "first",
		Policy:     stats.DefaultWeakPolicy(),
		Weights:    stats.DefaultWeights(),
	})
	if m.errMsg != "" {
		t.Fatalf("unexpected load error: %s", m.errMsg)
	}
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return m
}

func TestDashboardOverview(t *testing.T) {
	m := newTestModel(t)
	view := m.View()
	for _, want := range []string{"Overview", "Subjects", "profile=first", "Streak", "2 days"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
	if len(m.daily) != defaultChartDays {
		t.Fatalf("expected %d chart days, got %d", defaultChartDays, len(m.daily))
	}
}

func TestDashboardSubjectRows(t *testing.T) {
	m := newTestModel(t)
	rows := m.subjectTable.Rows()
	if len(rows) != 2 {
		t.Fatalf("expected 2 subject rows, got %d", len(rows))
	}
	if rows[0][0] != "민법" || rows[0][1] != "2.0h" || rows[0][2] != "180h" {
		t.Fatalf("unexpected first row %v", rows[0])
	}
}

func TestDashboardTabsWrap(t *testing.T) {
	m := newTestModel(t)
	m.moveTab(-1)
	if m.activeTab != tabReport {
		t.Fatalf("expected wrap to report tab, got %d", m.activeTab)
	}
	m.moveTab(1)
	if m.activeTab != tabOverview {
		t.Fatalf("expected wrap to overview tab, got %d", m.activeTab)
	}
}

func TestDashboardChartDaysKeys(t *testing.T) {
	m := newTestModel(t)
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("=")})
	if m.cfg.ChartDays != defaultChartDays+chartDaysStep || len(m.daily) != m.cfg.ChartDays {
		t.Fatalf("expected chart to grow, got %d days (%d points)", m.cfg.ChartDays, len(m.daily))
	}
	for i := 0; i < 5; i++ {
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("-")})
	}
	if m.cfg.ChartDays != chartDaysStep {
		t.Fatalf("expected chart days clamped to %d, got %d", chartDaysStep, m.cfg.ChartDays)
	}
}

func TestApplyFilterValidates(t *testing.T) {
	m := newTestModel(t)
	m.filterInputs[0].SetValue("third")
	m.filterInputs[1].SetValue("7")
	if err := m.applyFilter(); err == nil {
		t.Fatalf("expected unknown profile to fail")
	}
	m.filterInputs[0].SetValue("second")
	m.filterInputs[1].SetValue("0")
	if err := m.applyFilter(); err == nil {
		t.Fatalf("expected zero chart days to fail")
	}
	m.filterInputs[1].SetValue("30")
	if err := m.applyFilter(); err != nil {
		t.Fatalf("apply filter: %v", err)
	}
	if m.cfg.Profile != "second" || m.cfg.ChartDays != 30 {
		t.Fatalf("unexpected config %+v", m.cfg)
	}
}

func TestFitLines(t *testing.T) {
	out := fitLines("a\nb\nc", 3, 2)
	if out != "a  \nb  " {
		t.Fatalf("unexpected fit %q", out)
	}
	if got := truncateLine("abcdefgh", 6); got != "abc..." {
		t.Fatalf("unexpected truncate %q", got)
	}
}
