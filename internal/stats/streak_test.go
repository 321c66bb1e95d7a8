package stats

import (
	"testing"

	"github.com/verte-zerg/studylog/internal/model"
)

func TestDeriveStreakWithGap(t *testing.T) {
	log := []model.Interval{
		interval(t, "2025-01-07", "Law", "09:00", "10:00", true),
		interval(t, "2025-01-07", "Tax", "11:00", "12:00", true),
		interval(t, "2025-01-08", "Law", "09:00", "10:00", true),
		interval(t, "2025-01-09", "Law", "09:00", "10:00", false),
		interval(t, "2025-01-10", "Law", "09:00", "10:00", true),
	}
	got := DeriveStreak(log)
	want := model.StreakState{CurrentLength: 1, LongestLength: 2, LastStudyDate: "2025-01-10", TotalStudyDays: 3}
	if got != want {
		t.Fatalf("DeriveStreak = %+v, want %+v", got, want)
	}
	if DeriveStreak(nil) != (model.StreakState{}) {
		t.Fatalf("expected zero state for empty log")
	}
}

func TestDeriveStreakAcrossMonthBoundary(t *testing.T) {
	log := []model.Interval{
		interval(t, "2025-02-28", "Law", "09:00", "10:00", true),
		interval(t, "2025-03-01", "Law", "09:00", "10:00", true),
		interval(t, "2025-03-02", "Law", "09:00", "10:00", true),
	}
	got := DeriveStreak(log)
	if got.CurrentLength != 3 || got.LongestLength != 3 {
		t.Fatalf("unexpected streak %+v", got)
	}
}

func TestActiveStreak(t *testing.T) {
	state := model.StreakState{CurrentLength: 4, LongestLength: 4, LastStudyDate: "2025-01-10", TotalStudyDays: 4}
	if ActiveStreak(state, "2025-01-10") != 4 || ActiveStreak(state, "2025-01-11") != 4 {
		t.Fatalf("expected streak alive today and tomorrow")
	}
	if ActiveStreak(state, "2025-01-12") != 0 {
		t.Fatalf("expected broken streak after a missed day")
	}
}
