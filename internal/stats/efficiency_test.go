package stats

import (
	"testing"

	"github.com/verte-zerg/studylog/internal/model"
)

func TestOverallEfficiencyWeightsAndCaps(t *testing.T) {
	in := EfficiencyInput{
		Subjects: []SubjectProgress{
			{Name: "A", PlannedHours: 10, ActualHours: 15, ProgressPercent: 40},
			{Name: "B", PlannedHours: 10, ActualHours: 10, ProgressPercent: 80},
		},
		Scores: []model.Score{
			{Score: 70, MaxScore: 100},
			{Score: 90, MaxScore: 100},
		},
		StudyDays:    300,
		MinStudyDays: 200,
	}
	got := OverallEfficiency(in, DefaultWeights())
	// time 125 capped 100, progress 60, score 80, streak 150 capped 100
	if got.Time != 100 || got.Progress != 60 || got.Score != 80 || got.Streak != 100 {
		t.Fatalf("unexpected terms: %+v", got)
	}
	// 40 + 18 + 16 + 10
	if got.Overall != 84 {
		t.Fatalf("expected 84, got %d", got.Overall)
	}
	if Grade(got.Overall) != "A" {
		t.Fatalf("unexpected grade %s", Grade(got.Overall))
	}
}

func TestOverallEfficiencyRoundsAndHandlesEmpty(t *testing.T) {
	if got := OverallEfficiency(EfficiencyInput{}, DefaultWeights()); got.Overall != 0 {
		t.Fatalf("expected 0 for empty input, got %+v", got)
	}
	in := EfficiencyInput{
		Subjects:     []SubjectProgress{{PlannedHours: 3, ActualHours: 1, ProgressPercent: 1}},
		StudyDays:    1,
		MinStudyDays: 3,
	}
	got := OverallEfficiency(in, DefaultWeights())
	// 33.33*0.4 + 1*0.3 + 0 + 33.33*0.1 = 16.97
	if got.Overall != 17 {
		t.Fatalf("expected 17, got %d (%+v)", got.Overall, got)
	}
	custom := OverallEfficiency(in, Weights{Time: 1})
	if custom.Overall != 33 {
		t.Fatalf("expected weights to be configurable, got %d", custom.Overall)
	}
}

func TestGradeBoundaries(t *testing.T) {
	cases := map[int]string{100: "A+", 90: "A+", 89: "A", 80: "A", 70: "B+", 60: "B", 50: "C", 49: "F", 0: "F"}
	for score, want := range cases {
		if got := Grade(score); got != want {
			t.Fatalf("Grade(%d) = %s, want %s", score, got, want)
		}
	}
}
