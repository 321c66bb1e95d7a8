package stats

import (
	"math"

	"github.com/verte-zerg/studylog/internal/model"
)

// Weights blends the composite efficiency terms.
type Weights struct {
	Time     float64
	Progress float64
	Score    float64
	Streak   float64
}

// DefaultWeights returns the 40/30/20/10 split.
func DefaultWeights() Weights {
	return Weights{Time: 0.4, Progress: 0.3, Score: 0.2, Streak: 0.1}
}

// EfficiencyInput is the data the composite score reads.
type EfficiencyInput struct {
	Subjects     []SubjectProgress
	Scores       []model.Score
	StudyDays    int
	MinStudyDays int
}

// EfficiencyScore is the composite score and its capped terms.
type EfficiencyScore struct {
	Overall  int
	Time     float64
	Progress float64
	Score    float64
	Streak   float64
}

// OverallEfficiency blends time efficiency, subject progress, mock scores and
// study-day coverage. Each term is capped at 100.
func OverallEfficiency(in EfficiencyInput, w Weights) EfficiencyScore {
	var planned, actual, progress float64
	for _, s := range in.Subjects {
		planned += s.PlannedHours
		actual += s.ActualHours
		progress += s.ProgressPercent
	}
	var out EfficiencyScore
	out.Time = min(100, Efficiency(actual, planned))
	if len(in.Subjects) > 0 {
		out.Progress = min(100, progress/float64(len(in.Subjects)))
	}
	if len(in.Scores) > 0 {
		var sum float64
		for _, s := range in.Scores {
			sum += s.Percent()
		}
		out.Score = min(100, sum/float64(len(in.Scores)))
	}
	if in.MinStudyDays > 0 {
		out.Streak = min(100, float64(in.StudyDays)/float64(in.MinStudyDays)*100)
	}
	total := out.Time*w.Time + out.Progress*w.Progress + out.Score*w.Score + out.Streak*w.Streak
	out.Overall = int(math.Round(total))
	return out
}

// Grade maps a composite score to a letter.
func Grade(score int) string {
	switch {
	case score >= 90:
		return "A+"
	case score >= 80:
		return "A"
	case score >= 70:
		return "B+"
	case score >= 60:
		return "B"
	case score >= 50:
		return "C"
	default:
		return "F"
	}
}
