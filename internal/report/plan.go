package report

import (
	"fmt"
	"math"

	"github.com/verte-zerg/studylog/internal/stats"
)

// Priority orders improvement actions.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// efficiencyTarget is the plan-following ratio below which an action to
// improve efficiency is suggested.
const efficiencyTarget = 70

// Action is one step of a subject improvement plan.
type Action struct {
	Priority Priority
	Title    string
	Detail   string
	Timeline string
	Expected string
}

// ImprovementPlan lists the actions for one subject. A subject with nothing
// to fix gets a single low priority action to keep going.
func ImprovementPlan(s stats.SubjectProgress, policy stats.WeakPolicy, b Benchmark) []Action {
	var out []Action
	if s.AverageScore > 0 && s.AverageScore < policy.ScoreBelow {
		out = append(out, Action{
			Priority: PriorityHigh,
			Title:    "Rebuild fundamentals",
			Detail: fmt.Sprintf("%s averages %.0f%% on mocks. Go back to the core concepts of past papers.",
				s.Name, math.Round(s.AverageScore)),
			Timeline: "2 weeks",
			Expected: "+10 to 15 points",
		})
		target := b.TargetFor(s.Name)
		if extra := target - s.ActualHours; extra > 0 {
			out = append(out, Action{
				Priority: PriorityHigh,
				Title:    "Increase study time",
				Detail: fmt.Sprintf("Raise %s from %.1fh to %.0fh (%.1fh more).",
					s.Name, s.ActualHours, target, extra),
				Timeline: "4 weeks",
				Expected: "higher scores",
			})
		}
	}
	if s.Trend == stats.TrendDown {
		out = append(out, Action{
			Priority: PriorityHigh,
			Title:    "Change approach",
			Detail:   "Recent scores are falling. Repeat the problems you missed.",
			Timeline: "1 week",
			Expected: "stable scores",
		})
	}
	if missing := policy.MinRotations - s.RotationsCompleted; missing > 0 {
		out = append(out, Action{
			Priority: PriorityMedium,
			Title:    fmt.Sprintf("Complete %d more passes", missing),
			Detail: fmt.Sprintf("%d of %d passes done. Expect 5 to 10 points per pass.",
				s.RotationsCompleted, policy.MinRotations),
			Timeline: "3 weeks",
			Expected: fmt.Sprintf("+%d to %d points", missing*7, missing*10),
		})
	}
	if s.Efficiency > 0 && s.Efficiency < efficiencyTarget {
		out = append(out, Action{
			Priority: PriorityMedium,
			Title:    "Improve efficiency",
			Detail: fmt.Sprintf("Completing %.0f%% of planned time. Aim for 80%% or more.",
				math.Round(s.Efficiency)),
			Timeline: "ongoing",
			Expected: "faster progress",
		})
	}
	if len(out) == 0 {
		out = append(out, Action{
			Priority: PriorityLow,
			Title:    "Keep going",
			Detail:   "Progress is on track.",
			Timeline: "ongoing",
			Expected: "steady improvement",
		})
	}
	return out
}
