package stats

import (
	"fmt"
	"sort"
)

// Severity ranks a weak-subject issue. Lower sorts first.
type Severity int

// Severity levels.
const (
	SeverityHigh Severity = iota
	SeverityMedium
)

func (s Severity) String() string {
	if s == SeverityHigh {
		return "high"
	}
	return "medium"
}

// IssueKind names the rule an issue came from.
type IssueKind string

// Issue kinds.
const (
	IssueLowScore       IssueKind = "low-score"
	IssueDecliningTrend IssueKind = "declining-trend"
	IssueLowEfficiency  IssueKind = "low-efficiency"
	IssueFewRotations   IssueKind = "few-rotations"
	IssueLowProgress    IssueKind = "low-progress"
)

// Issue is one matched weak-subject rule.
type Issue struct {
	Kind     IssueKind
	Message  string
	Severity Severity
}

// WeakSubject is a subject with at least one issue.
type WeakSubject struct {
	Subject  SubjectProgress
	Issues   []Issue
	Severity Severity
}

// WeakPolicy holds the weak-subject thresholds.
type WeakPolicy struct {
	ScoreBelow      float64
	EfficiencyBelow float64
	MinRotations    int
	ProgressBelow   float64
}

// DefaultWeakPolicy returns the standard thresholds.
func DefaultWeakPolicy() WeakPolicy {
	return WeakPolicy{
		ScoreBelow:      60,
		EfficiencyBelow: 50,
		MinRotations:    3,
		ProgressBelow:   50,
	}
}

// Issues returns every rule the subject matches.
func (p WeakPolicy) Issues(s SubjectProgress) []Issue {
	var issues []Issue
	if s.AverageScore > 0 && s.AverageScore < p.ScoreBelow {
		issues = append(issues, Issue{
			Kind:     IssueLowScore,
			Message:  fmt.Sprintf("average score %.1f%% is below %.0f%%", s.AverageScore, p.ScoreBelow),
			Severity: SeverityHigh,
		})
	}
	if s.Trend == TrendDown {
		issues = append(issues, Issue{
			Kind:     IssueDecliningTrend,
			Message:  "recent scores are declining",
			Severity: SeverityHigh,
		})
	}
	if s.Efficiency > 0 && s.Efficiency < p.EfficiencyBelow {
		issues = append(issues, Issue{
			Kind:     IssueLowEfficiency,
			Message:  fmt.Sprintf("efficiency %.1f%% is below %.0f%%", s.Efficiency, p.EfficiencyBelow),
			Severity: SeverityMedium,
		})
	}
	if s.RotationsCompleted < p.MinRotations {
		issues = append(issues, Issue{
			Kind:     IssueFewRotations,
			Message:  fmt.Sprintf("%d of %d required rotations completed", s.RotationsCompleted, p.MinRotations),
			Severity: SeverityMedium,
		})
	}
	if s.ProgressPercent < p.ProgressBelow {
		issues = append(issues, Issue{
			Kind:     IssueLowProgress,
			Message:  fmt.Sprintf("progress %.1f%% is below %.0f%%", s.ProgressPercent, p.ProgressBelow),
			Severity: SeverityMedium,
		})
	}
	return issues
}

// WeakSubjects returns subjects with at least one issue, high severity first.
// Order within a severity follows the input.
func WeakSubjects(subjects []SubjectProgress, policy WeakPolicy) []WeakSubject {
	var out []WeakSubject
	for _, s := range subjects {
		issues := policy.Issues(s)
		if len(issues) == 0 {
			continue
		}
		severity := SeverityMedium
		for _, is := range issues {
			if is.Severity < severity {
				severity = is.Severity
			}
		}
		out = append(out, WeakSubject{Subject: s, Issues: issues, Severity: severity})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Severity < out[j].Severity
	})
	return out
}
