package report

import (
	"fmt"
	"strings"

	"github.com/verte-zerg/studylog/internal/model"
	"github.com/verte-zerg/studylog/internal/stats"
)

// Recommendation is one prioritized piece of advice. Lower Priority comes
// first.
type Recommendation struct {
	Priority int
	Title    string
	Detail   string
	Actions  []string
}

const (
	lowEfficiencyBelow = 60
	minWeeklyStudyDays = 5
	maxListedSubjects  = 3
	maxSlowSubjects    = 2
)

// Recommendations builds advice from the composite score, weak subjects,
// subject patterns and the current week.
func Recommendations(eff stats.EfficiencyScore, weak []stats.WeakSubject, patterns []Pattern, week stats.PeriodSummary) []Recommendation {
	var out []Recommendation
	if eff.Overall < lowEfficiencyBelow {
		out = append(out, Recommendation{
			Priority: 1,
			Title:    "Improve overall study efficiency",
			Detail:   fmt.Sprintf("Your efficiency score is %d. Review how you study and protect focus time.", eff.Overall),
			Actions: []string{
				"Study at a fixed time every day",
				"Go deep on one subject at a time",
				"Repeat the problems you got wrong",
			},
		})
	}
	if len(weak) > 0 {
		actions := make([]string, 0, maxListedSubjects)
		for i, ws := range weak {
			if i == maxListedSubjects {
				break
			}
			msgs := make([]string, len(ws.Issues))
			for j, is := range ws.Issues {
				msgs[j] = is.Message
			}
			actions = append(actions, ws.Subject.Name+": "+strings.Join(msgs, ", "))
		}
		out = append(out, Recommendation{
			Priority: 2,
			Title:    fmt.Sprintf("Focus on %d weak subjects", len(weak)),
			Detail:   WeakSummary(weak),
			Actions:  actions,
		})
	}
	var slow []Pattern
	for _, p := range patterns {
		if p.SlowPaced() {
			slow = append(slow, p)
			if len(slow) == maxSlowSubjects {
				break
			}
		}
	}
	if len(slow) > 0 {
		names := make([]string, len(slow))
		actions := make([]string, len(slow))
		for i, p := range slow {
			names[i] = p.Subject
			if p.EstimatedDays < 0 {
				actions[i] = p.Subject + ": start studying at least 3 days a week"
			} else {
				actions[i] = fmt.Sprintf("%s: study at least 3 days a week (about %d days to finish)", p.Subject, p.EstimatedDays)
			}
		}
		out = append(out, Recommendation{
			Priority: 3,
			Title:    "Pick up slow subjects",
			Detail:   strings.Join(names, ", ") + " progressing slowly.",
			Actions:  actions,
		})
	}
	if week.StudyDays < minWeeklyStudyDays {
		out = append(out, Recommendation{
			Priority: 4,
			Title:    "Study more consistently",
			Detail:   fmt.Sprintf("You studied %d days this week. Aim for 6 or more.", week.StudyDays),
			Actions: []string{
				"Plan the week ahead",
				"Set a minimum daily study time",
				"Keep a study calendar",
			},
		})
	}
	return out
}

// WeakSummary counts weak subjects, issues and severities in one line.
func WeakSummary(weak []stats.WeakSubject) string {
	issues, high, medium := 0, 0, 0
	for _, ws := range weak {
		issues += len(ws.Issues)
		switch ws.Severity {
		case stats.SeverityHigh:
			high++
		case stats.SeverityMedium:
			medium++
		}
	}
	return fmt.Sprintf("%d issues across %d subjects (%d high, %d medium).", issues, len(weak), high, medium)
}

// Data is the document content a report reads.
type Data struct {
	Intervals []model.Interval
	Scores    []model.Score
	Trackers  map[string]model.RotationTracker
	Streak    model.StreakState
	Plan      []string
}

// Options select the benchmark and analysis policies.
type Options struct {
	Benchmark Benchmark
	Policy    stats.WeakPolicy
	Weights   stats.Weights
}

// Report is the comprehensive analysis for one day.
type Report struct {
	Date            string
	Profile         string
	Efficiency      stats.EfficiencyScore
	Grade           string
	ActiveStreak    int
	Today           TodayReport
	Week            PeriodReport
	Subjects        []stats.SubjectProgress
	Weak            []stats.WeakSubject
	Plans           map[string][]Action
	Patterns        []Pattern
	Recommendations []Recommendation
	Milestone       Milestone
}

// Build derives the full report for today.
func Build(d Data, today string, opts Options) (Report, error) {
	b := opts.Benchmark
	subjects := stats.AllSubjectProgress(d.Plan, d.Intervals, d.Scores, d.Trackers, b.SubjectHours)
	eff := stats.OverallEfficiency(stats.EfficiencyInput{
		Subjects:     subjects,
		Scores:       d.Scores,
		StudyDays:    len(stats.StudyDays(d.Intervals)),
		MinStudyDays: b.MinStudyDays,
	}, opts.Weights)
	week, err := Week(d.Intervals, d.Scores, today, b)
	if err != nil {
		return Report{}, err
	}
	weak := stats.WeakSubjects(subjects, opts.Policy)
	plans := make(map[string][]Action, len(weak))
	for _, ws := range weak {
		plans[ws.Subject.Name] = ImprovementPlan(ws.Subject, opts.Policy, b)
	}
	patterns := SubjectPatterns(d.Intervals, subjects, today)
	return Report{
		Date:            today,
		Profile:         b.Name,
		Efficiency:      eff,
		Grade:           stats.Grade(eff.Overall),
		ActiveStreak:    stats.ActiveStreak(d.Streak, today),
		Today:           Today(d.Intervals, today, b),
		Week:            week,
		Subjects:        subjects,
		Weak:            weak,
		Plans:           plans,
		Patterns:        patterns,
		Recommendations: Recommendations(eff, weak, patterns, week.Summary),
		Milestone: NextMilestone(stats.TotalCompletedHours(d.Intervals),
			stats.AverageDailyHours(d.Intervals), b),
	}, nil
}
