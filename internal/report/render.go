package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/verte-zerg/studylog/internal/stats"
)

// RenderToday prints the day analysis.
func RenderToday(w io.Writer, t TodayReport) error {
	s := t.Session
	lines := []string{
		fmt.Sprintf("Today %s: %s", s.Date, t.Status),
		fmt.Sprintf("Completed: %.1fh of %.1fh planned (%d/%d intervals)",
			s.TotalCompletedHours, s.TotalPlannedHours, s.CompletedCount, s.IntervalCount),
		fmt.Sprintf("Efficiency: %.1f%%", s.Efficiency()),
		comparisonLine(t.Benchmark),
	}
	if len(s.SubjectHours) > 0 {
		names := make([]string, 0, len(s.SubjectHours))
		for name := range s.SubjectHours {
			names = append(names, name)
		}
		sort.Strings(names)
		rows := make([][]string, 0, len(names))
		for _, name := range names {
			rows = append(rows, []string{name, fmt.Sprintf("%.1fh", s.SubjectHours[name])})
		}
		lines = append(lines, "")
		lines = append(lines, stats.FormatTable([]string{"Subject", "Done"}, rows, map[int]bool{1: true})...)
	}
	lines = append(lines, "", t.Advice, "")
	return stats.WriteLines(w, lines)
}

func comparisonLine(c Comparison) string {
	mark := "below target"
	if c.Met {
		mark = "target met"
	}
	return fmt.Sprintf("Benchmark (%s): %.1fh / %.1fh = %.1f%% (%s)", c.Period, c.Actual, c.Target, c.Ratio, mark)
}

// RenderPeriodReport prints a week or month analysis.
func RenderPeriodReport(w io.Writer, title string, r PeriodReport) error {
	if err := stats.RenderPeriod(w, title, r.Summary); err != nil {
		return err
	}
	lines := []string{comparisonLine(r.Benchmark)}
	if r.AverageScore > 0 {
		lines = append(lines, fmt.Sprintf("Average mock score: %.1f%%", r.AverageScore))
	}
	if len(r.Subjects) > 0 {
		rows := make([][]string, 0, len(r.Subjects))
		for _, s := range r.Subjects {
			rows = append(rows, []string{s.Name, fmt.Sprintf("%.1fh", s.Hours), fmt.Sprint(s.Intervals)})
		}
		lines = append(lines, "")
		lines = append(lines, stats.FormatTable([]string{"Subject", "Done", "Intervals"}, rows, map[int]bool{1: true, 2: true})...)
	}
	return stats.WriteLines(w, append(lines, ""))
}

// RenderMilestone prints the next milestone line.
func RenderMilestone(w io.Writer, m Milestone) error {
	var line string
	switch {
	case m.Reached:
		line = fmt.Sprintf("Target of %.0fh reached (%.1fh studied).", m.Target, m.Current)
	case m.DaysNeeded > 0:
		line = fmt.Sprintf("Next milestone: %.0fh, %.1fh to go (about %d days).", m.Target, m.Remaining, m.DaysNeeded)
	default:
		line = fmt.Sprintf("Next milestone: %.0fh, %.1fh to go.", m.Target, m.Remaining)
	}
	_, err := fmt.Fprintln(w, line)
	return err
}

// RenderPatterns prints one row per subject pattern.
func RenderPatterns(w io.Writer, patterns []Pattern) error {
	if len(patterns) == 0 {
		_, err := fmt.Fprintln(w, "No subjects found.")
		return err
	}
	headers := []string{"Subject", "Sessions", "Avg", "Last", "Days ago", "This week", "Pace", "ETA"}
	rows := make([][]string, 0, len(patterns))
	for _, p := range patterns {
		last, since := "-", "-"
		if p.LastStudy != "" {
			last = p.LastStudy
			since = fmt.Sprint(p.DaysSince)
		}
		eta := "-"
		switch {
		case p.Complete():
			eta = "done"
		case p.EstimatedDays >= 0:
			eta = fmt.Sprintf("%dd", p.EstimatedDays)
		}
		rows = append(rows, []string{
			p.Subject,
			fmt.Sprint(p.Sessions),
			fmt.Sprintf("%.1fh", p.AverageSessionHours),
			last,
			since,
			fmt.Sprint(p.SessionsThisWeek),
			string(p.Pace),
			eta,
		})
	}
	lines := stats.FormatTable(headers, rows, map[int]bool{1: true, 2: true, 4: true, 5: true, 7: true})
	return stats.WriteLines(w, append(lines, ""))
}

// RenderPlans prints the improvement plan of each weak subject in weak order.
func RenderPlans(w io.Writer, weak []stats.WeakSubject, plans map[string][]Action) error {
	var lines []string
	for _, ws := range weak {
		actions := plans[ws.Subject.Name]
		if len(actions) == 0 {
			continue
		}
		lines = append(lines, ws.Subject.Name)
		for _, a := range actions {
			lines = append(lines, fmt.Sprintf("  [%s] %s (%s, %s)", a.Priority, a.Title, a.Timeline, a.Expected))
			lines = append(lines, "      "+a.Detail)
		}
	}
	if len(lines) == 0 {
		return nil
	}
	return stats.WriteLines(w, append(lines, ""))
}

// RenderRecommendations prints numbered advice.
func RenderRecommendations(w io.Writer, recs []Recommendation) error {
	if len(recs) == 0 {
		_, err := fmt.Fprintln(w, "No recommendations. Keep it up.")
		return err
	}
	var lines []string
	for _, r := range recs {
		lines = append(lines, fmt.Sprintf("%d. %s", r.Priority, r.Title))
		lines = append(lines, "   "+r.Detail)
		for _, a := range r.Actions {
			lines = append(lines, "   - "+a)
		}
	}
	return stats.WriteLines(w, append(lines, ""))
}

// Render prints the comprehensive report.
func Render(w io.Writer, r Report) error {
	e := r.Efficiency
	header := []string{
		fmt.Sprintf("Study report %s (profile %s)", r.Date, r.Profile),
		fmt.Sprintf("Efficiency score: %d (%s)", e.Overall, r.Grade),
		fmt.Sprintf("  time %.0f, progress %.0f, scores %.0f, streak %.0f", e.Time, e.Progress, e.Score, e.Streak),
		fmt.Sprintf("Active streak: %d days", r.ActiveStreak),
		"",
	}
	if err := stats.WriteLines(w, header); err != nil {
		return err
	}
	if err := RenderToday(w, r.Today); err != nil {
		return err
	}
	if err := RenderPeriodReport(w, "This week", r.Week); err != nil {
		return err
	}
	if err := section(w, "Subjects"); err != nil {
		return err
	}
	if err := stats.RenderSubjects(w, r.Subjects); err != nil {
		return err
	}
	if err := section(w, "Weak subjects"); err != nil {
		return err
	}
	if err := stats.RenderWeakSubjects(w, r.Weak); err != nil {
		return err
	}
	if err := RenderPlans(w, r.Weak, r.Plans); err != nil {
		return err
	}
	if err := section(w, "Patterns"); err != nil {
		return err
	}
	if err := RenderPatterns(w, r.Patterns); err != nil {
		return err
	}
	if err := section(w, "Recommendations"); err != nil {
		return err
	}
	if err := RenderRecommendations(w, r.Recommendations); err != nil {
		return err
	}
	return RenderMilestone(w, r.Milestone)
}

func section(w io.Writer, title string) error {
	_, err := fmt.Fprintf(w, "%s\n%s\n", title, strings.Repeat("-", len(title)))
	return err
}
