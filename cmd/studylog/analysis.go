package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/studylog/internal/calendar"
	"github.com/verte-zerg/studylog/internal/model"
	"github.com/verte-zerg/studylog/internal/report"
	"github.com/verte-zerg/studylog/internal/stats"
)

const defaultChartDays = 14

var (
	analysisDate string

	weakScoreBelow      float64
	weakEfficiencyBelow float64
	weakProgressBelow   float64

	chartDays  int
	chartColor bool
)

func newTodayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "today",
		Short: "Show the day against the daily benchmark",
		Args:  cobra.NoArgs,
		RunE:  runTodayCmd,
	}
	cmd.Flags().StringVar(&analysisDate, "date", "", "day to show (default: today)")
	return cmd
}

// dayArg returns --date when the command defines and sets it, else today.
func dayArg(cmd *cobra.Command, a *app) (string, error) {
	if f := cmd.Flags().Lookup("date"); f == nil || !f.Changed {
		return a.repo.Today(), nil
	}
	if !calendar.Valid(analysisDate) {
		return "", fmt.Errorf("invalid --date %q (expected YYYY-MM-DD)", analysisDate)
	}
	return analysisDate, nil
}

func runTodayCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	b, err := a.benchmark()
	if err != nil {
		return err
	}
	day, err := dayArg(cmd, a)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if err := report.RenderToday(out, report.Today(a.repo.Intervals(), day, b)); err != nil {
		return err
	}
	return renderStreakLine(out, a.repo.Streak(), a.repo.Today())
}

func renderStreakLine(w io.Writer, s model.StreakState, today string) error {
	active := stats.ActiveStreak(s, today)
	line := fmt.Sprintf("Streak: %d days (longest %d, %d study days total)", active, s.LongestLength, s.TotalStudyDays)
	if active == 0 && s.CurrentLength > 0 {
		line += faint(fmt.Sprintf(" last studied %s", s.LastStudyDate))
	}
	_, err := fmt.Fprintln(w, line)
	return err
}

func newWeekCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "week",
		Short: "Summarize the Monday-based week",
		Args:  cobra.NoArgs,
		RunE:  runWeekCmd,
	}
	cmd.Flags().StringVar(&analysisDate, "date", "", "any day of the week (default: today)")
	return cmd
}

func runWeekCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	b, err := a.benchmark()
	if err != nil {
		return err
	}
	day, err := dayArg(cmd, a)
	if err != nil {
		return err
	}
	r, err := report.Week(a.repo.Intervals(), a.repo.Scores(), day, b)
	if err != nil {
		return err
	}
	return report.RenderPeriodReport(cmd.OutOrStdout(), "Week", r)
}

func newMonthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "month [YYYY-MM]",
		Short: "Summarize a calendar month",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runMonthCmd,
	}
}

func runMonthCmd(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	b, err := a.benchmark()
	if err != nil {
		return err
	}
	month := calendar.MonthOf(a.repo.Today())
	if len(args) == 1 {
		month = args[0]
	}
	r, err := report.Month(a.repo.Intervals(), a.repo.Scores(), month, b)
	if err != nil {
		return err
	}
	return report.RenderPeriodReport(cmd.OutOrStdout(), "Month "+month, r)
}

func (a *app) subjectProgress(b report.Benchmark) []stats.SubjectProgress {
	d := a.data()
	return stats.AllSubjectProgress(d.Plan, d.Intervals, d.Scores, d.Trackers, b.SubjectHours)
}

func newSubjectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "subjects",
		Short: "Show progress per subject",
		Args:  cobra.NoArgs,
		RunE:  runSubjectsCmd,
	}
}

func runSubjectsCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	b, err := a.benchmark()
	if err != nil {
		return err
	}
	return stats.RenderSubjects(cmd.OutOrStdout(), a.subjectProgress(b))
}

func newWeakCmd() *cobra.Command {
	defaults := stats.DefaultWeakPolicy()
	cmd := &cobra.Command{
		Use:   "weak",
		Short: "List weak subjects with improvement plans",
		Args:  cobra.NoArgs,
		RunE:  runWeakCmd,
	}
	cmd.Flags().Float64Var(&weakScoreBelow, "score-below", defaults.ScoreBelow, "flag average mock scores below this percent")
	cmd.Flags().Float64Var(&weakEfficiencyBelow, "efficiency-below", defaults.EfficiencyBelow, "flag efficiency below this percent")
	cmd.Flags().Float64Var(&weakProgressBelow, "progress-below", defaults.ProgressBelow, "flag progress below this percent")
	return cmd
}

func runWeakCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	applyFloatConfig(cmd, "score-below", &weakScoreBelow, a.cfg.Policy.WeakScore)
	applyFloatConfig(cmd, "efficiency-below", &weakEfficiencyBelow, a.cfg.Policy.WeakEfficiency)
	applyFloatConfig(cmd, "progress-below", &weakProgressBelow, a.cfg.Policy.WeakProgress)
	policy := a.policy
	policy.ScoreBelow = weakScoreBelow
	policy.EfficiencyBelow = weakEfficiencyBelow
	policy.ProgressBelow = weakProgressBelow

	b, err := a.benchmark()
	if err != nil {
		return err
	}
	weak := stats.WeakSubjects(a.subjectProgress(b), policy)
	out := cmd.OutOrStdout()
	if err := stats.RenderWeakSubjects(out, weak); err != nil {
		return err
	}
	if len(weak) == 0 {
		return nil
	}
	plans := make(map[string][]report.Action, len(weak))
	for _, ws := range weak {
		plans[ws.Subject.Name] = report.ImprovementPlan(ws.Subject, policy, b)
	}
	if err := report.RenderPlans(out, weak, plans); err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, color.YellowString(report.WeakSummary(weak)))
	return err
}

func newPatternsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "patterns",
		Short: "Show study rhythm and pace per subject",
		Args:  cobra.NoArgs,
		RunE:  runPatternsCmd,
	}
}

func runPatternsCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	b, err := a.benchmark()
	if err != nil {
		return err
	}
	patterns := report.SubjectPatterns(a.repo.Intervals(), a.subjectProgress(b), a.repo.Today())
	return report.RenderPatterns(cmd.OutOrStdout(), patterns)
}

func newReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Full analysis with recommendations",
		Args:  cobra.NoArgs,
		RunE:  runReportCmd,
	}
}

func runReportCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	opts, err := a.reportOptions()
	if err != nil {
		return err
	}
	r, err := report.Build(a.data(), a.repo.Today(), opts)
	if err != nil {
		return err
	}
	return report.Render(cmd.OutOrStdout(), r)
}

func newChartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Draw daily completed and planned hours",
		Args:  cobra.NoArgs,
		RunE:  runChartCmd,
	}
	cmd.Flags().IntVar(&chartDays, "days", defaultChartDays, "number of days ending today")
	cmd.Flags().BoolVar(&chartColor, "color", false, "force colour output")
	return cmd
}

func runChartCmd(cmd *cobra.Command, _ []string) error {
	if chartDays <= 0 {
		return fmt.Errorf("--days must be > 0")
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	today := a.repo.Today()
	first := calendar.AddDays(today, -(chartDays - 1))
	days, err := stats.DailyHours(a.repo.Intervals(), first, today)
	if err != nil {
		return err
	}
	title := fmt.Sprintf("Daily hours %s .. %s", first, today)
	return stats.RenderDailyBars(cmd.OutOrStdout(), title, days, 0, chartColor)
}

func newStreakCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "streak",
		Short: "Show the study streak",
		Args:  cobra.NoArgs,
		RunE:  runStreakCmd,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "rebuild",
		Short: "Recompute the streak from the whole interval log",
		Args:  cobra.NoArgs,
		RunE:  runStreakRebuildCmd,
	})
	return cmd
}

func runStreakCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	return renderStreakLine(cmd.OutOrStdout(), a.repo.Streak(), a.repo.Today())
}

func runStreakRebuildCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	before, after := a.repo.RebuildStreak()
	warnPersist(a)
	if before == after {
		success("Streak already matches the log")
	} else {
		success("Streak rebuilt: current %d -> %d, longest %d -> %d, study days %d -> %d",
			before.CurrentLength, after.CurrentLength,
			before.LongestLength, after.LongestLength,
			before.TotalStudyDays, after.TotalStudyDays)
	}
	return renderStreakLine(cmd.OutOrStdout(), after, a.repo.Today())
}
