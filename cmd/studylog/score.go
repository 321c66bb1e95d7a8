package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/studylog/internal/model"
	"github.com/verte-zerg/studylog/internal/stats"
)

var (
	scoreDate    string
	scoreRound   int
	scoreMax     float64
	scoreCorrect int
	scoreTotal   int
	scoreNotes   string
	scoreSubject string

	rotationHours float64
)

func newScoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Record and list mock exam scores",
	}
	add := &cobra.Command{
		Use:   "add <subject> <score>",
		Short: "Record a mock exam score",
		Args:  cobra.ExactArgs(2),
		RunE:  runScoreAddCmd,
	}
	add.Flags().StringVar(&scoreDate, "date", "", "exam day (default: today)")
	add.Flags().IntVar(&scoreRound, "round", 1, "mock exam round (1-10)")
	add.Flags().Float64Var(&scoreMax, "max", 100, "maximum score")
	add.Flags().IntVar(&scoreCorrect, "correct", 0, "correct answers")
	add.Flags().IntVar(&scoreTotal, "total", 0, "total questions")
	add.Flags().StringVar(&scoreNotes, "notes", "", "free text notes")

	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List mock exam scores",
		Args:    cobra.NoArgs,
		RunE:    runScoreListCmd,
	}
	list.Flags().StringVar(&scoreSubject, "subject", "", "only this subject")

	remove := &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Remove a score",
		Args:    cobra.ExactArgs(1),
		RunE:    runScoreRemoveCmd,
	}

	cmd.AddCommand(add, list, remove)
	return cmd
}

func runScoreAddCmd(cmd *cobra.Command, args []string) error {
	value, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid score %q: %w", args[1], err)
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	date := scoreDate
	if date == "" {
		date = a.repo.Today()
	}
	s, err := a.repo.AddScore(model.ScoreInput{
		Date:         date,
		Subject:      args[0],
		Round:        scoreRound,
		Score:        value,
		MaxScore:     scoreMax,
		CorrectCount: scoreCorrect,
		TotalCount:   scoreTotal,
		Notes:        scoreNotes,
	})
	if err != nil {
		return err
	}
	warnPersist(a)
	success("Recorded %s round %d: %.1f/%.0f (%.1f%%) %s", s.Subject, s.Round, s.Score, s.MaxScore, s.Percent(), faint(shortID(s.ID)))
	return nil
}

func runScoreListCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	scores := a.repo.Scores()
	if scoreSubject != "" {
		scores = a.repo.ScoresFor(scoreSubject)
	}
	out := cmd.OutOrStdout()
	if len(scores) == 0 {
		_, err := fmt.Fprintln(out, "No scores found.")
		return err
	}
	rows := make([][]string, 0, len(scores))
	for _, s := range scores {
		answers := "-"
		if s.TotalCount > 0 {
			answers = fmt.Sprintf("%d/%d", s.CorrectCount, s.TotalCount)
		}
		rows = append(rows, []string{
			shortID(s.ID),
			s.Date,
			s.Subject,
			strconv.Itoa(s.Round),
			fmt.Sprintf("%.1f/%.0f", s.Score, s.MaxScore),
			fmt.Sprintf("%.1f%%", s.Percent()),
			answers,
			s.Notes,
		})
	}
	lines := stats.FormatTable([]string{"ID", "Date", "Subject", "Round", "Score", "Percent", "Answers", "Notes"}, rows, map[int]bool{3: true, 4: true, 5: true, 6: true})
	return stats.WriteLines(out, lines)
}

func runScoreRemoveCmd(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := resolveScoreID(a.repo.Scores(), args[0])
	if err != nil {
		return err
	}
	if !a.repo.RemoveScore(id) {
		return fmt.Errorf("score %s not found", args[0])
	}
	warnPersist(a)
	success("Removed score %s", shortID(id))
	return nil
}

func resolveScoreID(scores []model.Score, ref string) (string, error) {
	ids := make([]string, len(scores))
	for i, s := range scores {
		ids[i] = s.ID
	}
	return resolveID("score", ids, ref)
}

func newRotationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rotation",
		Aliases: []string{"rot"},
		Short:   "Track passes through a subject's material",
	}
	show := &cobra.Command{
		Use:   "show [subject]",
		Short: "Show rotation passes for one or all subjects",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runRotationShowCmd,
	}
	complete := &cobra.Command{
		Use:   "complete <subject> <round>",
		Short: "Mark a pass completed today",
		Args:  cobra.ExactArgs(2),
		RunE:  runRotationCompleteCmd,
	}
	toggle := &cobra.Command{
		Use:   "toggle <subject> <round>",
		Short: "Flip a pass between done and not done",
		Args:  cobra.ExactArgs(2),
		RunE:  runRotationToggleCmd,
	}
	hours := &cobra.Command{
		Use:   "hours <subject> <round>",
		Short: "Attribute study hours to a pass",
		Args:  cobra.ExactArgs(2),
		RunE:  runRotationHoursCmd,
	}
	hours.Flags().Float64Var(&rotationHours, "hours", 0, "hours to add")
	cmd.AddCommand(show, complete, toggle, hours)
	return cmd
}

func parseRound(value string) (int, error) {
	round, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid round %q: %w", value, err)
	}
	return round, nil
}

func runRotationShowCmd(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	var trackers []model.RotationTracker
	if len(args) == 1 {
		t, err := a.repo.Tracker(args[0])
		if err != nil {
			return err
		}
		trackers = append(trackers, t)
	} else {
		all := a.repo.Trackers()
		for _, name := range a.repo.Subjects() {
			if t, ok := all[name]; ok {
				trackers = append(trackers, t)
			}
		}
	}
	out := cmd.OutOrStdout()
	if len(trackers) == 0 {
		_, err := fmt.Fprintln(out, "No rotations tracked yet.")
		return err
	}
	var lines []string
	for _, t := range trackers {
		lines = append(lines, fmt.Sprintf("%s  %d/%d (%.0f%%)", t.Subject, t.CompletedCount(), len(t.Slots), t.ProgressPercent()))
		rows := make([][]string, 0, len(t.Slots))
		for _, s := range t.Slots {
			date := "-"
			if s.Date != "" {
				date = s.Date
			}
			rows = append(rows, []string{strconv.Itoa(s.Round), completedMark(s.Completed), date, fmt.Sprintf("%.1fh", s.StudyHours)})
		}
		lines = append(lines, stats.FormatTable([]string{"Round", "State", "Date", "Hours"}, rows, map[int]bool{0: true, 3: true})...)
		lines = append(lines, "")
	}
	return stats.WriteLines(out, lines)
}

func runRotationCompleteCmd(cmd *cobra.Command, args []string) error {
	return mutateRotation(cmd, args, "completed", func(a *app, subject string, round int) (model.RotationTracker, error) {
		return a.repo.CompleteRotation(subject, round)
	})
}

func runRotationToggleCmd(cmd *cobra.Command, args []string) error {
	return mutateRotation(cmd, args, "toggled", func(a *app, subject string, round int) (model.RotationTracker, error) {
		return a.repo.ToggleRotation(subject, round)
	})
}

func runRotationHoursCmd(cmd *cobra.Command, args []string) error {
	if rotationHours <= 0 {
		return fmt.Errorf("--hours must be > 0")
	}
	return mutateRotation(cmd, args, "updated", func(a *app, subject string, round int) (model.RotationTracker, error) {
		return a.repo.AttributeRotationHours(subject, round, rotationHours)
	})
}

func mutateRotation(cmd *cobra.Command, args []string, verb string, fn func(*app, string, int) (model.RotationTracker, error)) error {
	round, err := parseRound(args[1])
	if err != nil {
		return err
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	t, err := fn(a, args[0], round)
	if err != nil {
		return err
	}
	warnPersist(a)
	success("%s round %d %s, %d/%d passes done", t.Subject, round, verb, t.CompletedCount(), len(t.Slots))
	return nil
}
