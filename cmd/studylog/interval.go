package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/studylog/internal/calendar"
	"github.com/verte-zerg/studylog/internal/model"
	"github.com/verte-zerg/studylog/internal/stats"
)

const shortIDLen = 8

var (
	addDate  string
	addDone  bool
	addNote  string
	addHours float64

	listDate string
	listFrom string
	listTo   string

	editDate    string
	editSubject string
	editStart   string
	editEnd     string
	editHours   float64
	editDone    bool
	editNote    string
	editJSON    string
)

func newAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <subject> <start> <end>",
		Short: "Log a study interval (times as HH:MM)",
		Args:  cobra.ExactArgs(3),
		RunE:  runAddCmd,
	}
	cmd.Flags().StringVar(&addDate, "date", "", "day of the interval (default: today)")
	cmd.Flags().BoolVar(&addDone, "done", false, "mark the interval completed")
	cmd.Flags().StringVar(&addNote, "note", "", "free text note")
	cmd.Flags().Float64Var(&addHours, "hours", 0, "duration in hours (default: end - start)")
	return cmd
}

func runAddCmd(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	date := addDate
	if date == "" {
		date = a.repo.Today()
	}
	iv, err := a.repo.AddInterval(model.IntervalInput{
		Date:          date,
		Subject:       args[0],
		StartTime:     args[1],
		EndTime:       args[2],
		DurationHours: addHours,
		Completed:     addDone,
		Note:          addNote,
	})
	if err != nil {
		return err
	}
	warnPersist(a)
	success("Added %s %s %s-%s (%.1fh) %s", iv.Date, iv.Subject, iv.StartTime, iv.EndTime, iv.DurationHours, faint(shortID(iv.ID)))
	return nil
}

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"log", "ls"},
		Short:   "List logged intervals",
		Args:    cobra.NoArgs,
		RunE:    runListCmd,
	}
	cmd.Flags().StringVar(&listDate, "date", "", "single day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&listFrom, "from", "", "first day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&listTo, "to", "", "last day (YYYY-MM-DD)")
	return cmd
}

func runListCmd(cmd *cobra.Command, _ []string) error {
	from, to := listFrom, listTo
	if listDate != "" {
		from, to = listDate, listDate
	}
	for _, day := range []string{from, to} {
		if day != "" && !calendar.Valid(day) {
			return fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", day)
		}
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	var rows [][]string
	for _, iv := range a.repo.Intervals() {
		if (from != "" && iv.Date < from) || (to != "" && iv.Date > to) {
			continue
		}
		rows = append(rows, []string{
			shortID(iv.ID),
			iv.Date,
			iv.StartTime + "-" + iv.EndTime,
			iv.Subject,
			fmt.Sprintf("%.1fh", iv.DurationHours),
			completedMark(iv.Completed),
			iv.Note,
		})
	}
	out := cmd.OutOrStdout()
	if len(rows) == 0 {
		_, err := fmt.Fprintln(out, "No intervals found.")
		return err
	}
	lines := stats.FormatTable([]string{"ID", "Date", "Time", "Subject", "Hours", "Done", "Note"}, rows, map[int]bool{4: true})
	return stats.WriteLines(out, lines)
}

func newToggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Flip an interval between planned and completed",
		Args:  cobra.ExactArgs(1),
		RunE:  runToggleCmd,
	}
}

func runToggleCmd(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := resolveIntervalID(a.repo.Intervals(), args[0])
	if err != nil {
		return err
	}
	iv, ok := a.repo.ToggleInterval(id)
	if !ok {
		return fmt.Errorf("interval %s not found", args[0])
	}
	warnPersist(a)
	state := "planned"
	if iv.Completed {
		state = "completed"
	}
	success("%s %s %s-%s is now %s", iv.Date, iv.Subject, iv.StartTime, iv.EndTime, state)
	return nil
}

func newEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of an interval",
		Long: `Change fields of an interval. Only the flags given are applied;
--json takes the same fields as a JSON object, for example
  studylog edit 1a2b3c4d --json '{"endTime":"12:30","completed":true}'`,
		Args: cobra.ExactArgs(1),
		RunE: runEditCmd,
	}
	cmd.Flags().StringVar(&editDate, "date", "", "new day")
	cmd.Flags().StringVar(&editSubject, "subject", "", "new subject")
	cmd.Flags().StringVar(&editStart, "start", "", "new start time")
	cmd.Flags().StringVar(&editEnd, "end", "", "new end time")
	cmd.Flags().Float64Var(&editHours, "hours", 0, "new duration in hours")
	cmd.Flags().BoolVar(&editDone, "done", false, "completed state")
	cmd.Flags().StringVar(&editNote, "note", "", "new note")
	cmd.Flags().StringVar(&editJSON, "json", "", "update as a JSON object")
	return cmd
}

func runEditCmd(cmd *cobra.Command, args []string) error {
	u, err := intervalUpdateFromFlags(cmd)
	if err != nil {
		return err
	}
	if u.IsEmpty() {
		return fmt.Errorf("nothing to change (use flags or --json)")
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := resolveIntervalID(a.repo.Intervals(), args[0])
	if err != nil {
		return err
	}
	iv, ok, err := a.repo.UpdateInterval(id, u)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("interval %s not found", args[0])
	}
	warnPersist(a)
	success("Updated %s %s %s-%s (%.1fh)", iv.Date, iv.Subject, iv.StartTime, iv.EndTime, iv.DurationHours)
	return nil
}

func intervalUpdateFromFlags(cmd *cobra.Command) (model.IntervalUpdate, error) {
	var u model.IntervalUpdate
	if editJSON != "" {
		parsed, err := model.ParseIntervalUpdate([]byte(editJSON))
		if err != nil {
			return model.IntervalUpdate{}, err
		}
		u = parsed
	}
	flags := cmd.Flags()
	if flags.Changed("date") {
		u.Date = &editDate
	}
	if flags.Changed("subject") {
		u.Subject = &editSubject
	}
	if flags.Changed("start") {
		u.StartTime = &editStart
	}
	if flags.Changed("end") {
		u.EndTime = &editEnd
	}
	if flags.Changed("hours") {
		u.DurationHours = &editHours
	}
	if flags.Changed("done") {
		u.Completed = &editDone
	}
	if flags.Changed("note") {
		u.Note = &editNote
	}
	return u, nil
}

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Remove an interval",
		Args:    cobra.ExactArgs(1),
		RunE:    runRemoveCmd,
	}
}

func runRemoveCmd(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := resolveIntervalID(a.repo.Intervals(), args[0])
	if err != nil {
		return err
	}
	if !a.repo.RemoveInterval(id) {
		return fmt.Errorf("interval %s not found", args[0])
	}
	warnPersist(a)
	success("Removed %s", shortID(id))
	return nil
}

// resolveID accepts a full ID or a unique prefix of one.
func resolveID(kind string, ids []string, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("%s id is empty", kind)
	}
	var matches []string
	for _, id := range ids {
		if id == ref {
			return ref, nil
		}
		if strings.HasPrefix(id, ref) {
			matches = append(matches, id)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%s %s not found", kind, ref)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%s id %s is ambiguous (%d matches)", kind, ref, len(matches))
	}
}

func resolveIntervalID(log []model.Interval, ref string) (string, error) {
	ids := make([]string, len(log))
	for i, iv := range log {
		ids[i] = iv.ID
	}
	return resolveID("interval", ids, ref)
}

func shortID(id string) string {
	if len(id) <= shortIDLen {
		return id
	}
	return id[:shortIDLen]
}

// completedMark stays uncoloured because table widths are measured on the
// raw text.
func completedMark(done bool) string {
	if done {
		return "done"
	}
	return "-"
}
