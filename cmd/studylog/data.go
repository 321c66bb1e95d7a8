package main

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/studylog/internal/backup"
	"github.com/verte-zerg/studylog/internal/repository"
	"github.com/verte-zerg/studylog/internal/stats"
)

var (
	exportOutput string
	importYes    bool
	resetYes     bool
)

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show exam profiles and the active one",
		Args:  cobra.NoArgs,
		RunE:  runProfileCmd,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "set <name>",
		Short: "Switch the stored exam profile",
		Args:  cobra.ExactArgs(1),
		RunE:  runProfileSetCmd,
	})
	return cmd
}

func runProfileCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	names := make([]string, 0, len(a.benchmarks))
	for name := range a.benchmarks {
		names = append(names, name)
	}
	sort.Strings(names)
	active := a.repo.ExamProfile()
	rows := make([][]string, 0, len(names))
	for _, name := range names {
		b := a.benchmarks[name]
		mark := ""
		if name == active {
			mark = "*"
		}
		rows = append(rows, []string{
			mark,
			name,
			fmt.Sprintf("%.0fh", b.TargetTotalHours),
			fmt.Sprintf("%.1fh", b.DailyHours),
			fmt.Sprintf("%.0f", b.PassingScore),
			fmt.Sprintf("%.0f", b.SubjectMinScore),
			strconv.Itoa(b.MinStudyDays),
			strconv.Itoa(len(b.SubjectHours)),
		})
	}
	lines := stats.FormatTable([]string{"", "Profile", "Total", "Daily", "Pass", "Subject min", "Min days", "Subjects"}, rows, map[int]bool{2: true, 3: true, 4: true, 5: true, 6: true, 7: true})
	return stats.WriteLines(cmd.OutOrStdout(), lines)
}

func runProfileSetCmd(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, ok := a.benchmarks[args[0]]; !ok {
		return fmt.Errorf("unknown exam profile %q (see: studylog profile)", args[0])
	}
	if err := a.repo.SetExamProfile(args[0]); err != nil {
		return err
	}
	warnPersist(a)
	success("Exam profile set to %s", args[0])
	return nil
}

func newAuditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Check the stored document for integrity problems",
		Args:  cobra.NoArgs,
		RunE:  runAuditCmd,
	}
}

func runAuditCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	warnings := a.repo.Audit()
	out := cmd.OutOrStdout()
	if len(warnings) == 0 {
		_, err := fmt.Fprintln(out, color.GreenString("No integrity problems found."))
		return err
	}
	for _, w := range warnings {
		if _, err := fmt.Fprintln(out, color.YellowString("- %s", w)); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	for _, w := range warnings {
		if w.Kind == repository.WarnStreakMismatch {
			logErrln(faint("Run `studylog streak rebuild` to recompute the streak from the log."))
			break
		}
	}
	return nil
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a YAML backup of all study data",
		Long: `Write a YAML backup of all study data.

Examples:
  studylog export -o studylog.yaml
  studylog export > backup.yaml`,
		Args: cobra.NoArgs,
		RunE: runExportCmd,
	}
	cmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default: stdout)")
	return cmd
}

func runExportCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	doc := a.repo.Snapshot()
	data, err := backup.Export(doc, time.Now())
	if err != nil {
		return fmt.Errorf("failed to create backup: %w", err)
	}
	if exportOutput == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(exportOutput, data, 0o644); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}
	success("Backup created: %s", exportOutput)
	logErrf("  %d intervals, %d scores, %d rotation trackers\n", len(doc.Intervals), len(doc.ScoreRecords), len(doc.RotationTrackers))
	return nil
}

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace all study data with a YAML backup",
		Args:  cobra.ExactArgs(1),
		RunE:  runImportCmd,
	}
	cmd.Flags().BoolVarP(&importYes, "yes", "y", false, "skip confirmation prompt")
	return cmd
}

func runImportCmd(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read backup: %w", err)
	}
	doc, err := backup.Parse(data)
	if err != nil {
		return err
	}
	if !importYes && !confirm(fmt.Sprintf("Replace all study data with %d intervals and %d scores from %s?", len(doc.Intervals), len(doc.ScoreRecords), args[0])) {
		logErrln("Cancelled.")
		return nil
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	return restore(a, doc, args[0])
}

func restore(a *app, doc repository.Document, source string) error {
	warnings, err := a.repo.Restore(doc)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		logErrln(color.YellowString("warning: %s", w))
	}
	snap := a.repo.Snapshot()
	success("Restored %d intervals and %d scores from %s", len(snap.Intervals), len(snap.ScoreRecords), source)
	return nil
}

func newSnapshotsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "List saved document versions (sqlite backend)",
		Args:  cobra.NoArgs,
		RunE:  runSnapshotsCmd,
	}
	restoreCmd := &cobra.Command{
		Use:   "restore <id>",
		Short: "Restore a saved document version",
		Args:  cobra.ExactArgs(1),
		RunE:  runSnapshotRestoreCmd,
	}
	restoreCmd.Flags().BoolVarP(&importYes, "yes", "y", false, "skip confirmation prompt")
	cmd.AddCommand(restoreCmd)
	return cmd
}

func (a *app) requireSnapshots() error {
	if a.snapshots == nil {
		return fmt.Errorf("snapshots need the %s backend", backendSQLite)
	}
	return nil
}

func runSnapshotsCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireSnapshots(); err != nil {
		return err
	}

	snaps, err := a.snapshots.Snapshots(contextOf(cmd), storageKey)
	if err != nil {
		return fmt.Errorf("failed to list snapshots: %w", err)
	}
	out := cmd.OutOrStdout()
	if len(snaps) == 0 {
		_, err := fmt.Fprintln(out, "No snapshots found.")
		return err
	}
	rows := make([][]string, 0, len(snaps))
	for _, s := range snaps {
		rows = append(rows, []string{
			strconv.FormatInt(s.ID, 10),
			s.SavedAt.Local().Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%d B", s.Size),
		})
	}
	lines := stats.FormatTable([]string{"ID", "Saved", "Size"}, rows, map[int]bool{0: true, 2: true})
	return stats.WriteLines(out, lines)
}

func runSnapshotRestoreCmd(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid snapshot id %q: %w", args[0], err)
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireSnapshots(); err != nil {
		return err
	}

	data, err := a.snapshots.LoadSnapshot(contextOf(cmd), id)
	if err != nil {
		return fmt.Errorf("failed to load snapshot %d: %w", id, err)
	}
	doc, warnings, err := repository.Decode(data, a.rotationSlots())
	if err != nil {
		return fmt.Errorf("snapshot %d is unreadable: %w", id, err)
	}
	for _, w := range warnings {
		logErrln(color.YellowString("warning: %s", w))
	}
	if !importYes && !confirm(fmt.Sprintf("Replace current study data with snapshot %d?", id)) {
		logErrln("Cancelled.")
		return nil
	}
	return restore(a, doc, fmt.Sprintf("snapshot %d", id))
}

func newResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all study data",
		Args:  cobra.NoArgs,
		RunE:  runResetCmd,
	}
	cmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "skip confirmation prompt")
	return cmd
}

func runResetCmd(cmd *cobra.Command, _ []string) error {
	if !resetYes && !confirm("Delete all intervals, scores, rotations and the streak?") {
		logErrln("Cancelled.")
		return nil
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	a.repo.Reset()
	warnPersist(a)
	success("All study data deleted")
	if a.snapshots != nil {
		logErrln(faint("Earlier versions remain available via `studylog snapshots`."))
	}
	return nil
}

func confirm(question string) bool {
	logErrf("%s [y/N] ", question)
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil && response == "" {
		return false
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
