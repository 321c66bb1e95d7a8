package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/studylog/internal/statsui"
	"github.com/verte-zerg/studylog/internal/tui"
)

var (
	dashboardDays int
	timerNote     string
)

func newDashboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "dashboard",
		Aliases: []string{"stats"},
		Short:   "Open the interactive dashboard",
		Args:    cobra.NoArgs,
		RunE:    runDashboardCmd,
	}
	cmd.Flags().IntVar(&dashboardDays, "days", defaultChartDays, "days shown in the chart")
	return cmd
}

func runDashboardCmd(cmd *cobra.Command, _ []string) error {
	if dashboardDays <= 0 {
		return fmt.Errorf("--days must be > 0")
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	b, err := a.benchmark()
	if err != nil {
		return err
	}
	m := statsui.NewModel(a.repo, statsui.Config{
		Benchmarks: a.benchmarks,
		Profile:    b.Name,
		Policy:     a.policy,
		Weights:    a.weights,
		ChartDays:  dashboardDays,
	})
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run dashboard: %w", err)
	}
	return nil
}

func newTimerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "timer [subject]",
		Short: "Time a study session and log it as completed",
		Long: `Time a study session and log it as completed.

Without a subject the timer asks for one. Sessions that run past midnight
are split into one interval per day.

Examples:
  studylog timer 민법
  studylog timer 헌법 --note "기출 2회독"`,
		Args: cobra.MaximumNArgs(1),
		RunE: runTimerCmd,
	}
	cmd.Flags().StringVar(&timerNote, "note", "", "note stored on the logged intervals")
	return cmd
}

func runTimerCmd(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	b, err := a.benchmark()
	if err != nil {
		return err
	}
	cfg := tui.Config{
		Note:        strings.TrimSpace(timerNote),
		DailyTarget: b.DailyHours,
	}
	if len(args) == 1 {
		cfg.Subject = args[0]
	}
	program := tea.NewProgram(tui.NewModel(cfg, a.repo), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run timer: %w", err)
	}
	warnPersist(a)
	return nil
}
