// Package main provides the CLI entrypoint for studylog.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/studylog/internal/config"
	"github.com/verte-zerg/studylog/internal/model"
	"github.com/verte-zerg/studylog/internal/report"
	"github.com/verte-zerg/studylog/internal/repository"
	"github.com/verte-zerg/studylog/internal/stats"
	"github.com/verte-zerg/studylog/internal/store"
)

const (
	backendSQLite = "sqlite"
	backendFile   = "file"
)

var (
	configPath     string
	verbose        bool
	storageBackend string
	storagePath    string
	storageKey     string
	keepSnapshots  int
	profileName    string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "studylog",
		Short:         "Study time, mock score and rotation tracker",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runTodayCmd,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/studylog/config.toml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "debug logging on stderr")
	flags.StringVar(&storageBackend, "backend", backendSQLite, "storage backend (sqlite or file)")
	flags.StringVar(&storagePath, "db", "", "database file, or directory for the file backend")
	flags.StringVar(&storageKey, "key", repository.DefaultKey, "document key")
	flags.IntVar(&keepSnapshots, "keep-snapshots", store.DefaultKeepSnapshots, "snapshots kept per document (sqlite)")
	flags.StringVar(&profileName, "profile", "", "exam profile for analysis (default: the stored profile)")

	rootCmd.AddCommand(newAddCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newToggleCmd())
	rootCmd.AddCommand(newEditCmd())
	rootCmd.AddCommand(newRemoveCmd())
	rootCmd.AddCommand(newScoreCmd())
	rootCmd.AddCommand(newRotationCmd())
	rootCmd.AddCommand(newTodayCmd())
	rootCmd.AddCommand(newWeekCmd())
	rootCmd.AddCommand(newMonthCmd())
	rootCmd.AddCommand(newSubjectsCmd())
	rootCmd.AddCommand(newWeakCmd())
	rootCmd.AddCommand(newPatternsCmd())
	rootCmd.AddCommand(newReportCmd())
	rootCmd.AddCommand(newChartCmd())
	rootCmd.AddCommand(newStreakCmd())
	rootCmd.AddCommand(newProfileCmd())
	rootCmd.AddCommand(newAuditCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newSnapshotsCmd())
	rootCmd.AddCommand(newResetCmd())
	rootCmd.AddCommand(newDashboardCmd())
	rootCmd.AddCommand(newTimerCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

// app is what a command needs once config is applied and storage is open.
type app struct {
	cfg        config.FileConfig
	logger     *slog.Logger
	repo       *repository.Repository
	snapshots  *store.Store
	benchmarks map[string]report.Benchmark
	policy     stats.WeakPolicy
	weights    stats.Weights
}

func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openApp loads the config, lets flags override it, and opens the repository.
// Callers must Close the app.
func openApp(cmd *cobra.Command) (*app, error) {
	fileCfg, err := config.LoadConfig(resolveConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "backend", &storageBackend, fileCfg.Storage.Backend)
	applyStringConfig(cmd, "db", &storagePath, fileCfg.Storage.Path)
	applyStringConfig(cmd, "key", &storageKey, fileCfg.Storage.Key)
	applyIntConfig(cmd, "keep-snapshots", &keepSnapshots, fileCfg.Storage.KeepSnapshots)

	logger := newLogger()
	a := &app{
		cfg:        fileCfg,
		logger:     logger,
		benchmarks: mergeProfiles(report.DefaultBenchmarks(), fileCfg.Profiles),
	}
	a.policy, a.weights = policyFromConfig(fileCfg.Policy)

	backend, err := a.openBackend()
	if err != nil {
		return nil, err
	}
	opts, err := repositoryOptions(fileCfg, logger)
	if err != nil {
		closeBackend(backend)
		return nil, err
	}
	repo, err := repository.Open(contextOf(cmd), backend, opts)
	if err != nil {
		closeBackend(backend)
		return nil, fmt.Errorf("failed to open study data: %w", err)
	}
	a.repo = repo
	return a, nil
}

func (a *app) openBackend() (store.Backend, error) {
	switch storageBackend {
	case backendSQLite:
		path := storagePath
		if path == "" {
			path = config.DefaultDBPath()
		}
		st, err := store.Open(path, keepSnapshots)
		if err != nil {
			return nil, fmt.Errorf("failed to open db: %w", err)
		}
		a.snapshots = st
		a.logger.Debug("opened sqlite store", "path", path)
		return st, nil
	case backendFile:
		dir := storagePath
		if dir == "" {
			dir = config.DefaultDataDir()
		}
		fs, err := store.NewFileStore(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to open data directory: %w", err)
		}
		a.logger.Debug("opened file store", "dir", dir)
		return fs, nil
	default:
		return nil, fmt.Errorf("unknown backend %q (use %s or %s)", storageBackend, backendSQLite, backendFile)
	}
}

func closeBackend(b store.Backend) {
	if cerr := b.Close(); cerr != nil {
		logErrf("failed to close storage: %v\n", cerr)
	}
}

func repositoryOptions(cfg config.FileConfig, logger *slog.Logger) (repository.Options, error) {
	opts := repository.Options{
		Key:    storageKey,
		Logger: logger,
		Plan:   cfg.Plan.Subjects,
	}
	if cfg.Plan.RotationSlots != nil {
		if *cfg.Plan.RotationSlots <= 0 {
			return repository.Options{}, fmt.Errorf("plan.rotation-slots must be > 0")
		}
		opts.RotationSlots = *cfg.Plan.RotationSlots
	}
	if cfg.Plan.ExamProfile != nil {
		opts.ExamProfile = *cfg.Plan.ExamProfile
	}
	if cfg.Policy.StreakScanDays != nil {
		opts.ScanDays = *cfg.Policy.StreakScanDays
	}
	delay, ok, err := cfg.Storage.SaveDelayDuration()
	if err != nil {
		return repository.Options{}, err
	}
	if ok {
		opts.SaveDelay = delay
	}
	return opts, nil
}

// Close flushes pending saves and releases storage.
func (a *app) Close() {
	if err := a.repo.Close(); err != nil {
		logErrf("failed to close study data: %v\n", err)
	}
}

func (a *app) rotationSlots() int {
	if a.cfg.Plan.RotationSlots != nil {
		return *a.cfg.Plan.RotationSlots
	}
	return model.DefaultRotationSlots
}

func (a *app) benchmark() (report.Benchmark, error) {
	name := profileName
	if name == "" {
		name = a.repo.ExamProfile()
	}
	return report.Lookup(a.benchmarks, name)
}

func (a *app) reportOptions() (report.Options, error) {
	b, err := a.benchmark()
	if err != nil {
		return report.Options{}, err
	}
	return report.Options{Benchmark: b, Policy: a.policy, Weights: a.weights}, nil
}

func (a *app) data() report.Data {
	doc := a.repo.Snapshot()
	return report.Data{
		Intervals: doc.Intervals,
		Scores:    doc.ScoreRecords,
		Trackers:  doc.RotationTrackers,
		Streak:    doc.Streak,
		Plan:      a.repo.Plan(),
	}
}

// mergeProfiles overlays [profiles.<name>] tables on the built-in benchmarks.
// A new profile starts from the first-round targets with no subject hours.
func mergeProfiles(base map[string]report.Benchmark, profiles map[string]config.ProfileConfig) map[string]report.Benchmark {
	out := make(map[string]report.Benchmark, len(base)+len(profiles))
	for name, b := range base {
		out[name] = b
	}
	for name, p := range profiles {
		b, ok := out[name]
		if !ok {
			b = base[repository.DefaultExamProfile]
			b.SubjectHours = nil
		}
		b.Name = name
		if p.TargetTotalHours != nil {
			b.TargetTotalHours = *p.TargetTotalHours
		}
		if p.DailyHours != nil {
			b.DailyHours = *p.DailyHours
		}
		if p.PassingScore != nil {
			b.PassingScore = *p.PassingScore
		}
		if p.SubjectMin != nil {
			b.SubjectMinScore = *p.SubjectMin
		}
		if p.MinStudyDays != nil {
			b.MinStudyDays = *p.MinStudyDays
		}
		hours := make(map[string]float64, len(b.SubjectHours)+len(p.SubjectHours))
		for subject, h := range b.SubjectHours {
			hours[subject] = h
		}
		for subject, h := range p.SubjectHours {
			hours[subject] = h
		}
		b.SubjectHours = hours
		out[name] = b
	}
	return out
}

func policyFromConfig(p config.PolicyConfig) (stats.WeakPolicy, stats.Weights) {
	policy := stats.DefaultWeakPolicy()
	weights := stats.DefaultWeights()
	setFloat(&policy.ScoreBelow, p.WeakScore)
	setFloat(&policy.EfficiencyBelow, p.WeakEfficiency)
	setFloat(&policy.ProgressBelow, p.WeakProgress)
	if p.WeakRotations != nil {
		policy.MinRotations = *p.WeakRotations
	}
	setFloat(&weights.Time, p.WeightTime)
	setFloat(&weights.Progress, p.WeightProgress)
	setFloat(&weights.Score, p.WeightScore)
	setFloat(&weights.Streak, p.WeightStreak)
	return policy, weights
}

func setFloat(target, value *float64) {
	if value != nil {
		*target = *value
	}
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create or edit the config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := resolveConfigPath()
	created, err := config.WriteTemplate(path)
	if err != nil {
		return err
	}
	if created {
		logErrf("Created %s\n", path)
	}
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

// warnPersist reports a failed save. The command's change is still in memory
// and the next successful save carries it.
func warnPersist(a *app) {
	if err := a.repo.PersistError(); err != nil {
		logErrln(color.YellowString("warning: %v", err))
	}
}

func success(format string, args ...any) {
	logErrln(color.GreenString(format, args...))
}

func faint(s string) string {
	return color.New(color.Faint).Sprint(s)
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
