// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Storage  StorageConfig            `toml:"storage"`
	Plan     PlanConfig               `toml:"plan"`
	Policy   PolicyConfig             `toml:"policy"`
	Profiles map[string]ProfileConfig `toml:"profiles"`
}

// StorageConfig maps persistence settings.
type StorageConfig struct {
	Backend       *string `toml:"backend"`
	Path          *string `toml:"path"`
	Key           *string `toml:"key"`
	SaveDelay     *string `toml:"save-delay"`
	KeepSnapshots *int    `toml:"keep-snapshots"`
}

// SaveDelayDuration parses save-delay. ok is false when it is unset.
func (s StorageConfig) SaveDelayDuration() (d time.Duration, ok bool, err error) {
	if s.SaveDelay == nil {
		return 0, false, nil
	}
	d, err = time.ParseDuration(*s.SaveDelay)
	if err != nil {
		return 0, false, fmt.Errorf("invalid storage.save-delay %q: %w", *s.SaveDelay, err)
	}
	if d < 0 {
		return 0, false, fmt.Errorf("invalid storage.save-delay %q: must not be negative", *s.SaveDelay)
	}
	return d, true, nil
}

// PlanConfig maps the study plan.
type PlanConfig struct {
	ExamProfile   *string  `toml:"exam-profile"`
	Subjects      []string `toml:"subjects"`
	RotationSlots *int     `toml:"rotation-slots"`
}

// PolicyConfig maps analysis thresholds and weights.
type PolicyConfig struct {
	StreakScanDays *int     `toml:"streak-scan-days"`
	WeakScore      *float64 `toml:"weak-score"`
	WeakEfficiency *float64 `toml:"weak-efficiency"`
	WeakRotations  *int     `toml:"weak-rotations"`
	WeakProgress   *float64 `toml:"weak-progress"`
	WeightTime     *float64 `toml:"weight-time"`
	WeightProgress *float64 `toml:"weight-progress"`
	WeightScore    *float64 `toml:"weight-score"`
	WeightStreak   *float64 `toml:"weight-streak"`
}

// ProfileConfig overrides or adds an exam profile.
type ProfileConfig struct {
	TargetTotalHours *float64           `toml:"target-total-hours"`
	DailyHours       *float64           `toml:"daily-hours"`
	PassingScore     *float64           `toml:"passing-score"`
	SubjectMin       *float64           `toml:"subject-min"`
	MinStudyDays     *int               `toml:"min-study-days"`
	SubjectHours     map[string]float64 `toml:"subject-hours"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	if _, _, err := cfg.Storage.SaveDelayDuration(); err != nil {
		return FileConfig{}, err
	}
	return cfg, nil
}

// Template is written by `studylog config` when no file exists yet.
const Template = `# studylog configuration. Every key is optional.

[storage]
# backend = "sqlite"        # sqlite or file
# path = ""                 # database file or directory for the file backend
# key = "studyData"
# save-delay = "0s"         # coalesce saves, for example "500ms"
# keep-snapshots = 20

[plan]
# exam-profile = "first"    # first, second, or a [profiles.<name>] table
# subjects = ["민법", "헌법"]
# rotation-slots = 7

[policy]
# streak-scan-days = 365
# weak-score = 60
# weak-efficiency = 50
# weak-rotations = 3
# weak-progress = 50
# weight-time = 0.4
# weight-progress = 0.3
# weight-score = 0.2
# weight-streak = 0.1

# [profiles.first]
# daily-hours = 6
# [profiles.first.subject-hours]
# "민법" = 200
`

// WriteTemplate creates path with Template unless it already exists.
func WriteTemplate(path string) (created bool, err error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to stat config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(Template), 0o644); err != nil {
		return false, fmt.Errorf("failed to write config: %w", err)
	}
	return true, nil
}
