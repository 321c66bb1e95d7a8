// Package backup writes and reads portable YAML backups of the study
// document.
package backup

import (
	"fmt"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/studylog/internal/model"
	"github.com/verte-zerg/studylog/internal/repository"
)

// Version is the current backup format version.
const Version = "1.0"

const tool = "studylog"

// Backup is the YAML backup format.
type Backup struct {
	Version     string           `yaml:"version"`
	ExportedAt  time.Time        `yaml:"exported_at"`
	Tool        string           `yaml:"tool"`
	ExamProfile string           `yaml:"exam_profile"`
	Streak      StreakBackup     `yaml:"streak"`
	Intervals   []IntervalBackup `yaml:"intervals"`
	Scores      []ScoreBackup    `yaml:"scores"`
	Rotations   []TrackerBackup  `yaml:"rotations"`
}

// IntervalBackup is one interval in the backup format.
type IntervalBackup struct {
	ID        string  `yaml:"id"`
	Date      string  `yaml:"date"`
	Subject   string  `yaml:"subject"`
	Start     string  `yaml:"start"`
	End       string  `yaml:"end"`
	Hours     float64 `yaml:"hours"`
	Completed bool    `yaml:"completed"`
	Note      string  `yaml:"note,omitempty"`
}

// ScoreBackup is one mock score in the backup format.
type ScoreBackup struct {
	ID       string  `yaml:"id"`
	Date     string  `yaml:"date"`
	Subject  string  `yaml:"subject"`
	Round    int     `yaml:"round"`
	Score    float64 `yaml:"score"`
	MaxScore float64 `yaml:"max_score"`
	Correct  int     `yaml:"correct,omitempty"`
	Total    int     `yaml:"total,omitempty"`
	Accuracy float64 `yaml:"accuracy"`
	Notes    string  `yaml:"notes,omitempty"`
}

// TrackerBackup is one subject's rotation slots.
type TrackerBackup struct {
	Subject string       `yaml:"subject"`
	Slots   []SlotBackup `yaml:"slots"`
}

// SlotBackup is one rotation pass.
type SlotBackup struct {
	Round     int     `yaml:"round"`
	Completed bool    `yaml:"completed"`
	Date      string  `yaml:"date,omitempty"`
	Hours     float64 `yaml:"hours,omitempty"`
}

// StreakBackup is the cached streak state.
type StreakBackup struct {
	Current   int    `yaml:"current"`
	Longest   int    `yaml:"longest"`
	LastStudy string `yaml:"last_study,omitempty"`
	TotalDays int    `yaml:"total_days"`
}

// Export renders doc as a YAML backup stamped with now.
func Export(doc repository.Document, now time.Time) ([]byte, error) {
	b := Backup{
		Version:     Version,
		ExportedAt:  now.UTC(),
		Tool:        tool,
		ExamProfile: doc.ExamProfile,
		Streak: StreakBackup{
			Current:   doc.Streak.CurrentLength,
			Longest:   doc.Streak.LongestLength,
			LastStudy: doc.Streak.LastStudyDate,
			TotalDays: doc.Streak.TotalStudyDays,
		},
		Intervals: make([]IntervalBackup, len(doc.Intervals)),
		Scores:    make([]ScoreBackup, len(doc.ScoreRecords)),
	}
	for i, iv := range doc.Intervals {
		b.Intervals[i] = IntervalBackup{
			ID:        iv.ID,
			Date:      iv.Date,
			Subject:   iv.Subject,
			Start:     iv.StartTime,
			End:       iv.EndTime,
			Hours:     iv.DurationHours,
			Completed: iv.Completed,
			Note:      iv.Note,
		}
	}
	for i, s := range doc.ScoreRecords {
		b.Scores[i] = ScoreBackup{
			ID:       s.ID,
			Date:     s.Date,
			Subject:  s.Subject,
			Round:    s.Round,
			Score:    s.Score,
			MaxScore: s.MaxScore,
			Correct:  s.CorrectCount,
			Total:    s.TotalCount,
			Accuracy: s.Accuracy,
			Notes:    s.Notes,
		}
	}
	subjects := make([]string, 0, len(doc.RotationTrackers))
	for name := range doc.RotationTrackers {
		subjects = append(subjects, name)
	}
	sort.Strings(subjects)
	for _, name := range subjects {
		t := doc.RotationTrackers[name]
		tb := TrackerBackup{Subject: t.Subject, Slots: make([]SlotBackup, len(t.Slots))}
		if tb.Subject == "" {
			tb.Subject = name
		}
		for i, s := range t.Slots {
			tb.Slots[i] = SlotBackup{Round: s.Round, Completed: s.Completed, Date: s.Date, Hours: s.StudyHours}
		}
		b.Rotations = append(b.Rotations, tb)
	}
	return yaml.Marshal(b)
}

// Parse reads a YAML backup back into a document. Records are not validated
// here; restoring through the repository does that.
func Parse(data []byte) (repository.Document, error) {
	var b Backup
	if err := yaml.Unmarshal(data, &b); err != nil {
		return repository.Document{}, fmt.Errorf("parse yaml: %w", err)
	}
	if b.Version != Version {
		return repository.Document{}, fmt.Errorf("unsupported backup version: %s (expected %s)", b.Version, Version)
	}
	if b.Tool != tool {
		return repository.Document{}, fmt.Errorf("wrong tool: %s (expected %s)", b.Tool, tool)
	}

	doc := repository.Document{
		ExamProfile: b.ExamProfile,
		Streak: model.StreakState{
			CurrentLength:  b.Streak.Current,
			LongestLength:  b.Streak.Longest,
			LastStudyDate:  b.Streak.LastStudy,
			TotalStudyDays: b.Streak.TotalDays,
		},
		Intervals:        make([]model.Interval, len(b.Intervals)),
		ScoreRecords:     make([]model.Score, len(b.Scores)),
		RotationTrackers: make(map[string]model.RotationTracker, len(b.Rotations)),
	}
	for i, iv := range b.Intervals {
		doc.Intervals[i] = model.Interval{
			ID:            iv.ID,
			Date:          iv.Date,
			Subject:       iv.Subject,
			StartTime:     iv.Start,
			EndTime:       iv.End,
			DurationHours: iv.Hours,
			Completed:     iv.Completed,
			Note:          iv.Note,
		}
	}
	for i, s := range b.Scores {
		doc.ScoreRecords[i] = model.Score{
			ID:           s.ID,
			Date:         s.Date,
			Subject:      s.Subject,
			Round:        s.Round,
			Score:        s.Score,
			MaxScore:     s.MaxScore,
			CorrectCount: s.Correct,
			TotalCount:   s.Total,
			Accuracy:     s.Accuracy,
			Notes:        s.Notes,
		}
	}
	for _, tb := range b.Rotations {
		t := model.RotationTracker{Subject: tb.Subject, Slots: make([]model.RotationSlot, len(tb.Slots))}
		for i, s := range tb.Slots {
			t.Slots[i] = model.RotationSlot{Round: s.Round, Completed: s.Completed, Date: s.Date, StudyHours: s.Hours}
		}
		doc.RotationTrackers[tb.Subject] = t
	}
	return doc, nil
}
