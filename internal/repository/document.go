package repository

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/verte-zerg/studylog/internal/model"
)

// DocumentVersion is written into every saved document.
const DocumentVersion = "3"

// Document is the persisted aggregate.
type Document struct {
	Intervals        []model.Interval                 `json:"intervals"`
	ScoreRecords     []model.Score                    `json:"scoreRecords"`
	RotationTrackers map[string]model.RotationTracker `json:"rotationTrackers"`
	Streak           model.StreakState                `json:"streak"`
	ExamProfile      string                           `json:"examProfile"`
	Metadata         Metadata                         `json:"metadata"`
}

// Metadata describes the saved document.
type Metadata struct {
	Version           string `json:"version"`
	LastSyncTimestamp string `json:"lastSyncTimestamp"`
}

// Encode serializes a document as indented JSON.
func Encode(doc Document) ([]byte, error) {
	if doc.Intervals == nil {
		doc.Intervals = []model.Interval{}
	}
	if doc.ScoreRecords == nil {
		doc.ScoreRecords = []model.Score{}
	}
	if doc.RotationTrackers == nil {
		doc.RotationTrackers = map[string]model.RotationTracker{}
	}
	return json.MarshalIndent(doc, "", "  ")
}

// flexID accepts string and numeric ids; older documents used timestamps.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*f = flexID(n.String())
	return nil
}

type rawInterval struct {
	ID            flexID   `json:"id"`
	Date          string   `json:"date"`
	Subject       string   `json:"subject"`
	StartTime     string   `json:"startTime"`
	EndTime       string   `json:"endTime"`
	DurationHours *float64 `json:"durationHours"`
	Hours         *float64 `json:"hours"`
	Completed     bool     `json:"completed"`
	Note          string   `json:"note"`
	Detail        string   `json:"detail"`
}

func (r rawInterval) input() model.IntervalInput {
	in := model.IntervalInput{
		ID:        string(r.ID),
		Date:      r.Date,
		Subject:   r.Subject,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		Completed: r.Completed,
		Note:      r.Note,
	}
	switch {
	case r.DurationHours != nil:
		in.DurationHours = *r.DurationHours
	case r.Hours != nil:
		in.DurationHours = *r.Hours
	}
	if in.Note == "" {
		in.Note = r.Detail
	}
	return in
}

type rawScore struct {
	ID           flexID  `json:"id"`
	Date         string  `json:"date"`
	Subject      string  `json:"subject"`
	Round        float64 `json:"round"`
	Score        float64 `json:"score"`
	MaxScore     float64 `json:"maxScore"`
	CorrectCount float64 `json:"correctCount"`
	TotalCount   float64 `json:"totalCount"`
	Accuracy     float64 `json:"accuracy"`
	Notes        string  `json:"notes"`
}

func (r rawScore) input() model.ScoreInput {
	return model.ScoreInput{
		ID:           string(r.ID),
		Date:         r.Date,
		Subject:      r.Subject,
		Round:        int(r.Round),
		Score:        r.Score,
		MaxScore:     r.MaxScore,
		CorrectCount: int(r.CorrectCount),
		TotalCount:   int(r.TotalCount),
		Accuracy:     r.Accuracy,
		Notes:        r.Notes,
	}
}

type rawStreak struct {
	CurrentLength  *int    `json:"currentLength"`
	Current        int     `json:"current"`
	LongestLength  *int    `json:"longestLength"`
	Longest        int     `json:"longest"`
	LastStudyDate  *string `json:"lastStudyDate"`
	TotalStudyDays *int    `json:"totalStudyDays"`
	TotalDays      int     `json:"totalDays"`
}

func (r rawStreak) state() model.StreakState {
	s := model.StreakState{
		CurrentLength:  r.Current,
		LongestLength:  r.Longest,
		TotalStudyDays: r.TotalDays,
	}
	if r.CurrentLength != nil {
		s.CurrentLength = *r.CurrentLength
	}
	if r.LongestLength != nil {
		s.LongestLength = *r.LongestLength
	}
	if r.TotalStudyDays != nil {
		s.TotalStudyDays = *r.TotalStudyDays
	}
	if r.LastStudyDate != nil {
		s.LastStudyDate = *r.LastStudyDate
	}
	return s
}

type rawDocument struct {
	Intervals        []rawInterval              `json:"intervals"`
	TimeBlocks       []rawInterval              `json:"timeBlocks"`
	ScoreRecords     []rawScore                 `json:"scoreRecords"`
	MockScores       []rawScore                 `json:"mockScores"`
	RotationTrackers map[string]json.RawMessage `json:"rotationTrackers"`
	Streak           rawStreak                  `json:"streak"`
	ExamProfile      string                     `json:"examProfile"`
	ExamType         string                     `json:"examType"`
	Metadata         Metadata                   `json:"metadata"`
}

// Decode parses a document, re-validating every record. Records that fail
// validation are dropped and reported as warnings. slots is the tracker size
// used when overlaying saved slot arrays.
func Decode(data []byte, slots int) (Document, []IntegrityWarning, error) {
	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return Document{}, nil, fmt.Errorf("decode document: %w", err)
	}
	var warnings []IntegrityWarning
	doc := Document{
		Streak:      raw.Streak.state(),
		ExamProfile: raw.ExamProfile,
		Metadata:    raw.Metadata,
	}
	if doc.ExamProfile == "" {
		doc.ExamProfile = raw.ExamType
	}

	intervals := raw.Intervals
	if len(intervals) == 0 {
		intervals = raw.TimeBlocks
	}
	seen := map[string]struct{}{}
	for i, r := range intervals {
		iv, err := model.NewInterval(r.input())
		if err != nil {
			warnings = append(warnings, IntegrityWarning{
				Kind:    WarnInvalidRecord,
				Ref:     fmt.Sprintf("intervals[%d]", i),
				Message: err.Error(),
			})
			continue
		}
		if _, dup := seen[iv.ID]; dup {
			warnings = append(warnings, IntegrityWarning{
				Kind:    WarnDuplicateID,
				Ref:     iv.ID,
				Message: "duplicate interval id dropped at load",
			})
			continue
		}
		seen[iv.ID] = struct{}{}
		doc.Intervals = append(doc.Intervals, iv)
	}

	scores := raw.ScoreRecords
	if len(scores) == 0 {
		scores = raw.MockScores
	}
	seen = map[string]struct{}{}
	for i, r := range scores {
		s, err := model.NewScore(r.input())
		if err != nil {
			warnings = append(warnings, IntegrityWarning{
				Kind:    WarnInvalidRecord,
				Ref:     fmt.Sprintf("scoreRecords[%d]", i),
				Message: err.Error(),
			})
			continue
		}
		if _, dup := seen[s.ID]; dup {
			warnings = append(warnings, IntegrityWarning{
				Kind:    WarnDuplicateID,
				Ref:     s.ID,
				Message: "duplicate score id dropped at load",
			})
			continue
		}
		seen[s.ID] = struct{}{}
		doc.ScoreRecords = append(doc.ScoreRecords, s)
	}

	doc.RotationTrackers = map[string]model.RotationTracker{}
	names := make([]string, 0, len(raw.RotationTrackers))
	for name := range raw.RotationTrackers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		subject := strings.TrimSpace(name)
		saved, err := decodeSlots(raw.RotationTrackers[name])
		if err != nil || subject == "" {
			msg := "empty subject"
			if err != nil {
				msg = err.Error()
			}
			warnings = append(warnings, IntegrityWarning{
				Kind:    WarnInvalidRecord,
				Ref:     "rotationTrackers." + name,
				Message: msg,
			})
			continue
		}
		tracker := model.NewRotationTracker(subject, slots)
		tracker.Overlay(saved)
		doc.RotationTrackers[subject] = tracker
	}
	return doc, warnings, nil
}

// decodeSlots accepts a tracker object, a bare slot array, or a bare array of
// completion flags.
func decodeSlots(data json.RawMessage) ([]model.RotationSlot, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var slots []model.RotationSlot
		if err := json.Unmarshal(data, &slots); err == nil {
			return slots, nil
		}
		var flags []bool
		if err := json.Unmarshal(data, &flags); err != nil {
			return nil, fmt.Errorf("unrecognized rotation array")
		}
		slots = make([]model.RotationSlot, len(flags))
		for i, done := range flags {
			slots[i] = model.RotationSlot{Round: i + 1, Completed: done}
		}
		return slots, nil
	}
	var tracker model.RotationTracker
	if err := json.Unmarshal(data, &tracker); err != nil {
		return nil, fmt.Errorf("unrecognized rotation tracker: %w", err)
	}
	return tracker.Slots, nil
}
