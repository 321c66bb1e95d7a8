// Package model defines the study records and their validation.
package model

// Interval is one logged study interval. The interval log is the only
// persisted fact about study time.
type Interval struct {
	ID            string  `json:"id"`
	Date          string  `json:"date"`
	Subject       string  `json:"subject"`
	StartTime     string  `json:"startTime"`
	EndTime       string  `json:"endTime"`
	DurationHours float64 `json:"durationHours"`
	Completed     bool    `json:"completed"`
	Note          string  `json:"note"`
}

// Score is one mock-exam result for a subject.
type Score struct {
	ID           string  `json:"id"`
	Date         string  `json:"date"`
	Subject      string  `json:"subject"`
	Round        int     `json:"round"`
	Score        float64 `json:"score"`
	MaxScore     float64 `json:"maxScore"`
	CorrectCount int     `json:"correctCount"`
	TotalCount   int     `json:"totalCount"`
	Accuracy     float64 `json:"accuracy"`
	Notes        string  `json:"notes"`
}

// RotationSlot is one pass through a subject's material.
type RotationSlot struct {
	Round      int     `json:"round"`
	Completed  bool    `json:"completed"`
	Date       string  `json:"date,omitempty"`
	StudyHours float64 `json:"studyHours"`
}

// RotationTracker holds the fixed sequence of passes for a subject.
type RotationTracker struct {
	Subject string         `json:"subject"`
	Slots   []RotationSlot `json:"rotations"`
}

// StreakState caches the streak derived from the interval log.
type StreakState struct {
	CurrentLength  int    `json:"currentLength"`
	LongestLength  int    `json:"longestLength"`
	LastStudyDate  string `json:"lastStudyDate,omitempty"`
	TotalStudyDays int    `json:"totalStudyDays"`
}

// IsZero reports whether no study has been recorded.
func (s StreakState) IsZero() bool {
	return s == StreakState{}
}
